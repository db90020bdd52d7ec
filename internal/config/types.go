package config

// Config is the top-level configuration structure parsed from prpilot YAML.
type Config struct {
	Agent Agent `yaml:"agent"`
}

// Agent defines run-wide policy: models, caps, budget, and git behavior.
// Loaded once at construction, immutable for the run.
type Agent struct {
	Models       Models  `yaml:"models"`
	Turns        Turns   `yaml:"turns"`
	Cycles       Cycles  `yaml:"cycles"`
	MaxBudgetUSD float64 `yaml:"max_budget_usd"`

	WorktreeBase string `yaml:"worktree_base"`
	BranchPrefix string `yaml:"branch_prefix"`

	SkipPlanReview bool `yaml:"skip_plan_review"`
	SkipCodeReview bool `yaml:"skip_code_review"`
	SkipTests      bool `yaml:"skip_tests"`
	DraftPROnFail  bool `yaml:"draft_pr_on_failure"`

	// CheckTimeout bounds each validation command invocation, e.g. "2m".
	CheckTimeout string `yaml:"check_timeout"`

	// Checks overrides the detected validation commands per category.
	Checks CheckCommands `yaml:"checks"`
}

// Models names the model used for each phase.
type Models struct {
	Plan       string `yaml:"plan"`
	PlanReview string `yaml:"plan_review"`
	Execute    string `yaml:"execute"`
	CodeReview string `yaml:"code_review"`
	TestFix    string `yaml:"test_fix"`
}

// Turns caps the conversation turns for each agent-backed phase.
type Turns struct {
	Plan       int `yaml:"plan"`
	PlanReview int `yaml:"plan_review"`
	Execute    int `yaml:"execute"`
	CodeReview int `yaml:"code_review"`
	TestFix    int `yaml:"test_fix"`
}

// Cycles caps the bounded revise/fix loops.
type Cycles struct {
	PlanReview int `yaml:"plan_review"`
	CodeReview int `yaml:"code_review"`
	TestFix    int `yaml:"test_fix"`
}

// CheckCommands overrides detected validation commands per category.
// Empty fields fall back to project detection.
type CheckCommands struct {
	Lint      string `yaml:"lint"`
	Typecheck string `yaml:"typecheck"`
	Unit      string `yaml:"unit"`
}
