package prompt

// builtinTemplates maps template filename to content.
var builtinTemplates = map[string]string{
	"plan.md":        planTemplate,
	"plan-review.md": planReviewTemplate,
	"execute.md":     executeTemplate,
	"code-review.md": codeReviewTemplate,
	"test-fix.md":    testFixTemplate,
}

const planTemplate = `# Plan: {{task_title}}

## Task
{{task_description}}

## Repository Context
Working in: {{worktree_path}}
Branch: {{branch}}
Project type: {{project_type}}

## Instructions
1. Explore the repository enough to understand where this change belongs
2. Do NOT edit any source files in this phase
3. Write your plan to {{plan_path}} with exactly these sections:
   - ## Approach
   - ## Steps
   - ## Risks
4. Keep the plan concrete: name the files you expect to touch
{{#if review_feedback}}

## Reviewer Feedback
A reviewer asked for revisions. Address every item:
{{review_feedback}}
{{/if}}
`

const planReviewTemplate = `# Plan Review: {{task_title}}

## Task
{{task_description}}

## Plan Under Review
{{plan_body}}

## Instructions
Review the plan for correctness, scope fit, and risk. Do not edit any files.
End your response with exactly one line:

VERDICT: APPROVE
VERDICT: REVISE
VERDICT: REJECT

Use REJECT only when the task is infeasible as stated. After a REVISE
verdict, list the issues as a numbered list, one per line:

1. [severity] (category) file:line recommendation
`

const executeTemplate = `# Implement: {{task_title}}

## Task
{{task_description}}

## Approved Plan
{{plan_body}}

## Repository Context
Working in: {{worktree_path}}
Branch: {{branch}}
Project type: {{project_type}}

## Instructions
1. Implement the plan step by step
2. Write or update tests for your changes
3. Do not commit; the pipeline commits for you
4. Do not touch files under .prpilot/ except where instructed
{{#if review_issues}}

## Review Issues To Address
A code reviewer found problems with the previous attempt. Fix every item:
{{review_issues}}
{{/if}}
`

const codeReviewTemplate = `# Code Review: {{task_title}}

## Task
{{task_description}}

## Diff Under Review
` + "```diff\n{{diff}}\n```" + `

## Instructions
Review the change for correctness, completeness against the task, and
regressions. Do not edit any files. End your response with exactly one line:

VERDICT: PASS
VERDICT: FAIL

After a FAIL verdict, list the issues as a numbered list, one per line:

1. [severity] (category) file:line recommendation
`

const testFixTemplate = `# Fix Failing Checks: {{task_title}}

## Failing Check
Category: {{failure_category}} ({{classification}})
Exit code: {{exit_code}}

## Output
` + "```\n{{check_output}}\n```" + `

## Instructions
1. Fix the failures above without reverting the task's changes
2. Only checks that passed before your changes are enforced, so these
   failures were introduced by this change
3. Do not commit; the pipeline re-runs the checks and commits for you
`
