// Package clinic implements the prompt_clinic tool: it rewrites a rough
// prompt draft into a structured, production-grade prompt specification
// with a review checklist and advisory risk warnings.
// file: internal/clinic/upgrader.go
package clinic

import (
	"fmt"
	"strings"
)

// Defaults substituted when the caller leaves optional fields blank.
const (
	// DefaultGoal is used when no goal is supplied.
	DefaultGoal = "Generate high-quality output that satisfies the user's intent."
	// DefaultAudience is used when no audience is supplied.
	DefaultAudience = "General technical audience"
)

// DefaultConstraints is interpolated into the template when the caller
// supplies no constraints. The risk check still sees the empty list.
var DefaultConstraints = []string{"Be concise", "No web browsing", "Return JSON"}

// Risk warnings, appended in this order.
const (
	riskUnboundTopic   = "Template variable '{{topic}}' is present but not bound to a concrete value; clarify or provide examples."
	riskGoalInferred   = "Goal is missing; tool inferred a generic goal (may reduce precision)."
	riskNoConstraints  = "No constraints provided; output may be verbose or under-specified."
	emptyConstraintRow = "- (none)"
)

// checklist is the fixed review checklist returned with every upgrade.
var checklist = []string{
	"Restate the request + goal clearly",
	"Generate 4 ToT branches with steps + tradeoffs",
	"Score + select best branch",
	"Add verification gates",
	"Return in strict final format",
}

// promptTemplate is the fixed instructional scaffold. The four %s verbs are
// the only variable content: draft, resolved goal, resolved audience, and
// the rendered constraint lines.
const promptTemplate = `You are an expert assistant. Follow the process below *before* producing the final answer.

PHASE 0 — INTAKE
- Restate the request in 1 sentence.
- List: Goal, Constraints, Audience, Failure Modes.

PHASE 1 — TREE OF THOUGHT (DIVERGENT)
Generate 4 distinct solution branches:
1) Analytical (most rigorous)
2) Pragmatic (fastest)
3) Creative (most novel)
4) Risk-aware (edge cases + pitfalls)

For each branch:
- Steps
- Pros/Cons
- What it optimizes

PHASE 2 — PRUNE & SELECT
- Score each branch (0–5) on Correctness, Feasibility, Fit, Risk.
- Select best 1–2 branches.
- Synthesize into ONE execution plan.

PHASE 3 — VERIFICATION GATES
- List concrete checks that prove success (tests, examples, invariants, validation).

FINAL OUTPUT (STRICT FORMAT)
- Deliver the final answer clearly.
- Provide a concise checklist.
- Provide risks/assumptions.
- Provide 2 actionable next steps.
- Provide 2 evolution prompts.

USER INPUT
Topic/draft:
%s

Goal:
%s

Audience:
%s

Constraints:
%s`

// UpgradeRequest carries the tool arguments. Goal and Audience distinguish
// absent/null from empty string because the risk checks care about the
// difference between "not given" and "given but blank".
type UpgradeRequest struct {
	Draft       string   `json:"draft"`
	Goal        *string  `json:"goal,omitempty"`
	Constraints []string `json:"constraints,omitempty"`
	Audience    *string  `json:"audience,omitempty"`
}

// UpgradeResult is the tool output.
type UpgradeResult struct {
	UpgradedPrompt string   `json:"upgraded_prompt"`
	Checklist      []string `json:"checklist"`
	Risks          []string `json:"risks"`
}

// Upgrade deterministically rewrites the draft into the structured prompt
// template. It never fails: draft emptiness is the caller's concern, and
// all other inputs have defined fallbacks.
func Upgrade(req UpgradeRequest) UpgradeResult {
	draft := strings.TrimSpace(req.Draft)

	goal := ""
	if req.Goal != nil {
		goal = strings.TrimSpace(*req.Goal)
	}
	audience := ""
	if req.Audience != nil {
		audience = strings.TrimSpace(*req.Audience)
	}

	resolvedGoal := goal
	if resolvedGoal == "" {
		resolvedGoal = DefaultGoal
	}
	resolvedAudience := audience
	if resolvedAudience == "" {
		resolvedAudience = DefaultAudience
	}
	resolvedConstraints := req.Constraints
	if len(resolvedConstraints) == 0 {
		resolvedConstraints = DefaultConstraints
	}

	upgraded := fmt.Sprintf(promptTemplate,
		draft,
		resolvedGoal,
		resolvedAudience,
		renderConstraints(resolvedConstraints),
	)

	return UpgradeResult{
		UpgradedPrompt: upgraded,
		Checklist:      append([]string(nil), checklist...),
		Risks:          detectRisks(draft, req),
	}
}

// Checklist returns the fixed review checklist.
func Checklist() []string {
	return append([]string(nil), checklist...)
}

// renderConstraints formats each constraint as a "- item" line.
func renderConstraints(constraints []string) string {
	if len(constraints) == 0 {
		return emptyConstraintRow
	}
	lines := make([]string, len(constraints))
	for i, c := range constraints {
		lines[i] = "- " + c
	}
	return strings.Join(lines, "\n")
}

// detectRisks evaluates the advisory warnings against the original request
// fields (not the resolved values), in fixed order.
func detectRisks(trimmedDraft string, req UpgradeRequest) []string {
	risks := make([]string, 0, 3)
	if strings.Contains(trimmedDraft, "{{") && strings.Contains(trimmedDraft, "}}") && strings.Contains(trimmedDraft, "topic") {
		risks = append(risks, riskUnboundTopic)
	}
	// Absent, null, or empty-string goal counts as missing. A
	// whitespace-only goal does not, even though the default is substituted.
	if req.Goal == nil || *req.Goal == "" {
		risks = append(risks, riskGoalInferred)
	}
	if len(req.Constraints) == 0 {
		risks = append(risks, riskNoConstraints)
	}
	return risks
}
