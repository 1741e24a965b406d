package policy

import (
	"context"
	"fmt"
	"sort"

	"github.com/open-policy-agent/opa/rego"
)

// Decisions returned by the admission policy.
const (
	DecisionAllow = "allow"
	DecisionBlock = "block"
)

// Input is the document the admission policy evaluates.
type Input struct {
	Protocol            string   `json:"protocol"`
	Model               string   `json:"model"`
	PromptChars         int      `json:"prompt_chars"`
	MaxPromptChars      int      `json:"max_prompt_chars"`
	AssistantConfigured bool     `json:"assistant_configured"`
	AllowedModels       []string `json:"allowed_models"`
}

// Engine is the OPA policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a new policy engine with the given policy content.
// The policy must define a set rule data.admission.deny of reason strings.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.admission.deny"),
		rego.Module("admission.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// Evaluate checks a conversion request against the admission policy.
// Returns: decision (allow, block), reason (joined deny messages), error
func (e *Engine) Evaluate(ctx context.Context, input Input) (string, string, error) {
	if input.AllowedModels == nil {
		input.AllowedModels = []string{}
	}
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return "", "", fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return DecisionAllow, "", nil
	}

	values, ok := results[0].Expressions[0].Value.([]interface{})
	if !ok {
		return "", "", fmt.Errorf("unexpected policy result type %T", results[0].Expressions[0].Value)
	}

	var reasons []string
	for _, v := range values {
		if s, ok := v.(string); ok {
			reasons = append(reasons, s)
		}
	}
	if len(reasons) == 0 {
		return DecisionAllow, "", nil
	}
	sort.Strings(reasons)

	reason := reasons[0]
	for _, r := range reasons[1:] {
		reason += "; " + r
	}
	return DecisionBlock, reason, nil
}

// DefaultPolicy is the default admission policy content.
const DefaultPolicy = `
package admission

deny[msg] {
	input.prompt_chars == 0
	msg := "prompt is empty"
}

deny[msg] {
	input.max_prompt_chars > 0
	input.prompt_chars > input.max_prompt_chars
	msg := sprintf("prompt exceeds %d characters", [input.max_prompt_chars])
}

deny[msg] {
	input.protocol == "run"
	not input.assistant_configured
	msg := "run protocol is not configured"
}

deny[msg] {
	count(input.allowed_models) > 0
	not model_allowed
	msg := sprintf("model %s is not allowed", [input.model])
}

model_allowed {
	input.allowed_models[_] == input.model
}
`
