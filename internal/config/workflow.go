package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/hugo-lorenzo-mato/aos-replay/internal/core"
)

// HelloWorkflowConfig lists the references the hello workflow records in
// its manifest. Order is preserved end to end.
type HelloWorkflowConfig struct {
	Models          []ModelEntry  `mapstructure:"models" yaml:"models" validate:"min=1,dive"`
	Tools           []ToolEntry   `mapstructure:"tools" yaml:"tools" validate:"min=1,dive"`
	PolicyDecisions []PolicyEntry `mapstructure:"policy_decisions" yaml:"policy_decisions" validate:"min=1,dive"`
}

// ModelEntry configures one model reference.
type ModelEntry struct {
	ModelID  string `mapstructure:"model_id" yaml:"model_id" validate:"notblank"`
	Provider string `mapstructure:"provider" yaml:"provider" validate:"notblank"`
	Version  string `mapstructure:"version" yaml:"version" validate:"notblank"`
}

// ToolEntry configures one tool reference.
type ToolEntry struct {
	ToolID  string `mapstructure:"tool_id" yaml:"tool_id" validate:"notblank"`
	Version string `mapstructure:"version" yaml:"version" validate:"notblank"`
}

// PolicyEntry configures one policy decision. Reason is optional.
type PolicyEntry struct {
	PolicyID string `mapstructure:"policy_id" yaml:"policy_id" validate:"notblank"`
	Decision string `mapstructure:"decision" yaml:"decision" validate:"notblank"`
	Reason   string `mapstructure:"reason" yaml:"reason,omitempty"`
}

// DefaultHelloWorkflow returns the built-in reference lists.
func DefaultHelloWorkflow() HelloWorkflowConfig {
	return HelloWorkflowConfig{
		Models:          []ModelEntry{{ModelID: "local-null", Provider: "local", Version: "0.0"}},
		Tools:           []ToolEntry{{ToolID: "noop", Version: "0.0"}},
		PolicyDecisions: []PolicyEntry{{PolicyID: "policy-allow", Decision: "allow", Reason: "placeholder"}},
	}
}

var workflowValidate = newWorkflowValidator()

func newWorkflowValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return !core.IsBlank(fl.Field().String())
	})
	return v
}

// Validate checks every entry and returns one message per problem, naming
// the config key. An empty result means the lists can be used.
func (h HelloWorkflowConfig) Validate() []string {
	err := workflowValidate.Struct(h)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []string{err.Error()}
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		// Namespace looks like "HelloWorkflowConfig.models[0].model_id".
		_, key, _ := strings.Cut(fe.Namespace(), ".")
		key = "workflow.hello." + key
		switch fe.Tag() {
		case "min":
			msgs = append(msgs, key+" requires at least one entry.")
		case "notblank":
			msgs = append(msgs, key+" is required.")
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %q validation.", key, fe.Tag()))
		}
	}
	return msgs
}

// ModelRefs returns the configured models in order.
func (h HelloWorkflowConfig) ModelRefs() []core.ModelRef {
	refs := make([]core.ModelRef, len(h.Models))
	for i, m := range h.Models {
		refs[i] = core.ModelRef{ModelID: m.ModelID, Provider: m.Provider, Version: m.Version}
	}
	return refs
}

// ToolRefs returns the configured tools in order.
func (h HelloWorkflowConfig) ToolRefs() []core.ToolRef {
	refs := make([]core.ToolRef, len(h.Tools))
	for i, t := range h.Tools {
		refs[i] = core.ToolRef{ToolID: t.ToolID, Version: t.Version}
	}
	return refs
}

// PolicyDecisionRefs returns the configured policy decisions in order.
func (h HelloWorkflowConfig) PolicyDecisionRefs() []core.PolicyDecision {
	refs := make([]core.PolicyDecision, len(h.PolicyDecisions))
	for i, p := range h.PolicyDecisions {
		refs[i] = core.PolicyDecision{PolicyID: p.PolicyID, Decision: p.Decision, Reason: p.Reason}
	}
	return refs
}

// WorkflowYAML renders h as a config fragment under workflow.hello, ready
// to paste into .aos.yaml.
func WorkflowYAML(h HelloWorkflowConfig) ([]byte, error) {
	doc := map[string]any{
		"workflow": map[string]any{"hello": h},
	}
	out, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("rendering workflow config: %w", err)
	}
	return out, nil
}

// Map forms of the lists, used as viper defaults.

func (h HelloWorkflowConfig) modelMaps() []map[string]any {
	out := make([]map[string]any, len(h.Models))
	for i, m := range h.Models {
		out[i] = map[string]any{"model_id": m.ModelID, "provider": m.Provider, "version": m.Version}
	}
	return out
}

func (h HelloWorkflowConfig) toolMaps() []map[string]any {
	out := make([]map[string]any, len(h.Tools))
	for i, t := range h.Tools {
		out[i] = map[string]any{"tool_id": t.ToolID, "version": t.Version}
	}
	return out
}

func (h HelloWorkflowConfig) policyMaps() []map[string]any {
	out := make([]map[string]any, len(h.PolicyDecisions))
	for i, p := range h.PolicyDecisions {
		out[i] = map[string]any{"policy_id": p.PolicyID, "decision": p.Decision, "reason": p.Reason}
	}
	return out
}
