package model

// RuleSpec is one declarative rule as read from a rule file.
type RuleSpec struct {
	ID          string         `json:"id" yaml:"id"`
	Kind        string         `json:"kind" yaml:"kind"`
	Priority    *int           `json:"priority,omitempty" yaml:"priority,omitempty"`
	Enabled     *bool          `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty"`
	Params      map[string]any `json:"params,omitempty" yaml:"params,omitempty"`
}

// Active reports whether the rule should be compiled.
func (r RuleSpec) Active() bool { return r.Enabled == nil || *r.Enabled }

// EffectivePriority returns the explicit priority or zero. Larger numbers
// are relaxed first.
func (r RuleSpec) EffectivePriority() int {
	if r.Priority == nil {
		return 0
	}
	return *r.Priority
}
