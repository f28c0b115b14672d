package rules

import "github.com/kilianp07/oncall/core/factory"

// Rule kinds.
const (
	KindRestPeriod           = "rest_period"
	KindCoverage             = "coverage"
	KindWorkload             = "workload"
	KindFixedIncompatibility = "fixed_incompatibility"
	KindRequiredCells        = "required_cells"
	KindForbiddenDays        = "forbidden_days"
	KindLinkedDays           = "linked_days"
)

func init() {
	register[restPeriod](KindRestPeriod)
	register[coverage](KindCoverage)
	register[workload](KindWorkload)
	register[fixedIncompatibility](KindFixedIncompatibility)
	register[requiredCells](KindRequiredCells)
	register[forbiddenDays](KindForbiddenDays)
	register[linkedDays](KindLinkedDays)
}

// register binds kind to a factory decoding the rule parameters into T.
// Unknown parameter keys are rejected.
func register[T any, PT interface {
	*T
	Compiler
}](kind string) {
	registry.MustRegister(kind, func(conf map[string]any) (Compiler, error) {
		p := PT(new(T))
		if err := factory.DecodeStrict(conf, p); err != nil {
			return nil, err
		}
		return p, nil
	})
}
