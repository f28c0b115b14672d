// Package factory provides a small generic registry used to instantiate modules
// from configuration. Modules are defined by a type string and a map of raw
// settings. Factories decode the settings into typed structs and return the
// concrete implementation.
//
// The same registry backs metrics sinks, solver backends and rule
// compilers:
//
//	reg := factory.NewRegistry[solver.Backend]()
//	reg.MustRegister("gini", func(conf map[string]any) (solver.Backend, error) {
//	    return sat.New(), nil
//	})
//	b, err := reg.Create(factory.ModuleConfig{Type: "gini"})
package factory
