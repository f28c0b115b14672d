package solver

import "github.com/kilianp07/oncall/core/factory"

var backendRegistry = factory.NewRegistry[Backend]()

// RegisterBackend adds a solver backend factory identified by name.
func RegisterBackend(name string, f factory.Factory[Backend]) error {
	return backendRegistry.Register(name, f)
}

// NewBackend creates a fresh backend for one scheduling request.
func NewBackend(cfg factory.ModuleConfig) (Backend, error) {
	return backendRegistry.Create(cfg)
}

// Backends lists the registered backend names.
func Backends() []string { return backendRegistry.Names() }
