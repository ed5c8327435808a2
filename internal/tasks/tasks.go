// Package tasks provides the environment helper functions that
// simulation documents call from formulas and initializers: grid maps,
// predefined mazes, and an extension point for task-specific packs.
package tasks

import (
	"github.com/funvibe/simstream/internal/evaluator"
)

// installers holds task packs registered by key. Embedders add their
// own environments here before compiling a document.
var installers = map[string]func(*evaluator.Registry){}

// Register adds a task pack under a key referenced by a document's
// `task` field.
func Register(name string, installer func(*evaluator.Registry)) {
	installers[name] = installer
}

// Install adds the shared environment helpers to the registry, plus the
// pack registered for taskName, if any.
func Install(registry *evaluator.Registry, taskName string) {
	registry.Install(GridBuiltins(registry))
	registry.Install(MazeBuiltins())
	if installer, ok := installers[taskName]; ok {
		installer(registry)
	}
}
