package evaluator

import "math/rand"

// Registry is the closed set of names callable from expressions. It is
// pluggable: task modules install additional packs before evaluation,
// and it is read-only once a simulation starts stepping.
type Registry struct {
	names map[string]Object
	rng   *rand.Rand
}

// NewRegistry builds the seed registry with a deterministic RNG. The
// same seed, state and registry always evaluate to the same results.
func NewRegistry(seed int64) *Registry {
	rng := rand.New(rand.NewSource(seed))
	r := &Registry{names: make(map[string]Object), rng: rng}
	r.Install(MathBuiltins())
	r.Install(StdBuiltins())
	r.Install(StringBuiltins())
	r.Install(RandomBuiltins(rng))
	r.Install(StatsBuiltins())
	return r
}

// Install merges a pack of named values into the registry.
func (r *Registry) Install(pack map[string]Object) {
	for name, obj := range pack {
		r.names[name] = obj
	}
}

// Register adds a single entry.
func (r *Registry) Register(name string, obj Object) {
	r.names[name] = obj
}

func (r *Registry) Lookup(name string) (Object, bool) {
	obj, ok := r.names[name]
	return obj, ok
}

// StringMethod resolves a method name usable via attribute access on a
// string value, e.g. `s.lower()`.
func (r *Registry) StringMethod(name string) (*Builtin, bool) {
	if !stringMethodNames[name] {
		return nil, false
	}
	obj, ok := r.names[name]
	if !ok {
		return nil, false
	}
	b, ok := obj.(*Builtin)
	return b, ok
}

// Rand exposes the seeded RNG for task packs that need randomness.
func (r *Registry) Rand() *rand.Rand { return r.rng }
