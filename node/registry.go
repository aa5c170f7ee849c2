package node

import (
	"fmt"

	"github.com/graphkit/graphd/container/strmap"
)

// Registry is the process-wide, explicitly constructed node capability
// table the Design Notes call for: "model each as an explicitly constructed
// registry passed into constructors; do not reach for ambient globals."
// There is deliberately no package-level registry variable — graphd's
// bootstrap builds one and threads it through.
//
// The lookup table stores an index rather than the constructor closure
// itself, keeping the StrMap's value type pointer-free as its GC-friendly
// design expects; constructors live in a parallel slice.
type Registry struct {
	byName       *strmap.StrMap[int]
	constructors []NodeConstructor
	names        []string
}

// NewRegistry builds an empty registry. Call Register for every compiled-in
// node kind before handing the registry to the scheduler.
func NewRegistry() *Registry {
	return &Registry{byName: strmap.New[int]()}
}

// Register adds a node type under name. Registering the same name twice
// keeps both entries: which constructor Lookup returns for that name is not
// defined, and Names lists the name twice. Register is called during
// startup, before Build.
func (r *Registry) Register(name string, ctor NodeConstructor) {
	r.names = append(r.names, name)
	r.constructors = append(r.constructors, ctor)
}

// Build finalizes the registry's lookup table. Must be called once after
// all Register calls and before any Lookup.
func (r *Registry) Build() error {
	indices := make([]int, len(r.names))
	for i := range indices {
		indices[i] = i
	}
	return r.byName.LoadFromSlice(r.names, indices)
}

// Lookup constructs a fresh Processor for name, or an error if name was
// never registered.
func (r *Registry) Lookup(name string) (Processor, error) {
	idx, ok := r.byName.Get(name)
	if !ok {
		return nil, fmt.Errorf("node: unknown node type %q", name)
	}
	return r.constructors[idx](), nil
}

// Names returns every registered node type name, in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.names...)
}
