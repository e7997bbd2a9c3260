// Package registry provides array registration and generated name resolution.
// It maps every state variable with a backing store to a globally unique
// identifier used throughout the generated project.
package registry

import (
	"fmt"
	"sync"

	"github.com/leapstack-labs/b2genn/pkg/core"
)

const (
	arrayPrefix        = "_array_"
	dynamicArrayPrefix = "_dynamic_array_"
)

// Entry pairs a variable with its generated name.
type Entry struct {
	Var  core.Variable
	Name string
}

// namespace is an insertion-ordered name table.
type namespace struct {
	byVar   map[core.Variable]string
	taken   map[string]struct{}
	ordered []Entry
}

func newNamespace() *namespace {
	return &namespace{
		byVar: make(map[core.Variable]string),
		taken: make(map[string]struct{}),
	}
}

func (ns *namespace) has(name string) bool {
	_, ok := ns.taken[name]
	return ok
}

func (ns *namespace) set(v core.Variable, name string) {
	ns.byVar[v] = name
	ns.taken[name] = struct{}{}
	ns.ordered = append(ns.ordered, Entry{Var: v, Name: name})
}

func (ns *namespace) entries() []Entry {
	out := make([]Entry, len(ns.ordered))
	copy(out, ns.ordered)
	return out
}

// ArangeEntry records an array initialised with start, start+1, ...
type ArangeEntry struct {
	Var   core.Variable
	Name  string
	Start int
}

// ArrayRegistry maps variables to generated names across three namespaces.
type ArrayRegistry struct {
	mu sync.RWMutex

	// arrays holds every array-backed variable, including the data pointer
	// name of dynamic arrays: var → "_array_v_neurongroup"
	arrays *namespace

	// dynamic1D and dynamic2D hold the container names of dynamic arrays:
	// var → "_dynamic_array_i_synapses"
	dynamic1D *namespace
	dynamic2D *namespace

	zeroArrays   []core.Variable
	arangeArrays []ArangeEntry
}

// NewArrayRegistry creates a new empty registry.
func NewArrayRegistry() *ArrayRegistry {
	return &ArrayRegistry{
		arrays:    newNamespace(),
		dynamic1D: newNamespace(),
		dynamic2D: newNamespace(),
	}
}

// Register assigns a unique name to v and returns it. Registering the same
// variable again returns the name it already has.
func (r *ArrayRegistry) Register(v core.Variable) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if name, ok := r.arrays.byVar[v]; ok {
		return name, nil
	}

	switch x := v.(type) {
	case *core.DynamicArrayVariable:
		dyn, err := r.dynamicNamespace(x)
		if err != nil {
			return "", err
		}
		// The data pointer and the container must carry the same suffix so
		// the pair stays recognisable in generated code.
		base := x.Name + "_" + x.Owner
		dynamicName := dynamicArrayPrefix + base
		arrayName := arrayPrefix + base
		for suffix := 1; dyn.has(dynamicName) || r.arrays.has(arrayName); suffix++ {
			dynamicName = fmt.Sprintf("%s%s_%d", dynamicArrayPrefix, base, suffix)
			arrayName = fmt.Sprintf("%s%s_%d", arrayPrefix, base, suffix)
		}
		dyn.set(v, dynamicName)
		r.arrays.set(v, arrayName)
		return arrayName, nil

	case *core.ArrayVariable:
		base := arrayPrefix + x.Name + "_" + x.Owner
		name := base
		for suffix := 1; r.arrays.has(name); suffix++ {
			name = fmt.Sprintf("%s_%d", base, suffix)
		}
		r.arrays.set(v, name)
		return name, nil

	default:
		return "", &core.UnsupportedVariableError{Variable: v}
	}
}

func (r *ArrayRegistry) dynamicNamespace(v *core.DynamicArrayVariable) (*namespace, error) {
	switch v.Dimensions {
	case 1:
		return r.dynamic1D, nil
	case 2:
		return r.dynamic2D, nil
	default:
		return nil, &core.DimensionError{Owner: v.Owner, Name: v.Name, Dimensions: v.Dimensions}
	}
}

// Resolve returns the generated name of a registered variable.
// For dynamic arrays, accessData selects the name of the underlying data
// pointer (true) or of the resizable container (false).
func (r *ArrayRegistry) Resolve(v core.Variable, accessData bool) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var ns *namespace
	switch x := v.(type) {
	case *core.DynamicArrayVariable:
		if accessData {
			ns = r.arrays
			break
		}
		dyn, err := r.dynamicNamespace(x)
		if err != nil {
			return "", err
		}
		ns = dyn
	case *core.ArrayVariable:
		ns = r.arrays
	default:
		return "", &core.UnsupportedVariableError{Variable: v}
	}

	name, ok := ns.byVar[v]
	if !ok {
		info := v.Info()
		return "", fmt.Errorf("variable %s.%s has not been registered", info.Owner, info.Name)
	}
	return name, nil
}

// IsRegistered reports whether v already has a name.
func (r *ArrayRegistry) IsRegistered(v core.Variable) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.arrays.byVar[v]
	return ok
}

// InitWithZeros marks v to be zero-filled at startup.
func (r *ArrayRegistry) InitWithZeros(v core.Variable) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.zeroArrays = append(r.zeroArrays, v)
}

// InitWithArange marks v to be filled with start, start+1, ... at startup.
func (r *ArrayRegistry) InitWithArange(v core.Variable, start int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, e := range r.arangeArrays {
		if e.Var == v {
			r.arangeArrays[i].Start = start
			return
		}
	}
	r.arangeArrays = append(r.arangeArrays, ArangeEntry{Var: v, Start: start})
}

// ArangeStart returns the arange start of v, if v is arange-initialised.
func (r *ArrayRegistry) ArangeStart(v core.Variable) (int, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.arangeArrays {
		if e.Var == v {
			return e.Start, true
		}
	}
	return 0, false
}

// Arrays returns all scalar-namespace entries in registration order.
func (r *ArrayRegistry) Arrays() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.arrays.entries()
}

// DynamicArrays returns all 1-D dynamic array entries in registration order.
func (r *ArrayRegistry) DynamicArrays() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.dynamic1D.entries()
}

// DynamicArrays2D returns all 2-D dynamic array entries in registration order.
func (r *ArrayRegistry) DynamicArrays2D() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.dynamic2D.entries()
}

// ZeroArrays returns the names of zero-initialised arrays.
func (r *ArrayRegistry) ZeroArrays() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.namedLocked(r.zeroArrays)
}

// ArangeArrays returns arange-initialised arrays with their generated names.
func (r *ArrayRegistry) ArangeArrays() []ArangeEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ArangeEntry, 0, len(r.arangeArrays))
	for _, e := range r.arangeArrays {
		e.Name = r.arrays.byVar[e.Var]
		out = append(out, e)
	}
	return out
}

func (r *ArrayRegistry) namedLocked(vars []core.Variable) []Entry {
	out := make([]Entry, 0, len(vars))
	for _, v := range vars {
		if name, ok := r.arrays.byVar[v]; ok {
			out = append(out, Entry{Var: v, Name: name})
		}
	}
	return out
}

// Count returns the number of registered variables.
func (r *ArrayRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.arrays.ordered)
}
