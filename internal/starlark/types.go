// Package starlark runs setup scripts that add deferred actions to a device.
package starlark

import (
	"fmt"

	"github.com/leapstack-labs/b2genn/internal/network"
	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
)

// GroupInfo describes one group of the prepared network.
type GroupInfo struct {
	Name string
	N    int
}

// NetworkInfo is exposed as the "network" global.
// Accessible as: network.name, network.groups["exc"].n
type NetworkInfo struct {
	Name   string
	Groups []GroupInfo
}

// NetworkInfoFromModel extracts the read-only view of a prepared model.
func NetworkInfoFromModel(m *network.Model) *NetworkInfo {
	if m == nil {
		return nil
	}
	info := &NetworkInfo{Name: m.Network.Name}
	for _, name := range m.Groups() {
		n, _ := m.GroupSize(name)
		info.Groups = append(info.Groups, GroupInfo{Name: name, N: n})
	}
	return info
}

// ToStarlark converts NetworkInfo to a Starlark struct value.
func (n *NetworkInfo) ToStarlark() starlark.Value {
	groups := starlark.NewDict(len(n.Groups))
	for _, g := range n.Groups {
		_ = groups.SetKey(starlark.String(g.Name), starlarkstruct.FromStringDict(starlark.String("group"), starlark.StringDict{
			"name": starlark.String(g.Name),
			"n":    starlark.MakeInt(g.N),
		}))
	}
	groups.Freeze()
	return starlarkstruct.FromStringDict(starlark.String("network"), starlark.StringDict{
		"name":   starlark.String(n.Name),
		"groups": groups,
	})
}

// ToFloats converts a number or a sequence of numbers to a slice.
func ToFloats(v starlark.Value) ([]float64, error) {
	if f, ok := starlark.AsFloat(v); ok {
		return []float64{f}, nil
	}

	iterable, ok := v.(starlark.Iterable)
	if !ok {
		return nil, fmt.Errorf("expected a number or a sequence of numbers, got %s", v.Type())
	}
	iter := iterable.Iterate()
	defer iter.Done()

	var out []float64
	var item starlark.Value
	for i := 0; iter.Next(&item); i++ {
		f, ok := starlark.AsFloat(item)
		if !ok {
			return nil, fmt.Errorf("index %d: expected a number, got %s", i, item.Type())
		}
		out = append(out, f)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("expected at least one value")
	}
	return out, nil
}
