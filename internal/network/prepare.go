package network

import (
	"fmt"

	"github.com/leapstack-labs/b2genn/internal/device"
	"github.com/leapstack-labs/b2genn/pkg/core"
)

// Clock attributes that can be bound from a code object namespace.
var clockAttributes = map[string]string{
	"t":  "t_",
	"dt": "dt_",
}

// Model is a description turned into core objects.
type Model struct {
	Network     *core.Network
	Clocks      []core.Clock
	CodeObjects []*core.CodeObject
	Duration    *float64

	groups     map[string]int
	groupOrder []string
	vars       map[string]core.Variable
	arrays     []initialised
	clockVars  map[string]*core.AttributeVariable
}

// initialised is an array-backed group variable with its initialiser.
type initialised struct {
	v    core.Variable
	init *InitDesc
}

// Variable returns the variable declared as name in group.
func (m *Model) Variable(group, name string) (core.Variable, bool) {
	v, ok := m.vars[group+"."+name]
	return v, ok
}

// GroupSize returns the N of a neuron group, synapse group or monitor.
func (m *Model) GroupSize(group string) (int, bool) {
	n, ok := m.groups[group]
	return n, ok
}

// Groups returns all group names in declaration order.
func (m *Model) Groups() []string {
	return append([]string(nil), m.groupOrder...)
}

// Build converts a description into core objects without touching a device.
func Build(desc *Description) (*Model, error) {
	m := &Model{
		Duration:  desc.Duration,
		groups:    make(map[string]int),
		vars:      make(map[string]core.Variable),
		clockVars: make(map[string]*core.AttributeVariable),
	}
	net := &core.Network{Name: desc.Name}
	m.Network = net

	for _, c := range desc.Clocks {
		m.Clocks = append(m.Clocks, core.Clock{Name: c.Name, DT: c.DT})
	}

	for _, g := range desc.Neurons {
		ns, err := m.addGroup(g.Name, g.N, g.Variables)
		if err != nil {
			return nil, err
		}
		net.Neurons = append(net.Neurons, &core.NeuronGroup{Name: g.Name, N: g.N, Variables: ns})
	}
	for _, s := range desc.Synapses {
		ns, err := m.addGroup(s.Name, s.N, s.Variables)
		if err != nil {
			return nil, err
		}
		net.Synapses = append(net.Synapses, &core.SynapseGroup{
			Name:      s.Name,
			Source:    s.Source,
			Target:    s.Target,
			N:         s.N,
			Variables: ns,
		})
	}
	for _, g := range desc.Monitors {
		if _, err := m.addGroup(g.Name, g.N, g.Variables); err != nil {
			return nil, err
		}
	}

	byName := make(map[string]*core.CodeObject)
	for _, cd := range desc.CodeObjects {
		co, err := m.codeObject(cd)
		if err != nil {
			return nil, err
		}
		m.CodeObjects = append(m.CodeObjects, co)
		byName[co.Name] = co
	}

	for _, r := range desc.Runners {
		co, ok := byName[r.CodeObject]
		if !ok {
			return nil, &core.ModelError{
				Subject: r.Name,
				Message: fmt.Sprintf("runner references unknown code object %q", r.CodeObject),
			}
		}
		net.Runners = append(net.Runners, &core.Runner{Name: r.Name, CodeObject: co})
	}
	return m, nil
}

func (m *Model) addGroup(name string, n int, vars []VariableDesc) (core.Namespace, error) {
	m.groups[name] = n
	m.groupOrder = append(m.groupOrder, name)

	ns := make(core.Namespace, 0, len(vars))
	for _, vd := range vars {
		v, err := newVariable(name, n, vd)
		if err != nil {
			return nil, err
		}
		m.vars[name+"."+vd.Name] = v
		if core.IsArrayBacked(v) {
			m.arrays = append(m.arrays, initialised{v: v, init: vd.Init})
		}
		ns = append(ns, core.Binding{Name: vd.Name, Var: v})
	}
	return ns, nil
}

func (m *Model) codeObject(cd CodeObjectDesc) (*core.CodeObject, error) {
	co := &core.CodeObject{
		Name:         cd.Name,
		Owner:        cd.Owner,
		Template:     cd.Template,
		Kind:         core.KindForTemplate(cd.Template),
		Fragment:     cd.Fragment,
		MainFinalise: cd.MainFinalise,
	}
	if cd.Class != "" {
		kind, err := device.CodeObjectClass(cd.Class)
		if err != nil {
			return nil, err
		}
		if kind != co.Kind {
			return nil, &core.ConstructionError{
				Op:      "code_object",
				Message: fmt.Sprintf("%s: template %q produces %s code, not %s", cd.Name, cd.Template, co.Kind, kind),
			}
		}
	}
	if cd.CPP != "" || cd.H != "" {
		co.Source = &core.SourcePair{CPP: cd.CPP, H: cd.H}
	}

	for _, b := range cd.Namespace {
		binding, err := m.binding(cd, b)
		if err != nil {
			return nil, err
		}
		co.Variables = append(co.Variables, binding)
	}
	return co, nil
}

func (m *Model) binding(cd CodeObjectDesc, b BindingDesc) (core.Binding, error) {
	switch {
	case b.Ref != "":
		v, err := m.lookup(b.Ref)
		if err != nil {
			return core.Binding{}, &core.ModelError{Subject: cd.Name, Message: err.Error()}
		}
		return core.Binding{Name: b.Name, Var: v}, nil

	case b.Clock != "":
		v, err := m.clockVariable(b.Clock)
		if err != nil {
			return core.Binding{}, &core.ModelError{Subject: cd.Name, Message: err.Error()}
		}
		return core.Binding{Name: b.Name, Var: v}, nil

	case b.Value != nil:
		return core.Binding{Name: b.Name, Var: &core.Constant{
			VarInfo: core.VarInfo{
				Name:     b.Name,
				Owner:    cd.Owner,
				DType:    core.Float64,
				Scalar:   true,
				Constant: true,
				ReadOnly: true,
			},
			Value: *b.Value,
		}}, nil

	case b.Number != nil:
		return core.Binding{Name: b.Name, Num: &core.Number{Value: *b.Number, IsInt: b.Int}}, nil

	default:
		vd := *b.Variable
		if vd.Name == "" {
			vd.Name = b.Name
		}
		n := m.groups[cd.Owner]
		if n == 0 {
			n = 1
		}
		v, err := newVariable(cd.Owner, n, vd)
		if err != nil {
			return core.Binding{}, err
		}
		return core.Binding{Name: b.Name, Var: v}, nil
	}
}

func (m *Model) lookup(ref string) (core.Variable, error) {
	group, name, ok := splitRef(ref)
	if !ok {
		return nil, fmt.Errorf("invalid variable reference %q, expected group.variable", ref)
	}
	v, ok := m.Variable(group, name)
	if !ok {
		return nil, fmt.Errorf("unknown variable reference %q", ref)
	}
	return v, nil
}

// clockVariable returns the shared attribute variable for "clock.t" or
// "clock.dt".
func (m *Model) clockVariable(ref string) (*core.AttributeVariable, error) {
	if v, ok := m.clockVars[ref]; ok {
		return v, nil
	}
	name, attr, ok := splitRef(ref)
	if !ok {
		return nil, fmt.Errorf("invalid clock reference %q, expected clock.t or clock.dt", ref)
	}
	accessor, ok := clockAttributes[attr]
	if !ok {
		return nil, fmt.Errorf("unknown clock attribute %q", attr)
	}
	var clock *core.Clock
	for i := range m.Clocks {
		if m.Clocks[i].Name == name {
			clock = &m.Clocks[i]
		}
	}
	if clock == nil {
		return nil, fmt.Errorf("unknown clock %q", name)
	}

	v := &core.AttributeVariable{
		VarInfo:   core.VarInfo{Name: attr, DType: core.Float64, Scalar: true},
		Object:    clock.Name,
		Attribute: accessor,
	}
	if attr == "dt" {
		v.Value = clock.DT
		v.Constant, v.ReadOnly = true, true
	}
	m.clockVars[ref] = v
	return v, nil
}

func newVariable(owner string, n int, vd VariableDesc) (core.Variable, error) {
	dtype := core.Float64
	if vd.DType != "" {
		parsed, err := core.ParseDType(vd.DType)
		if err != nil {
			return nil, &core.ModelError{Subject: owner + "." + vd.Name, Message: err.Error()}
		}
		dtype = parsed
	}
	info := core.VarInfo{
		Name:     vd.Name,
		Owner:    owner,
		DType:    dtype,
		Scalar:   vd.Scalar,
		Constant: vd.Constant,
		ReadOnly: vd.ReadOnly,
	}

	switch vd.Kind {
	case KindDynamic:
		dims := vd.Dimensions
		if dims == 0 {
			dims = 1
		}
		rows := vd.Rows
		if dims == 1 && rows == 0 {
			rows = n
		}
		return &core.DynamicArrayVariable{VarInfo: info, Dimensions: dims, Rows: rows, Cols: vd.Cols}, nil

	case KindConstant:
		info.Scalar, info.Constant, info.ReadOnly = true, true, true
		return &core.Constant{VarInfo: info, Value: *vd.Value}, nil

	case KindAttribute:
		info.Scalar = true
		return &core.AttributeVariable{VarInfo: info, Object: vd.Object, Attribute: vd.Attribute, Value: *vd.Value}, nil

	default:
		size := vd.Size
		if size == 0 {
			size = n
		}
		if size <= 0 {
			return nil, &core.ModelError{Subject: owner + "." + vd.Name, Message: "array variables need a positive size"}
		}
		return &core.ArrayVariable{VarInfo: info, Size: size, Value: vd.Value}, nil
	}
}

// Prepare builds the description and replays it onto dev: arrays and their
// initialisers, clocks, code objects, actions and finally the run itself.
func Prepare(desc *Description, dev *device.Device) (*Model, error) {
	m, err := Build(desc)
	if err != nil {
		return nil, err
	}

	for _, c := range m.Clocks {
		dev.AddClock(c)
	}
	for _, a := range m.arrays {
		if _, err := dev.AddArray(a.v); err != nil {
			return nil, err
		}
		if err := initialise(dev, a); err != nil {
			return nil, err
		}
	}
	for _, co := range m.CodeObjects {
		if err := dev.RegisterCodeObject(co); err != nil {
			return nil, err
		}
	}
	for i, a := range desc.Actions {
		if err := m.replay(dev, desc.Name, a); err != nil {
			return nil, fmt.Errorf("action %d: %w", i, err)
		}
	}

	if m.Duration != nil {
		if err := dev.NetworkRun(m.Network, *m.Duration); err != nil {
			return nil, err
		}
	} else if err := dev.AddNetwork(m.Network); err != nil {
		return nil, err
	}
	return m, nil
}

func initialise(dev *device.Device, a initialised) error {
	if a.init == nil {
		return nil
	}
	dtype := a.v.Info().DType
	switch {
	case a.init.Zeros:
		return dev.InitWithZeros(a.v)
	case a.init.Arange != nil:
		return dev.InitWithArange(a.v, *a.init.Arange)
	case a.init.Values != nil:
		return dev.InitWithArray(a.v, core.Array{DType: dtype, Values: a.init.Values})
	default:
		return dev.FillWithArray(a.v, core.Array{DType: dtype, Values: a.init.Fill})
	}
}

func (m *Model) replay(dev *device.Device, network string, a ActionDesc) error {
	switch {
	case a.RunCodeObject != "":
		if !m.hasCodeObject(a.RunCodeObject) {
			return &core.ModelError{Subject: a.RunCodeObject, Message: "unknown code object"}
		}
		return dev.RunCodeObject(a.RunCodeObject)

	case a.RunNetwork != nil:
		name := a.RunNetwork.Network
		if name == "" {
			name = network
		}
		return dev.RunNetwork(name, a.RunNetwork.Lines)

	case a.InsertCode != nil:
		return dev.InsertCode(*a.InsertCode)

	case a.StartRunFunc != nil:
		include := true
		if a.StartRunFunc.IncludeInParent != nil {
			include = *a.StartRunFunc.IncludeInParent
		}
		return dev.StartRunFunc(a.StartRunFunc.Name, include)

	case a.EndRunFunc != "":
		return dev.EndRunFunc(a.EndRunFunc)

	case a.SetByArray != nil:
		v, err := m.lookup(a.SetByArray.Variable)
		if err != nil {
			return err
		}
		return dev.FillWithArray(v, core.Array{DType: v.Info().DType, Values: a.SetByArray.Values})

	default:
		s := a.SetArrayByArray
		v, err := m.lookup(s.Variable)
		if err != nil {
			return err
		}
		return dev.SetArrayByArray(v,
			core.Array{DType: core.Int32, Values: s.Indices},
			core.Array{DType: v.Info().DType, Values: s.Values})
	}
}

func (m *Model) hasCodeObject(name string) bool {
	for _, co := range m.CodeObjects {
		if co.Name == name {
			return true
		}
	}
	return false
}
