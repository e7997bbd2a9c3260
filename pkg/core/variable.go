package core

// Variable is a state variable as handed over by the front-end.
// The set of implementations is closed: *ArrayVariable, *DynamicArrayVariable,
// *AttributeVariable and *Constant.
type Variable interface {
	// Info returns the attributes shared by all variable kinds.
	Info() *VarInfo
	isVariable()
}

// VarInfo holds the attributes common to every variable kind.
type VarInfo struct {
	// Name is the variable's local name within its owner (e.g. "v").
	Name string
	// Owner is the name of the owning group (e.g. "neurongroup").
	Owner string
	// DType is the element type.
	DType DType
	// Scalar is true for single-value variables.
	Scalar bool
	// Constant is true when the value does not change during a run.
	Constant bool
	// ReadOnly is true when user code may not assign to the variable.
	ReadOnly bool
}

// ArrayVariable is backed by a fixed-size array.
type ArrayVariable struct {
	VarInfo
	// Size is the number of elements.
	Size int
	// Value is the known current value of a scalar array, if any.
	Value *float64
}

// DynamicArrayVariable is backed by a resizable 1-D or 2-D array.
type DynamicArrayVariable struct {
	VarInfo
	// Dimensions is 1 or 2.
	Dimensions int
	// Rows and Cols describe the current shape. Cols is unused for 1-D arrays.
	Rows int
	Cols int
}

// AttributeVariable has no backing store; it is read through an accessor
// method on another object (e.g. the clock's dt).
type AttributeVariable struct {
	VarInfo
	// Object is the name of the object exposing the attribute.
	Object string
	// Attribute is the accessor name.
	Attribute string
	// Value is the resolved attribute value at build time.
	Value float64
}

// Constant is a named scalar with a literal value.
type Constant struct {
	VarInfo
	Value float64
}

func (v *ArrayVariable) Info() *VarInfo        { return &v.VarInfo }
func (v *DynamicArrayVariable) Info() *VarInfo { return &v.VarInfo }
func (v *AttributeVariable) Info() *VarInfo    { return &v.VarInfo }
func (v *Constant) Info() *VarInfo             { return &v.VarInfo }

func (*ArrayVariable) isVariable()        {}
func (*DynamicArrayVariable) isVariable() {}
func (*AttributeVariable) isVariable()    {}
func (*Constant) isVariable()             {}

// Len returns the total number of elements of a dynamic array.
func (v *DynamicArrayVariable) Len() int {
	if v.Dimensions == 2 {
		return v.Rows * v.Cols
	}
	return v.Rows
}

// KnownValue returns the build-time value of a scalar variable, if one is known.
func KnownValue(v Variable) (float64, bool) {
	switch x := v.(type) {
	case *Constant:
		return x.Value, true
	case *AttributeVariable:
		return x.Value, true
	case *ArrayVariable:
		if x.Value != nil {
			return *x.Value, true
		}
	}
	return 0, false
}

// IsArrayBacked reports whether v has a backing array (plain or dynamic).
func IsArrayBacked(v Variable) bool {
	switch v.(type) {
	case *ArrayVariable, *DynamicArrayVariable:
		return true
	}
	return false
}

// Number is a bare numeric namespace entry, typically provided for functions.
type Number struct {
	Value float64
	// IsInt selects integer formatting.
	IsInt bool
}

// Literal renders the number as source text.
func (n Number) Literal() string {
	if n.IsInt {
		return FormatLiteral(n.Value, Int64)
	}
	return FormatFloat(n.Value)
}

// Binding is one entry of a code object's namespace: a short identifier bound
// either to a Variable or to a Number. Exactly one of Var and Num is set.
type Binding struct {
	Name string
	Var  Variable
	Num  *Number
}

// Namespace is an ordered list of bindings.
type Namespace []Binding

// Lookup returns the binding for name.
func (ns Namespace) Lookup(name string) (Binding, bool) {
	for _, b := range ns {
		if b.Name == name {
			return b, true
		}
	}
	return Binding{}, false
}
