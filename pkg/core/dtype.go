package core

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// DType is the element type of a state variable or static array.
type DType string

// Supported element types.
const (
	Float32 DType = "float32"
	Float64 DType = "float64"
	Int8    DType = "int8"
	Int16   DType = "int16"
	Int32   DType = "int32"
	Int64   DType = "int64"
	Uint8   DType = "uint8"
	Uint16  DType = "uint16"
	Uint32  DType = "uint32"
	Uint64  DType = "uint64"
	Bool    DType = "bool"
)

var cTypes = map[DType]string{
	Float32: "float",
	Float64: "double",
	Int8:    "int8_t",
	Int16:   "int16_t",
	Int32:   "int32_t",
	Int64:   "int64_t",
	Uint8:   "uint8_t",
	Uint16:  "uint16_t",
	Uint32:  "uint32_t",
	Uint64:  "uint64_t",
	Bool:    "bool",
}

var byteSizes = map[DType]int{
	Float32: 4,
	Float64: 8,
	Int8:    1,
	Int16:   2,
	Int32:   4,
	Int64:   8,
	Uint8:   1,
	Uint16:  2,
	Uint32:  4,
	Uint64:  8,
	Bool:    1,
}

// ParseDType parses a dtype name such as "float64" or "int32".
func ParseDType(s string) (DType, error) {
	d := DType(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := cTypes[d]; !ok {
		return "", fmt.Errorf("unsupported dtype %q", s)
	}
	return d, nil
}

// CType returns the C type used for d in generated code.
// Unknown types map to "double".
func (d DType) CType() string {
	if c, ok := cTypes[d]; ok {
		return c
	}
	return "double"
}

// Size returns the size in bytes of one element.
func (d DType) Size() int {
	if n, ok := byteSizes[d]; ok {
		return n
	}
	return 8
}

// IsFloat reports whether d is a floating point type.
func (d DType) IsFloat() bool {
	return d == Float32 || d == Float64
}

// Cast converts v to the value it takes when stored as d: floats are
// rounded to the type's precision, integers truncate toward zero and
// booleans become 0 or 1.
func (d DType) Cast(v float64) float64 {
	switch d {
	case Float32:
		return float64(float32(v))
	case Int8:
		return float64(int8(v))
	case Int16:
		return float64(int16(v))
	case Int32:
		return float64(int32(v))
	case Int64:
		return float64(int64(v))
	case Uint8:
		return float64(uint8(v))
	case Uint16:
		return float64(uint16(v))
	case Uint32:
		return float64(uint32(v))
	case Uint64:
		return float64(uint64(v))
	case Bool:
		if v != 0 {
			return 1
		}
		return 0
	default:
		return v
	}
}

// FormatLiteral renders v as a source literal of type d.
// Floating point values always carry a decimal point or an exponent so that
// generated C code never falls back to integer arithmetic.
func FormatLiteral(v float64, d DType) string {
	switch {
	case d == Bool:
		if v != 0 {
			return "true"
		}
		return "false"
	case !d.IsFloat():
		return strconv.FormatInt(int64(v), 10)
	default:
		return FormatFloat(v)
	}
}

// FormatFloat renders v in shortest round-trip form with a guaranteed
// decimal point or exponent ("1.0", "1000000.0", "0.0001", "1e-05",
// "1e+16"). Positional notation is used for magnitudes in [1e-4, 1e16).
func FormatFloat(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	format := byte('f')
	if abs := math.Abs(v); abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		format = 'e'
	}
	s := strconv.FormatFloat(v, format, -1, 64)
	if format == 'f' && !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
