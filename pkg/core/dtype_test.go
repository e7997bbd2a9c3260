package core_test

import (
	"math"
	"testing"

	"github.com/leapstack-labs/b2genn/pkg/core"
	"github.com/stretchr/testify/assert"
)

func TestFormatFloat(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{1, "1.0"},
		{0, "0.0"},
		{-0.07, "-0.07"},
		{0.0001, "0.0001"},
		{0.00001, "1e-05"},
		{1000000, "1000000.0"},
		{1234567, "1234567.0"},
		{1e15, "1000000000000000.0"},
		{1e16, "1e+16"},
		{-2.5e20, "-2.5e+20"},
		{math.Inf(1), "+Inf"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, core.FormatFloat(tt.in))
		})
	}
}

func TestFormatLiteral(t *testing.T) {
	assert.Equal(t, "true", core.FormatLiteral(2, core.Bool))
	assert.Equal(t, "false", core.FormatLiteral(0, core.Bool))
	assert.Equal(t, "-3", core.FormatLiteral(-3.9, core.Int32))
	assert.Equal(t, "0.5", core.FormatLiteral(0.5, core.Float32))
}

func TestArrayAs(t *testing.T) {
	tests := []struct {
		name  string
		dtype core.DType
		in    []float64
		want  []float64
	}{
		{"int32 truncates", core.Int32, []float64{1.7, -2.5}, []float64{1, -2}},
		{"uint8 truncates", core.Uint8, []float64{255, 3.9}, []float64{255, 3}},
		{"bool", core.Bool, []float64{0, 0.1, -4}, []float64{0, 1, 1}},
		{"float32 rounds", core.Float32, []float64{0.1}, []float64{float64(float32(0.1))}},
		{"float64 keeps", core.Float64, []float64{0.1, 1.7}, []float64{0.1, 1.7}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := core.Array{DType: core.Float64, Values: tt.in}
			got := src.As(tt.dtype)
			assert.Equal(t, tt.dtype, got.DType)
			assert.Equal(t, tt.want, got.Values)
			got.Values[0] = 99
			assert.NotEqual(t, 99.0, src.Values[0], "As must copy")
		})
	}
}

func TestUnsupportedVariableError_Nil(t *testing.T) {
	err := &core.UnsupportedVariableError{}
	assert.Equal(t, "do not have a name for a nil variable", err.Error())
}
