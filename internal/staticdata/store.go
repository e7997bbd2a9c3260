// Package staticdata holds numeric payloads known at generation time and
// persists them as raw binary files for the generated program to load.
package staticdata

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"path"
	"sort"

	"github.com/leapstack-labs/b2genn/internal/writer"
	"github.com/leapstack-labs/b2genn/pkg/core"
)

// Prefix is prepended to every name handed out by Store.
const Prefix = "_static_array_"

// Store maps generated names to immutable buffers.
type Store struct {
	arrays map[string]core.Array
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{arrays: make(map[string]core.Array)}
}

// Store saves a copy of arr, cast to its dtype, under a unique name derived from baseName and
// returns that name. If the name is taken, "_1", "_2", ... is appended.
func (s *Store) Store(baseName string, arr core.Array) (string, error) {
	if arr.Len() == 0 {
		return "", fmt.Errorf("static array %q must not be empty", baseName)
	}
	base := Prefix + baseName
	name := base
	for i := 1; s.has(name); i++ {
		name = fmt.Sprintf("%s_%d", base, i)
	}
	s.arrays[name] = arr.As(arr.DType)
	return name, nil
}

// Set binds a copy of arr, cast to its dtype, to name, replacing any previous payload. It is
// used for arrays initialised from explicit values, which are loaded under
// the array's own name.
func (s *Store) Set(name string, arr core.Array) {
	s.arrays[name] = arr.As(arr.DType)
}

// Lookup returns the payload stored under name.
func (s *Store) Lookup(name string) (core.Array, bool) {
	arr, ok := s.arrays[name]
	if !ok {
		return core.Array{}, false
	}
	return arr.Clone(), true
}

// Names returns all stored names in sorted order.
func (s *Store) Names() []string {
	names := make([]string, 0, len(s.arrays))
	for name := range s.arrays {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of stored payloads.
func (s *Store) Len() int {
	return len(s.arrays)
}

func (s *Store) has(name string) bool {
	_, ok := s.arrays[name]
	return ok
}

// Specs returns the manifest of stored arrays sorted by name.
func (s *Store) Specs() []core.StaticArraySpec {
	names := s.Names()
	specs := make([]core.StaticArraySpec, 0, len(names))
	for _, name := range names {
		arr := s.arrays[name]
		specs = append(specs, core.StaticArraySpec{
			Name:  name,
			CType: arr.DType.CType(),
			Size:  arr.Len(),
		})
	}
	return specs
}

// Flush writes every payload to dir/<name> through w and returns the
// manifest. dir is relative to the writer's project directory. Payloads
// whose bytes are unchanged on disk are not rewritten.
func (s *Store) Flush(w *writer.Writer, dir string) ([]core.StaticArraySpec, error) {
	for _, name := range s.Names() {
		data, err := Encode(s.arrays[name])
		if err != nil {
			return nil, fmt.Errorf("failed to encode static array %s: %w", name, err)
		}
		if _, err := w.WriteUntracked(path.Join(dir, name), string(data)); err != nil {
			return nil, fmt.Errorf("failed to write static array %s: %w", name, err)
		}
	}
	return s.Specs(), nil
}

// Encode serialises arr as packed little-endian values of its dtype.
func Encode(arr core.Array) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(arr.Len() * arr.DType.Size())
	for _, v := range arr.Values {
		var err error
		switch arr.DType {
		case core.Float32:
			err = binary.Write(&buf, binary.LittleEndian, float32(v))
		case core.Float64:
			err = binary.Write(&buf, binary.LittleEndian, v)
		case core.Int8:
			err = binary.Write(&buf, binary.LittleEndian, int8(v))
		case core.Int16:
			err = binary.Write(&buf, binary.LittleEndian, int16(v))
		case core.Int32:
			err = binary.Write(&buf, binary.LittleEndian, int32(v))
		case core.Int64:
			err = binary.Write(&buf, binary.LittleEndian, int64(v))
		case core.Uint8:
			err = binary.Write(&buf, binary.LittleEndian, uint8(v))
		case core.Uint16:
			err = binary.Write(&buf, binary.LittleEndian, uint16(v))
		case core.Uint32:
			err = binary.Write(&buf, binary.LittleEndian, uint32(v))
		case core.Uint64:
			err = binary.Write(&buf, binary.LittleEndian, uint64(v))
		case core.Bool:
			var b uint8
			if v != 0 {
				b = 1
			}
			err = buf.WriteByte(b)
		default:
			return nil, fmt.Errorf("unsupported dtype %q", arr.DType)
		}
		if err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// Decode is the inverse of Encode.
func Decode(data []byte, dtype core.DType) (core.Array, error) {
	size := dtype.Size()
	if len(data)%size != 0 {
		return core.Array{}, fmt.Errorf("data length %d is not a multiple of %s size %d", len(data), dtype, size)
	}
	out := core.Array{DType: dtype, Values: make([]float64, 0, len(data)/size)}
	le := binary.LittleEndian
	for off := 0; off < len(data); off += size {
		b := data[off : off+size]
		var v float64
		switch dtype {
		case core.Float32:
			v = float64(math.Float32frombits(le.Uint32(b)))
		case core.Float64:
			v = math.Float64frombits(le.Uint64(b))
		case core.Int8:
			v = float64(int8(b[0]))
		case core.Int16:
			v = float64(int16(le.Uint16(b)))
		case core.Int32:
			v = float64(int32(le.Uint32(b)))
		case core.Int64:
			v = float64(int64(le.Uint64(b)))
		case core.Uint8, core.Bool:
			v = float64(b[0])
		case core.Uint16:
			v = float64(le.Uint16(b))
		case core.Uint32:
			v = float64(le.Uint32(b))
		case core.Uint64:
			v = float64(le.Uint64(b))
		default:
			return core.Array{}, fmt.Errorf("unsupported dtype %q", dtype)
		}
		out.Values = append(out.Values, v)
	}
	return out, nil
}
