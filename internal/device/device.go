// Package device provides the per-build context that collects arrays, static
// data, code objects and deferred actions for one network, and emits them as a
// GeNN project.
//
// A Device is single-use: create one with New for every build. Discarding it
// and creating a new one is the only way to reset state.
package device

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/b2genn/internal/assembler"
	"github.com/leapstack-labs/b2genn/internal/mainqueue"
	"github.com/leapstack-labs/b2genn/internal/registry"
	"github.com/leapstack-labs/b2genn/internal/staticdata"
	"github.com/leapstack-labs/b2genn/internal/writer"
	"github.com/leapstack-labs/b2genn/pkg/core"
)

// ErrSingleRunOnly is returned when a second run is requested.
var ErrSingleRunOnly = errors.New("only a single run statement is supported")

// Code object classes accepted by CodeObjectClass.
const (
	ClassModel = "model"
	ClassUser  = "user"
)

// Config holds device configuration.
type Config struct {
	// Toolchain names the external build commands (defaults apply to empty fields).
	Toolchain Toolchain
	// Commands runs external commands (optional, uses os/exec if nil).
	Commands CommandRunner
	// Recorder receives every artifact write (optional).
	Recorder writer.Recorder
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// Device is the build context of one network.
type Device struct {
	logger    *slog.Logger
	recorder  writer.Recorder
	toolchain Toolchain
	commands  CommandRunner

	arrays *registry.ArrayRegistry
	static *staticdata.Store
	queue  *mainqueue.Queue

	codeObjects     []*core.CodeObject
	codeObjectIndex map[string]int
	clocks          []core.Clock
	networks        []*core.Network

	runDuration *float64
	projectDir  string
	hasBeenRun  bool
}

// New creates an empty device.
func New(cfg Config) *Device {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	commands := cfg.Commands
	if commands == nil {
		commands = ExecRunner{}
	}
	return &Device{
		logger:          logger,
		recorder:        cfg.Recorder,
		toolchain:       cfg.Toolchain.withDefaults(),
		commands:        commands,
		arrays:          registry.NewArrayRegistry(),
		static:          staticdata.NewStore(),
		queue:           mainqueue.New(logger),
		codeObjectIndex: make(map[string]int),
	}
}

// Arrays returns the array registry.
func (d *Device) Arrays() *registry.ArrayRegistry {
	return d.arrays
}

// StaticArrays returns the static data store.
func (d *Device) StaticArrays() *staticdata.Store {
	return d.static
}

// Queue returns the action queue.
func (d *Device) Queue() *mainqueue.Queue {
	return d.queue
}

// AddArray registers the backing store of v and returns its generated name.
func (d *Device) AddArray(v core.Variable) (string, error) {
	name, err := d.arrays.Register(v)
	if err != nil {
		return "", fmt.Errorf("failed to add array: %w", err)
	}
	d.logger.Debug("added array", "owner", v.Info().Owner, "variable", v.Info().Name, "name", name)
	return name, nil
}

// InitWithZeros zero-fills v at startup.
func (d *Device) InitWithZeros(v core.Variable) error {
	if _, err := d.arrays.Resolve(v, false); err != nil {
		return err
	}
	d.arrays.InitWithZeros(v)
	return nil
}

// InitWithArange fills v with start, start+1, ... at startup.
func (d *Device) InitWithArange(v core.Variable, start int) error {
	if _, err := d.arrays.Resolve(v, false); err != nil {
		return err
	}
	d.arrays.InitWithArange(v, start)
	return nil
}

// InitWithArray loads explicit initial values into v at startup. The values
// are stored under the array's own name, converted to v's dtype.
func (d *Device) InitWithArray(v core.Variable, arr core.Array) error {
	name, err := d.arrays.Resolve(v, false)
	if err != nil {
		return err
	}
	if arr.Len() == 0 {
		return fmt.Errorf("initial values for %s must not be empty", name)
	}
	d.static.Set(name, arr.As(v.Info().DType))
	return nil
}

// FillWithArray copies arr into v from the generated main function. A single
// value is repeated to the size of v.
func (d *Device) FillWithArray(v core.Variable, arr core.Array) error {
	name, err := d.arrays.Resolve(v, false)
	if err != nil {
		return err
	}
	if arr.Len() == 1 {
		arr = repeat(arr, variableSize(v))
	}
	staticName, err := d.static.Store(name, arr.As(v.Info().DType))
	if err != nil {
		return err
	}
	return d.queue.Append(core.SetByArray{Array: name, StaticArray: staticName})
}

// SetArrayByArray scatters values into v at indices from the generated main
// function. A single value is repeated for every index.
func (d *Device) SetArrayByArray(v core.Variable, indices, values core.Array) error {
	name, err := d.arrays.Resolve(v, false)
	if err != nil {
		return err
	}
	if values.Len() == 1 {
		values = repeat(values, indices.Len())
	}
	if indices.Len() != values.Len() {
		return fmt.Errorf("%s: %d indices but %d values", name, indices.Len(), values.Len())
	}
	indexName, err := d.static.Store(name+"_indices", indices.As(core.Int32))
	if err != nil {
		return err
	}
	valueName, err := d.static.Store(name+"_values", values.As(v.Info().DType))
	if err != nil {
		return err
	}
	return d.queue.Append(core.SetArrayByArray{Array: name, Indices: indexName, Values: valueName})
}

// CodeObjectClass resolves an explicitly requested code object class.
// An empty class selects user code.
func CodeObjectClass(class string) (core.CodeKind, error) {
	switch class {
	case "", ClassUser:
		return core.CodeKindUser, nil
	case ClassModel:
		return core.CodeKindModel, nil
	default:
		return 0, fmt.Errorf("cannot specify code object class %q for the genn device", class)
	}
}

// RegisterCodeObject adds a code object. Its kind is derived from the
// template: state update, threshold, reset and synapse templates are model
// fragments, everything else is user code. Re-registering a name replaces
// the earlier object in place.
func (d *Device) RegisterCodeObject(co *core.CodeObject) error {
	if co == nil || co.Name == "" {
		return &core.ConstructionError{Op: "code_object", Message: "code object needs a name"}
	}
	co.Kind = core.KindForTemplate(co.Template)
	if co.Kind == core.CodeKindUser && co.Source == nil {
		return &core.ConstructionError{
			Op:      "code_object",
			Message: fmt.Sprintf("user code object %s has no source", co.Name),
		}
	}
	if i, ok := d.codeObjectIndex[co.Name]; ok {
		d.codeObjects[i] = co
	} else {
		d.codeObjectIndex[co.Name] = len(d.codeObjects)
		d.codeObjects = append(d.codeObjects, co)
	}
	d.logger.Debug("registered code object", "name", co.Name, "template", co.Template, "kind", co.Kind)
	return nil
}

// CodeObjects returns the registered code objects in registration order.
func (d *Device) CodeObjects() []*core.CodeObject {
	return append([]*core.CodeObject(nil), d.codeObjects...)
}

// CodeObject returns a registered code object by name.
func (d *Device) CodeObject(name string) (*core.CodeObject, bool) {
	i, ok := d.codeObjectIndex[name]
	if !ok {
		return nil, false
	}
	return d.codeObjects[i], true
}

// AddClock records a clock. Clocks are unique by name.
func (d *Device) AddClock(c core.Clock) {
	for i, existing := range d.clocks {
		if existing.Name == c.Name {
			d.clocks[i] = c
			return
		}
	}
	d.clocks = append(d.clocks, c)
}

// AddNetwork records a network.
func (d *Device) AddNetwork(net *core.Network) error {
	if net == nil || net.Name == "" {
		return &core.ModelError{Subject: "network", Message: "network needs a name"}
	}
	for _, existing := range d.networks {
		if existing == net {
			return nil
		}
	}
	d.networks = append(d.networks, net)
	return nil
}

// Networks returns the recorded networks.
func (d *Device) Networks() []*core.Network {
	return append([]*core.Network(nil), d.networks...)
}

// InsertCode appends a verbatim statement to the generated main function.
func (d *Device) InsertCode(code string) error {
	return d.queue.Append(core.InsertCode{Code: code})
}

// StartRunFunc opens a named procedure.
func (d *Device) StartRunFunc(name string, includeInParent bool) error {
	return d.queue.Append(core.StartRunFunc{Name: name, IncludeInParent: includeInParent})
}

// EndRunFunc closes the named procedure.
func (d *Device) EndRunFunc(name string) error {
	return d.queue.Append(core.EndRunFunc{Name: name})
}

// RunCodeObject calls a code object from the generated main function.
func (d *Device) RunCodeObject(name string) error {
	return d.queue.Append(core.RunCodeObject{CodeObject: name})
}

// RunNetwork splices network code into the generated main function.
func (d *Device) RunNetwork(network string, lines []string) error {
	return d.queue.Append(core.RunNetwork{Network: network, Lines: lines})
}

// NetworkRun records the simulated duration in seconds. Only one run is
// supported; a second request returns ErrSingleRunOnly.
func (d *Device) NetworkRun(net *core.Network, duration float64) error {
	if d.runDuration != nil {
		return ErrSingleRunOnly
	}
	if duration < 0 {
		return fmt.Errorf("duration must not be negative, got %s", core.FormatFloat(duration))
	}
	if net != nil {
		if err := d.AddNetwork(net); err != nil {
			return err
		}
	}
	d.runDuration = &duration
	return nil
}

// RunDuration returns the recorded run duration.
func (d *Device) RunDuration() (float64, bool) {
	if d.runDuration == nil {
		return 0, false
	}
	return *d.runDuration, true
}

// Assemble builds the model descriptors without emitting anything.
func (d *Device) Assemble() (*assembler.Result, error) {
	return assembler.New(d.logger).Assemble(d.networks)
}

func variableSize(v core.Variable) int {
	switch x := v.(type) {
	case *core.ArrayVariable:
		return x.Size
	case *core.DynamicArrayVariable:
		return x.Len()
	}
	return 1
}

func repeat(arr core.Array, n int) core.Array {
	values := make([]float64, n)
	for i := range values {
		values[i] = arr.Values[0]
	}
	return core.Array{DType: arr.DType, Values: values}
}
