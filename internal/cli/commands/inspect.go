package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/leapstack-labs/b2genn/internal/assembler"
	"github.com/leapstack-labs/b2genn/internal/cli/output"
	"github.com/leapstack-labs/b2genn/internal/device"
	"github.com/leapstack-labs/b2genn/internal/registry"
	"github.com/leapstack-labs/b2genn/pkg/core"
	"github.com/spf13/cobra"
)

// InspectOptions holds options for the inspect command.
type InspectOptions struct {
	Results bool
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand() *cobra.Command {
	opts := &InspectOptions{}

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Show what a build would generate",
		Long: `Prepare the network without writing anything and show the registered
arrays, static arrays, group dependencies, queued actions and the assembled
GeNN models.

With --results, the values of every array are read back from the results
directory of a project that has been run.`,
		Example: `  b2genn inspect --network net.yaml
  b2genn inspect --network net.yaml -o json
  b2genn inspect --results`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInspect(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Results, "results", false, "Read array values from the results of the last run")
	return cmd
}

// ArrayInfo describes one registered array.
type ArrayInfo struct {
	Name     string `json:"name"`
	Owner    string `json:"owner"`
	Variable string `json:"variable"`
	DType    string `json:"dtype"`
	Size     string `json:"size"`
	Init     string `json:"init,omitempty"`
}

// StaticArrayInfo describes one static array.
type StaticArrayInfo struct {
	Name  string `json:"name"`
	CType string `json:"ctype"`
	Size  int    `json:"size"`
}

// ModelInfo describes one assembled neuron or synapse population.
type ModelInfo struct {
	Name       string   `json:"name"`
	Kind       string   `json:"kind"`
	N          int      `json:"n"`
	Variables  []string `json:"variables"`
	Parameters []string `json:"parameters"`
	Source     string   `json:"source,omitempty"`
	Target     string   `json:"target,omitempty"`
}

// GroupInfo describes one group and its connections.
type GroupInfo struct {
	Name    string   `json:"name"`
	Kind    string   `json:"kind"`
	Inputs  []string `json:"inputs"`
	Outputs []string `json:"outputs"`
	Root    bool     `json:"root"`
}

// ResultInfo is the value of one array read back after a run.
type ResultInfo struct {
	Name   string    `json:"name"`
	Shape  []int     `json:"shape,omitempty"`
	Values []float64 `json:"values,omitempty"`
	Error  string    `json:"error,omitempty"`
}

// InspectOutput is the JSON output structure of inspect.
type InspectOutput struct {
	Network      string            `json:"network"`
	Model        string            `json:"model"`
	Arrays       []ArrayInfo       `json:"arrays"`
	StaticArrays []StaticArrayInfo `json:"static_arrays"`
	Groups       []GroupInfo       `json:"groups"`
	Actions      []string          `json:"actions"`
	Models       []ModelInfo       `json:"models"`
	Results      []ResultInfo      `json:"results,omitempty"`
}

// previewValues is the number of values shown per result in text output.
const previewValues = 6

func runInspect(cmd *cobra.Command, opts *InspectOptions) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	p, err := cmdCtx.Engine.Prepare(cmd.Context())
	if err != nil {
		return err
	}
	out, err := inspectDevice(p.Device)
	if err != nil {
		return err
	}
	out.Network = p.Description.Name
	if opts.Results {
		out.Results = readResults(p.Device, cmdCtx.Engine.Config().ProjectDir)
	}
	return renderInspect(cmdCtx.Renderer, out)
}

// readResults reads every registered array from the results of a run in
// projectDir. Arrays without results are reported with their error.
func readResults(dev *device.Device, projectDir string) []ResultInfo {
	dev.MarkRun(projectDir)
	reg := dev.Arrays()
	results := []ResultInfo{}
	for _, group := range [][]registry.Entry{reg.Arrays(), reg.DynamicArrays(), reg.DynamicArrays2D()} {
		for _, e := range group {
			info := ResultInfo{Name: e.Name}
			v, err := dev.GetValue(e.Var, true)
			if err != nil {
				info.Error = err.Error()
			} else {
				info.Shape = v.Shape
				info.Values = v.Data.Values
			}
			results = append(results, info)
		}
	}
	return results
}

func inspectDevice(dev *device.Device) (*InspectOutput, error) {
	models, err := dev.Assemble()
	if err != nil {
		return nil, err
	}
	out := &InspectOutput{
		Model:        models.ModelName,
		Arrays:       []ArrayInfo{},
		StaticArrays: []StaticArrayInfo{},
		Groups:       []GroupInfo{},
		Actions:      []string{},
		Models:       []ModelInfo{},
	}

	reg := dev.Arrays()
	inits := make(map[string]string)
	for _, e := range reg.ZeroArrays() {
		inits[e.Name] = "zeros"
	}
	for _, e := range reg.ArangeArrays() {
		inits[e.Name] = fmt.Sprintf("arange(%d)", e.Start)
	}
	for _, group := range [][]registry.Entry{reg.Arrays(), reg.DynamicArrays(), reg.DynamicArrays2D()} {
		for _, e := range group {
			info := e.Var.Info()
			out.Arrays = append(out.Arrays, ArrayInfo{
				Name:     e.Name,
				Owner:    info.Owner,
				Variable: info.Name,
				DType:    string(info.DType),
				Size:     arraySize(e.Var),
				Init:     inits[e.Name],
			})
		}
	}

	for _, s := range dev.StaticArrays().Specs() {
		out.StaticArrays = append(out.StaticArrays, StaticArrayInfo{Name: s.Name, CType: s.CType, Size: s.Size})
	}

	for _, g := range models.Groups {
		out.Groups = append(out.Groups, GroupInfo{
			Name: g.Name, Kind: g.Kind, Inputs: g.Inputs, Outputs: g.Outputs, Root: g.Root,
		})
	}

	for _, a := range dev.Queue().Actions() {
		out.Actions = append(out.Actions, describeAction(a))
	}

	for _, n := range models.Neurons {
		out.Models = append(out.Models, ModelInfo{
			Name: n.Name, Kind: assembler.KindNeuron, N: n.N,
			Variables: n.Variables, Parameters: n.Parameters,
		})
	}
	for _, s := range models.Synapses {
		out.Models = append(out.Models, ModelInfo{
			Name: s.Name, Kind: assembler.KindSynapse, N: s.N,
			Variables: s.Variables, Parameters: s.Parameters,
			Source: s.Source, Target: s.Target,
		})
	}
	return out, nil
}

func arraySize(v core.Variable) string {
	switch x := v.(type) {
	case *core.ArrayVariable:
		return strconv.Itoa(x.Size)
	case *core.DynamicArrayVariable:
		if x.Dimensions == 2 {
			return fmt.Sprintf("%dx%d", x.Rows, x.Cols)
		}
		return strconv.Itoa(x.Len())
	default:
		return "-"
	}
}

func describeAction(a core.Action) string {
	switch x := a.(type) {
	case core.RunCodeObject:
		return x.Kind() + " " + x.CodeObject
	case core.RunNetwork:
		return fmt.Sprintf("%s %s (%d lines)", x.Kind(), x.Network, len(x.Lines))
	case core.SetByArray:
		return fmt.Sprintf("%s %s <- %s", x.Kind(), x.Array, x.StaticArray)
	case core.SetArrayByArray:
		return fmt.Sprintf("%s %s[%s] <- %s", x.Kind(), x.Array, x.Indices, x.Values)
	case core.InsertCode:
		return x.Kind() + " " + strconv.Quote(firstLine(x.Code))
	case core.StartRunFunc:
		return fmt.Sprintf("%s %s (include_in_parent=%t)", x.Kind(), x.Name, x.IncludeInParent)
	case core.EndRunFunc:
		return x.Kind() + " " + x.Name
	default:
		return a.Kind()
	}
}

func firstLine(s string) string {
	line, rest, found := strings.Cut(s, "\n")
	if found && rest != "" {
		return line + "..."
	}
	return line
}

func renderInspect(r *output.Renderer, out *InspectOutput) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(out)
	}

	r.Header(1, fmt.Sprintf("%s (%s)", out.Network, out.Model))
	r.Println("")

	r.Header(2, "Arrays")
	rows := make([][]string, 0, len(out.Arrays))
	for _, a := range out.Arrays {
		rows = append(rows, []string{a.Name, a.Owner, a.Variable, a.DType, a.Size, a.Init})
	}
	r.Table([]string{"name", "owner", "variable", "dtype", "size", "init"}, rows)

	r.Header(2, "Static arrays")
	rows = rows[:0]
	for _, s := range out.StaticArrays {
		rows = append(rows, []string{s.Name, s.CType, strconv.Itoa(s.Size)})
	}
	r.Table([]string{"name", "type", "size"}, rows)

	r.Header(2, "Models")
	rows = rows[:0]
	for _, m := range out.Models {
		name := m.Name
		if m.Kind == assembler.KindSynapse {
			name = fmt.Sprintf("%s (%s -> %s)", m.Name, m.Source, m.Target)
		}
		rows = append(rows, []string{name, m.Kind, strconv.Itoa(m.N),
			strings.Join(m.Variables, ", "), strings.Join(m.Parameters, ", ")})
	}
	r.Table([]string{"name", "kind", "n", "variables", "parameters"}, rows)

	r.Header(2, "Groups")
	rows = rows[:0]
	for _, g := range out.Groups {
		root := ""
		if g.Root {
			root = "yes"
		}
		rows = append(rows, []string{g.Name, g.Kind, joinOrDash(g.Inputs), joinOrDash(g.Outputs), root})
	}
	r.Table([]string{"group", "kind", "inputs", "outputs", "root"}, rows)

	r.Header(2, "Actions")
	if len(out.Actions) == 0 {
		r.Muted("(none)")
	}
	for i, a := range out.Actions {
		r.Printf("  %d. %s\n", i+1, a)
	}

	if out.Results != nil {
		r.Println("")
		r.Header(2, "Results")
		rows = rows[:0]
		for _, res := range out.Results {
			if res.Error != "" {
				rows = append(rows, []string{res.Name, "-", res.Error})
				continue
			}
			rows = append(rows, []string{res.Name, formatShape(res.Shape), previewOf(res.Values)})
		}
		r.Table([]string{"name", "shape", "values"}, rows)
	}
	return nil
}

func joinOrDash(s []string) string {
	if len(s) == 0 {
		return "-"
	}
	return strings.Join(s, ", ")
}

func formatShape(shape []int) string {
	parts := make([]string, len(shape))
	for i, n := range shape {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, "x")
}

func previewOf(values []float64) string {
	n := min(len(values), previewValues)
	parts := make([]string, 0, n+1)
	for _, v := range values[:n] {
		parts = append(parts, strconv.FormatFloat(v, 'g', -1, 64))
	}
	if len(values) > n {
		parts = append(parts, fmt.Sprintf("... (%d more)", len(values)-n))
	}
	return "[" + strings.Join(parts, " ") + "]"
}
