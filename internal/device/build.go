package device

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/leapstack-labs/b2genn/internal/assembler"
	"github.com/leapstack-labs/b2genn/internal/mainqueue"
	"github.com/leapstack-labs/b2genn/internal/staticdata"
	"github.com/leapstack-labs/b2genn/internal/templates"
	"github.com/leapstack-labs/b2genn/internal/writer"
	"github.com/leapstack-labs/b2genn/pkg/core"
)

// DefaultProjectDir is used when BuildOptions.ProjectDir is empty.
const DefaultProjectDir = "output"

// Project subdirectories.
const (
	CodeObjectsDir  = "code_objects"
	ResultsDir      = "results"
	StaticArraysDir = "static_arrays"
)

// constantsMarker is replaced by the per-code-object constant block.
const constantsMarker = "%CONSTANTS%"

const objectsInclude = "#include \"objects.h\"\n"

// BuildOptions controls one build.
type BuildOptions struct {
	ProjectDir string
	// Compile runs buildmodel and make after emitting the project.
	Compile bool
	// Run executes the compiled simulation for the recorded duration.
	Run bool
	// UseGPU selects the GPU (true) or CPU (false) simulation.
	UseGPU bool
}

// BuildResult summarises a build.
type BuildResult struct {
	ProjectDir   string
	ModelName    string
	Models       *assembler.Result
	StaticArrays []core.StaticArraySpec
	Artifacts    []writer.Result
	Compiled     bool
	Ran          bool
	Duration     time.Duration
}

// Build emits the GeNN project and optionally compiles and runs it. Files
// written before a failure are left in place.
func (d *Device) Build(ctx context.Context, opts BuildOptions) (*BuildResult, error) {
	start := time.Now()
	dir := opts.ProjectDir
	if dir == "" {
		dir = DefaultProjectDir
	}
	d.projectDir = dir
	d.logger.Info("building GeNN project", "project_dir", dir)

	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create project directory: %w", err)
	}
	for _, sub := range []string{CodeObjectsDir, ResultsDir, StaticArraysDir} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0750); err != nil {
			return nil, fmt.Errorf("failed to create %s directory: %w", sub, err)
		}
	}

	w := writer.New(writer.Config{Dir: dir, Recorder: d.recorder, Logger: d.logger})

	specs, err := d.static.Flush(w, StaticArraysDir)
	if err != nil {
		return nil, err
	}
	d.logger.Debug("wrote static arrays", "count", len(specs))

	if len(d.networks) != 1 {
		return nil, &core.ModelError{
			Subject: "network",
			Message: fmt.Sprintf("GeNN only supports a single network object, found %d", len(d.networks)),
		}
	}
	net := d.networks[0]

	renderer, err := templates.NewRenderer()
	if err != nil {
		return nil, err
	}

	objects, err := renderer.Objects(d.objectsData(net.Name, specs))
	if err != nil {
		return nil, err
	}
	if _, err := w.WritePair("objects"+writer.Wildcard, objects); err != nil {
		return nil, err
	}

	finalisers := make([]string, 0, len(d.codeObjects))
	for _, co := range d.codeObjects {
		finalisers = append(finalisers, co.MainFinalise)
	}
	prog, err := d.queue.Drain(finalisers)
	if err != nil {
		return nil, err
	}

	if err := d.writeCodeObjects(w); err != nil {
		return nil, err
	}

	models, err := assembler.New(d.logger).Assemble(d.networks)
	if err != nil {
		return nil, err
	}

	libs, err := templates.LibraryFiles()
	if err != nil {
		return nil, err
	}
	for _, f := range libs {
		if _, err := w.Write(f.Path, f.Content); err != nil {
			return nil, err
		}
	}

	rootDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project directory: %w", err)
	}
	if err := d.writeProjectFiles(w, renderer, models, prog, rootDir); err != nil {
		return nil, err
	}

	res := &BuildResult{
		ProjectDir:   dir,
		ModelName:    models.ModelName,
		Models:       models,
		StaticArrays: specs,
	}

	if opts.Compile {
		if err := d.runTool(ctx, dir, d.toolchain.BuildModel, models.ModelName); err != nil {
			return nil, err
		}
		if err := d.runTool(ctx, dir, d.toolchain.Make); err != nil {
			return nil, err
		}
		res.Compiled = true
	}

	if opts.Run {
		duration, ok := d.RunDuration()
		if !ok {
			return nil, &core.ModelError{Subject: net.Name, Message: "no run duration has been recorded"}
		}
		gpu := "0"
		if opts.UseGPU {
			gpu = "1"
		}
		if err := d.runTool(ctx, dir, d.toolchain.Runner, "test", core.FormatFloat(duration), gpu); err != nil {
			return nil, err
		}
		d.hasBeenRun = true
		res.Ran = true
	}

	res.Artifacts = w.Results()
	res.Duration = time.Since(start)
	d.logger.Info("build finished",
		"project_dir", dir,
		"model", res.ModelName,
		"artifacts", len(res.Artifacts),
		"duration", res.Duration)
	return res, nil
}

func (d *Device) objectsData(network string, specs []core.StaticArraySpec) templates.ObjectsData {
	data := templates.ObjectsData{NetworkName: network, Clocks: d.clocks}

	for _, e := range d.arrays.Arrays() {
		if v, ok := e.Var.(*core.ArrayVariable); ok {
			data.Arrays = append(data.Arrays, templates.ArraySpec{Name: e.Name, CType: v.DType.CType(), Size: v.Size})
		}
	}
	for _, e := range d.arrays.DynamicArrays() {
		data.DynamicArrays = append(data.DynamicArrays, templates.ArraySpec{Name: e.Name, CType: e.Var.Info().DType.CType(), Dynamic: true})
	}
	for _, e := range d.arrays.DynamicArrays2D() {
		data.DynamicArrays2D = append(data.DynamicArrays2D, templates.ArraySpec{Name: e.Name, CType: e.Var.Info().DType.CType(), Dynamic: true})
	}
	for _, e := range d.arrays.ZeroArrays() {
		if v, ok := e.Var.(*core.ArrayVariable); ok {
			data.ZeroArrays = append(data.ZeroArrays, templates.ArraySpec{Name: e.Name, CType: v.DType.CType(), Size: v.Size})
		}
	}
	for _, e := range d.arrays.ArangeArrays() {
		if v, ok := e.Var.(*core.ArrayVariable); ok {
			data.ArangeArrays = append(data.ArangeArrays, templates.ArraySpec{Name: e.Name, CType: v.DType.CType(), Size: v.Size, Start: e.Start})
		}
	}
	for _, spec := range specs {
		if strings.HasPrefix(spec.Name, staticdata.Prefix) {
			data.StaticArrays = append(data.StaticArrays, spec)
			continue
		}
		data.InitialArrays = append(data.InitialArrays, templates.ArraySpec{
			Name:    spec.Name,
			CType:   spec.CType,
			Size:    spec.Size,
			Dynamic: strings.HasPrefix(spec.Name, "_dynamic_array_"),
		})
	}
	return data
}

// constantLines returns the declarations a user code object needs for the
// arrays and attributes in its namespace. Duplicate lines are dropped.
func (d *Device) constantLines(co *core.CodeObject) ([]string, error) {
	var lines []string
	seen := make(map[string]bool)
	add := func(line string) {
		if !seen[line] {
			seen[line] = true
			lines = append(lines, line)
		}
	}

	for _, b := range co.Variables {
		switch v := b.Var.(type) {
		case *core.AttributeVariable:
			add(fmt.Sprintf("const %s %s = %s.%s();", v.DType.CType(), b.Name, v.Object, v.Attribute))
		case *core.DynamicArrayVariable:
			if v.Dimensions != 1 {
				continue
			}
			arrayName, err := d.arrays.Resolve(v, true)
			if err != nil {
				return nil, fmt.Errorf("code object %s: %w", co.Name, err)
			}
			dynamicName, err := d.arrays.Resolve(v, false)
			if err != nil {
				return nil, fmt.Errorf("code object %s: %w", co.Name, err)
			}
			add(fmt.Sprintf("%s* const %s = &%s[0];", v.DType.CType(), arrayName, dynamicName))
			add(fmt.Sprintf("const int _num%s = %s.size();", b.Name, dynamicName))
		case *core.ArrayVariable:
			add(fmt.Sprintf("const int _num%s = %d;", b.Name, v.Size))
		}
	}
	return lines, nil
}

func (d *Device) writeCodeObjects(w *writer.Writer) error {
	for _, co := range d.codeObjects {
		if co.Kind != core.CodeKindUser {
			continue
		}
		lines, err := d.constantLines(co)
		if err != nil {
			return err
		}
		code := strings.ReplaceAll(co.Source.CPP, constantsMarker, strings.Join(lines, "\n"))
		base := CodeObjectsDir + "/" + co.Name
		if _, err := w.Write(base+".cpp", objectsInclude+code); err != nil {
			return err
		}
		if _, err := w.Write(base+".h", co.Source.H); err != nil {
			return err
		}
	}
	return nil
}

func (d *Device) writeProjectFiles(w *writer.Writer, r *templates.Renderer, models *assembler.Result, prog *mainqueue.Program, rootDir string) error {
	model, err := r.Model(templates.ModelData{
		ModelName: models.ModelName,
		DTDefine:  models.DTDefine,
		Neurons:   models.Neurons,
		Synapses:  models.Synapses,
	})
	if err != nil {
		return err
	}
	if _, err := w.WriteUntracked(models.ModelName+".cc", model); err != nil {
		return err
	}

	runner, err := r.Runner(templates.RunnerData{
		ModelName:   models.ModelName,
		Neurons:     models.Neurons,
		Synapses:    models.Synapses,
		MainLines:   prog.Main,
		Procedures:  prog.Procedures,
		HeaderFiles: w.HeaderFiles(),
		SourceFiles: w.SourceFiles(),
	})
	if err != nil {
		return err
	}
	engine, err := r.Engine(templates.EngineData{
		ModelName: models.ModelName,
		Neurons:   models.Neurons,
		Synapses:  models.Synapses,
	})
	if err != nil {
		return err
	}
	makefile, err := r.Makefile(templates.MakefileData{
		ModelName: models.ModelName,
		RootDir:   rootDir,
		Neurons:   models.Neurons,
	})
	if err != nil {
		return err
	}

	for _, f := range []struct{ path, content string }{
		{"runner.cu", runner.CPP},
		{"runner.h", runner.H},
		{"engine.cc", engine.CPP},
		{"engine.h", engine.H},
		{"Makefile", makefile},
	} {
		if _, err := w.WriteUntracked(f.path, f.content); err != nil {
			return err
		}
	}
	return nil
}
