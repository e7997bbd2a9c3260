// Package templates renders the GeNN project files from embedded
// text/template sources and ships the support libraries copied into every
// project.
package templates

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"text/template"

	"github.com/leapstack-labs/b2genn/internal/mainqueue"
	"github.com/leapstack-labs/b2genn/pkg/core"
)

//go:embed files/*.tmpl
var templateFS embed.FS

//go:embed all:lib
var libFS embed.FS

// Libraries are the support library directories copied into a project.
var Libraries = []string{"brianlib", "b2glib"}

// ArraySpec describes one generated array declaration.
type ArraySpec struct {
	Name  string
	CType string
	Size  int
	// Start is the first value of an arange-initialised array.
	Start int
	// Dynamic marks a resizable container.
	Dynamic bool
}

// ObjectsData feeds objects.cpp and objects.h.
type ObjectsData struct {
	NetworkName     string
	Arrays          []ArraySpec
	DynamicArrays   []ArraySpec
	DynamicArrays2D []ArraySpec
	ZeroArrays      []ArraySpec
	ArangeArrays    []ArraySpec
	StaticArrays    []core.StaticArraySpec
	// InitialArrays are loaded from static_arrays/<name> straight into the
	// array of the same name.
	InitialArrays []ArraySpec
	Clocks        []core.Clock
}

// ModelData feeds the <model>.cc definition.
type ModelData struct {
	ModelName string
	DTDefine  string
	Neurons   []core.NeuronModel
	Synapses  []core.SynapseModel
}

// RunnerData feeds runner.cu and runner.h.
type RunnerData struct {
	ModelName   string
	Neurons     []core.NeuronModel
	Synapses    []core.SynapseModel
	MainLines   []string
	Procedures  []mainqueue.Procedure
	HeaderFiles []string
	SourceFiles []string
}

// EngineData feeds engine.cc and engine.h.
type EngineData struct {
	ModelName string
	Neurons   []core.NeuronModel
	Synapses  []core.SynapseModel
}

// MakefileData feeds the Makefile.
type MakefileData struct {
	ModelName string
	RootDir   string
	Neurons   []core.NeuronModel
}

// File is one support library file.
type File struct {
	// Path is relative to the project directory, slash separated.
	Path    string
	Content string
}

var funcs = template.FuncMap{
	"join":  strings.Join,
	"float": core.FormatFloat,
	"upper": strings.ToUpper,
}

// Renderer renders the project templates.
type Renderer struct {
	tmpl *template.Template
}

// NewRenderer parses every embedded template.
func NewRenderer() (*Renderer, error) {
	tmpl, err := template.New("b2genn").Funcs(funcs).ParseFS(templateFS, "files/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// Objects renders the shared array definitions.
func (r *Renderer) Objects(data ObjectsData) (core.SourcePair, error) {
	return r.pair("objects", data)
}

// Model renders the GeNN model definition.
func (r *Renderer) Model(data ModelData) (string, error) {
	return r.render("model.cc.tmpl", data)
}

// Runner renders the simulation entry point.
func (r *Renderer) Runner(data RunnerData) (core.SourcePair, error) {
	return r.pair("runner", data)
}

// Engine renders the simulation engine wrapper.
func (r *Renderer) Engine(data EngineData) (core.SourcePair, error) {
	return r.pair("engine", data)
}

// Makefile renders the project Makefile.
func (r *Renderer) Makefile(data MakefileData) (string, error) {
	return r.render("Makefile.tmpl", data)
}

func (r *Renderer) pair(base string, data any) (core.SourcePair, error) {
	var ext string
	switch base {
	case "runner":
		ext = ".cu"
	case "engine":
		ext = ".cc"
	default:
		ext = ".cpp"
	}
	cpp, err := r.render(base+ext+".tmpl", data)
	if err != nil {
		return core.SourcePair{}, err
	}
	h, err := r.render(base+".h.tmpl", data)
	if err != nil {
		return core.SourcePair{}, err
	}
	return core.SourcePair{CPP: cpp, H: h}, nil
}

func (r *Renderer) render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", name, err)
	}
	return buf.String(), nil
}

// LibraryFiles returns every support library file, in lexical order per
// library.
func LibraryFiles() ([]File, error) {
	var files []File
	for _, lib := range Libraries {
		root := path.Join("lib", lib)
		err := fs.WalkDir(libFS, root, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			content, err := libFS.ReadFile(p)
			if err != nil {
				return err
			}
			files = append(files, File{
				Path:    strings.TrimPrefix(p, "lib/"),
				Content: string(content),
			})
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to read library %s: %w", lib, err)
		}
	}
	return files, nil
}
