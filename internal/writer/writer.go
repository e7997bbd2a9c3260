// Package writer persists generated artifacts below a project directory.
// Files are only rewritten when their content changes, so unchanged sources
// keep their modification time and do not trigger native rebuilds.
package writer

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/b2genn/pkg/core"
)

// Role classifies an artifact for the generated build.
type Role string

// Artifact roles.
const (
	RoleSource Role = "source"
	RoleHeader Role = "header"
	RoleOther  Role = "other"
)

// Outcome reports what a write did.
type Outcome string

// Write outcomes.
const (
	OutcomeWritten   Outcome = "written"
	OutcomeUnchanged Outcome = "unchanged"
)

// Wildcard is the suffix that marks a paired write ("objects.*").
const Wildcard = ".*"

// Result describes one artifact write.
type Result struct {
	// Path is relative to the project directory, slash separated.
	Path    string
	Role    Role
	Outcome Outcome
	// Hash is the hex SHA-256 of the content.
	Hash string
	Size int
}

// Recorder receives every write result.
type Recorder interface {
	RecordArtifact(r Result) error
}

// Config holds writer configuration.
type Config struct {
	// Dir is the project directory all paths are relative to.
	Dir string
	// Recorder is optional.
	Recorder Recorder
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// Writer is a write-if-changed file sink that tracks the generated sources
// and headers.
type Writer struct {
	dir      string
	recorder Recorder
	logger   *slog.Logger

	sources []string
	headers []string
	results []Result
}

// New creates a writer rooted at cfg.Dir.
func New(cfg Config) *Writer {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Writer{dir: cfg.Dir, recorder: cfg.Recorder, logger: logger}
}

// Classify returns the role of a file from its extension.
func Classify(name string) Role {
	switch strings.ToLower(path.Ext(name)) {
	case ".cpp", ".cc", ".cu":
		return RoleSource
	case ".h":
		return RoleHeader
	default:
		return RoleOther
	}
}

// Write writes content to rel and records it as a source or header file.
func (w *Writer) Write(rel, content string) (Result, error) {
	res, err := w.write(rel, content)
	if err != nil {
		return res, err
	}
	w.Track(res.Path)
	return res, nil
}

// WriteUntracked writes content to rel without adding it to the source or
// header lists. Used for the top-level build files that include those lists.
func (w *Writer) WriteUntracked(rel, content string) (Result, error) {
	return w.write(rel, content)
}

// WritePair writes a paired template result. rel must end in ".*"; the
// definition goes to <base>.cpp and the declaration to <base>.h.
func (w *Writer) WritePair(rel string, pair core.SourcePair) ([]Result, error) {
	base, ok := strings.CutSuffix(rel, Wildcard)
	if !ok {
		return nil, fmt.Errorf("paired write needs a %q suffix: %s", Wildcard, rel)
	}
	cpp, err := w.Write(base+".cpp", pair.CPP)
	if err != nil {
		return nil, err
	}
	h, err := w.Write(base+".h", pair.H)
	if err != nil {
		return []Result{cpp}, err
	}
	return []Result{cpp, h}, nil
}

// Track records rel as a source or header file without writing it,
// e.g. for files copied from a support library.
func (w *Writer) Track(rel string) {
	rel = filepath.ToSlash(rel)
	switch Classify(rel) {
	case RoleSource:
		w.sources = append(w.sources, rel)
	case RoleHeader:
		w.headers = append(w.headers, rel)
	case RoleOther:
	}
}

// SourceFiles returns the tracked source files in write order.
func (w *Writer) SourceFiles() []string {
	return append([]string(nil), w.sources...)
}

// HeaderFiles returns the tracked header files in write order.
func (w *Writer) HeaderFiles() []string {
	return append([]string(nil), w.headers...)
}

// Results returns every write result in order.
func (w *Writer) Results() []Result {
	return append([]Result(nil), w.results...)
}

// Dir returns the project directory.
func (w *Writer) Dir() string {
	return w.dir
}

func (w *Writer) write(rel, content string) (Result, error) {
	rel = filepath.ToSlash(rel)
	full := filepath.Join(w.dir, filepath.FromSlash(rel))
	data := []byte(content)
	sum := sha256.Sum256(data)

	res := Result{
		Path:    rel,
		Role:    Classify(rel),
		Outcome: OutcomeWritten,
		Hash:    hex.EncodeToString(sum[:]),
		Size:    len(data),
	}

	existing, err := os.ReadFile(full) //nolint:gosec // path is below the project directory
	switch {
	case err == nil && bytes.Equal(existing, data):
		res.Outcome = OutcomeUnchanged
	case err != nil && !errors.Is(err, fs.ErrNotExist):
		return res, fmt.Errorf("failed to read %s: %w", rel, err)
	default:
		if err := os.MkdirAll(filepath.Dir(full), 0750); err != nil {
			return res, fmt.Errorf("failed to create directory for %s: %w", rel, err)
		}
		if err := os.WriteFile(full, data, 0600); err != nil {
			return res, fmt.Errorf("failed to write %s: %w", rel, err)
		}
	}

	w.logger.Debug("artifact", "path", rel, "outcome", res.Outcome, "bytes", res.Size)
	w.results = append(w.results, res)

	if w.recorder != nil {
		if err := w.recorder.RecordArtifact(res); err != nil {
			return res, fmt.Errorf("failed to record %s: %w", rel, err)
		}
	}
	return res, nil
}
