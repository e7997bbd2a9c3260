// Package state records build history in SQLite.
// It tracks every build and the artifacts it wrote.
package state

import (
	"time"

	"github.com/leapstack-labs/b2genn/internal/writer"
)

// BuildStatus is the lifecycle state of a build.
type BuildStatus string

// Build statuses.
const (
	BuildStatusRunning   BuildStatus = "running"
	BuildStatusCompleted BuildStatus = "completed"
	BuildStatusFailed    BuildStatus = "failed"
)

// Build is one recorded build.
type Build struct {
	ID          string
	ProjectDir  string
	Network     string
	Status      BuildStatus
	StartedAt   time.Time
	CompletedAt *time.Time
	Error       string
	// Artifacts is the number of recorded artifacts (filled by ListBuilds).
	Artifacts int
}

// Artifact is one file written by a build.
type Artifact struct {
	BuildID    string
	Path       string
	Role       writer.Role
	Outcome    writer.Outcome
	Hash       string
	Size       int
	RecordedAt time.Time
}

// Store is the build history store.
type Store interface {
	Open(path string) error
	Close() error
	Migrate() error

	StartBuild(projectDir, network string) (*Build, error)
	CompleteBuild(id string, status BuildStatus, errMsg string) error
	GetBuild(id string) (*Build, error)
	ListBuilds(limit int) ([]*Build, error)

	RecordArtifact(buildID string, r writer.Result) error
	ListArtifacts(buildID string) ([]*Artifact, error)
	ArtifactHistory() ([]*Artifact, error)

	// Recorder returns a writer.Recorder that records into buildID.
	Recorder(buildID string) writer.Recorder
}

var _ Store = (*SQLiteStore)(nil)
