package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/leapstack-labs/b2genn/internal/writer"
	_ "modernc.org/sqlite" // SQLite driver (pure Go)
)

const memoryPath = ":memory:"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite state store instance.
// A nil logger discards output.
func NewSQLiteStore(logger *slog.Logger) *SQLiteStore {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SQLiteStore{logger: logger}
}

// Open opens a connection to the SQLite database, creating its directory
// if needed. Use ":memory:" for an in-memory database.
func (s *SQLiteStore) Open(path string) error {
	if path != memoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
			return fmt.Errorf("failed to create state directory: %w", err)
		}
	}
	dsn := path + "?_pragma=foreign_keys(1)"
	if path != memoryPath {
		dsn += "&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// every connection to ":memory:" is a separate database
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx()); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	s.db = db
	s.path = path
	s.logger.Debug("opened state database", slog.String("path", path))
	return nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Path returns the database path passed to Open.
func (s *SQLiteStore) Path() string {
	return s.path
}

func ctx() context.Context {
	return context.Background()
}

// generateID creates a new UUID.
func generateID() string {
	return uuid.New().String()
}

var errNotOpened = errors.New("database not opened")

// --- Build operations ---

// StartBuild records a new running build.
func (s *SQLiteStore) StartBuild(projectDir, network string) (*Build, error) {
	if s.db == nil {
		return nil, errNotOpened
	}

	b := &Build{
		ID:         generateID(),
		ProjectDir: projectDir,
		Network:    network,
		Status:     BuildStatusRunning,
		StartedAt:  time.Now().UTC(),
	}
	s.logger.Debug("starting build", slog.String("id", b.ID), slog.String("network", network))

	_, err := s.db.ExecContext(ctx(),
		`INSERT INTO builds (id, project_dir, network, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		b.ID, b.ProjectDir, b.Network, string(b.Status), formatTime(b.StartedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create build: %w", err)
	}
	return b, nil
}

// CompleteBuild marks a build as finished with the given status.
func (s *SQLiteStore) CompleteBuild(id string, status BuildStatus, errMsg string) error {
	if s.db == nil {
		return errNotOpened
	}

	res, err := s.db.ExecContext(ctx(),
		`UPDATE builds SET status = ?, completed_at = ?, error = ? WHERE id = ?`,
		string(status), formatTime(time.Now().UTC()), nullString(errMsg), id,
	)
	if err != nil {
		return fmt.Errorf("failed to complete build: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to complete build: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("build not found: %s", id)
	}
	return nil
}

const buildColumns = `b.id, b.project_dir, b.network, b.status, b.started_at, b.completed_at, b.error,
	(SELECT COUNT(*) FROM artifacts a WHERE a.build_id = b.id)`

// GetBuild retrieves a build by ID.
func (s *SQLiteStore) GetBuild(id string) (*Build, error) {
	if s.db == nil {
		return nil, errNotOpened
	}

	row := s.db.QueryRowContext(ctx(), `SELECT `+buildColumns+` FROM builds b WHERE b.id = ?`, id)
	b, err := scanBuild(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("build not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get build: %w", err)
	}
	return b, nil
}

// ListBuilds returns the most recent builds, newest first.
func (s *SQLiteStore) ListBuilds(limit int) ([]*Build, error) {
	if s.db == nil {
		return nil, errNotOpened
	}

	rows, err := s.db.QueryContext(ctx(),
		`SELECT `+buildColumns+` FROM builds b ORDER BY b.started_at DESC, b.rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list builds: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var builds []*Build
	for rows.Next() {
		b, err := scanBuild(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan build: %w", err)
		}
		builds = append(builds, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list builds: %w", err)
	}
	return builds, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBuild(row scanner) (*Build, error) {
	var (
		b           Build
		status      string
		startedAt   string
		completedAt sql.NullString
		errMsg      sql.NullString
	)
	if err := row.Scan(&b.ID, &b.ProjectDir, &b.Network, &status, &startedAt, &completedAt, &errMsg, &b.Artifacts); err != nil {
		return nil, err
	}
	b.Status = BuildStatus(status)

	t, err := parseTime(startedAt)
	if err != nil {
		return nil, err
	}
	b.StartedAt = t
	if completedAt.Valid {
		t, err := parseTime(completedAt.String)
		if err != nil {
			return nil, err
		}
		b.CompletedAt = &t
	}
	b.Error = errMsg.String
	return &b, nil
}

// --- Artifact operations ---

// RecordArtifact stores one write result of a build. Recording the same
// path twice keeps the latest result.
func (s *SQLiteStore) RecordArtifact(buildID string, r writer.Result) error {
	if s.db == nil {
		return errNotOpened
	}

	_, err := s.db.ExecContext(ctx(),
		`INSERT OR REPLACE INTO artifacts (build_id, path, role, outcome, hash, size, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		buildID, r.Path, string(r.Role), string(r.Outcome), r.Hash, r.Size, formatTime(time.Now().UTC()),
	)
	if err != nil {
		return fmt.Errorf("failed to record artifact %s: %w", r.Path, err)
	}
	return nil
}

// ListArtifacts returns the artifacts of a build ordered by path.
func (s *SQLiteStore) ListArtifacts(buildID string) ([]*Artifact, error) {
	if s.db == nil {
		return nil, errNotOpened
	}
	return s.queryArtifacts(
		`SELECT build_id, path, role, outcome, hash, size, recorded_at FROM artifacts WHERE build_id = ? ORDER BY path`,
		buildID)
}

// ArtifactHistory returns the most recently recorded version of every
// artifact path across all builds, ordered by path.
func (s *SQLiteStore) ArtifactHistory() ([]*Artifact, error) {
	if s.db == nil {
		return nil, errNotOpened
	}
	return s.queryArtifacts(
		`SELECT h.build_id, h.path, h.role, a.outcome, h.hash, a.size, h.recorded_at
		 FROM artifact_history h JOIN artifacts a ON a.build_id = h.build_id AND a.path = h.path
		 ORDER BY h.path`)
}

func (s *SQLiteStore) queryArtifacts(query string, args ...any) ([]*Artifact, error) {
	rows, err := s.db.QueryContext(ctx(), query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var artifacts []*Artifact
	for rows.Next() {
		var (
			a          Artifact
			role       string
			outcome    string
			recordedAt string
		)
		if err := rows.Scan(&a.BuildID, &a.Path, &role, &outcome, &a.Hash, &a.Size, &recordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan artifact: %w", err)
		}
		a.Role = writer.Role(role)
		a.Outcome = writer.Outcome(outcome)
		if a.RecordedAt, err = parseTime(recordedAt); err != nil {
			return nil, err
		}
		artifacts = append(artifacts, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}
	return artifacts, nil
}

// Recorder returns a writer.Recorder bound to buildID.
func (s *SQLiteStore) Recorder(buildID string) writer.Recorder {
	return &buildRecorder{store: s, buildID: buildID}
}

type buildRecorder struct {
	store   *SQLiteStore
	buildID string
}

func (r *buildRecorder) RecordArtifact(res writer.Result) error {
	return r.store.RecordArtifact(r.buildID, res)
}

// timeLayout is fixed width so stored timestamps sort as strings.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return t, nil
}

// nullString returns a sql.NullString for optional string fields.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
