package state

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/leapstack-labs/b2genn/internal/testutil"
	"github.com/leapstack-labs/b2genn/internal/writer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s := NewSQLiteStore(testutil.NewTestLogger(t))
	require.NoError(t, s.Open(memoryPath))
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate())
	return s
}

func TestSQLiteStore_OpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.db")
	s := NewSQLiteStore(nil)
	require.NoError(t, s.Open(path))
	defer func() { _ = s.Close() }()
	require.NoError(t, s.Migrate())
	assert.Equal(t, path, s.Path())

	version, err := s.GetMigrationVersion()
	require.NoError(t, err)
	assert.Equal(t, int64(2), version)

	// migrating twice is a no-op
	require.NoError(t, s.Migrate())
}

func TestSQLiteStore_NotOpened(t *testing.T) {
	s := NewSQLiteStore(nil)
	assert.NoError(t, s.Close())

	_, err := s.StartBuild("out", "net")
	assert.ErrorIs(t, err, errNotOpened)
	assert.ErrorIs(t, s.Migrate(), errNotOpened)
	_, err = s.ListBuilds(10)
	assert.ErrorIs(t, err, errNotOpened)
	_, err = s.ArtifactHistory()
	assert.ErrorIs(t, err, errNotOpened)
}

func TestSQLiteStore_BuildLifecycle(t *testing.T) {
	s := openStore(t)

	b, err := s.StartBuild("output", "net")
	require.NoError(t, err)
	assert.NotEmpty(t, b.ID)
	assert.Equal(t, BuildStatusRunning, b.Status)

	got, err := s.GetBuild(b.ID)
	require.NoError(t, err)
	assert.Equal(t, "output", got.ProjectDir)
	assert.Equal(t, "net", got.Network)
	assert.Nil(t, got.CompletedAt)
	assert.True(t, b.StartedAt.Equal(got.StartedAt))

	require.NoError(t, s.CompleteBuild(b.ID, BuildStatusFailed, "make failed"))
	got, err = s.GetBuild(b.ID)
	require.NoError(t, err)
	assert.Equal(t, BuildStatusFailed, got.Status)
	assert.Equal(t, "make failed", got.Error)
	require.NotNil(t, got.CompletedAt)

	assert.ErrorContains(t, s.CompleteBuild("missing", BuildStatusCompleted, ""), "build not found: missing")
	_, err = s.GetBuild("missing")
	assert.ErrorContains(t, err, "build not found: missing")
}

func TestSQLiteStore_ListBuilds(t *testing.T) {
	s := openStore(t)

	var ids []string
	for _, name := range []string{"a", "b", "c"} {
		b, err := s.StartBuild("output", name)
		require.NoError(t, err)
		ids = append(ids, b.ID)
	}
	require.NoError(t, s.RecordArtifact(ids[2], writer.Result{Path: "objects.cpp", Role: writer.RoleSource, Hash: "h", Size: 1}))

	builds, err := s.ListBuilds(2)
	require.NoError(t, err)
	require.Len(t, builds, 2)
	assert.Equal(t, "c", builds[0].Network)
	assert.Equal(t, 1, builds[0].Artifacts)
	assert.Equal(t, "b", builds[1].Network)
	assert.Equal(t, 0, builds[1].Artifacts)
}

func TestSQLiteStore_Artifacts(t *testing.T) {
	s := openStore(t)

	first, err := s.StartBuild("output", "net")
	require.NoError(t, err)
	second, err := s.StartBuild("output", "net")
	require.NoError(t, err)

	rec := s.Recorder(first.ID)
	require.NoError(t, rec.RecordArtifact(writer.Result{Path: "objects.h", Role: writer.RoleHeader, Outcome: writer.OutcomeWritten, Hash: "h1", Size: 10}))
	require.NoError(t, rec.RecordArtifact(writer.Result{Path: "objects.cpp", Role: writer.RoleSource, Outcome: writer.OutcomeWritten, Hash: "c1", Size: 20}))
	// re-recording a path keeps the latest result
	require.NoError(t, rec.RecordArtifact(writer.Result{Path: "objects.cpp", Role: writer.RoleSource, Outcome: writer.OutcomeWritten, Hash: "c2", Size: 21}))
	require.NoError(t, s.RecordArtifact(second.ID, writer.Result{Path: "objects.h", Role: writer.RoleHeader, Outcome: writer.OutcomeUnchanged, Hash: "h1", Size: 10}))

	artifacts, err := s.ListArtifacts(first.ID)
	require.NoError(t, err)
	require.Len(t, artifacts, 2)
	assert.Equal(t, "objects.cpp", artifacts[0].Path)
	assert.Equal(t, "c2", artifacts[0].Hash)
	assert.Equal(t, 21, artifacts[0].Size)
	assert.Equal(t, writer.RoleSource, artifacts[0].Role)
	assert.Equal(t, "objects.h", artifacts[1].Path)

	history, err := s.ArtifactHistory()
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "objects.cpp", history[0].Path)
	assert.Equal(t, first.ID, history[0].BuildID)
	assert.Equal(t, "objects.h", history[1].Path)
	assert.Equal(t, second.ID, history[1].BuildID)
	assert.Equal(t, writer.OutcomeUnchanged, history[1].Outcome)
}

func TestSQLiteStore_ArtifactNeedsBuild(t *testing.T) {
	s := openStore(t)
	err := s.RecordArtifact("missing", writer.Result{Path: "x.cpp", Role: writer.RoleSource})
	assert.ErrorContains(t, err, "failed to record artifact x.cpp")
}

func TestSQLiteStore_WriterIntegration(t *testing.T) {
	s := openStore(t)
	b, err := s.StartBuild("output", "net")
	require.NoError(t, err)

	dir := t.TempDir()
	w := writer.New(writer.Config{Dir: dir, Recorder: s.Recorder(b.ID)})
	_, err = w.Write("code_objects/a.cpp", "int a;\n")
	require.NoError(t, err)
	_, err = w.WriteUntracked("Makefile", "all:\n")
	require.NoError(t, err)

	artifacts, err := s.ListArtifacts(b.ID)
	require.NoError(t, err)
	require.Len(t, artifacts, 2)
	assert.Equal(t, "Makefile", artifacts[0].Path)
	assert.Equal(t, writer.RoleOther, artifacts[0].Role)
	assert.Equal(t, "code_objects/a.cpp", artifacts[1].Path)
	assert.Equal(t, writer.RoleSource, artifacts[1].Role)
}

func mockStore(t *testing.T) (*SQLiteStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	s := NewSQLiteStore(nil)
	s.db = db
	return s, mock
}

func TestSQLiteStore_DatabaseFailures(t *testing.T) {
	boom := errors.New("disk I/O error")

	tests := []struct {
		name    string
		setup   func(mock sqlmock.Sqlmock)
		call    func(s *SQLiteStore) error
		wantErr string
	}{
		{
			name:  "start build",
			setup: func(mock sqlmock.Sqlmock) { mock.ExpectExec("INSERT INTO builds").WillReturnError(boom) },
			call: func(s *SQLiteStore) error {
				_, err := s.StartBuild("out", "net")
				return err
			},
			wantErr: "failed to create build",
		},
		{
			name:    "complete build",
			setup:   func(mock sqlmock.Sqlmock) { mock.ExpectExec("UPDATE builds").WillReturnError(boom) },
			call:    func(s *SQLiteStore) error { return s.CompleteBuild("id", BuildStatusCompleted, "") },
			wantErr: "failed to complete build",
		},
		{
			name: "rows affected",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("UPDATE builds").WillReturnResult(sqlmock.NewErrorResult(boom))
			},
			call:    func(s *SQLiteStore) error { return s.CompleteBuild("id", BuildStatusCompleted, "") },
			wantErr: "failed to complete build",
		},
		{
			name:  "list builds",
			setup: func(mock sqlmock.Sqlmock) { mock.ExpectQuery("SELECT").WillReturnError(boom) },
			call: func(s *SQLiteStore) error {
				_, err := s.ListBuilds(5)
				return err
			},
			wantErr: "failed to list builds",
		},
		{
			name: "bad timestamp",
			setup: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows([]string{"id", "project_dir", "network", "status", "started_at", "completed_at", "error", "n"}).
					AddRow("id", "out", "net", "running", "yesterday", nil, nil, 0)
				mock.ExpectQuery("SELECT").WillReturnRows(rows)
			},
			call: func(s *SQLiteStore) error {
				_, err := s.ListBuilds(5)
				return err
			},
			wantErr: `invalid timestamp "yesterday"`,
		},
		{
			name:  "list artifacts",
			setup: func(mock sqlmock.Sqlmock) { mock.ExpectQuery("SELECT").WillReturnError(boom) },
			call: func(s *SQLiteStore) error {
				_, err := s.ListArtifacts("id")
				return err
			},
			wantErr: "failed to list artifacts",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := mockStore(t)
			tt.setup(mock)
			err := tt.call(s)
			assert.ErrorContains(t, err, tt.wantErr)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
