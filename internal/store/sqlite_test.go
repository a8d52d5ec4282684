package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio-site/internal/database"
	"portfolio-site/internal/models"
)

func newTestSQLite(t *testing.T) *SQLite {
	t.Helper()
	db, err := database.OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewSQLite(db)
}

func testProject(title string, created time.Time) models.Project {
	return models.Project{
		ID:           uuid.Must(uuid.NewV7()),
		Title:        title,
		Description:  "A site.\nSecond line.",
		Technologies: []string{"Go", "React", ""},
		ProjectURL:   "https://x.example",
		DateCreated:  created.UTC().Truncate(time.Millisecond),
	}
}

func TestSQLite_ProjectRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)

	p := testProject("Portfolio Site", time.Now())
	require.NoError(t, s.InsertProject(ctx, p))

	got, err := s.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestSQLite_InsertDuplicateID(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)

	p := testProject("One", time.Now())
	require.NoError(t, s.InsertProject(ctx, p))
	assert.ErrorIs(t, s.InsertProject(ctx, p), ErrConflict)
}

func TestSQLite_ListProjectsNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, title := range []string{"old", "newest", "middle"} {
		offsets := []time.Duration{0, 2 * time.Hour, time.Hour}
		require.NoError(t, s.InsertProject(ctx, testProject(title, base.Add(offsets[i]))))
	}

	projects, err := s.ListProjects(ctx)
	require.NoError(t, err)
	require.Len(t, projects, 3)
	assert.Equal(t, "newest", projects[0].Title)
	assert.Equal(t, "middle", projects[1].Title)
	assert.Equal(t, "old", projects[2].Title)
}

func TestSQLite_ListProjectsEmpty(t *testing.T) {
	projects, err := newTestSQLite(t).ListProjects(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, projects)
	assert.Empty(t, projects)
}

func TestSQLite_UpdateKeepsDateCreated(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)

	p := testProject("before", time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, s.InsertProject(ctx, p))

	updated := p
	updated.Title = "after"
	updated.Technologies = nil
	updated.DateCreated = time.Now()
	require.NoError(t, s.UpdateProject(ctx, updated))

	got, err := s.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "after", got.Title)
	assert.Equal(t, []string{}, got.Technologies)
	assert.Equal(t, p.DateCreated, got.DateCreated)
}

func TestSQLite_MissingProject(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)
	id := uuid.Must(uuid.NewV7())

	_, err := s.GetProject(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.UpdateProject(ctx, models.Project{ID: id, Title: "x"}), ErrNotFound)
	assert.ErrorIs(t, s.DeleteProject(ctx, id), ErrNotFound)
}

func TestSQLite_DeleteProject(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)

	p := testProject("gone", time.Now())
	require.NoError(t, s.InsertProject(ctx, p))
	require.NoError(t, s.DeleteProject(ctx, p.ID))

	_, err := s.GetProject(ctx, p.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite_Users(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)

	u := models.User{
		ID:           uuid.Must(uuid.NewV7()),
		Username:     "admin",
		PasswordHash: "hash-1",
		CreatedAt:    time.Now().UTC().Truncate(time.Millisecond),
	}
	require.NoError(t, s.InsertUser(ctx, u))

	dup := u
	dup.ID = uuid.Must(uuid.NewV7())
	assert.ErrorIs(t, s.InsertUser(ctx, dup), ErrConflict)

	got, err := s.GetUserByUsername(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, u, got)

	_, err = s.GetUserByUsername(ctx, "Admin")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.UpdatePasswordHash(ctx, "admin", "hash-2"))
	got, err = s.GetUserByUsername(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, "hash-2", got.PasswordHash)

	assert.ErrorIs(t, s.UpdatePasswordHash(ctx, "nobody", "x"), ErrNotFound)
}
