package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"portfolio-site/internal/models"
)

// SQLite stores records in a SQLite database opened with modernc.org/sqlite.
// Technologies are kept as a JSON array and timestamps as unix milliseconds.
type SQLite struct {
	db *sql.DB
}

// NewSQLite wraps an open database handle. The caller owns the handle.
func NewSQLite(db *sql.DB) *SQLite {
	return &SQLite{db: db}
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(v int64) time.Time {
	return time.UnixMilli(v).UTC()
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteProject(row rowScanner) (models.Project, error) {
	var (
		p       models.Project
		id      string
		techs   string
		created int64
	)
	if err := row.Scan(&id, &p.Title, &p.Description, &techs, &p.ProjectURL, &p.GitHubURL, &p.ImageURL, &created); err != nil {
		return models.Project{}, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return models.Project{}, fmt.Errorf("parse project id %q: %w", id, err)
	}
	p.ID = parsed
	if err := json.Unmarshal([]byte(techs), &p.Technologies); err != nil {
		return models.Project{}, fmt.Errorf("decode technologies for %s: %w", id, err)
	}
	p.Technologies = nonNil(p.Technologies)
	p.DateCreated = fromMillis(created)
	return p, nil
}

func encodeTechnologies(techs []string) (string, error) {
	data, err := json.Marshal(nonNil(techs))
	if err != nil {
		return "", fmt.Errorf("encode technologies: %w", err)
	}
	return string(data), nil
}

// ListProjects returns every project, newest first.
func (s *SQLite) ListProjects(ctx context.Context) ([]models.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects ORDER BY date_created DESC, id DESC`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query projects: %w", err)
	}
	defer rows.Close()

	projects := make([]models.Project, 0)
	for rows.Next() {
		p, err := scanSQLiteProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project row: %w", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate projects: %w", err)
	}
	return projects, nil
}

// GetProject loads one project by id.
func (s *SQLite) GetProject(ctx context.Context, id uuid.UUID) (models.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = ?`
	p, err := scanSQLiteProject(s.db.QueryRowContext(ctx, query, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Project{}, ErrNotFound
		}
		return models.Project{}, fmt.Errorf("get project %s: %w", id, err)
	}
	return p, nil
}

// InsertProject writes a new project row.
func (s *SQLite) InsertProject(ctx context.Context, p models.Project) error {
	techs, err := encodeTechnologies(p.Technologies)
	if err != nil {
		return err
	}
	query := `INSERT INTO projects (` + projectColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = s.db.ExecContext(ctx, query, p.ID.String(), p.Title, p.Description, techs, p.ProjectURL, p.GitHubURL, p.ImageURL, toMillis(p.DateCreated))
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("insert project: %w", err)
	}
	return nil
}

// UpdateProject overwrites the mutable columns of a project. date_created is never written.
func (s *SQLite) UpdateProject(ctx context.Context, p models.Project) error {
	techs, err := encodeTechnologies(p.Technologies)
	if err != nil {
		return err
	}
	query := `UPDATE projects
		SET title = ?, description = ?, technologies = ?, project_url = ?, github_url = ?, image_url = ?
		WHERE id = ?`
	res, err := s.db.ExecContext(ctx, query, p.Title, p.Description, techs, p.ProjectURL, p.GitHubURL, p.ImageURL, p.ID.String())
	if err != nil {
		return fmt.Errorf("update project %s: %w", p.ID, err)
	}
	return requireAffected(res)
}

// DeleteProject removes a project row.
func (s *SQLite) DeleteProject(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("delete project %s: %w", id, err)
	}
	return requireAffected(res)
}

// GetUserByUsername loads an admin user by exact username.
func (s *SQLite) GetUserByUsername(ctx context.Context, username string) (models.User, error) {
	var (
		u       models.User
		id      string
		created int64
	)
	query := `SELECT id, username, password_hash, created_at FROM admin_users WHERE username = ?`
	err := s.db.QueryRowContext(ctx, query, username).Scan(&id, &u.Username, &u.PasswordHash, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, fmt.Errorf("get user: %w", err)
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return models.User{}, fmt.Errorf("parse user id %q: %w", id, err)
	}
	u.ID = parsed
	u.CreatedAt = fromMillis(created)
	return u, nil
}

// InsertUser creates an admin user. A taken username yields ErrConflict.
func (s *SQLite) InsertUser(ctx context.Context, u models.User) error {
	query := `INSERT INTO admin_users (id, username, password_hash, created_at) VALUES (?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query, u.ID.String(), u.Username, u.PasswordHash, toMillis(u.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// UpdatePasswordHash replaces the stored hash for username.
func (s *SQLite) UpdatePasswordHash(ctx context.Context, username, hash string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE admin_users SET password_hash = ? WHERE username = ?`, hash, username)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return requireAffected(res)
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
