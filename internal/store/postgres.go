package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"portfolio-site/internal/models"
)

const pgUniqueViolation = "23505"

// Postgres stores records in PostgreSQL through a pgx pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres wraps an open pool. The caller owns the pool's lifetime.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

const projectColumns = `id, title, description, technologies, project_url, github_url, image_url, date_created`

func scanProject(row pgx.Row) (models.Project, error) {
	var p models.Project
	err := row.Scan(&p.ID, &p.Title, &p.Description, &p.Technologies, &p.ProjectURL, &p.GitHubURL, &p.ImageURL, &p.DateCreated)
	return p, err
}

// ListProjects returns every project, newest first.
func (s *Postgres) ListProjects(ctx context.Context) ([]models.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects ORDER BY date_created DESC, id DESC`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query projects: %w", err)
	}
	defer rows.Close()

	projects := make([]models.Project, 0)
	for rows.Next() {
		p, err := scanProject(rows)
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
func (s *Postgres) GetProject(ctx context.Context, id uuid.UUID) (models.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = $1`
	p, err := scanProject(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Project{}, ErrNotFound
		}
		return models.Project{}, fmt.Errorf("get project %s: %w", id, err)
	}
	return p, nil
}

// InsertProject writes a new project row.
func (s *Postgres) InsertProject(ctx context.Context, p models.Project) error {
	query := `INSERT INTO projects (` + projectColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := s.pool.Exec(ctx, query, p.ID, p.Title, p.Description, nonNil(p.Technologies), p.ProjectURL, p.GitHubURL, p.ImageURL, p.DateCreated)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrConflict
		}
		return fmt.Errorf("insert project: %w", err)
	}
	return nil
}

// UpdateProject overwrites the mutable columns of a project. date_created is never written.
func (s *Postgres) UpdateProject(ctx context.Context, p models.Project) error {
	query := `UPDATE projects
		SET title = $1, description = $2, technologies = $3, project_url = $4, github_url = $5, image_url = $6
		WHERE id = $7`
	tag, err := s.pool.Exec(ctx, query, p.Title, p.Description, nonNil(p.Technologies), p.ProjectURL, p.GitHubURL, p.ImageURL, p.ID)
	if err != nil {
		return fmt.Errorf("update project %s: %w", p.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteProject removes a project row.
func (s *Postgres) DeleteProject(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete project %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetUserByUsername loads an admin user by exact username.
func (s *Postgres) GetUserByUsername(ctx context.Context, username string) (models.User, error) {
	var u models.User
	query := `SELECT id, username, password_hash, created_at FROM admin_users WHERE username = $1`
	err := s.pool.QueryRow(ctx, query, username).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// InsertUser creates an admin user. A taken username yields ErrConflict.
func (s *Postgres) InsertUser(ctx context.Context, u models.User) error {
	query := `INSERT INTO admin_users (id, username, password_hash, created_at) VALUES ($1, $2, $3, $4)`
	_, err := s.pool.Exec(ctx, query, u.ID, u.Username, u.PasswordHash, u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// UpdatePasswordHash replaces the stored hash for username.
func (s *Postgres) UpdatePasswordHash(ctx context.Context, username, hash string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE admin_users SET password_hash = $1 WHERE username = $2`, hash, username)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
