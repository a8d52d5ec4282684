// Package projects owns the lifecycle of portfolio project records: ids,
// timestamps, ordering, and keeping hosted images in step with the records
// that reference them.
package projects

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"portfolio-site/internal/assets"
	"portfolio-site/internal/models"
	"portfolio-site/internal/store"
)

var (
	// ErrNotFound covers both missing records and ids that do not parse.
	ErrNotFound = errors.New("project not found")
	// ErrInvalid is returned for field sets that cannot be saved.
	ErrInvalid = errors.New("invalid project")
)

// Event types published after successful mutations.
const (
	EventCreated = "project.created"
	EventUpdated = "project.updated"
	EventDeleted = "project.deleted"
)

// Store persists project records.
type Store interface {
	ListProjects(ctx context.Context) ([]models.Project, error)
	GetProject(ctx context.Context, id uuid.UUID) (models.Project, error)
	InsertProject(ctx context.Context, p models.Project) error
	UpdateProject(ctx context.Context, p models.Project) error
	DeleteProject(ctx context.Context, id uuid.UUID) error
}

// Assets uploads and best-effort deletes hosted images.
type Assets interface {
	Upload(ctx context.Context, file io.Reader, filename string) (assets.Asset, error)
	Delete(ctx context.Context, imageURL string)
}

// Publisher receives change notifications. Implementations must not block.
type Publisher interface {
	Publish(eventType string, payload any)
}

// Image is an optional upload attached to a create or update.
type Image struct {
	Filename string
	Content  io.Reader
}

// Service implements the project operations.
type Service struct {
	store     Store
	assets    Assets
	publisher Publisher
	logger    *slog.Logger
	now       func() time.Time
	newID     func() (uuid.UUID, error)
}

// NewService wires a Service. publisher may be nil.
func NewService(s Store, a Assets, publisher Publisher, logger *slog.Logger) *Service {
	return &Service{
		store:     s,
		assets:    a,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
		newID:     uuid.NewV7,
	}
}

// ParseTechnologies splits a comma separated list and trims each token.
// Empty tokens are kept, so "Go, React, " yields ["Go", "React", ""].
func ParseTechnologies(raw string) []string {
	parts := strings.Split(raw, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

// ParseID converts a path parameter into a project id. Malformed ids are
// reported as ErrNotFound.
func ParseID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, ErrNotFound
	}
	return id, nil
}

// List returns every project, newest first.
func (s *Service) List(ctx context.Context) ([]models.Project, error) {
	projects, err := s.store.ListProjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return projects, nil
}

// Get looks a project up by its string id.
func (s *Service) Get(ctx context.Context, rawID string) (models.Project, error) {
	id, err := ParseID(rawID)
	if err != nil {
		return models.Project{}, err
	}
	p, err := s.store.GetProject(ctx, id)
	if err != nil {
		return models.Project{}, translate(err)
	}
	return p, nil
}

// Create persists a new project. When img is set the upload must succeed
// first; a failed upload leaves nothing written.
func (s *Service) Create(ctx context.Context, fields models.ProjectFields, img *Image) (models.Project, error) {
	if err := validate(fields); err != nil {
		return models.Project{}, err
	}
	id, err := s.newID()
	if err != nil {
		return models.Project{}, fmt.Errorf("generate project id: %w", err)
	}

	p := models.Project{
		ID:          id,
		DateCreated: s.now().UTC().Truncate(time.Millisecond),
	}
	fields.Apply(&p)

	if img != nil {
		asset, err := s.assets.Upload(ctx, img.Content, img.Filename)
		if err != nil {
			return models.Project{}, err
		}
		p.ImageURL = asset.URL
	}

	if err := s.store.InsertProject(ctx, p); err != nil {
		if p.ImageURL != "" {
			s.assets.Delete(ctx, p.ImageURL)
		}
		return models.Project{}, fmt.Errorf("insert project: %w", err)
	}
	s.logger.Info("project created", "id", p.ID, "title", p.Title)
	s.publish(EventCreated, p)
	return p, nil
}

// Update replaces the editable fields of a project. With a new image the
// upload happens first, the record is saved with the new URL, and only then
// is the previous image deleted. Without one the stored image URL is kept.
func (s *Service) Update(ctx context.Context, rawID string, fields models.ProjectFields, img *Image) (models.Project, error) {
	current, err := s.Get(ctx, rawID)
	if err != nil {
		return models.Project{}, err
	}
	if err := validate(fields); err != nil {
		return models.Project{}, err
	}

	updated := current
	fields.Apply(&updated)

	if img != nil {
		asset, err := s.assets.Upload(ctx, img.Content, img.Filename)
		if err != nil {
			return models.Project{}, err
		}
		updated.ImageURL = asset.URL
	}

	if err := s.store.UpdateProject(ctx, updated); err != nil {
		if img != nil {
			s.assets.Delete(ctx, updated.ImageURL)
		}
		return models.Project{}, translate(err)
	}

	if img != nil && current.ImageURL != "" && current.ImageURL != updated.ImageURL {
		s.assets.Delete(ctx, current.ImageURL)
	}
	s.logger.Info("project updated", "id", updated.ID, "new_image", img != nil)
	s.publish(EventUpdated, updated)
	return updated, nil
}

// Delete removes a project and, best-effort, its hosted image.
func (s *Service) Delete(ctx context.Context, rawID string) error {
	current, err := s.Get(ctx, rawID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteProject(ctx, current.ID); err != nil {
		return translate(err)
	}
	if current.ImageURL != "" {
		s.assets.Delete(ctx, current.ImageURL)
	}
	s.logger.Info("project deleted", "id", current.ID)
	s.publish(EventDeleted, map[string]string{"id": current.ID.String()})
	return nil
}

func (s *Service) publish(eventType string, payload any) {
	if s.publisher != nil {
		s.publisher.Publish(eventType, payload)
	}
}

func validate(fields models.ProjectFields) error {
	if strings.TrimSpace(fields.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalid)
	}
	return nil
}

func translate(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
