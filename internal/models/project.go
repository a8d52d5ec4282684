package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Project is a single portfolio entry.
type Project struct {
	ID           uuid.UUID `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Technologies []string  `json:"technologies"`
	ProjectURL   string    `json:"project_url"`
	GitHubURL    string    `json:"github_url"`
	ImageURL     string    `json:"image_url"`
	DateCreated  time.Time `json:"date_created"`
}

// ProjectFields holds the admin-editable part of a project.
type ProjectFields struct {
	Title        string
	Description  string
	Technologies []string
	ProjectURL   string
	GitHubURL    string
}

// Apply copies the editable fields onto p. ID, ImageURL and DateCreated are left alone.
func (f ProjectFields) Apply(p *Project) {
	p.Title = f.Title
	p.Description = f.Description
	p.Technologies = append([]string(nil), f.Technologies...)
	p.ProjectURL = f.ProjectURL
	p.GitHubURL = f.GitHubURL
}

// TechnologiesString joins the technology list back into the comma form used by the admin form.
func (p Project) TechnologiesString() string {
	return strings.Join(p.Technologies, ", ")
}
