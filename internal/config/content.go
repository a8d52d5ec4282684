package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// SiteContent is the editable copy shown on the public pages.
type SiteContent struct {
	Name    string `yaml:"name"`
	Tagline string `yaml:"tagline"`
	About   string `yaml:"about"`
	Email   string `yaml:"email"`
	Links   []Link `yaml:"links"`
	Tools   []Tool `yaml:"tools"`
}

// Link is a social or profile link rendered in the footer.
type Link struct {
	Label string `yaml:"label"`
	URL   string `yaml:"url"`
}

// Tool is one entry on the tools page.
type Tool struct {
	Name        string `yaml:"name"`
	Category    string `yaml:"category"`
	URL         string `yaml:"url"`
	Description string `yaml:"description"`
}

// DefaultSiteContent is used when no content file exists.
func DefaultSiteContent() SiteContent {
	return SiteContent{
		Name:    "Portfolio",
		Tagline: "Projects, notes and tools.",
		About:   "Developer building for the web.",
		Tools: []Tool{
			{Name: "Go", Category: "Language", URL: "https://go.dev"},
			{Name: "PostgreSQL", Category: "Database", URL: "https://www.postgresql.org"},
		},
	}
}

// LoadSiteContent reads site copy from a YAML file. A missing file yields the
// defaults; blank fields in the file fall back to the default values.
func LoadSiteContent(path string) (SiteContent, error) {
	content := DefaultSiteContent()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return content, nil
		}
		return content, fmt.Errorf("read site content: %w", err)
	}

	var parsed SiteContent
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return content, fmt.Errorf("parse site content %s: %w", path, err)
	}
	if parsed.Name == "" {
		parsed.Name = content.Name
	}
	if parsed.Tagline == "" {
		parsed.Tagline = content.Tagline
	}
	if parsed.About == "" {
		parsed.About = content.About
	}
	if parsed.Tools == nil {
		parsed.Tools = content.Tools
	}
	return parsed, nil
}
