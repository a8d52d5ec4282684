package web

import "portfolio-site/internal/models"

// ProjectForm feeds the admin add/edit page. Project is zero on add.
type ProjectForm struct {
	Heading string
	Action  string
	Project models.Project
}
