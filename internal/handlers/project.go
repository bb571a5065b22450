package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/impactbridge/marketplace/internal/services"
	"github.com/impactbridge/marketplace/pkg/response"
)

type ProjectHandler struct {
	projectService *services.ProjectService
}

func NewProjectHandler(projectService *services.ProjectService) *ProjectHandler {
	return &ProjectHandler{projectService: projectService}
}

// List returns active projects, optionally filtered by pillar or country
// GET /api/projects
func (h *ProjectHandler) List(c *gin.Context) {
	var q services.ProjectListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.ValidationFailed(c, err)
		return
	}

	projects, err := h.projectService.List(c.Request.Context(), &q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, projects)
}

// GetByID returns a project by ID
// GET /api/projects/:id
func (h *ProjectHandler) GetByID(c *gin.Context) {
	id, ok := parseID(c, "id", "project")
	if !ok {
		return
	}

	project, err := h.projectService.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, project)
}

// Create creates a new project
// POST /api/projects
func (h *ProjectHandler) Create(c *gin.Context) {
	var req services.ProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationFailed(c, err)
		return
	}

	project, err := h.projectService.Create(c.Request.Context(), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, project)
}

// Update replaces a project's editable fields
// PUT /api/projects/:id
func (h *ProjectHandler) Update(c *gin.Context) {
	id, ok := parseID(c, "id", "project")
	if !ok {
		return
	}

	var req services.ProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationFailed(c, err)
		return
	}

	project, err := h.projectService.Update(c.Request.Context(), id, &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, project)
}

// Delete removes a project
// DELETE /api/projects/:id
func (h *ProjectHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id", "project")
	if !ok {
		return
	}

	if err := h.projectService.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"message": "Project deleted successfully"})
}

// Seed adds the sample catalogue
// POST /api/projects/seed
func (h *ProjectHandler) Seed(c *gin.Context) {
	projects, err := h.projectService.Seed(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, gin.H{
		"message":  "Sample projects created successfully",
		"projects": projects,
	})
}

// Donations lists donations made to a project
// GET /api/projects/:id/donations
func (h *ProjectHandler) Donations(c *gin.Context) {
	id, ok := parseID(c, "id", "project")
	if !ok {
		return
	}

	donations, err := h.projectService.Donations(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, donations)
}

// Impact lists a project's impact metrics
// GET /api/projects/:id/impact
func (h *ProjectHandler) Impact(c *gin.Context) {
	id, ok := parseID(c, "id", "project")
	if !ok {
		return
	}

	metrics, err := h.projectService.ImpactMetrics(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, metrics)
}

// RecordImpact adds an impact metric to a project
// POST /api/projects/:id/impact
func (h *ProjectHandler) RecordImpact(c *gin.Context) {
	id, ok := parseID(c, "id", "project")
	if !ok {
		return
	}

	var req services.CreateImpactMetricRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationFailed(c, err)
		return
	}

	metric, err := h.projectService.RecordImpact(c.Request.Context(), id, &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, metric)
}
