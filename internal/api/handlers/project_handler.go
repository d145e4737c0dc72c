package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Marga-Ghale/ora-discuss/internal/api/middleware"
	"github.com/Marga-Ghale/ora-discuss/internal/models"
	"github.com/Marga-Ghale/ora-discuss/internal/service"
)

type ProjectHandler struct {
	projectService service.ProjectService
}

// List returns the projects the caller leads or belongs to.
func (h *ProjectHandler) List(c *gin.Context) {
	identity, ok := middleware.RequireIdentity(c)
	if !ok {
		return
	}

	projects, err := h.projectService.ListForUser(c.Request.Context(), identity.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, projects)
}

func (h *ProjectHandler) Get(c *gin.Context) {
	identity, ok := middleware.RequireIdentity(c)
	if !ok {
		return
	}

	project, err := h.projectService.Get(c.Request.Context(), c.Param("id"), identity.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

// PatchColumns replaces the kanban board of a project.
func (h *ProjectHandler) PatchColumns(c *gin.Context) {
	identity, ok := middleware.RequireIdentity(c)
	if !ok {
		return
	}

	var req models.PatchColumnsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	project, err := h.projectService.PatchColumns(c.Request.Context(), c.Param("id"), identity.ID, req.Columns)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, project)
}
