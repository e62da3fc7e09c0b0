package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tasktracker/internal/service"
)

type projectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Status      string `json:"status"`
}

// handleListProjects returns all projects with progress and member counts.
func (s *Server) handleListProjects(c *gin.Context) {
	projects, err := s.tracker.ListProjects(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, projects)
}

// handleGetProject returns one project or 404.
func (s *Server) handleGetProject(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	project, err := s.tracker.GetProject(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

// handleCreateProject creates a project owned by the acting user.
func (s *Server) handleCreateProject(c *gin.Context) {
	var req projectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, "invalid request body")
		return
	}

	project, err := s.tracker.CreateProject(c.Request.Context(), service.ProjectInput{
		Name:        req.Name,
		Description: req.Description,
		Status:      req.Status,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, project)
}

// handleListMembers returns the members of a project.
func (s *Server) handleListMembers(c *gin.Context) {
	projectID, ok := parseID(c, "id")
	if !ok {
		return
	}
	members, err := s.tracker.ListMembers(c.Request.Context(), projectID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, members)
}
