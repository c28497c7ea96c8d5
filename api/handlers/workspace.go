package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/emmetthe/interactive-db/internal/model"
	"github.com/emmetthe/interactive-db/internal/workspace"
)

// ActivityLister reads recorded workspace activity.
type ActivityLister interface {
	ListByWorkspace(ctx context.Context, workspaceID string, limit int) ([]*model.Activity, error)
}

// WorkspaceHandler serves read-only introspection of active workspaces.
type WorkspaceHandler struct {
	registry *workspace.Registry
	activity ActivityLister
}

// NewWorkspaceHandler creates a new WorkspaceHandler. activity may be nil
// when the activity log is disabled.
func NewWorkspaceHandler(registry *workspace.Registry, activity ActivityLister) *WorkspaceHandler {
	return &WorkspaceHandler{
		registry: registry,
		activity: activity,
	}
}

// WorkspaceResponse is the detail view of an active workspace.
type WorkspaceResponse struct {
	ID    string               `json:"id"`
	State model.WorkspaceState `json:"state"`
	Users []model.User         `json:"users"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error details.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// List handles GET /api/workspaces.
func (h *WorkspaceHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"workspaces": h.registry.List(),
	})
}

// Get handles GET /api/workspaces/:id. It never creates a workspace.
func (h *WorkspaceHandler) Get(c *gin.Context) {
	id := c.Param("id")
	ws, err := h.registry.Lookup(id)
	if err != nil {
		if errors.Is(err, model.ErrWorkspaceNotFound) {
			sendError(c, http.StatusNotFound, "WORKSPACE_NOT_FOUND", "Workspace "+id+" not found")
			return
		}
		sendError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to get workspace: "+err.Error())
		return
	}

	c.JSON(http.StatusOK, WorkspaceResponse{
		ID:    ws.ID(),
		State: ws.Snapshot(),
		Users: ws.Users(),
	})
}

// Activity handles GET /api/workspaces/:id/activity.
func (h *WorkspaceHandler) Activity(c *gin.Context) {
	if h.activity == nil {
		sendError(c, http.StatusNotFound, "ACTIVITY_LOG_DISABLED", "Activity log is not enabled")
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			sendError(c, http.StatusBadRequest, "VALIDATION_ERROR", "limit must be a positive integer")
			return
		}
		limit = n
	}

	activities, err := h.activity.ListByWorkspace(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		sendError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list activity: "+err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"activity": activities,
	})
}

// RegisterRoutes registers the workspace routes on a Gin router group.
func (h *WorkspaceHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/workspaces", h.List)
	rg.GET("/workspaces/:id", h.Get)
	rg.GET("/workspaces/:id/activity", h.Activity)
}

// sendError sends an error response with the appropriate status code.
func sendError(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}
