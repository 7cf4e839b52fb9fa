package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"

	"github.com/outboundhq/senderstack/interfaces"
	coreerrors "github.com/outboundhq/senderstack/internal/errors"
	"github.com/outboundhq/senderstack/internal/models"
	"github.com/outboundhq/senderstack/internal/repository"
	"github.com/outboundhq/senderstack/internal/tracing"
)

type WorkspaceRecord struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	BisonWorkspaceID int    `json:"bisonWorkspaceId"`
	Active           bool   `json:"active"`
	DedicatedAPIKey  bool   `json:"dedicatedApiKey"`
}

type WorkspacesHandler struct {
	workspaceRepository interfaces.WorkspaceRepository
}

func NewWorkspacesHandler(repos *repository.Repositories) *WorkspacesHandler {
	return &WorkspacesHandler{workspaceRepository: repos.WorkspaceRepository}
}

// ListWorkspaces returns the workspace registry. API keys never leave the
// server; only whether a dedicated one exists is exposed.
func (h *WorkspacesHandler) ListWorkspaces() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "ListWorkspaces")
		defer span.Finish()
		tracing.TagComponentRest(span)

		workspaces, err := h.workspaceRepository.ListAll(ctx)
		if err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list workspaces"})
			return
		}

		records := make([]WorkspaceRecord, 0, len(workspaces))
		for i := range workspaces {
			records = append(records, toWorkspaceRecord(&workspaces[i]))
		}

		c.JSON(http.StatusOK, gin.H{"workspaces": records})
	}
}

// GetWorkspace looks up a single workspace by its business name.
func (h *WorkspacesHandler) GetWorkspace() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "GetWorkspace")
		defer span.Finish()
		tracing.TagComponentRest(span)

		workspace, err := h.workspaceRepository.GetByName(ctx, c.Param("name"))
		if err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load workspace"})
			return
		}
		if workspace == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": coreerrors.ErrWorkspaceNotFound.Error()})
			return
		}

		c.JSON(http.StatusOK, toWorkspaceRecord(workspace))
	}
}

func toWorkspaceRecord(workspace *models.Workspace) WorkspaceRecord {
	return WorkspaceRecord{
		ID:               workspace.ID,
		Name:             workspace.Name,
		BisonWorkspaceID: workspace.BisonWorkspaceID,
		Active:           workspace.Active,
		DedicatedAPIKey:  workspace.HasDedicatedAPIKey(),
	}
}
