package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/outboundhq/senderstack/internal/models"
	"github.com/outboundhq/senderstack/internal/repository"
	"github.com/outboundhq/senderstack/internal/utils"
)

type stubWorkspaceRepo struct {
	workspaces []models.Workspace
}

func (s *stubWorkspaceRepo) GetActiveWorkspaces(ctx context.Context) ([]models.Workspace, error) {
	return s.workspaces, nil
}

func (s *stubWorkspaceRepo) GetByName(ctx context.Context, name string) (*models.Workspace, error) {
	for i := range s.workspaces {
		if s.workspaces[i].Name == name {
			return &s.workspaces[i], nil
		}
	}
	return nil, nil
}

func (s *stubWorkspaceRepo) ListAll(ctx context.Context) ([]models.Workspace, error) {
	return s.workspaces, nil
}

func workspacesTestRouter(repo *stubWorkspaceRepo) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewWorkspacesHandler(&repository.Repositories{WorkspaceRepository: repo})
	r := gin.New()
	r.GET("/v1/workspaces", h.ListWorkspaces())
	r.GET("/v1/workspaces/:name", h.GetWorkspace())
	return r
}

func TestGetWorkspace_ByName(t *testing.T) {
	repo := &stubWorkspaceRepo{workspaces: []models.Workspace{
		{ID: "wksp_1", Name: "acme", BisonWorkspaceID: 101, Active: true, APIKey: utils.StringPtr("dedicated")},
		{ID: "wksp_2", Name: "globex", BisonWorkspaceID: 102, Active: true},
	}}
	router := workspacesTestRouter(repo)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/workspaces/acme", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var record WorkspaceRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &record))
	require.Equal(t, "wksp_1", record.ID)
	require.Equal(t, 101, record.BisonWorkspaceID)
	require.True(t, record.DedicatedAPIKey)
	require.NotContains(t, w.Body.String(), "dedicated", "credentials must never leave the server")
}

func TestGetWorkspace_UnknownNameIs404(t *testing.T) {
	router := workspacesTestRouter(&stubWorkspaceRepo{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/workspaces/nope", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestListWorkspaces_MasksAPIKeys(t *testing.T) {
	repo := &stubWorkspaceRepo{workspaces: []models.Workspace{
		{ID: "wksp_1", Name: "acme", BisonWorkspaceID: 101, Active: true, APIKey: utils.StringPtr("super-secret")},
	}}
	router := workspacesTestRouter(repo)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/workspaces", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotContains(t, w.Body.String(), "super-secret")
}
