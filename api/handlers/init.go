package handlers

import (
	"github.com/outboundhq/senderstack/internal/repository"
	"github.com/outboundhq/senderstack/services"
)

type APIHandlers struct {
	Sync       *SyncHandler
	Jobs       *JobsHandler
	Workspaces *WorkspacesHandler
	Reports    *ReportsHandler
}

func InitHandlers(r *repository.Repositories, s *services.Services) *APIHandlers {
	return &APIHandlers{
		Sync:       NewSyncHandler(s.SyncService),
		Jobs:       NewJobsHandler(r),
		Workspaces: NewWorkspacesHandler(r),
		Reports:    NewReportsHandler(s.BillingReportService),
	}
}
