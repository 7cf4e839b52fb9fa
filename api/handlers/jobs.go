package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"

	"github.com/outboundhq/senderstack/interfaces"
	coreerrors "github.com/outboundhq/senderstack/internal/errors"
	"github.com/outboundhq/senderstack/internal/repository"
	"github.com/outboundhq/senderstack/internal/tracing"
)

type JobsHandler struct {
	syncJobRepository      interfaces.SyncJobRepository
	syncProgressRepository interfaces.SyncProgressRepository
}

func NewJobsHandler(repos *repository.Repositories) *JobsHandler {
	return &JobsHandler{
		syncJobRepository:      repos.SyncJobRepository,
		syncProgressRepository: repos.SyncProgressRepository,
	}
}

// GetJob returns a single sync job by id
func (h *JobsHandler) GetJob() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "GetJob")
		defer span.Finish()
		tracing.TagComponentRest(span)

		jobID := c.Param("id")
		tracing.TagJobId(span, jobID)

		job, err := h.syncJobRepository.GetByID(ctx, jobID)
		if err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load sync job"})
			return
		}
		if job == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": coreerrors.ErrSyncJobNotFound.Error()})
			return
		}

		c.JSON(http.StatusOK, job)
	}
}

// ListJobs returns the most recent sync jobs
func (h *JobsHandler) ListJobs() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "ListJobs")
		defer span.Finish()
		tracing.TagComponentRest(span)

		limit := 20
		if raw := c.Query("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 1 || parsed > 100 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 100"})
				return
			}
			limit = parsed
		}

		jobs, err := h.syncJobRepository.ListRecent(ctx, limit)
		if err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list sync jobs"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"jobs": jobs})
	}
}

// GetProgress returns the live progress projection for a job
func (h *JobsHandler) GetProgress() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "GetProgress")
		defer span.Finish()
		tracing.TagComponentRest(span)

		jobID := c.Param("id")
		tracing.TagJobId(span, jobID)

		progress, err := h.syncProgressRepository.GetByJobID(ctx, jobID)
		if err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load sync progress"})
			return
		}
		if progress == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "sync progress not found"})
			return
		}

		c.JSON(http.StatusOK, progress)
	}
}
