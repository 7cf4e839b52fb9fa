package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"

	"github.com/outboundhq/senderstack/interfaces"
	"github.com/outboundhq/senderstack/internal/tracing"
)

type SyncHandler struct {
	syncService interfaces.SyncService
}

func NewSyncHandler(syncService interfaces.SyncService) *SyncHandler {
	return &SyncHandler{syncService: syncService}
}

// TriggerSync runs one batch of the sender-email sync. With auto_chained
// the remaining batches continue in the background after this one returns.
func (h *SyncHandler) TriggerSync() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "TriggerSync")
		defer span.Finish()
		tracing.TagComponentRest(span)

		var req interfaces.SyncBatchRequest
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				tracing.TraceErr(span, err)
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
		}

		if req.BatchOffset < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "batch_offset must not be negative"})
			return
		}

		result := h.syncService.RunBatch(ctx, req)
		if !result.Success {
			c.JSON(http.StatusInternalServerError, result)
			return
		}

		c.JSON(http.StatusOK, result)
	}
}
