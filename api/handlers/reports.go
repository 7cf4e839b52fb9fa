package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"

	"github.com/outboundhq/senderstack/internal/tracing"
	"github.com/outboundhq/senderstack/services/reports"
)

type ReportsHandler struct {
	billingReportService *reports.BillingReportService
}

func NewReportsHandler(billingReportService *reports.BillingReportService) *ReportsHandler {
	return &ReportsHandler{billingReportService: billingReportService}
}

// GenerateBillingReport builds and uploads the billing CSV export
func (h *ReportsHandler) GenerateBillingReport() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := opentracing.StartSpanFromContext(c.Request.Context(), "GenerateBillingReport")
		defer span.Finish()
		tracing.TagComponentRest(span)

		key, err := h.billingReportService.Generate(ctx)
		if err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"key": key})
	}
}
