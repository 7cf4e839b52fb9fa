package reports

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/outboundhq/senderstack/interfaces"
	coreerrors "github.com/outboundhq/senderstack/internal/errors"
	"github.com/outboundhq/senderstack/internal/logger"
	"github.com/outboundhq/senderstack/internal/tracing"
)

// BillingReportService exports a per-workspace rollup of active sending
// accounts and their monthly pricing as CSV to object storage.
type BillingReportService struct {
	log          logger.Logger
	senderEmails interfaces.SenderEmailRepository
	storage      interfaces.StorageService
}

func NewBillingReportService(log logger.Logger, senderEmails interfaces.SenderEmailRepository, storage interfaces.StorageService) *BillingReportService {
	return &BillingReportService{
		log:          log,
		senderEmails: senderEmails,
		storage:      storage,
	}
}

// Generate builds the rollup CSV, uploads it and returns the storage key.
func (s *BillingReportService) Generate(ctx context.Context) (string, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "BillingReportService.Generate")
	defer span.Finish()
	tracing.TagComponentService(span)

	if s.storage == nil {
		return "", errors.Wrap(coreerrors.ErrNotConfigured, "object storage")
	}

	rollup, err := s.senderEmails.GetBillingRollup(ctx)
	if err != nil {
		tracing.TraceErr(span, err)
		return "", errors.Wrap(err, "failed to load billing rollup")
	}

	data, err := renderCSV(rollup)
	if err != nil {
		tracing.TraceErr(span, err)
		return "", err
	}

	key := fmt.Sprintf("billing/%s.csv", time.Now().UTC().Format("2006-01-02"))
	if err := s.storage.Upload(ctx, key, data, "text/csv"); err != nil {
		tracing.TraceErr(span, err)
		return "", errors.Wrap(err, "failed to upload billing report")
	}

	s.log.Infof("billing report uploaded: %s (%d workspaces)", key, len(rollup))
	span.SetTag("report.key", key)
	return key, nil
}

func renderCSV(rollup []interfaces.WorkspaceBillingRollup) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"workspace_id", "workspace_name", "active_accounts", "monthly_total"}); err != nil {
		return nil, errors.Wrap(err, "failed to write csv header")
	}
	for _, row := range rollup {
		record := []string{
			row.WorkspaceID,
			row.WorkspaceName,
			fmt.Sprintf("%d", row.ActiveAccounts),
			fmt.Sprintf("%.2f", row.MonthlyTotal),
		}
		if err := w.Write(record); err != nil {
			return nil, errors.Wrap(err, "failed to write csv record")
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, errors.Wrap(err, "failed to flush csv")
	}
	return buf.Bytes(), nil
}
