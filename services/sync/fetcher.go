package sync

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/opentracing/opentracing-go"
	tracingLog "github.com/opentracing/opentracing-go/log"
	"github.com/pkg/errors"

	"github.com/outboundhq/senderstack/interfaces"
	"github.com/outboundhq/senderstack/internal/enum"
	coreerrors "github.com/outboundhq/senderstack/internal/errors"
	"github.com/outboundhq/senderstack/internal/models"
	"github.com/outboundhq/senderstack/internal/tracing"
	"github.com/outboundhq/senderstack/internal/utils"
	"github.com/outboundhq/senderstack/services/pricing"
)

// pricingGroup identifies one set of accounts that price identically once
// the workspace's domain mailbox counts are known.
type pricingGroup struct {
	domain   string
	provider string
	reseller string
}

// fetchResult is what a completed workspace pagination leaves behind: the
// seen IDs for reconciliation and the aggregates for the final pricing
// pass. Full account records are never buffered.
type fetchResult struct {
	fetchedIDs      map[int64]struct{}
	accountsFetched int
	pageCount       int
	domainCounts    map[string]int
	pricingGroups   map[pricingGroup]struct{}
}

var knownProviders = []string{
	enum.ProviderGoogle.String(),
	enum.ProviderGmail.String(),
	enum.ProviderMicrosoft.String(),
	enum.ProviderOutlook.String(),
	enum.ProviderSMTP.String(),
}

var knownResellers = []string{
	enum.ResellerCheapInboxes.String(),
	enum.ResellerZapmail.String(),
	enum.ResellerMailr.String(),
	enum.ResellerScaledMail.String(),
}

// fetchWorkspaceAccounts paginates one workspace's sender-email listing,
// streaming every page through transform and chunked upsert. Pagination
// follows the next link, falling back to current_page+1 from the metadata,
// and stops on an empty page, a missing next page, or the safety ceiling.
func (s *Service) fetchWorkspaceAccounts(ctx context.Context, workspace *models.Workspace) (*fetchResult, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "SyncService.fetchWorkspaceAccounts")
	defer span.Finish()
	tracing.TagComponentService(span)
	tracing.TagWorkspace(span, workspace.Name)

	client := s.bison.ClientForAPIKey(utils.GetOrDefault(workspace.APIKey, ""))

	// Shared credentials carry workspace state on the Bison side and need
	// an explicit switch; dedicated credentials are already scoped.
	if !workspace.HasDedicatedAPIKey() {
		if err := client.SwitchWorkspace(ctx, workspace.BisonWorkspaceID); err != nil {
			return nil, errors.Wrapf(err, "failed to switch to workspace %s", workspace.Name)
		}
	}

	result := &fetchResult{
		fetchedIDs:    make(map[int64]struct{}),
		domainCounts:  make(map[string]int),
		pricingGroups: make(map[pricingGroup]struct{}),
	}

	instance := s.bison.Instance()
	pageNum := 1

	for {
		if result.pageCount >= s.cfg.MaxPages {
			s.log.Warnf("[%s] %v after %d pages, stopping pagination", workspace.Name, coreerrors.ErrPageLimitExceeded, s.cfg.MaxPages)
			span.LogFields(tracingLog.Int("page_ceiling", s.cfg.MaxPages))
			break
		}

		page, err := client.ListSenderEmails(ctx, pageNum, s.cfg.PageSize)
		if err != nil {
			tracing.TraceErr(span, err)
			return nil, errors.Wrapf(err, "failed to fetch page %d for workspace %s", pageNum, workspace.Name)
		}
		result.pageCount++

		if len(page.Data) == 0 {
			break
		}

		if err := s.upsertPage(ctx, workspace, instance, page.Data, result); err != nil {
			tracing.TraceErr(span, err)
			return nil, err
		}

		hasNext := page.Links.Next != nil ||
			(page.Meta.LastPage > 0 && page.Meta.CurrentPage < page.Meta.LastPage)
		if !hasNext {
			break
		}

		if page.Meta.CurrentPage > 0 {
			pageNum = page.Meta.CurrentPage + 1
		} else {
			pageNum++
		}
	}

	// Final pricing pass: prices that depend on domain mailbox density can
	// only be settled once the whole workspace has been paginated.
	if err := s.applyFinalPricing(ctx, workspace, instance, result); err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	span.SetTag("accounts.fetched", result.accountsFetched)
	span.SetTag("pages", result.pageCount)
	return result, nil
}

// upsertPage transforms one page of upstream accounts and writes them in
// chunks, keeping only IDs and pricing aggregates in memory.
func (s *Service) upsertPage(ctx context.Context, workspace *models.Workspace, instance string, accounts []interfaces.BisonSenderEmail, result *fetchResult) error {
	now := time.Now()
	rows := make([]models.SenderEmail, 0, len(accounts))

	for _, acct := range accounts {
		provider, reseller := extractTags(acct.Tags)
		domain := utils.ExtractDomainFromEmail(acct.Email)

		result.fetchedIDs[acct.ID] = struct{}{}
		if domain != "" {
			result.domainCounts[domain]++
		}
		result.pricingGroups[pricingGroup{domain: domain, provider: provider, reseller: reseller}] = struct{}{}

		// Provisional price from the counts seen so far; corrected by the
		// final pricing pass after pagination completes.
		p := pricing.Calculate(provider, reseller, domain, result.domainCounts)

		rows = append(rows, models.SenderEmail{
			BisonAccountID:      acct.ID,
			BisonInstance:       instance,
			WorkspaceID:         workspace.ID,
			WorkspaceName:       workspace.Name,
			Email:               acct.Email,
			Status:              acct.Status,
			EmailsSent:          acct.EmailsSent,
			UniqueReplied:       acct.UniqueRepliedCount,
			Bounced:             acct.BouncedCount,
			Unsubscribed:        acct.UnsubscribedCount,
			Opened:              acct.OpenedCount,
			TotalLeadsContacted: acct.TotalLeadsContacted,
			DailyLimit:          firstNonZero(p.DailySendingLimit, acct.DailyLimit),
			ReplyRate:           replyRate(acct.UniqueRepliedCount, acct.EmailsSent),
			Provider:            provider,
			Reseller:            reseller,
			Domain:              domain,
			Price:               p.Price,
			PricingNeedsReview:  pricing.NeedsReview(p.Price, provider),
			LastSyncedAt:        &now,
		})
	}
	result.accountsFetched += len(accounts)

	for start := 0; start < len(rows); start += s.cfg.UpsertChunkSize {
		end := start + s.cfg.UpsertChunkSize
		if end > len(rows) {
			end = len(rows)
		}
		if err := s.repos.SenderEmailRepository.UpsertBatch(ctx, rows[start:end]); err != nil {
			return errors.Wrapf(err, "failed to upsert accounts for workspace %s", workspace.Name)
		}
	}

	return nil
}

// applyFinalPricing settles each pricing group with the complete domain
// counts, one UPDATE per group.
func (s *Service) applyFinalPricing(ctx context.Context, workspace *models.Workspace, instance string, result *fetchResult) error {
	for group := range result.pricingGroups {
		p := pricing.Calculate(group.provider, group.reseller, group.domain, result.domainCounts)
		err := s.repos.SenderEmailRepository.ApplyDomainPricing(
			ctx,
			workspace.ID,
			instance,
			group.domain,
			group.provider,
			group.reseller,
			p.Price,
			p.DailySendingLimit,
			pricing.NeedsReview(p.Price, group.provider),
		)
		if err != nil {
			return errors.Wrapf(err, "failed to apply pricing for domain %s", group.domain)
		}
	}
	return nil
}

// extractTags pulls the provider and reseller names out of the upstream
// account tags.
func extractTags(tags []interfaces.BisonTag) (provider string, reseller string) {
	for _, tag := range tags {
		name := strings.ToLower(strings.TrimSpace(tag.Name))
		if name == "" {
			continue
		}
		if provider == "" {
			for _, known := range knownProviders {
				if name == known {
					provider = name
					break
				}
			}
		}
		if reseller == "" {
			for _, known := range knownResellers {
				if strings.Contains(name, known) {
					reseller = name
					break
				}
			}
		}
	}
	return provider, reseller
}

// replyRate is unique replies over emails sent as a percentage, two
// decimals, zero when nothing was sent.
func replyRate(uniqueReplied, emailsSent int64) float64 {
	if emailsSent <= 0 {
		return 0
	}
	return math.Round(float64(uniqueReplied)/float64(emailsSent)*100*100) / 100
}

func firstNonZero(values ...int) int {
	for _, v := range values {
		if v != 0 {
			return v
		}
	}
	return 0
}
