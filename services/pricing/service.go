package pricing

import (
	"math"
	"strings"

	"github.com/outboundhq/senderstack/internal/enum"
)

// Pricing is the per-account monthly price and the implied daily send limit
// for one sending account.
type Pricing struct {
	Price             float64
	DailySendingLimit int
}

// Calculate maps a sending account's provider/reseller/domain mailbox
// density to a price and daily limit. The table is fixed agency policy;
// provider and reseller names match case-insensitively.
//
// domainMailboxCounts must be computed once per workspace over the full
// account set. Recomputing it per account is quadratic on large workspaces.
func Calculate(provider, reseller, domain string, domainMailboxCounts map[string]int) Pricing {
	mailboxes := domainMailboxCounts[domain]

	r := strings.ToLower(strings.TrimSpace(reseller))
	p := strings.ToLower(strings.TrimSpace(provider))

	switch {
	case strings.Contains(r, enum.ResellerCheapInboxes.String()):
		return Pricing{Price: 3.00, DailySendingLimit: providerDailyLimit(p)}

	case r == enum.ResellerZapmail.String():
		return Pricing{Price: 3.00, DailySendingLimit: providerDailyLimit(p)}

	case r == enum.ResellerMailr.String():
		limit := 0
		if mailboxes > 0 {
			limit = int(math.Floor(495 / float64(mailboxes)))
		}
		return Pricing{Price: 0.91, DailySendingLimit: limit}

	case r == enum.ResellerScaledMail.String():
		price := 0.0
		if mailboxes > 0 {
			price = 50 / float64(mailboxes)
		}
		return Pricing{Price: price, DailySendingLimit: scaledMailDailyLimit(mailboxes)}
	}

	price := 0.0
	if p == enum.ProviderGoogle.String() || p == enum.ProviderGmail.String() {
		price = 3.00
	}

	return Pricing{Price: price, DailySendingLimit: providerDailyLimit(p)}
}

// scaledMailDailyLimit tiers the daily limit by mailbox density on the
// domain.
func scaledMailDailyLimit(mailboxes int) int {
	switch {
	case mailboxes >= 49:
		return 5
	case mailboxes >= 25:
		return 8
	case mailboxes > 0:
		return 5
	default:
		return 0
	}
}

func providerDailyLimit(provider string) int {
	switch provider {
	case enum.ProviderGoogle.String(), enum.ProviderGmail.String(),
		enum.ProviderMicrosoft.String(), enum.ProviderOutlook.String():
		return 20
	default:
		return 0
	}
}

// NeedsReview flags accounts that priced out to zero despite having a known
// provider, which means the table has no rule for their setup.
func NeedsReview(price float64, provider string) bool {
	return price == 0 && strings.TrimSpace(provider) != ""
}
