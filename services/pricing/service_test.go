package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculate_GoogleProvider(t *testing.T) {
	got := Calculate("google", "", "x.com", map[string]int{"x.com": 1})

	assert.Equal(t, 3.00, got.Price)
	assert.Equal(t, 20, got.DailySendingLimit)
}

func TestCalculate_ProviderDailyLimits(t *testing.T) {
	counts := map[string]int{"x.com": 1}

	for _, provider := range []string{"google", "gmail", "microsoft", "outlook"} {
		got := Calculate(provider, "", "x.com", counts)
		assert.Equal(t, 20, got.DailySendingLimit, "provider %s", provider)
	}

	got := Calculate("smtp", "", "x.com", counts)
	assert.Equal(t, 0, got.DailySendingLimit)
	assert.Equal(t, 0.0, got.Price)
}

func TestCalculate_ScaledMail(t *testing.T) {
	got := Calculate("", "scaledmail", "y.com", map[string]int{"y.com": 30})

	assert.InDelta(t, 50.0/30.0, got.Price, 0.0001)
	assert.Equal(t, 8, got.DailySendingLimit)
}

func TestCalculate_ScaledMailTiers(t *testing.T) {
	cases := []struct {
		mailboxes int
		limit     int
	}{
		{60, 5},
		{49, 5},
		{30, 8},
		{25, 8},
		{10, 5},
		{1, 5},
	}

	for _, tc := range cases {
		got := Calculate("", "scaledmail", "y.com", map[string]int{"y.com": tc.mailboxes})
		assert.Equal(t, tc.limit, got.DailySendingLimit, "%d mailboxes", tc.mailboxes)
	}
}

func TestCalculate_Mailr(t *testing.T) {
	got := Calculate("", "mailr", "z.com", map[string]int{"z.com": 5})

	assert.Equal(t, 0.91, got.Price)
	assert.Equal(t, 99, got.DailySendingLimit)
}

func TestCalculate_ResellerMatchingIsCaseInsensitive(t *testing.T) {
	got := Calculate("", "ZapMail", "a.com", map[string]int{"a.com": 2})
	assert.Equal(t, 3.00, got.Price)

	got = Calculate("", "CheapInboxes US", "a.com", map[string]int{"a.com": 2})
	assert.Equal(t, 3.00, got.Price)
}

func TestCalculate_UnknownSetup(t *testing.T) {
	got := Calculate("", "", "a.com", map[string]int{"a.com": 2})

	assert.Equal(t, 0.0, got.Price)
	assert.Equal(t, 0, got.DailySendingLimit)
}

func TestNeedsReview(t *testing.T) {
	assert.True(t, NeedsReview(0, "smtp"))
	assert.False(t, NeedsReview(0, ""))
	assert.False(t, NeedsReview(3.00, "google"))
}
