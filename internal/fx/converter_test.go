package fx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubProvider returns canned rates and counts lookups
type stubProvider struct {
	rates map[string]float64 // keyed "FROM:TO"
	calls int
}

func (p *stubProvider) Rate(_ context.Context, from, to string) (float64, error) {
	p.calls++
	rate, ok := p.rates[from+":"+to]
	if !ok {
		return 0, ErrRateUnavailable{From: from, To: to}
	}
	return rate, nil
}

func TestSession_SameCurrencyShortcut(t *testing.T) {
	provider := &stubProvider{}
	session := NewConverter(provider).NewSession()

	converted, rate, err := session.Convert(context.Background(), 12345, "USD", "USD")
	require.NoError(t, err)
	assert.Equal(t, int64(12345), converted)
	assert.Equal(t, 1.0, rate)
	assert.Equal(t, 0, provider.calls, "identical currencies must not hit the provider")
}

func TestSession_CachesPairs(t *testing.T) {
	provider := &stubProvider{rates: map[string]float64{"EUR:USD": 1.1, "GBP:USD": 1.25}}
	session := NewConverter(provider).NewSession()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _, err := session.Convert(ctx, 1000, "EUR", "USD")
		require.NoError(t, err)
	}
	_, _, err := session.Convert(ctx, 1000, "GBP", "USD")
	require.NoError(t, err)

	assert.Equal(t, 2, provider.calls, "each pair fetched at most once per session")
}

func TestSession_NewSessionResetsCache(t *testing.T) {
	provider := &stubProvider{rates: map[string]float64{"EUR:USD": 1.1}}
	converter := NewConverter(provider)
	ctx := context.Background()

	_, _, err := converter.NewSession().Convert(ctx, 1000, "EUR", "USD")
	require.NoError(t, err)
	_, _, err = converter.NewSession().Convert(ctx, 1000, "EUR", "USD")
	require.NoError(t, err)

	assert.Equal(t, 2, provider.calls)
}

func TestSession_Rounding(t *testing.T) {
	provider := &stubProvider{rates: map[string]float64{"EUR:USD": 1.0849, "USD:JPY": 0.333}}
	session := NewConverter(provider).NewSession()
	ctx := context.Background()

	converted, rate, err := session.Convert(ctx, 1000, "EUR", "USD")
	require.NoError(t, err)
	assert.Equal(t, int64(1085), converted) // 1084.9 rounds up
	assert.Equal(t, 1.0849, rate)

	converted, _, err = session.Convert(ctx, 100, "USD", "JPY")
	require.NoError(t, err)
	assert.Equal(t, int64(33), converted) // 33.3 rounds down
}

func TestSession_CaseInsensitiveCurrencies(t *testing.T) {
	provider := &stubProvider{rates: map[string]float64{"EUR:USD": 2.0}}
	session := NewConverter(provider).NewSession()

	converted, _, err := session.Convert(context.Background(), 100, "eur", "usd")
	require.NoError(t, err)
	assert.Equal(t, int64(200), converted)
}

func TestSession_RateUnavailable(t *testing.T) {
	provider := &stubProvider{}
	session := NewConverter(provider).NewSession()

	_, _, err := session.Convert(context.Background(), 100, "EUR", "USD")
	require.Error(t, err)

	var unavailable ErrRateUnavailable
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, "EUR", unavailable.From)
	assert.Equal(t, "USD", unavailable.To)

	// Failures are not cached; the next call retries the provider.
	_, _, err = session.Convert(context.Background(), 100, "EUR", "USD")
	require.Error(t, err)
	assert.Equal(t, 2, provider.calls)
}
