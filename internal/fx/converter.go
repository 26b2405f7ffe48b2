package fx

import (
	"context"
	"math"
	"strings"
)

// Converter converts minor-unit amounts between currencies.
type Converter struct {
	provider RateProvider
}

// NewConverter creates a converter on top of a rate provider
func NewConverter(provider RateProvider) *Converter {
	return &Converter{provider: provider}
}

// NewSession starts a conversion session. A session caches every looked-up
// pair for its lifetime, so a multi-account computation hits the provider at
// most once per distinct (from, to) pair.
func (c *Converter) NewSession() *Session {
	return &Session{
		provider: c.provider,
		rates:    make(map[pairKey]float64),
	}
}

type pairKey struct {
	from string
	to   string
}

// Session is a single-use rate cache. It is not safe for concurrent use.
type Session struct {
	provider RateProvider
	rates    map[pairKey]float64
}

// Rate returns the from->to multiplier, consulting the provider only on a
// cache miss. Identical currencies short-circuit to 1.0 without a lookup.
func (s *Session) Rate(ctx context.Context, from, to string) (float64, error) {
	from = strings.ToUpper(from)
	to = strings.ToUpper(to)
	if from == to {
		return 1.0, nil
	}

	key := pairKey{from: from, to: to}
	if rate, ok := s.rates[key]; ok {
		return rate, nil
	}

	rate, err := s.provider.Rate(ctx, from, to)
	if err != nil {
		return 0, err
	}
	s.rates[key] = rate
	return rate, nil
}

// Convert converts a minor-unit amount and reports the rate applied.
// Rounding is half-away-from-zero on the scaled value.
func (s *Session) Convert(ctx context.Context, amount int64, from, to string) (int64, float64, error) {
	rate, err := s.Rate(ctx, from, to)
	if err != nil {
		return 0, 0, err
	}
	if rate == 1.0 {
		return amount, rate, nil
	}
	return int64(math.Round(float64(amount) * rate)), rate, nil
}
