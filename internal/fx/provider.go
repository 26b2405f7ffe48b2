package fx

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/fintrack/ledger-engine/internal/config"
)

// RateProvider returns the multiplier that converts one unit of from into to.
type RateProvider interface {
	Rate(ctx context.Context, from, to string) (float64, error)
}

// ErrRateUnavailable is returned when no exchange rate could be obtained
// for a currency pair.
type ErrRateUnavailable struct {
	From string
	To   string
	Err  error
}

func (e ErrRateUnavailable) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("exchange rate %s->%s unavailable: %v", e.From, e.To, e.Err)
	}
	return fmt.Sprintf("exchange rate %s->%s unavailable", e.From, e.To)
}

func (e ErrRateUnavailable) Unwrap() error { return e.Err }

// HTTPRateProvider fetches exchange rates from an open.er-api.com compatible
// endpoint (GET {base}/latest/{from} returning a rates map keyed by currency).
type HTTPRateProvider struct {
	logger  *slog.Logger
	client  *http.Client
	baseURL string
}

// NewHTTPRateProvider creates a provider backed by the configured rates API
func NewHTTPRateProvider(logger *slog.Logger, cfg *config.RatesConfig) *HTTPRateProvider {
	return &HTTPRateProvider{
		logger:  logger,
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: cfg.BaseURL,
	}
}

type ratesResponse struct {
	Result string             `json:"result"`
	Base   string             `json:"base_code"`
	Rates  map[string]float64 `json:"rates"`
}

// Rate fetches the from->to multiplier. Network and decode failures are
// wrapped in ErrRateUnavailable so callers can apply their fallback policy.
func (p *HTTPRateProvider) Rate(ctx context.Context, from, to string) (float64, error) {
	url := fmt.Sprintf("%s/latest/%s", p.baseURL, from)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, ErrRateUnavailable{From: from, To: to, Err: err}
	}

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Warn("Rate lookup failed", "from", from, "to", to, "error", err)
		return 0, ErrRateUnavailable{From: from, To: to, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		p.logger.Warn("Rate lookup returned non-OK status",
			"from", from,
			"to", to,
			"status", resp.StatusCode,
		)
		return 0, ErrRateUnavailable{From: from, To: to, Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	var body ratesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, ErrRateUnavailable{From: from, To: to, Err: err}
	}

	rate, ok := body.Rates[to]
	if !ok || rate <= 0 {
		return 0, ErrRateUnavailable{From: from, To: to, Err: fmt.Errorf("pair not quoted")}
	}

	p.logger.Debug("Fetched exchange rate",
		"from", from,
		"to", to,
		"rate", rate,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return rate, nil
}
