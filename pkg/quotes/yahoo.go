package quotes

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/piquette/finance-go/equity"
	"github.com/rs/zerolog"

	"smartwealth/pkg/discovery"
)

const quoteSummaryBase = "https://query1.finance.yahoo.com/v10/finance/quoteSummary"

// YahooSource fetches live quotes from Yahoo Finance. Price fields
// come from the quote API; sector and industry need a second call to
// the quoteSummary asset profile, whose failure is tolerated because
// the relevance filter accepts records without a sector.
type YahooSource struct {
	httpClient *http.Client
	baseURL    string
	log        zerolog.Logger
}

// NewYahooSource creates a Yahoo-backed quote source.
func NewYahooSource(timeout time.Duration, log zerolog.Logger) *YahooSource {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &YahooSource{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    quoteSummaryBase,
		log:        log.With().Str("component", "yahoo_quotes").Logger(),
	}
}

// GetQuote fetches one symbol's live trading snapshot.
func (y *YahooSource) GetQuote(ctx context.Context, symbol string) (*discovery.QuoteRecord, error) {
	q, err := equity.Get(symbol)
	if err != nil {
		return nil, fmt.Errorf("yahoo quote for %s failed: %w", symbol, err)
	}
	if q == nil {
		return nil, fmt.Errorf("yahoo returned no quote for %s", symbol)
	}

	name := q.LongName
	if name == "" {
		name = q.ShortName
	}

	record := &discovery.QuoteRecord{
		Ticker:         q.Symbol,
		Name:           name,
		CurrentPrice:   q.RegularMarketPrice,
		PriceChangePct: q.RegularMarketChangePercent,
		MarketCap:      float64(q.MarketCap),
		Volume:         int64(q.RegularMarketVolume),
		AvgVolume:      int64(q.AverageDailyVolume3Month),
		FetchedAt:      time.Now(),
	}
	if q.EpsTrailingTwelveMonths > 0 && q.RegularMarketPrice > 0 {
		record.PERatio = q.RegularMarketPrice / q.EpsTrailingTwelveMonths
	}

	sector, industry, err := y.fetchProfile(ctx, symbol)
	if err != nil {
		y.log.Debug().Err(err).Str("ticker", symbol).Msg("asset profile unavailable")
	} else {
		record.Sector = sector
		record.Industry = industry
	}

	return record, nil
}

type quoteSummaryResponse struct {
	QuoteSummary struct {
		Result []struct {
			AssetProfile struct {
				Sector   string `json:"sector"`
				Industry string `json:"industry"`
			} `json:"assetProfile"`
		} `json:"result"`
		Error *struct {
			Description string `json:"description"`
		} `json:"error"`
	} `json:"quoteSummary"`
}

// fetchProfile retrieves sector and industry classification from the
// quoteSummary assetProfile module.
func (y *YahooSource) fetchProfile(ctx context.Context, symbol string) (sector, industry string, err error) {
	url := fmt.Sprintf("%s/%s?modules=assetProfile", y.baseURL, symbol)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", "", fmt.Errorf("failed to create profile request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := y.httpClient.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("profile request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("profile request returned status %d", resp.StatusCode)
	}

	var payload quoteSummaryResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", "", fmt.Errorf("failed to decode profile response: %w", err)
	}

	if payload.QuoteSummary.Error != nil {
		return "", "", fmt.Errorf("profile error for %s: %s", symbol, payload.QuoteSummary.Error.Description)
	}
	if len(payload.QuoteSummary.Result) == 0 {
		return "", "", fmt.Errorf("no profile result for %s", symbol)
	}

	profile := payload.QuoteSummary.Result[0].AssetProfile
	return profile.Sector, profile.Industry, nil
}
