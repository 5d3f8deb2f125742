package quotes

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"smartwealth/pkg/discovery"
)

const alphaVantageBase = "https://www.alphavantage.co/query"

// AlphaVantageSource is the backup quote provider, used when Yahoo is
// unreachable. Two API calls per symbol: GLOBAL_QUOTE for pricing and
// OVERVIEW for fundamentals and sector classification.
type AlphaVantageSource struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewAlphaVantageSource creates an Alpha Vantage quote source. An
// empty API key yields a nil source, which disables the fallback.
func NewAlphaVantageSource(apiKey string, timeout time.Duration, log zerolog.Logger) *AlphaVantageSource {
	if apiKey == "" {
		return nil
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &AlphaVantageSource{
		apiKey:     apiKey,
		baseURL:    alphaVantageBase,
		httpClient: &http.Client{Timeout: timeout},
		log:        log.With().Str("component", "alpha_vantage").Logger(),
	}
}

type globalQuoteResponse struct {
	GlobalQuote struct {
		Symbol        string `json:"01. symbol"`
		Price         string `json:"05. price"`
		Volume        string `json:"06. volume"`
		ChangePercent string `json:"10. change percent"`
	} `json:"Global Quote"`
	Note string `json:"Note"`
}

type overviewResponse struct {
	Symbol               string `json:"Symbol"`
	Name                 string `json:"Name"`
	Sector               string `json:"Sector"`
	Industry             string `json:"Industry"`
	MarketCapitalization string `json:"MarketCapitalization"`
	PERatio              string `json:"PERatio"`
}

// GetQuote fetches one symbol's snapshot from Alpha Vantage.
func (c *AlphaVantageSource) GetQuote(ctx context.Context, symbol string) (*discovery.QuoteRecord, error) {
	var quote globalQuoteResponse
	if err := c.call(ctx, "GLOBAL_QUOTE", symbol, &quote); err != nil {
		return nil, err
	}
	if quote.Note != "" {
		return nil, fmt.Errorf("alpha vantage rate limited: %s", quote.Note)
	}
	if quote.GlobalQuote.Symbol == "" {
		return nil, fmt.Errorf("alpha vantage returned no quote for %s", symbol)
	}

	var overview overviewResponse
	if err := c.call(ctx, "OVERVIEW", symbol, &overview); err != nil {
		return nil, err
	}

	record := &discovery.QuoteRecord{
		Ticker:         quote.GlobalQuote.Symbol,
		Name:           overview.Name,
		CurrentPrice:   parseFloat(quote.GlobalQuote.Price),
		PriceChangePct: parseFloat(strings.TrimSuffix(quote.GlobalQuote.ChangePercent, "%")),
		MarketCap:      parseFloat(overview.MarketCapitalization),
		PERatio:        parseFloat(overview.PERatio),
		Sector:         normalizeSectorCase(overview.Sector),
		Industry:       normalizeSectorCase(overview.Industry),
		Volume:         parseInt(quote.GlobalQuote.Volume),
		FetchedAt:      time.Now(),
	}
	return record, nil
}

func (c *AlphaVantageSource) call(ctx context.Context, function, symbol string, out interface{}) error {
	endpoint := fmt.Sprintf("%s?function=%s&symbol=%s&apikey=%s",
		c.baseURL, function, url.QueryEscape(symbol), c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", function, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", function, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned status %d", function, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", function, err)
	}
	return nil
}

// Alpha Vantage shouts its sector names (TECHNOLOGY); title-case them
// to match the vocabulary the rest of the pipeline speaks.
func normalizeSectorCase(s string) string {
	if s == "" || s == "None" {
		return ""
	}
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}

func parseInt(s string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0
	}
	return n
}
