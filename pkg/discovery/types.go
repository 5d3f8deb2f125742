package discovery

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"
)

// Request describes one discovery run. Inputs are read-only; per-run
// state never outlives the run that owns it.
type Request struct {
	Sectors    []string `json:"sectors"`
	Subsectors []string `json:"subsectors"`
	Limit      int      `json:"limit"`
	Streaming  bool     `json:"streaming"`
}

// QuoteRecord is a normalized snapshot of live trading data for one
// ticker. It is fetched fresh for every run and never cached here.
type QuoteRecord struct {
	Ticker         string    `json:"ticker"`
	Name           string    `json:"name"`
	CurrentPrice   float64   `json:"current_price"`
	PriceChangePct float64   `json:"price_change_pct"`
	MarketCap      float64   `json:"market_cap"`
	PERatio        float64   `json:"pe_ratio"`
	Sector         string    `json:"sector"`
	Industry       string    `json:"industry"`
	Volume         int64     `json:"volume"`
	AvgVolume      int64     `json:"avg_volume"`
	FetchedAt      time.Time `json:"-"`
}

// Candidate is a ticker symbol waiting for enrichment, tagged with the
// strategy that produced it and its discovery position.
type Candidate struct {
	Symbol string `json:"symbol"`
	Origin string `json:"origin"`
	Index  int    `json:"index"`
}

// Match pairs an accepted candidate with its quote record.
type Match struct {
	Candidate Candidate    `json:"candidate"`
	Quote     *QuoteRecord `json:"quote"`
}

// RunStats summarizes what one run considered and kept.
type RunStats struct {
	Considered       int      `json:"considered"`
	Accepted         int      `json:"accepted"`
	Rejected         int      `json:"rejected"`
	StrategyFailures int      `json:"strategy_failures"`
	Strategies       []string `json:"strategies"`
}

// Result is the bounded, ordered outcome of a discovery run.
type Result struct {
	Matches []Match  `json:"matches"`
	Stats   RunStats `json:"stats"`
}

// Records flattens the accepted matches into wire-shaped quote records.
func (r *Result) Records() []*QuoteRecord {
	records := make([]*QuoteRecord, 0, len(r.Matches))
	for _, m := range r.Matches {
		records = append(records, m.Quote)
	}
	return records
}

// QuoteSource fetches live quote data for a single ticker. One network
// round trip per call; implementations carry their own timeouts.
type QuoteSource interface {
	GetQuote(ctx context.Context, symbol string) (*QuoteRecord, error)
}

// SymbolFetcher scrapes candidate symbols from a screener listing URL.
// Screener markup is fragile; callers treat every failure as recoverable.
type SymbolFetcher interface {
	FetchSymbols(ctx context.Context, url string) ([]string, error)
}

// ErrNoCandidates is the catastrophic tier: every strategy for every
// requested name came up empty and so did the global fallback.
var ErrNoCandidates = errors.New("discovery: no candidates from any source")

var symbolPattern = regexp.MustCompile(`^[A-Z0-9]{1,5}([.-][A-Z0-9]{1,2})?$`)

// NormalizeSymbol trims surrounding whitespace and uppercases a raw
// symbol before validation.
func NormalizeSymbol(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// ValidSymbol reports whether s looks like a listed ticker: at most
// five uppercase alphanumerics with an optional class suffix (BRK.B).
func ValidSymbol(s string) bool {
	return symbolPattern.MatchString(s)
}
