package discovery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubQuotes serves canned quote records and fails everything else.
type stubQuotes struct {
	records map[string]*QuoteRecord
}

func (s *stubQuotes) GetQuote(ctx context.Context, symbol string) (*QuoteRecord, error) {
	if record, ok := s.records[symbol]; ok {
		copied := *record
		return &copied, nil
	}
	return nil, errors.New("quote unavailable")
}

func quote(ticker, sector string, marketCap float64) *QuoteRecord {
	return &QuoteRecord{
		Ticker:       ticker,
		Name:         ticker + " Inc",
		CurrentPrice: 100,
		MarketCap:    marketCap,
		Sector:       sector,
		FetchedAt:    time.Now(),
	}
}

func newTestPipeline(t *testing.T, fetcher SymbolFetcher, quotes QuoteSource) *Pipeline {
	t.Helper()
	registry, err := NewRegistry()
	require.NoError(t, err)

	return NewPipeline(
		NewCollector(registry, fetcher, zerolog.Nop()),
		quotes,
		NewFilter(registry.Synonyms()),
		Options{
			Workers:         4,
			EnrichmentDelay: time.Millisecond,
			CandidateFactor: 20,
			DefaultLimit:    50,
			MaxLimit:        200,
		},
		zerolog.Nop(),
	)
}

func TestDiscoverRanksByMarketCapDescending(t *testing.T) {
	fetcher := &stubFetcher{symbols: []string{"SMAL", "BIGG", "MIDD"}}
	quotes := &stubQuotes{records: map[string]*QuoteRecord{
		"SMAL": quote("SMAL", "Technology", 1e9),
		"BIGG": quote("BIGG", "Technology", 3e12),
		"MIDD": quote("MIDD", "Technology", 5e10),
	}}
	pipeline := newTestPipeline(t, fetcher, quotes)

	result, err := pipeline.Discover(context.Background(), Request{
		Sectors: []string{"Technology"},
		Limit:   10,
	})
	require.NoError(t, err)
	require.Len(t, result.Matches, 3)

	assert.Equal(t, "BIGG", result.Matches[0].Quote.Ticker)
	assert.Equal(t, "MIDD", result.Matches[1].Quote.Ticker)
	assert.Equal(t, "SMAL", result.Matches[2].Quote.Ticker)
}

func TestDiscoverExcludesUnrelatedSectors(t *testing.T) {
	fetcher := &stubFetcher{symbols: []string{"AAPA", "XOMA"}}
	quotes := &stubQuotes{records: map[string]*QuoteRecord{
		"AAPA": quote("AAPA", "Technology", 1e12),
		"XOMA": quote("XOMA", "Energy", 5e11),
	}}
	pipeline := newTestPipeline(t, fetcher, quotes)

	result, err := pipeline.Discover(context.Background(), Request{
		Sectors: []string{"Technology"},
		Limit:   10,
	})
	require.NoError(t, err)

	for _, m := range result.Matches {
		assert.NotEqual(t, "XOMA", m.Quote.Ticker)
	}
	assert.Positive(t, result.Stats.Rejected)
}

func TestDiscoverAcceptsEmptyRecordSector(t *testing.T) {
	record := quote("NOSC", "", 1e10)
	fetcher := &stubFetcher{symbols: []string{"NOSC"}}
	quotes := &stubQuotes{records: map[string]*QuoteRecord{"NOSC": record}}
	pipeline := newTestPipeline(t, fetcher, quotes)

	result, err := pipeline.Discover(context.Background(), Request{
		Sectors: []string{"Technology"},
		Limit:   5,
	})
	require.NoError(t, err)

	tickers := make([]string, 0, len(result.Matches))
	for _, m := range result.Matches {
		tickers = append(tickers, m.Quote.Ticker)
	}
	assert.Contains(t, tickers, "NOSC")
}

func TestDiscoverRejectsNonPositiveMarketCap(t *testing.T) {
	fetcher := &stubFetcher{symbols: []string{"ZERO", "NEGC", "GOOD"}}
	quotes := &stubQuotes{records: map[string]*QuoteRecord{
		"ZERO": quote("ZERO", "Technology", 0),
		"NEGC": quote("NEGC", "Technology", -5),
		"GOOD": quote("GOOD", "Technology", 1e9),
	}}
	pipeline := newTestPipeline(t, fetcher, quotes)

	result, err := pipeline.Discover(context.Background(), Request{
		Sectors: []string{"Technology"},
		Limit:   10,
	})
	require.NoError(t, err)
	require.Len(t, result.Matches, 1)
	assert.Equal(t, "GOOD", result.Matches[0].Quote.Ticker)
}

func TestDiscoverHonorsLimit(t *testing.T) {
	symbols := []string{"AL1", "AL2", "AL3", "AL4", "AL5", "AL6"}
	records := make(map[string]*QuoteRecord, len(symbols))
	for i, s := range symbols {
		records[s] = quote(s, "Technology", float64(i+1)*1e9)
	}
	fetcher := &stubFetcher{symbols: symbols}
	pipeline := newTestPipeline(t, fetcher, &stubQuotes{records: records})

	result, err := pipeline.Discover(context.Background(), Request{
		Sectors: []string{"Technology"},
		Limit:   3,
	})
	require.NoError(t, err)

	assert.Len(t, result.Matches, 3)
	// The limit keeps the largest caps, not the first discovered.
	assert.Equal(t, "AL6", result.Matches[0].Quote.Ticker)
}

func TestDiscoverNoDuplicateTickers(t *testing.T) {
	fetcher := &stubFetcher{symbols: []string{"AAPL", "aapl", "AAPL "}}
	quotes := &stubQuotes{records: map[string]*QuoteRecord{
		"AAPL": quote("AAPL", "Technology", 3e12),
	}}
	pipeline := newTestPipeline(t, fetcher, quotes)

	result, err := pipeline.Discover(context.Background(), Request{
		Sectors: []string{"Technology"},
		Limit:   10,
	})
	require.NoError(t, err)

	seen := make(map[string]int)
	for _, m := range result.Matches {
		seen[m.Quote.Ticker]++
	}
	assert.Equal(t, 1, seen["AAPL"])
}

func TestDiscoverIsIdempotent(t *testing.T) {
	fetcher := &stubFetcher{symbols: []string{"AL1", "AL2", "AL3"}}
	quotes := &stubQuotes{records: map[string]*QuoteRecord{
		"AL1": quote("AL1", "Technology", 1e9),
		"AL2": quote("AL2", "Technology", 2e9),
		"AL3": quote("AL3", "Technology", 3e9),
	}}
	pipeline := newTestPipeline(t, fetcher, quotes)

	req := Request{Sectors: []string{"Technology"}, Limit: 10}

	first, err := pipeline.Discover(context.Background(), req)
	require.NoError(t, err)
	second, err := pipeline.Discover(context.Background(), req)
	require.NoError(t, err)

	require.Equal(t, len(first.Matches), len(second.Matches))
	for i := range first.Matches {
		assert.Equal(t, first.Matches[i].Quote.Ticker, second.Matches[i].Quote.Ticker)
	}
}

func TestDiscoverSurvivesEnrichmentFailures(t *testing.T) {
	// Only one symbol has a quote; every other candidate's enrichment
	// fails and is silently dropped.
	fetcher := &stubFetcher{symbols: []string{"GOOD", "BAD1", "BAD2"}}
	quotes := &stubQuotes{records: map[string]*QuoteRecord{
		"GOOD": quote("GOOD", "Technology", 1e9),
	}}
	pipeline := newTestPipeline(t, fetcher, quotes)

	result, err := pipeline.Discover(context.Background(), Request{
		Sectors: []string{"Technology"},
		Limit:   10,
	})
	require.NoError(t, err)
	require.Len(t, result.Matches, 1)
	assert.Equal(t, "GOOD", result.Matches[0].Quote.Ticker)
	assert.Greater(t, result.Stats.Rejected, 0)
}

func TestDiscoverTieBreaksOnDiscoveryOrder(t *testing.T) {
	fetcher := &stubFetcher{symbols: []string{"TIE1", "TIE2", "TIE3"}}
	quotes := &stubQuotes{records: map[string]*QuoteRecord{
		"TIE1": quote("TIE1", "Technology", 1e9),
		"TIE2": quote("TIE2", "Technology", 1e9),
		"TIE3": quote("TIE3", "Technology", 1e9),
	}}
	pipeline := newTestPipeline(t, fetcher, quotes)

	result, err := pipeline.Discover(context.Background(), Request{
		Sectors: []string{"Technology"},
		Limit:   10,
	})
	require.NoError(t, err)
	require.Len(t, result.Matches, 3)

	assert.Equal(t, "TIE1", result.Matches[0].Quote.Ticker)
	assert.Equal(t, "TIE2", result.Matches[1].Quote.Ticker)
	assert.Equal(t, "TIE3", result.Matches[2].Quote.Ticker)
}

func TestDiscoverDefaultAndMaxLimit(t *testing.T) {
	fetcher := &stubFetcher{symbols: []string{"AL1"}}
	quotes := &stubQuotes{records: map[string]*QuoteRecord{
		"AL1": quote("AL1", "Technology", 1e9),
	}}
	pipeline := newTestPipeline(t, fetcher, quotes)

	assert.Equal(t, 50, pipeline.clampLimit(0))
	assert.Equal(t, 50, pipeline.clampLimit(-3))
	assert.Equal(t, 200, pipeline.clampLimit(10000))
	assert.Equal(t, 7, pipeline.clampLimit(7))

	_, err := pipeline.Discover(context.Background(), Request{Sectors: []string{"Technology"}})
	require.NoError(t, err)
}

func TestDiscoverTechnologyExcludesEnergyTicker(t *testing.T) {
	symbols := []string{"AAPL", "MSFT", "GOOGL", "NVDA", "META", "XOM"}
	records := map[string]*QuoteRecord{
		"AAPL":  quote("AAPL", "Technology", 3.0e12),
		"MSFT":  quote("MSFT", "Technology", 2.8e12),
		"GOOGL": quote("GOOGL", "Technology", 1.9e12),
		"NVDA":  quote("NVDA", "Technology", 2.2e12),
		"META":  quote("META", "Technology", 1.2e12),
		"XOM":   quote("XOM", "Energy", 4.5e11),
	}
	fetcher := &stubFetcher{symbols: symbols}
	pipeline := newTestPipeline(t, fetcher, &stubQuotes{records: records})

	result, err := pipeline.Discover(context.Background(), Request{
		Sectors: []string{"Technology"},
		Limit:   5,
	})
	require.NoError(t, err)
	require.Len(t, result.Matches, 5)

	got := make([]string, 0, 5)
	for _, m := range result.Matches {
		got = append(got, m.Quote.Ticker)
	}
	assert.Equal(t, []string{"AAPL", "MSFT", "NVDA", "GOOGL", "META"}, got)
	assert.NotContains(t, got, "XOM")
}

func TestDiscoverUnrecognizedSubsectorFallsBackToKeywords(t *testing.T) {
	fetcher := &stubFetcher{symbols: []string{"ENPH", "RUN"}}
	quotes := &stubQuotes{records: map[string]*QuoteRecord{
		"ENPH": quote("ENPH", "Energy", 2e10),
		"RUN":  quote("RUN", "Energy", 3e9),
	}}
	pipeline := newTestPipeline(t, fetcher, quotes)

	// "solar power companies" is in no resolution table; the keyword
	// layer routes it to the energy screener.
	result, err := pipeline.Discover(context.Background(), Request{
		Subsectors: []string{"solar power companies"},
		Limit:      5,
	})
	require.NoError(t, err)

	assert.LessOrEqual(t, len(result.Matches), 5)
	require.NotEmpty(t, result.Matches)
	assert.Equal(t, "ENPH", result.Matches[0].Quote.Ticker)
}

func TestDiscoverStreamEventOrder(t *testing.T) {
	fetcher := &stubFetcher{symbols: []string{"AL1", "AL2"}}
	quotes := &stubQuotes{records: map[string]*QuoteRecord{
		"AL1": quote("AL1", "Technology", 1e9),
		"AL2": quote("AL2", "Technology", 2e9),
	}}
	pipeline := newTestPipeline(t, fetcher, quotes)

	events := drain(t, pipeline.DiscoverStream(context.Background(), Request{
		Sectors: []string{"Technology"},
		Limit:   10,
	}))

	require.NotEmpty(t, events)
	assert.Equal(t, EventStarted, events[0].Status)

	var progress int
	var terminals int
	for _, ev := range events[1:] {
		switch ev.Status {
		case EventProgress:
			progress++
			require.NotNil(t, ev.Company)
			assert.Equal(t, progress, ev.Index)
		case EventCompleted, EventError:
			terminals++
		}
	}
	assert.Equal(t, 1, terminals, "exactly one terminal event")
	assert.Equal(t, EventCompleted, events[len(events)-1].Status)
	assert.Equal(t, 2, progress)
}

func TestDiscoverStreamCompletedIsRankedByMarketCap(t *testing.T) {
	fetcher := &stubFetcher{symbols: []string{"SMAL", "BIGG"}}
	quotes := &stubQuotes{records: map[string]*QuoteRecord{
		"SMAL": quote("SMAL", "Technology", 1e9),
		"BIGG": quote("BIGG", "Technology", 9e12),
	}}
	pipeline := newTestPipeline(t, fetcher, quotes)

	events := drain(t, pipeline.DiscoverStream(context.Background(), Request{
		Sectors: []string{"Technology"},
		Limit:   10,
	}))

	last := events[len(events)-1]
	require.Equal(t, EventCompleted, last.Status)
	require.Len(t, last.Companies, 2)
	assert.Equal(t, "BIGG", last.Companies[0].Ticker)
	assert.Equal(t, "SMAL", last.Companies[1].Ticker)
	assert.Equal(t, 2, last.Total)
}

func TestDiscoverStreamStopsAtLimit(t *testing.T) {
	symbols := []string{"AL1", "AL2", "AL3", "AL4"}
	records := make(map[string]*QuoteRecord, len(symbols))
	for i, s := range symbols {
		records[s] = quote(s, "Technology", float64(i+1)*1e9)
	}
	fetcher := &stubFetcher{symbols: symbols}
	pipeline := newTestPipeline(t, fetcher, &stubQuotes{records: records})

	events := drain(t, pipeline.DiscoverStream(context.Background(), Request{
		Sectors: []string{"Technology"},
		Limit:   2,
	}))

	var progress int
	for _, ev := range events {
		if ev.Status == EventProgress {
			progress++
		}
	}
	assert.Equal(t, 2, progress)

	last := events[len(events)-1]
	require.Equal(t, EventCompleted, last.Status)
	assert.Len(t, last.Companies, 2)
}

func TestDiscoverStreamErrorOnNoCandidates(t *testing.T) {
	// Force an empty collection by emptying every source table.
	registry := &Registry{cat: catalog{Version: 1}}
	pipeline := NewPipeline(
		NewCollector(registry, &stubFetcher{err: errors.New("down")}, zerolog.Nop()),
		&stubQuotes{},
		NewFilter(nil),
		Options{EnrichmentDelay: time.Millisecond},
		zerolog.Nop(),
	)

	events := drain(t, pipeline.DiscoverStream(context.Background(), Request{
		Sectors: []string{"Technology"},
		Limit:   5,
	}))

	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, EventError, last.Status)
	assert.Contains(t, last.Error, "no candidates")
}

func TestDiscoverErrorOnNoCandidates(t *testing.T) {
	registry := &Registry{cat: catalog{Version: 1}}
	pipeline := NewPipeline(
		NewCollector(registry, &stubFetcher{err: errors.New("down")}, zerolog.Nop()),
		&stubQuotes{},
		NewFilter(nil),
		Options{},
		zerolog.Nop(),
	)

	_, err := pipeline.Discover(context.Background(), Request{Sectors: []string{"Technology"}})
	assert.ErrorIs(t, err, ErrNoCandidates)
}

func drain(t *testing.T, ch <-chan Event) []Event {
	t.Helper()
	var events []Event
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-timeout:
			t.Fatal("stream did not terminate")
		}
	}
}
