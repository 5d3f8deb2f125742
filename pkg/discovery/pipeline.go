package discovery

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Options tunes a pipeline. Zero values get sensible defaults from
// NewPipeline, so callers can set only what they care about.
type Options struct {
	// Workers bounds the enrichment pool for non-streaming runs.
	Workers int
	// EnrichmentDelay is the pause before each quote call in a
	// streaming run, keeping request pacing polite.
	EnrichmentDelay time.Duration
	// CandidateFactor caps collection at limit * factor.
	CandidateFactor int
	DefaultLimit    int
	MaxLimit        int
}

// Pipeline runs discovery end to end: collect candidates, enrich each
// with a live quote, filter on sector relevance, rank by market cap,
// truncate to the requested limit.
type Pipeline struct {
	collector *Collector
	quotes    QuoteSource
	filter    *Filter
	opts      Options
	log       zerolog.Logger
}

// NewPipeline assembles a pipeline from its stages.
func NewPipeline(collector *Collector, quotes QuoteSource, filter *Filter, opts Options, log zerolog.Logger) *Pipeline {
	if opts.Workers <= 0 {
		opts.Workers = 8
	}
	if opts.EnrichmentDelay <= 0 {
		opts.EnrichmentDelay = 50 * time.Millisecond
	}
	if opts.CandidateFactor <= 0 {
		opts.CandidateFactor = 20
	}
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = 50
	}
	if opts.MaxLimit <= 0 {
		opts.MaxLimit = 200
	}

	return &Pipeline{
		collector: collector,
		quotes:    quotes,
		filter:    filter,
		opts:      opts,
		log:       log.With().Str("component", "pipeline").Logger(),
	}
}

// Discover runs a full non-streaming discovery pass. The capped
// candidate set is enriched concurrently, then the survivors are
// ranked by market cap and cut to the limit. The only error surfaced
// is the catastrophic one: nothing to consider at all.
func (p *Pipeline) Discover(ctx context.Context, req Request) (*Result, error) {
	limit := p.clampLimit(req.Limit)

	collection := p.collector.Collect(ctx, req, limit*p.opts.CandidateFactor)
	if len(collection.Candidates) == 0 {
		return nil, ErrNoCandidates
	}

	matches := p.enrichAll(ctx, req, collection.Candidates)

	sortByMarketCap(matches)
	accepted := len(matches)
	if len(matches) > limit {
		matches = matches[:limit]
	}

	result := &Result{
		Matches: matches,
		Stats: RunStats{
			Considered:       len(collection.Candidates),
			Accepted:         accepted,
			Rejected:         len(collection.Candidates) - accepted,
			StrategyFailures: collection.Failures,
			Strategies:       collection.Strategies,
		},
	}

	p.log.Info().
		Int("considered", result.Stats.Considered).
		Int("accepted", result.Stats.Accepted).
		Int("returned", len(result.Matches)).
		Msg("discovery run complete")

	return result, nil
}

// DiscoverStream runs discovery with progressive delivery. Candidates
// are enriched sequentially in discovery order so progress events
// arrive as companies are found; the terminal completed event carries
// the full list re-ranked by market cap. The returned channel is
// closed after the single terminal event.
func (p *Pipeline) DiscoverStream(ctx context.Context, req Request) <-chan Event {
	em := newEmitter()

	go func() {
		limit := p.clampLimit(req.Limit)
		em.started(fmt.Sprintf("discovering companies, limit %d", limit))

		collection := p.collector.Collect(ctx, req, limit*p.opts.CandidateFactor)
		if len(collection.Candidates) == 0 {
			em.fail(ErrNoCandidates)
			return
		}

		var matches []Match
		for _, candidate := range collection.Candidates {
			if len(matches) >= limit {
				break
			}
			if err := p.pace(ctx); err != nil {
				em.fail(err)
				return
			}

			match, ok := p.enrichOne(ctx, req, candidate)
			if !ok {
				continue
			}
			matches = append(matches, match)
			em.progress(match.Quote, len(matches), limit)
		}

		sortByMarketCap(matches)
		records := make([]*QuoteRecord, 0, len(matches))
		for _, m := range matches {
			records = append(records, m.Quote)
		}
		em.completed(records)
	}()

	return em.ch
}

// enrichAll fans the candidate set across the worker pool and gathers
// the accepted matches. Order is restored afterwards by the ranking
// sort, so collection order here does not matter.
func (p *Pipeline) enrichAll(ctx context.Context, req Request, candidates []Candidate) []Match {
	jobs := make(chan Candidate)
	results := make(chan Match)

	var wg sync.WaitGroup
	for i := 0; i < p.opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for candidate := range jobs {
				if match, ok := p.enrichOne(ctx, req, candidate); ok {
					results <- match
				}
			}
		}()
	}

	go func() {
		for _, candidate := range candidates {
			select {
			case jobs <- candidate:
			case <-ctx.Done():
				close(jobs)
				return
			}
		}
		close(jobs)
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	var matches []Match
	for match := range results {
		matches = append(matches, match)
	}
	return matches
}

// enrichOne fetches the quote for one candidate and applies the
// acceptance gates: the quote call must succeed, market cap must be
// positive, and the sector must be relevant to the request. Every
// failure here is recoverable and silently drops the candidate.
func (p *Pipeline) enrichOne(ctx context.Context, req Request, candidate Candidate) (Match, bool) {
	quote, err := p.quotes.GetQuote(ctx, candidate.Symbol)
	if err != nil {
		p.log.Debug().Err(err).Str("ticker", candidate.Symbol).Msg("enrichment failed, dropping candidate")
		return Match{}, false
	}
	if quote == nil || quote.MarketCap <= 0 {
		return Match{}, false
	}
	if !p.filter.IsRelevant(req.Sectors, quote.Sector) {
		p.log.Debug().Str("ticker", candidate.Symbol).Str("sector", quote.Sector).
			Msg("sector not relevant, dropping candidate")
		return Match{}, false
	}

	return Match{Candidate: candidate, Quote: quote}, true
}

// pace waits the enrichment delay, abandoning the wait on cancellation.
func (p *Pipeline) pace(ctx context.Context) error {
	timer := time.NewTimer(p.opts.EnrichmentDelay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pipeline) clampLimit(limit int) int {
	if limit <= 0 {
		return p.opts.DefaultLimit
	}
	if limit > p.opts.MaxLimit {
		return p.opts.MaxLimit
	}
	return limit
}

// sortByMarketCap orders matches by descending market cap, breaking
// ties on discovery position so equal caps keep a stable order.
func sortByMarketCap(matches []Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Quote.MarketCap != matches[j].Quote.MarketCap {
			return matches[i].Quote.MarketCap > matches[j].Quote.MarketCap
		}
		return matches[i].Candidate.Index < matches[j].Candidate.Index
	})
}
