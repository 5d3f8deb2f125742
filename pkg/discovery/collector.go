package discovery

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"
)

// Collector drains retrieval strategies into one deduplicated,
// validated candidate set per discovery run.
type Collector struct {
	registry *Registry
	fetcher  SymbolFetcher
	log      zerolog.Logger
}

// NewCollector wires a collector to its registry and screener fetcher.
func NewCollector(registry *Registry, fetcher SymbolFetcher, log zerolog.Logger) *Collector {
	return &Collector{
		registry: registry,
		fetcher:  fetcher,
		log:      log.With().Str("component", "collector").Logger(),
	}
}

// Collection is the output of one collection pass.
type Collection struct {
	Candidates []Candidate
	Strategies []string
	Failures   int
}

// candidateSet accumulates candidates with insertion-order stability.
// Symbols are normalized and validated on entry, so the dedup key is
// always the canonical ticker form.
type candidateSet struct {
	seen       map[string]struct{}
	list       []Candidate
	strategies map[string]struct{}
}

func newCandidateSet() *candidateSet {
	return &candidateSet{
		seen:       make(map[string]struct{}),
		strategies: make(map[string]struct{}),
	}
}

func (cs *candidateSet) add(raw, origin string) bool {
	symbol := NormalizeSymbol(raw)
	if !ValidSymbol(symbol) {
		return false
	}
	if _, dup := cs.seen[symbol]; dup {
		return false
	}

	cs.seen[symbol] = struct{}{}
	cs.list = append(cs.list, Candidate{
		Symbol: symbol,
		Origin: origin,
		Index:  len(cs.list),
	})
	cs.strategies[origin] = struct{}{}
	return true
}

// Collect unions every strategy for every requested name, falls back
// to the global static net when the union is empty, augments with the
// curated tables, and caps the result to max in stable insertion
// order. Individual strategy failures are recorded and skipped; the
// pass itself never fails.
func (c *Collector) Collect(ctx context.Context, req Request, max int) *Collection {
	set := newCandidateSet()
	failures := 0

	collectName := func(name string, kind NameKind) {
		before := len(set.list)
		chain := c.registry.StrategiesFor(name, kind)

		for _, strategy := range chain {
			// The static entry is a per-name last resort, not part of
			// the union: skip it while earlier strategies produced.
			if strategy.Kind == StrategyStatic && len(set.list) > before {
				continue
			}

			added, err := c.execute(ctx, strategy, set)
			if err != nil {
				failures++
				c.log.Warn().Err(err).Str("strategy", strategy.Label()).
					Msg("retrieval strategy failed, advancing to next")
				continue
			}
			c.log.Debug().Str("strategy", strategy.Label()).Int("added", added).
				Msg("strategy drained")
		}
	}

	for _, sector := range req.Sectors {
		collectName(sector, KindSector)
	}
	for _, subsector := range req.Subsectors {
		collectName(subsector, KindSubsector)
	}

	// Global safety net: every broad sector's static list.
	if len(set.list) == 0 {
		c.log.Warn().Msg("all strategies yielded nothing, applying global fallback")
		for _, strategy := range c.registry.GlobalFallback() {
			if _, err := c.execute(ctx, strategy, set); err != nil {
				failures++
			}
		}
	}

	// Redundancy layer: curated tables regardless of screener yield,
	// because screeners systematically undercount.
	for _, name := range append(append([]string{}, req.Sectors...), req.Subsectors...) {
		for _, strategy := range c.registry.CuratedFor(name) {
			if _, err := c.execute(ctx, strategy, set); err != nil {
				failures++
			}
		}
	}

	candidates := set.list
	if max > 0 && len(candidates) > max {
		candidates = candidates[:max]
	}

	labels := make([]string, 0, len(set.strategies))
	for label := range set.strategies {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	c.log.Info().Int("candidates", len(candidates)).Int("failures", failures).
		Msg("collection complete")

	return &Collection{
		Candidates: candidates,
		Strategies: labels,
		Failures:   failures,
	}
}

// execute drains a single strategy into the set, returning how many
// new candidates it contributed. An empty screener result is an error:
// the page shape drifts often enough that empty means broken.
func (c *Collector) execute(ctx context.Context, strategy Strategy, set *candidateSet) (int, error) {
	var symbols []string

	switch strategy.Kind {
	case StrategyScreener:
		fetched, err := c.fetcher.FetchSymbols(ctx, strategy.URL)
		if err != nil {
			return 0, err
		}
		if len(fetched) == 0 {
			return 0, fmt.Errorf("screener %s returned no symbols", strategy.URL)
		}
		symbols = fetched
	case StrategyCurated, StrategyStatic:
		symbols = strategy.Tickers
	}

	added := 0
	for _, symbol := range symbols {
		if set.add(symbol, strategy.Label()) {
			added++
		}
	}
	return added, nil
}
