package discovery

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed sources.yaml
var sourcesYAML []byte

// catalog is the parsed form of sources.yaml.
type catalog struct {
	Version            int                 `yaml:"version"`
	ScreenerBase       string              `yaml:"screener_base"`
	SectorScreeners    map[string]string   `yaml:"sector_screeners"`
	SubsectorScreeners map[string]string   `yaml:"subsector_screeners"`
	KeywordScreeners   []keywordEntry      `yaml:"keyword_screeners"`
	Curated            map[string][]string `yaml:"curated"`
	FallbackTickers    map[string][]string `yaml:"fallback_tickers"`
	Synonyms           map[string]string   `yaml:"synonyms"`
}

type keywordEntry struct {
	Keyword  string `yaml:"keyword"`
	Screener string `yaml:"screener"`
}

// Registry resolves sector and subsector names to ordered retrieval
// strategies. Resolution is pure table lookup: deterministic, no I/O,
// and it never fails — unknown names get the catch-all chain.
type Registry struct {
	cat catalog

	// Broad-sector screener keys in stable order, for the catch-all
	// chain and the global fallback.
	broadOrder []string
}

// NewRegistry parses the embedded source catalog.
func NewRegistry() (*Registry, error) {
	var cat catalog
	if err := yaml.Unmarshal(sourcesYAML, &cat); err != nil {
		return nil, fmt.Errorf("failed to parse source catalog: %w", err)
	}
	if cat.Version != 1 {
		return nil, fmt.Errorf("unsupported source catalog version: %d", cat.Version)
	}

	order := make([]string, 0, len(cat.SectorScreeners))
	for name := range cat.SectorScreeners {
		order = append(order, name)
	}
	sort.Strings(order)

	return &Registry{cat: cat, broadOrder: order}, nil
}

// StrategiesFor returns the ordered strategy chain for one requested
// name: the live screener scrape first, then the static last-resort
// list for the same screener. Unknown names fall through to keyword
// matching and finally to a catch-all chain over the broad sectors.
func (r *Registry) StrategiesFor(name string, kind NameKind) []Strategy {
	if key, ok := r.screenerKey(name, kind); ok {
		return r.chainFor(name, key)
	}

	if key, ok := r.keywordMatch(name); ok {
		return r.chainFor(name, key)
	}

	return r.catchAllChain(name)
}

// CuratedFor returns the secondary curated ticker tables whose sector
// key relates to the requested name by case-insensitive substring.
// Augmentation layer, applied on top of the strategy chain.
func (r *Registry) CuratedFor(name string) []Strategy {
	lower := strings.ToLower(name)

	keys := make([]string, 0, len(r.cat.Curated))
	for key := range r.cat.Curated {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var strategies []Strategy
	for _, key := range keys {
		keyLower := strings.ToLower(key)
		if strings.Contains(lower, keyLower) || strings.Contains(keyLower, lower) {
			strategies = append(strategies, Strategy{
				Kind:     StrategyCurated,
				Name:     key,
				Provider: "curated",
				Tickers:  r.cat.Curated[key],
			})
		}
	}
	return strategies
}

// GlobalFallback returns the static strategy for every broad sector,
// the safety net for a run where all screeners came up empty.
func (r *Registry) GlobalFallback() []Strategy {
	strategies := make([]Strategy, 0, len(r.broadOrder))
	for _, name := range r.broadOrder {
		key := r.cat.SectorScreeners[name]
		strategies = append(strategies, Strategy{
			Kind:    StrategyStatic,
			Name:    name,
			Tickers: r.cat.FallbackTickers[key],
		})
	}
	return strategies
}

// Synonyms exposes the sector synonym table for the relevance filter.
func (r *Registry) Synonyms() map[string]string {
	return r.cat.Synonyms
}

func (r *Registry) screenerKey(name string, kind NameKind) (string, bool) {
	if kind == KindSector {
		key, ok := r.cat.SectorScreeners[name]
		return key, ok
	}
	key, ok := r.cat.SubsectorScreeners[name]
	return key, ok
}

func (r *Registry) keywordMatch(name string) (string, bool) {
	lower := strings.ToLower(name)
	for _, entry := range r.cat.KeywordScreeners {
		if strings.Contains(lower, entry.Keyword) {
			return entry.Screener, true
		}
	}
	return "", false
}

func (r *Registry) chainFor(name, screenerKey string) []Strategy {
	chain := []Strategy{{
		Kind: StrategyScreener,
		Name: name,
		URL:  r.cat.ScreenerBase + screenerKey,
	}}

	if fallback, ok := r.cat.FallbackTickers[screenerKey]; ok {
		chain = append(chain, Strategy{
			Kind:    StrategyStatic,
			Name:    name,
			Tickers: fallback,
		})
	}
	return chain
}

// catchAllChain covers names no table recognizes: scrape a small fixed
// set of broad sectors and keep their static lists as backstop.
func (r *Registry) catchAllChain(name string) []Strategy {
	broad := []string{"Technology", "Healthcare", "Financial Services"}

	var chain []Strategy
	for _, sector := range broad {
		key := r.cat.SectorScreeners[sector]
		chain = append(chain, Strategy{
			Kind: StrategyScreener,
			Name: name,
			URL:  r.cat.ScreenerBase + key,
		})
	}
	for _, sector := range broad {
		key := r.cat.SectorScreeners[sector]
		chain = append(chain, Strategy{
			Kind:    StrategyStatic,
			Name:    name,
			Tickers: r.cat.FallbackTickers[key],
		})
	}
	return chain
}
