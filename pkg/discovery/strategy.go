package discovery

import "fmt"

// StrategyKind distinguishes the retrieval strategy variants.
type StrategyKind int

const (
	// StrategyScreener scrapes a live screener listing page.
	StrategyScreener StrategyKind = iota
	// StrategyCurated replays a provider-supplied ticker table.
	StrategyCurated
	// StrategyStatic is the last-resort static ticker list.
	StrategyStatic
)

// NameKind tells the registry whether a requested name is a sector or
// a subsector; resolution tables differ between the two.
type NameKind int

const (
	KindSector NameKind = iota
	KindSubsector
)

// Strategy is one way of obtaining candidate tickers for a name.
// Exactly one of URL or Tickers is populated, depending on Kind.
type Strategy struct {
	Kind     StrategyKind
	Name     string
	URL      string
	Provider string
	Tickers  []string
}

// Label identifies the strategy in stats and logs.
func (s Strategy) Label() string {
	switch s.Kind {
	case StrategyScreener:
		return fmt.Sprintf("screener:%s", s.Name)
	case StrategyCurated:
		return fmt.Sprintf("curated:%s:%s", s.Provider, s.Name)
	case StrategyStatic:
		return fmt.Sprintf("static:%s", s.Name)
	default:
		return "unknown"
	}
}
