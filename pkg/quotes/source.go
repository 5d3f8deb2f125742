package quotes

import (
	"context"

	"github.com/rs/zerolog"

	"smartwealth/pkg/discovery"
)

// ChainSource tries the primary quote provider first and falls back to
// the secondary when the primary errors. A nil fallback is fine: the
// chain then just surfaces the primary's error.
type ChainSource struct {
	primary  discovery.QuoteSource
	fallback discovery.QuoteSource
	log      zerolog.Logger
}

// NewChainSource builds the provider chain. fallback may be nil.
func NewChainSource(primary, fallback discovery.QuoteSource, log zerolog.Logger) *ChainSource {
	return &ChainSource{
		primary:  primary,
		fallback: fallback,
		log:      log.With().Str("component", "quote_chain").Logger(),
	}
}

// GetQuote implements discovery.QuoteSource.
func (c *ChainSource) GetQuote(ctx context.Context, symbol string) (*discovery.QuoteRecord, error) {
	record, err := c.primary.GetQuote(ctx, symbol)
	if err == nil {
		return record, nil
	}

	if c.fallback == nil {
		return nil, err
	}

	c.log.Debug().Err(err).Str("ticker", symbol).Msg("primary quote source failed, trying fallback")
	return c.fallback.GetQuote(ctx, symbol)
}
