package screener

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
)

// Yahoo serves screener pages to browsers; a bare Go user agent gets a
// consent interstitial instead of the table.
const userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

// A screener page lists at most 100 rows; anything past 50 is deep
// enough into small caps that it never survives ranking.
const maxSymbolsPerPage = 50

// Scraper extracts ticker symbols from screener listing pages. The
// page markup changes without notice, so extraction runs a cascade of
// selectors from most to least specific and takes the first that
// yields anything.
type Scraper struct {
	httpClient *http.Client
	log        zerolog.Logger
}

// NewScraper creates a screener scraper with the given request timeout.
func NewScraper(timeout time.Duration, log zerolog.Logger) *Scraper {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Scraper{
		httpClient: &http.Client{Timeout: timeout},
		log:        log.With().Str("component", "screener").Logger(),
	}
}

// FetchSymbols downloads one screener page and extracts its symbols in
// page order. Symbols come back raw; callers normalize and validate.
func (s *Scraper) FetchSymbols(ctx context.Context, url string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create screener request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("screener request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("screener returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse screener page: %w", err)
	}

	for _, tier := range extractors {
		if symbols := tier.fn(doc); len(symbols) > 0 {
			if len(symbols) > maxSymbolsPerPage {
				symbols = symbols[:maxSymbolsPerPage]
			}
			s.log.Debug().Str("url", url).Str("extractor", tier.name).
				Int("symbols", len(symbols)).Msg("screener extraction succeeded")
			return symbols, nil
		}
	}

	return nil, nil
}

// Ordered from the current table markup down to the loosest attribute
// scan. Each tier has survived at least one Yahoo redesign.
var extractors = []struct {
	name string
	fn   func(*goquery.Document) []string
}{
	{"table-rows", fromTableRows},
	{"quote-links", fromQuoteLinks},
	{"data-symbol", fromDataSymbols},
}

// fromTableRows reads the screener result table, one symbol per row
// from the first cell.
func fromTableRows(doc *goquery.Document) []string {
	var symbols []string
	doc.Find("tr.simpTblRow").Each(func(_ int, row *goquery.Selection) {
		cell := row.Find("td").First()
		if symbol := strings.TrimSpace(cell.Find("a").First().Text()); symbol != "" {
			symbols = append(symbols, symbol)
			return
		}
		if symbol := strings.TrimSpace(cell.Text()); symbol != "" {
			symbols = append(symbols, symbol)
		}
	})
	return dedupe(symbols)
}

// fromQuoteLinks pulls symbols out of quote page links, taking the
// last path segment of each href.
func fromQuoteLinks(doc *goquery.Document) []string {
	var symbols []string
	doc.Find(`a[href*="/quote/"]`).Each(func(_ int, link *goquery.Selection) {
		href, ok := link.Attr("href")
		if !ok {
			return
		}
		if idx := strings.Index(href, "?"); idx >= 0 {
			href = href[:idx]
		}
		parts := strings.Split(strings.Trim(href, "/"), "/")
		symbol := strings.TrimSpace(parts[len(parts)-1])
		if symbol != "" && symbol != "quote" {
			symbols = append(symbols, symbol)
		}
	})
	return dedupe(symbols)
}

// fromDataSymbols is the loosest tier: anything carrying a data-symbol
// attribute anywhere on the page.
func fromDataSymbols(doc *goquery.Document) []string {
	var symbols []string
	doc.Find("[data-symbol]").Each(func(_ int, el *goquery.Selection) {
		if symbol, ok := el.Attr("data-symbol"); ok {
			if symbol = strings.TrimSpace(symbol); symbol != "" {
				symbols = append(symbols, symbol)
			}
		}
	})
	return dedupe(symbols)
}

// dedupe drops repeats while preserving first-seen order. Screener
// pages repeat each symbol in several cells.
func dedupe(symbols []string) []string {
	seen := make(map[string]struct{}, len(symbols))
	out := symbols[:0]
	for _, s := range symbols {
		key := strings.ToUpper(s)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}
