package earnings

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	calendarBase = "https://finance.yahoo.com/calendar/earnings"
	cacheTTL     = time.Hour
	userAgent    = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
)

// Entry is one scheduled earnings report.
type Entry struct {
	Ticker      string  `json:"ticker"`
	Company     string  `json:"company"`
	CallTime    string  `json:"call_time"`
	EPSEstimate float64 `json:"eps_estimate"`
}

// Calendar scrapes the earnings calendar for a given day. Results are
// cached in Redis for an hour when a client is configured; a nil
// client disables caching and every call scrapes fresh.
type Calendar struct {
	httpClient *http.Client
	baseURL    string
	cache      *redis.Client
	log        zerolog.Logger
}

// NewCalendar creates an earnings calendar. cache may be nil.
func NewCalendar(timeout time.Duration, cache *redis.Client, log zerolog.Logger) *Calendar {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Calendar{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    calendarBase,
		cache:      cache,
		log:        log.With().Str("component", "earnings").Logger(),
	}
}

// ForDate returns the earnings entries scheduled on a date.
func (c *Calendar) ForDate(ctx context.Context, date time.Time) ([]Entry, error) {
	day := date.Format("2006-01-02")
	cacheKey := "earnings:" + day

	if c.cache != nil {
		if cached, err := c.cache.Get(ctx, cacheKey).Result(); err == nil {
			var entries []Entry
			if err := json.Unmarshal([]byte(cached), &entries); err == nil {
				c.log.Debug().Str("date", day).Msg("earnings calendar cache hit")
				return entries, nil
			}
		}
	}

	entries, err := c.scrape(ctx, day)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		if payload, err := json.Marshal(entries); err == nil {
			if err := c.cache.Set(ctx, cacheKey, payload, cacheTTL).Err(); err != nil {
				c.log.Warn().Err(err).Msg("failed to cache earnings calendar")
			}
		}
	}

	return entries, nil
}

func (c *Calendar) scrape(ctx context.Context, day string) ([]Entry, error) {
	url := fmt.Sprintf("%s?day=%s", c.baseURL, day)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calendar request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("calendar returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse calendar page: %w", err)
	}

	var entries []Entry
	doc.Find("table tbody tr").Each(func(_ int, row *goquery.Selection) {
		entry := Entry{
			Ticker:      cellText(row, "Symbol", 0),
			Company:     cellText(row, "Company", 1),
			CallTime:    cellText(row, "Earnings Call Time", 2),
			EPSEstimate: parseEstimate(cellText(row, "EPS Estimate", 3)),
		}
		if entry.Ticker != "" {
			entries = append(entries, entry)
		}
	})

	c.log.Info().Str("date", day).Int("entries", len(entries)).Msg("earnings calendar scraped")
	return entries, nil
}

// cellText prefers the aria-labelled cell and falls back to position
// when the page ships without labels.
func cellText(row *goquery.Selection, label string, index int) string {
	if cell := row.Find(fmt.Sprintf(`td[aria-label=%q]`, label)); cell.Length() > 0 {
		return strings.TrimSpace(cell.First().Text())
	}
	return strings.TrimSpace(row.Find("td").Eq(index).Text())
}

func parseEstimate(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}
