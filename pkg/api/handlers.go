package api

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"smartwealth/pkg/discovery"
	"smartwealth/pkg/earnings"
	"smartwealth/pkg/health"
	"smartwealth/pkg/monitoring"
	"smartwealth/pkg/sectors"
)

// Handler carries the dependencies behind every route.
type Handler struct {
	pipeline *discovery.Pipeline
	calendar *earnings.Calendar
	checker  *health.Checker
	metrics  *monitoring.MetricsCollector
	log      zerolog.Logger
}

// NewHandler wires the route handlers.
func NewHandler(pipeline *discovery.Pipeline, calendar *earnings.Calendar, checker *health.Checker, metrics *monitoring.MetricsCollector, log zerolog.Logger) *Handler {
	return &Handler{
		pipeline: pipeline,
		calendar: calendar,
		checker:  checker,
		metrics:  metrics,
		log:      log.With().Str("component", "api").Logger(),
	}
}

// DiscoverCompanies resolves a sector query into ranked companies.
// With streaming enabled the response is a server-sent event stream;
// otherwise one JSON document.
func (h *Handler) DiscoverCompanies(c *gin.Context) {
	var req discovery.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if len(req.Sectors) == 0 && len(req.Subsectors) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "at least one sector or subsector is required"})
		return
	}

	h.metrics.RecordRunStart()

	if req.Streaming {
		h.streamDiscovery(c, req)
		return
	}

	result, err := h.pipeline.Discover(c.Request.Context(), req)
	if err != nil {
		h.metrics.RecordRunFailure()
		h.log.Error().Err(err).Strs("sectors", req.Sectors).Msg("discovery run failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	h.metrics.RecordRunComplete(result.Stats.Considered, result.Stats.Accepted,
		result.Stats.Rejected, result.Stats.StrategyFailures)

	c.JSON(http.StatusOK, gin.H{
		"companies": result.Records(),
		"total":     len(result.Matches),
		"stats":     result.Stats,
	})
}

// streamDiscovery relays pipeline events as SSE frames. The client
// sees started, a progress frame per accepted company, then exactly
// one completed or error frame.
func (h *Handler) streamDiscovery(c *gin.Context, req discovery.Request) {
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	events := h.pipeline.DiscoverStream(c.Request.Context(), req)

	c.Stream(func(w io.Writer) bool {
		event, ok := <-events
		if !ok {
			return false
		}

		c.SSEvent("message", event)

		switch event.Status {
		case discovery.EventCompleted:
			h.metrics.RecordRunComplete(0, event.Total, 0, 0)
		case discovery.EventError:
			h.metrics.RecordRunFailure()
		}
		return true
	})
}

// ListSectors serves the static sector taxonomy.
func (h *Handler) ListSectors(c *gin.Context) {
	all := sectors.All()
	c.JSON(http.StatusOK, gin.H{
		"sectors": all,
		"total":   len(all),
	})
}

// GetSector serves one sector by name.
func (h *Handler) GetSector(c *gin.Context) {
	sector, ok := sectors.Find(c.Param("name"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown sector: " + c.Param("name")})
		return
	}
	c.JSON(http.StatusOK, sector)
}

// GetSubsectors serves the subsector names of one sector.
func (h *Handler) GetSubsectors(c *gin.Context) {
	sector, ok := sectors.Find(c.Param("name"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown sector: " + c.Param("name")})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"sector":     sector.Name,
		"subsectors": sector.Subsectors,
		"total":      len(sector.Subsectors),
	})
}

// EarningsCalendar serves the earnings schedule for one date,
// defaulting to today.
func (h *Handler) EarningsCalendar(c *gin.Context) {
	date := time.Now()
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
			return
		}
		date = parsed
	}

	entries, err := h.calendar.ForDate(c.Request.Context(), date)
	if err != nil {
		h.log.Error().Err(err).Msg("earnings calendar fetch failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"date":     date.Format("2006-01-02"),
		"earnings": entries,
		"total":    len(entries),
	})
}

// Health runs every registered component probe.
func (h *Handler) Health(c *gin.Context) {
	report := h.checker.Check(c.Request.Context())

	status := http.StatusOK
	if report.Status != health.StatusHealthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, report)
}

// Metrics dumps the in-memory counters.
func (h *Handler) Metrics(c *gin.Context) {
	c.JSON(http.StatusOK, h.metrics.Snapshot())
}
