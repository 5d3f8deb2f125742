package health

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Status is a component's health state.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
)

// ComponentHealth is one component's check result.
type ComponentHealth struct {
	Name      string        `json:"name"`
	Status    Status        `json:"status"`
	Message   string        `json:"message,omitempty"`
	CheckedAt time.Time     `json:"checked_at"`
	Latency   time.Duration `json:"latency_ns"`
}

// Report aggregates every component. Overall is unhealthy as soon as
// any single component is.
type Report struct {
	Status     Status            `json:"status"`
	Components []ComponentHealth `json:"components"`
}

// CheckFunc probes one component. Components are either up or down; a
// non-nil error marks the component unhealthy.
type CheckFunc func(ctx context.Context) error

// Checker runs registered component checks on demand.
type Checker struct {
	mu     sync.RWMutex
	checks map[string]CheckFunc
}

// NewChecker creates an empty health checker.
func NewChecker() *Checker {
	return &Checker{checks: make(map[string]CheckFunc)}
}

// Register adds a named component check. Re-registering replaces.
func (c *Checker) Register(name string, check CheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

// Check runs every registered probe with a per-component timeout and
// aggregates the results.
func (c *Checker) Check(ctx context.Context) Report {
	c.mu.RLock()
	names := make([]string, 0, len(c.checks))
	for name := range c.checks {
		names = append(names, name)
	}
	c.mu.RUnlock()
	sort.Strings(names)

	report := Report{Status: StatusHealthy}
	for _, name := range names {
		c.mu.RLock()
		check := c.checks[name]
		c.mu.RUnlock()

		component := ComponentHealth{Name: name, Status: StatusHealthy, CheckedAt: time.Now()}

		checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		start := time.Now()
		if err := check(checkCtx); err != nil {
			component.Status = StatusUnhealthy
			component.Message = err.Error()
			report.Status = StatusUnhealthy
		}
		component.Latency = time.Since(start)
		cancel()

		report.Components = append(report.Components, component)
	}

	return report
}
