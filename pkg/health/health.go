// Package health tracks the readiness checks of the anchor service.
//
// The connection manager records one check per cached adapter, keyed by the
// adapter's registry key: the check passes while the adapter is ready and
// fails with the adapter state otherwise. Checks of closed adapters are
// removed. The overall status is healthy when every adapter is ready,
// degraded when only some are, and unhealthy when none is.
package health

import (
	"sort"
	"sync"
	"time"

	"github.com/juju/clock"
)

// Status is the health of one adapter check or of the whole service.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// CheckFunc reports nil when the checked adapter is usable.
type CheckFunc func() error

// Check is the last result recorded for one registry key.
type Check struct {
	Name        string
	Status      Status
	Message     string
	LastChecked time.Time
}

// Checker holds the latest check result of every adapter.
type Checker struct {
	clock clock.Clock

	mu          sync.RWMutex
	checks      map[string]*Check
	lastHealthy time.Time
}

// NewChecker creates a checker on the wall clock.
func NewChecker() *Checker {
	return NewCheckerWithClock(clock.WallClock)
}

// NewCheckerWithClock creates a health checker stamping results with clk.
func NewCheckerWithClock(clk clock.Clock) *Checker {
	return &Checker{
		clock:       clk,
		checks:      make(map[string]*Check),
		lastHealthy: clk.Now(),
	}
}

// RunCheck runs checkFunc and records its result under name, replacing
// the previous one.
func (c *Checker) RunCheck(name string, checkFunc CheckFunc) {
	status := StatusHealthy
	message := "OK"

	if err := checkFunc(); err != nil {
		status = StatusUnhealthy
		message = err.Error()
	}

	now := c.clock.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.checks[name] = &Check{
		Name:        name,
		Status:      status,
		Message:     message,
		LastChecked: now,
	}

	// every adapter ready
	if c.isHealthy() {
		c.lastHealthy = now
	}
}

// Remove drops the check of a closed adapter.
func (c *Checker) Remove(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.checks, name)
}

// GetOverallStatus aggregates the recorded checks. No checks means healthy.
func (c *Checker) GetOverallStatus() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.checks) == 0 {
		return StatusHealthy
	}

	unhealthyCount := 0
	for _, check := range c.checks {
		if check.Status == StatusUnhealthy {
			unhealthyCount++
		}
	}

	if unhealthyCount == 0 {
		return StatusHealthy
	} else if unhealthyCount < len(c.checks) {
		return StatusDegraded
	}

	return StatusUnhealthy
}

// GetAllChecks returns copies of the recorded checks sorted by registry key.
func (c *Checker) GetAllChecks() []*Check {
	c.mu.RLock()
	defer c.mu.RUnlock()

	checks := make([]*Check, 0, len(c.checks))
	for _, check := range c.checks {
		checkCopy := *check
		checks = append(checks, &checkCopy)
	}
	sort.Slice(checks, func(i, j int) bool { return checks[i].Name < checks[j].Name })

	return checks
}

// GetLastHealthyTime returns when every adapter was last seen ready.
func (c *Checker) GetLastHealthyTime() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastHealthy
}

func (c *Checker) isHealthy() bool {
	for _, check := range c.checks {
		if check.Status != StatusHealthy {
			return false
		}
	}
	return true
}
