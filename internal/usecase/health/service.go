package health

import (
	"context"
	"sync"
	"time"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
	// Unhealthy indicates total failure.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// DefaultCheckTimeout bounds each individual check.
const DefaultCheckTimeout = 5 * time.Second

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	checkers []Named
	timeout  time.Duration
}

// New creates a Service. Checkers with a nil Checker are skipped.
func New(checkers ...Named) *Service {
	active := make([]Named, 0, len(checkers))
	for _, c := range checkers {
		if c.Checker != nil {
			active = append(active, c)
		}
	}
	return &Service{checkers: active, timeout: DefaultCheckTimeout}
}

// Check runs all checks concurrently, each bounded by DefaultCheckTimeout.
func (s *Service) Check(ctx context.Context) Report {
	results := make([]CheckResult, len(s.checkers))

	var wg sync.WaitGroup
	for i, c := range s.checkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cctx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()
			if err := c.Checker.HealthCheck(cctx); err != nil {
				results[i] = CheckError
				return
			}
			results[i] = CheckOK
		}()
	}
	wg.Wait()

	checks := make(map[string]CheckResult, len(s.checkers))
	failed := 0
	for i, c := range s.checkers {
		checks[c.Name] = results[i]
		if results[i] == CheckError {
			failed++
		}
	}

	status := Healthy
	switch {
	case failed == 0:
	case failed == len(s.checkers):
		status = Unhealthy
	default:
		status = Degraded
	}

	return Report{Status: status, Checks: checks}
}
