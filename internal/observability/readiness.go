package observability

import (
	"context"
	"fmt"
)

// ReadinessChecker reports whether a dependency is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// Readiness aggregates named checkers. The service is ready when all are.
type Readiness struct {
	names    []string
	checkers []ReadinessChecker
}

// Add registers a checker under a name used in error messages.
func (r *Readiness) Add(name string, c ReadinessChecker) {
	r.names = append(r.names, name)
	r.checkers = append(r.checkers, c)
}

// CheckReadiness returns the first failing checker's error.
func (r *Readiness) CheckReadiness(ctx context.Context) error {
	for i, c := range r.checkers {
		if err := c.CheckReadiness(ctx); err != nil {
			return fmt.Errorf("%s: %w", r.names[i], err)
		}
	}
	return nil
}
