package health

import "context"

// Checker checks availability of one remote dependency.
type Checker interface {
	HealthCheck(ctx context.Context) error
}

// Named pairs a checker with the key it is reported under.
type Named struct {
	Name    string
	Checker Checker
}
