// Package executor runs finalized queries against a telemetry data source
// and adapts the driver's rows into the shared result model.
package executor

import (
	"context"

	"kustoscope/internal/types"
)

// Executor is the data-source collaborator contract. Implementations may
// fail with a data-source error; callers treat that as fatal for the
// refinement session.
type Executor interface {
	Execute(ctx context.Context, query string) (*types.ExecutionResult, error)
}
