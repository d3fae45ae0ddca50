// Package oracle wraps the external evaluation process that scores a
// candidate design. Calls are slow, may fail transiently, and are not
// exactly-once from the caller's viewpoint; the controller owns retries.
package oracle

import (
	"context"

	"github.com/aeroopt/optimization-core/pkg/models"
)

// Oracle scores one candidate parameter vector.
type Oracle interface {
	// Evaluate runs the scoring process for the given parameters at the
	// fixed Reynolds number and returns the aerodynamic verdict.
	Evaluate(ctx context.Context, params models.Parameters, reynolds int) (*models.Evaluation, error)
}
