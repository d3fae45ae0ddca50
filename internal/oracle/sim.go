package oracle

import (
	"context"
	"math"

	"github.com/aeroopt/optimization-core/pkg/models"
	"github.com/aeroopt/optimization-core/pkg/utils"
)

// Aerodynamic model constants for the simulated oracle: thin-airfoil lift
// slope with an induced-drag term for a finite wing.
const (
	simAspectRatio      = 5.0
	simOswaldEfficiency = 0.85
	simReferenceRe      = 500000.0
)

// SimOracle is a local analytic stand-in for the external scoring service,
// used for development runs and tests. Results carry a small multiplicative
// noise term and extreme geometries occasionally fail to converge, matching
// the behavior of a real solver closely enough to exercise the loop.
type SimOracle struct {
	rng *utils.RandSource
}

// NewSimOracle creates a simulated oracle. A zero seed yields a time-based one.
func NewSimOracle(seed int64) *SimOracle {
	return &SimOracle{rng: utils.NewRandSource(seed)}
}

// Evaluate computes lift and drag coefficients for the design.
func (o *SimOracle) Evaluate(ctx context.Context, params models.Parameters, reynolds int) (*models.Evaluation, error) {
	if err := ctx.Err(); err != nil {
		return nil, &TransientError{Op: "evaluate", Err: err}
	}
	if err := models.ValidateParameters(params); err != nil {
		return nil, &ValidationError{Reason: err.Error()}
	}
	if reynolds <= 0 {
		return nil, &ValidationError{Reason: "reynolds must be positive"}
	}

	alphaRad := params.Alpha * math.Pi / 180
	cl := 2*math.Pi*alphaRad + params.MaxCamber*0.8

	// Lift falls off approaching stall.
	if params.Alpha > 10 {
		cl *= 0.8
	} else if params.Alpha > 8 {
		cl *= 0.95
	}

	cdProfile := 0.006 + 0.02*params.Thickness*params.Thickness
	cdInduced := cl * cl / (math.Pi * simAspectRatio * simOswaldEfficiency)

	reFactor := math.Pow(simReferenceRe/float64(reynolds), 0.2)
	cd := (cdProfile+cdInduced)*reFactor + params.MaxCamber*0.005

	cd *= o.rng.UniformFloat64(0.995, 1.005)
	cl *= o.rng.UniformFloat64(0.995, 1.005)

	converged := true
	iterations := 180 + o.rng.Intn(70)
	if (params.Thickness < 0.09 || params.Thickness > 0.18 || math.Abs(params.Alpha) > 12) &&
		o.rng.Float64() < 0.05 {
		converged = false
		iterations = 500
	}

	lOverD := 0.0
	if cd > 0 {
		lOverD = cl / cd
	}

	return &models.Evaluation{
		Cl:              utils.Round(cl, 4),
		Cd:              utils.Round(cd, 5),
		LOverD:          utils.Round(lOverD, 2),
		Converged:       converged,
		Iterations:      iterations,
		ComputationTime: utils.Round(o.rng.UniformFloat64(45, 90), 2),
	}, nil
}
