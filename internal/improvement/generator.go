package improvement

import (
	"fmt"

	"github.com/aeroopt/optimization-core/pkg/config"
	"github.com/aeroopt/optimization-core/pkg/models"
	"github.com/aeroopt/optimization-core/pkg/utils"
)

// Mid-range windows the explorer samples from before any evaluation data
// exists. Narrower than the full bounds so early candidates land in the
// well-behaved region of the design space.
var exploreWindows = struct {
	thickness      config.Range
	maxCamber      config.Range
	camberPosition config.Range
	alpha          config.Range
}{
	thickness:      config.Range{Min: 0.10, Max: 0.14},
	maxCamber:      config.Range{Min: 0.03, Max: 0.06},
	camberPosition: config.Range{Min: 0.35, Max: 0.45},
	alpha:          config.Range{Min: 1.5, Max: 3.5},
}

// Proposal is one batch of candidate parameter vectors with the strategy
// metadata the loop records alongside them.
type Proposal struct {
	Candidates  []models.Parameters
	Strategy    Phase
	TrustRadius float64
	Confidence  float64
	Rationale   string
}

// Generator produces candidate designs for one iteration. It holds no
// cross-iteration state: output depends only on the iteration number, the
// incumbent best design, and the random source.
type Generator struct {
	bounds    config.Bounds
	batchSize int
	rng       *utils.RandSource
}

// NewGenerator creates a candidate generator. batchSize is the number of
// perturbation candidates per iteration (exploration adds one wildcard on
// top). rng may be nil, in which case a time-seeded source is used.
func NewGenerator(bounds config.Bounds, batchSize int, rng *utils.RandSource) (*Generator, error) {
	if batchSize < 1 {
		return nil, fmt.Errorf("batch size must be at least 1, got %d", batchSize)
	}
	if bounds.Thickness.Min >= bounds.Thickness.Max ||
		bounds.MaxCamber.Min > bounds.MaxCamber.Max ||
		bounds.CamberPosition.Min >= bounds.CamberPosition.Max ||
		bounds.Alpha.Min >= bounds.Alpha.Max {
		return nil, fmt.Errorf("invalid bounds: every range needs min < max")
	}
	if rng == nil {
		rng = utils.NewRandSource(0)
	}
	return &Generator{bounds: bounds, batchSize: batchSize, rng: rng}, nil
}

// Generate proposes candidates for the given iteration. A nil best design
// (cold start) forces exploration regardless of the phase schedule.
func (g *Generator) Generate(iteration int, best *models.Design) Proposal {
	phase, radius := StrategyFor(iteration)
	if best == nil {
		phase, radius = PhaseExplore, exploreRadius
	}

	if phase == PhaseExplore {
		return Proposal{
			Candidates:  g.explore(),
			Strategy:    PhaseExplore,
			TrustRadius: radius,
			Confidence:  ConfidenceFor(PhaseExplore, iteration),
			Rationale:   "sampling mid-range design space plus one wildcard",
		}
	}

	return Proposal{
		Candidates:  g.perturb(best.Parameters, radius),
		Strategy:    phase,
		TrustRadius: radius,
		Confidence:  ConfidenceFor(phase, iteration),
		Rationale: fmt.Sprintf("perturbing best design %s within radius %.3f",
			best.GeometryID, radius),
	}
}

// explore samples batchSize candidates from the mid-range windows and one
// wildcard from the full bounds.
func (g *Generator) explore() []models.Parameters {
	candidates := make([]models.Parameters, 0, g.batchSize+1)
	for i := 0; i < g.batchSize; i++ {
		candidates = append(candidates, g.clip(models.Parameters{
			Thickness:      g.rng.UniformFloat64(exploreWindows.thickness.Min, exploreWindows.thickness.Max),
			MaxCamber:      g.rng.UniformFloat64(exploreWindows.maxCamber.Min, exploreWindows.maxCamber.Max),
			CamberPosition: g.rng.UniformFloat64(exploreWindows.camberPosition.Min, exploreWindows.camberPosition.Max),
			Alpha:          g.rng.UniformFloat64(exploreWindows.alpha.Min, exploreWindows.alpha.Max),
		}))
	}
	// Wildcard over the full bounds keeps the loop from tunneling on the
	// mid-range before any real data is in.
	candidates = append(candidates, g.clip(models.Parameters{
		Thickness:      g.rng.UniformFloat64(g.bounds.Thickness.Min, g.bounds.Thickness.Max),
		MaxCamber:      g.rng.UniformFloat64(g.bounds.MaxCamber.Min, g.bounds.MaxCamber.Max),
		CamberPosition: g.rng.UniformFloat64(g.bounds.CamberPosition.Min, g.bounds.CamberPosition.Max),
		Alpha:          g.rng.UniformFloat64(g.bounds.Alpha.Min, g.bounds.Alpha.Max),
	}))
	return candidates
}

// perturb samples batchSize candidates uniformly inside the trust region
// around the incumbent best.
func (g *Generator) perturb(base models.Parameters, radius float64) []models.Parameters {
	candidates := make([]models.Parameters, 0, g.batchSize)
	for i := 0; i < g.batchSize; i++ {
		candidates = append(candidates, g.clip(models.Parameters{
			Thickness:      base.Thickness + g.rng.UniformFloat64(-radius, radius),
			MaxCamber:      base.MaxCamber + g.rng.UniformFloat64(-radius, radius),
			CamberPosition: base.CamberPosition + g.rng.UniformFloat64(-radius, radius),
			Alpha:          base.Alpha + g.rng.UniformFloat64(-radius*alphaRadiusScale, radius*alphaRadiusScale),
		}))
	}
	return candidates
}

// clip forces a candidate inside the hard bounds and rounds every parameter
// to four decimals so geometry ids stay stable across runs.
func (g *Generator) clip(p models.Parameters) models.Parameters {
	return models.Parameters{
		Thickness:      utils.Round(utils.ClampFloat64(p.Thickness, g.bounds.Thickness.Min, g.bounds.Thickness.Max), 4),
		MaxCamber:      utils.Round(utils.ClampFloat64(p.MaxCamber, g.bounds.MaxCamber.Min, g.bounds.MaxCamber.Max), 4),
		CamberPosition: utils.Round(utils.ClampFloat64(p.CamberPosition, g.bounds.CamberPosition.Min, g.bounds.CamberPosition.Max), 4),
		Alpha:          utils.Round(utils.ClampFloat64(p.Alpha, g.bounds.Alpha.Min, g.bounds.Alpha.Max), 4),
	}
}
