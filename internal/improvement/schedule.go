package improvement

// Phase names the exploration regime for a given loop iteration.
type Phase string

const (
	PhaseExplore Phase = "explore"
	PhaseExploit Phase = "exploit"
	PhaseRefine  Phase = "refine"
)

// Trust radii per phase, as fractions of chord. Alpha is a degree-valued
// parameter several orders of magnitude wider than the chord fractions, so
// its perturbation is scaled up by alphaRadiusScale.
const (
	exploreRadius = 0.015
	exploitRadius = 0.010
	refineRadius  = 0.005

	alphaRadiusScale = 50.0
)

// StrategyFor returns the phase and trust radius for an iteration.
// Iterations are 1-indexed: 1-2 explore, 3-5 exploit, 6+ refine.
func StrategyFor(iteration int) (Phase, float64) {
	switch {
	case iteration <= 2:
		return PhaseExplore, exploreRadius
	case iteration <= 5:
		return PhaseExploit, exploitRadius
	default:
		return PhaseRefine, refineRadius
	}
}

// ConfidenceFor returns the generator's confidence in its proposal.
// Exploration is inherently uncertain; confidence grows with accumulated
// evaluations once the loop is exploiting.
func ConfidenceFor(phase Phase, iteration int) float64 {
	if phase == PhaseExplore {
		return 0.6
	}
	c := 0.7 + 0.05*float64(iteration)
	if c > 0.95 {
		c = 0.95
	}
	return c
}
