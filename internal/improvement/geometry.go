package improvement

import (
	"fmt"
	"math"

	"github.com/aeroopt/optimization-core/pkg/models"
)

// GeometryID derives the deterministic NACA 4-series identifier for a
// parameter vector, e.g. thickness 0.12, camber 0.02 at 0.4 chord, alpha 2
// becomes "NACA2412_a2.0". Identical parameters always map to the same id.
func GeometryID(p models.Parameters) string {
	m := int(math.Round(p.MaxCamber * 100))
	pos := int(math.Round(p.CamberPosition * 10))
	tt := int(math.Round(p.Thickness * 100))
	return fmt.Sprintf("NACA%d%d%02d_a%.1f", m, pos, tt, p.Alpha)
}

// AdvisoryWarnings returns human-readable cautions for parameter vectors
// that are valid but aerodynamically marginal. Warnings never block an
// evaluation; they are logged so an operator can judge the run.
func AdvisoryWarnings(p models.Parameters) []string {
	var warnings []string
	if p.Thickness > 0.15 {
		warnings = append(warnings,
			fmt.Sprintf("thickness %.4f above 0.15: separation risk at moderate alpha", p.Thickness))
	}
	if p.Alpha > 8 {
		warnings = append(warnings,
			fmt.Sprintf("alpha %.1f above 8 degrees: operating near stall", p.Alpha))
	}
	if p.MaxCamber > 0.06 {
		warnings = append(warnings,
			fmt.Sprintf("camber %.4f above 0.06: high pitching moment expected", p.MaxCamber))
	}
	if p.Alpha < 0 && p.MaxCamber < 0.01 {
		warnings = append(warnings,
			"negative alpha on a near-symmetric section: lift constraint unlikely to hold")
	}
	return warnings
}
