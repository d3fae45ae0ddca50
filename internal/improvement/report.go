package improvement

import (
	"fmt"
	"strings"
	"time"

	"github.com/aeroopt/optimization-core/pkg/models"
)

// BuildReport composes the final run report from persisted history. It never
// fails: an empty history yields an INCOMPLETE report rather than an error.
func BuildReport(session *models.Session, designs []models.Design, summaries []models.IterationSummary) *models.Report {
	report := &models.Report{
		Timestamp: time.Now().UTC(),
	}

	if len(summaries) == 0 || len(designs) == 0 {
		report.Status = models.ReportStatusIncomplete
		report.ConvergenceReason = "no optimization data available"
		return report
	}

	report.Status = reportStatus(session)
	report.TotalIterations = len(summaries)
	report.DesignsEvaluated = len(designs)
	report.ConvergenceReason = session.ConvergenceReason
	if report.ConvergenceReason == "" && session.Error != "" {
		report.ConvergenceReason = session.Error
	}

	last := summaries[len(summaries)-1]
	best := findDesign(designs, last.BestGeometryID)
	if best == nil {
		// Summary points at a geometry the ledger never recorded; fall back
		// to the last evaluated design so the report stays usable.
		best = &designs[len(designs)-1]
	}
	report.BestDesign = best

	initialCd := summaries[0].BestCd
	finalCd := last.BestCd
	improvement := 0.0
	if len(summaries) > 1 && initialCd > 0 {
		improvement = (initialCd - finalCd) / initialCd * 100
	}

	report.Performance = &models.Performance{
		InitialCd:           initialCd,
		FinalCd:             finalCd,
		ImprovementPct:      improvement,
		ConstraintClMin:     session.Config.ClMin,
		AchievedCl:          best.Cl,
		ConstraintSatisfied: best.Cl >= session.Config.ClMin,
	}
	return report
}

func reportStatus(session *models.Session) string {
	switch session.Status {
	case models.SessionStatusFailed:
		if strings.Contains(session.ConvergenceReason, "safety limit") {
			return models.ReportStatusSafetyLimit
		}
		return models.ReportStatusFailed
	case models.SessionStatusCompleted:
		return models.ReportStatusCompleted
	default:
		return models.ReportStatusIncomplete
	}
}

func findDesign(designs []models.Design, geometryID string) *models.Design {
	for i := range designs {
		if designs[i].GeometryID == geometryID {
			return &designs[i]
		}
	}
	return nil
}

// FormatText renders a report for terminal display.
func FormatText(r *models.Report) string {
	rule := strings.Repeat("=", 60)
	var b strings.Builder

	fmt.Fprintf(&b, "%s\nAIRFOIL OPTIMIZATION REPORT\n%s\n\n", rule, rule)
	fmt.Fprintf(&b, "STATUS: %s\n", r.Status)
	fmt.Fprintf(&b, "Reason: %s\n\n", r.ConvergenceReason)

	if r.Status == models.ReportStatusIncomplete && r.BestDesign == nil {
		fmt.Fprintf(&b, "No optimization data available.\n\n%s\n", rule)
		return b.String()
	}

	fmt.Fprintf(&b, "ITERATIONS: %d\n", r.TotalIterations)
	fmt.Fprintf(&b, "Designs Evaluated: %d\n\n", r.DesignsEvaluated)

	if d := r.BestDesign; d != nil {
		fmt.Fprintf(&b, "BEST DESIGN: %s\n", d.GeometryID)
		fmt.Fprintf(&b, "  Cd (drag):         %.5f\n", d.Cd)
		fmt.Fprintf(&b, "  Cl (lift):         %.4f\n", d.Cl)
		fmt.Fprintf(&b, "  L/D ratio:         %.2f\n\n", d.LOverD)
		fmt.Fprintf(&b, "  Thickness:         %.4f\n", d.Parameters.Thickness)
		fmt.Fprintf(&b, "  Max Camber:        %.4f\n", d.Parameters.MaxCamber)
		fmt.Fprintf(&b, "  Camber Position:   %.4f\n", d.Parameters.CamberPosition)
		fmt.Fprintf(&b, "  Alpha (degrees):   %.2f\n\n", d.Parameters.Alpha)
	}

	if p := r.Performance; p != nil {
		fmt.Fprintf(&b, "PERFORMANCE:\n")
		fmt.Fprintf(&b, "  Initial Cd:        %.5f\n", p.InitialCd)
		fmt.Fprintf(&b, "  Final Cd:          %.5f\n", p.FinalCd)
		fmt.Fprintf(&b, "  Improvement:       %.2f%%\n\n", p.ImprovementPct)
		verdict := "VIOLATED"
		if p.ConstraintSatisfied {
			verdict = "SATISFIED"
		}
		fmt.Fprintf(&b, "  Constraint (Cl >= %.2f): %s\n", p.ConstraintClMin, verdict)
		fmt.Fprintf(&b, "    Achieved Cl: %.4f\n\n", p.AchievedCl)
	}

	fmt.Fprintf(&b, "%s\n", rule)
	return b.String()
}
