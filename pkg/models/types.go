package models

import (
	"time"
)

// SessionStatus represents the lifecycle status of an optimization session
type SessionStatus string

const (
	SessionStatusRunning   SessionStatus = "RUNNING"
	SessionStatusCompleted SessionStatus = "COMPLETED"
	SessionStatusFailed    SessionStatus = "FAILED"
)

// Objective identifies the optimization objective. Only drag minimization
// is supported; the field exists so the record is explicit at the boundary.
const ObjectiveMinimizeCd = "minimize_cd"

// SessionConfig is the caller-supplied configuration for one optimization run.
type SessionConfig struct {
	Objective     string  `json:"objective" validate:"required,oneof=minimize_cd"`
	ClMin         float64 `json:"cl_min" validate:"gte=0,lte=2"`
	Reynolds      int     `json:"reynolds" validate:"gt=0"`
	MaxIterations int     `json:"max_iterations" validate:"gte=1,lte=100"`
}

// DefaultSessionConfig returns the default run configuration.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		Objective:     ObjectiveMinimizeCd,
		ClMin:         0.30,
		Reynolds:      500000,
		MaxIterations: 8,
	}
}

// Session is one end-to-end optimization run.
//
// BestCd is nil until the first constraint-satisfying converged design is
// recorded, and afterwards only ever decreases.
type Session struct {
	ID                    string        `json:"session_id"`
	Config                SessionConfig `json:"config"`
	Status                SessionStatus `json:"status"`
	CurrentIteration      int           `json:"current_iteration"`
	TotalDesignsEvaluated int           `json:"total_designs_evaluated"`
	BestCd                *float64      `json:"best_cd,omitempty"`
	BestGeometryID        string        `json:"best_geometry_id,omitempty"`
	ConvergenceReason     string        `json:"convergence_reason,omitempty"`
	Error                 string        `json:"error,omitempty"`
	CreatedAt             time.Time     `json:"created_at"`
	UpdatedAt             time.Time     `json:"updated_at"`
}

// SessionUpdate carries a partial read-modify-write update for a session.
// Nil fields are left untouched; last writer wins.
type SessionUpdate struct {
	Status                *SessionStatus
	CurrentIteration      *int
	TotalDesignsEvaluated *int
	BestCd                *float64
	BestGeometryID        *string
	ConvergenceReason     *string
	Error                 *string
}

// Parameters is one candidate parameter vector for a NACA 4-series airfoil.
// Values are fractions of chord except Alpha, which is in degrees. The
// validate ranges are the hard physical bounds; configured bounds may only
// narrow them.
type Parameters struct {
	Thickness      float64 `json:"thickness" validate:"gte=0.08,lte=0.20"`
	MaxCamber      float64 `json:"max_camber" validate:"gte=0,lte=0.08"`
	CamberPosition float64 `json:"camber_position" validate:"gte=0.2,lte=0.6"`
	Alpha          float64 `json:"alpha" validate:"gte=-2,lte=10"`
}

// Evaluation is the oracle's verdict on one design.
type Evaluation struct {
	Cl              float64 `json:"Cl"`
	Cd              float64 `json:"Cd"`
	LOverD          float64 `json:"L_D"`
	Converged       bool    `json:"converged"`
	Iterations      int     `json:"iterations"`
	ComputationTime float64 `json:"computation_time"`
}

// Design is one evaluated candidate, appended immutably to the design ledger.
type Design struct {
	Parameters Parameters `json:"parameters"`
	GeometryID string     `json:"geometry_id"`
	Cd         float64    `json:"Cd"`
	Cl         float64    `json:"Cl"`
	LOverD     float64    `json:"L_D"`
	Converged  bool       `json:"converged"`
	Iteration  int        `json:"iteration"`
	Timestamp  time.Time  `json:"timestamp"`
}

// SatisfiesConstraint reports whether the design meets the lift constraint.
func (d *Design) SatisfiesConstraint(clMin float64) bool {
	return d.Converged && d.Cl >= clMin
}

// IterationSummary is one record per iteration, keyed by iteration number.
// A retried write for the same iteration overwrites the prior record.
type IterationSummary struct {
	Iteration      int       `json:"iteration"`
	CandidateCount int       `json:"candidate_count"`
	BestCd         float64   `json:"best_cd"`
	BestGeometryID string    `json:"best_geometry_id"`
	Strategy       string    `json:"strategy"`
	TrustRadius    float64   `json:"trust_radius"`
	Confidence     float64   `json:"confidence"`
	Timestamp      time.Time `json:"timestamp"`
}

// Report statuses surfaced to callers.
const (
	ReportStatusCompleted   = "COMPLETED"
	ReportStatusFailed      = "FAILED"
	ReportStatusSafetyLimit = "SAFETY_LIMIT_REACHED"
	ReportStatusIncomplete  = "INCOMPLETE"
)

// Performance summarizes objective progress over a whole run.
type Performance struct {
	InitialCd           float64 `json:"initial_cd"`
	FinalCd             float64 `json:"final_cd"`
	ImprovementPct      float64 `json:"improvement_pct"`
	ConstraintClMin     float64 `json:"constraint_cl_min"`
	AchievedCl          float64 `json:"achieved_cl"`
	ConstraintSatisfied bool    `json:"constraint_satisfied"`
}

// Report is the final optimization report composed from persisted history.
type Report struct {
	Status            string       `json:"status"`
	TotalIterations   int          `json:"total_iterations"`
	DesignsEvaluated  int          `json:"designs_evaluated"`
	ConvergenceReason string       `json:"convergence_reason"`
	BestDesign        *Design      `json:"best_design,omitempty"`
	Performance       *Performance `json:"performance,omitempty"`
	Timestamp         time.Time    `json:"timestamp"`
}
