package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/aeroopt/optimization-core/internal/oracle"
	"github.com/aeroopt/optimization-core/internal/store"
	"github.com/aeroopt/optimization-core/pkg/config"
	"github.com/aeroopt/optimization-core/pkg/models"
)

// fakeOracle scripts evaluations by call order. Calls are counted under a
// mutex so concurrent candidate evaluation stays deterministic per block.
type fakeOracle struct {
	mu    sync.Mutex
	calls int
	fn    func(call int, p models.Parameters) (*models.Evaluation, error)
}

func (f *fakeOracle) Evaluate(ctx context.Context, p models.Parameters, reynolds int) (*models.Evaluation, error) {
	f.mu.Lock()
	call := f.calls
	f.calls++
	f.mu.Unlock()
	return f.fn(call, p)
}

func goodEvaluation(cd, cl float64) *models.Evaluation {
	return &models.Evaluation{
		Cl:        cl,
		Cd:        cd,
		LOverD:    cl / cd,
		Converged: true,
	}
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Optimization.Seed = 42
	cfg.Retry = &config.Retry{MaxAttempts: 3, BaseDelayMs: 1, Multiplier: 2.0}
	return cfg
}

func TestRunConvergesAtIterationCeiling(t *testing.T) {
	cfg := testConfig()
	cfg.Optimization.MaxIterations = 1

	st := store.NewMemoryStore()
	defer st.Close()
	orc := &fakeOracle{fn: func(call int, p models.Parameters) (*models.Evaluation, error) {
		return goodEvaluation(0.0142, 0.45), nil
	}}

	c, err := New(cfg, st, orc)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	report, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if c.State() != StateDone {
		t.Errorf("state = %s, want DONE", c.State())
	}
	if report.Status != models.ReportStatusCompleted {
		t.Errorf("report status = %s, want COMPLETED", report.Status)
	}
	if report.TotalIterations != 1 {
		t.Errorf("iterations = %d, want 1", report.TotalIterations)
	}
	// Cold start explores: 4 mid-range candidates plus the wildcard.
	if report.DesignsEvaluated != 5 {
		t.Errorf("designs = %d, want 5", report.DesignsEvaluated)
	}
	if report.ConvergenceReason != "maximum iterations reached (1)" {
		t.Errorf("reason = %q", report.ConvergenceReason)
	}

	sessions, err := st.ListSessions(context.Background(), 10)
	if err != nil || len(sessions) != 1 {
		t.Fatalf("ListSessions = %v, %v", sessions, err)
	}
	if sessions[0].Status != models.SessionStatusCompleted {
		t.Errorf("session status = %s, want COMPLETED", sessions[0].Status)
	}
}

func TestRunStopsOnImprovementThreshold(t *testing.T) {
	cfg := testConfig()
	cfg.Optimization.MaxIterations = 50

	st := store.NewMemoryStore()
	defer st.Close()
	// Iteration 1 (5 explore calls) scores 0.0142; everything after barely
	// improves, landing below the 0.5% threshold at iteration 2.
	orc := &fakeOracle{fn: func(call int, p models.Parameters) (*models.Evaluation, error) {
		if call < 5 {
			return goodEvaluation(0.0142, 0.45), nil
		}
		return goodEvaluation(0.01415, 0.45), nil
	}}

	c, err := New(cfg, st, orc)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	report, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.TotalIterations != 2 {
		t.Errorf("iterations = %d, want 2", report.TotalIterations)
	}
	if report.Status != models.ReportStatusCompleted {
		t.Errorf("status = %s, want COMPLETED", report.Status)
	}
}

func TestRunTripsSafetyLimit(t *testing.T) {
	cfg := testConfig()
	// Safety ceiling well below the iteration budget: improvement never
	// slows, so only the safety counter can stop the loop.
	cfg.Optimization.MaxIterations = 100
	cfg.Optimization.SafetyLimit = 5

	st := store.NewMemoryStore()
	defer st.Close()
	orc := &fakeOracle{fn: func(call int, p models.Parameters) (*models.Evaluation, error) {
		cd := 0.0200
		for i := 0; i < call/4; i++ {
			cd *= 0.9
		}
		return goodEvaluation(cd, 0.45), nil
	}}

	c, err := New(cfg, st, orc)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	report, err := c.Run(context.Background())
	if !errors.Is(err, ErrSafetyLimit) {
		t.Fatalf("err = %v, want ErrSafetyLimit", err)
	}
	if report == nil {
		t.Fatal("expected a report even when the safety limit trips")
	}
	if report.Status != models.ReportStatusSafetyLimit {
		t.Errorf("status = %s, want SAFETY_LIMIT_REACHED", report.Status)
	}
	if report.TotalIterations != 5 {
		t.Errorf("iterations recorded = %d, want 5", report.TotalIterations)
	}
}

func TestRunFailsWhenRetriesExhausted(t *testing.T) {
	cfg := testConfig()

	st := store.NewMemoryStore()
	defer st.Close()
	orc := &fakeOracle{fn: func(call int, p models.Parameters) (*models.Evaluation, error) {
		return nil, &oracle.TransientError{Op: "evaluate", Err: fmt.Errorf("oracle unavailable")}
	}}

	c, err := New(cfg, st, orc)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	report, err := c.Run(context.Background())
	if err == nil {
		t.Fatal("expected an error after retry exhaustion")
	}
	if report == nil || report.Status != models.ReportStatusIncomplete {
		t.Fatalf("report = %+v, want INCOMPLETE (no designs recorded)", report)
	}
	// All three attempts per candidate were spent.
	if orc.calls != 5*3 {
		t.Errorf("oracle calls = %d, want 15", orc.calls)
	}

	sessions, _ := st.ListSessions(context.Background(), 1)
	if len(sessions) != 1 || sessions[0].Status != models.SessionStatusFailed {
		t.Fatalf("session not marked FAILED: %+v", sessions)
	}
	if sessions[0].Error == "" {
		t.Error("failed session should record the error reason")
	}
}

func TestRunDoesNotRetryValidationErrors(t *testing.T) {
	cfg := testConfig()

	st := store.NewMemoryStore()
	defer st.Close()
	orc := &fakeOracle{fn: func(call int, p models.Parameters) (*models.Evaluation, error) {
		return nil, &oracle.ValidationError{Reason: "solver rejected geometry"}
	}}

	c, err := New(cfg, st, orc)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if _, err := c.Run(context.Background()); err == nil {
		t.Fatal("expected an error")
	}
	if orc.calls != 5 {
		t.Errorf("oracle calls = %d, want 5 (one per candidate, no retries)", orc.calls)
	}
}

func TestRunBestIsMonotonicAndConstraintAware(t *testing.T) {
	cfg := testConfig()
	cfg.Optimization.MaxIterations = 2

	st := store.NewMemoryStore()
	defer st.Close()
	// Call 0 has a tempting Cd but violates the lift constraint. The rest
	// of iteration 1 scores 0.0100; iteration 2 regresses to 0.0200.
	orc := &fakeOracle{fn: func(call int, p models.Parameters) (*models.Evaluation, error) {
		switch {
		case call == 0:
			return goodEvaluation(0.0010, 0.10), nil
		case call < 5:
			return goodEvaluation(0.0100, 0.50), nil
		default:
			return goodEvaluation(0.0200, 0.50), nil
		}
	}}

	c, err := New(cfg, st, orc)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	report, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.BestDesign == nil {
		t.Fatal("missing best design")
	}

	sessions, _ := st.ListSessions(context.Background(), 1)
	if sessions[0].BestCd == nil || *sessions[0].BestCd != 0.0100 {
		t.Errorf("session BestCd = %v, want 0.0100: constraint-violating and regressed designs must not win", sessions[0].BestCd)
	}

	summaries, _ := st.ListIterationSummaries(context.Background(), sessions[0].ID)
	if len(summaries) != 2 {
		t.Fatalf("summaries = %d, want 2", len(summaries))
	}
	if summaries[1].BestCd != 0.0100 {
		t.Errorf("final summary BestCd = %v, want 0.0100", summaries[1].BestCd)
	}
}

func TestRunRecordsEveryDesignBeforeConverging(t *testing.T) {
	cfg := testConfig()
	cfg.Optimization.MaxIterations = 1

	st := store.NewMemoryStore()
	defer st.Close()
	orc := &fakeOracle{fn: func(call int, p models.Parameters) (*models.Evaluation, error) {
		return goodEvaluation(0.0142, 0.45), nil
	}}

	c, _ := New(cfg, st, orc)
	if _, err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	sessions, _ := st.ListSessions(context.Background(), 1)
	designs, err := st.ListDesigns(context.Background(), sessions[0].ID)
	if err != nil {
		t.Fatalf("ListDesigns failed: %v", err)
	}
	if len(designs) != 5 {
		t.Errorf("ledger holds %d designs, want 5", len(designs))
	}
	summaries, _ := st.ListIterationSummaries(context.Background(), sessions[0].ID)
	if len(summaries) != 1 {
		t.Fatalf("summaries = %d, want 1", len(summaries))
	}
	if summaries[0].CandidateCount != 5 || summaries[0].Strategy != "explore" {
		t.Errorf("summary = %+v, want 5 explore candidates", summaries[0])
	}
}

func TestRunAbortsOnCancelledContext(t *testing.T) {
	cfg := testConfig()

	st := store.NewMemoryStore()
	defer st.Close()
	orc := &fakeOracle{fn: func(call int, p models.Parameters) (*models.Evaluation, error) {
		return goodEvaluation(0.0142, 0.45), nil
	}}

	c, _ := New(cfg, st, orc)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Run(ctx)
	if err == nil {
		t.Fatal("expected an error from a cancelled run")
	}

	sessions, _ := st.ListSessions(context.Background(), 1)
	if len(sessions) != 1 || sessions[0].Status != models.SessionStatusFailed {
		t.Fatalf("session should be FAILED after abort: %+v", sessions)
	}
}

func TestNewRejectsInvalidWiring(t *testing.T) {
	cfg := testConfig()
	st := store.NewMemoryStore()
	defer st.Close()
	orc := &fakeOracle{fn: nil}

	if _, err := New(nil, st, orc); err == nil {
		t.Error("expected error for nil config")
	}
	if _, err := New(cfg, nil, orc); err == nil {
		t.Error("expected error for nil store")
	}
	if _, err := New(cfg, st, nil); err == nil {
		t.Error("expected error for nil oracle")
	}

	bad := testConfig()
	bad.Optimization.MaxIterations = 0
	if _, err := New(bad, st, orc); err != nil {
		t.Fatalf("New should defer config validation to Run: %v", err)
	}
	c, _ := New(bad, st, orc)
	if _, err := c.Run(context.Background()); err == nil {
		t.Error("expected Run to reject max_iterations 0")
	}
}
