// Package controller drives the optimization loop: it owns the session
// lifecycle, generates and evaluates candidate designs, persists every
// result, and decides when to stop.
//
// One controller is the single active writer for its session. The loop
// iteration counter lives here and is authoritative; counts derived from
// the design ledger are never substituted for it.
package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aeroopt/optimization-core/internal/improvement"
	"github.com/aeroopt/optimization-core/internal/oracle"
	"github.com/aeroopt/optimization-core/internal/policy"
	"github.com/aeroopt/optimization-core/internal/store"
	"github.com/aeroopt/optimization-core/pkg/config"
	"github.com/aeroopt/optimization-core/pkg/logger"
	"github.com/aeroopt/optimization-core/pkg/models"
	"github.com/aeroopt/optimization-core/pkg/utils"
)

// Controller runs one optimization session end to end.
type Controller struct {
	cfg       *config.Config
	store     store.Store
	oracle    oracle.Oracle
	generator *improvement.Generator
	evaluator *improvement.Evaluator
	retry     *policy.RetryPolicy
	log       *slog.Logger

	state State
}

// New wires a controller from configuration and its collaborators.
func New(cfg *config.Config, st store.Store, orc oracle.Oracle) (*Controller, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration is required")
	}
	if st == nil || orc == nil {
		return nil, fmt.Errorf("store and oracle are required")
	}

	bounds := config.DefaultBounds()
	if cfg.Bounds != nil {
		bounds = *cfg.Bounds
	}
	generator, err := improvement.NewGenerator(bounds, cfg.Optimization.CandidateCount, utils.NewRandSource(cfg.Optimization.Seed))
	if err != nil {
		return nil, fmt.Errorf("failed to build candidate generator: %w", err)
	}

	retryCfg := config.DefaultRetry()
	if cfg.Retry != nil {
		retryCfg = *cfg.Retry
	}

	return &Controller{
		cfg:       cfg,
		store:     st,
		oracle:    orc,
		generator: generator,
		evaluator: improvement.NewEvaluator(cfg.Optimization.MaxIterations, 0),
		retry:     policy.NewRetryPolicyFromConfig(retryCfg, oracle.IsTransient),
		log:       logger.Default,
		state:     StateInitializing,
	}, nil
}

// State returns the controller's current lifecycle state.
func (c *Controller) State() State {
	return c.state
}

// Run executes a full optimization session and returns the final report.
// The report is non-nil whenever a session was created, including failed
// and safety-limited runs. The run is bounded by the configured wall-clock
// timeout on top of any deadline already on ctx.
func (c *Controller) Run(ctx context.Context) (*models.Report, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.WallClockTimeout())
	defer cancel()

	session, err := c.initialize(ctx)
	if err != nil {
		return nil, err
	}
	c.log = logger.WithSession(session.ID)
	c.log.Info("session created",
		"max_iterations", session.Config.MaxIterations,
		"cl_min", session.Config.ClMin,
		"reynolds", session.Config.Reynolds)

	loopErr := c.iterate(ctx, session)

	// Reporting reads run on a fresh context so a timed-out run still
	// yields a report of everything recorded up to the abort.
	c.state = StateReporting
	report, reportErr := c.report(context.Background(), session.ID)
	if reportErr != nil {
		if loopErr != nil {
			return nil, fmt.Errorf("reporting failed after %v: %w", loopErr, reportErr)
		}
		return nil, reportErr
	}

	c.state = StateDone
	return report, loopErr
}

func (c *Controller) initialize(ctx context.Context) (*models.Session, error) {
	opt := c.cfg.Optimization
	sessionConfig := models.SessionConfig{
		Objective:     opt.Objective,
		ClMin:         opt.ClMin,
		Reynolds:      opt.Reynolds,
		MaxIterations: opt.MaxIterations,
	}
	if err := models.ValidateSessionConfig(sessionConfig); err != nil {
		return nil, fmt.Errorf("invalid session configuration: %w", err)
	}

	now := time.Now().UTC()
	session := &models.Session{
		ID:        utils.GenerateSessionID(),
		Config:    sessionConfig,
		Status:    models.SessionStatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := c.store.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return session, nil
}

// iterate runs the loop until a terminal state is reached. It mutates the
// session record through the store as it goes; the returned error is nil
// for normal convergence, ErrSafetyLimit for a tripped safety counter, and
// the underlying failure otherwise.
func (c *Controller) iterate(ctx context.Context, session *models.Session) error {
	c.state = StateIterating

	var best *models.Design
	iteration := 0
	safetyCounter := 0
	totalDesigns := 0

	for {
		if err := ctx.Err(); err != nil {
			// Wall-clock timeout or cancellation: abort, leaving the
			// session in its last recorded state.
			c.state = StateFailed
			if failErr := c.fail(session.ID, fmt.Sprintf("run aborted: %v", err)); failErr != nil {
				return failErr
			}
			return fmt.Errorf("run aborted: %w", err)
		}

		iteration++
		safetyCounter++
		if safetyCounter > c.cfg.Optimization.SafetyLimit {
			c.state = StateSafetyLimit
			reason := fmt.Sprintf("safety limit exceeded (%d iterations)", c.cfg.Optimization.SafetyLimit)
			c.log.Error("safety limit tripped", "iteration", iteration)
			if err := c.fail(session.ID, reason); err != nil {
				return err
			}
			return ErrSafetyLimit
		}

		proposal := c.generator.Generate(iteration, best)
		c.log.Info("candidates generated",
			"iteration", iteration,
			"strategy", string(proposal.Strategy),
			"trust_radius", proposal.TrustRadius,
			"count", len(proposal.Candidates))

		designs, err := c.evaluateCandidates(ctx, proposal.Candidates, session.Config.Reynolds, iteration)
		if err != nil {
			c.state = StateFailed
			if failErr := c.fail(session.ID, err.Error()); failErr != nil {
				return failErr
			}
			return err
		}

		// Every design of this iteration is durably recorded before the
		// convergence check runs.
		for _, d := range designs {
			key := utils.DesignKey(d.GeometryID, d.Timestamp)
			if err := c.persist(ctx, "append design", func(ctx context.Context) error {
				return c.store.AppendDesign(ctx, session.ID, key, d)
			}); err != nil {
				c.state = StateFailed
				reason := fmt.Sprintf("failed to record design %s: %v", d.GeometryID, err)
				if failErr := c.fail(session.ID, reason); failErr != nil {
					return failErr
				}
				return fmt.Errorf("failed to record design %s: %w", d.GeometryID, err)
			}
		}
		totalDesigns += len(designs)

		// Best only ever moves to a strictly lower Cd among designs that
		// converged and meet the lift constraint.
		for i := range designs {
			d := &designs[i]
			if !d.SatisfiesConstraint(session.Config.ClMin) {
				continue
			}
			if best == nil || d.Cd < best.Cd {
				best = d
			}
		}

		if err := c.recordIteration(ctx, session.ID, iteration, totalDesigns, best, proposal); err != nil {
			c.state = StateFailed
			if failErr := c.fail(session.ID, err.Error()); failErr != nil {
				return failErr
			}
			return err
		}

		history, err := c.store.ListIterationSummaries(ctx, session.ID)
		if err != nil {
			// A convergence check that cannot read history means not
			// converged; the loop continues and the safety counter still
			// bounds it.
			c.log.Warn("convergence check skipped", "iteration", iteration, "error", err)
			continue
		}

		decision := c.evaluator.Check(history, iteration)
		c.log.Info("convergence checked",
			"iteration", iteration,
			"converged", decision.Converged,
			"reason", decision.Reason,
			"best_cd", decision.BestCd)

		if decision.Converged {
			c.state = StateConverged
			return c.complete(session.ID, decision.Reason)
		}
	}
}

// evaluateCandidates scores a batch concurrently, each candidate wrapped in
// the retry policy. Any candidate that still fails after retries fails the
// whole iteration.
func (c *Controller) evaluateCandidates(ctx context.Context, candidates []models.Parameters, reynolds, iteration int) ([]models.Design, error) {
	designs := make([]models.Design, len(candidates))
	errs := make([]error, len(candidates))

	var wg sync.WaitGroup
	for i, params := range candidates {
		wg.Add(1)
		go func(idx int, p models.Parameters) {
			defer wg.Done()

			geometryID := improvement.GeometryID(p)
			for _, warning := range improvement.AdvisoryWarnings(p) {
				c.log.Warn("marginal candidate", "geometry_id", geometryID, "warning", warning)
			}

			var evaluation *models.Evaluation
			err := c.retry.Do(ctx, func(ctx context.Context) error {
				var evalErr error
				evaluation, evalErr = c.oracle.Evaluate(ctx, p, reynolds)
				return evalErr
			})
			if err != nil {
				errs[idx] = fmt.Errorf("evaluation of %s failed: %w", geometryID, err)
				return
			}

			designs[idx] = models.Design{
				Parameters: p,
				GeometryID: geometryID,
				Cd:         evaluation.Cd,
				Cl:         evaluation.Cl,
				LOverD:     evaluation.LOverD,
				Converged:  evaluation.Converged,
				Iteration:  iteration,
				Timestamp:  time.Now().UTC(),
			}
		}(i, params)
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return designs, nil
}

// recordIteration pushes the per-iteration progress to the session record
// and writes the iteration summary. Summary writes are idempotent: a retry
// for the same iteration overwrites rather than duplicates.
func (c *Controller) recordIteration(ctx context.Context, sessionID string, iteration, totalDesigns int, best *models.Design, proposal improvement.Proposal) error {
	update := models.SessionUpdate{
		CurrentIteration:      &iteration,
		TotalDesignsEvaluated: &totalDesigns,
	}
	summary := models.IterationSummary{
		Iteration:      iteration,
		CandidateCount: len(proposal.Candidates),
		Strategy:       string(proposal.Strategy),
		TrustRadius:    proposal.TrustRadius,
		Confidence:     proposal.Confidence,
		Timestamp:      time.Now().UTC(),
	}
	if best != nil {
		update.BestCd = &best.Cd
		update.BestGeometryID = &best.GeometryID
		summary.BestCd = best.Cd
		summary.BestGeometryID = best.GeometryID
	}

	if err := c.persist(ctx, "update session", func(ctx context.Context) error {
		_, err := c.store.UpdateSession(ctx, sessionID, update)
		return err
	}); err != nil {
		return fmt.Errorf("failed to update session after iteration %d: %w", iteration, err)
	}
	if err := c.persist(ctx, "put iteration summary", func(ctx context.Context) error {
		return c.store.PutIterationSummary(ctx, sessionID, summary)
	}); err != nil {
		return fmt.Errorf("failed to record summary for iteration %d: %w", iteration, err)
	}
	return nil
}

// persist runs a store write with a single retry before escalating. A
// duplicate-key conflict is permanent and escalates immediately.
func (c *Controller) persist(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	err := fn(ctx)
	if err == nil {
		return nil
	}
	if errors.Is(err, store.ErrDesignExists) || errors.Is(err, store.ErrSessionExists) {
		return err
	}
	c.log.Warn("persistence write retried", "op", op, "error", err)
	return fn(ctx)
}

func (c *Controller) complete(sessionID, reason string) error {
	status := models.SessionStatusCompleted
	_, err := c.store.UpdateSession(context.Background(), sessionID, models.SessionUpdate{
		Status:            &status,
		ConvergenceReason: &reason,
	})
	if err != nil {
		return fmt.Errorf("failed to mark session completed: %w", err)
	}
	c.log.Info("session converged", "reason", reason)
	return nil
}

// fail marks the session FAILED with the given reason. Marking uses a
// background context so a cancelled run context cannot block the final
// status write.
func (c *Controller) fail(sessionID, reason string) error {
	status := models.SessionStatusFailed
	_, err := c.store.UpdateSession(context.Background(), sessionID, models.SessionUpdate{
		Status:            &status,
		Error:             &reason,
		ConvergenceReason: &reason,
	})
	if err != nil {
		return fmt.Errorf("failed to mark session failed (%s): %w", reason, err)
	}
	c.log.Error("session failed", "reason", reason)
	return nil
}

// report composes the final report from persisted history.
func (c *Controller) report(ctx context.Context, sessionID string) (*models.Report, error) {
	session, err := c.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session for report: %w", err)
	}
	designs, err := c.store.ListDesigns(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load designs for report: %w", err)
	}
	summaries, err := c.store.ListIterationSummaries(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load summaries for report: %w", err)
	}
	return improvement.BuildReport(session, designs, summaries), nil
}
