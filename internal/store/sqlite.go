package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/aeroopt/optimization-core/pkg/models"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS sessions (
    id                  TEXT PRIMARY KEY,
    objective           TEXT NOT NULL,
    cl_min              REAL NOT NULL,
    reynolds            INTEGER NOT NULL,
    max_iterations      INTEGER NOT NULL,
    status              TEXT NOT NULL,
    current_iteration   INTEGER NOT NULL DEFAULT 0,
    total_designs       INTEGER NOT NULL DEFAULT 0,
    best_cd             REAL NULL,
    best_geometry_id    TEXT NOT NULL DEFAULT '',
    convergence_reason  TEXT NOT NULL DEFAULT '',
    error               TEXT NOT NULL DEFAULT '',
    created_at          TEXT NOT NULL,
    updated_at          TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS designs (
    session_id      TEXT NOT NULL,
    design_key      TEXT NOT NULL,
    geometry_id     TEXT NOT NULL,
    thickness       REAL NOT NULL,
    max_camber      REAL NOT NULL,
    camber_position REAL NOT NULL,
    alpha           REAL NOT NULL,
    cd              REAL NOT NULL,
    cl              REAL NOT NULL,
    l_over_d        REAL NOT NULL,
    converged       INTEGER NOT NULL,
    iteration       INTEGER NOT NULL,
    created_at      TEXT NOT NULL,
    PRIMARY KEY (session_id, design_key)
);
CREATE INDEX IF NOT EXISTS idx_designs_session ON designs (session_id);
CREATE TABLE IF NOT EXISTS iteration_summaries (
    session_id       TEXT NOT NULL,
    iteration        INTEGER NOT NULL,
    candidate_count  INTEGER NOT NULL,
    best_cd          REAL NOT NULL,
    best_geometry_id TEXT NOT NULL DEFAULT '',
    strategy         TEXT NOT NULL,
    trust_radius     REAL NOT NULL,
    confidence       REAL NOT NULL,
    created_at       TEXT NOT NULL,
    PRIMARY KEY (session_id, iteration)
);
`

// SQLiteStore is a file-backed Store. Safe for a single active controller
// per session; cross-session reads are fine concurrently.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and if needed initializes) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db at %s: %w", path, err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize sqlite schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) CreateSession(ctx context.Context, session *models.Session) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions
		 (id, objective, cl_min, reynolds, max_iterations, status, current_iteration,
		  total_designs, best_cd, best_geometry_id, convergence_reason, error, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		session.ID,
		session.Config.Objective,
		session.Config.ClMin,
		session.Config.Reynolds,
		session.Config.MaxIterations,
		string(session.Status),
		session.CurrentIteration,
		session.TotalDesignsEvaluated,
		nullableFloat(session.BestCd),
		session.BestGeometryID,
		session.ConvergenceReason,
		session.Error,
		formatTime(session.CreatedAt),
		formatTime(session.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrSessionExists, session.ID)
		}
		return fmt.Errorf("failed to create session %s: %w", session.ID, err)
	}
	return nil
}

func (s *SQLiteStore) GetSession(ctx context.Context, id string) (*models.Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, objective, cl_min, reynolds, max_iterations, status, current_iteration,
		        total_designs, best_cd, best_geometry_id, convergence_reason, error, created_at, updated_at
		 FROM sessions WHERE id = ?`, id)
	return scanSession(row)
}

func (s *SQLiteStore) UpdateSession(ctx context.Context, id string, update models.SessionUpdate) (*models.Session, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin update for session %s: %w", id, err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx,
		`SELECT id, objective, cl_min, reynolds, max_iterations, status, current_iteration,
		        total_designs, best_cd, best_geometry_id, convergence_reason, error, created_at, updated_at
		 FROM sessions WHERE id = ?`, id)
	sess, err := scanSession(row)
	if err != nil {
		return nil, err
	}

	applySessionUpdate(sess, update)
	sess.UpdatedAt = time.Now().UTC()

	_, err = tx.ExecContext(ctx,
		`UPDATE sessions SET status = ?, current_iteration = ?, total_designs = ?, best_cd = ?,
		        best_geometry_id = ?, convergence_reason = ?, error = ?, updated_at = ?
		 WHERE id = ?`,
		string(sess.Status),
		sess.CurrentIteration,
		sess.TotalDesignsEvaluated,
		nullableFloat(sess.BestCd),
		sess.BestGeometryID,
		sess.ConvergenceReason,
		sess.Error,
		formatTime(sess.UpdatedAt),
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update session %s: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit update for session %s: %w", id, err)
	}
	return sess, nil
}

func (s *SQLiteStore) ListSessions(ctx context.Context, limit int) ([]*models.Session, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, objective, cl_min, reynolds, max_iterations, status, current_iteration,
		        total_designs, best_cd, best_geometry_id, convergence_reason, error, created_at, updated_at
		 FROM sessions ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var out []*models.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) AppendDesign(ctx context.Context, sessionID, key string, design models.Design) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO designs
		 (session_id, design_key, geometry_id, thickness, max_camber, camber_position, alpha,
		  cd, cl, l_over_d, converged, iteration, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sessionID,
		key,
		design.GeometryID,
		design.Parameters.Thickness,
		design.Parameters.MaxCamber,
		design.Parameters.CamberPosition,
		design.Parameters.Alpha,
		design.Cd,
		design.Cl,
		design.LOverD,
		boolToInt(design.Converged),
		design.Iteration,
		formatTime(design.Timestamp),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrDesignExists, key)
		}
		return fmt.Errorf("failed to append design %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) ListDesigns(ctx context.Context, sessionID string) ([]models.Design, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT geometry_id, thickness, max_camber, camber_position, alpha,
		        cd, cl, l_over_d, converged, iteration, created_at
		 FROM designs WHERE session_id = ?`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list designs for %s: %w", sessionID, err)
	}
	defer rows.Close()

	out := make([]models.Design, 0)
	for rows.Next() {
		var d models.Design
		var converged int
		var createdAt string
		if err := rows.Scan(
			&d.GeometryID,
			&d.Parameters.Thickness,
			&d.Parameters.MaxCamber,
			&d.Parameters.CamberPosition,
			&d.Parameters.Alpha,
			&d.Cd,
			&d.Cl,
			&d.LOverD,
			&converged,
			&d.Iteration,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan design row: %w", err)
		}
		d.Converged = converged != 0
		d.Timestamp = parseTime(createdAt)
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) PutIterationSummary(ctx context.Context, sessionID string, summary models.IterationSummary) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO iteration_summaries
		 (session_id, iteration, candidate_count, best_cd, best_geometry_id, strategy, trust_radius, confidence, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(session_id, iteration) DO UPDATE SET
		   candidate_count = excluded.candidate_count,
		   best_cd = excluded.best_cd,
		   best_geometry_id = excluded.best_geometry_id,
		   strategy = excluded.strategy,
		   trust_radius = excluded.trust_radius,
		   confidence = excluded.confidence,
		   created_at = excluded.created_at`,
		sessionID,
		summary.Iteration,
		summary.CandidateCount,
		summary.BestCd,
		summary.BestGeometryID,
		summary.Strategy,
		summary.TrustRadius,
		summary.Confidence,
		formatTime(summary.Timestamp),
	)
	if err != nil {
		return fmt.Errorf("failed to put summary for iteration %d: %w", summary.Iteration, err)
	}
	return nil
}

func (s *SQLiteStore) ListIterationSummaries(ctx context.Context, sessionID string) ([]models.IterationSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT iteration, candidate_count, best_cd, best_geometry_id, strategy, trust_radius, confidence, created_at
		 FROM iteration_summaries WHERE session_id = ? ORDER BY iteration ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list summaries for %s: %w", sessionID, err)
	}
	defer rows.Close()

	out := make([]models.IterationSummary, 0)
	for rows.Next() {
		var sum models.IterationSummary
		var createdAt string
		if err := rows.Scan(
			&sum.Iteration,
			&sum.CandidateCount,
			&sum.BestCd,
			&sum.BestGeometryID,
			&sum.Strategy,
			&sum.TrustRadius,
			&sum.Confidence,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan summary row: %w", err)
		}
		sum.Timestamp = parseTime(createdAt)
		out = append(out, sum)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func scanSession(row interface{ Scan(...any) error }) (*models.Session, error) {
	var sess models.Session
	var status string
	var bestCd sql.NullFloat64
	var createdAt, updatedAt string

	err := row.Scan(
		&sess.ID,
		&sess.Config.Objective,
		&sess.Config.ClMin,
		&sess.Config.Reynolds,
		&sess.Config.MaxIterations,
		&status,
		&sess.CurrentIteration,
		&sess.TotalDesignsEvaluated,
		&bestCd,
		&sess.BestGeometryID,
		&sess.ConvergenceReason,
		&sess.Error,
		&createdAt,
		&updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan session row: %w", err)
	}

	sess.Status = models.SessionStatus(status)
	if bestCd.Valid {
		v := bestCd.Float64
		sess.BestCd = &v
	}
	sess.CreatedAt = parseTime(createdAt)
	sess.UpdatedAt = parseTime(updatedAt)
	return &sess, nil
}

func nullableFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
