// Package store provides the durable persistence contract for optimization
// sessions, the append-only design ledger, and per-iteration summaries.
//
// Designs are written once under a unique key (geometry id + timestamp), so
// concurrent or retried writes never collide. Iteration summaries are keyed
// by iteration number alone; a retried write overwrites the prior record,
// which is accepted idempotent behavior. Session updates are read-modify-
// write with last-writer-wins semantics; a single active controller per
// session is the supported model.
package store

import (
	"context"
	"errors"

	"github.com/aeroopt/optimization-core/pkg/models"
)

var (
	// ErrNotFound is returned when a session does not exist.
	ErrNotFound = errors.New("session not found")
	// ErrSessionExists is returned when creating a session whose id is taken.
	ErrSessionExists = errors.New("session already exists")
	// ErrDesignExists is returned when a design key is already occupied by a
	// different record.
	ErrDesignExists = errors.New("design already exists")
)

// Store is the persistence contract the controller depends on.
type Store interface {
	// CreateSession persists a new session. Fails with ErrSessionExists if
	// the id is already taken.
	CreateSession(ctx context.Context, session *models.Session) error

	// GetSession returns the session or ErrNotFound.
	GetSession(ctx context.Context, id string) (*models.Session, error)

	// UpdateSession applies a partial update to the session and stamps
	// UpdatedAt. Returns the updated session or ErrNotFound.
	UpdateSession(ctx context.Context, id string, update models.SessionUpdate) (*models.Session, error)

	// ListSessions returns up to limit sessions, newest first.
	ListSessions(ctx context.Context, limit int) ([]*models.Session, error)

	// AppendDesign appends a design to the session's ledger under the given
	// unique key. An existing key fails with ErrDesignExists — designs are
	// never overwritten.
	AppendDesign(ctx context.Context, sessionID, key string, design models.Design) error

	// ListDesigns returns all designs for the session in no particular
	// order; callers sort and filter.
	ListDesigns(ctx context.Context, sessionID string) ([]models.Design, error)

	// PutIterationSummary writes the summary keyed by its iteration number,
	// overwriting any prior record for that iteration.
	PutIterationSummary(ctx context.Context, sessionID string, summary models.IterationSummary) error

	// ListIterationSummaries returns summaries sorted by iteration number.
	ListIterationSummaries(ctx context.Context, sessionID string) ([]models.IterationSummary, error)

	// Close releases the underlying resources.
	Close() error
}
