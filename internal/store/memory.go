package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/aeroopt/optimization-core/pkg/models"
)

// MemoryStore is an in-memory Store for development runs and tests.
type MemoryStore struct {
	mu        sync.RWMutex
	sessions  map[string]*models.Session
	designs   map[string]map[string]models.Design
	summaries map[string]map[int]models.IterationSummary
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions:  make(map[string]*models.Session),
		designs:   make(map[string]map[string]models.Design),
		summaries: make(map[string]map[int]models.IterationSummary),
	}
}

func (s *MemoryStore) CreateSession(ctx context.Context, session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[session.ID]; exists {
		return fmt.Errorf("%w: %s", ErrSessionExists, session.ID)
	}

	cp := *session
	s.sessions[session.ID] = &cp
	s.designs[session.ID] = make(map[string]models.Design)
	s.summaries[session.ID] = make(map[int]models.IterationSummary)
	return nil
}

func (s *MemoryStore) GetSession(ctx context.Context, id string) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	cp := *sess
	return &cp, nil
}

func (s *MemoryStore) UpdateSession(ctx context.Context, id string, update models.SessionUpdate) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	applySessionUpdate(sess, update)
	sess.UpdatedAt = time.Now().UTC()

	cp := *sess
	return &cp, nil
}

func (s *MemoryStore) ListSessions(ctx context.Context, limit int) ([]*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}
	out := make([]*models.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		cp := *sess
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) AppendDesign(ctx context.Context, sessionID, key string, design models.Design) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ledger, ok := s.designs[sessionID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, sessionID)
	}
	if _, exists := ledger[key]; exists {
		return fmt.Errorf("%w: %s", ErrDesignExists, key)
	}
	ledger[key] = design
	return nil
}

func (s *MemoryStore) ListDesigns(ctx context.Context, sessionID string) ([]models.Design, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ledger, ok := s.designs[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, sessionID)
	}
	out := make([]models.Design, 0, len(ledger))
	for _, d := range ledger {
		out = append(out, d)
	}
	return out, nil
}

func (s *MemoryStore) PutIterationSummary(ctx context.Context, sessionID string, summary models.IterationSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	summaries, ok := s.summaries[sessionID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, sessionID)
	}
	summaries[summary.Iteration] = summary
	return nil
}

func (s *MemoryStore) ListIterationSummaries(ctx context.Context, sessionID string) ([]models.IterationSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summaries, ok := s.summaries[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, sessionID)
	}
	out := make([]models.IterationSummary, 0, len(summaries))
	for _, sum := range summaries {
		out = append(out, sum)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Iteration < out[j].Iteration
	})
	return out, nil
}

func (s *MemoryStore) Close() error {
	return nil
}

func applySessionUpdate(sess *models.Session, update models.SessionUpdate) {
	if update.Status != nil {
		sess.Status = *update.Status
	}
	if update.CurrentIteration != nil {
		sess.CurrentIteration = *update.CurrentIteration
	}
	if update.TotalDesignsEvaluated != nil {
		sess.TotalDesignsEvaluated = *update.TotalDesignsEvaluated
	}
	if update.BestCd != nil {
		v := *update.BestCd
		sess.BestCd = &v
	}
	if update.BestGeometryID != nil {
		sess.BestGeometryID = *update.BestGeometryID
	}
	if update.ConvergenceReason != nil {
		sess.ConvergenceReason = *update.ConvergenceReason
	}
	if update.Error != nil {
		sess.Error = *update.Error
	}
}
