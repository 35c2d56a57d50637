package availability

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/healthfirst/portal-api/internal/model"
	"github.com/healthfirst/portal-api/pkg/metrics"
)

var ErrSessionRequired = errors.New("portal session id is required")

// Service keeps one editor per portal session. Editors expire after an idle
// period, which is the server-side equivalent of the screen unmounting.
type Service interface {
	// Edit runs fn against the session's editor, opening one on the
	// placeholder draft if needed, and returns the resulting draft.
	Edit(sessionID string, fn func(e *Editor)) (model.AvailabilityDraft, error)
	Draft(sessionID string) (model.AvailabilityDraft, error)
	Save(ctx context.Context, sessionID, token string) (model.AvailabilityDraft, error)
	Discard(sessionID string)
}

type entry struct {
	mu     sync.Mutex
	editor *Editor
}

type service struct {
	drafts    *cache.Cache
	submitter Submitter
	metrics   *metrics.Metrics
	logger    *zap.Logger

	// open serializes entry creation so two requests do not race to create
	// different editors for the same session.
	open sync.Mutex
}

type Config struct {
	IdleTTL         time.Duration
	CleanupInterval time.Duration
}

func NewService(cfg Config, submitter Submitter, m *metrics.Metrics, logger *zap.Logger) Service {
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 30 * time.Minute
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = 10 * time.Minute
	}
	return &service{
		drafts:    cache.New(cfg.IdleTTL, cfg.CleanupInterval),
		submitter: submitter,
		metrics:   m,
		logger:    logger,
	}
}

func (s *service) entry(sessionID string) (*entry, error) {
	if sessionID == "" {
		return nil, ErrSessionRequired
	}

	s.open.Lock()
	defer s.open.Unlock()

	if v, ok := s.drafts.Get(sessionID); ok {
		// Touch so active editing keeps the draft alive.
		s.drafts.SetDefault(sessionID, v)
		return v.(*entry), nil
	}

	e := &entry{editor: NewEditor()}
	s.drafts.SetDefault(sessionID, e)
	s.logger.Debug("availability editor opened", zap.String("session_id", sessionID))
	return e, nil
}

func (s *service) Edit(sessionID string, fn func(e *Editor)) (model.AvailabilityDraft, error) {
	e, err := s.entry(sessionID)
	if err != nil {
		return model.AvailabilityDraft{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	fn(e.editor)
	return e.editor.Draft(), nil
}

func (s *service) Draft(sessionID string) (model.AvailabilityDraft, error) {
	return s.Edit(sessionID, func(*Editor) {})
}

// Save submits the current draft. The lock is held only while taking the
// snapshot, so edits made during the upstream call are not blocked; they are
// simply not part of this submission.
func (s *service) Save(ctx context.Context, sessionID, token string) (model.AvailabilityDraft, error) {
	e, err := s.entry(sessionID)
	if err != nil {
		return model.AvailabilityDraft{}, err
	}

	e.mu.Lock()
	snapshot := e.editor.Draft()
	e.mu.Unlock()

	start := time.Now()
	err = s.submitter.SubmitAvailability(ctx, token, snapshot)
	s.metrics.ObserveSave(err, time.Since(start))
	if err != nil {
		s.logger.Warn("availability save failed",
			zap.String("session_id", sessionID),
			zap.String("clinician", snapshot.ClinicianName),
			zap.Error(err),
		)
		return snapshot, fmt.Errorf("failed to save availability: %w", err)
	}

	s.logger.Info("availability saved",
		zap.String("session_id", sessionID),
		zap.String("clinician", snapshot.ClinicianName),
		zap.Int("weekly_slots", len(snapshot.WeeklySlots)),
		zap.Int("blocked_intervals", len(snapshot.BlockedIntervals)),
	)
	return snapshot, nil
}

func (s *service) Discard(sessionID string) {
	s.drafts.Delete(sessionID)
}
