package service

import (
	"context"
	"sync"
	"time"

	"github.com/nearu/nearu-backend/internal/location"
	"github.com/nearu/nearu-backend/internal/logging"
	"github.com/nearu/nearu-backend/internal/metrics"
	"github.com/nearu/nearu-backend/internal/models"
	"github.com/nearu/nearu-backend/internal/spatial"
)

// session is one user's sampler pipeline. Raw samples are pushed into source
// and the tracker keeps the ones that pass the accuracy and movement filters.
// mu is held for a whole Submit so one user's samples are handled in order.
type session struct {
	mu       sync.Mutex
	source   *location.PushSource
	tracker  *location.Tracker
	accepted *models.Location
	lastSeen time.Time
}

// SessionManager keeps a tracking session per user and turns accepted
// samples into check-ins. Sessions idle for longer than the presence
// active window are evicted.
type SessionManager struct {
	presence *PresenceService
	metrics  metrics.Recorder
	idle     time.Duration

	mu       sync.Mutex
	sessions map[string]*session
}

// NewSessionManager creates a new session manager
func NewSessionManager(presence *PresenceService, rec metrics.Recorder) *SessionManager {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &SessionManager{
		presence: presence,
		metrics:  rec,
		idle:     presence.cfg.ActiveWindow,
		sessions: make(map[string]*session),
	}
}

func (m *SessionManager) session(userID string) (*session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[userID]; ok {
		return s, nil
	}

	s := &session{source: location.NewPushSource(), lastSeen: m.presence.now()}
	tracker, err := location.NewSampler(s.source).StartTracking(func(loc models.Location) {
		accepted := loc
		s.accepted = &accepted
	}, nil)
	if err != nil {
		return nil, err
	}
	s.tracker = tracker
	m.sessions[userID] = s
	return s, nil
}

// Submit pushes a raw sample through the user's session. A filtered sample
// yields Accepted == false and touches nothing. When the check-in fails the
// tracker forgets the sample so that a retry is not filtered as a non-move.
func (m *SessionManager) Submit(ctx context.Context, userID string, loc models.Location) (*models.CheckinResult, error) {
	if err := spatial.ValidateLocation(loc); err != nil {
		m.metrics.RecordSample(false)
		return nil, err
	}

	s, err := m.lockSession(userID)
	if err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	s.lastSeen = m.presence.now()

	var prev *models.Location
	if last, ok := s.tracker.LastAccepted(); ok {
		prev = &last
	}

	s.accepted = nil
	s.source.Push(loc)
	accepted := s.accepted
	if accepted == nil {
		m.metrics.RecordSample(false)
		return &models.CheckinResult{Accepted: false, Nearby: []models.NearbyUser{}, Crossings: []models.PairStatus{}}, nil
	}

	result, err := m.presence.Checkin(ctx, userID, *accepted)
	if err != nil {
		s.tracker.Restore(prev)
		return nil, err
	}
	return result, nil
}

// lockSession returns the user's session locked, skipping one that was
// evicted between lookup and lock
func (m *SessionManager) lockSession(userID string) (*session, error) {
	for {
		s, err := m.session(userID)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		if !s.tracker.Stopped() {
			return s, nil
		}
		s.mu.Unlock()
	}
}

// EvictIdle stops the sessions that have not seen a sample within the
// active window and returns how many were removed
func (m *SessionManager) EvictIdle() int {
	cutoff := m.presence.now().Add(-m.idle)

	m.mu.Lock()
	var idle []*session
	for uid, s := range m.sessions {
		// busy sessions are not idle
		if !s.mu.TryLock() {
			continue
		}
		if s.lastSeen.Before(cutoff) {
			idle = append(idle, s)
			delete(m.sessions, uid)
		}
		s.mu.Unlock()
	}
	m.mu.Unlock()

	for _, s := range idle {
		s.tracker.Stop()
	}
	return len(idle)
}

// Run evicts idle sessions every interval until ctx is done
func (m *SessionManager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.EvictIdle(); n > 0 {
				logging.Debug().Int("evicted", n).Msg("evicted idle tracking sessions")
			}
		}
	}
}

// Stop ends the user's session
func (m *SessionManager) Stop(userID string) {
	m.mu.Lock()
	s, ok := m.sessions[userID]
	delete(m.sessions, userID)
	m.mu.Unlock()

	if ok {
		s.tracker.Stop()
	}
}

// StopAll ends every session
func (m *SessionManager) StopAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.tracker.Stop()
	}
}

// Active returns the number of open sessions
func (m *SessionManager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
