package main

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const defaultMaxSessions = 100

// DefaultSessionIdleTimeout is how long a session may sit without clients
// before it is reaped, unless the config sets server.idle_timeout.
const DefaultSessionIdleTimeout = 60 * time.Second

var ErrTooManySessions = errors.New("too many active sessions")

// Session is a running encounter that clients can pilot or watch
type Session struct {
	ID      string
	Name    string
	Variant string
	Created time.Time
	Game    *Game
}

// SessionManager handles creation, lookup and reaping of sessions
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	config   *ConfigStore
	recorder ResultRecorder
	onStart  func(*Session)
	onEnd    func(*Session)

	idleTimeout time.Duration
}

// NewSessionManager creates a manager reading its limits and variant
// overrides from store.
func NewSessionManager(store *ConfigStore, recorder ResultRecorder) *SessionManager {
	idle := store.Get().Server.IdleTimeout
	if idle <= 0 {
		idle = DefaultSessionIdleTimeout
	}
	return &SessionManager{
		sessions:    make(map[string]*Session),
		config:      store,
		recorder:    recorder,
		idleTimeout: idle,
	}
}

// IdleTimeout returns how long an empty session survives
func (sm *SessionManager) IdleTimeout() time.Duration {
	return sm.idleTimeout
}

// CreateSession starts a session running variant. A nil seed picks one from
// the clock. Config changes apply to sessions created after them.
func (sm *SessionManager) CreateSession(name, variant string, seed *int64) (*Session, error) {
	cfg := sm.config.Get()
	if variant == "" {
		variant = cfg.Server.DefaultVariant
	}
	v, err := LookupVariant(variant, cfg)
	if err != nil {
		return nil, err
	}
	s := time.Now().UnixNano()
	if seed != nil {
		s = *seed
	}

	maxSessions := cfg.Server.MaxSessions
	if maxSessions <= 0 {
		maxSessions = defaultMaxSessions
	}

	sm.mu.Lock()
	if len(sm.sessions) >= maxSessions {
		sm.mu.Unlock()
		return nil, fmt.Errorf("%w (%d)", ErrTooManySessions, maxSessions)
	}
	id := GenerateUUID()
	game := NewGame(id, v, EncounterOptions{
		Seed:        s,
		Field:       cfg.Field(),
		PlayerSpeed: cfg.Player.Speed,
		PlayerSize:  cfg.Player.Size,
	}, sm.recorder)
	sess := &Session{
		ID:      id,
		Name:    name,
		Variant: v.Name,
		Created: time.Now(),
		Game:    game,
	}
	sm.sessions[id] = sess
	onStart := sm.onStart
	sm.mu.Unlock()

	go game.Run()
	logger.WithFields(logrus.Fields{
		"session": id,
		"variant": v.Name,
		"seed":    s,
	}).Info("session created")
	if onStart != nil {
		onStart(sess)
	}
	return sess, nil
}

// GetSession returns a session by ID
func (sm *SessionManager) GetSession(id string) *Session {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.sessions[id]
}

// RemoveClient detaches a client from a session. Empty sessions are left
// for the reaper so a reconnecting client can rejoin.
func (sm *SessionManager) RemoveClient(sessionID, clientID string) {
	sess := sm.GetSession(sessionID)
	if sess == nil {
		return
	}
	sess.Game.RemoveClient(clientID)
}

// Reap stops sessions that have had no clients for the idle timeout and
// returns how many were removed.
func (sm *SessionManager) Reap(now time.Time) int {
	sm.mu.Lock()
	var idle []*Session
	for id, sess := range sm.sessions {
		since := sess.Game.IdleSince()
		if !since.IsZero() && now.Sub(since) >= sm.idleTimeout {
			idle = append(idle, sess)
			delete(sm.sessions, id)
		}
	}
	sm.mu.Unlock()

	for _, sess := range idle {
		sess.Game.Stop()
		logger.WithField("session", sess.ID).Info("idle session reaped")
		if sm.onEnd != nil {
			sm.onEnd(sess)
		}
	}
	return len(idle)
}

// RunReaper reaps idle sessions until stop is closed
func (sm *SessionManager) RunReaper(stop <-chan struct{}) {
	interval := sm.idleTimeout / 4
	if interval < 10*time.Millisecond {
		interval = 10 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case now := <-ticker.C:
			sm.Reap(now)
		case <-stop:
			return
		}
	}
}

// StopAll stops every session
func (sm *SessionManager) StopAll() {
	sm.mu.Lock()
	all := make([]*Session, 0, len(sm.sessions))
	for id, sess := range sm.sessions {
		all = append(all, sess)
		delete(sm.sessions, id)
	}
	sm.mu.Unlock()
	for _, sess := range all {
		sess.Game.Stop()
	}
}

// Count returns the number of live sessions
func (sm *SessionManager) Count() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}

// ListSessions returns info about all active sessions, oldest first
func (sm *SessionManager) ListSessions() []SessionInfo {
	sm.mu.RLock()
	all := make([]*Session, 0, len(sm.sessions))
	for _, sess := range sm.sessions {
		all = append(all, sess)
	}
	sm.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool { return all[i].Created.Before(all[j].Created) })

	list := make([]SessionInfo, 0, len(all))
	for _, sess := range all {
		phase, spectators, piloted := sess.Game.Info()
		list = append(list, SessionInfo{
			ID:         sess.ID,
			Name:       sess.Name,
			Variant:    sess.Variant,
			Phase:      phase,
			Spectators: spectators,
			Piloted:    piloted,
		})
	}
	return list
}
