package main

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	maxConnsPerIP = 5
	maxTotalConns = 1000
)

// Hub manages all connected clients and routes them to sessions
type Hub struct {
	mu         sync.RWMutex
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	sessions   *SessionManager
	config     *ConfigStore
	// Connection limiting (mutex-protected, accessed from HTTP handlers)
	connMu     sync.Mutex
	ipConns    map[string]int
	totalConns int
	// Persistence; all nil when the server runs without a database
	db        *DB
	auth      *Auth
	analytics *Analytics

	stop     chan struct{}
	stopOnce sync.Once
	reaper   sync.WaitGroup
}

// NewHub creates a new Hub. db may be nil.
func NewHub(db *DB, store *ConfigStore) *Hub {
	h := &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client, 64),
		unregister: make(chan *Client, 64),
		config:     store,
		ipConns:    make(map[string]int),
		db:         db,
		stop:       make(chan struct{}),
	}
	if db != nil {
		h.auth = NewAuth(db)
		h.analytics = NewAnalytics(db)
	}
	h.sessions = NewSessionManager(store, h)
	h.sessions.onStart = func(sess *Session) {
		h.track(EvtSessionStart, 0, sess.ID, map[string]interface{}{
			"variant": sess.Variant,
			"seed":    sess.Game.Seed(),
		})
	}
	h.sessions.onEnd = func(sess *Session) {
		h.track(EvtSessionEnd, 0, sess.ID, map[string]interface{}{
			"variant": sess.Variant,
			"seconds": time.Since(sess.Created).Seconds(),
		})
	}
	return h
}

// RecordStart tracks the start of an encounter. It implements ResultRecorder.
func (h *Hub) RecordStart(sessionID, variant string, seed int64) {
	h.track(EvtEncounterStart, 0, sessionID, map[string]interface{}{
		"variant": variant,
		"seed":    seed,
	})
}

// RecordResult stores a cleared encounter. It implements ResultRecorder.
func (h *Hub) RecordResult(sessionID string, pilotID int64, res EncounterResult) (int64, error) {
	h.track(EvtEncounterEnd, pilotID, sessionID, map[string]interface{}{
		"variant": res.Variant,
		"frames":  res.Frames,
		"damage":  res.Damage,
	})
	if h.db == nil {
		return 0, nil
	}
	return h.db.RecordEncounter(EncounterRecord{
		SessionID: sessionID,
		Variant:   res.Variant,
		Seed:      res.Seed,
		Frames:    int64(res.Frames),
		Seconds:   res.Duration.Seconds(),
		Damage:    res.Damage,
		Spawned:   int64(res.Spawned),
		PilotID:   pilotID,
	})
}

func (h *Hub) track(evtType string, playerID int64, sessionID string, data interface{}) {
	if h.analytics != nil {
		h.analytics.Track(evtType, playerID, sessionID, data)
	}
}

func (h *Hub) CanAccept(ip string) bool {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	if h.totalConns >= maxTotalConns {
		return false
	}
	if h.ipConns[ip] >= maxConnsPerIP {
		return false
	}
	return true
}

func (h *Hub) TrackConnect(ip string) {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	h.ipConns[ip]++
	h.totalConns++
}

func (h *Hub) TrackDisconnect(ip string) {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	h.ipConns[ip]--
	if h.ipConns[ip] <= 0 {
		delete(h.ipConns, ip)
	}
	h.totalConns--
}

// Run processes register/unregister events and reaps idle sessions until
// Close is called.
func (h *Hub) Run() {
	h.reaper.Add(1)
	go func() {
		defer h.reaper.Done()
		h.sessions.RunReaper(h.stop)
	}()
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			if client.sessionID != "" {
				h.sessions.RemoveClient(client.sessionID, client.id)
			}
			logger.WithFields(logrus.Fields{
				"client": client.id,
				"addr":   client.remoteAddr,
			}).Debug("client disconnected")

		case <-h.stop:
			return
		}
	}
}

// Close stops every session and flushes analytics. The database is left to
// its owner.
func (h *Hub) Close() {
	h.stopOnce.Do(func() {
		close(h.stop)
		h.reaper.Wait()
		h.sessions.StopAll()
		if h.analytics != nil {
			h.analytics.Stop()
		}
	})
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// TotalConns returns the tracked connection count
func (h *Hub) TotalConns() int {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	return h.totalConns
}
