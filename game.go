package main

import (
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vmihailenco/msgpack/v5"
)

// TickDuration is the wall-clock period of the session loop
const TickDuration = time.Second / TickRate

const (
	RolePilot     = "pilot"
	RoleSpectator = "spectator"

	maxClientsPerSession = 32
)

var (
	ErrSessionPiloted = errors.New("session already has a pilot")
	ErrSessionFull    = errors.New("session full")
)

// Broadcaster sends messages to one connected client
type Broadcaster interface {
	SendJSON(msg interface{})
	SendBinary(data []byte)
}

// ResultRecorder is told when encounters start and persists the ones that
// finish. RecordResult returns the record ID.
type ResultRecorder interface {
	RecordStart(sessionID, variant string, seed int64)
	RecordResult(sessionID string, pilotID int64, res EncounterResult) (int64, error)
}

// Game runs one encounter session: a 60 Hz loop stepping the encounter and
// broadcasting snapshots to its pilot and spectators.
type Game struct {
	mu       sync.Mutex
	id       string
	variant  Variant
	opts     EncounterOptions
	enc      *Encounter
	recorder ResultRecorder

	clients    map[string]Broadcaster // clientID -> client
	pilotID    string
	pilotAuth  int64
	sounds     []SoundEvent
	tick       uint64
	emptySince time.Time

	stopped bool
	stop    chan struct{}
	log     *logrus.Entry
}

// NewGame creates a session for variant v. The encounter starts right away
// but only advances once Run is called.
func NewGame(id string, v Variant, opts EncounterOptions, recorder ResultRecorder) *Game {
	g := &Game{
		id:         id,
		variant:    v,
		opts:       opts,
		recorder:   recorder,
		clients:    make(map[string]Broadcaster),
		emptySince: time.Now(),
		stop:       make(chan struct{}),
		log:        logger.WithField("session", id),
	}
	g.startEncounter(opts.Seed)
	return g
}

// startEncounter replaces the current encounter with a fresh one. The caller
// holds g.mu or owns g exclusively.
func (g *Game) startEncounter(seed int64) {
	if g.enc != nil {
		g.enc.Close()
	}
	opts := g.opts
	opts.Seed = seed
	opts.Sounds = g
	opts.OnDefeat = g.onDefeat
	opts.Log = g.log
	g.enc = NewEncounter(g.variant, opts)
	g.sounds = g.sounds[:0]
	g.enc.Start()
	if g.recorder != nil {
		g.recorder.RecordStart(g.id, g.variant.Name, seed)
	}
}

// Run starts the game loop
func (g *Game) Run() {
	g.mu.Lock()
	if g.stopped {
		g.mu.Unlock()
		return
	}
	g.mu.Unlock()

	ticker := time.NewTicker(TickDuration)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			g.update()
		case <-g.stop:
			return
		}
	}
}

// Stop terminates the game loop and tears the encounter down
func (g *Game) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.stopped {
		return
	}
	g.stopped = true
	close(g.stop)
	g.enc.Close()
}

// update runs one simulation tick
func (g *Game) update() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.stopped {
		return
	}
	g.step()
}

// step advances the encounter by one frame and broadcasts on every
// BroadcastEvery-th tick. The caller holds g.mu.
func (g *Game) step() {
	g.enc.Step(FrameDuration)
	g.tick++
	if g.tick%BroadcastEvery == 0 {
		g.broadcastState()
	}
}

// PlaySound buffers a sound cue for the next snapshot. It is called from
// inside Step, so g.mu is already held.
func (g *Game) PlaySound(ev SoundEvent) {
	g.sounds = append(g.sounds, ev)
}

// onDefeat runs inside Step or ApplyDamage with g.mu held
func (g *Game) onDefeat(res EncounterResult) {
	var rid int64
	if g.recorder != nil {
		id, err := g.recorder.RecordResult(g.id, g.pilotAuth, res)
		if err != nil {
			g.log.WithError(err).Error("failed to record encounter")
		}
		rid = id
	}
	// Final frame so clients see the cleared stage
	g.broadcastState()
	g.broadcastMsg(Envelope{T: MsgDefeated, Data: DefeatedMsg{
		Variant:  res.Variant,
		Frames:   res.Frames,
		Seconds:  res.Duration.Seconds(),
		Damage:   res.Damage,
		Spawned:  res.Spawned,
		RecordID: rid,
	}})
}

// AddClient attaches a client as pilot or spectator
func (g *Game) AddClient(clientID, role string, client Broadcaster, authID int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(g.clients) >= maxClientsPerSession {
		return ErrSessionFull
	}
	if role == RolePilot {
		if g.pilotID != "" && g.pilotID != clientID {
			return ErrSessionPiloted
		}
		g.pilotID = clientID
		g.pilotAuth = authID
	}
	g.clients[clientID] = client
	g.emptySince = time.Time{}
	return nil
}

// RemoveClient detaches a client. A leaving pilot's intent is cleared so the
// avatar stops.
func (g *Game) RemoveClient(clientID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.clients, clientID)
	if g.pilotID == clientID {
		g.pilotID = ""
		g.pilotAuth = 0
		g.enc.SetIntent(Intent{})
	}
	if len(g.clients) == 0 {
		g.emptySince = time.Now()
	}
}

// HandleIntent applies a movement intent sent by the pilot
func (g *Game) HandleIntent(clientID string, in Intent) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if clientID != g.pilotID {
		return
	}
	g.enc.SetIntent(in)
}

// ApplyDamage damages the boss on behalf of the pilot. It returns the damage
// applied.
func (g *Game) ApplyDamage(clientID string, amount int) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	if clientID != g.pilotID {
		return 0
	}
	return g.enc.ApplyDamage(amount)
}

// Restart begins a new encounter of the same variant once the current one
// is over. It reports whether a new encounter was started.
func (g *Game) Restart(clientID string, seed int64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if clientID != g.pilotID || g.enc.Phase() != PhaseDefeated {
		return false
	}
	g.startEncounter(seed)
	return true
}

// Info returns a summary for session lists
func (g *Game) Info() (phase string, spectators int, piloted bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	spectators = len(g.clients)
	if g.pilotID != "" {
		spectators--
	}
	return g.enc.Phase().String(), spectators, g.pilotID != ""
}

// Seed returns the seed of the current encounter
func (g *Game) Seed() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.enc.seed
}

// ClientCount returns the number of attached clients
func (g *Game) ClientCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.clients)
}

// IdleSince returns when the last client left, or the zero time while
// clients are attached.
func (g *Game) IdleSince() time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.emptySince
}

// Snapshot returns the current state without the pending sounds
func (g *Game) Snapshot() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.enc.Snapshot()
}

// broadcastState sends a msgpack snapshot with the buffered sounds to every
// client. The caller holds g.mu.
func (g *Game) broadcastState() {
	snap := g.enc.Snapshot()
	if len(g.sounds) > 0 {
		snap.Sounds = append([]SoundEvent(nil), g.sounds...)
		g.sounds = g.sounds[:0]
	}
	if len(g.clients) == 0 {
		return
	}

	data, err := msgpack.Marshal(&snap)
	if err != nil {
		g.log.WithError(err).Error("snapshot marshal failed")
		return
	}
	for _, client := range g.clients {
		client.SendBinary(data)
	}
}

// broadcastMsg sends a message to all clients in the session
func (g *Game) broadcastMsg(msg Envelope) {
	for _, client := range g.clients {
		client.SendJSON(msg)
	}
}
