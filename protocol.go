package main

import "encoding/json"

// Client -> Server message types
const (
	MsgCreate   = "create"   // create session
	MsgJoin     = "join"     // join as pilot
	MsgWatch    = "watch"    // join as spectator
	MsgLeave    = "leave"
	MsgList     = "list"     // list sessions
	MsgCheck    = "check"    // check if session exists
	MsgInput    = "input"    // movement intent
	MsgDamage   = "damage"   // debug damage hook
	MsgRestart  = "restart"  // start a fresh encounter in the same session
	MsgRegister = "register"
	MsgLogin    = "login"
	MsgAuth     = "auth"
	MsgHistory  = "history"
)

// Server -> Client message types
const (
	MsgState    = "state"
	MsgWelcome  = "welcome"
	MsgSessions = "sessions"
	MsgJoined   = "joined"
	MsgCreated  = "created" // session created, client should navigate
	MsgChecked  = "checked" // session check response
	MsgDefeated = "defeated"
	MsgAuthOK   = "auth_ok"
	MsgRecords  = "records"
	MsgError    = "error"
)

// Binary input frame: [binaryInputTag, dx int8, dy int8]
const (
	binaryInputTag = 0x01
	binaryInputLen = 3
)

// Envelope wraps all outgoing messages with a type field
type Envelope struct {
	T    string      `json:"t" msgpack:"t"`
	Data interface{} `json:"d,omitempty" msgpack:"d,omitempty"`
}

// InEnvelope is used for incoming messages; json.RawMessage avoids double-unmarshal
type InEnvelope struct {
	T string          `json:"t"`
	D json.RawMessage `json:"d,omitempty"`
}

// CreateMsg is sent when a client wants a new encounter session
type CreateMsg struct {
	Name        string `json:"name"`
	SessionName string `json:"sname"`
	Variant     string `json:"variant"`
	Seed        *int64 `json:"seed,omitempty"`
}

// JoinMsg is sent when a client wants to pilot or watch a session
type JoinMsg struct {
	Name      string `json:"name"`
	SessionID string `json:"sid"`
}

// CheckMsg is sent by client to check if a session exists
type CheckMsg struct {
	SID string `json:"sid"`
}

// DamageMsg asks the server to damage the boss
type DamageMsg struct {
	Amount int `json:"amount"`
}

// RegisterMsg creates a pilot account
type RegisterMsg struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginMsg authenticates with username and password
type LoginMsg struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthMsg re-authenticates with a stored token
type AuthMsg struct {
	Token string `json:"token"`
}

// HistoryMsg asks for recent clears, optionally for one variant
type HistoryMsg struct {
	Variant string `json:"variant,omitempty"`
	Limit   int    `json:"limit,omitempty"`
}

// BossState is broadcast once per snapshot
type BossState struct {
	X      float64 `json:"x" msgpack:"x"`
	Y      float64 `json:"y" msgpack:"y"`
	VX     float64 `json:"vx" msgpack:"vx"`
	VY     float64 `json:"vy" msgpack:"vy"`
	Size   float64 `json:"s" msgpack:"s"`
	HP     int     `json:"hp" msgpack:"hp"`
	MaxHP  int     `json:"mhp" msgpack:"mhp"`
	Phase  int     `json:"ph" msgpack:"ph"`
	Alive  bool    `json:"a" msgpack:"a"`
	Moving bool    `json:"mv,omitempty" msgpack:"mv,omitempty"`
}

// PlayerState is the pilot's avatar
type PlayerState struct {
	X    float64 `json:"x" msgpack:"x"`
	Y    float64 `json:"y" msgpack:"y"`
	Size float64 `json:"s" msgpack:"s"`
}

// ProjectileState is broadcast per projectile. A positive delay means the
// renderer should not show it yet.
type ProjectileState struct {
	X      float64 `json:"x" msgpack:"x"`
	Y      float64 `json:"y" msgpack:"y"`
	Sprite int     `json:"sp" msgpack:"sp"`
	Size   float64 `json:"s" msgpack:"s"`
	Alpha  float64 `json:"al" msgpack:"al"`
	Delay  float64 `json:"dl,omitempty" msgpack:"dl,omitempty"`
}

// LaserState is broadcast per laser segment
type LaserState struct {
	SX        float64 `json:"sx" msgpack:"sx"`
	SY        float64 `json:"sy" msgpack:"sy"`
	EX        float64 `json:"ex" msgpack:"ex"`
	EY        float64 `json:"ey" msgpack:"ey"`
	Thickness float64 `json:"th" msgpack:"th"`
	Hue       float64 `json:"h" msgpack:"h"`
	Alpha     float64 `json:"al" msgpack:"al"` // 0-1
}

// SoundEvent is a fire-and-forget audio cue
type SoundEvent struct {
	Name   string `json:"n" msgpack:"n"`
	Volume int    `json:"v" msgpack:"v"` // percent
}

// Snapshot is the full renderable state of one encounter
type Snapshot struct {
	Tick        uint64            `json:"tick" msgpack:"tick"`
	Phase       string            `json:"phase" msgpack:"phase"`
	Variant     string            `json:"var" msgpack:"var"`
	Boss        BossState         `json:"b" msgpack:"b"`
	Player      PlayerState       `json:"p" msgpack:"p"`
	Projectiles []ProjectileState `json:"pr" msgpack:"pr"`
	Lasers      []LaserState      `json:"l" msgpack:"l"`
	Sounds      []SoundEvent      `json:"snd,omitempty" msgpack:"snd,omitempty"`
}

// WelcomeMsg is sent to a client once it is attached to a session
type WelcomeMsg struct {
	SID     string  `json:"sid"`
	Role    string  `json:"role"` // "pilot" or "spectator"
	Variant string  `json:"variant"`
	Seed    int64   `json:"seed"`
	Width   float64 `json:"w"`
	Height  float64 `json:"h"`
}

// DefeatedMsg is broadcast when the boss's health reaches zero
type DefeatedMsg struct {
	Variant  string  `json:"variant"`
	Frames   uint64  `json:"frames"`
	Seconds  float64 `json:"seconds"`
	Damage   int     `json:"damage"`
	Spawned  uint64  `json:"spawned"`
	RecordID int64   `json:"rid,omitempty"`
}

// SessionInfo is used in the session list
type SessionInfo struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Variant    string `json:"variant"`
	Phase      string `json:"phase"`
	Spectators int    `json:"spectators"`
	Piloted    bool   `json:"piloted"`
}

// CheckedMsg is the response to a session check
type CheckedMsg struct {
	SID     string `json:"sid"`
	Exists  bool   `json:"exists"`
	Name    string `json:"name,omitempty"`
	Variant string `json:"variant,omitempty"`
}

// AuthOKMsg confirms a login, registration or token check
type AuthOKMsg struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	PlayerID int64  `json:"pid"`
}

// ErrorMsg sends error to client
type ErrorMsg struct {
	Msg string `json:"msg"`
}
