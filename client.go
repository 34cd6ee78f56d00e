package main

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait         = 10 * time.Second
	pongWait          = 60 * time.Second
	pingPeriod        = (pongWait * 9) / 10
	maxMessageSize    = 4096
	sendBufSize       = 256
	maxMessagesPerSec = 120
	maxNameLen        = 16
	maxSessionNameLen = 30
	maxDamagePerMsg   = 1000
	maxHistoryLimit   = 200
)

// Client represents a WebSocket connection
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan []byte
	id         string
	sessionID  string
	role       string
	remoteAddr string
	msgCount   int
	msgResetAt time.Time
	log        *logrus.Entry
	// Auth state
	authPlayerID int64  // 0 = guest
	authUsername string // "" = guest
}

// NewClient creates a new Client
func NewClient(hub *Hub, conn *websocket.Conn, remoteAddr string) *Client {
	id := GenerateID(4)
	return &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, sendBufSize),
		id:         id,
		remoteAddr: remoteAddr,
		log: logger.WithFields(logrus.Fields{
			"client": id,
			"addr":   remoteAddr,
		}),
	}
}

// ReadPump reads messages from the WebSocket connection
func (c *Client) ReadPump() {
	defer func() {
		c.hub.TrackDisconnect(c.remoteAddr)
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		msgType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.WithError(err).Warn("ws read error")
			}
			break
		}

		// Rate limiting
		now := time.Now()
		if now.After(c.msgResetAt) {
			c.msgCount = 0
			c.msgResetAt = now.Add(time.Second)
		}
		c.msgCount++
		if c.msgCount > maxMessagesPerSec {
			c.log.Warn("rate limit exceeded, disconnecting")
			break
		}

		if msgType == websocket.BinaryMessage && len(message) == binaryInputLen && message[0] == binaryInputTag {
			c.handleBinaryInput(message)
		} else {
			c.handleMessage(message)
		}
	}
}

// WritePump writes messages to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			// 0xFF prefix marks binary frames queued by SendBinary
			var err error
			if len(message) > 0 && message[0] == 0xFF {
				err = c.conn.WriteMessage(websocket.BinaryMessage, message[1:])
			} else {
				err = c.conn.WriteMessage(websocket.TextMessage, message)
			}
			if err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendJSON sends a JSON message to the client
func (c *Client) SendJSON(msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.log.WithError(err).Error("marshal error")
		return
	}
	c.SendRaw(data)
}

// SendRaw sends pre-marshaled bytes as a text message to the client
func (c *Client) SendRaw(data []byte) {
	// send may already be closed by the hub
	defer func() { recover() }()
	select {
	case c.send <- data:
	default:
		// Client too slow, drop message
	}
}

// SendBinary sends pre-marshaled bytes as a binary WebSocket message
func (c *Client) SendBinary(data []byte) {
	defer func() { recover() }()
	msg := make([]byte, len(data)+1)
	msg[0] = 0xFF
	copy(msg[1:], data)
	select {
	case c.send <- msg:
	default:
	}
}

func (c *Client) sendError(msg string) {
	c.SendJSON(Envelope{T: MsgError, Data: ErrorMsg{Msg: msg}})
}

// handleMessage routes incoming messages (single-pass decode via InEnvelope)
func (c *Client) handleMessage(raw []byte) {
	var env InEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.log.WithError(err).Debug("dropping malformed message")
		return
	}

	switch env.T {
	case MsgList:
		c.handleList()
	case MsgCreate:
		c.handleCreate(env.D)
	case MsgJoin:
		c.handleJoin(env.D, RolePilot)
	case MsgWatch:
		c.handleJoin(env.D, RoleSpectator)
	case MsgInput:
		c.handleInput(env.D)
	case MsgDamage:
		c.handleDamage(env.D)
	case MsgRestart:
		c.handleRestart()
	case MsgLeave:
		c.handleLeave()
	case MsgCheck:
		c.handleCheck(env.D)
	case MsgRegister:
		c.handleRegister(env.D)
	case MsgLogin:
		c.handleLogin(env.D)
	case MsgAuth:
		c.handleAuth(env.D)
	case MsgHistory:
		c.handleHistory(env.D)
	default:
		c.log.WithField("type", env.T).Debug("dropping unknown message")
	}
}

func (c *Client) handleList() {
	c.SendJSON(Envelope{T: MsgSessions, Data: c.hub.sessions.ListSessions()})
}

func (c *Client) handleCreate(data json.RawMessage) {
	var msg CreateMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	sname := msg.SessionName
	if sname == "" {
		sname = "Boss Rush"
	}
	if len(sname) > maxSessionNameLen {
		sname = sname[:maxSessionNameLen]
	}

	sess, err := c.hub.sessions.CreateSession(sname, msg.Variant, msg.Seed)
	if err != nil {
		switch {
		case errors.Is(err, ErrUnknownVariant):
			c.sendError("unknown variant")
		case errors.Is(err, ErrTooManySessions):
			c.sendError("too many active sessions")
		default:
			c.log.WithError(err).Error("create session failed")
			c.sendError("could not create session")
		}
		return
	}
	c.SendJSON(Envelope{T: MsgCreated, Data: map[string]string{"sid": sess.ID}})
}

func (c *Client) handleJoin(data json.RawMessage, role string) {
	var msg JoinMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	sess := c.hub.sessions.GetSession(msg.SessionID)
	if sess == nil {
		c.sendError("session not found")
		return
	}
	if c.sessionID != "" && c.sessionID != sess.ID {
		c.handleLeave()
	}

	if err := sess.Game.AddClient(c.id, role, c, c.authPlayerID); err != nil {
		c.sendError(err.Error())
		return
	}
	c.sessionID = sess.ID
	c.role = role
	c.log = c.log.WithField("session", sess.ID)
	c.log.WithField("role", role).Info("joined session")

	cfg := c.hub.config.Get()
	c.SendJSON(Envelope{T: MsgJoined, Data: map[string]string{"sid": sess.ID}})
	c.SendJSON(Envelope{T: MsgWelcome, Data: WelcomeMsg{
		SID:     sess.ID,
		Role:    role,
		Variant: sess.Variant,
		Seed:    sess.Game.Seed(),
		Width:   cfg.Playfield.Width,
		Height:  cfg.Playfield.Height,
	}})
}

func (c *Client) game() *Game {
	if c.sessionID == "" {
		return nil
	}
	sess := c.hub.sessions.GetSession(c.sessionID)
	if sess == nil {
		return nil
	}
	return sess.Game
}

// handleBinaryInput decodes a compact [tag, dx, dy] input frame
func (c *Client) handleBinaryInput(msg []byte) {
	g := c.game()
	if g == nil {
		return
	}
	g.HandleIntent(c.id, Intent{
		DX: float64(int8(msg[1])),
		DY: float64(int8(msg[2])),
	})
}

func (c *Client) handleInput(data json.RawMessage) {
	g := c.game()
	if g == nil {
		return
	}
	var in Intent
	if err := json.Unmarshal(data, &in); err != nil {
		return
	}
	g.HandleIntent(c.id, in)
}

func (c *Client) handleDamage(data json.RawMessage) {
	g := c.game()
	if g == nil {
		return
	}
	var msg DamageMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	if msg.Amount > maxDamagePerMsg {
		msg.Amount = maxDamagePerMsg
	}
	g.ApplyDamage(c.id, msg.Amount)
}

func (c *Client) handleRestart() {
	g := c.game()
	if g == nil {
		return
	}
	if !g.Restart(c.id, time.Now().UnixNano()) {
		c.sendError("encounter still running")
	}
}

func (c *Client) handleCheck(data json.RawMessage) {
	var msg CheckMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	sess := c.hub.sessions.GetSession(msg.SID)
	if sess == nil {
		c.SendJSON(Envelope{T: MsgChecked, Data: CheckedMsg{SID: msg.SID, Exists: false}})
		return
	}
	c.SendJSON(Envelope{T: MsgChecked, Data: CheckedMsg{
		SID:     msg.SID,
		Exists:  true,
		Name:    sess.Name,
		Variant: sess.Variant,
	}})
}

func (c *Client) handleLeave() {
	if c.sessionID == "" {
		return
	}
	c.hub.sessions.RemoveClient(c.sessionID, c.id)
	c.log.Info("left session")
	c.sessionID = ""
	c.role = ""
}

func (c *Client) handleRegister(data json.RawMessage) {
	if c.hub.auth == nil {
		c.sendError("accounts disabled")
		return
	}
	var msg RegisterMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	id, token, err := c.hub.auth.Register(msg.Username, msg.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrUsernameTaken), errors.Is(err, ErrInvalidCallsign), errors.Is(err, ErrWeakPassword):
			c.log.WithError(err).Debug("register refused")
			c.sendError(err.Error())
		default:
			c.log.WithError(err).Error("register failed")
			c.sendError("internal error")
		}
		return
	}
	c.authenticated(id, msg.Username, token)
}

func (c *Client) handleLogin(data json.RawMessage) {
	if c.hub.auth == nil {
		c.sendError("accounts disabled")
		return
	}
	var msg LoginMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	id, token, err := c.hub.auth.Login(msg.Username, msg.Password, c.remoteAddr)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) || errors.Is(err, ErrRateLimited) {
			c.sendError(err.Error())
		} else {
			c.log.WithError(err).Error("login failed")
			c.sendError("internal error")
		}
		return
	}
	c.authenticated(id, msg.Username, token)
}

func (c *Client) handleAuth(data json.RawMessage) {
	if c.hub.auth == nil {
		c.sendError("accounts disabled")
		return
	}
	var msg AuthMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	id, username, err := c.hub.auth.ValidateToken(msg.Token)
	if err != nil {
		c.sendError("invalid token")
		return
	}
	c.authenticated(id, username, msg.Token)
}

func (c *Client) authenticated(id int64, username, token string) {
	c.authPlayerID = id
	c.authUsername = username
	c.log = c.log.WithField("pilot", username)
	c.SendJSON(Envelope{T: MsgAuthOK, Data: AuthOKMsg{
		Token:    token,
		Username: username,
		PlayerID: id,
	}})
}

func (c *Client) handleHistory(data json.RawMessage) {
	if c.hub.db == nil {
		c.SendJSON(Envelope{T: MsgRecords, Data: []EncounterRecord{}})
		return
	}
	var msg HistoryMsg
	if len(data) > 0 {
		if err := json.Unmarshal(data, &msg); err != nil {
			return
		}
	}
	if msg.Limit <= 0 || msg.Limit > maxHistoryLimit {
		msg.Limit = 20
	}
	records, err := c.hub.db.RecentEncounters(msg.Variant, msg.Limit)
	if err != nil {
		c.log.WithError(err).Error("history query failed")
		c.sendError("history unavailable")
		return
	}
	if records == nil {
		records = []EncounterRecord{}
	}
	c.SendJSON(Envelope{T: MsgRecords, Data: records})
}
