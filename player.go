package main

import "math"

const (
	PlayerSize        = 16.0
	PlayerSpeed       = 300.0 // pixels/s
	PlayerStartOffset = 100.0 // distance above the bottom edge
)

// Intent is the movement requested by the input layer for one tick. Each
// axis is -1, 0 or 1 for the eight key directions; other values are
// normalized the same way.
type Intent struct {
	DX float64 `json:"dx" msgpack:"dx"`
	DY float64 `json:"dy" msgpack:"dy"`
}

// Player is the input-driven avatar. It never leaves the playfield.
type Player struct {
	X, Y  float64
	Size  float64
	Speed float64
}

// NewPlayer creates a player at (x,y)
func NewPlayer(x, y, size, speed float64) *Player {
	return &Player{X: x, Y: y, Size: size, Speed: speed}
}

// Move applies the intent for dt seconds and clamps the player inside the
// playfield. Non-finite intents are treated as no movement.
func (p *Player) Move(in Intent, dt float64, field Playfield) {
	mx, my := in.DX, in.DY
	if !finite(mx) || !finite(my) {
		mx, my = 0, 0
	}
	if mx != 0 || my != 0 {
		l := math.Hypot(mx, my)
		p.X += mx / l * p.Speed * dt
		p.Y += my / l * p.Speed * dt
	}
	p.Clamp(field)
}

// Clamp keeps the player's body inside the playfield
func (p *Player) Clamp(field Playfield) {
	half := p.Size / 2
	p.X = Clamp(p.X, half, field.Width-half)
	p.Y = Clamp(p.Y, half, field.Height-half)
}

// ToState converts to protocol state
func (p *Player) ToState() PlayerState {
	return PlayerState{
		X:    round1(p.X),
		Y:    round1(p.Y),
		Size: p.Size,
	}
}
