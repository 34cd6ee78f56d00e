package main

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	tokenTTL       = 7 * 24 * time.Hour
	tokenIssuer    = "danmaku-server"
	tokenSecretKey = "token_secret"
	bcryptCost     = 12

	minCallsignLen = 2
	maxCallsignLen = 16
	minPasswordLen = 4

	loginRateWindow  = 60 * time.Second
	maxLoginAttempts = 10
	limiterPruneSize = 1024
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidCallsign    = errors.New("invalid callsign")
	ErrWeakPassword       = errors.New("password too short")
	ErrRateLimited        = errors.New("too many login attempts, try again later")
	ErrInvalidToken       = errors.New("invalid token")
)

// pilotClaims is the token payload. Subject carries the pilot ID.
type pilotClaims struct {
	Callsign string `json:"cs"`
	jwt.RegisteredClaims
}

// Auth manages pilot accounts. Clears recorded while a pilot is signed in
// are attributed to them.
type Auth struct {
	db      *DB
	secret  []byte
	cost    int
	limiter *loginLimiter
}

// NewAuth creates an Auth backed by db, reusing the token secret stored
// there so issued tokens survive restarts.
func NewAuth(db *DB) *Auth {
	return &Auth{
		db:      db,
		secret:  tokenSecret(db),
		cost:    bcryptCost,
		limiter: newLoginLimiter(maxLoginAttempts, loginRateWindow),
	}
}

func tokenSecret(db *DB) []byte {
	if h := db.GetSetting(tokenSecretKey); h != "" {
		if b, err := hex.DecodeString(h); err == nil && len(b) == 32 {
			return b
		}
	}
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		panic("token secret: " + err.Error())
	}
	if err := db.SetSetting(tokenSecretKey, hex.EncodeToString(secret)); err != nil {
		logger.WithError(err).Warn("could not persist token secret, tokens end with the process")
	}
	return secret
}

// validCallsign reports whether name is 2-16 letters, digits, '-' or '_'
func validCallsign(name string) bool {
	if len(name) < minCallsignLen || len(name) > maxCallsignLen {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}

// Register creates a pilot account and signs them in
func (a *Auth) Register(callsign, password string) (int64, string, error) {
	callsign = strings.TrimSpace(callsign)
	if !validCallsign(callsign) {
		return 0, "", fmt.Errorf("%w: use %d-%d letters, digits, '-' or '_'",
			ErrInvalidCallsign, minCallsignLen, maxCallsignLen)
	}
	if len(password) < minPasswordLen {
		return 0, "", fmt.Errorf("%w: at least %d characters", ErrWeakPassword, minPasswordLen)
	}

	taken, err := a.db.UsernameExists(callsign)
	if err != nil {
		return 0, "", fmt.Errorf("check callsign: %w", err)
	}
	if taken {
		return 0, "", ErrUsernameTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.cost)
	if err != nil {
		return 0, "", fmt.Errorf("hash password: %w", err)
	}
	id, err := a.db.CreatePlayer(callsign, string(hash))
	if err != nil {
		return 0, "", fmt.Errorf("create pilot: %w", err)
	}

	token, err := a.issue(id, callsign)
	if err != nil {
		return 0, "", err
	}
	return id, token, nil
}

// Login checks a pilot's password. Failed attempts count against ip; a
// successful one clears its count.
func (a *Auth) Login(callsign, password, ip string) (int64, string, error) {
	if !a.limiter.allow(ip, time.Now()) {
		return 0, "", ErrRateLimited
	}

	pilot, err := a.db.GetPlayerByUsername(strings.TrimSpace(callsign))
	if err != nil {
		return 0, "", fmt.Errorf("load pilot: %w", err)
	}
	if pilot == nil || pilot.PassHash == "" {
		return 0, "", ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(pilot.PassHash), []byte(password)) != nil {
		return 0, "", ErrInvalidCredentials
	}
	a.limiter.reset(ip)

	token, err := a.issue(pilot.ID, pilot.Username)
	if err != nil {
		return 0, "", err
	}
	return pilot.ID, token, nil
}

// ValidateToken returns the pilot ID and callsign a token was issued for
func (a *Auth) ValidateToken(token string) (int64, string, error) {
	var claims pilotClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return 0, "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 || claims.Callsign == "" {
		return 0, "", ErrInvalidToken
	}
	return id, claims.Callsign, nil
}

func (a *Auth) issue(pilotID int64, callsign string) (string, error) {
	now := time.Now()
	return a.sign(pilotClaims{
		Callsign: callsign,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(pilotID, 10),
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
	})
}

func (a *Auth) sign(claims pilotClaims) (string, error) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// loginLimiter counts login attempts per address in fixed windows
type loginLimiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	windows map[string]loginWindow
}

type loginWindow struct {
	attempts int
	resetAt  time.Time
}

func newLoginLimiter(max int, window time.Duration) *loginLimiter {
	return &loginLimiter{
		max:     max,
		window:  window,
		windows: make(map[string]loginWindow),
	}
}

// allow records an attempt from ip and reports whether it is within the limit
func (l *loginLimiter) allow(ip string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.windows) >= limiterPruneSize {
		for k, w := range l.windows {
			if now.After(w.resetAt) {
				delete(l.windows, k)
			}
		}
	}

	w, ok := l.windows[ip]
	if !ok || now.After(w.resetAt) {
		w = loginWindow{resetAt: now.Add(l.window)}
	}
	w.attempts++
	l.windows[ip] = w
	return w.attempts <= l.max
}

func (l *loginLimiter) reset(ip string) {
	l.mu.Lock()
	delete(l.windows, ip)
	l.mu.Unlock()
}
