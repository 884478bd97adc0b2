package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strconv"
	"sync"
	"time"
)

// Scope names what a token allows.
type Scope string

const (
	ScopeRead  Scope = "read"
	ScopeWrite Scope = "write"
)

// Modes accepted by NewIssuer.
const (
	ModeToken = "token"
	ModeNone  = "none"
)

// DefaultWindow is the token validity window.
const DefaultWindow = 12 * time.Hour

// Issuer mints and verifies tokens. Safe for concurrent use; Configure may
// be called while requests are in flight.
type Issuer struct {
	mu     sync.RWMutex
	mode   string
	secret []byte
	window time.Duration
	now    func() time.Time
}

// NewIssuer returns an Issuer for mode and secret. See Configure.
func NewIssuer(mode, secret string) *Issuer {
	i := &Issuer{window: DefaultWindow, now: time.Now}
	i.Configure(mode, secret)
	return i
}

// Configure swaps in a new mode and secret. Tokens issued under the old
// secret stop verifying. An empty secret in token mode is replaced with a
// random one, so tokens only survive until the process restarts.
func (i *Issuer) Configure(mode, secret string) {
	key := []byte(secret)
	if mode != ModeNone && len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			panic("auth: crypto/rand failed: " + err.Error())
		}
		slog.Warn("auth: no token secret configured, using a per-process random secret")
	}

	i.mu.Lock()
	i.mode = mode
	i.secret = key
	i.mu.Unlock()
}

// Enabled reports whether tokens are checked.
func (i *Issuer) Enabled() bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.mode != ModeNone
}

// Issue returns the token for scope and identity in the current window.
// Read tokens ignore identity.
func (i *Issuer) Issue(scope Scope, identity string) string {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.sign(scope, identity, i.bucket(i.now()))
}

// Verify reports whether token is valid for scope and identity now.
func (i *Issuer) Verify(scope Scope, identity, token string) bool {
	i.mu.RLock()
	defer i.mu.RUnlock()

	if i.mode == ModeNone {
		return true
	}
	if token == "" {
		return false
	}
	got, err := hex.DecodeString(token)
	if err != nil {
		return false
	}

	b := i.bucket(i.now())
	for _, bucket := range []int64{b, b - 1} {
		want, _ := hex.DecodeString(i.sign(scope, identity, bucket))
		if hmac.Equal(got, want) {
			return true
		}
	}
	return false
}

func (i *Issuer) bucket(t time.Time) int64 {
	return t.Unix() / int64(i.window/time.Second)
}

func (i *Issuer) sign(scope Scope, identity string, bucket int64) string {
	if scope == ScopeRead {
		identity = ""
	}
	mac := hmac.New(sha256.New, i.secret)
	mac.Write([]byte(string(scope) + "|" + identity + "|" + strconv.FormatInt(bucket, 10)))
	return hex.EncodeToString(mac.Sum(nil))
}
