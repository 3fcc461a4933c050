package token

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/laboussolefiscale-rgb/backend-lmnp/internal/model"
)

var (
	// ErrNotFound means the token was never registered, was explicitly
	// expired, or its tombstone has already been swept.
	ErrNotFound = errors.New("token not found")
	// ErrExpired means the token exists but its retention window has
	// elapsed.
	ErrExpired = errors.New("token expired")
)

// Registry maps opaque download tokens to stored artifacts for the
// retention window.
type Registry interface {
	// Register issues a new token for the artifact at key and schedules
	// its removal.
	Register(key string, kind model.ArtifactKind) (string, error)
	// Lookup returns the token's record while unexpired. Multiple lookups
	// within the window all succeed so flaky downloads can retry.
	Lookup(tok string) (*model.DownloadToken, error)
	// Expire removes a token immediately.
	Expire(tok string)
}

// memoryRegistry is a mutex-guarded in-process token map. Expired entries
// linger as tombstones for one extra retention window so that a late
// download is answered with "expired" rather than "not found"; the
// scheduled sweep then removes them for good.
type memoryRegistry struct {
	mu      sync.Mutex
	entries map[string]model.DownloadToken
	ttl     time.Duration
	now     func() time.Time
	after   func(time.Duration, func()) *time.Timer
}

// NewMemory creates an in-memory registry whose tokens expire after ttl.
func NewMemory(ttl time.Duration) Registry {
	return &memoryRegistry{
		entries: make(map[string]model.DownloadToken),
		ttl:     ttl,
		now:     time.Now,
		after:   time.AfterFunc,
	}
}

// tokenBytes yields 128 bits of entropy, enough to make tokens infeasible
// to guess or enumerate.
const tokenBytes = 16

func (r *memoryRegistry) Register(key string, kind model.ArtifactKind) (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	tok := hex.EncodeToString(buf)

	r.mu.Lock()
	r.entries[tok] = model.DownloadToken{
		Token:     tok,
		Kind:      kind,
		Key:       key,
		ExpiresAt: r.now().Add(r.ttl),
	}
	r.mu.Unlock()

	// Sweep the tombstone one window after expiry; a fired timer on a
	// token already removed by Lookup or Expire is a no-op.
	r.after(2*r.ttl, func() { r.Expire(tok) })

	return tok, nil
}

func (r *memoryRegistry) Lookup(tok string) (*model.DownloadToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[tok]
	if !ok {
		return nil, ErrNotFound
	}
	if r.now().After(entry.ExpiresAt) {
		delete(r.entries, tok)
		return nil, ErrExpired
	}
	return &entry, nil
}

func (r *memoryRegistry) Expire(tok string) {
	r.mu.Lock()
	delete(r.entries, tok)
	r.mu.Unlock()
}
