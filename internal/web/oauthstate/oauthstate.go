// Package oauthstate keeps pending OAuth sign-ins between the authorize
// redirect and the callback.
package oauthstate

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
)

const (
	keyPrefix = "pkce:"

	// DefaultTTL bounds how long a user may stay at the provider.
	DefaultTTL = 5 * time.Minute

	stateBytes = 32
)

var (
	// ErrUnknownState is returned for a state that was never issued, was
	// already used or has expired.
	ErrUnknownState = errors.New("unknown or expired oauth state")
	// ErrStorageNil is returned when no storage is given.
	ErrStorageNil = errors.New("oauth state storage is nil")
)

// Flow is one pending sign-in.
type Flow struct {
	Verifier  string    `json:"verifier"`
	Provider  string    `json:"provider"`
	CreatedAt time.Time `json:"created_at"`
}

// Taker is implemented by storages that read and remove a key in one step,
// like kvstore.Storage.
type Taker interface {
	Take(key string) ([]byte, error)
}

// Store persists flows in a fiber.Storage keyed by their state.
type Store struct {
	storage fiber.Storage
	ttl     time.Duration
}

// New returns a Store. ttl <= 0 uses DefaultTTL.
func New(storage fiber.Storage, ttl time.Duration) (*Store, error) {
	if storage == nil {
		return nil, ErrStorageNil
	}

	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &Store{storage: storage, ttl: ttl}, nil
}

// TTL is how long a flow stays valid.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Begin stores flow under a new random state and returns the state.
func (s *Store) Begin(flow Flow) (string, error) {
	state, err := GenerateState()
	if err != nil {
		return "", err
	}

	out, err := json.Marshal(flow)
	if err != nil {
		return "", fmt.Errorf("encode oauth flow: %w", err)
	}

	if err = s.storage.Set(keyPrefix+state, out, s.ttl); err != nil {
		return "", fmt.Errorf("store oauth flow: %w", err)
	}

	return state, nil
}

// Take returns the flow of state and removes it, so a state is usable once.
func (s *Store) Take(state string) (*Flow, error) {
	if state == "" {
		return nil, ErrUnknownState
	}

	raw, err := s.take(keyPrefix + state)
	if err != nil {
		return nil, err
	}

	if len(raw) == 0 {
		return nil, ErrUnknownState
	}

	flow := new(Flow)
	if err = json.Unmarshal(raw, flow); err != nil {
		return nil, fmt.Errorf("decode oauth flow: %w", err)
	}

	// storages without native expiry may hand out stale entries
	if !flow.CreatedAt.IsZero() && time.Since(flow.CreatedAt) > s.ttl {
		return nil, ErrUnknownState
	}

	return flow, nil
}

// take removes key and returns its value. Storages without Taker may hand
// the same flow to two concurrent callbacks; the backend still accepts each
// code only once.
func (s *Store) take(key string) ([]byte, error) {
	if t, ok := s.storage.(Taker); ok {
		raw, err := t.Take(key)
		if err != nil {
			return nil, fmt.Errorf("take oauth flow: %w", err)
		}

		return raw, nil
	}

	raw, err := s.storage.Get(key)
	if err != nil {
		return nil, fmt.Errorf("load oauth flow: %w", err)
	}

	if len(raw) == 0 {
		return nil, nil
	}

	if err = s.storage.Delete(key); err != nil {
		return nil, fmt.Errorf("remove oauth flow: %w", err)
	}

	return raw, nil
}

// GenerateState returns 256 random bits, hex encoded.
func GenerateState() (string, error) {
	b := make([]byte, stateBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate oauth state: %w", err)
	}

	return hex.EncodeToString(b), nil
}
