// Package credentials persists the per-assistant OAuth consumer key/secret.
// Secrets are write-only after the publish response: nothing in this package
// logs them and Rotate is the only way to obtain a fresh one.
package credentials

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"sync"
	"time"
)

var ErrUnknownConsumer = errors.New("credentials: unknown consumer key")

type Credential struct {
	AssistantID  int64
	ConsumerKey  string
	SharedSecret string
}

// Store abstracts the credential backend: SQL in production, memory in tests.
type Store interface {
	// Get resolves the credential for a consumer key. Fails closed with
	// ErrUnknownConsumer; the caller must not distinguish that from a bad
	// signature in anything it reveals.
	Get(ctx context.Context, consumerKey string) (Credential, error)
	// Rotate writes a fresh random secret for the assistant under the given
	// consumer key, replacing any prior credential. Every publish rotates.
	Rotate(ctx context.Context, assistantID int64, consumerKey string) (Credential, error)
}

// NewSecret returns a URL-safe secret with at least 32 bytes of entropy.
func NewSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

/* ----------------------------- SQL store ----------------------------- */

type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{db: db} }

func (s *SQLStore) Get(ctx context.Context, consumerKey string) (Credential, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT assistant_id, consumer_key, shared_secret FROM lti_consumers WHERE consumer_key=$1`,
		consumerKey)
	var c Credential
	if err := row.Scan(&c.AssistantID, &c.ConsumerKey, &c.SharedSecret); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Credential{}, ErrUnknownConsumer
		}
		return Credential{}, err
	}
	return c, nil
}

func (s *SQLStore) Rotate(ctx context.Context, assistantID int64, consumerKey string) (Credential, error) {
	secret, err := NewSecret()
	if err != nil {
		return Credential{}, err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO lti_consumers (assistant_id, consumer_key, shared_secret, updated_at)
		 VALUES ($1,$2,$3,$4)
		 ON CONFLICT (assistant_id) DO UPDATE SET
		   consumer_key=EXCLUDED.consumer_key,
		   shared_secret=EXCLUDED.shared_secret,
		   updated_at=EXCLUDED.updated_at`,
		assistantID, consumerKey, secret, time.Now().Unix())
	if err != nil {
		return Credential{}, err
	}
	return Credential{AssistantID: assistantID, ConsumerKey: consumerKey, SharedSecret: secret}, nil
}

/* ---------------------------- memory store ---------------------------- */

// MemoryStore keeps credentials in a map. For tests and single-node dev.
type MemoryStore struct {
	mu    sync.RWMutex
	byKey map[string]Credential
	byID  map[int64]string // assistant id -> current consumer key
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byKey: map[string]Credential{}, byID: map[int64]string{}}
}

func (s *MemoryStore) Get(_ context.Context, consumerKey string) (Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.byKey[consumerKey]
	if !ok {
		return Credential{}, ErrUnknownConsumer
	}
	return c, nil
}

func (s *MemoryStore) Rotate(_ context.Context, assistantID int64, consumerKey string) (Credential, error) {
	secret, err := NewSecret()
	if err != nil {
		return Credential{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.byID[assistantID]; ok {
		delete(s.byKey, old)
	}
	c := Credential{AssistantID: assistantID, ConsumerKey: consumerKey, SharedSecret: secret}
	s.byKey[consumerKey] = c
	s.byID[assistantID] = consumerKey
	return c, nil
}
