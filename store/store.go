// Package store persists the small pieces of per-user client state the
// quiz flow relies on: the free-tier attempt counter and result handoffs.
// Nothing kept here is a security boundary.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned by Get when the key has never been written.
var ErrNotFound = errors.New("store: key not found")

// ResultTTL bounds how long a result handoff outlives its submission.
const ResultTTL = 24 * time.Hour

// Store is a namespaced key/value store holding JSON blobs. A ttl of zero
// keeps the value until it is deleted.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Purger is implemented by backends that only expire keys lazily.
type Purger interface {
	PurgeExpired(ctx context.Context) (int, error)
}

// GetJSON decodes the value at key into v. It reports false when the key is absent.
func GetJSON(ctx context.Context, s Store, key string, v interface{}) (bool, error) {
	b, err := s.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return false, fmt.Errorf("store: decode %s: %w", key, err)
	}
	return true, nil
}

// SetJSON encodes v and writes it at key.
func SetJSON(ctx context.Context, s Store, key string, v interface{}, ttl time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("store: encode %s: %w", key, err)
	}
	return s.Set(ctx, key, b, ttl)
}

const namespace = "medprep:"

// QuizAttemptsKey is the per-user key of the free-tier attempt counter.
func QuizAttemptsKey(userID string) string {
	return namespace + "quizAttempts:" + userID
}

// DirectResultKey holds the most recent client-scored quiz result of a user.
func DirectResultKey(userID string) string {
	return namespace + "quizResult:" + userID
}

// MockTestResultKey holds the result a user's mock-test submission returned.
func MockTestResultKey(userID, attemptID string) string {
	return namespace + "mockTestResult:" + userID + ":" + attemptID
}
