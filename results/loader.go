package results

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"medprep-server/examapi"
	"medprep-server/models"
	"medprep-server/store"
)

// ErrNotFound means no result shape could be recovered for the id.
var ErrNotFound = errors.New("results: not found")

// Fetcher is the part of the exam backend the results screen reads from.
type Fetcher interface {
	FetchQuizResult(ctx context.Context, token, resultID, userID string) (json.RawMessage, error)
	FetchMockTestResult(ctx context.Context, token, attemptID, userID string) (json.RawMessage, error)
}

// Loader resolves a result id to a normalized result.
type Loader struct {
	api Fetcher
	kv  store.Store
}

func NewLoader(api Fetcher, kv store.Store) *Loader {
	return &Loader{api: api, kv: kv}
}

// Load looks the id up by kind: direct results come from the store, mock
// tests from the cached submission response or the backend, anything else
// from the backend's result endpoint.
func (l *Loader) Load(ctx context.Context, userID, token, id string) (*models.QuizResult, error) {
	kind, key := ParseID(id)
	switch kind {
	case KindDirect:
		var res models.QuizResult
		found, err := store.GetJSON(ctx, l.kv, store.DirectResultKey(userID), &res)
		if err != nil {
			return nil, fmt.Errorf("load direct result: %w", err)
		}
		if !found {
			return nil, ErrNotFound
		}
		return &res, nil

	case KindMockTest:
		// Cached submissions are keyed by user so a cache hit never bypasses
		// the backend's ownership check for someone else's attempt.
		cacheKey := store.MockTestResultKey(userID, key)
		raw, err := l.kv.Get(ctx, cacheKey)
		if errors.Is(err, store.ErrNotFound) {
			raw, err = l.api.FetchMockTestResult(ctx, token, key, userID)
			if err == nil {
				_ = l.kv.Set(ctx, cacheKey, raw, store.ResultTTL)
			}
		}
		if err != nil {
			return nil, l.wrap("mock test", err)
		}
		return normalized(raw)

	default:
		raw, err := l.api.FetchQuizResult(ctx, token, key, userID)
		if err != nil {
			return nil, l.wrap("quiz", err)
		}
		return normalized(raw)
	}
}

func (l *Loader) wrap(kind string, err error) error {
	if examapi.IsNotFound(err) {
		return ErrNotFound
	}
	return fmt.Errorf("load %s result: %w", kind, err)
}

func normalized(raw []byte) (*models.QuizResult, error) {
	res, ok := Normalize(raw)
	if !ok {
		return nil, ErrNotFound
	}
	return res, nil
}
