package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"medprep-server/models"
	"medprep-server/store"
)

func TestMemoryStore_GetMissing(t *testing.T) {
	s := store.NewMemoryStore()
	if _, err := s.Get(context.Background(), "nope"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStore_SetCopiesValue(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()
	buf := []byte(`{"a":1}`)
	if err := s.Set(ctx, "k", buf, 0); err != nil {
		t.Fatal(err)
	}
	buf[0] = 'X'
	got, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != `{"a":1}` {
		t.Errorf("expected stored value to be isolated from caller buffer, got %s", got)
	}
}

func TestJSONHelpers(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()
	key := store.QuizAttemptsKey("u1")

	var counter models.QuizAttemptCounter
	found, err := store.GetJSON(ctx, s, key, &counter)
	if err != nil || found {
		t.Fatalf("expected missing key, got found=%v err=%v", found, err)
	}

	in := models.QuizAttemptCounter{Total: 1, Attempts: []models.QuizAttemptRecord{{QuizID: "q1"}}}
	if err := store.SetJSON(ctx, s, key, in, 0); err != nil {
		t.Fatal(err)
	}
	found, err = store.GetJSON(ctx, s, key, &counter)
	if err != nil || !found {
		t.Fatalf("expected key to be found, got found=%v err=%v", found, err)
	}
	if counter.Total != 1 || counter.Attempts[0].QuizID != "q1" {
		t.Errorf("unexpected counter %+v", counter)
	}

	if err := s.Delete(ctx, key); err != nil {
		t.Fatal(err)
	}
	if found, _ := store.GetJSON(ctx, s, key, &counter); found {
		t.Error("expected key to be gone after Delete")
	}
}

func TestGetJSON_CorruptValue(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()
	_ = s.Set(ctx, "bad", []byte("not json"), 0)
	var v map[string]interface{}
	if _, err := store.GetJSON(ctx, s, "bad", &v); err == nil {
		t.Error("expected decode error")
	}
}

func TestKeysAreNamespaced(t *testing.T) {
	if store.QuizAttemptsKey("u1") == store.DirectResultKey("u1") {
		t.Error("expected distinct keys for counter and direct result")
	}
	if got := store.MockTestResultKey("u1", "a9"); got != "medprep:mockTestResult:u1:a9" {
		t.Errorf("unexpected key %q", got)
	}
}

func TestMemoryStore_TTL(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	s := store.NewMemoryStore().WithClock(func() time.Time { return now })

	if err := s.Set(ctx, "result", []byte(`{}`), time.Hour); err != nil {
		t.Fatal(err)
	}
	if err := s.Set(ctx, "counter", []byte(`{}`), 0); err != nil {
		t.Fatal(err)
	}
	now = now.Add(59 * time.Minute)
	if _, err := s.Get(ctx, "result"); err != nil {
		t.Fatalf("expected value before expiry, got %v", err)
	}
	now = now.Add(time.Minute)
	if _, err := s.Get(ctx, "result"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected expired value to be gone, got %v", err)
	}
	if _, err := s.Get(ctx, "counter"); err != nil {
		t.Errorf("values without ttl must not expire, got %v", err)
	}
}

func TestMemoryStore_PurgeExpired(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	s := store.NewMemoryStore().WithClock(func() time.Time { return now })
	_ = s.Set(ctx, "a", []byte(`1`), time.Minute)
	_ = s.Set(ctx, "b", []byte(`2`), time.Hour)
	_ = s.Set(ctx, "c", []byte(`3`), 0)

	now = now.Add(2 * time.Minute)
	n, err := s.PurgeExpired(ctx)
	if err != nil || n != 1 {
		t.Fatalf("expected one purged key, got %d %v", n, err)
	}
	for _, k := range []string{"b", "c"} {
		if _, err := s.Get(ctx, k); err != nil {
			t.Errorf("%s: expected to survive, got %v", k, err)
		}
	}
}
