package account

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"medprep-server/appstate"
	"medprep-server/logger"
	"medprep-server/models"
)

type fakeFetcher struct {
	calls int32
	user  models.User
	err   error
	delay time.Duration
}

func (f *fakeFetcher) FetchProfile(ctx context.Context, token string) (*models.User, error) {
	atomic.AddInt32(&f.calls, 1)
	time.Sleep(f.delay)
	if f.err != nil {
		return nil, f.err
	}
	u := f.user
	return &u, nil
}

func TestProfile_CachesWithinTTL(t *testing.T) {
	f := &fakeFetcher{user: models.User{UserID: "u1"}}
	svc := NewService(f, appstate.NewStore(), time.Minute, logger.Nop())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := svc.Profile(ctx, "u1", "tok"); err != nil {
			t.Fatal(err)
		}
	}
	if f.calls != 1 {
		t.Errorf("expected 1 upstream call, got %d", f.calls)
	}

	svc.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	if _, err := svc.Profile(ctx, "u1", "tok"); err != nil {
		t.Fatal(err)
	}
	if f.calls != 2 {
		t.Errorf("expected stale cache to refetch, got %d calls", f.calls)
	}
}

func TestRefresh_SharesConcurrentFetches(t *testing.T) {
	f := &fakeFetcher{user: models.User{UserID: "u1"}, delay: 100 * time.Millisecond}
	svc := NewService(f, appstate.NewStore(), time.Minute, logger.Nop())

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.Refresh(context.Background(), "u1", "tok")
		}()
	}
	wg.Wait()
	if got := atomic.LoadInt32(&f.calls); got != 1 {
		t.Errorf("expected concurrent refreshes to share one call, got %d", got)
	}
}

func TestRefresh_Failure(t *testing.T) {
	st := appstate.NewStore()
	f := &fakeFetcher{err: errors.New("upstream down")}
	svc := NewService(f, st, time.Minute, logger.Nop())
	if _, err := svc.Refresh(context.Background(), "u1", "tok"); err == nil {
		t.Fatal("expected error")
	}
	if got := st.Get("u1").Auth.Status; got != appstate.AuthError {
		t.Errorf("expected auth error state, got %s", got)
	}
}

func TestRefresh_SubjectMismatch(t *testing.T) {
	f := &fakeFetcher{user: models.User{UserID: "someone-else"}}
	svc := NewService(f, appstate.NewStore(), time.Minute, logger.Nop())
	if _, err := svc.Refresh(context.Background(), "u1", "tok"); err == nil {
		t.Error("expected mismatched profile to be rejected")
	}
}

func TestForget_DropsCachedProfile(t *testing.T) {
	st := appstate.NewStore()
	f := &fakeFetcher{user: models.User{UserID: "u1"}}
	svc := NewService(f, st, time.Minute, logger.Nop())
	ctx := context.Background()

	if _, err := svc.Profile(ctx, "u1", "tok"); err != nil {
		t.Fatal(err)
	}
	st.Notify("u1", "info", "welcome")
	svc.Forget("u1")

	if _, _, ok := st.CachedUser("u1"); ok {
		t.Error("expected cached profile to be gone")
	}
	if n := st.Notifications("u1"); len(n) != 0 {
		t.Errorf("expected notifications to be cleared, got %v", n)
	}
	if _, err := svc.Profile(ctx, "u1", "tok"); err != nil {
		t.Fatal(err)
	}
	if f.calls != 2 {
		t.Errorf("expected a fresh fetch after Forget, got %d calls", f.calls)
	}
}
