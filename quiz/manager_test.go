package quiz

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"testing"
	"time"

	"medprep-server/examapi"
	"medprep-server/models"
)

func TestStart_DeniedAfterFreeAttempts(t *testing.T) {
	h := newHarness(&fakeAPI{})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		s := startDirect(t, h, nil)
		if _, err := s.Submit(ctx); err != nil {
			t.Fatal(err)
		}
	}
	counter, err := h.ent.QuizAttempts(ctx, "u1")
	if err != nil || counter.Total != 2 {
		t.Fatalf("expected two tracked attempts, got %+v (%v)", counter, err)
	}
	if counter.Attempts[0].QuizID != "quiz-1" || counter.Attempts[0].ChapterID != "ch-1" {
		t.Errorf("unexpected attempt record %+v", counter.Attempts[0])
	}

	_, err = h.mgr.Start(ctx, freeUser(), "tok", StartRequest{Mode: ModeDirect, Quiz: sampleQuiz(nil)})
	if !errors.Is(err, ErrEntitlementDenied) {
		t.Fatalf("expected ErrEntitlementDenied, got %v", err)
	}
	if got := len(h.mgr.List()); got != 2 {
		t.Errorf("denied start must not register a session, have %d", got)
	}
}

func TestStart_SubscriberNotTracked(t *testing.T) {
	h := newHarness(&fakeAPI{})
	ctx := context.Background()
	user := &models.User{UserID: "sub-1", HasActiveSubscription: true, CourseID: "course-1"}

	s, err := h.mgr.Start(ctx, user, "tok", StartRequest{Mode: ModeDirect, Quiz: sampleQuiz(nil)})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Submit(ctx); err != nil {
		t.Fatal(err)
	}
	counter, _ := h.ent.QuizAttempts(ctx, "sub-1")
	if counter.Total != 0 {
		t.Errorf("subscribers must not be tracked, got %+v", counter)
	}

	other := sampleQuiz(nil)
	other.CourseID = "course-2"
	if _, err := h.mgr.Start(ctx, user, "tok", StartRequest{Mode: ModeDirect, Quiz: other}); !errors.Is(err, ErrEntitlementDenied) {
		t.Errorf("expected denial outside the subscribed course, got %v", err)
	}
}

func TestStart_FailedSubmitNotTracked(t *testing.T) {
	api := attemptAPI()
	api.attemptErrs = []error{errors.New("boom")}
	h := newHarness(api)
	s := startAttempt(t, h)

	if _, err := s.Submit(context.Background()); err == nil {
		t.Fatal("expected failure")
	}
	counter, _ := h.ent.QuizAttempts(context.Background(), "u1")
	if counter.Total != 0 {
		t.Errorf("failed submissions must not count, got %+v", counter)
	}
}

func TestStart_LoadFailure(t *testing.T) {
	api := &fakeAPI{detailsErr: &examapi.APIError{Status: http.StatusNotFound, Message: "Attempt not found"}}
	h := newHarness(api)

	_, err := h.mgr.Start(context.Background(), freeUser(), "tok", StartRequest{Mode: ModeAttemptBased, AttemptID: "x"})
	if !examapi.IsNotFound(err) {
		t.Fatalf("expected wrapped not-found error, got %v", err)
	}
	if len(h.mgr.List()) != 0 {
		t.Error("failed load must not register a session")
	}

	empty := &models.Quiz{Title: "Empty"}
	if _, err := h.mgr.Start(context.Background(), freeUser(), "tok", StartRequest{Mode: ModeDirect, Quiz: empty}); !errors.Is(err, ErrInvalidQuiz) {
		t.Errorf("expected ErrInvalidQuiz, got %v", err)
	}
}

func TestStart_AttemptDetailsFillQuiz(t *testing.T) {
	h := newHarness(attemptAPI())
	s, err := h.mgr.Start(context.Background(), freeUser(), "tok", StartRequest{Mode: ModeAttemptBased, AttemptID: "att-9", ChapterID: "ch-7"})
	if err != nil {
		t.Fatal(err)
	}
	if s.Quiz.ID != "quiz-9" || s.Quiz.Title != "Thorax" || s.Quiz.ChapterID != "ch-7" {
		t.Errorf("unexpected quiz %+v", s.Quiz)
	}
	if s.View().TimeRemaining != "00:01:00" {
		t.Errorf("expected one minute countdown, got %q", s.View().TimeRemaining)
	}
}

func TestManager_Events(t *testing.T) {
	h := newHarness(&fakeAPI{})
	s := startDirect(t, h, nil)
	if _, err := s.Submit(context.Background()); err != nil {
		t.Fatal(err)
	}
	want := []string{"quiz.started", "quiz.attempt_tracked", "quiz.completed"}
	if got := h.events.Types(); !reflect.DeepEqual(got, want) {
		t.Errorf("expected events %v, got %v", want, got)
	}
}

func TestManager_GetAndClose(t *testing.T) {
	h := newHarness(&fakeAPI{})
	s := startDirect(t, h, nil)

	got, err := h.mgr.Get(s.ID)
	if err != nil || got != s {
		t.Fatalf("expected to find session, got %v", err)
	}
	if err := h.mgr.Close(s.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := h.mgr.Get(s.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound after close, got %v", err)
	}
	if err := h.mgr.Close(s.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected double close to report ErrSessionNotFound, got %v", err)
	}
}

func TestManager_Sweep(t *testing.T) {
	h := newHarness(&fakeAPI{})
	done := startDirect(t, h, nil)
	if _, err := done.Submit(context.Background()); err != nil {
		t.Fatal(err)
	}
	running := startDirect(t, h, nil)
	abandoned := startDirect(t, h, nil)

	if n := h.mgr.Sweep(30 * time.Minute); n != 0 {
		t.Fatalf("fresh sessions must survive, swept %d", n)
	}
	h.clock.Advance(20 * time.Minute)
	if err := running.SelectAnswer("q1", 0); err != nil {
		t.Fatal(err)
	}
	h.clock.Advance(11 * time.Minute)
	if n := h.mgr.Sweep(30 * time.Minute); n != 2 {
		t.Fatalf("expected the completed and the abandoned session to be swept, got %d", n)
	}
	for _, id := range []string{done.ID, abandoned.ID} {
		if _, err := h.mgr.Get(id); !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("session %s should be gone", id)
		}
	}
	if _, err := h.mgr.Get(running.ID); err != nil {
		t.Fatal("recently used session should remain")
	}
	if abandoned.SelectAnswer("q1", 0) == nil {
		t.Error("a swept session must not accept answers")
	}

	h.clock.Advance(30 * time.Minute)
	if n := h.mgr.Sweep(30 * time.Minute); n != 1 {
		t.Fatalf("expected the now idle session to be swept, got %d", n)
	}
	if len(h.mgr.List()) != 0 {
		t.Errorf("expected no live sessions, got %+v", h.mgr.List())
	}
}

func TestManager_SweepKeepsRunningCountdown(t *testing.T) {
	h := newHarness(&fakeAPI{})
	h.mgr.opts.TickInterval = time.Hour
	s := startDirect(t, h, minutes(600))
	t.Cleanup(s.Close)

	h.clock.Advance(2 * time.Hour)
	if n := h.mgr.Sweep(30 * time.Minute); n != 0 {
		t.Fatalf("a session with a live countdown submits itself, swept %d", n)
	}
}

func TestManager_ListNewestFirst(t *testing.T) {
	h := newHarness(&fakeAPI{})
	first := startDirect(t, h, nil)
	h.clock.Advance(time.Minute)
	second := startDirect(t, h, nil)

	list := h.mgr.List()
	if len(list) != 2 || list[0].ID != second.ID || list[1].ID != first.ID {
		t.Errorf("unexpected order %+v", list)
	}
	if list[0].State != StateInProgress || list[0].Mode != ModeDirect || list[0].UserID != "u1" {
		t.Errorf("unexpected summary %+v", list[0])
	}
}

func TestParseMode(t *testing.T) {
	for _, name := range []string{"direct", "attempt", "mock_test"} {
		m, err := ParseMode(name)
		if err != nil || m.String() != name {
			t.Errorf("ParseMode(%q) = %v, %v", name, m, err)
		}
	}
	if _, err := ParseMode("exam"); err == nil {
		t.Error("expected unknown mode error")
	}
}
