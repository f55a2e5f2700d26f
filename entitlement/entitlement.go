// Package entitlement decides whether a user may open a course or start a
// quiz. Course access is derived from the subscription snapshot alone;
// quiz attempts of free users are counted in an advisory per-user counter.
package entitlement

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"medprep-server/logger"
	"medprep-server/models"
	"medprep-server/store"
)

// FreeAttemptLimit is the number of quizzes a free user may attempt.
const FreeAttemptLimit = 2

// Some enrollments still carry the course slug instead of its id.
const (
	legacyCourseSlug = "neet-pg"
	legacyCourseID   = "6734b2f1c3a9e0d41f5a7c21"
)

// CanAccessCourse reports whether the user is entitled to the course.
func CanAccessCourse(user *models.User, courseID string) bool {
	if user == nil || courseID == "" {
		return false
	}
	if user.CourseID != "" && user.CourseID == courseID {
		return true
	}
	if isLegacyAlias(user.CourseID, courseID) {
		return true
	}
	if !user.HasActiveSubscription {
		return false
	}
	for _, sub := range user.Subscriptions {
		if sub.CourseID == courseID {
			return true
		}
	}
	return false
}

func isLegacyAlias(a, b string) bool {
	return (a == legacyCourseSlug && b == legacyCourseID) || (a == legacyCourseID && b == legacyCourseSlug)
}

// NoteType is the level of notes a user sees for a course.
type NoteType string

const (
	NoteTypeFull   NoteType = "full"
	NoteTypeSample NoteType = "sample"
)

func GetNoteType(user *models.User, courseID string) NoteType {
	if CanViewFullNotes(user, courseID) {
		return NoteTypeFull
	}
	return NoteTypeSample
}

func CanViewFullNotes(user *models.User, courseID string) bool {
	return CanAccessCourse(user, courseID)
}

// Remaining is either a finite number of attempts or unlimited.
// It encodes to JSON as a number or the string "unlimited".
type Remaining struct {
	Unlimited bool
	Count     int
}

func (r Remaining) MarshalJSON() ([]byte, error) {
	if r.Unlimited {
		return []byte(`"unlimited"`), nil
	}
	return json.Marshal(r.Count)
}

func (r Remaining) String() string {
	if r.Unlimited {
		return "unlimited"
	}
	return fmt.Sprintf("%d", r.Count)
}

// Engine evaluates the counter-backed rules. The counter lives in the
// configured store and can be reset by anyone with access to it. Updates
// to one user's counter are serialized within the Engine.
type Engine struct {
	store store.Store
	log   *logger.Logger
	now   func() time.Time
	locks userLocks
}

func NewEngine(s store.Store, log *logger.Logger) *Engine {
	return &Engine{store: s, log: log, now: time.Now}
}

// WithClock overrides the timestamp source for tracked attempts.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// QuizAttempts returns the user's counter, zero-valued when none was stored yet.
func (e *Engine) QuizAttempts(ctx context.Context, userID string) (models.QuizAttemptCounter, error) {
	var counter models.QuizAttemptCounter
	if userID == "" {
		return counter, nil
	}
	if _, err := store.GetJSON(ctx, e.store, store.QuizAttemptsKey(userID), &counter); err != nil {
		return models.QuizAttemptCounter{}, fmt.Errorf("load quiz attempts for %s: %w", userID, err)
	}
	counter.Total = len(counter.Attempts)
	return counter, nil
}

// CanAttemptQuiz reports whether the user may start a quiz. Subscribers are
// limited only by course access when courseID is given; free users by the
// attempt counter. It never writes.
func (e *Engine) CanAttemptQuiz(ctx context.Context, user *models.User, courseID string) bool {
	if user == nil {
		return false
	}
	if user.HasActiveSubscription {
		if courseID != "" {
			return CanAccessCourse(user, courseID)
		}
		return true
	}
	counter, err := e.QuizAttempts(ctx, user.UserID)
	if err != nil {
		e.log.Warn("quiz attempt counter unavailable, denying", "user_id", user.UserID, "error", err)
		return false
	}
	return counter.Total < FreeAttemptLimit
}

// TrackQuizAttempt appends one attempt to a free user's counter and returns
// the updated counter. It returns nil for subscribers and missing users.
// Callers invoke it once per completed attempt; there is no de-duplication.
func (e *Engine) TrackQuizAttempt(ctx context.Context, user *models.User, quizID, chapterID string) (*models.QuizAttemptCounter, error) {
	if user == nil || user.HasActiveSubscription {
		return nil, nil
	}
	unlock := e.locks.lock(user.UserID)
	defer unlock()
	counter, err := e.QuizAttempts(ctx, user.UserID)
	if err != nil {
		return nil, err
	}
	counter.Attempts = append(counter.Attempts, models.QuizAttemptRecord{
		QuizID:    quizID,
		ChapterID: chapterID,
		Timestamp: e.now().UTC(),
	})
	counter.Total = len(counter.Attempts)
	if err := store.SetJSON(ctx, e.store, store.QuizAttemptsKey(user.UserID), counter, 0); err != nil {
		return nil, fmt.Errorf("save quiz attempts for %s: %w", user.UserID, err)
	}
	return &counter, nil
}

// ResetQuizAttempts drops the user's counter.
func (e *Engine) ResetQuizAttempts(ctx context.Context, userID string) error {
	if userID == "" {
		return fmt.Errorf("reset quiz attempts: empty user id")
	}
	unlock := e.locks.lock(userID)
	defer unlock()
	return e.store.Delete(ctx, store.QuizAttemptsKey(userID))
}

func (e *Engine) GetRemainingQuizAttempts(ctx context.Context, user *models.User) Remaining {
	if user == nil {
		return Remaining{}
	}
	if user.HasActiveSubscription {
		return Remaining{Unlimited: true}
	}
	counter, err := e.QuizAttempts(ctx, user.UserID)
	if err != nil {
		e.log.Warn("quiz attempt counter unavailable", "user_id", user.UserID, "error", err)
		return Remaining{}
	}
	left := FreeAttemptLimit - counter.Total
	if left < 0 {
		left = 0
	}
	return Remaining{Count: left}
}

func (e *Engine) HasExceededQuizLimit(ctx context.Context, user *models.User) bool {
	if user == nil {
		return true
	}
	if user.HasActiveSubscription {
		return false
	}
	return !e.CanAttemptQuiz(ctx, user, "")
}
