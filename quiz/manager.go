package quiz

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"medprep-server/entitlement"
	"medprep-server/examapi"
	"medprep-server/logger"
	"medprep-server/metrics"
	"medprep-server/models"
	"medprep-server/store"
)

// Publisher emits domain events.
type Publisher interface {
	Publish(ctx context.Context, eventType string, payload interface{}) error
}

// Auditor records session lifecycle events.
type Auditor interface {
	LogSessionEvent(ctx context.Context, userID, action, target, notes string)
}

// Notifier surfaces a transient message to the user.
type Notifier interface {
	Notify(userID, level, message string)
}

// StartRequest describes the session to open. Quiz is used by ModeDirect,
// AttemptID by ModeAttemptBased and TestID by ModeMockTest.
type StartRequest struct {
	Mode      Mode
	Quiz      *models.Quiz
	AttemptID string
	TestID    string
	CourseID  string
	ChapterID string
}

// Options wires the optional collaborators of a Manager.
type Options struct {
	Publisher    Publisher
	Auditor      Auditor
	Notifier     Notifier
	TickInterval time.Duration
	Now          func() time.Time
}

// Manager owns the live sessions.
type Manager struct {
	api   API
	ent   *entitlement.Engine
	kv    store.Store
	log   *logger.Logger
	opts  Options
	mu    sync.RWMutex
	items map[string]*Session
}

func NewManager(api API, ent *entitlement.Engine, kv store.Store, log *logger.Logger, opts Options) *Manager {
	if opts.TickInterval == 0 {
		opts.TickInterval = time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Manager{
		api:   api,
		ent:   ent,
		kv:    kv,
		log:   log,
		opts:  opts,
		items: make(map[string]*Session),
	}
}

// Start gates entry on entitlements, loads the quiz for the requested mode
// and returns a running session.
func (m *Manager) Start(ctx context.Context, user *models.User, token string, req StartRequest) (*Session, error) {
	if user == nil {
		return nil, ErrEntitlementDenied
	}
	courseID := req.CourseID
	if courseID == "" && req.Quiz != nil {
		courseID = req.Quiz.CourseID
	}
	if !m.ent.CanAttemptQuiz(ctx, user, courseID) {
		metrics.EntitlementDenials.WithLabelValues(string(entitlement.FeatureQuiz)).Inc()
		return nil, ErrEntitlementDenied
	}

	id := uuid.NewString()
	s := &Session{
		ID:           id,
		User:         *user,
		Mode:         req.Mode,
		AttemptID:    req.AttemptID,
		TestID:       req.TestID,
		CreatedAt:    m.opts.Now(),
		token:        token,
		submitter:    newSubmitter(req.Mode, m.api, m.kv),
		hooks:        Hooks{OnComplete: m.onComplete, OnSubmitFailed: m.onSubmitFailed},
		log:          m.log.With("session_id", id, "mode", req.Mode.String()),
		now:          m.opts.Now,
		tickInterval: m.opts.TickInterval,
		state:        StateLoading,
		answers:      make(map[string]int),
	}

	q, err := m.fetch(ctx, s, req)
	if err == nil {
		if q.CourseID == "" {
			q.CourseID = courseID
		}
		if q.ChapterID == "" {
			q.ChapterID = req.ChapterID
		}
		err = s.load(q)
	}
	if err != nil {
		s.fail(examapi.UserMessage(err, "Failed to load quiz. Please try again."))
		s.log.Error("failed to load quiz", "user_id", user.UserID, "error", err)
		return nil, fmt.Errorf("load %s session: %w", req.Mode, err)
	}

	s.begin()
	m.mu.Lock()
	m.items[s.ID] = s
	m.mu.Unlock()

	metrics.SessionsStarted.WithLabelValues(s.Mode.String()).Inc()
	metrics.ActiveSessions.Inc()
	m.audit(ctx, user.UserID, "quiz_session_started", s.ID, fmt.Sprintf("mode=%s quiz=%s", s.Mode, s.Quiz.ID))
	m.publish(ctx, "quiz.started", map[string]interface{}{
		"sessionId": s.ID,
		"userId":    user.UserID,
		"mode":      s.Mode.String(),
		"quizId":    s.Quiz.ID,
		"attemptId": s.AttemptID,
		"testId":    s.TestID,
	})
	s.log.Info("quiz session started", "user_id", user.UserID, "questions", len(s.Quiz.Questions))
	return s, nil
}

func (m *Manager) fetch(ctx context.Context, s *Session, req StartRequest) (models.Quiz, error) {
	switch req.Mode {
	case ModeDirect:
		if req.Quiz == nil {
			return models.Quiz{}, ErrInvalidQuiz
		}
		return *req.Quiz, nil

	case ModeAttemptBased:
		if req.AttemptID == "" {
			return models.Quiz{}, fmt.Errorf("attempt id is required")
		}
		d, err := m.api.FetchAttemptDetails(ctx, s.token, s.User.UserID, req.AttemptID)
		if err != nil {
			return models.Quiz{}, err
		}
		return models.Quiz{
			ID:              d.QuizID,
			Title:           d.Title,
			CourseID:        d.CourseID,
			ChapterID:       d.ChapterID,
			Questions:       d.Questions,
			DurationMinutes: d.DurationMinutes,
		}, nil

	case ModeMockTest:
		if req.TestID == "" {
			return models.Quiz{}, fmt.Errorf("test id is required")
		}
		resp, err := m.api.StartMockTest(ctx, s.token, req.TestID, s.User.UserID)
		if err != nil {
			return models.Quiz{}, err
		}
		s.AttemptID = resp.Attempt.ID
		// The test id from the request stays authoritative for submission.
		if s.TestID == "" {
			s.TestID = resp.Test.ID
		}
		return models.Quiz{
			ID:              firstNonEmpty(resp.Test.ID, req.TestID),
			Title:           resp.Test.Title,
			CourseID:        resp.Test.CourseID,
			Questions:       resp.Questions,
			DurationMinutes: resp.Test.DurationMinutes,
		}, nil
	}
	return models.Quiz{}, fmt.Errorf("unsupported mode %s", req.Mode)
}

// Get returns a live session.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.items[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Close stops and forgets a session.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	s, ok := m.items[id]
	delete(m.items, id)
	m.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	s.Close()
	metrics.ActiveSessions.Dec()
	return nil
}

// CloseUser closes every live session owned by userID and returns how many there were.
func (m *Manager) CloseUser(userID string) int {
	var ids []string
	m.mu.RLock()
	for id, s := range m.items {
		if s.User.UserID == userID {
			ids = append(ids, id)
		}
	}
	m.mu.RUnlock()
	closed := 0
	for _, id := range ids {
		if m.Close(id) == nil {
			closed++
		}
	}
	return closed
}

// Sweep drops sessions that finished, or were last used, longer than
// retention ago and returns how many were removed.
func (m *Manager) Sweep(retention time.Duration) int {
	cutoff := m.opts.Now().Add(-retention)
	var stale []string
	m.mu.RLock()
	for id, s := range m.items {
		s.mu.Lock()
		done := s.state == StateCompleted || s.state == StateFailed
		old := !s.finishedAt.IsZero() && s.finishedAt.Before(cutoff)
		abandoned := s.abandonedLocked(cutoff)
		s.mu.Unlock()
		if (done && old) || abandoned {
			stale = append(stale, id)
		}
	}
	m.mu.RUnlock()
	removed := 0
	for _, id := range stale {
		if m.Close(id) == nil {
			removed++
		}
	}
	return removed
}

// Summary is the admin listing of a live session.
type Summary struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Mode      Mode      `json:"mode"`
	State     State     `json:"state"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

func (m *Manager) List() []Summary {
	m.mu.RLock()
	out := make([]Summary, 0, len(m.items))
	for _, s := range m.items {
		out = append(out, Summary{
			ID:        s.ID,
			UserID:    s.User.UserID,
			Mode:      s.Mode,
			State:     s.State(),
			Title:     s.Quiz.Title,
			CreatedAt: s.CreatedAt,
		})
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (m *Manager) onComplete(ctx context.Context, s *Session, out Outcome) {
	metrics.Submissions.WithLabelValues(s.Mode.String(), "success", string(out.Trigger)).Inc()
	s.log.Info("quiz submitted", "user_id", s.User.UserID, "result_id", out.ResultID, "trigger", string(out.Trigger))

	if !s.User.HasActiveSubscription {
		counter, err := m.ent.TrackQuizAttempt(ctx, &s.User, s.Quiz.ID, s.Quiz.ChapterID)
		if err != nil {
			s.log.Error("failed to track quiz attempt", "user_id", s.User.UserID, "error", err)
		} else if counter != nil {
			m.publish(ctx, "quiz.attempt_tracked", map[string]interface{}{
				"userId":    s.User.UserID,
				"quizId":    s.Quiz.ID,
				"chapterId": s.Quiz.ChapterID,
				"total":     counter.Total,
			})
		}
	}

	payload := map[string]interface{}{
		"sessionId": s.ID,
		"userId":    s.User.UserID,
		"mode":      s.Mode.String(),
		"quizId":    s.Quiz.ID,
		"resultId":  out.ResultID,
		"trigger":   string(out.Trigger),
	}
	if out.Result != nil {
		payload["percentage"] = out.Result.Percentage
	}
	m.publish(ctx, "quiz.completed", payload)
	m.audit(ctx, s.User.UserID, "quiz_session_completed", s.ID, fmt.Sprintf("result=%s trigger=%s", out.ResultID, out.Trigger))
}

func (m *Manager) onSubmitFailed(ctx context.Context, s *Session, trigger Trigger, err *SubmitError) {
	metrics.Submissions.WithLabelValues(s.Mode.String(), "failure", string(trigger)).Inc()
	s.log.Warn("quiz submission failed", "user_id", s.User.UserID, "trigger", string(trigger), "error", err.Err)
	if m.opts.Notifier != nil {
		m.opts.Notifier.Notify(s.User.UserID, "error", err.Message)
	}
	m.audit(ctx, s.User.UserID, "quiz_session_submit_failed", s.ID, err.Message)
}

func (m *Manager) publish(ctx context.Context, eventType string, payload interface{}) {
	if m.opts.Publisher == nil {
		return
	}
	if err := m.opts.Publisher.Publish(ctx, eventType, payload); err != nil {
		m.log.Warn("failed to publish event", "type", eventType, "error", err)
	}
}

func (m *Manager) audit(ctx context.Context, userID, action, target, notes string) {
	if m.opts.Auditor != nil {
		m.opts.Auditor.LogSessionEvent(ctx, userID, action, target, notes)
	}
}
