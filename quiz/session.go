package quiz

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"medprep-server/logger"
	"medprep-server/models"
)

const autoSubmitTimeout = 30 * time.Second

// Hooks receive session events. Both run outside the session lock.
type Hooks struct {
	OnComplete     func(ctx context.Context, s *Session, out Outcome)
	OnSubmitFailed func(ctx context.Context, s *Session, trigger Trigger, err *SubmitError)
}

// Session is one in-progress quiz or mock test. All methods are safe for
// concurrent use; the countdown runs on its own goroutine.
type Session struct {
	ID        string
	User      models.User
	Mode      Mode
	Quiz      models.Quiz
	AttemptID string
	TestID    string
	CreatedAt time.Time

	token        string
	submitter    submitter
	hooks        Hooks
	log          *logger.Logger
	now          func() time.Time
	tickInterval time.Duration

	mu            sync.Mutex
	state         State
	current       int
	answers       map[string]int
	remaining     *int
	startedAt     time.Time
	submitting    bool
	autoSubmitted bool
	closed        bool
	timerStop     chan struct{}
	lastError     string
	outcome       *Outcome
	finishedAt    time.Time
	lastActivity  time.Time
}

// State returns the current lifecycle stage.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Outcome returns the completed submission, if any.
func (s *Session) Outcome() (Outcome, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.outcome == nil {
		return Outcome{}, false
	}
	return *s.outcome, true
}

// load moves a Loading session to Ready with the fetched quiz.
func (s *Session) load(q models.Quiz) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(q.Questions) == 0 {
		s.state = StateFailed
		return ErrInvalidQuiz
	}
	// Answers are keyed by question id, so every question needs a unique one.
	// Generated ids skip every id the quiz already carries.
	taken := make(map[string]bool, len(q.Questions))
	for _, question := range q.Questions {
		if question.ID != "" {
			taken[question.ID] = true
		}
	}
	seen := make(map[string]bool, len(q.Questions))
	questions := make([]models.Question, len(q.Questions))
	for i, question := range q.Questions {
		if question.ID == "" || seen[question.ID] {
			n := i + 1
			id := "q" + strconv.Itoa(n)
			for taken[id] {
				n++
				id = "q" + strconv.Itoa(n)
			}
			question.ID = id
			taken[id] = true
		}
		seen[question.ID] = true
		questions[i] = question
	}
	q.Questions = questions
	s.Quiz = q
	s.state = StateReady
	return nil
}

func (s *Session) fail(msg string) {
	s.mu.Lock()
	s.state = StateFailed
	s.lastError = msg
	s.finishedAt = s.now()
	s.mu.Unlock()
}

// begin starts the session and, for timed quizzes, the countdown.
func (s *Session) begin() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateReady {
		return
	}
	s.state = StateInProgress
	s.startedAt = s.now()
	s.lastActivity = s.startedAt
	if d := s.Quiz.DurationMinutes; d != nil && *d > 0 {
		secs := *d * 60
		s.remaining = &secs
		s.startTimerLocked()
	}
}

// Next advances to the following question, staying on the last one.
func (s *Session) Next() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.state != StateInProgress {
		return ErrNotInProgress
	}
	if s.current < len(s.Quiz.Questions)-1 {
		s.current++
	}
	s.lastActivity = s.now()
	return nil
}

// Previous moves back one question, staying on the first one.
func (s *Session) Previous() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.state != StateInProgress {
		return ErrNotInProgress
	}
	if s.current > 0 {
		s.current--
	}
	s.lastActivity = s.now()
	return nil
}

// JumpTo moves directly to question index.
func (s *Session) JumpTo(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.state != StateInProgress {
		return ErrNotInProgress
	}
	if index < 0 || index >= len(s.Quiz.Questions) {
		return ErrInvalidIndex
	}
	s.current = index
	s.lastActivity = s.now()
	return nil
}

// SelectAnswer records (or replaces) the chosen option for a question.
func (s *Session) SelectAnswer(questionID string, optionIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.state != StateInProgress {
		return ErrNotInProgress
	}
	q, ok := s.questionLocked(questionID)
	if !ok {
		return ErrUnknownQuestion
	}
	if optionIndex < 0 || (len(q.Options) > 0 && optionIndex >= len(q.Options)) || optionIndex >= 26 {
		return ErrInvalidOption
	}
	s.answers[questionID] = optionIndex
	s.lastActivity = s.now()
	return nil
}

func (s *Session) questionLocked(id string) (models.Question, bool) {
	for _, q := range s.Quiz.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return models.Question{}, false
}

// Tick decrements the countdown by one second. When it reaches zero the
// session submits itself, once.
func (s *Session) Tick() {
	s.mu.Lock()
	if s.closed || s.state != StateInProgress || s.submitting || s.remaining == nil || s.autoSubmitted {
		s.mu.Unlock()
		return
	}
	if *s.remaining > 0 {
		*s.remaining--
	}
	expired := *s.remaining == 0
	if expired {
		s.autoSubmitted = true
	}
	s.mu.Unlock()

	if !expired {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), autoSubmitTimeout)
	defer cancel()
	if _, err := s.submit(ctx, TriggerTimer); err != nil && !errors.Is(err, ErrAlreadySubmitting) {
		s.log.Warn("auto-submit failed", "session_id", s.ID, "mode", s.Mode.String(), "error", err)
	}
}

// Submit grades the session through its mode's path. Only one submission
// runs at a time; a concurrent call gets ErrAlreadySubmitting. A failed
// submission returns the session to InProgress with answers intact.
func (s *Session) Submit(ctx context.Context) (Outcome, error) {
	return s.submit(ctx, TriggerManual)
}

func (s *Session) submit(ctx context.Context, trigger Trigger) (Outcome, error) {
	s.mu.Lock()
	if s.submitting {
		s.mu.Unlock()
		return Outcome{}, ErrAlreadySubmitting
	}
	if s.closed || s.state != StateInProgress {
		s.mu.Unlock()
		return Outcome{}, ErrNotInProgress
	}
	s.submitting = true
	s.state = StateSubmitting
	s.stopTimerLocked()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	out, err := s.submitter.submit(ctx, s, snap)

	s.mu.Lock()
	s.submitting = false
	s.lastActivity = s.now()
	if err != nil {
		subErr := &SubmitError{Message: userMessage(err), Err: err}
		s.state = StateInProgress
		s.lastError = subErr.Message
		if s.remaining != nil && *s.remaining > 0 && !s.closed {
			s.startTimerLocked()
		}
		s.mu.Unlock()
		if s.hooks.OnSubmitFailed != nil {
			s.hooks.OnSubmitFailed(ctx, s, trigger, subErr)
		}
		return Outcome{}, subErr
	}
	out.Mode = s.Mode
	out.Trigger = trigger
	s.state = StateCompleted
	s.lastError = ""
	s.outcome = &out
	s.finishedAt = s.now()
	s.mu.Unlock()

	if s.hooks.OnComplete != nil {
		s.hooks.OnComplete(ctx, s, out)
	}
	return out, nil
}

// snapshot is what a submission path sees of the session.
type snapshot struct {
	answers   map[string]int
	timeTaken int
}

func (s *Session) snapshotLocked() snapshot {
	answers := make(map[string]int, len(s.answers))
	for k, v := range s.answers {
		answers[k] = v
	}
	return snapshot{answers: answers, timeTaken: s.timeTakenLocked()}
}

// timeTakenLocked is duration minus remaining for timed sessions. Untimed
// direct quizzes report 0; untimed server-graded sessions report wall time.
func (s *Session) timeTakenLocked() int {
	if s.remaining != nil && s.Quiz.DurationMinutes != nil {
		taken := *s.Quiz.DurationMinutes*60 - *s.remaining
		if taken < 0 {
			return 0
		}
		return taken
	}
	if s.Mode == ModeDirect || s.startedAt.IsZero() {
		return 0
	}
	return int(s.now().Sub(s.startedAt).Seconds())
}

// Touch marks the session as still in use by its owner.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastActivity = s.now()
	s.mu.Unlock()
}

// abandonedLocked reports an in-progress session nobody has used since
// cutoff. A running countdown finishes the session on its own.
func (s *Session) abandonedLocked(cutoff time.Time) bool {
	return s.state == StateInProgress && !s.submitting && s.timerStop == nil &&
		!s.lastActivity.IsZero() && s.lastActivity.Before(cutoff)
}

// Close stops the countdown. The session accepts no further changes.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.stopTimerLocked()
}

func (s *Session) startTimerLocked() {
	if s.remaining == nil || s.timerStop != nil || s.tickInterval <= 0 {
		return
	}
	stop := make(chan struct{})
	s.timerStop = stop
	go s.runTimer(stop)
}

func (s *Session) stopTimerLocked() {
	if s.timerStop != nil {
		close(s.timerStop)
		s.timerStop = nil
	}
}

func (s *Session) runTimer(stop <-chan struct{}) {
	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.Tick()
		}
	}
}

// timerRunning reports whether a countdown goroutine is active.
func (s *Session) timerRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timerStop != nil
}
