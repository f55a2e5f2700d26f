package quiz

import (
	"context"
	"sync"
	"time"

	"medprep-server/entitlement"
	"medprep-server/events"
	"medprep-server/examapi"
	"medprep-server/logger"
	"medprep-server/models"
	"medprep-server/store"
)

type fakeAPI struct {
	mu sync.Mutex

	details      *examapi.AttemptDetails
	detailsErr   error
	start        *examapi.StartMockTestResponse
	attemptResp  *examapi.SubmitAttemptResponse
	attemptErrs  []error
	mockResp     *examapi.SubmitMockTestResponse
	submitDelay  time.Duration
	attemptCalls int
	mockCalls    int
	mockTestIDs  []string
	lastAttempt  examapi.SubmitAttemptRequest
	lastMock     examapi.SubmitMockTestRequest
}

func (f *fakeAPI) FetchAttemptDetails(_ context.Context, _, _, attemptID string) (*examapi.AttemptDetails, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.detailsErr != nil {
		return nil, f.detailsErr
	}
	d := *f.details
	d.AttemptID = attemptID
	return &d, nil
}

func (f *fakeAPI) StartMockTest(_ context.Context, _, _, _ string) (*examapi.StartMockTestResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := *f.start
	return &r, nil
}

func (f *fakeAPI) SubmitQuizAttempt(_ context.Context, _ string, req examapi.SubmitAttemptRequest) (*examapi.SubmitAttemptResponse, error) {
	if f.submitDelay > 0 {
		time.Sleep(f.submitDelay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attemptCalls++
	f.lastAttempt = req
	if len(f.attemptErrs) > 0 {
		err := f.attemptErrs[0]
		f.attemptErrs = f.attemptErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	r := *f.attemptResp
	return &r, nil
}

func (f *fakeAPI) SubmitMockTest(_ context.Context, _, testID string, req examapi.SubmitMockTestRequest) (*examapi.SubmitMockTestResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mockCalls++
	f.mockTestIDs = append(f.mockTestIDs, testID)
	f.lastMock = req
	r := *f.mockResp
	return &r, nil
}

func (f *fakeAPI) calls() (attempt, mock int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attemptCalls, f.mockCalls
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *recordingNotifier) Notify(_, _, message string) {
	n.mu.Lock()
	n.messages = append(n.messages, message)
	n.mu.Unlock()
}

func (n *recordingNotifier) all() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.messages...)
}

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type harness struct {
	mgr      *Manager
	api      *fakeAPI
	kv       *store.MemoryStore
	ent      *entitlement.Engine
	notifier *recordingNotifier
	events   *events.Recorder
	clock    *testClock
}

// newHarness builds a manager whose countdown only moves when the test calls Tick.
func newHarness(api *fakeAPI) *harness {
	h := &harness{
		api:      api,
		kv:       store.NewMemoryStore(),
		notifier: &recordingNotifier{},
		events:   &events.Recorder{},
		clock:    &testClock{t: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)},
	}
	h.ent = entitlement.NewEngine(h.kv, logger.Nop())
	h.mgr = NewManager(api, h.ent, h.kv, logger.Nop(), Options{
		Publisher:    h.events,
		Notifier:     h.notifier,
		TickInterval: -1,
		Now:          h.clock.Now,
	})
	return h
}

func minutes(n int) *int { return &n }

func sampleQuestions() []models.Question {
	return []models.Question{
		{ID: "q1", Text: "Nerve of the deltoid?", Options: []string{"Axillary", "Radial", "Ulnar", "Median"}, CorrectAnswerKey: "a"},
		{ID: "q2", Text: "Largest carpal bone?", Options: []string{"Scaphoid", "Capitate", "Hamate", "Lunate"}, CorrectAnswerKey: "b"},
		{ID: "q3", Text: "Winging of scapula?", Options: []string{"Long thoracic", "Thoracodorsal", "Suprascapular", "Accessory"}, CorrectAnswerKey: "a"},
	}
}

func sampleQuiz(duration *int) *models.Quiz {
	return &models.Quiz{ID: "quiz-1", Title: "Upper Limb", CourseID: "course-1", ChapterID: "ch-1", Questions: sampleQuestions(), DurationMinutes: duration}
}

func freeUser() *models.User {
	return &models.User{UserID: "u1"}
}
