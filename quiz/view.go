package quiz

import (
	"medprep-server/utils"
)

// QuestionView is a question as shown while the session runs. Answer keys are withheld.
type QuestionView struct {
	ID      string   `json:"id"`
	Text    string   `json:"text"`
	Options []string `json:"options"`
	Marks   *float64 `json:"marks,omitempty"`
}

// View is the rendered state of a session.
type View struct {
	ID                   string         `json:"id"`
	Mode                 Mode           `json:"mode"`
	State                State          `json:"state"`
	Title                string         `json:"title"`
	AttemptID            string         `json:"attempt_id,omitempty"`
	TestID               string         `json:"test_id,omitempty"`
	CurrentIndex         int            `json:"current_index"`
	Questions            []QuestionView `json:"questions"`
	Answers              map[string]int `json:"answers"`
	AnsweredCount        int            `json:"answered_count"`
	TimeRemainingSeconds *int           `json:"time_remaining_seconds,omitempty"`
	TimeRemaining        string         `json:"time_remaining,omitempty"`
	IsSubmitting         bool           `json:"is_submitting"`
	LastError            string         `json:"last_error,omitempty"`
	Outcome              *Outcome       `json:"outcome,omitempty"`
}

// View captures the session under its lock.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := View{
		ID:            s.ID,
		Mode:          s.Mode,
		State:         s.state,
		Title:         s.Quiz.Title,
		AttemptID:     s.AttemptID,
		TestID:        s.TestID,
		CurrentIndex:  s.current,
		Questions:     make([]QuestionView, 0, len(s.Quiz.Questions)),
		Answers:       make(map[string]int, len(s.answers)),
		AnsweredCount: len(s.answers),
		IsSubmitting:  s.submitting,
		LastError:     s.lastError,
	}
	for _, q := range s.Quiz.Questions {
		v.Questions = append(v.Questions, QuestionView{ID: q.ID, Text: q.Text, Options: q.Options, Marks: q.Marks})
	}
	for k, a := range s.answers {
		v.Answers[k] = a
	}
	if s.remaining != nil {
		r := *s.remaining
		v.TimeRemainingSeconds = &r
		v.TimeRemaining = utils.FormatClock(r)
	}
	if s.outcome != nil {
		out := *s.outcome
		v.Outcome = &out
	}
	return v
}
