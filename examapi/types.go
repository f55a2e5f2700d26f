package examapi

import (
	"encoding/json"
	"time"

	"medprep-server/models"
)

// AnswerSubmission is one answered question in a submit payload.
type AnswerSubmission struct {
	QuestionID     string `json:"questionId"`
	SelectedOption string `json:"selectedOption,omitempty"`
	SelectedKey    string `json:"selectedKey"`
}

// SubmitAttemptRequest grades a server-tracked regular quiz attempt.
type SubmitAttemptRequest struct {
	UserID           string             `json:"userId"`
	AttemptID        string             `json:"attemptId"`
	TimeTakenSeconds int                `json:"timeTakenSeconds"`
	Answers          []AnswerSubmission `json:"answers"`
}

type SubmitAttemptResponse struct {
	Success  bool   `json:"success"`
	ResultID string `json:"resultId"`
	QuizID   string `json:"quizId"`
	Message  string `json:"message,omitempty"`
}

type userRequest struct {
	UserID string `json:"userId"`
}

// MockTestAttempt is the server-side instance allocated by StartMockTest.
type MockTestAttempt struct {
	ID        string    `json:"id"`
	TestID    string    `json:"test_id,omitempty"`
	StartedAt time.Time `json:"startedAt"`
}

type MockTestInfo struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	DurationMinutes *int   `json:"duration,omitempty"`
	CourseID        string `json:"course_id,omitempty"`
}

type StartMockTestResponse struct {
	Attempt   MockTestAttempt   `json:"attempt"`
	Test      MockTestInfo      `json:"test"`
	Questions []models.Question `json:"questions"`
}

// SubmitMockTestRequest is addressed by test id, not attempt id.
type SubmitMockTestRequest struct {
	UserID           string             `json:"userId"`
	TimeTakenSeconds int                `json:"timeTakenSeconds"`
	Answers          []AnswerSubmission `json:"answers"`
}

// SubmitMockTestResponse keeps the raw result so the normalizer can reconcile its shape.
type SubmitMockTestResponse struct {
	Success bool            `json:"success"`
	Result  json.RawMessage `json:"result"`
	Message string          `json:"message,omitempty"`
}

// AttemptID digs the attempt id out of the raw result, if present.
func (r *SubmitMockTestResponse) AttemptID() string {
	var probe struct {
		AttemptID      string `json:"attemptId"`
		AttemptIDSnake string `json:"attempt_id"`
	}
	if len(r.Result) == 0 || json.Unmarshal(r.Result, &probe) != nil {
		return ""
	}
	if probe.AttemptID != "" {
		return probe.AttemptID
	}
	return probe.AttemptIDSnake
}

// AttemptDetails is a regular quiz attempt with its questions.
type AttemptDetails struct {
	AttemptID       string            `json:"attemptId"`
	QuizID          string            `json:"quizId"`
	ChapterID       string            `json:"chapterId,omitempty"`
	CourseID        string            `json:"courseId,omitempty"`
	Title           string            `json:"title"`
	Questions       []models.Question `json:"questions"`
	DurationMinutes *int              `json:"duration,omitempty"`
}
