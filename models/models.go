package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Subscription is a single course grant inside a multi-course plan.
type Subscription struct {
	CourseID  string     `json:"course_id"`
	PlanID    string     `json:"plan_id,omitempty"`
	Status    string     `json:"status,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// User is the identity plus entitlement snapshot returned by the profile endpoint.
// The upstream sends the identifier as id, user_id or uuid; it is unified into UserID on decode.
type User struct {
	UserID                string         `json:"user_id"`
	Name                  string         `json:"name,omitempty"`
	Email                 string         `json:"email,omitempty"`
	HasActiveSubscription bool           `json:"has_active_subscription"`
	CourseID              string         `json:"course_id,omitempty"`
	Subscriptions         []Subscription `json:"subscriptions,omitempty"`
}

// flexString accepts a JSON string or number.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", string(b))
	}
	*f = flexString(n.String())
	return nil
}

type rawSubscription struct {
	CourseID      flexString `json:"course_id"`
	CourseIDCamel flexString `json:"courseId"`
	PlanID        flexString `json:"plan_id"`
	Status        string     `json:"status"`
	ExpiresAt     *time.Time `json:"expires_at"`
}

type rawUser struct {
	ID                         flexString        `json:"id"`
	UserID                     flexString        `json:"user_id"`
	UUID                       flexString        `json:"uuid"`
	Name                       string            `json:"name"`
	Email                      string            `json:"email"`
	HasActiveSubscription      *bool             `json:"has_active_subscription"`
	HasActiveSubscriptionCamel *bool             `json:"hasActiveSubscription"`
	CourseID                   flexString        `json:"course_id"`
	CourseIDCamel              flexString        `json:"courseId"`
	Subscriptions              []rawSubscription `json:"subscriptions"`
}

// UnmarshalJSON normalizes the aliased identifier and subscription fields.
func (u *User) UnmarshalJSON(b []byte) error {
	var raw rawUser
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*u = User{
		UserID:   firstNonEmpty(string(raw.UserID), string(raw.ID), string(raw.UUID)),
		Name:     raw.Name,
		Email:    raw.Email,
		CourseID: firstNonEmpty(string(raw.CourseID), string(raw.CourseIDCamel)),
	}
	if raw.HasActiveSubscription != nil {
		u.HasActiveSubscription = *raw.HasActiveSubscription
	} else if raw.HasActiveSubscriptionCamel != nil {
		u.HasActiveSubscription = *raw.HasActiveSubscriptionCamel
	}
	for _, s := range raw.Subscriptions {
		u.Subscriptions = append(u.Subscriptions, Subscription{
			CourseID:  firstNonEmpty(string(s.CourseID), string(s.CourseIDCamel)),
			PlanID:    string(s.PlanID),
			Status:    s.Status,
			ExpiresAt: s.ExpiresAt,
		})
	}
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// Question is a single multiple-choice question. CorrectAnswerKey is only
// present for client-scored quizzes.
type Question struct {
	ID               string   `json:"id"`
	Text             string   `json:"text"`
	Options          []string `json:"options"`
	CorrectAnswerKey string   `json:"correct_answer,omitempty"`
	Explanation      string   `json:"explanation,omitempty"`
	Marks            *float64 `json:"marks,omitempty"`
}

type rawQuestion struct {
	ID               flexString `json:"id"`
	QuestionID       flexString `json:"question_id"`
	Text             string     `json:"text"`
	Question         string     `json:"question"`
	QuestionText     string     `json:"question_text"`
	Options          []string   `json:"options"`
	CorrectAnswer    string     `json:"correct_answer"`
	CorrectAnswerKey string     `json:"correctAnswer"`
	Explanation      string     `json:"explanation"`
	Marks            *float64   `json:"marks"`
}

// UnmarshalJSON accepts the handful of field spellings the exam backend uses.
func (q *Question) UnmarshalJSON(b []byte) error {
	var raw rawQuestion
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*q = Question{
		ID:               firstNonEmpty(string(raw.ID), string(raw.QuestionID)),
		Text:             firstNonEmpty(raw.Text, raw.QuestionText, raw.Question),
		Options:          raw.Options,
		CorrectAnswerKey: strings.ToLower(strings.TrimSpace(firstNonEmpty(raw.CorrectAnswer, raw.CorrectAnswerKey))),
		Explanation:      raw.Explanation,
		Marks:            raw.Marks,
	}
	return nil
}

// Quiz is a titled, ordered list of questions with an optional time limit.
type Quiz struct {
	ID              string     `json:"id,omitempty"`
	Title           string     `json:"title"`
	CourseID        string     `json:"course_id,omitempty"`
	ChapterID       string     `json:"chapter_id,omitempty"`
	Questions       []Question `json:"questions"`
	DurationMinutes *int       `json:"duration,omitempty"`
}

// OptionKey maps a zero-based option index to its letter key (0 -> "a").
// Indexes outside a..z have no key.
func OptionKey(index int) string {
	if index < 0 || index >= 26 {
		return ""
	}
	return string(rune('a' + index))
}

// OptionIndex is the inverse of OptionKey. It returns -1 for unknown keys.
func OptionIndex(key string) int {
	key = strings.ToLower(strings.TrimSpace(key))
	if len(key) == 1 && key[0] >= 'a' && key[0] <= 'z' {
		return int(key[0] - 'a')
	}
	return -1
}

// QuizAttemptRecord is one tracked free-tier attempt.
type QuizAttemptRecord struct {
	QuizID    string    `json:"quizId"`
	ChapterID string    `json:"chapterId,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// QuizAttemptCounter is the per-user free-tier gating state. Total always equals len(Attempts).
type QuizAttemptCounter struct {
	Total    int                 `json:"total"`
	Attempts []QuizAttemptRecord `json:"attempts"`
}

// ReviewItem is the per-question review line of a result.
type ReviewItem struct {
	QuestionText     string   `json:"questionText"`
	Options          []string `json:"options"`
	IsCorrect        bool     `json:"isCorrect"`
	UserAnswerKey    string   `json:"userAnswerKey,omitempty"`
	CorrectAnswerKey string   `json:"correctAnswerKey,omitempty"`
	Explanation      string   `json:"explanation,omitempty"`
}

// QuizResult is the normalized result shape consumed by the result renderer.
type QuizResult struct {
	QuizID           string       `json:"quizId,omitempty"`
	Title            string       `json:"title,omitempty"`
	TotalQuestions   int          `json:"totalQuestions"`
	CorrectAnswers   int          `json:"correctAnswers"`
	IncorrectAnswers int          `json:"incorrectAnswers"`
	Unanswered       int          `json:"unanswered"`
	Percentage       int          `json:"percentage"`
	TimeTaken        int          `json:"timeTaken"`
	Review           []ReviewItem `json:"review"`
}

// Topic, Chapter, Subject and Course make up the browsable catalog.
type Topic struct {
	ID    string `json:"id" yaml:"id"`
	Title string `json:"title" yaml:"title"`
}

type Chapter struct {
	ID      string   `json:"id" yaml:"id"`
	Title   string   `json:"title" yaml:"title"`
	QuizIDs []string `json:"quiz_ids,omitempty" yaml:"quiz_ids"`
	Topics  []Topic  `json:"topics,omitempty" yaml:"topics"`
}

type Subject struct {
	ID       string    `json:"id" yaml:"id"`
	Title    string    `json:"title" yaml:"title"`
	Chapters []Chapter `json:"chapters,omitempty" yaml:"chapters"`
}

// MockTest is a catalog entry for a timed, formally graded exam.
type MockTest struct {
	ID              string `json:"id" yaml:"id"`
	Title           string `json:"title" yaml:"title"`
	DurationMinutes int    `json:"duration" yaml:"duration"`
	QuestionCount   int    `json:"question_count" yaml:"question_count"`
}

type Course struct {
	ID          string     `json:"id" yaml:"id"`
	Slug        string     `json:"slug" yaml:"slug"`
	Name        string     `json:"name" yaml:"name"`
	Description string     `json:"description,omitempty" yaml:"description"`
	PriceINR    int        `json:"price_inr,omitempty" yaml:"price_inr"`
	Subjects    []Subject  `json:"subjects,omitempty" yaml:"subjects"`
	MockTests   []MockTest `json:"mock_tests,omitempty" yaml:"mock_tests"`
	HasAccess   bool       `json:"has_access" yaml:"-"`
}
