package quiz

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"medprep-server/examapi"
	"medprep-server/models"
	"medprep-server/results"
	"medprep-server/store"
	"medprep-server/utils"
)

// API is the part of the exam backend a session needs.
type API interface {
	FetchAttemptDetails(ctx context.Context, token, userID, attemptID string) (*examapi.AttemptDetails, error)
	StartMockTest(ctx context.Context, token, testID, userID string) (*examapi.StartMockTestResponse, error)
	SubmitQuizAttempt(ctx context.Context, token string, req examapi.SubmitAttemptRequest) (*examapi.SubmitAttemptResponse, error)
	SubmitMockTest(ctx context.Context, token, testID string, req examapi.SubmitMockTestRequest) (*examapi.SubmitMockTestResponse, error)
}

// Outcome is a completed submission and where the results screen lives.
type Outcome struct {
	Mode      Mode               `json:"mode"`
	Trigger   Trigger            `json:"trigger"`
	ResultID  string             `json:"result_id"`
	Route     string             `json:"route"`
	AttemptID string             `json:"attempt_id,omitempty"`
	Result    *models.QuizResult `json:"result,omitempty"`
}

type submitter interface {
	submit(ctx context.Context, s *Session, snap snapshot) (Outcome, error)
}

func newSubmitter(mode Mode, api API, kv store.Store) submitter {
	switch mode {
	case ModeAttemptBased:
		return attemptSubmitter{api: api}
	case ModeMockTest:
		return mockTestSubmitter{api: api, kv: kv}
	default:
		return directSubmitter{kv: kv}
	}
}

// directSubmitter scores locally and hands the result to the results screen
// through the store.
type directSubmitter struct {
	kv store.Store
}

func (d directSubmitter) submit(ctx context.Context, s *Session, snap snapshot) (Outcome, error) {
	res := ScoreDirect(s.Quiz, snap.answers, snap.timeTaken)
	if err := store.SetJSON(ctx, d.kv, store.DirectResultKey(s.User.UserID), res, store.ResultTTL); err != nil {
		return Outcome{}, fmt.Errorf("save direct result: %w", err)
	}
	return Outcome{
		ResultID: results.DirectID,
		Route:    results.Route(results.DirectID),
		Result:   &res,
	}, nil
}

// ScoreDirect grades answers (question id -> option index) against the
// embedded answer keys.
func ScoreDirect(q models.Quiz, answers map[string]int, timeTaken int) models.QuizResult {
	res := models.QuizResult{
		QuizID:         q.ID,
		Title:          q.Title,
		TotalQuestions: len(q.Questions),
		TimeTaken:      timeTaken,
		Review:         make([]models.ReviewItem, 0, len(q.Questions)),
	}
	for _, question := range q.Questions {
		item := models.ReviewItem{
			QuestionText:     question.Text,
			Options:          question.Options,
			CorrectAnswerKey: strings.ToLower(question.CorrectAnswerKey),
			Explanation:      question.Explanation,
		}
		idx, answered := answers[question.ID]
		switch {
		case !answered:
			res.Unanswered++
		default:
			item.UserAnswerKey = models.OptionKey(idx)
			item.IsCorrect = item.UserAnswerKey != "" && item.UserAnswerKey == item.CorrectAnswerKey
			if item.IsCorrect {
				res.CorrectAnswers++
			} else {
				res.IncorrectAnswers++
			}
		}
		res.Review = append(res.Review, item)
	}
	res.Percentage = utils.RoundPercent(res.CorrectAnswers, res.TotalQuestions)
	return res
}

type attemptSubmitter struct {
	api API
}

func (a attemptSubmitter) submit(ctx context.Context, s *Session, snap snapshot) (Outcome, error) {
	req := examapi.SubmitAttemptRequest{
		UserID:           s.User.UserID,
		AttemptID:        s.AttemptID,
		TimeTakenSeconds: snap.timeTaken,
		Answers:          answerPayload(s.Quiz.Questions, snap.answers, false),
	}
	resp, err := a.api.SubmitQuizAttempt(ctx, s.token, req)
	if err != nil {
		return Outcome{}, err
	}
	if !resp.Success {
		return Outcome{}, &RejectedError{Message: resp.Message}
	}
	id := firstNonEmpty(resp.ResultID, resp.QuizID, s.AttemptID)
	return Outcome{
		ResultID:  id,
		Route:     results.Route(id),
		AttemptID: s.AttemptID,
	}, nil
}

// mockTestSubmitter submits to the test definition's endpoint; the attempt
// id only names the results screen.
type mockTestSubmitter struct {
	api API
	kv  store.Store
}

func (m mockTestSubmitter) submit(ctx context.Context, s *Session, snap snapshot) (Outcome, error) {
	req := examapi.SubmitMockTestRequest{
		UserID:           s.User.UserID,
		TimeTakenSeconds: snap.timeTaken,
		Answers:          answerPayload(s.Quiz.Questions, snap.answers, true),
	}
	resp, err := m.api.SubmitMockTest(ctx, s.token, s.TestID, req)
	if err != nil {
		return Outcome{}, err
	}
	if !resp.Success {
		return Outcome{}, &RejectedError{Message: resp.Message}
	}
	attemptID := firstNonEmpty(resp.AttemptID(), s.AttemptID)
	if len(resp.Result) > 0 {
		if err := m.kv.Set(ctx, store.MockTestResultKey(s.User.UserID, attemptID), resp.Result, store.ResultTTL); err != nil {
			s.log.Warn("failed to cache mock test result", "attempt_id", attemptID, "error", err)
		}
	}
	out := Outcome{
		ResultID:  results.MockTestID(attemptID),
		Route:     results.Route(results.MockTestID(attemptID)),
		AttemptID: attemptID,
	}
	if res, ok := results.Normalize(resp.Result); ok {
		out.Result = res
	}
	return out, nil
}

// answerPayload lists answered questions in quiz order with their letter keys.
func answerPayload(questions []models.Question, answers map[string]int, withOption bool) []examapi.AnswerSubmission {
	out := make([]examapi.AnswerSubmission, 0, len(answers))
	for _, q := range questions {
		idx, ok := answers[q.ID]
		if !ok {
			continue
		}
		key := models.OptionKey(idx)
		a := examapi.AnswerSubmission{QuestionID: q.ID, SelectedKey: key}
		if withOption {
			a.SelectedOption = key
		}
		out = append(out, a)
	}
	return out
}

func userMessage(err error) string {
	var rejected *RejectedError
	if errors.As(err, &rejected) && rejected.Message != "" {
		return rejected.Message
	}
	return examapi.UserMessage(err, genericSubmitError)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
