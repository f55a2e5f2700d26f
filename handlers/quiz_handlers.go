package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"medprep-server/account"
	"medprep-server/catalog"
	"medprep-server/entitlement"
	"medprep-server/examapi"
	"medprep-server/middleware"
	"medprep-server/models"
	"medprep-server/quiz"
)

const submitTimeout = 30 * time.Second

type startSessionRequest struct {
	Mode      string       `json:"mode" binding:"required"`
	Quiz      *models.Quiz `json:"quiz"`
	AttemptID string       `json:"attempt_id"`
	TestID    string       `json:"test_id"`
	CourseID  string       `json:"course_id"`
	ChapterID string       `json:"chapter_id"`
}

// answerRequest names the option by index or by its letter key.
type answerRequest struct {
	QuestionID  string `json:"question_id" binding:"required"`
	OptionIndex *int   `json:"option_index"`
	OptionKey   string `json:"option_key"`
}

func (r answerRequest) option() (int, bool) {
	if r.OptionIndex != nil {
		return *r.OptionIndex, true
	}
	if r.OptionKey != "" {
		if idx := models.OptionIndex(r.OptionKey); idx >= 0 {
			return idx, true
		}
	}
	return 0, false
}

type jumpRequest struct {
	Index *int `json:"index" binding:"required"`
}

// respondQuizError maps session errors onto HTTP statuses.
func respondQuizError(c *gin.Context, err error) {
	var submitErr *quiz.SubmitError
	switch {
	case errors.Is(err, quiz.ErrEntitlementDenied):
		c.JSON(http.StatusForbidden, gin.H{
			"error":   "Free quiz attempts used up",
			"upgrade": entitlement.GetUpgradeMessage(entitlement.FeatureQuiz),
		})
	case errors.Is(err, quiz.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Quiz session not found"})
	case errors.Is(err, quiz.ErrAlreadySubmitting):
		c.JSON(http.StatusConflict, gin.H{"error": "Submission already in progress"})
	case errors.Is(err, quiz.ErrNotInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": "Quiz is not in progress"})
	case errors.Is(err, quiz.ErrUnknownQuestion), errors.Is(err, quiz.ErrInvalidOption), errors.Is(err, quiz.ErrInvalidIndex):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, quiz.ErrInvalidQuiz):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Quiz has no questions"})
	case errors.As(err, &submitErr):
		c.JSON(http.StatusBadGateway, gin.H{"error": submitErr.Message})
	case examapi.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": examapi.UserMessage(err, "Quiz not found")})
	default:
		c.JSON(http.StatusBadGateway, gin.H{"error": examapi.UserMessage(err, "Failed to load quiz. Please try again.")})
	}
}

// ownedSession returns the session if it belongs to the caller.
func ownedSession(c *gin.Context, mgr *quiz.Manager) (*quiz.Session, bool) {
	s, err := mgr.Get(c.Param("session_id"))
	if err != nil {
		respondQuizError(c, err)
		return nil, false
	}
	if s.User.UserID != c.GetString(middleware.ContextUserID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Quiz session belongs to another user"})
		return nil, false
	}
	return s, true
}

// StartQuizSession opens a direct, attempt-based or mock-test session.
// POST /api/v1/quiz_sessions
func StartQuizSession(acct *account.Service, mgr *quiz.Manager, cat *catalog.Catalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req startSessionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		mode, err := quiz.ParseMode(req.Mode)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		switch {
		case mode == quiz.ModeDirect && req.Quiz == nil:
			c.JSON(http.StatusBadRequest, gin.H{"error": "quiz is required for direct mode"})
			return
		case mode == quiz.ModeAttemptBased && req.AttemptID == "":
			c.JSON(http.StatusBadRequest, gin.H{"error": "attempt_id is required for attempt mode"})
			return
		case mode == quiz.ModeMockTest && req.TestID == "":
			c.JSON(http.StatusBadRequest, gin.H{"error": "test_id is required for mock_test mode"})
			return
		}

		user, ok := currentUser(c, acct)
		if !ok {
			return
		}
		if mode == quiz.ModeMockTest && req.CourseID == "" && cat != nil {
			if course, found := cat.CourseForMockTest(req.TestID); found {
				req.CourseID = course.ID
			}
		}

		s, err := mgr.Start(c.Request.Context(), user, c.GetString(middleware.ContextToken), quiz.StartRequest{
			Mode:      mode,
			Quiz:      req.Quiz,
			AttemptID: req.AttemptID,
			TestID:    req.TestID,
			CourseID:  req.CourseID,
			ChapterID: req.ChapterID,
		})
		if err != nil {
			respondQuizError(c, err)
			return
		}
		c.JSON(http.StatusCreated, s.View())
	}
}

// GetQuizSession returns the current view of a session.
// GET /api/v1/quiz_sessions/:session_id
func GetQuizSession(mgr *quiz.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := ownedSession(c, mgr)
		if !ok {
			return
		}
		s.Touch()
		c.JSON(http.StatusOK, s.View())
	}
}

// AnswerQuestion records or replaces the answer to a question.
// POST /api/v1/quiz_sessions/:session_id/answer
func AnswerQuestion(mgr *quiz.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req answerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		option, valid := req.option()
		if !valid {
			c.JSON(http.StatusBadRequest, gin.H{"error": "option_index or a letter option_key is required"})
			return
		}
		s, ok := ownedSession(c, mgr)
		if !ok {
			return
		}
		if err := s.SelectAnswer(req.QuestionID, option); err != nil {
			respondQuizError(c, err)
			return
		}
		c.JSON(http.StatusOK, s.View())
	}
}

// navigate wraps the parameterless navigation moves.
func navigate(mgr *quiz.Manager, move func(*quiz.Session) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := ownedSession(c, mgr)
		if !ok {
			return
		}
		if err := move(s); err != nil {
			respondQuizError(c, err)
			return
		}
		c.JSON(http.StatusOK, s.View())
	}
}

// NextQuestion moves forward one question.
// POST /api/v1/quiz_sessions/:session_id/next
func NextQuestion(mgr *quiz.Manager) gin.HandlerFunc {
	return navigate(mgr, (*quiz.Session).Next)
}

// PreviousQuestion moves back one question.
// POST /api/v1/quiz_sessions/:session_id/previous
func PreviousQuestion(mgr *quiz.Manager) gin.HandlerFunc {
	return navigate(mgr, (*quiz.Session).Previous)
}

// JumpToQuestion moves to the question at index.
// POST /api/v1/quiz_sessions/:session_id/jump
func JumpToQuestion(mgr *quiz.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req jumpRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		s, ok := ownedSession(c, mgr)
		if !ok {
			return
		}
		if err := s.JumpTo(*req.Index); err != nil {
			respondQuizError(c, err)
			return
		}
		c.JSON(http.StatusOK, s.View())
	}
}

// SubmitQuizSession grades the session through its mode's submission path.
// The submission outlives a dropped client connection.
// POST /api/v1/quiz_sessions/:session_id/submit
func SubmitQuizSession(mgr *quiz.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := ownedSession(c, mgr)
		if !ok {
			return
		}
		ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), submitTimeout)
		defer cancel()
		out, err := s.Submit(ctx)
		if err != nil {
			respondQuizError(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

// CloseQuizSession stops the session's timer and forgets it.
// DELETE /api/v1/quiz_sessions/:session_id
func CloseQuizSession(mgr *quiz.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := ownedSession(c, mgr); !ok {
			return
		}
		if err := mgr.Close(c.Param("session_id")); err != nil {
			respondQuizError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}
