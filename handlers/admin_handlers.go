package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"medprep-server/db"
	"medprep-server/entitlement"
	"medprep-server/logger"
	"medprep-server/middleware"
	"medprep-server/quiz"
)

const recentEventLimit = 20

// AdminDashboard renders live sessions and recent session events.
// GET /admin/dashboard
func AdminDashboard(mgr *quiz.Manager, events *db.EventLog, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		recent, err := events.RecentSessionEvents(c.Request.Context(), recentEventLimit)
		if err != nil {
			log.Error("failed to fetch recent session events", "error", err)
		}
		c.HTML(http.StatusOK, "admin_dashboard", gin.H{
			"Title":        "MedPrep Admin Dashboard",
			"Sessions":     mgr.List(),
			"RecentEvents": recent,
			"UserID":       c.GetString(middleware.ContextUserID),
		})
	}
}

// AdminListQuizSessions lists live sessions with recent events.
// GET /admin/quiz_sessions
func AdminListQuizSessions(mgr *quiz.Manager, events *db.EventLog, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		recent, err := events.RecentSessionEvents(c.Request.Context(), recentEventLimit)
		if err != nil {
			log.Error("failed to fetch recent session events", "error", err)
			recent = []db.SessionEvent{}
		}
		c.JSON(http.StatusOK, gin.H{
			"sessions":      mgr.List(),
			"recent_events": recent,
		})
	}
}

// AdminResetQuizAttempts clears a user's free-tier attempt counter.
// POST /admin/users/:user_id/quiz_attempts/reset
func AdminResetQuizAttempts(ent *entitlement.Engine, events *db.EventLog, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Param("user_id")
		if err := ent.ResetQuizAttempts(c.Request.Context(), userID); err != nil {
			log.Error("failed to reset quiz attempts", "user_id", userID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reset quiz attempts"})
			return
		}
		actor := c.GetString(middleware.ContextUserID)
		events.LogSessionEvent(c.Request.Context(), userID, "quiz_attempts_reset", userID, fmt.Sprintf("by %s", actor))
		log.Info("quiz attempts reset", "user_id", userID, "actor", actor)
		c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("Quiz attempts reset for %s", userID)})
	}
}
