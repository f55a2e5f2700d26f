package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"medprep-server/account"
	"medprep-server/entitlement"
	"medprep-server/examapi"
	"medprep-server/middleware"
	"medprep-server/models"
	"medprep-server/quiz"
)

type profileResponse struct {
	User                  *models.User          `json:"user"`
	RemainingQuizAttempts entitlement.Remaining `json:"remaining_quiz_attempts"`
	HasExceededQuizLimit  bool                  `json:"has_exceeded_quiz_limit"`
	FreeAttemptLimit      int                   `json:"free_attempt_limit"`
}

func newProfileResponse(c *gin.Context, ent *entitlement.Engine, user *models.User) profileResponse {
	ctx := c.Request.Context()
	return profileResponse{
		User:                  user,
		RemainingQuizAttempts: ent.GetRemainingQuizAttempts(ctx, user),
		HasExceededQuizLimit:  ent.HasExceededQuizLimit(ctx, user),
		FreeAttemptLimit:      entitlement.FreeAttemptLimit,
	}
}

// GetProfile returns the normalized user with an entitlement summary.
// GET /api/v1/profile
func GetProfile(acct *account.Service, ent *entitlement.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c, acct)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, newProfileResponse(c, ent, user))
	}
}

// RefreshProfile reloads the profile from the exam backend, e.g. after a payment.
// POST /api/v1/profile/refresh
func RefreshProfile(acct *account.Service, ent *entitlement.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := acct.Refresh(c.Request.Context(), c.GetString(middleware.ContextUserID), c.GetString(middleware.ContextToken))
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": examapi.UserMessage(err, "Failed to refresh profile")})
			return
		}
		c.JSON(http.StatusOK, newProfileResponse(c, ent, user))
	}
}

// GetCourseEntitlement reports what the caller may do in a course.
// GET /api/v1/entitlements/courses/:course_id
func GetCourseEntitlement(acct *account.Service, ent *entitlement.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c, acct)
		if !ok {
			return
		}
		courseID := c.Param("course_id")
		ctx := c.Request.Context()
		resp := gin.H{
			"course_id":           courseID,
			"can_access":          entitlement.CanAccessCourse(user, courseID),
			"can_attempt_quiz":    ent.CanAttemptQuiz(ctx, user, courseID),
			"can_view_full_notes": entitlement.CanViewFullNotes(user, courseID),
			"note_type":           entitlement.GetNoteType(user, courseID),
			"remaining_attempts":  ent.GetRemainingQuizAttempts(ctx, user),
		}
		if ent.ShouldShowUpgradePrompt(ctx, user, entitlement.FeatureCourseAccess, courseID) {
			resp["upgrade"] = entitlement.GetUpgradeMessage(entitlement.FeatureCourseAccess)
		}
		c.JSON(http.StatusOK, resp)
	}
}

// GetUpgradePrompt returns the upgrade copy for a feature and whether to show it.
// GET /api/v1/entitlements/upgrade/:feature?course_id=
func GetUpgradePrompt(acct *account.Service, ent *entitlement.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c, acct)
		if !ok {
			return
		}
		feature := entitlement.Feature(c.Param("feature"))
		c.JSON(http.StatusOK, gin.H{
			"feature":     feature,
			"show_prompt": ent.ShouldShowUpgradePrompt(c.Request.Context(), user, feature, c.Query("course_id")),
			"message":     entitlement.GetUpgradeMessage(feature),
		})
	}
}

// Logout drops the cached profile and notifications and closes the caller's live sessions.
// POST /api/v1/logout
func Logout(acct *account.Service, mgr *quiz.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString(middleware.ContextUserID)
		acct.Forget(userID)
		closed := mgr.CloseUser(userID)
		c.JSON(http.StatusOK, gin.H{"message": "Logged out", "closed_sessions": closed})
	}
}
