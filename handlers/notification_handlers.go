package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"medprep-server/appstate"
	"medprep-server/middleware"
)

// GetNotifications lists the caller's pending notifications.
// GET /api/v1/notifications
func GetNotifications(state *appstate.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, state.Notifications(c.GetString(middleware.ContextUserID)))
	}
}

// DismissNotification removes one notification.
// DELETE /api/v1/notifications/:id
func DismissNotification(state *appstate.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		state.Dispatch(c.GetString(middleware.ContextUserID), appstate.NotificationDismissed{ID: c.Param("id")})
		c.Status(http.StatusNoContent)
	}
}
