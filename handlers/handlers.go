// Package handlers holds the gin handlers of the HTTP API, the result pages
// and the admin screens.
package handlers

import (
	"errors"
	"html/template"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-contrib/multitemplate"
	"github.com/gin-gonic/gin"

	"medprep-server/account"
	"medprep-server/examapi"
	"medprep-server/middleware"
	"medprep-server/models"
	"medprep-server/utils"
)

// Renderer loads the HTML templates from dir.
func Renderer(dir string) multitemplate.Renderer {
	funcs := template.FuncMap{
		"clock":     utils.FormatClock,
		"optionKey": models.OptionKey,
		"upper":     strings.ToUpper,
		"inc":       func(i int) int { return i + 1 },
	}
	layout := filepath.Join(dir, "layout.html")
	r := multitemplate.NewRenderer()
	r.AddFromFilesFuncs("result", funcs, layout, filepath.Join(dir, "result.html"))
	r.AddFromFilesFuncs("result_not_found", funcs, layout, filepath.Join(dir, "result_not_found.html"))
	r.AddFromFilesFuncs("admin_dashboard", funcs, layout, filepath.Join(dir, "admin_dashboard.html"))
	return r
}

// Healthz reports liveness.
// GET /healthz
func Healthz() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// currentUser loads the caller's profile. It writes the error response itself
// and reports false when the profile is unavailable.
func currentUser(c *gin.Context, acct *account.Service) (*models.User, bool) {
	user, err := acct.Profile(c.Request.Context(), c.GetString(middleware.ContextUserID), c.GetString(middleware.ContextToken))
	if err != nil {
		var apiErr *examapi.APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": examapi.UserMessage(err, "Session expired")})
			return nil, false
		}
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": examapi.UserMessage(err, "Failed to load profile")})
		return nil, false
	}
	return user, true
}
