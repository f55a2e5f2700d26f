package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"medprep-server/logger"
	"medprep-server/middleware"
	"medprep-server/results"
)

// GetResult returns the normalized result behind a result id.
// GET /api/v1/results/:result_id
func GetResult(loader *results.Loader, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("result_id")
		res, err := loader.Load(c.Request.Context(), c.GetString(middleware.ContextUserID), c.GetString(middleware.ContextToken), id)
		if errors.Is(err, results.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Results not found"})
			return
		}
		if err != nil {
			log.Error("failed to load result", "result_id", id, "error", err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to load results"})
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

// ShowResultPage renders the results screen.
// GET /quiz-results/:result_id
func ShowResultPage(loader *results.Loader, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("result_id")
		kind, _ := results.ParseID(id)
		res, err := loader.Load(c.Request.Context(), c.GetString(middleware.ContextUserID), c.GetString(middleware.ContextToken), id)
		if err != nil {
			status := http.StatusNotFound
			if !errors.Is(err, results.ErrNotFound) {
				log.Error("failed to load result page", "result_id", id, "error", err)
				status = http.StatusBadGateway
			}
			c.HTML(status, "result_not_found", gin.H{
				"Title":    "Results not found",
				"ResultID": id,
			})
			return
		}
		c.HTML(http.StatusOK, "result", gin.H{
			"Title":      res.Title,
			"ResultID":   id,
			"IsMockTest": kind == results.KindMockTest,
			"Result":     res,
		})
	}
}
