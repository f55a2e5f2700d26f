package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"medprep-server/account"
	"medprep-server/catalog"
	"medprep-server/entitlement"
	"medprep-server/models"
)

func hasCourseAccess(user *models.User, course models.Course) bool {
	if entitlement.CanAccessCourse(user, course.ID) {
		return true
	}
	return course.Slug != "" && entitlement.CanAccessCourse(user, course.Slug)
}

// GetCourses lists the catalog with the caller's access to each course.
// GET /api/v1/courses
func GetCourses(acct *account.Service, cat *catalog.Catalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c, acct)
		if !ok {
			return
		}
		courses := cat.Courses()
		for i := range courses {
			courses[i].HasAccess = hasCourseAccess(user, courses[i])
		}
		c.JSON(http.StatusOK, courses)
	}
}

// GetCourse returns one course by id or slug.
// GET /api/v1/courses/:course_id
func GetCourse(acct *account.Service, cat *catalog.Catalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c, acct)
		if !ok {
			return
		}
		course, found := cat.Find(c.Param("course_id"))
		if !found {
			c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("Course not found: %s", c.Param("course_id"))})
			return
		}
		course.HasAccess = hasCourseAccess(user, course)
		c.JSON(http.StatusOK, gin.H{
			"course":    course,
			"note_type": entitlement.GetNoteType(user, course.ID),
		})
	}
}
