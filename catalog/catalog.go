// Package catalog loads the browsable course catalog from a YAML file.
package catalog

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"medprep-server/models"
)

type file struct {
	Courses []models.Course `yaml:"courses"`
}

// Catalog is an immutable, validated set of courses.
type Catalog struct {
	courses []models.Course
	byKey   map[string]int
}

// Load reads and validates the catalog at path.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	return Parse(data)
}

// Parse validates a YAML catalog document.
func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	c := &Catalog{courses: f.Courses, byKey: make(map[string]int)}
	for i, course := range f.Courses {
		if strings.TrimSpace(course.ID) == "" {
			return nil, fmt.Errorf("catalog: course #%d has no id", i+1)
		}
		if _, dup := c.byKey[course.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate course id %q", course.ID)
		}
		c.byKey[course.ID] = i
		if course.Slug != "" {
			if _, dup := c.byKey[course.Slug]; dup {
				return nil, fmt.Errorf("catalog: slug %q collides with another course", course.Slug)
			}
			c.byKey[course.Slug] = i
		}
		if err := validateCourse(course); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func validateCourse(course models.Course) error {
	chapters := make(map[string]bool)
	for _, subject := range course.Subjects {
		for _, ch := range subject.Chapters {
			if ch.ID == "" {
				return fmt.Errorf("catalog: course %q subject %q has a chapter without id", course.ID, subject.ID)
			}
			if chapters[ch.ID] {
				return fmt.Errorf("catalog: course %q has duplicate chapter id %q", course.ID, ch.ID)
			}
			chapters[ch.ID] = true
		}
	}
	for _, mt := range course.MockTests {
		if mt.ID == "" {
			return fmt.Errorf("catalog: course %q has a mock test without id", course.ID)
		}
		if mt.DurationMinutes < 0 {
			return fmt.Errorf("catalog: mock test %q has a negative duration", mt.ID)
		}
	}
	return nil
}

// Courses returns a copy of all courses in file order.
func (c *Catalog) Courses() []models.Course {
	out := make([]models.Course, len(c.courses))
	copy(out, c.courses)
	return out
}

// Find looks a course up by id or slug.
func (c *Catalog) Find(key string) (models.Course, bool) {
	i, ok := c.byKey[key]
	if !ok {
		return models.Course{}, false
	}
	return c.courses[i], true
}

// CourseForMockTest returns the course that lists the mock test.
func (c *Catalog) CourseForMockTest(testID string) (models.Course, bool) {
	for _, course := range c.courses {
		for _, mt := range course.MockTests {
			if mt.ID == testID {
				return course, true
			}
		}
	}
	return models.Course{}, false
}
