package entitlement

import (
	"context"

	"medprep-server/models"
)

// Feature names a gated capability.
type Feature string

const (
	FeatureQuiz         Feature = "quiz"
	FeatureFullNotes    Feature = "full_notes"
	FeatureCourseAccess Feature = "course_access"
)

// UpgradeMessage is the copy shown when a gated feature is denied.
type UpgradeMessage struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	CTA         string `json:"cta"`
}

var upgradeMessages = map[Feature]UpgradeMessage{
	FeatureQuiz: {
		Title:       "Quiz limit reached",
		Description: "You have used your free quiz attempts. Upgrade to practice without limits.",
		CTA:         "Upgrade to continue",
	},
	FeatureFullNotes: {
		Title:       "Unlock full notes",
		Description: "You are viewing sample notes. Subscribe to read the complete notes for every chapter.",
		CTA:         "View plans",
	},
	FeatureCourseAccess: {
		Title:       "Course not included",
		Description: "Your current plan does not include this course. Upgrade to get access.",
		CTA:         "Get access",
	},
}

var defaultUpgradeMessage = UpgradeMessage{
	Title:       "Upgrade your plan",
	Description: "Subscribe to unlock every course, quiz and mock test.",
	CTA:         "View plans",
}

// GetUpgradeMessage returns the copy for feature, falling back to a generic message.
func GetUpgradeMessage(feature Feature) UpgradeMessage {
	if msg, ok := upgradeMessages[feature]; ok {
		return msg
	}
	return defaultUpgradeMessage
}

// ShouldShowUpgradePrompt reports whether the feature is currently denied to the user.
// courseID is only consulted for course-scoped features.
func (e *Engine) ShouldShowUpgradePrompt(ctx context.Context, user *models.User, feature Feature, courseID string) bool {
	if user == nil {
		return true
	}
	switch feature {
	case FeatureQuiz:
		return !e.CanAttemptQuiz(ctx, user, courseID)
	case FeatureFullNotes:
		return !CanViewFullNotes(user, courseID)
	case FeatureCourseAccess:
		return !CanAccessCourse(user, courseID)
	default:
		return !user.HasActiveSubscription
	}
}
