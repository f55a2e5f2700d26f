package results

import "strings"

// Kind tells the renderer where a result id points.
type Kind int

const (
	KindQuiz Kind = iota
	KindDirect
	KindMockTest
)

const (
	// DirectID addresses the user's most recent client-scored result.
	DirectID       = "direct"
	mockTestSuffix = "-mock-test"
	routePrefix    = "/quiz-results/"
)

// MockTestID is the result id of a graded mock-test attempt.
func MockTestID(attemptID string) string {
	return attemptID + mockTestSuffix
}

// Route is the results screen path for id.
func Route(id string) string {
	return routePrefix + id
}

// ParseID splits a result id into its kind and lookup key. For mock tests the
// key is the attempt id.
func ParseID(id string) (Kind, string) {
	switch {
	case id == DirectID:
		return KindDirect, ""
	case strings.HasSuffix(id, mockTestSuffix) && len(id) > len(mockTestSuffix):
		return KindMockTest, strings.TrimSuffix(id, mockTestSuffix)
	default:
		return KindQuiz, id
	}
}
