// Package examapi is the HTTP client for the upstream exam backend. The
// caller's bearer token is forwarded unchanged on every request.
package examapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"medprep-server/models"
)

// APIError is a non-2xx response from the exam backend.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("exam api: status %d", e.Status)
	}
	return fmt.Sprintf("exam api: status %d: %s", e.Status, e.Message)
}

// UserMessage returns the server-provided message of an APIError, or fallback.
func UserMessage(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

// IsNotFound reports whether err is a 404 from the exam backend.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// FetchProfile loads the caller's profile. The identifier aliases are
// normalized by models.User decoding.
func (c *Client) FetchProfile(ctx context.Context, token string) (*models.User, error) {
	var envelope struct {
		User *models.User `json:"user"`
	}
	raw, err := c.do(ctx, http.MethodGet, "/users/me", token, nil)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.User != nil && envelope.User.UserID != "" {
		return envelope.User, nil
	}
	var user models.User
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	if user.UserID == "" {
		return nil, fmt.Errorf("decode profile: no user identifier in response")
	}
	return &user, nil
}

// StartMockTest allocates an attempt for the test and returns its questions.
// POST /mock-tests/:test_id/start
func (c *Client) StartMockTest(ctx context.Context, token, testID, userID string) (*StartMockTestResponse, error) {
	var resp StartMockTestResponse
	if err := c.doJSON(ctx, http.MethodPost, "/mock-tests/"+url.PathEscape(testID)+"/start", token, userRequest{UserID: userID}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SubmitMockTest grades the running attempt of the test.
// POST /mock-tests/:test_id/submit
func (c *Client) SubmitMockTest(ctx context.Context, token, testID string, req SubmitMockTestRequest) (*SubmitMockTestResponse, error) {
	var resp SubmitMockTestResponse
	if err := c.doJSON(ctx, http.MethodPost, "/mock-tests/"+url.PathEscape(testID)+"/submit", token, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// FetchMockTestResult returns the raw result body of a graded mock-test attempt.
// GET /mock-tests/attempts/:attempt_id/result?userId=
func (c *Client) FetchMockTestResult(ctx context.Context, token, attemptID, userID string) (json.RawMessage, error) {
	path := "/mock-tests/attempts/" + url.PathEscape(attemptID) + "/result?userId=" + url.QueryEscape(userID)
	return c.do(ctx, http.MethodGet, path, token, nil)
}

// SubmitQuizAttempt grades a regular quiz attempt.
// POST /quiz/attempts/:attempt_id/submit
func (c *Client) SubmitQuizAttempt(ctx context.Context, token string, req SubmitAttemptRequest) (*SubmitAttemptResponse, error) {
	var resp SubmitAttemptResponse
	if err := c.doJSON(ctx, http.MethodPost, "/quiz/attempts/"+url.PathEscape(req.AttemptID)+"/submit", token, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// FetchAttemptDetails loads the questions of a regular quiz attempt.
// GET /quiz/attempts/:attempt_id?userId=
func (c *Client) FetchAttemptDetails(ctx context.Context, token, userID, attemptID string) (*AttemptDetails, error) {
	var resp AttemptDetails
	path := "/quiz/attempts/" + url.PathEscape(attemptID) + "?userId=" + url.QueryEscape(userID)
	if err := c.doJSON(ctx, http.MethodGet, path, token, nil, &resp); err != nil {
		return nil, err
	}
	if resp.AttemptID == "" {
		resp.AttemptID = attemptID
	}
	return &resp, nil
}

// FetchQuizResult returns the raw result body of a graded regular quiz.
// GET /quiz/results/:result_id?userId=
func (c *Client) FetchQuizResult(ctx context.Context, token, resultID, userID string) (json.RawMessage, error) {
	path := "/quiz/results/" + url.PathEscape(resultID) + "?userId=" + url.QueryEscape(userID)
	return c.do(ctx, http.MethodGet, path, token, nil)
}

func (c *Client) doJSON(ctx context.Context, method, path, token string, body, out interface{}) error {
	raw, err := c.do(ctx, method, path, token, body)
	if err != nil {
		return err
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path, token string, body interface{}) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s %s: %w", method, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{Status: resp.StatusCode, Message: errorMessage(raw)}
	}
	return raw, nil
}

func errorMessage(raw []byte) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(raw, &body) != nil {
		return ""
	}
	if body.Message != "" {
		return body.Message
	}
	return body.Error
}
