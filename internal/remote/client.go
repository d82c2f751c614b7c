// Package remote implements the request/response client for the mail
// service. It performs no retries and holds no state: every call reports a
// classified outcome the reconciler acts on.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// TokenProvider supplies the bearer credential for remote calls. An empty
// token means no session is available and the reconciler skips its pass.
type TokenProvider func() (string, error)

// Outcome classifies a remote call result for the replay protocol.
type Outcome int

const (
	// OutcomeSuccess is a 2xx response.
	OutcomeSuccess Outcome = iota
	// OutcomeRetry covers transport failures, 401/403 and 5xx: the call may
	// succeed later without any change on our side.
	OutcomeRetry
	// OutcomePermanent covers every other client error: blind retry cannot
	// succeed and the queued operation should be dropped.
	OutcomePermanent
)

// String returns a short name for logging
func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeRetry:
		return "retry"
	case OutcomePermanent:
		return "permanent"
	}
	return "unknown"
}

// LabelAction selects the direction of a mail-label patch
type LabelAction string

const (
	LabelActionAdd    LabelAction = "add"
	LabelActionRemove LabelAction = "remove"
)

// CreatedLabel is the server's view of a newly created label
type CreatedLabel struct {
	ID      string `json:"id"`
	AltID   string `json:"_id,omitempty"`
	Name    string `json:"name"`
	OwnerID string `json:"ownerId"`
}

// ServerID returns whichever id field the server populated
func (l *CreatedLabel) ServerID() string {
	if l.ID != "" {
		return l.ID
	}
	return l.AltID
}

// CreatedMail is the server's view of a newly created mail
type CreatedMail struct {
	ID    string `json:"id"`
	AltID string `json:"_id,omitempty"`
}

// ServerID returns whichever id field the server populated
func (m *CreatedMail) ServerID() string {
	if m.ID != "" {
		return m.ID
	}
	return m.AltID
}

// Client defines the remote mail service calls the reconciler replays
// against. Implementations must be stateless between calls.
type Client interface {
	CreateLabel(ctx context.Context, token, name string) (*CreatedLabel, Outcome, error)
	PatchMailLabel(ctx context.Context, token, mailID, label string, action LabelAction) (Outcome, error)
	CreateMail(ctx context.Context, token, to, subject, content string) (*CreatedMail, Outcome, error)
}

// HTTPClient implements Client over the mail service's REST API
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClient creates an HTTPClient for the given API base URL
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// Classify maps an HTTP status code to a replay outcome. Transport errors
// (no status at all) are always OutcomeRetry.
func Classify(status int) Outcome {
	switch {
	case status >= 200 && status < 300:
		return OutcomeSuccess
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return OutcomeRetry
	case status >= 500:
		return OutcomeRetry
	default:
		return OutcomePermanent
	}
}

func (c *HTTPClient) do(ctx context.Context, method, path, token string, body any) (*http.Response, Outcome, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, OutcomePermanent, fmt.Errorf("failed to encode request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, OutcomePermanent, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, OutcomeRetry, fmt.Errorf("request failed: %w", err)
	}
	return resp, Classify(resp.StatusCode), nil
}

// CreateLabel creates a label on the server
func (c *HTTPClient) CreateLabel(ctx context.Context, token, name string) (*CreatedLabel, Outcome, error) {
	resp, outcome, err := c.do(ctx, http.MethodPost, "/api/labels", token, map[string]string{"name": name})
	if err != nil {
		return nil, outcome, err
	}
	defer resp.Body.Close()

	if outcome != OutcomeSuccess {
		return nil, outcome, nil
	}

	var created CreatedLabel
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil && err != io.EOF {
		return nil, OutcomePermanent, fmt.Errorf("failed to decode create label response: %w", err)
	}
	return &created, OutcomeSuccess, nil
}

// PatchMailLabel adds or removes one label on a mail
func (c *HTTPClient) PatchMailLabel(ctx context.Context, token, mailID, label string, action LabelAction) (Outcome, error) {
	body := map[string]string{"label": label}
	if action == LabelActionRemove {
		body["action"] = string(LabelActionRemove)
	}
	resp, outcome, err := c.do(ctx, http.MethodPatch, "/api/mails/"+mailID+"/label", token, body)
	if err != nil {
		return outcome, err
	}
	resp.Body.Close()
	return outcome, nil
}

// CreateMail creates a mail on the server
func (c *HTTPClient) CreateMail(ctx context.Context, token, to, subject, content string) (*CreatedMail, Outcome, error) {
	body := map[string]any{
		"to":      []string{to},
		"subject": subject,
		"content": content,
	}
	resp, outcome, err := c.do(ctx, http.MethodPost, "/api/mails", token, body)
	if err != nil {
		return nil, outcome, err
	}
	defer resp.Body.Close()

	if outcome != OutcomeSuccess {
		return nil, outcome, nil
	}

	var created CreatedMail
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil && err != io.EOF {
		return nil, OutcomePermanent, fmt.Errorf("failed to decode create mail response: %w", err)
	}
	return &created, OutcomeSuccess, nil
}
