// Package lms is a client for the external learning management system that
// mirrors student accounts created by admissions.
package lms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrNotConfigured indicates the client has no base URL.
var ErrNotConfigured = errors.New("lms client not configured")

// Account is the payload mirrored to the LMS.
type Account struct {
	ExternalID    string `json:"external_id"`
	StudentNumber string `json:"student_number"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Email         string `json:"email"`
	ProgramCode   string `json:"program_code,omitempty"`
}

// APIError is returned when the LMS answers with a non-2xx status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("lms api returned %d: %s", e.StatusCode, e.Body)
}

// Client talks to the LMS REST API with a bearer token.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// Option customises the client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) {
		client.http = c
	}
}

// New constructs a client. An empty baseURL yields a client whose calls return ErrNotConfigured.
func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether the client has somewhere to send requests.
func (c *Client) Configured() bool {
	return c != nil && c.baseURL != ""
}

type createAccountResponse struct {
	ID string `json:"id"`
}

// CreateAccount registers the account and returns the LMS identifier.
func (c *Client) CreateAccount(ctx context.Context, account Account) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}

	payload, err := json.Marshal(account)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/accounts", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("lms request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var decoded createAccountResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", fmt.Errorf("decode lms response: %w", err)
	}
	return decoded.ID, nil
}
