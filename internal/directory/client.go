// Package directory is a client for the Planning Center People API, the
// external system of record for person identity.
package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultTimeout bounds every directory call.
	DefaultTimeout = 10 * time.Second
	// DialTimeout is the connection timeout.
	DialTimeout = 5 * time.Second
	// TLSHandshakeTimeout is the TLS negotiation timeout.
	TLSHandshakeTimeout = 5 * time.Second

	// maxResponseBytes caps how much of a response body is read.
	maxResponseBytes = 1 << 20

	userAgent = "koinonia/1.0"
)

// Errors returned by the client. Callers match them with errors.Is.
var (
	// ErrUnavailable covers network failures, timeouts and server-side faults.
	ErrUnavailable = errors.New("directory unavailable")
	// ErrAuth indicates the directory rejected our credentials.
	ErrAuth = errors.New("directory rejected credentials")
	// ErrConflict indicates the person already exists in the directory.
	ErrConflict = errors.New("directory person already exists")
)

// PersonInput is the payload for creating a directory person.
type PersonInput struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string // optional
}

// Client talks to the People API over HTTP with bearer authentication.
type Client struct {
	baseURL    string
	token      string
	timeout    time.Duration
	httpClient *http.Client
	observer   Observer
}

// Observer receives the outcome of every directory call.
type Observer interface {
	ObserveDirectoryCall(op, outcome string, duration time.Duration)
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithObserver reports call outcomes to o.
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// NewClient creates a directory client for the given base URL
// (e.g. https://api.planningcenteronline.com/people/v2).
func NewClient(baseURL, token string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid directory base URL %q", baseURL)
	}
	if token == "" {
		return nil, errors.New("directory token is required")
	}

	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = NewHTTPClient(c.timeout)
	}
	return c, nil
}

// NewHTTPClient creates an HTTP client with conservative timeouts
// that does not follow redirects.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   DialTimeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   TLSHandshakeTimeout,
			ResponseHeaderTimeout: timeout,
			MaxIdleConns:          20,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       90 * time.Second,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// person is a JSON:API resource object.
type person struct {
	Type       string           `json:"type"`
	ID         string           `json:"id,omitempty"`
	Attributes personAttributes `json:"attributes"`
}

type personAttributes struct {
	FirstName           string `json:"first_name,omitempty"`
	LastName            string `json:"last_name,omitempty"`
	PrimaryEmailAddress string `json:"primary_email_address,omitempty"`
	PrimaryPhoneNumber  string `json:"primary_phone_number,omitempty"`
}

type listResponse struct {
	Data []person `json:"data"`
}

type singleResponse struct {
	Data person `json:"data"`
}

type errorResponse struct {
	Errors []struct {
		Status string `json:"status"`
		Title  string `json:"title"`
		Detail string `json:"detail"`
	} `json:"errors"`
}

// FindByEmail returns the id of the first person whose email matches.
// found is false when the directory has no match.
func (c *Client) FindByEmail(ctx context.Context, email string) (id string, found bool, err error) {
	start := time.Now()
	defer func() { c.observe("find_by_email", err, time.Since(start)) }()

	q := url.Values{}
	q.Set("where[email_address]", email)
	endpoint := c.baseURL + "/people?" + q.Encode()

	var out listResponse
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &out); err != nil {
		return "", false, fmt.Errorf("find person by email: %w", err)
	}

	for _, p := range out.Data {
		if p.ID != "" {
			return p.ID, true, nil
		}
	}
	return "", false, nil
}

// CreatePerson creates a directory person and returns its id.
// ErrConflict means another writer created the person first.
func (c *Client) CreatePerson(ctx context.Context, in PersonInput) (id string, err error) {
	start := time.Now()
	defer func() { c.observe("create_person", err, time.Since(start)) }()

	body := singleResponse{Data: person{
		Type: "Person",
		Attributes: personAttributes{
			FirstName:           in.FirstName,
			LastName:            in.LastName,
			PrimaryEmailAddress: in.Email,
			PrimaryPhoneNumber:  in.Phone,
		},
	}}

	var out singleResponse
	if err := c.do(ctx, http.MethodPost, c.baseURL+"/people", body, &out); err != nil {
		return "", fmt.Errorf("create person: %w", err)
	}
	if out.Data.ID == "" {
		return "", fmt.Errorf("create person: %w: response without id", ErrUnavailable)
	}
	return out.Data.ID, nil
}

// do performs one request under the per-call timeout and decodes a 2xx body into out.
func (c *Client) do(ctx context.Context, method, endpoint string, in, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%w: read response: %v", ErrUnavailable, err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil || len(raw) == 0 {
			return nil
		}
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
		}
		return nil
	}

	return classifyStatus(resp.StatusCode, raw)
}

// classifyStatus maps a non-2xx response to one of the package errors.
func classifyStatus(status int, body []byte) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: HTTP %d", ErrAuth, status)
	case status == http.StatusConflict:
		return fmt.Errorf("%w: HTTP %d", ErrConflict, status)
	case status == http.StatusUnprocessableEntity && mentionsExisting(body):
		return fmt.Errorf("%w: HTTP %d", ErrConflict, status)
	default:
		return fmt.Errorf("%w: HTTP %d", ErrUnavailable, status)
	}
}

// mentionsExisting reports whether a validation error says the record already exists.
func mentionsExisting(body []byte) bool {
	var er errorResponse
	if err := json.Unmarshal(body, &er); err != nil {
		return false
	}
	for _, e := range er.Errors {
		text := strings.ToLower(e.Title + " " + e.Detail)
		if strings.Contains(text, "already") || strings.Contains(text, "taken") {
			return true
		}
	}
	return false
}

func (c *Client) observe(op string, err error, d time.Duration) {
	if c.observer == nil {
		return
	}
	c.observer.ObserveDirectoryCall(op, Outcome(err), d)
}

// Outcome labels an error for metrics and logs.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrAuth):
		return "auth_error"
	case errors.Is(err, ErrUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}
