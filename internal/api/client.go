package api

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

	"github.com/abhisek/coursetrack/internal/course"
	"github.com/abhisek/coursetrack/internal/logger"
	"github.com/abhisek/coursetrack/internal/validation"
)

// DefaultTimeout bounds a single request when no http.Client is supplied.
const DefaultTimeout = 15 * time.Second

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 8 << 20

// Client implements Backend over HTTP and JSON.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	log     *logger.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithToken sets the bearer token sent with every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithTimeout sets the per-request timeout of the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(l *logger.Logger) Option {
	return func(c *Client) { c.log = l }
}

// NewClient creates a client for the backend at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse api url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("api url %q: scheme must be http or https", baseURL)
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: DefaultTimeout},
		log:     logger.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) LoadCourse(ctx context.Context, courseID string) (course.Course, error) {
	const op = "load course"

	raw, err := c.do(ctx, op, http.MethodGet, "/api/courses/"+url.PathEscape(courseID)+"/tracking", nil)
	if err != nil {
		return course.Course{}, err
	}

	if err := validateCourseTracking(raw); err != nil {
		return course.Course{}, err
	}

	var resp CourseTrackingResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return course.Course{}, &PayloadError{What: "course payload", Err: err}
	}
	if err := validation.Struct(resp); err != nil {
		return course.Course{}, &PayloadError{What: "course payload", Err: err}
	}

	crs, unknown := ToCourse(resp.Course)
	if len(unknown) > 0 {
		c.log.Debug("unknown lesson types treated as reading", "course", courseID, "types", unknown)
	}
	return crs, nil
}

func (c *Client) MarkLessonCompleted(ctx context.Context, courseID, lessonID string) error {
	req := CompleteLessonRequest{CourseID: courseID, LessonID: lessonID}
	if err := validation.Struct(req); err != nil {
		return &PayloadError{What: "completion request", Err: err}
	}
	_, err := c.do(ctx, "mark lesson completed", http.MethodPost, "/api/progress/lessons/complete", req)
	return err
}

func (c *Client) ReportVideoProgress(ctx context.Context, p VideoProgress) error {
	if p.ContentType == "" {
		p.ContentType = ContentTypeVideo
	}
	if err := validation.Struct(p); err != nil {
		return &PayloadError{What: "video progress", Err: err}
	}
	_, err := c.do(ctx, "report video progress", http.MethodPost, "/api/progress/video", p)
	return err
}

func (c *Client) CheckCompletion(ctx context.Context, courseID string) (CompletionStatus, error) {
	const op = "check completion"

	raw, err := c.do(ctx, op, http.MethodGet, "/api/courses/"+url.PathEscape(courseID)+"/completion", nil)
	if err != nil {
		return CompletionStatus{}, err
	}
	var st CompletionStatus
	if err := json.Unmarshal(raw, &st); err != nil {
		return CompletionStatus{}, &TransportError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return st, nil
}

func (c *Client) GenerateCertificate(ctx context.Context, courseID string) (Certificate, error) {
	const op = "generate certificate"

	req := CertificateRequest{CourseID: courseID}
	if err := validation.Struct(req); err != nil {
		return Certificate{}, &PayloadError{What: "certificate request", Err: err}
	}
	raw, err := c.do(ctx, op, http.MethodPost, "/api/certificates", req)
	if err != nil {
		return Certificate{}, err
	}
	var cert Certificate
	if len(bytes.TrimSpace(raw)) == 0 {
		return cert, nil
	}
	if err := json.Unmarshal(raw, &cert); err != nil {
		return Certificate{}, &TransportError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return cert, nil
}

// do sends one request and returns the body of a 2xx response.
func (c *Client) do(ctx context.Context, op, method, path string, body any) ([]byte, error) {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("%s: marshal request: %w", op, err)
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &TransportError{Op: op, Err: fmt.Errorf("read response: %w", err)}
	}

	c.log.Debug("backend request",
		"op", op,
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"latency_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Op: op, StatusCode: resp.StatusCode, Message: errorMessage(raw)}
	}
	return raw, nil
}

// errorMessage extracts the "error" field of a failure body.
func errorMessage(raw []byte) string {
	var er ErrorResponse
	if err := json.Unmarshal(raw, &er); err != nil {
		return ""
	}
	return er.Error
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}
