// Package api implements the service.Service interface against the task
// service's REST/JSON endpoints.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/api/googleapi"

	"tasker/internal/config"
	"tasker/internal/service"
	"tasker/internal/session"
)

// Endpoint paths, relative to the configured base URL.
const (
	pathSignup = "/auth/signup"
	pathLogin  = "/auth/login"
	pathMe     = "/users/me"
	pathTodos  = "/todos/"
	pathCreate = "/todos/create"
)

// RequestIDHeader carries a per-request identifier for server-side tracing.
const RequestIDHeader = "X-Request-ID"

// Client implements service.Service over HTTP.
type Client struct {
	baseURL string
	timeout time.Duration
	http    *http.Client
	session *session.Manager
	logger  *slog.Logger
}

// New creates a client for cfg.APIURL. Every request goes through a
// session.Transport, so the bearer token is attached without call sites
// having to remember it.
func New(cfg *config.Config, sess *session.Manager, logger *slog.Logger) *Client {
	return NewWithHTTPClient(cfg, sess, logger, &http.Client{
		Transport: &session.Transport{Session: sess},
	})
}

// NewWithHTTPClient creates a client with a custom HTTP client (for testing).
// The caller is responsible for installing a session.Transport.
func NewWithHTTPClient(cfg *config.Config, sess *session.Manager, logger *slog.Logger, httpClient *http.Client) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = config.DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.APIURL, "/"),
		timeout: timeout,
		http:    httpClient,
		session: sess,
		logger:  logger,
	}
}

type signupRequest struct {
	Email    string  `json:"email"`
	FullName *string `json:"full_name"`
	Password string  `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
}

type titleRequest struct {
	Title string `json:"title"`
}

// Signup registers a new account.
func (c *Client) Signup(ctx context.Context, creds service.Credentials) (service.User, error) {
	if err := service.ValidateCredentials(creds); err != nil {
		return service.User{}, err
	}

	body := signupRequest{Email: strings.TrimSpace(creds.Email), Password: creds.Password}
	if name := strings.TrimSpace(creds.FullName); name != "" {
		body.FullName = &name
	}

	var user service.User
	if err := c.do(ctx, http.MethodPost, pathSignup, body, &user); err != nil {
		return service.User{}, fmt.Errorf("signup: %w", err)
	}
	return user, nil
}

// Login exchanges credentials for an access token.
func (c *Client) Login(ctx context.Context, creds service.Credentials) (string, error) {
	if err := service.ValidateCredentials(creds); err != nil {
		return "", err
	}

	var resp loginResponse
	body := loginRequest{Email: strings.TrimSpace(creds.Email), Password: creds.Password}
	if err := c.do(ctx, http.MethodPost, pathLogin, body, &resp); err != nil {
		return "", fmt.Errorf("login: %w", err)
	}
	if resp.AccessToken == "" {
		return "", fmt.Errorf("login: %w: response has no access_token", service.ErrNetwork)
	}
	return resp.AccessToken, nil
}

// Me returns the authenticated user's profile.
func (c *Client) Me(ctx context.Context) (service.User, error) {
	if err := c.requireSession(); err != nil {
		return service.User{}, err
	}
	var user service.User
	if err := c.do(ctx, http.MethodGet, pathMe, nil, &user); err != nil {
		return service.User{}, fmt.Errorf("load profile: %w", err)
	}
	return user, nil
}

// ListTasks returns all tasks in server order.
func (c *Client) ListTasks(ctx context.Context) ([]service.Task, error) {
	if err := c.requireSession(); err != nil {
		return nil, err
	}
	var tasks []service.Task
	if err := c.do(ctx, http.MethodGet, pathTodos, nil, &tasks); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	if tasks == nil {
		tasks = []service.Task{}
	}
	return tasks, nil
}

// CreateTask creates a task with a trimmed title.
func (c *Client) CreateTask(ctx context.Context, title string) (service.Task, error) {
	title, err := service.NormalizeTitle(title)
	if err != nil {
		return service.Task{}, err
	}
	if err := c.requireSession(); err != nil {
		return service.Task{}, err
	}
	var task service.Task
	if err := c.do(ctx, http.MethodPost, pathCreate, titleRequest{Title: title}, &task); err != nil {
		return service.Task{}, fmt.Errorf("create task: %w", err)
	}
	return task, nil
}

// CompleteTask marks a task as completed. The request is sent even if the
// task is already completed; the server returns its current state.
func (c *Client) CompleteTask(ctx context.Context, id int64) (service.Task, error) {
	if err := c.requireSession(); err != nil {
		return service.Task{}, err
	}
	var task service.Task
	if err := c.do(ctx, http.MethodPatch, taskPath(id, "complete"), nil, &task); err != nil {
		return service.Task{}, fmt.Errorf("complete task %d: %w", id, err)
	}
	return task, nil
}

// EditTask replaces a task's title.
func (c *Client) EditTask(ctx context.Context, id int64, title string) (service.Task, error) {
	title, err := service.NormalizeTitle(title)
	if err != nil {
		return service.Task{}, err
	}
	if err := c.requireSession(); err != nil {
		return service.Task{}, err
	}
	var task service.Task
	if err := c.do(ctx, http.MethodPatch, taskPath(id, "edit"), titleRequest{Title: title}, &task); err != nil {
		return service.Task{}, fmt.Errorf("edit task %d: %w", id, err)
	}
	return task, nil
}

func taskPath(id int64, action string) string {
	return "/todos/" + strconv.FormatInt(id, 10) + "/" + action
}

func (c *Client) requireSession() error {
	if c.session == nil || c.session.State() != session.Authenticated {
		return fmt.Errorf("%w: not logged in", service.ErrAuth)
	}
	return nil
}

// do sends one request and decodes a 2xx JSON response into out.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	requestID := uuid.NewString()
	req.Header.Set(RequestIDHeader, requestID)

	start := time.Now()
	res, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("request failed",
			"method", method,
			"path", path,
			"request_id", requestID,
			"error", err,
		)
		return wrapTransportError(err)
	}
	defer googleapi.CloseBody(res)

	c.logger.Debug("request",
		"method", method,
		"path", path,
		"status", res.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
		"request_id", requestID,
	)

	if err := googleapi.CheckResponse(res); err != nil {
		return wrapError(err)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", service.ErrNetwork, err)
	}
	return nil
}
