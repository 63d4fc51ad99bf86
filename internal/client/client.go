// Package client is a Go client for the task manager API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"taskmanager/internal/model"
	"taskmanager/internal/repository"
	"taskmanager/internal/service"

	"github.com/google/uuid"
)

// ErrSessionExpired is returned when the server rejects the session token.
// The session has been cleared by the time the caller sees it.
var ErrSessionExpired = errors.New("session expired")

// APIError is any non-2xx answer other than an expired session.
type APIError struct {
	Status               int
	Message              string
	Fields               map[string][]string
	RequiresVerification bool
	UserID               uuid.UUID
}

func (e *APIError) Error() string {
	if len(e.Fields) > 0 {
		names := make([]string, 0, len(e.Fields))
		for f := range e.Fields {
			names = append(names, f)
		}
		return fmt.Sprintf("api: %d %s (%s)", e.Status, e.Message, strings.Join(names, ", "))
	}
	return fmt.Sprintf("api: %d %s", e.Status, e.Message)
}

type Client struct {
	baseURL string
	http    *http.Client
	session *Session
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		session: &Session{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Session() *Session {
	return c.session
}

type SignupInput struct {
	Name                 string `json:"name"`
	Email                string `json:"email"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
}

type SignupResult struct {
	Message              string      `json:"message"`
	User                 *model.User `json:"user"`
	RequiresVerification bool        `json:"requires_verification"`
}

type authResult struct {
	Message   string      `json:"message"`
	User      *model.User `json:"user"`
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// Signup creates an account. It never signs the client in; the account has
// to be verified first.
func (c *Client) Signup(ctx context.Context, in SignupInput) (*SignupResult, error) {
	if in.PasswordConfirmation == "" {
		in.PasswordConfirmation = in.Password
	}
	var out SignupResult
	if err := c.do(ctx, http.MethodPost, "/auth/signup", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Login replaces the session with a fresh token.
func (c *Client) Login(ctx context.Context, email, password string) (*model.User, error) {
	var out authResult
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", body, &out); err != nil {
		return nil, err
	}
	c.session.set(out.Token, out.User, out.ExpiresAt)
	return out.User, nil
}

// VerifyEmail follows a verification link and signs the client in.
func (c *Client) VerifyEmail(ctx context.Context, userID uuid.UUID, token string) (*model.User, error) {
	q := url.Values{}
	q.Set("id", userID.String())
	q.Set("token", token)

	var out authResult
	if err := c.do(ctx, http.MethodGet, "/auth/verify-email?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	c.session.set(out.Token, out.User, out.ExpiresAt)
	return out.User, nil
}

func (c *Client) ResendVerification(ctx context.Context, email string) error {
	return c.do(ctx, http.MethodPost, "/auth/resend-verification", map[string]string{"email": email}, nil)
}

// Logout revokes the token on the server. The session is cleared even if the
// server could not be reached.
func (c *Client) Logout(ctx context.Context) error {
	defer c.session.Clear()
	if !c.session.Authenticated() {
		return nil
	}
	err := c.do(ctx, http.MethodPost, "/auth/logout", nil, nil)
	if errors.Is(err, ErrSessionExpired) {
		return nil
	}
	return err
}

// Profile reloads the signed-in user.
func (c *Client) Profile(ctx context.Context) (*model.User, error) {
	var out struct {
		User *model.User `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/auth/profile", nil, &out); err != nil {
		return nil, err
	}
	c.session.setUser(out.User)
	return out.User, nil
}

// TaskFilter mirrors the listing query parameters. Zero values are omitted.
type TaskFilter struct {
	Search      string
	Status      model.TaskStatus
	DueDateFrom *model.Date
	DueDateTo   *model.Date
	Tags        []string
	SortBy      string
	SortOrder   string
	Page        int
	PerPage     int

	// Admin listing only.
	UserID        *uuid.UUID
	DueDateFilter string
}

func (f TaskFilter) values() url.Values {
	q := url.Values{}
	setIf := func(k, v string) {
		if v != "" {
			q.Set(k, v)
		}
	}
	setIf("search", f.Search)
	setIf("status", string(f.Status))
	if f.DueDateFrom != nil {
		q.Set("due_date_from", f.DueDateFrom.String())
	}
	if f.DueDateTo != nil {
		q.Set("due_date_to", f.DueDateTo.String())
	}
	for _, t := range f.Tags {
		q.Add("tags[]", t)
	}
	setIf("sort_by", f.SortBy)
	setIf("sort_order", f.SortOrder)
	if f.Page > 0 {
		q.Set("page", strconv.Itoa(f.Page))
	}
	if f.PerPage > 0 {
		q.Set("per_page", strconv.Itoa(f.PerPage))
	}
	if f.UserID != nil {
		q.Set("user_id", f.UserID.String())
	}
	setIf("due_date_filter", f.DueDateFilter)
	return q
}

func withQuery(path string, q url.Values) string {
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}

func (c *Client) ListTasks(ctx context.Context, f TaskFilter) (*repository.Page[model.Task], error) {
	var out repository.Page[model.Task]
	if err := c.do(ctx, http.MethodGet, withQuery("/tasks", f.values()), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type TaskInput struct {
	Title       string           `json:"title"`
	Description *string          `json:"description,omitempty"`
	Status      model.TaskStatus `json:"status,omitempty"`
	DueDate     *model.Date      `json:"due_date,omitempty"`
	Tags        []string         `json:"tags,omitempty"`
}

type taskEnvelope struct {
	Message string      `json:"message"`
	Task    *model.Task `json:"task"`
}

func (c *Client) CreateTask(ctx context.Context, in TaskInput) (*model.Task, error) {
	var out taskEnvelope
	if err := c.do(ctx, http.MethodPost, "/tasks", in, &out); err != nil {
		return nil, err
	}
	return out.Task, nil
}

func (c *Client) GetTask(ctx context.Context, id uuid.UUID) (*model.Task, error) {
	var out taskEnvelope
	if err := c.do(ctx, http.MethodGet, "/tasks/"+id.String(), nil, &out); err != nil {
		return nil, err
	}
	return out.Task, nil
}

// TaskPatch lists the fields to change. A nil map value clears the field
// (description, due_date); absent keys are left alone.
type TaskPatch map[string]any

func (c *Client) UpdateTask(ctx context.Context, id uuid.UUID, patch TaskPatch) (*model.Task, error) {
	var out taskEnvelope
	if err := c.do(ctx, http.MethodPatch, "/tasks/"+id.String(), patch, &out); err != nil {
		return nil, err
	}
	return out.Task, nil
}

func (c *Client) DeleteTask(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/tasks/"+id.String(), nil, nil)
}

func (c *Client) Dashboard(ctx context.Context) (*service.Dashboard, error) {
	var out service.Dashboard
	if err := c.do(ctx, http.MethodGet, "/admin/dashboard", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UserFilter mirrors the admin user listing parameters.
type UserFilter struct {
	Search    string
	Role      model.Role
	Verified  *bool
	SortBy    string
	SortOrder string
	Page      int
	PerPage   int
}

func (c *Client) ListUsers(ctx context.Context, f UserFilter) (*repository.Page[model.User], error) {
	q := url.Values{}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	if f.Role != "" {
		q.Set("role", string(f.Role))
	}
	if f.Verified != nil {
		q.Set("verified", map[bool]string{true: "1", false: "0"}[*f.Verified])
	}
	if f.SortBy != "" {
		q.Set("sort_by", f.SortBy)
	}
	if f.SortOrder != "" {
		q.Set("sort_order", f.SortOrder)
	}
	if f.Page > 0 {
		q.Set("page", strconv.Itoa(f.Page))
	}
	if f.PerPage > 0 {
		q.Set("per_page", strconv.Itoa(f.PerPage))
	}

	var out repository.Page[model.User]
	if err := c.do(ctx, http.MethodGet, withQuery("/admin/users", q), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) AdminListTasks(ctx context.Context, f TaskFilter) (*repository.Page[model.Task], error) {
	var out repository.Page[model.Task]
	if err := c.do(ctx, http.MethodGet, withQuery("/admin/tasks", f.values()), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type errorBody struct {
	Error                string              `json:"error"`
	Errors               map[string][]string `json:"errors"`
	RequiresVerification bool                `json:"requires_verification"`
	UserID               uuid.UUID           `json:"user_id"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	token := c.session.Token()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized && token != "" {
		c.session.Clear()
		return ErrSessionExpired
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var eb errorBody
		raw, _ := io.ReadAll(resp.Body)
		if json.Unmarshal(raw, &eb) != nil || eb.Error == "" {
			eb.Error = strings.TrimSpace(string(raw))
		}
		return &APIError{
			Status:               resp.StatusCode,
			Message:              eb.Error,
			Fields:               eb.Errors,
			RequiresVerification: eb.RequiresVerification,
			UserID:               eb.UserID,
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
