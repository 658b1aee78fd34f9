package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"marletmeets/client/internal/model"
)

// TokenSource supplies the bearer credential for outgoing requests. An
// empty token means the request goes out unauthenticated.
type TokenSource interface {
	Token() string
}

// Error is a non-2xx backend response. Code carries the backend's
// {"error": code} body when present.
type Error struct {
	Status int
	Code   string
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api: status %d (%s)", e.Status, e.Code)
	}
	return fmt.Sprintf("api: status %d", e.Status)
}

// AuthFailure reports whether the backend rejected the credential itself.
func (e *Error) AuthFailure() bool {
	return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
}

// Client is the typed HTTP client bundle for the MarletMeets backend.
type Client struct {
	baseURL string
	httpc   *http.Client
	tokens  TokenSource
}

func New(baseURL string, timeout time.Duration, tokens TokenSource) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: timeout},
		tokens:  tokens,
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader *bytes.Buffer
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewBuffer(payload)
	} else {
		reader = &bytes.Buffer{}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errBody struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		return &Error{Status: resp.StatusCode, Code: errBody.Error}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Auth

type AuthResponse struct {
	Token string         `json:"token"`
	User  model.Identity `json:"user"`
}

type StudentSignup struct {
	Email     string   `json:"email" validate:"required,email"`
	Password  string   `json:"password" validate:"required,min=8"`
	FirstName string   `json:"first_name" validate:"required"`
	LastName  string   `json:"last_name" validate:"required"`
	Phone     string   `json:"phone" validate:"required"`
	Address   string   `json:"address" validate:"required"`
	Skills    []string `json:"skills"`
	Languages []string `json:"languages" validate:"min=1"`
}

type SeniorSignup struct {
	Email     string   `json:"email" validate:"required,email"`
	Password  string   `json:"password" validate:"required,min=8"`
	FirstName string   `json:"first_name" validate:"required"`
	LastName  string   `json:"last_name" validate:"required"`
	Phone     string   `json:"phone" validate:"required"`
	Address   string   `json:"address" validate:"required"`
	Needs     []string `json:"needs"`
	Languages []string `json:"languages" validate:"min=1"`
}

func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	payload := map[string]string{"email": email, "password": password}
	var resp AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", payload, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) SignupStudent(ctx context.Context, profile StudentSignup) (*AuthResponse, error) {
	var resp AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/signup/student", profile, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) SignupSenior(ctx context.Context, profile SeniorSignup) (*AuthResponse, error) {
	var resp AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/signup/senior", profile, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", nil, nil)
}

// Student data

type StudentProfileResponse struct {
	Student model.StudentProfile `json:"student"`
}

type MatchesResponse struct {
	Matches []model.Match `json:"matches"`
}

type SelectionsResponse struct {
	Selections      []model.Selection `json:"selections"`
	StudentPhone    string            `json:"student_phone"`
	StudentLocation *model.GeoPoint   `json:"student_location"`
	StudentAddress  string            `json:"student_address"`
}

// MapRecord is one person in the richer map dataset: coordinates when the
// backend has them, otherwise address only.
type MapRecord struct {
	ID        string   `json:"id"`
	FirstName string   `json:"first_name"`
	LastName  string   `json:"last_name"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Address   string   `json:"address,omitempty"`
}

type MapDataResponse struct {
	Student *MapRecord  `json:"student"`
	Seniors []MapRecord `json:"seniors"`
}

func (c *Client) StudentProfile(ctx context.Context) (*StudentProfileResponse, error) {
	var resp StudentProfileResponse
	if err := c.do(ctx, http.MethodGet, "/students/me/profile", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) UpdateStudentProfile(ctx context.Context, profile model.StudentProfile) (*StudentProfileResponse, error) {
	var resp StudentProfileResponse
	if err := c.do(ctx, http.MethodPut, "/students/me/profile", profile, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) StudentMatches(ctx context.Context) (*MatchesResponse, error) {
	var resp MatchesResponse
	if err := c.do(ctx, http.MethodGet, "/students/me/matches", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) StudentSelections(ctx context.Context) (*SelectionsResponse, error) {
	var resp SelectionsResponse
	if err := c.do(ctx, http.MethodGet, "/students/me/selections", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) MapData(ctx context.Context) (*MapDataResponse, error) {
	var resp MapDataResponse
	if err := c.do(ctx, http.MethodGet, "/students/me/map", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) SelectSenior(ctx context.Context, seniorID string) error {
	payload := map[string]string{"senior_id": seniorID}
	return c.do(ctx, http.MethodPost, "/students/me/selections", payload, nil)
}

func (c *Client) DeselectSenior(ctx context.Context, seniorID string) error {
	return c.do(ctx, http.MethodDelete, "/students/me/selections/"+url.PathEscape(seniorID), nil, nil)
}

// Senior data

type NotificationsResponse struct {
	Notifications []model.Notification `json:"notifications"`
	SeniorPhone   string               `json:"senior_phone"`
}

type SeniorProfileResponse struct {
	Senior model.SeniorProfile `json:"senior"`
}

type TasksResponse struct {
	Tasks []model.Task `json:"tasks"`
}

func (c *Client) SeniorNotifications(ctx context.Context) (*NotificationsResponse, error) {
	var resp NotificationsResponse
	if err := c.do(ctx, http.MethodGet, "/seniors/me/notifications", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) SeniorProfile(ctx context.Context) (*SeniorProfileResponse, error) {
	var resp SeniorProfileResponse
	if err := c.do(ctx, http.MethodGet, "/seniors/me/profile", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) UpdateSeniorProfile(ctx context.Context, profile model.SeniorProfile) (*SeniorProfileResponse, error) {
	var resp SeniorProfileResponse
	if err := c.do(ctx, http.MethodPut, "/seniors/me/profile", profile, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) SeniorTasks(ctx context.Context) (*TasksResponse, error) {
	var resp TasksResponse
	if err := c.do(ctx, http.MethodGet, "/seniors/me/tasks", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) CreateSeniorTask(ctx context.Context, text string) error {
	payload := map[string]string{"task_text": text}
	return c.do(ctx, http.MethodPost, "/seniors/me/tasks", payload, nil)
}

func (c *Client) DeleteSeniorTask(ctx context.Context, taskID string) error {
	return c.do(ctx, http.MethodDelete, "/seniors/me/tasks/"+url.PathEscape(taskID), nil, nil)
}

// Admin

// AdminOverview is passed through opaquely; the admin view renders
// whatever the backend returns.
func (c *Client) AdminOverview(ctx context.Context) (json.RawMessage, error) {
	var resp json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/admin/overview", nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}
