package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"marletmeets/client/internal/api"
	"marletmeets/client/internal/bus"
	"marletmeets/client/internal/config"
	"marletmeets/client/internal/dashboard"
	"marletmeets/client/internal/guard"
	"marletmeets/client/internal/model"
	"marletmeets/client/internal/session"
)

// landing is where guarded routes send unauthorized clients.
const landing = "/"

// Backend is the slice of the API client the gateway forwards to.
type Backend interface {
	StudentProfile(ctx context.Context) (*api.StudentProfileResponse, error)
	UpdateStudentProfile(ctx context.Context, profile model.StudentProfile) (*api.StudentProfileResponse, error)
	StudentMatches(ctx context.Context) (*api.MatchesResponse, error)
	SelectSenior(ctx context.Context, seniorID string) error
	DeselectSenior(ctx context.Context, seniorID string) error
	SeniorProfile(ctx context.Context) (*api.SeniorProfileResponse, error)
	UpdateSeniorProfile(ctx context.Context, profile model.SeniorProfile) (*api.SeniorProfileResponse, error)
	SeniorTasks(ctx context.Context) (*api.TasksResponse, error)
	CreateSeniorTask(ctx context.Context, text string) error
	DeleteSeniorTask(ctx context.Context, taskID string) error
	AdminOverview(ctx context.Context) (json.RawMessage, error)
}

// Server is the local gateway standing in for the view layer: it exposes
// the session, the guarded dashboard snapshots, and the actions that
// drive the selection-changed broadcast.
type Server struct {
	cfg     config.Config
	store   *session.Store
	backend Backend
	manager *dashboard.Manager
	bus     *bus.Bus
}

func NewServer(cfg config.Config, store *session.Store, backend Backend, manager *dashboard.Manager, b *bus.Bus) *Server {
	return &Server{cfg: cfg, store: store, backend: backend, manager: manager, bus: b}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/session", s.handleGetSession)
	r.Post("/session/login", s.handleLogin)
	r.Post("/session/signup/{role}", s.handleSignup)
	r.Post("/session/logout", s.handleLogout)

	studentOnly := guard.Middleware(s.store, landing, model.RoleStudent)
	seniorOnly := guard.Middleware(s.store, landing, model.RoleSenior)
	adminOnly := guard.Middleware(s.store, landing, model.RoleAdmin)
	dashboardRoles := guard.Middleware(s.store, landing, model.RoleStudent, model.RoleSenior)

	r.With(dashboardRoles).Get("/dashboard", s.handleDashboard)

	r.With(studentOnly).Get("/student/profile", s.handleStudentProfile)
	r.With(studentOnly).Put("/student/profile", s.handleUpdateStudentProfile)
	r.With(studentOnly).Get("/student/matches", s.handleMatches)
	r.With(studentOnly).Post("/selections", s.handleSelect)
	r.With(studentOnly).Delete("/selections/{seniorID}", s.handleDeselect)

	r.With(seniorOnly).Get("/senior/profile", s.handleSeniorProfile)
	r.With(seniorOnly).Put("/senior/profile", s.handleUpdateSeniorProfile)
	r.With(seniorOnly).Get("/senior/tasks", s.handleTasks)
	r.With(seniorOnly).Post("/senior/tasks", s.handleCreateTask)
	r.With(seniorOnly).Delete("/senior/tasks/{taskID}", s.handleDeleteTask)

	r.With(adminOnly).Get("/admin/overview", s.handleAdminOverview)

	return r
}

// Session

type sessionResponse struct {
	State string          `json:"state"`
	User  *model.Identity `json:"user,omitempty"`
}

func (s *Server) handleGetSession(w http.ResponseWriter, _ *http.Request) {
	snap := s.store.Snapshot()
	writeJSON(w, http.StatusOK, sessionResponse{State: snap.State.String(), User: snap.Identity})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body")
		return
	}
	identity, err := s.store.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeAuthError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"user": identity})
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var identity *model.Identity
	var err error
	switch chi.URLParam(r, "role") {
	case "student":
		var profile api.StudentSignup
		if decodeErr := decodeJSON(r, &profile); decodeErr != nil {
			writeError(w, http.StatusBadRequest, "invalid_body")
			return
		}
		identity, err = s.store.SignupStudent(r.Context(), profile)
	case "senior":
		var profile api.SeniorSignup
		if decodeErr := decodeJSON(r, &profile); decodeErr != nil {
			writeError(w, http.StatusBadRequest, "invalid_body")
			return
		}
		identity, err = s.store.SignupSenior(r.Context(), profile)
	default:
		writeError(w, http.StatusNotFound, "unknown_role")
		return
	}
	if err != nil {
		var invalid validator.ValidationErrors
		if errors.As(err, &invalid) {
			writeError(w, http.StatusBadRequest, "invalid_profile")
			return
		}
		writeAuthError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"user": identity})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.store.Logout(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// Dashboard

func (s *Server) handleDashboard(w http.ResponseWriter, _ *http.Request) {
	mount := s.manager.Current()
	if mount == nil {
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusServiceUnavailable, "dashboard_not_ready")
		return
	}
	writeJSON(w, http.StatusOK, mount.Snapshot())
}

// Student actions

func (s *Server) handleStudentProfile(w http.ResponseWriter, r *http.Request) {
	resp, err := s.backend.StudentProfile(r.Context())
	if err != nil {
		writeBackendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUpdateStudentProfile(w http.ResponseWriter, r *http.Request) {
	var profile model.StudentProfile
	if err := decodeJSON(r, &profile); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body")
		return
	}
	resp, err := s.backend.UpdateStudentProfile(r.Context(), profile)
	if err != nil {
		writeBackendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMatches(w http.ResponseWriter, r *http.Request) {
	resp, err := s.backend.StudentMatches(r.Context())
	if err != nil {
		writeBackendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type selectRequest struct {
	SeniorID string `json:"senior_id"`
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if err := decodeJSON(r, &req); err != nil || req.SeniorID == "" {
		writeError(w, http.StatusBadRequest, "invalid_body")
		return
	}
	if err := s.backend.SelectSenior(r.Context(), req.SeniorID); err != nil {
		writeBackendError(w, err)
		return
	}
	s.bus.Publish()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeselect(w http.ResponseWriter, r *http.Request) {
	if err := s.backend.DeselectSenior(r.Context(), chi.URLParam(r, "seniorID")); err != nil {
		writeBackendError(w, err)
		return
	}
	s.bus.Publish()
	w.WriteHeader(http.StatusNoContent)
}

// Senior actions

func (s *Server) handleSeniorProfile(w http.ResponseWriter, r *http.Request) {
	resp, err := s.backend.SeniorProfile(r.Context())
	if err != nil {
		writeBackendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUpdateSeniorProfile(w http.ResponseWriter, r *http.Request) {
	var profile model.SeniorProfile
	if err := decodeJSON(r, &profile); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body")
		return
	}
	resp, err := s.backend.UpdateSeniorProfile(r.Context(), profile)
	if err != nil {
		writeBackendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request) {
	resp, err := s.backend.SeniorTasks(r.Context())
	if err != nil {
		writeBackendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type taskRequest struct {
	TaskText string `json:"task_text"`
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req taskRequest
	if err := decodeJSON(r, &req); err != nil || req.TaskText == "" {
		writeError(w, http.StatusBadRequest, "invalid_body")
		return
	}
	if err := s.backend.CreateSeniorTask(r.Context(), req.TaskText); err != nil {
		writeBackendError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	if err := s.backend.DeleteSeniorTask(r.Context(), chi.URLParam(r, "taskID")); err != nil {
		writeBackendError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Admin

func (s *Server) handleAdminOverview(w http.ResponseWriter, r *http.Request) {
	resp, err := s.backend.AdminOverview(r.Context())
	if err != nil {
		writeBackendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Helpers

// writeAuthError maps a failed credential exchange: auth rejections come
// back as the backend judged them, anything else is a transport problem.
func writeAuthError(w http.ResponseWriter, err error) {
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		code := apiErr.Code
		if code == "" {
			code = "auth_failed"
		}
		writeError(w, apiErr.Status, code)
		return
	}
	if errors.Is(err, session.ErrBadAuthResponse) {
		writeError(w, http.StatusBadGateway, "bad_auth_response")
		return
	}
	writeError(w, http.StatusBadGateway, "backend_unavailable")
}

func writeBackendError(w http.ResponseWriter, err error) {
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		code := apiErr.Code
		if code == "" {
			code = "backend_error"
		}
		writeError(w, apiErr.Status, code)
		return
	}
	writeError(w, http.StatusBadGateway, "backend_unavailable")
}

func decodeJSON(r *http.Request, out interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
