package session

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"marletmeets/client/internal/api"
	"marletmeets/client/internal/model"
)

// State is the session tri-state observed by consumers.
type State int

const (
	StateLoading State = iota
	StateAuthenticated
	StateAnonymous
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateAuthenticated:
		return "authenticated"
	case StateAnonymous:
		return "anonymous"
	}
	return "unknown"
}

// Snapshot is a point-in-time read of the session. Identity is nil unless
// State is StateAuthenticated.
type Snapshot struct {
	State    State
	Identity *model.Identity
	Token    string
}

// AuthAPI is the auth collaborator consumed by the store.
type AuthAPI interface {
	Login(ctx context.Context, email, password string) (*api.AuthResponse, error)
	SignupStudent(ctx context.Context, profile api.StudentSignup) (*api.AuthResponse, error)
	SignupSenior(ctx context.Context, profile api.SeniorSignup) (*api.AuthResponse, error)
	Logout(ctx context.Context) error
}

var ErrBadAuthResponse = errors.New("session: auth response missing token or user")

// swapped out in expiry tests
var nowFunc = time.Now

// Store is the single source of truth for who is logged in and what
// credential to send. Identity and credential are swapped together under
// one lock, never independently.
type Store struct {
	mu       sync.RWMutex
	state    State
	identity *model.Identity
	token    string

	records  RecordStore
	auth     AuthAPI
	validate *validator.Validate
	subs     map[uuid.UUID]chan struct{}
}

func New(records RecordStore) *Store {
	return &Store{
		state:    StateLoading,
		records:  records,
		validate: validator.New(),
		subs:     make(map[uuid.UUID]chan struct{}),
	}
}

// SetAuth binds the auth collaborator. The API client needs the store as
// its token source, so the two are wired in two steps.
func (s *Store) SetAuth(auth AuthAPI) {
	s.auth = auth
}

// Token implements api.TokenSource.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{State: s.state, Token: s.token}
	if s.identity != nil {
		id := *s.identity
		snap.Identity = &id
	}
	return snap
}

// Subscribe registers for change notification. The channel carries a
// coalesced signal; read Snapshot() for the current state.
func (s *Store) Subscribe() (uuid.UUID, <-chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.New()
	ch := make(chan struct{}, 1)
	s.subs[id] = ch
	return id, ch
}

func (s *Store) Unsubscribe(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, id)
}

func (s *Store) notifyLocked() {
	for _, ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Restore re-activates a persisted session before the first route decision
// is made. Any failure degrades to anonymous; startup is never blocked.
func (s *Store) Restore(ctx context.Context) {
	rec, err := s.records.Load(ctx)
	if err != nil {
		log.Printf("session restore failed, starting anonymous: %v", err)
		s.setAnonymous()
		return
	}
	if rec == nil || rec.Token == "" || rec.User.ID == "" {
		s.setAnonymous()
		return
	}
	if tokenExpired(rec.Token) {
		if err := s.records.Clear(ctx); err != nil {
			log.Printf("session clear failed: %v", err)
		}
		s.setAnonymous()
		return
	}

	s.mu.Lock()
	s.state = StateAuthenticated
	user := rec.User
	s.identity = &user
	s.token = rec.Token
	s.notifyLocked()
	s.mu.Unlock()
}

// tokenExpired inspects the credential's exp claim without verifying the
// signature; the credential is otherwise opaque to the client. Tokens that
// do not parse as JWTs are kept and left for the backend to judge.
func tokenExpired(token string) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Time.Before(nowFunc())
}

func (s *Store) Login(ctx context.Context, email, password string) (*model.Identity, error) {
	resp, err := s.auth.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, resp)
}

func (s *Store) SignupStudent(ctx context.Context, profile api.StudentSignup) (*model.Identity, error) {
	if err := s.validate.Struct(profile); err != nil {
		return nil, err
	}
	resp, err := s.auth.SignupStudent(ctx, profile)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, resp)
}

func (s *Store) SignupSenior(ctx context.Context, profile api.SeniorSignup) (*model.Identity, error) {
	if err := s.validate.Struct(profile); err != nil {
		return nil, err
	}
	resp, err := s.auth.SignupSenior(ctx, profile)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, resp)
}

// apply replaces identity and credential together, in memory and in the
// durable record. A persistence failure is logged but does not invalidate
// the in-memory session.
func (s *Store) apply(ctx context.Context, resp *api.AuthResponse) (*model.Identity, error) {
	if resp.Token == "" || resp.User.ID == "" {
		return nil, ErrBadAuthResponse
	}

	s.mu.Lock()
	s.state = StateAuthenticated
	user := resp.User
	s.identity = &user
	s.token = resp.Token
	s.notifyLocked()
	s.mu.Unlock()

	if err := s.records.Save(ctx, Record{Token: resp.Token, User: resp.User}); err != nil {
		log.Printf("session persist failed: %v", err)
	}
	id := resp.User
	return &id, nil
}

// Logout notifies the backend best-effort and unconditionally clears the
// local session.
func (s *Store) Logout(ctx context.Context) {
	if s.auth != nil {
		if err := s.auth.Logout(ctx); err != nil {
			log.Printf("logout call failed (ignored): %v", err)
		}
	}
	if err := s.records.Clear(ctx); err != nil {
		log.Printf("session clear failed: %v", err)
	}
	s.setAnonymous()
}

func (s *Store) setAnonymous() {
	s.mu.Lock()
	s.state = StateAnonymous
	s.identity = nil
	s.token = ""
	s.notifyLocked()
	s.mu.Unlock()
}
