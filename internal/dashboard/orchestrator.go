// Package dashboard keeps each role's dashboard data fresh: an initial
// load on mount, a fixed-interval poll for students, and an immediate
// re-pull whenever the selection-changed broadcast fires.
package dashboard

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"marletmeets/client/internal/api"
	"marletmeets/client/internal/bus"
	"marletmeets/client/internal/geo"
	"marletmeets/client/internal/metrics"
	"marletmeets/client/internal/model"
)

// DataAPI is the slice of the backend client the orchestrator pulls from.
type DataAPI interface {
	StudentSelections(ctx context.Context) (*api.SelectionsResponse, error)
	MapData(ctx context.Context) (*api.MapDataResponse, error)
	SeniorNotifications(ctx context.Context) (*api.NotificationsResponse, error)
}

// MapResolver fills in missing geography for the student map.
type MapResolver interface {
	Resolve(ctx context.Context, student *geo.Subject, seniors []geo.Subject) model.MapState
}

type Orchestrator struct {
	data     DataAPI
	resolver MapResolver
	bus      *bus.Bus
	interval time.Duration
}

func New(data DataAPI, resolver MapResolver, b *bus.Bus, interval time.Duration) *Orchestrator {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Orchestrator{data: data, resolver: resolver, bus: b, interval: interval}
}

// Mount is one live dashboard instance for a role. Pending refresh
// results are applied only while the mount is live and only if no newer
// refresh has started since (generation guard).
type Mount struct {
	o    *Orchestrator
	role model.Role

	live   atomic.Bool
	reqGen atomic.Int64

	cancel context.CancelFunc
	done   chan struct{}

	mu   sync.RWMutex
	snap Snapshot
}

// Mount starts the refresh loop for a role and returns the live mount.
func (o *Orchestrator) Mount(ctx context.Context, role model.Role) *Mount {
	ctx, cancel := context.WithCancel(ctx)
	m := &Mount{
		o:      o,
		role:   role,
		cancel: cancel,
		done:   make(chan struct{}),
		snap:   Snapshot{Role: role},
	}
	m.live.Store(true)
	go m.run(ctx)
	return m
}

func (m *Mount) Role() model.Role {
	return m.role
}

// Unmount drops liveness first so an in-flight refresh completing during
// teardown cannot touch the snapshot, then stops the loop.
func (m *Mount) Unmount() {
	m.live.Store(false)
	m.cancel()
	<-m.done
}

func (m *Mount) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snap
}

func (m *Mount) run(ctx context.Context) {
	defer close(m.done)

	busID, changes := m.o.bus.Subscribe()
	defer m.o.bus.Unsubscribe(busID)

	m.refresh(ctx, true)

	var tick <-chan time.Time
	if m.role == model.RoleStudent {
		ticker := time.NewTicker(m.o.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
			m.refresh(ctx, false)
		case <-changes:
			m.refresh(ctx, false)
		}
	}
}

// refresh runs one pull for the mount's role. Only the initial load may
// surface an error to the view; background failures keep stale data
// visible and are just logged.
func (m *Mount) refresh(ctx context.Context, initial bool) {
	gen := m.reqGen.Add(1)

	var update func(*Snapshot)
	var err error
	switch m.role {
	case model.RoleStudent:
		update, err = m.o.loadStudent(ctx)
	case model.RoleSenior:
		update, err = m.o.loadSenior(ctx)
	default:
		return
	}

	if err != nil {
		metrics.RefreshTotal.WithLabelValues(string(m.role), "error").Inc()
		if initial {
			m.apply(gen, func(s *Snapshot) {
				s.Initialized = true
				s.LoadError = "could not load dashboard"
			})
		} else {
			log.Printf("background refresh failed (%s): %v", m.role, err)
		}
		return
	}

	metrics.RefreshTotal.WithLabelValues(string(m.role), "ok").Inc()
	m.apply(gen, func(s *Snapshot) {
		s.Initialized = true
		s.LoadError = ""
		update(s)
	})
}

func (m *Mount) apply(gen int64, update func(*Snapshot)) {
	if !m.live.Load() || m.reqGen.Load() != gen {
		metrics.RefreshDiscarded.Inc()
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	update(&m.snap)
	m.snap.UpdatedAt = time.Now()
}

// loadStudent is the two-step student pull: selections first, then the
// richer map dataset only when at least one selection exists.
func (o *Orchestrator) loadStudent(ctx context.Context) (func(*Snapshot), error) {
	sel, err := o.data.StudentSelections(ctx)
	if err != nil {
		return nil, err
	}
	selections := sel.Selections
	if selections == nil {
		selections = []model.Selection{}
	}

	if len(selections) == 0 {
		// No selections: the map endpoint is skipped entirely and the
		// resolved map state is cleared.
		return func(s *Snapshot) {
			s.Student = &StudentData{
				Selections:   selections,
				StudentPhone: sel.StudentPhone,
				Map:          emptyMapState(),
			}
		}, nil
	}

	mapResp, err := o.data.MapData(ctx)
	if err != nil {
		return nil, err
	}
	seniors := make([]geo.Subject, 0, len(mapResp.Seniors))
	for _, rec := range mapResp.Seniors {
		seniors = append(seniors, toSubject(rec))
	}
	mapState := o.resolver.Resolve(ctx, studentSubject(mapResp.Student), seniors)

	return func(s *Snapshot) {
		s.Student = &StudentData{
			Selections:   selections,
			StudentPhone: sel.StudentPhone,
			Map:          mapState,
		}
	}, nil
}

func (o *Orchestrator) loadSenior(ctx context.Context) (func(*Snapshot), error) {
	resp, err := o.data.SeniorNotifications(ctx)
	if err != nil {
		return nil, err
	}
	notifications := resp.Notifications
	if notifications == nil {
		notifications = []model.Notification{}
	}
	return func(s *Snapshot) {
		s.Senior = &SeniorData{
			Notifications: notifications,
			SeniorPhone:   resp.SeniorPhone,
		}
	}, nil
}

func emptyMapState() model.MapState {
	return model.MapState{Students: []model.MapPerson{}, Seniors: []model.MapPerson{}}
}

func toSubject(rec api.MapRecord) geo.Subject {
	return geo.Subject{
		ID:        rec.ID,
		FirstName: rec.FirstName,
		LastName:  rec.LastName,
		Latitude:  rec.Latitude,
		Longitude: rec.Longitude,
		Address:   rec.Address,
	}
}

func studentSubject(rec *api.MapRecord) *geo.Subject {
	if rec == nil {
		return nil
	}
	subject := toSubject(*rec)
	if subject.ID == "" {
		subject.ID = "me"
	}
	if subject.FirstName == "" {
		subject.FirstName = "You"
	}
	return &subject
}
