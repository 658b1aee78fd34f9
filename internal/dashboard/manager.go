package dashboard

import (
	"context"
	"sync"

	"marletmeets/client/internal/model"
	"marletmeets/client/internal/session"
)

// Manager follows the session store and keeps exactly one mount alive for
// the active role. Logout or a role change tears the old mount down
// before anything else observes it.
type Manager struct {
	o     *Orchestrator
	store *session.Store

	mu    sync.Mutex
	mount *Mount
}

func NewManager(o *Orchestrator, store *session.Store) *Manager {
	return &Manager{o: o, store: store}
}

// Run blocks until ctx is done, reconciling the mount on every session
// change.
func (mgr *Manager) Run(ctx context.Context) {
	subID, changes := mgr.store.Subscribe()
	defer mgr.store.Unsubscribe(subID)

	mgr.reconcile(ctx)
	for {
		select {
		case <-ctx.Done():
			mgr.teardown()
			return
		case <-changes:
			mgr.reconcile(ctx)
		}
	}
}

// Current returns the live mount for the active role, or nil.
func (mgr *Manager) Current() *Mount {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	return mgr.mount
}

func (mgr *Manager) reconcile(ctx context.Context) {
	snap := mgr.store.Snapshot()

	var want model.Role
	if snap.State == session.StateAuthenticated && snap.Identity != nil {
		switch snap.Identity.Role {
		case model.RoleStudent, model.RoleSenior:
			want = snap.Identity.Role
		}
	}

	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	if mgr.mount != nil && (want == "" || mgr.mount.Role() != want) {
		mgr.mount.Unmount()
		mgr.mount = nil
	}
	if want != "" && mgr.mount == nil {
		mgr.mount = mgr.o.Mount(ctx, want)
	}
}

func (mgr *Manager) teardown() {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	if mgr.mount != nil {
		mgr.mount.Unmount()
		mgr.mount = nil
	}
}
