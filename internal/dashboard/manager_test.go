package dashboard

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"marletmeets/client/internal/api"
	"marletmeets/client/internal/bus"
	"marletmeets/client/internal/model"
	"marletmeets/client/internal/session"
)

func TestManagerFollowsSessionLifecycle(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	files := session.NewFileStore(filepath.Join(t.TempDir(), "session.json"))
	if err := files.Save(ctx, session.Record{Token: "tok", User: model.Identity{ID: "u1", Role: model.RoleStudent}}); err != nil {
		t.Fatalf("seed record: %v", err)
	}
	store := session.New(files)

	data := &fakeData{selections: &api.SelectionsResponse{Selections: []model.Selection{}}}
	o := New(data, &stubResolver{}, bus.New(), time.Hour)
	mgr := NewManager(o, store)

	managerDone := make(chan struct{})
	go func() {
		defer close(managerDone)
		mgr.Run(ctx)
	}()

	// Session still loading: nothing mounted.
	time.Sleep(20 * time.Millisecond)
	if mgr.Current() != nil {
		t.Fatalf("nothing must mount while the session is loading")
	}

	store.Restore(ctx)
	waitFor(t, "student mount", func() bool {
		m := mgr.Current()
		return m != nil && m.Role() == model.RoleStudent
	})

	// Logout tears the mount down without any network round-trip.
	store.Logout(ctx)
	waitFor(t, "unmount on logout", func() bool { return mgr.Current() == nil })

	cancel()
	select {
	case <-managerDone:
	case <-time.After(2 * time.Second):
		t.Fatalf("manager did not stop")
	}
}

func TestManagerIgnoresAdminRole(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	files := session.NewFileStore(filepath.Join(t.TempDir(), "session.json"))
	if err := files.Save(ctx, session.Record{Token: "tok", User: model.Identity{ID: "a1", Role: model.RoleAdmin}}); err != nil {
		t.Fatalf("seed record: %v", err)
	}
	store := session.New(files)
	store.Restore(ctx)

	mgr := NewManager(New(&fakeData{}, &stubResolver{}, bus.New(), time.Hour), store)
	mgr.reconcile(ctx)

	if mgr.Current() != nil {
		t.Fatalf("admin role must not mount a dashboard")
	}
}
