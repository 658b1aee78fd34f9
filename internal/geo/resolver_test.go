package geo

import (
	"context"
	"math"
	"sync"
	"testing"

	"marletmeets/client/internal/model"
)

type fakeGeo struct {
	mu       sync.Mutex
	ready    bool
	coords   map[string]Coord
	calls    int
	inFlight int
	maxSeen  int
}

func (f *fakeGeo) Ready() bool { return f.ready }

func (f *fakeGeo) Geocode(_ context.Context, address string) (Coord, error) {
	f.mu.Lock()
	f.calls++
	f.inFlight++
	if f.inFlight > f.maxSeen {
		f.maxSeen = f.inFlight
	}
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	coord, ok := f.coords[address]
	if !ok {
		return Coord{}, ErrNoResult
	}
	return coord, nil
}

func ptr(v float64) *float64 { return &v }

func TestResolveAllCoordsSkipsGeocoding(t *testing.T) {
	geo := &fakeGeo{ready: true}
	resolver := NewResolver(geo, 4)

	seniors := []Subject{
		{ID: "S1", FirstName: "Ada", Latitude: ptr(45.50), Longitude: ptr(-73.57)},
		{ID: "S2", FirstName: "Rose", Latitude: ptr(45.52), Longitude: ptr(-73.60)},
		{ID: "S3", FirstName: "May", Latitude: ptr(45.48), Longitude: ptr(-73.55)},
	}
	state := resolver.Resolve(context.Background(), nil, seniors)

	if len(state.Seniors) != 3 {
		t.Fatalf("expected 3 seniors, got %d", len(state.Seniors))
	}
	for i, person := range state.Seniors {
		if person.Latitude != *seniors[i].Latitude || person.Longitude != *seniors[i].Longitude {
			t.Fatalf("senior %s: expected stored coordinates, got %+v", person.ID, person)
		}
	}
	if geo.calls != 0 {
		t.Fatalf("expected zero geocoding calls, got %d", geo.calls)
	}
}

func TestResolveNoneCoordsGeocodesSuccessesOnly(t *testing.T) {
	geo := &fakeGeo{
		ready: true,
		coords: map[string]Coord{
			"123 Main St": {Latitude: 45.5, Longitude: -73.6},
			"456 Oak Ave": {Latitude: 45.6, Longitude: -73.7},
		},
	}
	resolver := NewResolver(geo, 4)

	seniors := []Subject{
		{ID: "S1", Address: "123 Main St"},
		{ID: "S2", Address: "456 Oak Ave"},
		{ID: "S3", Address: "999 Nowhere Rd"}, // geocode miss
		{ID: "S4"},                           // no address
	}
	state := resolver.Resolve(context.Background(), nil, seniors)

	if len(state.Seniors) != 2 {
		t.Fatalf("expected 2 resolved seniors, got %d", len(state.Seniors))
	}
	byID := map[string]model.MapPerson{}
	for _, p := range state.Seniors {
		byID[p.ID] = p
	}
	if p, ok := byID["S1"]; !ok || p.Latitude != 45.5 || p.Longitude != -73.6 {
		t.Fatalf("unexpected S1: %+v", byID["S1"])
	}
	if _, ok := byID["S3"]; ok {
		t.Fatalf("failed geocode must be dropped")
	}
	if _, ok := byID["S4"]; ok {
		t.Fatalf("addressless senior must be dropped")
	}
	if geo.calls != 3 {
		t.Fatalf("expected 3 geocoding calls (one per address), got %d", geo.calls)
	}
}

func TestResolveMixedSetUsesStoredCoordsOnly(t *testing.T) {
	geo := &fakeGeo{ready: true, coords: map[string]Coord{"123 Main St": {Latitude: 1, Longitude: 2}}}
	resolver := NewResolver(geo, 4)

	seniors := []Subject{
		{ID: "S1", Latitude: ptr(45.5), Longitude: ptr(-73.6)},
		{ID: "S2", Address: "123 Main St"},
	}
	state := resolver.Resolve(context.Background(), nil, seniors)

	if len(state.Seniors) != 1 || state.Seniors[0].ID != "S1" {
		t.Fatalf("mixed set must not be mixed-resolved, got %+v", state.Seniors)
	}
	if geo.calls != 0 {
		t.Fatalf("mixed set must not trigger geocoding, got %d calls", geo.calls)
	}
}

func TestResolveStudentTwoTierRule(t *testing.T) {
	geo := &fakeGeo{ready: true, coords: map[string]Coord{"77 Peel St": {Latitude: 45.49, Longitude: -73.58}}}
	resolver := NewResolver(geo, 4)

	student := &Subject{ID: "me", FirstName: "You", Address: "77 Peel St"}
	state := resolver.Resolve(context.Background(), student, nil)

	if len(state.Students) != 1 {
		t.Fatalf("expected exactly one student entry, got %d", len(state.Students))
	}
	got := state.Students[0]
	if got.Latitude != 45.49 || got.Longitude != -73.58 || got.Role != model.RoleStudent {
		t.Fatalf("unexpected student entry: %+v", got)
	}
	if geo.calls != 1 {
		t.Fatalf("expected exactly one geocoding call for the student, got %d", geo.calls)
	}
}

func TestResolveStudentOmittedWithoutCoordsOrAddress(t *testing.T) {
	resolver := NewResolver(&fakeGeo{ready: true}, 4)
	state := resolver.Resolve(context.Background(), &Subject{ID: "me"}, nil)
	if len(state.Students) != 0 {
		t.Fatalf("expected student omitted, got %+v", state.Students)
	}
}

func TestResolveNotReadyFallsBackToStoredCoords(t *testing.T) {
	geo := &fakeGeo{ready: false, coords: map[string]Coord{"123 Main St": {Latitude: 1, Longitude: 2}}}
	resolver := NewResolver(geo, 4)

	student := &Subject{ID: "me", Latitude: ptr(45.5), Longitude: ptr(-73.6)}
	seniors := []Subject{{ID: "S1", Address: "123 Main St"}}
	state := resolver.Resolve(context.Background(), student, seniors)

	if len(state.Students) != 1 {
		t.Fatalf("stored student coordinates must survive unready geocoder")
	}
	if len(state.Seniors) != 0 {
		t.Fatalf("address-only seniors must be omitted when geocoder is unready, got %+v", state.Seniors)
	}
	if geo.calls != 0 {
		t.Fatalf("unready geocoder must not be called, got %d", geo.calls)
	}
}

func TestResolveTreatsNonFiniteAsMissing(t *testing.T) {
	geo := &fakeGeo{ready: true, coords: map[string]Coord{"123 Main St": {Latitude: 45.5, Longitude: -73.6}}}
	resolver := NewResolver(geo, 4)

	seniors := []Subject{{ID: "S1", Latitude: ptr(math.NaN()), Longitude: ptr(-73.6), Address: "123 Main St"}}
	state := resolver.Resolve(context.Background(), nil, seniors)

	if len(state.Seniors) != 1 || state.Seniors[0].Latitude != 45.5 {
		t.Fatalf("non-finite stored coordinate must fall through to geocoding, got %+v", state.Seniors)
	}
}

func TestResolveBoundsConcurrentGeocodes(t *testing.T) {
	geo := &fakeGeo{ready: true, coords: map[string]Coord{}}
	seniors := make([]Subject, 16)
	for i := range seniors {
		addr := string(rune('a'+i)) + " street"
		seniors[i] = Subject{ID: addr, Address: addr}
		geo.coords[addr] = Coord{Latitude: 45, Longitude: -73}
	}
	resolver := NewResolver(geo, 2)
	state := resolver.Resolve(context.Background(), nil, seniors)

	if len(state.Seniors) != 16 {
		t.Fatalf("expected all seniors resolved, got %d", len(state.Seniors))
	}
	if geo.maxSeen > 2 {
		t.Fatalf("expected at most 2 concurrent geocodes, saw %d", geo.maxSeen)
	}
}
