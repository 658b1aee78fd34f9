package geo

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestGeocoderRefusesCallsBeforeReady(t *testing.T) {
	g := NewGeocoder("http://127.0.0.1:0", "", time.Second)
	if g.Ready() {
		t.Fatalf("geocoder must start unready")
	}
	if _, err := g.Geocode(context.Background(), "123 Main St"); !errors.Is(err, ErrNotReady) {
		t.Fatalf("expected ErrNotReady, got %v", err)
	}
}

func TestGeocoderInitAndGeocode(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") != "k1" {
			t.Errorf("expected api key in query, got %q", r.URL.Query().Get("key"))
		}
		switch r.URL.Query().Get("address") {
		case "Montreal, QC":
			_, _ = w.Write([]byte(`{"status": "OK", "results": []}`))
		case "123 Main St":
			_, _ = w.Write([]byte(`{"status": "OK", "results": [{"geometry": {"location": {"lat": 45.5, "lng": -73.6}}}]}`))
		default:
			_, _ = w.Write([]byte(`{"status": "ZERO_RESULTS", "results": []}`))
		}
	}))
	defer backend.Close()

	g := NewGeocoder(backend.URL, "k1", time.Second)
	g.Init(context.Background())

	deadline := time.Now().Add(2 * time.Second)
	for !g.Ready() {
		if time.Now().After(deadline) {
			t.Fatalf("geocoder never became ready")
		}
		time.Sleep(5 * time.Millisecond)
	}

	coord, err := g.Geocode(context.Background(), "123 Main St")
	if err != nil {
		t.Fatalf("geocode failed: %v", err)
	}
	if coord.Latitude != 45.5 || coord.Longitude != -73.6 {
		t.Fatalf("unexpected coordinates: %+v", coord)
	}

	if _, err := g.Geocode(context.Background(), "nowhere"); !errors.Is(err, ErrNoResult) {
		t.Fatalf("expected ErrNoResult, got %v", err)
	}
}

func TestGeocoderStaysUnreadyOnProbeFailure(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer backend.Close()

	g := NewGeocoder(backend.URL, "", time.Second)
	g.Init(context.Background())
	time.Sleep(50 * time.Millisecond)
	if g.Ready() {
		t.Fatalf("geocoder must stay unready when the probe fails")
	}
}
