package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"marletmeets/client/internal/metrics"
)

var (
	ErrNotReady = errors.New("geo: geocoder not ready")
	ErrNoResult = errors.New("geo: no result for address")
)

type Coord struct {
	Latitude  float64
	Longitude float64
}

// Geocoder resolves textual addresses against a Google-style geocoding
// endpoint. It only accepts calls after an asynchronous readiness probe
// has succeeded; callers must never block waiting for readiness.
type Geocoder struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
	ready   atomic.Bool
}

func NewGeocoder(baseURL, apiKey string, timeout time.Duration) *Geocoder {
	return &Geocoder{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpc:   &http.Client{Timeout: timeout},
	}
}

// Init probes the geocoding backend in the background and flips readiness
// on success. It returns immediately.
func (g *Geocoder) Init(ctx context.Context) {
	go func() {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.probeURL(), nil)
		if err != nil {
			log.Printf("geocoder init failed: %v", err)
			return
		}
		resp, err := g.httpc.Do(req)
		if err != nil {
			log.Printf("geocoder init failed: %v", err)
			return
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			log.Printf("geocoder init failed: status %d", resp.StatusCode)
			return
		}
		g.ready.Store(true)
	}()
}

func (g *Geocoder) probeURL() string {
	query := url.Values{}
	query.Set("address", "Montreal, QC")
	if g.apiKey != "" {
		query.Set("key", g.apiKey)
	}
	return g.baseURL + "?" + query.Encode()
}

func (g *Geocoder) Ready() bool {
	return g.ready.Load()
}

type geocodeResponse struct {
	Status  string `json:"status"`
	Results []struct {
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

// Geocode resolves one address. The service is rate-limited and
// best-effort; callers isolate failures per item.
func (g *Geocoder) Geocode(ctx context.Context, address string) (Coord, error) {
	if !g.Ready() {
		return Coord{}, ErrNotReady
	}

	query := url.Values{}
	query.Set("address", address)
	if g.apiKey != "" {
		query.Set("key", g.apiKey)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return Coord{}, err
	}

	resp, err := g.httpc.Do(req)
	if err != nil {
		metrics.GeocodeTotal.WithLabelValues("error").Inc()
		return Coord{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		metrics.GeocodeTotal.WithLabelValues("error").Inc()
		return Coord{}, fmt.Errorf("geo: status %d", resp.StatusCode)
	}

	var body geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		metrics.GeocodeTotal.WithLabelValues("error").Inc()
		return Coord{}, err
	}
	if body.Status != "OK" || len(body.Results) == 0 {
		metrics.GeocodeTotal.WithLabelValues("miss").Inc()
		return Coord{}, ErrNoResult
	}

	location := body.Results[0].Geometry.Location
	metrics.GeocodeTotal.WithLabelValues("ok").Inc()
	return Coord{Latitude: location.Lat, Longitude: location.Lng}, nil
}
