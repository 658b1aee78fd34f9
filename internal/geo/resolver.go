package geo

import (
	"context"
	"math"
	"sync"

	"golang.org/x/sync/errgroup"

	"marletmeets/client/internal/model"
)

// Subject is one person going onto the map: known coordinates when the
// backend has them, otherwise address only.
type Subject struct {
	ID        string
	FirstName string
	LastName  string
	Latitude  *float64
	Longitude *float64
	Address   string
}

func (s Subject) hasCoords() bool {
	return s.Latitude != nil && s.Longitude != nil &&
		finite(*s.Latitude) && finite(*s.Longitude)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// GeocodeClient is the geocoding collaborator as the resolver sees it.
type GeocodeClient interface {
	Ready() bool
	Geocode(ctx context.Context, address string) (Coord, error)
}

// Resolver produces coordinate-complete map entries, preferring stored
// coordinates and geocoding only when a whole set lacks them. Geocoding
// for seniors is all-or-nothing: a set where even one senior carries
// coordinates is served from stored coordinates alone, and seniors
// without them are dropped.
type Resolver struct {
	geo   GeocodeClient
	limit int
}

func NewResolver(geo GeocodeClient, limit int) *Resolver {
	if limit <= 0 {
		limit = 4
	}
	return &Resolver{geo: geo, limit: limit}
}

// Resolve builds the map state for a student dashboard. Entries that
// cannot be resolved are omitted; the result never carries placeholder
// coordinates. Failures never propagate out.
func (r *Resolver) Resolve(ctx context.Context, student *Subject, seniors []Subject) model.MapState {
	state := model.MapState{
		Students: []model.MapPerson{},
		Seniors:  r.resolveSeniors(ctx, seniors),
	}
	if student != nil {
		if person, ok := r.resolveOne(ctx, *student, model.RoleStudent); ok {
			state.Students = append(state.Students, person)
		}
	}
	return state
}

func (r *Resolver) resolveSeniors(ctx context.Context, seniors []Subject) []model.MapPerson {
	resolved := []model.MapPerson{}
	if len(seniors) == 0 {
		return resolved
	}

	anyCoords := false
	for _, s := range seniors {
		if s.hasCoords() {
			anyCoords = true
			break
		}
	}

	if anyCoords {
		for _, s := range seniors {
			if s.hasCoords() {
				resolved = append(resolved, mapPerson(s, model.RoleSenior, *s.Latitude, *s.Longitude))
			}
		}
		return resolved
	}

	if !r.geo.Ready() {
		return resolved
	}

	var mu sync.Mutex
	coords := make(map[int]Coord, len(seniors))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(r.limit)
	for i, s := range seniors {
		if s.Address == "" {
			continue
		}
		i, s := i, s
		group.Go(func() error {
			coord, err := r.geo.Geocode(groupCtx, s.Address)
			if err != nil {
				// Failed entries are dropped, never surfaced.
				return nil
			}
			mu.Lock()
			coords[i] = coord
			mu.Unlock()
			return nil
		})
	}
	_ = group.Wait()

	for i, s := range seniors {
		if coord, ok := coords[i]; ok && finite(coord.Latitude) && finite(coord.Longitude) {
			resolved = append(resolved, mapPerson(s, model.RoleSenior, coord.Latitude, coord.Longitude))
		}
	}
	return resolved
}

// resolveOne applies the two-tier rule to a single subject: stored
// coordinates first, otherwise one geocoding attempt, otherwise omission.
func (r *Resolver) resolveOne(ctx context.Context, s Subject, role model.Role) (model.MapPerson, bool) {
	if s.hasCoords() {
		return mapPerson(s, role, *s.Latitude, *s.Longitude), true
	}
	if s.Address == "" || !r.geo.Ready() {
		return model.MapPerson{}, false
	}
	coord, err := r.geo.Geocode(ctx, s.Address)
	if err != nil || !finite(coord.Latitude) || !finite(coord.Longitude) {
		return model.MapPerson{}, false
	}
	return mapPerson(s, role, coord.Latitude, coord.Longitude), true
}

func mapPerson(s Subject, role model.Role, lat, lng float64) model.MapPerson {
	return model.MapPerson{
		ID:        s.ID,
		Role:      role,
		FirstName: s.FirstName,
		LastName:  s.LastName,
		Latitude:  lat,
		Longitude: lng,
	}
}
