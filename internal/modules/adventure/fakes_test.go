package adventure

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/syonosuke743/portfolio/internal/models"
	"github.com/syonosuke743/portfolio/pkg/maps"
)

// fakeRepo keeps adventures, waypoints and routes in memory and mirrors the
// constraints of the SQL repository.
type fakeRepo struct {
	mu         sync.Mutex
	seq        int
	adventures map[string]*models.Adventure
	waypoints  map[string][]models.Waypoint
	routes     map[string][]models.Route

	// statusLog records every UpdateStatus call in order.
	statusLog []models.AdventureStatus

	// failure injection
	createErr        error
	listWaypointsErr error
	updateLocErr     map[string]error // by waypoint id
	injectErr        error
	createRouteErr   error
	statusErr        map[models.AdventureStatus]error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		adventures:   make(map[string]*models.Adventure),
		waypoints:    make(map[string][]models.Waypoint),
		routes:       make(map[string][]models.Route),
		updateLocErr: make(map[string]error),
		statusErr:    make(map[models.AdventureStatus]error),
	}
}

func (f *fakeRepo) nextID(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s-%d", prefix, f.seq)
}

func (f *fakeRepo) CreateWithWaypoints(ctx context.Context, adv *models.Adventure, waypoints []models.Waypoint) (*models.Adventure, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	adv.ID = f.nextID("adv")
	adv.CreatedAt = time.Now().Add(time.Duration(f.seq) * time.Second)
	adv.WaypointCount = len(waypoints)

	created := make([]models.Waypoint, len(waypoints))
	for i, wp := range waypoints {
		wp.ID = f.nextID("wp")
		wp.AdventureID = adv.ID
		created[i] = wp
	}
	stored := *adv
	stored.Waypoints = nil
	f.adventures[adv.ID] = &stored
	f.waypoints[adv.ID] = append([]models.Waypoint(nil), created...)

	adv.Waypoints = created
	return adv, nil
}

func (f *fakeRepo) FindByID(ctx context.Context, adventureID string) (*models.Adventure, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	adv, ok := f.adventures[adventureID]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *adv
	return &cp, nil
}

func (f *fakeRepo) ListByUserID(ctx context.Context, userID string) ([]*models.Adventure, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Adventure
	for _, adv := range f.adventures {
		if adv.UserID == userID {
			cp := *adv
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeRepo) ListWaypoints(ctx context.Context, adventureID string) ([]models.Waypoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listWaypointsErr != nil {
		return nil, f.listWaypointsErr
	}
	out := append([]models.Waypoint(nil), f.waypoints[adventureID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out, nil
}

func (f *fakeRepo) UpdateWaypointLocation(ctx context.Context, waypointID string, loc LocationUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.updateLocErr[waypointID]; err != nil {
		return err
	}
	for advID, wps := range f.waypoints {
		for i := range wps {
			if wps[i].ID != waypointID {
				continue
			}
			wp := &f.waypoints[advID][i]
			wp.Latitude, wp.Longitude = loc.Latitude, loc.Longitude
			wp.Address, wp.LocationName = loc.Address, loc.LocationName
			if loc.POISourceID != nil {
				wp.POISourceID = loc.POISourceID
			}
			return nil
		}
	}
	return models.ErrNotFound
}

func (f *fakeRepo) InjectDestination(ctx context.Context, adventureID string, wp *models.Waypoint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.injectErr != nil {
		return f.injectErr
	}
	adv, ok := f.adventures[adventureID]
	if !ok {
		return models.ErrNotFound
	}

	wps := f.waypoints[adventureID]
	next := 0
	for i := range wps {
		if wps[i].WaypointType == models.WaypointDestination {
			wps[i].WaypointType = models.WaypointIntermediate
		}
		if wps[i].Sequence >= next {
			next = wps[i].Sequence + 1
		}
	}
	wp.ID = f.nextID("wp")
	wp.AdventureID = adventureID
	wp.Sequence = next
	wp.WaypointType = models.WaypointDestination
	f.waypoints[adventureID] = append(wps, *wp)
	adv.WaypointCount = len(f.waypoints[adventureID])
	return nil
}

func (f *fakeRepo) CreateRoute(ctx context.Context, route *models.Route) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createRouteErr != nil {
		return f.createRouteErr
	}
	route.ID = f.nextID("route")
	route.CreatedAt = time.Now()
	f.routes[route.AdventureID] = append(f.routes[route.AdventureID], *route)
	return nil
}

func (f *fakeRepo) ListRoutes(ctx context.Context, adventureID string) ([]models.Route, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	seqOf := make(map[string]int)
	for _, wp := range f.waypoints[adventureID] {
		seqOf[wp.ID] = wp.Sequence
	}
	routes := append([]models.Route(nil), f.routes[adventureID]...)
	sort.SliceStable(routes, func(i, j int) bool {
		return seqOf[routes[i].FromWaypointID] < seqOf[routes[j].FromWaypointID]
	})
	return routes, nil
}

func (f *fakeRepo) UpdateStatus(ctx context.Context, adventureID string, status models.AdventureStatus, failureReason *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusLog = append(f.statusLog, status)
	if err := f.statusErr[status]; err != nil {
		return err
	}
	adv, ok := f.adventures[adventureID]
	if !ok {
		return models.ErrNotFound
	}
	adv.Status = status
	adv.FailureReason = failureReason
	return nil
}

func (f *fakeRepo) Delete(ctx context.Context, adventureID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.adventures[adventureID]; !ok {
		return models.ErrNotFound
	}
	delete(f.adventures, adventureID)
	delete(f.waypoints, adventureID)
	delete(f.routes, adventureID)
	return nil
}

func (f *fakeRepo) Stats(ctx context.Context, userID string) (*models.AdventureStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stats := &models.AdventureStats{StatusCounts: make(map[models.AdventureStatus]int)}
	for _, adv := range f.adventures {
		if userID != "" && adv.UserID != userID {
			continue
		}
		stats.StatusCounts[adv.Status]++
		stats.TotalPlannedDistance += adv.PlannedDistanceMeters
	}
	return stats, nil
}

// stored returns the persisted adventure and its waypoints.
func (f *fakeRepo) stored(adventureID string) (*models.Adventure, []models.Waypoint) {
	f.mu.Lock()
	defer f.mu.Unlock()
	adv := f.adventures[adventureID]
	wps := append([]models.Waypoint(nil), f.waypoints[adventureID]...)
	sort.Slice(wps, func(i, j int) bool { return wps[i].Sequence < wps[j].Sequence })
	return adv, wps
}

// onlyAdventure returns the single adventure in the repo.
func (f *fakeRepo) onlyAdventure() *models.Adventure {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, adv := range f.adventures {
		return adv
	}
	return nil
}

type searchCall struct {
	category string
	center   maps.Coordinates
	radius   float64
}

// fakePlaces is a scripted PlacesClient.
type fakePlaces struct {
	mu          sync.Mutex
	searches    []searchCall
	randomCalls []searchCall
	routeCalls  [][2]maps.Coordinates
	searchFn    func(category string, call int) (*maps.Place, error)
	randomFn    func(category string) (*maps.Place, error)
	routeFn     func(from, to maps.Coordinates, call int) (*maps.RouteGeometry, error)
}

func (p *fakePlaces) SearchPlace(ctx context.Context, category string, center maps.Coordinates, radius float64) (*maps.Place, error) {
	p.mu.Lock()
	p.searches = append(p.searches, searchCall{category, center, radius})
	n := len(p.searches)
	p.mu.Unlock()
	if p.searchFn == nil {
		return nil, nil
	}
	return p.searchFn(category, n)
}

func (p *fakePlaces) SearchRandomPlace(ctx context.Context, category string, center maps.Coordinates, maxDistance float64) (*maps.Place, error) {
	p.mu.Lock()
	p.randomCalls = append(p.randomCalls, searchCall{category, center, maxDistance})
	p.mu.Unlock()
	if p.randomFn == nil {
		return nil, nil
	}
	return p.randomFn(category)
}

func (p *fakePlaces) ComputeRoute(ctx context.Context, from, to maps.Coordinates, mode maps.TravelMode) (*maps.RouteGeometry, error) {
	p.mu.Lock()
	p.routeCalls = append(p.routeCalls, [2]maps.Coordinates{from, to})
	n := len(p.routeCalls)
	p.mu.Unlock()
	if p.routeFn == nil {
		return &maps.RouteGeometry{Payload: []byte(`{}`), DistanceMeters: 500, DurationMinutes: 7}, nil
	}
	return p.routeFn(from, to, n)
}

var errProviderDown = errors.New("provider timeout")

func placeAt(id string, lat, lng float64) *maps.Place {
	rating := 4.0
	return &maps.Place{
		ID:       id,
		Name:     "Place " + id,
		Address:  id + " street",
		Location: maps.Coordinates{Lat: lat, Lng: lng},
		Rating:   &rating,
	}
}

func strPtr(s string) *string { return &s }
