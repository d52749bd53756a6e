package adventure

import (
	"context"
	"fmt"
	"time"

	"github.com/syonosuke743/portfolio/internal/logging"
	"github.com/syonosuke743/portfolio/internal/metrics"
	"github.com/syonosuke743/portfolio/internal/models"
	"github.com/syonosuke743/portfolio/pkg/maps"
)

// PlacesClient is the places and routing provider used by the pipeline.
type PlacesClient interface {
	SearchPlace(ctx context.Context, category string, center maps.Coordinates, radius float64) (*maps.Place, error)
	SearchRandomPlace(ctx context.Context, category string, center maps.Coordinates, maxDistance float64) (*maps.Place, error)
	ComputeRoute(ctx context.Context, origin, destination maps.Coordinates, mode maps.TravelMode) (*maps.RouteGeometry, error)
}

// ServiceInterface defines the contract for the adventure service.
type ServiceInterface interface {
	Create(ctx context.Context, req models.CreateAdventureRequest) (*models.Adventure, error)
	FindByUser(ctx context.Context, userID string) ([]*models.Adventure, error)
	FindOne(ctx context.Context, adventureID string) (*models.Adventure, error)
	Remove(ctx context.Context, adventureID string) error
	UpdateStatus(ctx context.Context, adventureID string, req models.UpdateStatusRequest) (*models.Adventure, error)
	GetStats(ctx context.Context, userID string) (*models.AdventureStats, error)
}

// Service implements the adventure generation pipeline.
type Service struct {
	repo       RepositoryInterface
	resolver   *WaypointResolver
	injector   *DestinationInjector
	calculator *RouteCalculator
}

// NewService wires the pipeline phases around repo and places.
func NewService(repo RepositoryInterface, places PlacesClient, rnd *maps.Randomizer) *Service {
	return &Service{
		repo:       repo,
		resolver:   NewWaypointResolver(repo, places),
		injector:   NewDestinationInjector(repo, places, rnd),
		calculator: NewRouteCalculator(repo, places),
	}
}

// Create validates the request, stores the adventure with its waypoints and
// runs resolve, inject and route phases in order. On any error after the
// adventure was stored it is marked FAILED and the error is returned as is.
func (s *Service) Create(ctx context.Context, req models.CreateAdventureRequest) (*models.Adventure, error) {
	if err := validateCreateRequest(req); err != nil {
		return nil, err
	}

	// The pipeline outlives the request that started it.
	ctx = context.WithoutCancel(ctx)
	started := time.Now()

	adv, waypoints := newAdventure(req)
	created, err := s.repo.CreateWithWaypoints(ctx, adv, waypoints)
	if err != nil {
		return nil, fmt.Errorf("service.Create: %w", err)
	}
	logging.Info().Str("adventure_id", created.ID).Str("user_id", created.UserID).
		Int("waypoints", created.WaypointCount).Int("planned_distance_m", created.PlannedDistanceMeters).
		Msg("adventure created")

	status := created.Status
	result, err := s.run(ctx, created, &status)
	metrics.PipelineDuration.Observe(time.Since(started).Seconds())
	if err != nil {
		if !status.IsTerminal() {
			s.markFailed(ctx, created.ID, err)
		}
		return nil, err
	}
	return result, nil
}

// run executes the pipeline phases. The adventure is in progress while run
// executes, but only the terminal status is written, so readers observe
// PLANNED followed by COMPLETED or FAILED. status tracks what has been
// persisted.
func (s *Service) run(ctx context.Context, adv *models.Adventure, status *models.AdventureStatus) (*models.Adventure, error) {
	if _, err := s.resolver.Resolve(ctx, adv.ID, adv.PlannedDistanceMeters, adv.Waypoints); err != nil {
		return nil, err
	}

	if start := adv.StartWaypoint(); start != nil {
		s.injector.Inject(ctx, adv.ID, *start, adv.PlannedDistanceMeters)
	} else {
		logging.Warn().Str("adventure_id", adv.ID).Msg("no START waypoint, skipping random destination")
	}

	if _, err := s.calculator.Calculate(ctx, adv.ID); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateStatus(ctx, adv.ID, models.StatusCompleted, nil); err != nil {
		return nil, fmt.Errorf("service.Create.MarkCompleted: %w", err)
	}
	*status = models.StatusCompleted
	metrics.AdventuresFinished.WithLabelValues(string(models.StatusCompleted)).Inc()

	result, err := s.FindOne(ctx, adv.ID)
	if err != nil {
		return nil, err
	}
	logging.Info().Str("adventure_id", adv.ID).Int("waypoints", len(result.Waypoints)).
		Int("routes", len(result.Routes)).Int("total_distance_m", result.TotalDistanceMeters).
		Msg("adventure completed")
	return result, nil
}

// markFailed is best effort; its own failure is only logged.
func (s *Service) markFailed(ctx context.Context, adventureID string, cause error) {
	reason := cause.Error()
	metrics.AdventuresFinished.WithLabelValues(string(models.StatusFailed)).Inc()
	if err := s.repo.UpdateStatus(ctx, adventureID, models.StatusFailed, &reason); err != nil {
		logging.Error().Err(err).Str("adventure_id", adventureID).Str("cause", reason).
			Msg("failed to mark adventure as FAILED")
		return
	}
	logging.Warn().Str("adventure_id", adventureID).Str("reason", reason).Msg("adventure failed")
}

func newAdventure(req models.CreateAdventureRequest) (*models.Adventure, []models.Waypoint) {
	adv := &models.Adventure{
		UserID:                req.UserID,
		Status:                models.StatusPlanned,
		PlannedDistanceMeters: req.PlannedDistanceMeters,
		WaypointCount:         len(req.Waypoints),
	}
	waypoints := make([]models.Waypoint, len(req.Waypoints))
	for i, w := range req.Waypoints {
		waypoints[i] = models.Waypoint{
			Sequence:     w.Sequence,
			WaypointType: w.WaypointType,
			POICategory:  w.POICategory,
			Latitude:     w.Latitude,
			Longitude:    w.Longitude,
			LocationName: w.LocationName,
			POISourceID:  w.POISourceID,
			POISource:    w.POISource,
			Address:      w.Address,
		}
	}
	return adv, waypoints
}

func validateCreateRequest(req models.CreateAdventureRequest) error {
	if req.UserID == "" {
		return models.NewValidationError("userId", "is required")
	}
	if req.PlannedDistanceMeters < 0 {
		return models.NewValidationError("plannedDistanceMeters", "must not be negative")
	}
	if len(req.Waypoints) == 0 {
		return models.NewValidationError("waypoints", "at least one waypoint is required")
	}

	starts := 0
	sequences := make(map[int]struct{}, len(req.Waypoints))
	for i, w := range req.Waypoints {
		field := fmt.Sprintf("waypoints[%d]", i)
		if !w.WaypointType.Valid() {
			return models.NewValidationError(field+".waypointType", "unknown type %q", w.WaypointType)
		}
		if w.WaypointType == models.WaypointStart {
			starts++
		}
		if w.Sequence < 0 {
			return models.NewValidationError(field+".sequence", "must not be negative")
		}
		if _, dup := sequences[w.Sequence]; dup {
			return models.NewValidationError(field+".sequence", "duplicate sequence %d", w.Sequence)
		}
		sequences[w.Sequence] = struct{}{}
		if w.Latitude < -90 || w.Latitude > 90 {
			return models.NewValidationError(field+".latitude", "must be within [-90, 90]")
		}
		if w.Longitude < -180 || w.Longitude > 180 {
			return models.NewValidationError(field+".longitude", "must be within [-180, 180]")
		}
	}
	if starts != 1 {
		return models.NewValidationError("waypoints", "exactly one START waypoint is required, got %d", starts)
	}
	return nil
}

// FindOne returns a hydrated adventure or models.ErrNotFound.
func (s *Service) FindOne(ctx context.Context, adventureID string) (*models.Adventure, error) {
	adv, err := s.repo.FindByID(ctx, adventureID)
	if err != nil {
		return nil, fmt.Errorf("service.FindOne: %w", err)
	}
	if err := s.hydrate(ctx, adv); err != nil {
		return nil, fmt.Errorf("service.FindOne: %w", err)
	}
	return adv, nil
}

// FindByUser returns the hydrated adventures of a user, newest first.
func (s *Service) FindByUser(ctx context.Context, userID string) ([]*models.Adventure, error) {
	adventures, err := s.repo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service.FindByUser: %w", err)
	}
	for _, adv := range adventures {
		if err := s.hydrate(ctx, adv); err != nil {
			return nil, fmt.Errorf("service.FindByUser: %w", err)
		}
	}
	if adventures == nil {
		adventures = []*models.Adventure{}
	}
	return adventures, nil
}

// hydrate attaches waypoints and routes and computes the route totals.
func (s *Service) hydrate(ctx context.Context, adv *models.Adventure) error {
	waypoints, err := s.repo.ListWaypoints(ctx, adv.ID)
	if err != nil {
		return err
	}
	routes, err := s.repo.ListRoutes(ctx, adv.ID)
	if err != nil {
		return err
	}

	byID := make(map[string]*models.Waypoint, len(waypoints))
	for i := range waypoints {
		byID[waypoints[i].ID] = &waypoints[i]
	}

	adv.TotalDistanceMeters, adv.TotalDurationMinutes = 0, 0
	for i := range routes {
		routes[i].FromWaypoint = byID[routes[i].FromWaypointID]
		routes[i].ToWaypoint = byID[routes[i].ToWaypointID]
		adv.TotalDistanceMeters += routes[i].DistanceMeters
		adv.TotalDurationMinutes += routes[i].DurationMinutes
	}

	if waypoints == nil {
		waypoints = []models.Waypoint{}
	}
	if routes == nil {
		routes = []models.Route{}
	}
	adv.Waypoints = waypoints
	adv.Routes = routes
	return nil
}

// Remove deletes an adventure with its waypoints and routes.
func (s *Service) Remove(ctx context.Context, adventureID string) error {
	if err := s.repo.Delete(ctx, adventureID); err != nil {
		return fmt.Errorf("service.Remove: %w", err)
	}
	logging.Info().Str("adventure_id", adventureID).Msg("adventure deleted")
	return nil
}

// UpdateStatus moves an adventure forward in its lifecycle. Setting the
// current status again is a no-op. failureReason is kept only for FAILED.
func (s *Service) UpdateStatus(ctx context.Context, adventureID string, req models.UpdateStatusRequest) (*models.Adventure, error) {
	if !req.Status.Valid() {
		return nil, models.NewValidationError("status", "unknown status %q", req.Status)
	}

	adv, err := s.repo.FindByID(ctx, adventureID)
	if err != nil {
		return nil, fmt.Errorf("service.UpdateStatus: %w", err)
	}
	if adv.Status != req.Status {
		if !adv.Status.CanTransitionTo(req.Status) {
			return nil, fmt.Errorf("service.UpdateStatus: %s -> %s: %w", adv.Status, req.Status, models.ErrInvalidStatusTransition)
		}

		var reason *string
		if req.Status == models.StatusFailed {
			r := "marked as failed"
			if req.FailureReason != nil && *req.FailureReason != "" {
				r = *req.FailureReason
			}
			reason = &r
		}
		if err := s.repo.UpdateStatus(ctx, adventureID, req.Status, reason); err != nil {
			return nil, fmt.Errorf("service.UpdateStatus: %w", err)
		}
		if req.Status.IsTerminal() {
			metrics.AdventuresFinished.WithLabelValues(string(req.Status)).Inc()
		}
	}

	return s.FindOne(ctx, adventureID)
}

// GetStats counts adventures per status. Every status is present in the
// result, with zero when there are none.
func (s *Service) GetStats(ctx context.Context, userID string) (*models.AdventureStats, error) {
	stats, err := s.repo.Stats(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service.GetStats: %w", err)
	}
	if stats.StatusCounts == nil {
		stats.StatusCounts = make(map[models.AdventureStatus]int)
	}
	for _, st := range models.AllAdventureStatuses {
		if _, ok := stats.StatusCounts[st]; !ok {
			stats.StatusCounts[st] = 0
		}
	}
	return stats, nil
}
