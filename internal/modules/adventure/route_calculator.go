package adventure

import (
	"context"
	"fmt"

	"github.com/syonosuke743/portfolio/internal/logging"
	"github.com/syonosuke743/portfolio/internal/models"
	"github.com/syonosuke743/portfolio/pkg/maps"
)

// RouteSummary is the result of a route calculation pass.
type RouteSummary struct {
	PhaseReport
	TotalDistanceMeters  int `json:"totalDistanceMeters"`
	TotalDurationMinutes int `json:"totalDurationMinutes"`
}

// RouteCalculator computes and stores a walking route for every consecutive
// pair of waypoints.
type RouteCalculator struct {
	repo   RepositoryInterface
	places PlacesClient
}

// NewRouteCalculator creates a calculator.
func NewRouteCalculator(repo RepositoryInterface, places PlacesClient) *RouteCalculator {
	return &RouteCalculator{repo: repo, places: places}
}

// Calculate reads the final waypoint order from storage and routes each
// pair. A failed pair leaves a gap; failing to read the waypoints or a
// fatal provider error is returned.
func (c *RouteCalculator) Calculate(ctx context.Context, adventureID string) (*RouteSummary, error) {
	summary := &RouteSummary{PhaseReport: newPhaseReport(PhaseRoutes)}

	waypoints, err := c.repo.ListWaypoints(ctx, adventureID)
	if err != nil {
		return summary, fmt.Errorf("calculate routes: %w", err)
	}
	if len(waypoints) < 2 {
		logging.Warn().Str("adventure_id", adventureID).Int("waypoints", len(waypoints)).
			Msg("not enough waypoints to calculate routes")
		return summary, nil
	}

	for i := 0; i < len(waypoints)-1; i++ {
		from, to := &waypoints[i], &waypoints[i+1]
		item := fmt.Sprintf("%d -> %d", from.Sequence, to.Sequence)

		geo, err := c.places.ComputeRoute(ctx,
			maps.Coordinates{Lat: from.Latitude, Lng: from.Longitude},
			maps.Coordinates{Lat: to.Latitude, Lng: to.Longitude},
			maps.Walking,
		)
		if err != nil {
			summary.record(item, OutcomeFailed, err.Error())
			if maps.IsFatal(err) {
				return summary, fmt.Errorf("route %s: %w", item, err)
			}
			logging.Warn().Err(err).Str("adventure_id", adventureID).Str("pair", item).Msg("route request failed")
			continue
		}
		if geo == nil {
			summary.record(item, OutcomeFailed, "no route found")
			logging.Warn().Str("adventure_id", adventureID).Str("from", from.Label()).Str("to", to.Label()).
				Msg("no route between waypoints")
			continue
		}

		route := &models.Route{
			AdventureID:        adventureID,
			FromWaypointID:     from.ID,
			ToWaypointID:       to.ID,
			RouteJSON:          geo.Payload,
			Polyline:           geo.Polyline,
			DistanceMeters:     geo.DistanceMeters,
			DurationMinutes:    geo.DurationMinutes,
			TransportationMode: models.TransportationWalking,
		}
		if err := c.repo.CreateRoute(ctx, route); err != nil {
			summary.record(item, OutcomeFailed, err.Error())
			logging.Warn().Err(err).Str("adventure_id", adventureID).Str("pair", item).Msg("failed to store route")
			continue
		}

		summary.TotalDistanceMeters += geo.DistanceMeters
		summary.TotalDurationMinutes += geo.DurationMinutes
		summary.record(item, OutcomeSuccess, "")
	}

	logging.Info().Str("adventure_id", adventureID).
		Int("routes", summary.Count(OutcomeSuccess)).
		Int("failed", summary.Count(OutcomeFailed)).
		Int("total_distance_m", summary.TotalDistanceMeters).
		Int("total_duration_min", summary.TotalDurationMinutes).
		Msg("routes calculated")
	return summary, nil
}
