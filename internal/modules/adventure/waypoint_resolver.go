package adventure

import (
	"context"
	"fmt"

	"github.com/syonosuke743/portfolio/internal/logging"
	"github.com/syonosuke743/portfolio/internal/models"
	"github.com/syonosuke743/portfolio/pkg/maps"
)

// WaypointResolver replaces the coordinates of category waypoints with a
// real place found near the START waypoint.
type WaypointResolver struct {
	repo   RepositoryInterface
	places PlacesClient
}

// NewWaypointResolver creates a resolver.
func NewWaypointResolver(repo RepositoryInterface, places PlacesClient) *WaypointResolver {
	return &WaypointResolver{repo: repo, places: places}
}

func itemLabel(wp *models.Waypoint) string {
	return fmt.Sprintf("waypoint %d (%s)", wp.Sequence, wp.WaypointType)
}

// Resolve searches a place for every waypoint that has a category, is not
// START and was not placed by geolocation. Successful matches are written
// to storage and to waypoints in place. Per-waypoint problems are recorded
// in the report; only a fatal provider error is returned.
func (r *WaypointResolver) Resolve(ctx context.Context, adventureID string, plannedDistance int, waypoints []models.Waypoint) (PhaseReport, error) {
	report := newPhaseReport(PhaseResolve)

	start := models.FindStart(waypoints)
	if start == nil {
		logging.Warn().Str("adventure_id", adventureID).Msg("no START waypoint, skipping coordinate resolution")
		return report, nil
	}
	anchor := maps.Coordinates{Lat: start.Latitude, Lng: start.Longitude}
	radius := maps.ClampRadius(float64(plannedDistance))

	for i := range waypoints {
		wp := &waypoints[i]
		label := itemLabel(wp)

		switch {
		case wp.WaypointType == models.WaypointStart:
			report.record(label, OutcomeSkipped, "start waypoint")
			continue
		case wp.POISource == models.SourceGeolocation:
			report.record(label, OutcomeSkipped, "geolocation source")
			continue
		case wp.Category() == "":
			report.record(label, OutcomeSkipped, "no category")
			continue
		}

		place, err := r.places.SearchPlace(ctx, wp.Category(), anchor, radius)
		if err != nil {
			report.record(label, OutcomeFailed, err.Error())
			if maps.IsFatal(err) {
				return report, fmt.Errorf("resolve %s: %w", label, err)
			}
			logging.Warn().Err(err).Str("adventure_id", adventureID).Int("sequence", wp.Sequence).
				Str("category", wp.Category()).Msg("place search failed")
			continue
		}
		if place == nil {
			report.record(label, OutcomeFailed, "no place found")
			logging.Warn().Str("adventure_id", adventureID).Int("sequence", wp.Sequence).
				Str("category", wp.Category()).Float64("radius", radius).Msg("no place found for waypoint")
			continue
		}

		update := LocationUpdate{
			Latitude:     place.Location.Lat,
			Longitude:    place.Location.Lng,
			Address:      optional(place.Address),
			LocationName: optional(place.Name),
			POISourceID:  optional(place.ID),
		}
		if err := r.repo.UpdateWaypointLocation(ctx, wp.ID, update); err != nil {
			report.record(label, OutcomeFailed, err.Error())
			logging.Warn().Err(err).Str("adventure_id", adventureID).Str("waypoint_id", wp.ID).
				Msg("failed to store resolved waypoint")
			continue
		}

		wp.Latitude, wp.Longitude = update.Latitude, update.Longitude
		wp.Address, wp.LocationName = update.Address, update.LocationName
		if update.POISourceID != nil {
			wp.POISourceID = update.POISourceID
		}
		report.record(label, OutcomeSuccess, "")
		logging.Debug().Str("adventure_id", adventureID).Int("sequence", wp.Sequence).
			Str("place", place.Name).Msg("waypoint resolved")
	}

	logging.Info().Str("adventure_id", adventureID).Int("resolved", report.Count(OutcomeSuccess)).
		Int("failed", report.Count(OutcomeFailed)).Msg("waypoint coordinates resolved")
	return report, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
