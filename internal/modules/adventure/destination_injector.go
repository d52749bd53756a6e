package adventure

import (
	"context"

	"github.com/syonosuke743/portfolio/internal/logging"
	"github.com/syonosuke743/portfolio/internal/models"
	"github.com/syonosuke743/portfolio/pkg/maps"
)

// DestinationCategories are the categories a surprise destination is drawn from.
var DestinationCategories = []string{
	"tourist_attraction",
	"park",
	"place_of_worship",
	"museum",
	"amusement_park",
}

// DestinationInjector appends a randomly chosen place as the new final
// DESTINATION of an adventure.
type DestinationInjector struct {
	repo   RepositoryInterface
	places PlacesClient
	rnd    *maps.Randomizer
}

// NewDestinationInjector creates an injector. A nil rnd uses a clock seed.
func NewDestinationInjector(repo RepositoryInterface, places PlacesClient, rnd *maps.Randomizer) *DestinationInjector {
	if rnd == nil {
		rnd = maps.NewTimeSeededRandomizer()
	}
	return &DestinationInjector{repo: repo, places: places, rnd: rnd}
}

// Inject never fails the pipeline. When no place can be found or stored the
// adventure is left exactly as it was.
func (d *DestinationInjector) Inject(ctx context.Context, adventureID string, start models.Waypoint, plannedDistance int) PhaseReport {
	report := newPhaseReport(PhaseInject)
	category := DestinationCategories[d.rnd.IntN(len(DestinationCategories))]
	const item = "random destination"

	anchor := maps.Coordinates{Lat: start.Latitude, Lng: start.Longitude}
	place, err := d.places.SearchRandomPlace(ctx, category, anchor, float64(plannedDistance))
	if err != nil {
		report.record(item, OutcomeFailed, err.Error())
		logging.Warn().Err(err).Str("adventure_id", adventureID).Str("category", category).
			Msg("random destination search failed")
		return report
	}
	if place == nil {
		report.record(item, OutcomeFailed, "no place found")
		logging.Warn().Str("adventure_id", adventureID).Str("category", category).
			Msg("no random destination found")
		return report
	}

	wp := &models.Waypoint{
		POICategory:  &category,
		Latitude:     place.Location.Lat,
		Longitude:    place.Location.Lng,
		LocationName: optional(place.Name),
		POISourceID:  optional(place.ID),
		POISource:    models.SourceRandomPlace,
		Address:      optional(place.Address),
	}
	if err := d.repo.InjectDestination(ctx, adventureID, wp); err != nil {
		report.record(item, OutcomeFailed, err.Error())
		logging.Warn().Err(err).Str("adventure_id", adventureID).Msg("failed to store random destination")
		return report
	}

	report.record(item, OutcomeSuccess, "")
	logging.Info().Str("adventure_id", adventureID).Str("category", category).Str("place", place.Name).
		Int("sequence", wp.Sequence).Msg("random destination added")
	return report
}
