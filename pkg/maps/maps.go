// Package maps is the places search and walking route client used by the
// adventure pipeline. GoogleClient talks to the Google Maps web services;
// CachedClient adds a short-lived route cache in front of any Client.
package maps

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// Search radius bounds in meters.
const (
	MinSearchRadius = 500.0
	MaxSearchRadius = 5000.0
)

var (
	// ErrProviderAuth means the provider rejected our credentials.
	ErrProviderAuth = errors.New("maps: provider rejected credentials")
	// ErrQuotaExceeded means the provider quota or rate limit was hit.
	ErrQuotaExceeded = errors.New("maps: provider quota exceeded")
	// ErrProviderUnavailable is returned while the circuit breaker is open.
	ErrProviderUnavailable = errors.New("maps: provider unavailable")
)

// IsFatal reports whether err must stop the pipeline instead of being
// treated as a single failed item.
func IsFatal(err error) bool {
	return errors.Is(err, ErrProviderAuth) || errors.Is(err, ErrQuotaExceeded)
}

// TravelMode selects the directions profile.
type TravelMode string

const (
	Walking TravelMode = "walking"
	Driving TravelMode = "driving"
	Transit TravelMode = "transit"
)

// Coordinates is a WGS84 point.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// IsZero reports whether c is exactly (0,0), which we treat as unset.
func (c Coordinates) IsZero() bool {
	return c.Lat == 0 && c.Lng == 0
}

func (c Coordinates) String() string {
	return fmt.Sprintf("%f,%f", c.Lat, c.Lng)
}

// Place is a normalized search result.
type Place struct {
	ID       string      `json:"placeId"`
	Name     string      `json:"name"`
	Address  string      `json:"address"`
	Location Coordinates `json:"location"`
	Rating   *float64    `json:"rating,omitempty"`
}

// RouteGeometry is a normalized directions result.
type RouteGeometry struct {
	Payload         []byte // raw provider route object
	Polyline        string
	DistanceMeters  int
	DurationMinutes int
}

// Client is the contract the adventure pipeline consumes.
type Client interface {
	SearchPlace(ctx context.Context, category string, center Coordinates, radius float64) (*Place, error)
	SearchRandomPlace(ctx context.Context, category string, center Coordinates, maxDistance float64) (*Place, error)
	ComputeRoute(ctx context.Context, origin, destination Coordinates, mode TravelMode) (*RouteGeometry, error)
}

// categoryTypes maps POI categories offered to users onto provider place types.
var categoryTypes = map[string]string{
	"food":               "restaurant",
	"cafe":               "cafe",
	"shopping":           "shopping_mall",
	"tourist_attraction": "tourist_attraction",
	"park":               "park",
	"place_of_worship":   "place_of_worship",
	"museum":             "museum",
	"entertainment":      "amusement_park",
	"amusement_park":     "amusement_park",
}

// ProviderType returns the provider place type for category. Unknown
// categories pass through unchanged.
func ProviderType(category string) string {
	if t, ok := categoryTypes[category]; ok {
		return t
	}
	return category
}

// ClampRadius bounds a requested distance to the supported search radius.
func ClampRadius(distance float64) float64 {
	return math.Max(MinSearchRadius, math.Min(distance, MaxSearchRadius))
}

// searchRadii returns the radii used for a diversified search up to r.
func searchRadii(r float64) []float64 {
	half := math.Max(MinSearchRadius, r/2)
	if half >= r {
		return []float64{r}
	}
	return []float64{half, r}
}
