package maps

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/syonosuke743/portfolio/internal/logging"
	"github.com/syonosuke743/portfolio/internal/metrics"
)

const (
	defaultBaseURL = "https://maps.googleapis.com/maps/api"
	breakerName    = "google-maps"

	nearbySearchPath = "/place/nearbysearch/json"
	directionsPath   = "/directions/json"
)

// Provider envelope statuses.
const (
	statusOK              = "OK"
	statusZeroResults     = "ZERO_RESULTS"
	statusNotFound        = "NOT_FOUND"
	statusRequestDenied   = "REQUEST_DENIED"
	statusOverQueryLimit  = "OVER_QUERY_LIMIT"
	statusOverDailyLimit  = "OVER_DAILY_LIMIT"
	statusInvalidRequest  = "INVALID_REQUEST"
	statusUnknownProvider = "UNKNOWN_ERROR"
)

// GoogleClient implements Client against the Google Places Nearby Search
// and Directions web services.
type GoogleClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker[[]byte]
	recent     *RecentPlaces
	rnd        *Randomizer
}

// Option configures a GoogleClient.
type Option func(*GoogleClient)

// WithBaseURL points the client at another host, e.g. an httptest server.
func WithBaseURL(u string) Option {
	return func(c *GoogleClient) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *GoogleClient) { c.httpClient = h }
}

// WithTimeout sets the per-request timeout on a copy of the current HTTP
// client, so a client passed to WithHTTPClient is never modified.
func WithTimeout(d time.Duration) Option {
	return func(c *GoogleClient) {
		hc := *c.httpClient
		hc.Timeout = d
		c.httpClient = &hc
	}
}

// WithRateLimit caps outgoing requests per second.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *GoogleClient) { c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst) }
}

// WithRecentPlaces shares a recency set between clients.
func WithRecentPlaces(r *RecentPlaces) Option {
	return func(c *GoogleClient) { c.recent = r }
}

// WithRandomizer makes random selection reproducible.
func WithRandomizer(r *Randomizer) Option {
	return func(c *GoogleClient) { c.rnd = r }
}

// NewGoogleClient builds a client. apiKey may be empty; every call will then
// come back REQUEST_DENIED, which surfaces as ErrProviderAuth.
func NewGoogleClient(apiKey string, opts ...Option) *GoogleClient {
	c := &GoogleClient{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(10), 5),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.recent == nil {
		c.recent = NewRecentPlaces(DefaultRecentCapacity)
	}
	if c.rnd == nil {
		c.rnd = NewTimeSeededRandomizer()
	}
	c.breaker = newBreaker(breakerName)
	return c
}

func newBreaker(name string) *gobreaker.CircuitBreaker[[]byte] {
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	return gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        name,
		MaxRequests: 2,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("maps circuit breaker state change")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateValue(to))
		},
		// Credential and quota problems are not provider outages.
		IsSuccessful: func(err error) bool {
			return err == nil || IsFatal(err)
		},
	})
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

// Wire formats of the provider responses. Only the fields we read.

type envelope struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
}

type nearbyResponse struct {
	envelope
	Results []struct {
		PlaceID          string   `json:"place_id"`
		Name             string   `json:"name"`
		Vicinity         string   `json:"vicinity"`
		FormattedAddress string   `json:"formatted_address"`
		Rating           *float64 `json:"rating"`
		Geometry         struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

type directionsResponse struct {
	envelope
	Routes []json.RawMessage `json:"routes"`
}

type directionsRoute struct {
	OverviewPolyline struct {
		Points string `json:"points"`
	} `json:"overview_polyline"`
	Legs []struct {
		Distance struct {
			Value int `json:"value"`
		} `json:"distance"`
		Duration struct {
			Value int `json:"value"`
		} `json:"duration"`
	} `json:"legs"`
}

// SearchPlace returns the first place of category within radius meters of
// center, or nil when there is none.
func (c *GoogleClient) SearchPlace(ctx context.Context, category string, center Coordinates, radius float64) (*Place, error) {
	places, err := c.nearby(ctx, "search_place", category, center, radius)
	if err != nil {
		return nil, err
	}
	if len(places) == 0 {
		logging.Debug().Str("category", category).Str("center", center.String()).Float64("radius", radius).
			Msg("no place found")
		return nil, nil
	}
	p := places[0]
	return &p, nil
}

// SearchRandomPlace searches category at two radii up to maxDistance,
// drops recently chosen places when it can, and draws one candidate
// weighted by distance preference, rating and jitter. It returns nil when
// nothing was found and an error only when every search failed.
func (c *GoogleClient) SearchRandomPlace(ctx context.Context, category string, center Coordinates, maxDistance float64) (*Place, error) {
	radii := searchRadii(ClampRadius(maxDistance))

	seen := make(map[string]struct{})
	var candidates []Place
	var errs []error
	for _, radius := range radii {
		places, err := c.nearby(ctx, "search_random_place", category, center, radius)
		if err != nil {
			logging.Warn().Err(err).Str("category", category).Float64("radius", radius).Msg("random place search failed")
			errs = append(errs, err)
			continue
		}
		for _, p := range places {
			if _, dup := seen[p.ID]; dup {
				continue
			}
			seen[p.ID] = struct{}{}
			candidates = append(candidates, p)
		}
	}

	if len(candidates) == 0 {
		if len(errs) == len(radii) {
			return nil, errors.Join(errs...)
		}
		logging.Debug().Str("category", category).Str("center", center.String()).Msg("no random place candidates")
		return nil, nil
	}

	pool := c.recent.Filter(candidates)
	choice, _ := WeightedChoice(c.rnd, pool, func(p Place) float64 {
		return PlaceWeight(p, center, c.rnd.Jitter())
	})
	c.recent.Add(choice.ID)

	logging.Debug().Str("place_id", choice.ID).Str("name", choice.Name).Int("candidates", len(candidates)).
		Int("pool", len(pool)).Msg("random place selected")
	return &choice, nil
}

// ComputeRoute returns the route from origin to destination. A (0,0)
// endpoint or a provider "no route" answer yields nil without error.
func (c *GoogleClient) ComputeRoute(ctx context.Context, origin, destination Coordinates, mode TravelMode) (*RouteGeometry, error) {
	if origin.IsZero() || destination.IsZero() {
		logging.Debug().Str("origin", origin.String()).Str("destination", destination.String()).
			Msg("route skipped: unresolved endpoint")
		return nil, nil
	}

	params := url.Values{}
	params.Set("origin", origin.String())
	params.Set("destination", destination.String())
	params.Set("mode", string(mode))

	started := time.Now()
	body, err := c.fetch(ctx, "compute_route", directionsPath, params)
	if err != nil {
		return nil, err
	}

	var resp directionsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		metrics.ObserveMapsRequest("compute_route", "error", started)
		return nil, fmt.Errorf("maps: compute_route: decode: %w", err)
	}
	if resp.Status != statusOK || len(resp.Routes) == 0 {
		metrics.ObserveMapsRequest("compute_route", "empty", started)
		return nil, nil
	}

	var route directionsRoute
	if err := json.Unmarshal(resp.Routes[0], &route); err != nil {
		metrics.ObserveMapsRequest("compute_route", "error", started)
		return nil, fmt.Errorf("maps: compute_route: decode route: %w", err)
	}
	if len(route.Legs) == 0 {
		metrics.ObserveMapsRequest("compute_route", "empty", started)
		return nil, nil
	}

	geo := &RouteGeometry{
		Payload:  []byte(resp.Routes[0]),
		Polyline: route.OverviewPolyline.Points,
	}
	seconds := 0
	for _, leg := range route.Legs {
		geo.DistanceMeters += leg.Distance.Value
		seconds += leg.Duration.Value
	}
	geo.DurationMinutes = (seconds + 59) / 60

	metrics.ObserveMapsRequest("compute_route", "ok", started)
	return geo, nil
}

func (c *GoogleClient) nearby(ctx context.Context, op, category string, center Coordinates, radius float64) ([]Place, error) {
	params := url.Values{}
	params.Set("location", center.String())
	params.Set("radius", strconv.Itoa(int(radius)))
	params.Set("type", ProviderType(category))

	started := time.Now()
	body, err := c.fetch(ctx, op, nearbySearchPath, params)
	if err != nil {
		return nil, err
	}

	var resp nearbyResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		metrics.ObserveMapsRequest(op, "error", started)
		return nil, fmt.Errorf("maps: %s: decode: %w", op, err)
	}
	if resp.Status != statusOK {
		metrics.ObserveMapsRequest(op, "empty", started)
		return nil, nil
	}

	places := make([]Place, 0, len(resp.Results))
	for _, r := range resp.Results {
		addr := r.Vicinity
		if addr == "" {
			addr = r.FormattedAddress
		}
		places = append(places, Place{
			ID:       r.PlaceID,
			Name:     r.Name,
			Address:  addr,
			Location: Coordinates{Lat: r.Geometry.Location.Lat, Lng: r.Geometry.Location.Lng},
			Rating:   r.Rating,
		})
	}
	outcome := "ok"
	if len(places) == 0 {
		outcome = "empty"
	}
	metrics.ObserveMapsRequest(op, outcome, started)
	return places, nil
}

// fetch performs one rate limited, breaker protected GET and returns the
// body once the envelope status is known to be OK or an empty answer.
func (c *GoogleClient) fetch(ctx context.Context, op, path string, params url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("maps: %s: rate limiter: %w", op, err)
	}
	params.Set("key", c.apiKey)

	started := time.Now()
	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.get(ctx, c.baseURL+path+"?"+params.Encode())
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.ObserveMapsRequest(op, "rejected", started)
			return nil, fmt.Errorf("maps: %s: %w", op, ErrProviderUnavailable)
		}
		metrics.ObserveMapsRequest(op, "error", started)
		return nil, fmt.Errorf("maps: %s: %w", op, err)
	}
	return body, nil
}

func (c *GoogleClient) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, fmt.Errorf("http %d: %w", resp.StatusCode, ErrProviderAuth)
	case http.StatusTooManyRequests:
		return nil, fmt.Errorf("http %d: %w", resp.StatusCode, ErrQuotaExceeded)
	default:
		return nil, fmt.Errorf("unexpected http status %d", resp.StatusCode)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	if err := statusError(env); err != nil {
		return nil, err
	}
	return body, nil
}

func statusError(env envelope) error {
	switch env.Status {
	case statusOK, statusZeroResults, statusNotFound:
		return nil
	case statusRequestDenied:
		return fmt.Errorf("%s %q: %w", env.Status, env.ErrorMessage, ErrProviderAuth)
	case statusOverQueryLimit, statusOverDailyLimit:
		return fmt.Errorf("%s %q: %w", env.Status, env.ErrorMessage, ErrQuotaExceeded)
	case statusInvalidRequest, statusUnknownProvider:
		return fmt.Errorf("provider status %s: %s", env.Status, env.ErrorMessage)
	default:
		return fmt.Errorf("unexpected provider status %q", env.Status)
	}
}
