package maps

import (
	"math"
	"math/rand/v2"
	"sync"
	"time"
)

// Distance preference bounds in meters. Places between the two are equally
// preferred.
const (
	preferredMinDistance = 500.0
	preferredMaxDistance = 2000.0
	decaySpan            = 3000.0
	minDistanceWeight    = 0.1
	defaultRating        = 3.0
)

// DistanceWeight ramps up linearly to 500m, is flat to 2000m and decays
// linearly afterwards. Never below 0.1.
func DistanceWeight(meters float64) float64 {
	var w float64
	switch {
	case meters < preferredMinDistance:
		w = meters / preferredMinDistance
	case meters <= preferredMaxDistance:
		w = 1
	default:
		w = 1 - (meters-preferredMaxDistance)/decaySpan
	}
	return math.Max(minDistanceWeight, w)
}

// RatingWeight is max(0.5, rating/5), with 3.0 assumed for unrated places.
func RatingWeight(rating *float64) float64 {
	r := defaultRating
	if rating != nil {
		r = *rating
	}
	return math.Max(0.5, r/5)
}

// PlaceWeight combines distance preference, rating and a jitter factor.
func PlaceWeight(p Place, anchor Coordinates, jitter float64) float64 {
	return DistanceWeight(HaversineMeters(anchor, p.Location)) * RatingWeight(p.Rating) * jitter
}

// WeightedChoice draws one item with probability proportional to its weight.
// weight is called exactly once per item. Non-positive weights are never
// chosen unless every weight is non-positive, in which case the draw is
// uniform.
func WeightedChoice[T any](rnd *Randomizer, items []T, weight func(T) float64) (T, bool) {
	var zero T
	if len(items) == 0 {
		return zero, false
	}

	weights := make([]float64, len(items))
	total := 0.0
	for i, it := range items {
		w := weight(it)
		if w < 0 || math.IsNaN(w) {
			w = 0
		}
		weights[i] = w
		total += w
	}
	if total == 0 {
		return items[rnd.IntN(len(items))], true
	}

	target := rnd.Float64() * total
	for i, w := range weights {
		if target < w {
			return items[i], true
		}
		target -= w
	}
	// Floating point leftovers land on the last positive weight.
	for i := len(items) - 1; i >= 0; i-- {
		if weights[i] > 0 {
			return items[i], true
		}
	}
	return items[len(items)-1], true
}

// HaversineMeters computes the great-circle distance between two points.
func HaversineMeters(a, b Coordinates) float64 {
	const earthRadiusM = 6_371_000.0
	const deg2rad = math.Pi / 180.0

	dLat := (b.Lat - a.Lat) * deg2rad
	dLng := (b.Lng - a.Lng) * deg2rad
	sinDLat := math.Sin(dLat / 2)
	sinDLng := math.Sin(dLng / 2)
	h := sinDLat*sinDLat + math.Cos(a.Lat*deg2rad)*math.Cos(b.Lat*deg2rad)*sinDLng*sinDLng
	return 2 * earthRadiusM * math.Asin(math.Sqrt(h))
}

// Randomizer is a goroutine-safe random source. Tests seed it for
// reproducible draws.
type Randomizer struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewRandomizer returns a Randomizer with a fixed seed.
func NewRandomizer(seed uint64) *Randomizer {
	return &Randomizer{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// NewTimeSeededRandomizer returns a Randomizer seeded from the clock.
func NewTimeSeededRandomizer() *Randomizer {
	return NewRandomizer(uint64(time.Now().UnixNano()))
}

// Float64 returns a value in [0, 1).
func (r *Randomizer) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.r.Float64()
}

// IntN returns a value in [0, n). n must be positive.
func (r *Randomizer) IntN(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.r.IntN(n)
}

// Jitter returns a value in [0.5, 1.0].
func (r *Randomizer) Jitter() float64 {
	return 0.5 + 0.5*r.Float64()
}
