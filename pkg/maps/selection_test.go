package maps

import (
	"math"
	"reflect"
	"testing"
)

func almostEqual(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestDistanceWeight(t *testing.T) {
	tests := []struct {
		meters float64
		want   float64
	}{
		{0, 0.1},
		{25, 0.1},
		{250, 0.5},
		{500, 1},
		{1200, 1},
		{2000, 1},
		{3500, 0.5},
		{5000, 0.1},
		{9000, 0.1},
	}
	for _, tt := range tests {
		if got := DistanceWeight(tt.meters); !almostEqual(got, tt.want) {
			t.Errorf("DistanceWeight(%v) = %v; want %v", tt.meters, got, tt.want)
		}
	}
}

func TestRatingWeight(t *testing.T) {
	f := func(v float64) *float64 { return &v }
	tests := []struct {
		rating *float64
		want   float64
	}{
		{nil, 0.6},
		{f(5), 1},
		{f(4), 0.8},
		{f(1), 0.5},
		{f(0), 0.5},
	}
	for _, tt := range tests {
		if got := RatingWeight(tt.rating); !almostEqual(got, tt.want) {
			t.Errorf("RatingWeight(%v) = %v; want %v", tt.rating, got, tt.want)
		}
	}
}

func TestClampRadiusAndSearchRadii(t *testing.T) {
	tests := []struct {
		distance float64
		want     []float64
	}{
		{100, []float64{500}},
		{500, []float64{500}},
		{800, []float64{500, 800}},
		{3000, []float64{1500, 3000}},
		{20000, []float64{2500, 5000}},
	}
	for _, tt := range tests {
		if got := searchRadii(ClampRadius(tt.distance)); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("searchRadii(ClampRadius(%v)) = %v; want %v", tt.distance, got, tt.want)
		}
	}
}

func TestWeightedChoice(t *testing.T) {
	rnd := NewRandomizer(7)

	if _, ok := WeightedChoice(rnd, []string{}, func(string) float64 { return 1 }); ok {
		t.Error("WeightedChoice on empty input returned ok")
	}

	items := []string{"never", "always"}
	for i := 0; i < 100; i++ {
		got, ok := WeightedChoice(rnd, items, func(s string) float64 {
			if s == "never" {
				return 0
			}
			return 1
		})
		if !ok || got != "always" {
			t.Fatalf("WeightedChoice = %q, %v; want always", got, ok)
		}
	}

	got, ok := WeightedChoice(rnd, items, func(string) float64 { return 0 })
	if !ok || (got != "never" && got != "always") {
		t.Errorf("all-zero WeightedChoice = %q, %v; want a uniform pick", got, ok)
	}
}

func TestWeightedChoiceFavorsHeavierItems(t *testing.T) {
	rnd := NewRandomizer(1)
	counts := map[string]int{}
	for i := 0; i < 4000; i++ {
		got, _ := WeightedChoice(rnd, []string{"light", "heavy"}, func(s string) float64 {
			if s == "heavy" {
				return 3
			}
			return 1
		})
		counts[got]++
	}
	ratio := float64(counts["heavy"]) / float64(counts["light"])
	if ratio < 2.5 || ratio > 3.5 {
		t.Errorf("heavy/light ratio = %.2f; want about 3 (counts %v)", ratio, counts)
	}
}

func TestRandomizerIsReproducible(t *testing.T) {
	a, b := NewRandomizer(99), NewRandomizer(99)
	for i := 0; i < 10; i++ {
		if x, y := a.Float64(), b.Float64(); x != y {
			t.Fatalf("draw %d differs: %v vs %v", i, x, y)
		}
	}
	for i := 0; i < 100; i++ {
		if j := a.Jitter(); j < 0.5 || j > 1 {
			t.Fatalf("Jitter = %v; want within [0.5, 1]", j)
		}
	}
}

func TestHaversineMeters(t *testing.T) {
	a := Coordinates{Lat: 35, Lng: 139}
	b := Coordinates{Lat: 36, Lng: 139}
	if got := HaversineMeters(a, b); math.Abs(got-111195) > 50 {
		t.Errorf("HaversineMeters one degree of latitude = %v; want about 111195", got)
	}
	if got := HaversineMeters(a, a); got != 0 {
		t.Errorf("HaversineMeters same point = %v; want 0", got)
	}
}

func TestProviderType(t *testing.T) {
	tests := map[string]string{
		"food":          "restaurant",
		"shopping":      "shopping_mall",
		"entertainment": "amusement_park",
		"cafe":          "cafe",
		"bakery":        "bakery",
	}
	for in, want := range tests {
		if got := ProviderType(in); got != want {
			t.Errorf("ProviderType(%q) = %q; want %q", in, got, want)
		}
	}
}
