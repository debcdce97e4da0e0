package quote

import "testing"

func TestClassify(t *testing.T) {
	prev := func(v float64) *float64 { return &v }

	cases := []struct {
		name     string
		current  float64
		previous *float64
		want     Direction
	}{
		{"first observation", 100.0, nil, DirectionFirst},
		{"up", 101.0, prev(100.0), DirectionUp},
		{"down", 99.5, prev(100.0), DirectionDown},
		{"flat exact", 100.0, prev(100.0), DirectionFlat},
		{"first observation at zero", 0.0, nil, DirectionFirst},
		{"up from zero", 0.01, prev(0.0), DirectionUp},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Classify(tc.current, tc.previous); got != tc.want {
				t.Fatalf("Classify(%v, %v) = %v, want %v", tc.current, tc.previous, got, tc.want)
			}
		})
	}
}

func TestClassifyFirstIsNotFlat(t *testing.T) {
	// A first observation must be distinguishable from an unchanged value
	if Classify(100.0, nil) == DirectionFlat {
		t.Fatal("first observation must not classify as flat")
	}
}
