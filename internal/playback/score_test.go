package playback

import (
	"math"
	"testing"
)

func TestScoreBoundaries(t *testing.T) {
	cases := []struct {
		removed, total int
		want           float64
	}{
		{0, 4, 0},
		{4, 4, 1000000},
		{1, 1, 1000000},
		{0, 0, 0},
		{2, 4, 900000.0/4*2 + 100000.0/12*2},
	}
	for _, tc := range cases {
		if got := Score(tc.removed, tc.total); math.Abs(got-tc.want) > 1e-6 {
			t.Errorf("Score(%d, %d) = %v, want %v", tc.removed, tc.total, got, tc.want)
		}
	}
}

func TestTP(t *testing.T) {
	if got := TP(2, 4); got != 50 {
		t.Fatalf("TP(2, 4) = %v", got)
	}
	if got := TP(0, 0); got != 0 {
		t.Fatalf("TP(0, 0) = %v", got)
	}
}
