package audio

import (
	"reflect"
	"testing"
)

func TestEuclidKnownPatterns(t *testing.T) {
	tests := []struct {
		steps, pulses int
		want          []bool
	}{
		{4, 4, []bool{true, true, true, true}},
		{4, 0, []bool{false, false, false, false}},
		{4, 2, []bool{false, true, false, true}},
		{8, 4, []bool{false, true, false, true, false, true, false, true}},
		{8, 3, []bool{false, false, true, false, false, true, false, true}},
		{16, 1, []bool{
			false, false, false, false, false, false, false, false,
			false, false, false, false, false, false, false, true,
		}},
	}
	for _, test := range tests {
		got := Euclid(test.steps, test.pulses)
		if !reflect.DeepEqual(test.want, got) {
			t.Errorf("Euclid(%d, %d):\nwant: %v\ngot:  %v", test.steps, test.pulses, test.want, got)
		}
	}
}

func TestEuclidPulseCountAndSpacing(t *testing.T) {
	for steps := 1; steps <= 64; steps++ {
		for pulses := 1; pulses <= steps; pulses++ {
			pattern := Euclid(steps, pulses)
			if len(pattern) != steps {
				t.Fatalf("Euclid(%d, %d): wrong length %d", steps, pulses, len(pattern))
			}
			var active []int
			for i, on := range pattern {
				if on {
					active = append(active, i)
				}
			}
			if len(active) != pulses {
				t.Fatalf("Euclid(%d, %d): %d active steps", steps, pulses, len(active))
			}
			// No two gaps between consecutive active steps may differ
			// by more than one.
			minGap, maxGap := steps+1, 0
			for i, pos := range active {
				next := active[(i+1)%len(active)] + steps
				gap := (next - pos) % steps
				if gap == 0 {
					gap = steps
				}
				if len(active) == 1 {
					gap = steps
				}
				if gap < minGap {
					minGap = gap
				}
				if gap > maxGap {
					maxGap = gap
				}
			}
			if maxGap-minGap > 1 {
				t.Fatalf("Euclid(%d, %d): uneven gaps %d..%d in %v", steps, pulses, minGap, maxGap, pattern)
			}
		}
	}
}

func TestEuclidDegenerate(t *testing.T) {
	if got := Euclid(0, 3); got != nil {
		t.Errorf("Euclid(0, 3) = %v, want nil", got)
	}
	if got := Euclid(8, 12); count(got) != 8 {
		t.Errorf("pulses should be bounded by steps, got %v", got)
	}
	if got := Euclid(8, -1); count(got) != 0 {
		t.Errorf("negative pulses should yield empty pattern, got %v", got)
	}
}

func TestRotate(t *testing.T) {
	p := Euclid(8, 3)
	for r := -17; r <= 17; r++ {
		got := Rotate(p, r)
		if count(got) != count(p) {
			t.Fatalf("Rotate(%v, %d) changed pulse count: %v", p, r, got)
		}
		// A rotation is a cyclic permutation.
		n := ((r % 8) + 8) % 8
		for i := range p {
			if got[i] != p[(i+n)%8] {
				t.Fatalf("Rotate(%v, %d) = %v, not a rotation by %d", p, r, got, n)
			}
		}
	}
}

func TestRotateComposition(t *testing.T) {
	p := Euclid(12, 5)
	for r1 := 0; r1 < 12; r1++ {
		for r2 := 0; r2 < 12; r2++ {
			twice := Rotate(Rotate(p, r1), r2)
			once := Rotate(p, (r1+r2)%12)
			if !reflect.DeepEqual(twice, once) {
				t.Fatalf("rotate %d then %d != rotate %d", r1, r2, (r1+r2)%12)
			}
		}
	}
}

func count(p []bool) int {
	var n int
	for _, on := range p {
		if on {
			n++
		}
	}
	return n
}
