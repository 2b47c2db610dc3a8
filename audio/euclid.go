package audio

// Euclid distributes pulses active steps as evenly as possible across
// steps slots using a fixed-point accumulator. Non-positive inputs
// yield an all-false pattern; pulses is bounded by steps.
func Euclid(steps, pulses int) []bool {
	if steps <= 0 {
		return nil
	}
	pattern := make([]bool, steps)
	if pulses <= 0 {
		return pattern
	}
	if pulses > steps {
		pulses = steps
	}
	acc := 0
	for i := range pattern {
		acc += pulses
		if acc >= steps {
			acc -= steps
			pattern[i] = true
		}
	}
	return pattern
}

// Rotate returns pattern rotated left by n steps. Negative n rotates
// right; the rotation is always reduced to a non-negative amount.
func Rotate(pattern []bool, n int) []bool {
	size := len(pattern)
	if size == 0 {
		return nil
	}
	n = ((n % size) + size) % size
	out := make([]bool, size)
	for i := range pattern {
		out[i] = pattern[(i+n)%size]
	}
	return out
}
