package dub

// StepExpr selects steps of a sequencer pattern. Step numbers in the
// expression are 1-based; Eval returns 0-based indices.
type StepExpr struct {
	matcher stepMatcher
	stride  int // keep every Nth matched step, 0 or 1 = all
}

type stepMatcher interface {
	match(i int) bool
}

type rangeMatch struct {
	start, end int
}

func (r rangeMatch) match(i int) bool {
	return (i >= r.start || r.start == -1) && (i <= r.end || r.end == -1)
}

var matchAll = rangeMatch{-1, -1}

type listMatch []int

func (l listMatch) match(i int) bool {
	for _, k := range l {
		if k == i {
			return true
		}
	}
	return false
}

// Eval resolves the expression against an engine's step count.
// Out-of-range selections are dropped rather than reported; editing
// "steps 9:16" of an 8-step pattern edits nothing.
func (e StepExpr) Eval(steps int) []int {
	if e.matcher == nil {
		return nil
	}
	var out []int
	matched := 0
	for i := 1; i <= steps; i++ {
		if !e.matcher.match(i) {
			continue
		}
		if e.stride <= 1 || matched%e.stride == 0 {
			out = append(out, i-1)
		}
		matched++
	}
	return out
}
