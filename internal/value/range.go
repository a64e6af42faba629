package value

import "fmt"

// Range is an integer interval. Either bound may be open.
type Range struct {
	Start     int64
	End       int64
	HasStart  bool
	HasEnd    bool
	Inclusive bool
}

// Bounds resolves the range against a container of size n, returning a
// half-open [from, to) window.
func (r *Range) Bounds(n int) (int, int, error) {
	from, to := 0, n
	if r.HasStart {
		from = int(r.Start)
	}
	if r.HasEnd {
		to = int(r.End)
		if r.Inclusive {
			to++
		}
	}
	if from < 0 || to > n || from > to {
		return 0, 0, fmt.Errorf("range %s is out of bounds for size %d", r, n)
	}
	return from, to, nil
}

// Size returns the number of integers in a bounded range.
func (r *Range) Size() (int, error) {
	if !r.HasStart || !r.HasEnd {
		return 0, fmt.Errorf("open range %s has no size", r)
	}
	end := r.End
	if r.Inclusive {
		end++
	}
	if end < r.Start {
		return int(r.Start - end), nil
	}
	return int(end - r.Start), nil
}

func (r *Range) Contains(n float64) bool {
	if r.HasStart && n < float64(r.Start) {
		return false
	}
	if r.HasEnd {
		if r.Inclusive {
			return n <= float64(r.End)
		}
		return n < float64(r.End)
	}
	return true
}

func (r *Range) String() string {
	s := ""
	if r.HasStart {
		s = fmt.Sprint(r.Start)
	}
	if r.Inclusive {
		s += "..="
	} else {
		s += ".."
	}
	if r.HasEnd {
		s += fmt.Sprint(r.End)
	}
	return s
}
