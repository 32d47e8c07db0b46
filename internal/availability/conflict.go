package availability

// FirstConflict returns the first existing interval that overlaps candidate.
// existing does not need to be sorted.
func FirstConflict(existing []Interval, candidate Interval) (Interval, bool) {
	for _, e := range existing {
		if candidate.Overlaps(e) {
			return e, true
		}
	}
	return Interval{}, false
}

// HasConflict reports whether candidate overlaps any existing booking.
func HasConflict(existing []Interval, candidate Interval) bool {
	_, ok := FirstConflict(existing, candidate)
	return ok
}
