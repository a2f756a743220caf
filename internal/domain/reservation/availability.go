package reservation

import "staybook/internal/domain/shared/daterange"

// Conflicts returns the reservations whose date range overlaps the candidate
// under half-open semantics. Non-blocking (cancelled/expired) entries never
// conflict; callers run an expiration sweep first so stale holds do not block
// legitimate requests.
func Conflicts(existing []*Reservation, dr daterange.DateRange) []*Reservation {
	var out []*Reservation
	for _, r := range existing {
		if !r.Status.Blocking() {
			continue
		}
		if dr.Overlaps(r.Range) {
			out = append(out, r)
		}
	}
	return out
}

// IsAvailable reports whether the candidate range is free of conflicts.
func IsAvailable(existing []*Reservation, dr daterange.DateRange) bool {
	return len(Conflicts(existing, dr)) == 0
}
