package services

import (
	"participium/models"
)

// PickLeastLoaded selects, among the staff holding a position, the member
// with the fewest active reports. Staff missing from the caseload map carry
// a load of zero. Ties break on the lowest staff id so the result is
// reproducible given identical input state.
//
// An empty staff list returns ErrNoStaffAvailable; callers must treat it as
// a business outcome, not an infrastructure failure.
func PickLeastLoaded(staff []int64, caseloads map[int64]int) (int64, error) {
	if len(staff) == 0 {
		return 0, models.ErrNoStaffAvailable
	}

	best := staff[0]
	bestLoad := caseloads[best]
	for _, id := range staff[1:] {
		load := caseloads[id]
		if load < bestLoad || (load == bestLoad && id < best) {
			best = id
			bestLoad = load
		}
	}
	return best, nil
}
