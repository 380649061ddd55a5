package filter

import (
	"sort"

	"github.com/railquery/railquery_core/internal/models"
)

// earlyGraceMinutes is how far before an exact requested time a
// departure may still be accepted
const earlyGraceMinutes = 30

// approxWindowMinutes is the half-width of the window around an
// approximate anchor time
const approxWindowMinutes = 30

// Apply drops segments that do not match the requested service type and
// time constraint, then sorts the survivors by departure time. Pure
// function; the input slice is not modified.
func Apply(segments []models.Segment, svcType models.ServiceType, spec models.TimeSpec) []models.Segment {
	kept := make([]models.Segment, 0, len(segments))

	for _, seg := range segments {
		segType, ok := models.NormalizeServiceType(string(seg.TrainType))
		if !ok || segType != svcType {
			continue
		}
		if matchesTime(seg, spec) {
			kept = append(kept, seg)
		}
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return departureKey(kept[i]) < departureKey(kept[j])
	})
	return kept
}

// matchesTime applies the time rule for the spec kind. A segment with
// an unparseable departure is dropped only when a comparison was
// actually required; an unconstrained query keeps it regardless.
func matchesTime(seg models.Segment, spec models.TimeSpec) bool {
	if spec.Kind == models.TimeNone {
		return true
	}

	depart, err := models.ClockMinutes(seg.Depart)
	if err != nil {
		return false
	}

	switch spec.Kind {
	case models.TimeDaypart:
		start, end := spec.Daypart.Window()
		return depart >= start && depart <= end

	case models.TimeApprox:
		anchor, err := models.ClockMinutes(spec.Clock)
		if err != nil {
			return true
		}
		diff := depart - anchor
		if diff < 0 {
			diff = -diff
		}
		return diff <= approxWindowMinutes

	case models.TimeExact:
		want, err := models.ClockMinutes(spec.Clock)
		if err != nil {
			return true
		}
		return depart-want >= -earlyGraceMinutes
	}
	return true
}

// departureKey orders segments by departure clock; unparseable times
// sort last
func departureKey(seg models.Segment) int {
	minutes, err := models.ClockMinutes(seg.Depart)
	if err != nil {
		return 1 << 20
	}
	return minutes
}
