package mapping

import (
	"sort"
	"strings"
	"time"

	"cadbridge/internal/domain"
)

// ReconcileTimestamps derives the five lifecycle timestamps from the activity log. For each
// status code the first matching unit entry with a timestamp wins, in the order given.
//
//	en-route         first 5
//	on-scene         first 6
//	at-patient       first 3, else on-scene
//	cleared          first 8, else first 0/2, else closedAt
//	back-in-service  first 8, else first 0/2
//
// closedAt comes from the incident record, not a unit, so it never stands in for back-in-service.
func ReconcileTimestamps(activity []domain.RawActivity, closedAt string) domain.Timestamps {
	var ts domain.Timestamps

	ts.EnRoute = firstWithStatus(activity, isStatus(domain.StatusEnRoute))
	ts.OnScene = firstWithStatus(activity, isStatus(domain.StatusOnScene))

	ts.AtPatient = firstWithStatus(activity, isStatus(domain.StatusAtPatient))
	if ts.AtPatient == "" {
		ts.AtPatient = ts.OnScene
	}

	returning := firstWithStatus(activity, isStatus(domain.StatusReturning))
	available := firstWithStatus(activity, domain.StatusCode.IsAvailable)

	ts.Cleared = firstNonEmpty(returning, available, strings.TrimSpace(closedAt))
	ts.BackInService = firstNonEmpty(returning, available)

	return ts
}

func isStatus(want domain.StatusCode) func(domain.StatusCode) bool {
	return func(s domain.StatusCode) bool { return s == want }
}

func firstWithStatus(activity []domain.RawActivity, match func(domain.StatusCode) bool) string {
	for _, a := range activity {
		if !a.IsUnit() || !match(a.Status) {
			continue
		}
		if ts := strings.TrimSpace(a.Timestamp); ts != "" {
			return ts
		}
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// filterByUnit keeps only the activity of one unit (legacy single-unit mode).
func filterByUnit(activity []domain.RawActivity, unit string) []domain.RawActivity {
	unit = strings.TrimSpace(unit)
	filtered := make([]domain.RawActivity, 0, len(activity))
	for _, a := range activity {
		if strings.EqualFold(strings.TrimSpace(a.UnitName), unit) {
			filtered = append(filtered, a)
		}
	}
	return filtered
}

// sortChronologically returns a copy ordered by timestamp. Entries whose timestamp does not
// parse keep their relative order after the parsed ones.
func sortChronologically(activity []domain.RawActivity) []domain.RawActivity {
	type keyed struct {
		entry  domain.RawActivity
		at     time.Time
		parsed bool
	}

	items := make([]keyed, len(activity))
	for i, a := range activity {
		at, err := time.Parse(time.RFC3339, strings.TrimSpace(a.Timestamp))
		items[i] = keyed{entry: a, at: at, parsed: err == nil}
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].parsed != items[j].parsed {
			return items[i].parsed
		}
		if !items[i].parsed {
			return false
		}
		return items[i].at.Before(items[j].at)
	})

	sorted := make([]domain.RawActivity, len(items))
	for i, it := range items {
		sorted[i] = it.entry
	}
	return sorted
}
