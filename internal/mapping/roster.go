package mapping

import (
	"strings"

	"cadbridge/internal/domain"
)

// NoUnitsMarker is what human-facing outputs show for an empty roster.
const NoUnitsMarker = "No units"

// ResolveRoster returns the unique unit names from activity (first) and dispatches (second),
// in order of first occurrence. The result is never nil.
func ResolveRoster(activity []domain.RawActivity, dispatches []domain.RawDispatch) []string {
	names := make([]string, 0, len(activity)+len(dispatches))
	for _, a := range activity {
		if a.IsUnit() {
			names = append(names, a.UnitName)
		}
	}
	for _, d := range dispatches {
		if d.IsUnit() {
			names = append(names, d.UnitName)
		}
	}

	seen := make(map[string]struct{}, len(names))
	roster := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		roster = append(roster, name)
	}
	return roster
}

// FirstUnitLocation returns the location of the first unit dispatch that has one.
func FirstUnitLocation(dispatches []domain.RawDispatch) string {
	for _, d := range dispatches {
		if !d.IsUnit() {
			continue
		}
		if loc := strings.TrimSpace(d.Location); loc != "" {
			return loc
		}
	}
	return ""
}
