package mapping

import (
	"strings"

	"cadbridge/internal/domain"
)

// Options selects the behavioural variants of the transform.
type Options struct {
	// SelectedUnit restricts timestamp reconciliation to one unit's activity. Empty means the
	// whole activity log is used.
	SelectedUnit string
	// SortActivity orders activity by timestamp before reconciliation instead of trusting the
	// order the platform sent.
	SortActivity bool
	Response     ResponseRules
}

// Transformer turns raw platform data into a DerivedIncident. It holds configuration only and
// is safe for concurrent use.
type Transformer struct {
	opts Options
}

func NewTransformer(opts Options) *Transformer {
	return &Transformer{opts: opts}
}

// Transform is a pure function of its inputs: the same incident and extra data always yield
// an equal DerivedIncident.
func (t *Transformer) Transform(incident domain.RawIncident, extra domain.ExtraData) domain.DerivedIncident {
	nature := strings.TrimSpace(incident.Nature)
	note := strings.TrimSpace(incident.Note)
	description := Describe(nature, note)

	addr := ParseAddress(incident.Address)
	lat, lon := ParseCoordinates(incident.Coordinates)
	first, last := ParseName(incident.ContactName)

	activity := extra.Activity
	if t.opts.SelectedUnit != "" {
		activity = filterByUnit(activity, t.opts.SelectedUnit)
	}
	if t.opts.SortActivity {
		activity = sortChronologically(activity)
	}
	ts := ReconcileTimestamps(activity, incident.ClosedAt)

	id := strings.TrimSpace(incident.ID)
	runNumber := strings.TrimSpace(incident.CadNumber)
	if runNumber == "" {
		runNumber = id
	}

	return domain.DerivedIncident{
		IncidentID:   id,
		DispatchTime: strings.TrimSpace(incident.CreatedAt),
		CallType:     strings.TrimSpace(incident.Name),
		Nature:       nature,
		Note:         note,
		Description:  description,

		Units:        ResolveRoster(extra.Activity, extra.Dispatches),
		UnitLocation: FirstUnitLocation(extra.Dispatches),

		Address: addr.Full,
		Street:  addr.Street,
		City:    addr.City,
		State:   addr.State,
		Zip:     addr.Zip,

		Latitude:  lat,
		Longitude: lon,

		Priority:     strings.TrimSpace(incident.Priority.ID),
		ResponseMode: ClassifyResponse(description, incident.Priority, t.opts.Response),

		EnRoute:       ts.EnRoute,
		OnScene:       ts.OnScene,
		AtPatient:     ts.AtPatient,
		Cleared:       ts.Cleared,
		BackInService: ts.BackInService,

		PatientFirstName: first,
		PatientLastName:  last,
		PatientPhone:     strings.TrimSpace(incident.ContactInfo),
		PatientDOB:       strings.TrimSpace(incident.ExternalID),

		RunNumber: runNumber,
	}
}
