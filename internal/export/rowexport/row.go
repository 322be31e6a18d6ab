// Package rowexport renders a derived incident into one "Call Data" sheet row.
package rowexport

import (
	"strings"
	"time"

	"cadbridge/internal/domain"
	"cadbridge/internal/mapping"
)

// SheetName is the tab the rows are written to.
const SheetName = "Call Data"

// Header is the fixed column order of the sheet.
var Header = []string{
	"Timestamp", "Call ID", "Call Type", "Nature", "Note", "Address", "City", "State", "Zip",
	"Priority", "Response Mode", "Unit Name(s)", "Unit Location", "En Route Time", "Arrived Time",
	"At Patient Time", "Cleared Time", "Back In Service Time", "Latitude", "Longitude",
	"Patient First Name", "Patient Last Name", "Contact Info", "Patient DOB", "CAD #", "Last Updated",
}

// KeyColumn is the zero-based index of the Call ID column, the upsert key.
const KeyColumn = 1

// Build returns the row for d. exportedAt fills the Timestamp and Last Updated columns and is
// the only input not taken from the derived incident.
func Build(d domain.DerivedIncident, exportedAt time.Time) []string {
	stamp := exportedAt.UTC().Format(time.RFC3339)

	units := mapping.NoUnitsMarker
	if len(d.Units) > 0 {
		units = strings.Join(d.Units, ", ")
	}

	return []string{
		stamp,
		d.IncidentID,
		d.CallType,
		d.Nature,
		d.Note,
		d.Address,
		d.City,
		d.State,
		d.Zip,
		d.Priority,
		d.ResponseMode.Label(),
		units,
		d.UnitLocation,
		d.EnRoute,
		d.OnScene,
		d.AtPatient,
		d.Cleared,
		d.BackInService,
		d.Latitude,
		d.Longitude,
		d.PatientFirstName,
		d.PatientLastName,
		d.PatientPhone,
		d.PatientDOB,
		d.RunNumber,
		stamp,
	}
}
