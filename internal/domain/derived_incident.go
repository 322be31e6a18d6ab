package domain

// DerivedIncident is the canonical record produced by the incident transform. Both the XML
// document and the sheet row are rendered from it, so it holds every value either sink needs.
// Absent values are empty strings; Units is never nil.
type DerivedIncident struct {
	IncidentID   string `json:"incident_id"`
	DispatchTime string `json:"dispatch_time"`
	CallType     string `json:"call_type"`
	Nature       string `json:"nature"`
	Note         string `json:"note"`
	Description  string `json:"description"`

	Units        []string `json:"units"`
	UnitLocation string   `json:"unit_location"`

	Address string `json:"address"`
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	Zip     string `json:"zip"`

	Latitude  string `json:"latitude"`
	Longitude string `json:"longitude"`

	Priority     string       `json:"priority"`
	ResponseMode ResponseMode `json:"response_mode"`

	EnRoute       string `json:"en_route"`
	OnScene       string `json:"on_scene"`
	AtPatient     string `json:"at_patient"`
	Cleared       string `json:"cleared"`
	BackInService string `json:"back_in_service"`

	PatientFirstName string `json:"patient_first_name"`
	PatientLastName  string `json:"patient_last_name"`
	PatientPhone     string `json:"patient_phone"`
	PatientDOB       string `json:"patient_dob"`

	RunNumber string `json:"run_number"`
}

// Timestamps groups the five reconciled lifecycle values.
type Timestamps struct {
	EnRoute       string `json:"en_route"`
	OnScene       string `json:"on_scene"`
	AtPatient     string `json:"at_patient"`
	Cleared       string `json:"cleared"`
	BackInService string `json:"back_in_service"`
}
