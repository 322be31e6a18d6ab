package domain

// ResponseMode is the dispatch-mode classification written to both sinks.
type ResponseMode string

const (
	ResponseModeEmergency    ResponseMode = "390"
	ResponseModeNonEmergency ResponseMode = "395"
)

const (
	labelEmergency    = "Lights & Sirens"
	labelNonEmergency = "No Lights & Sirens"
)

// Code is the value written to the XML ResponseModeToScene element.
func (m ResponseMode) Code() string {
	return string(m)
}

// Label is the human-facing text written to the sheet.
func (m ResponseMode) Label() string {
	if m == ResponseModeNonEmergency {
		return labelNonEmergency
	}
	return labelEmergency
}

// ResponseModeFromLabel reverses Label. Unknown labels map to emergency, matching the
// classifier's safe default.
func ResponseModeFromLabel(label string) ResponseMode {
	if label == labelNonEmergency {
		return ResponseModeNonEmergency
	}
	return ResponseModeEmergency
}
