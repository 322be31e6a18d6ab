package domain

import "strings"

// ActorTypeUnit tags activity and dispatch entries that refer to an apparatus.
const ActorTypeUnit = "unit"

// PriorityRef is the source platform's priority reference. The platform sends it either as a
// bare number or as an object carrying an id; both are normalized to the id string.
type PriorityRef struct {
	ID string `json:"id"`
}

// RawIncident is one call as exposed by the dispatch platform, normalized at the ingestion
// boundary. Every field is optional.
type RawIncident struct {
	ID          string      `json:"id"`
	CreatedAt   string      `json:"created_at"`
	Name        string      `json:"name"`
	Nature      string      `json:"nature"`
	Note        string      `json:"note"`
	Address     string      `json:"address"`
	ContactName string      `json:"contact_name"`
	ContactInfo string      `json:"contact_info"`
	ExternalID  string      `json:"external_id"` // carries the patient DOB
	Priority    PriorityRef `json:"priority"`
	Coordinates string      `json:"coordinates"` // "lat,lon"
	ClosedAt    string      `json:"closed_at,omitempty"`
	CadNumber   string      `json:"cad_number,omitempty"`
}

// RawActivity is one status change from the call's activity log.
type RawActivity struct {
	ActorType   string     `json:"actor_type"`
	UnitName    string     `json:"unit_name"`
	Status      StatusCode `json:"status"`
	Timestamp   string     `json:"timestamp"`
	StatusLabel string     `json:"status_label,omitempty"`
}

// IsUnit reports whether the entry was produced by a unit actor.
func (a RawActivity) IsUnit() bool {
	return strings.EqualFold(strings.TrimSpace(a.ActorType), ActorTypeUnit)
}

// RawDispatch is one initial assignment from the call's dispatch log. A unit may appear here
// without any activity.
type RawDispatch struct {
	ActorType string `json:"actor_type"`
	UnitName  string `json:"unit_name"`
	Location  string `json:"location,omitempty"`
}

func (d RawDispatch) IsUnit() bool {
	return strings.EqualFold(strings.TrimSpace(d.ActorType), ActorTypeUnit)
}

// ExtraData bundles the per-call logs fetched separately from the call itself.
type ExtraData struct {
	Activity   []RawActivity `json:"activity"`
	Dispatches []RawDispatch `json:"dispatches"`
}

// IncidentNotification is the payload delivered by the live-event transport.
type IncidentNotification struct {
	CallID string `json:"call_id"`
}
