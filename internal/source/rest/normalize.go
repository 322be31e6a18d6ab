package rest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"cadbridge/internal/domain"
)

// Responses arrive bare, wrapped as {"Data": ...}, or as a combined
// {"GetCall": ..., "GetCallExtraData": ...} document. Everything below reduces them to the
// domain shapes so nothing past this package branches on wire format.

const (
	dataKey      = "Data"
	callKey      = "GetCall"
	callExtraKey = "GetCallExtraData"
)

// epochMillisThreshold separates epoch seconds from epoch milliseconds. Seconds stay below it
// until the year 33658.
const epochMillisThreshold = 1e12

func unwrap(raw json.RawMessage) json.RawMessage {
	for {
		obj, ok := asObject(raw)
		if !ok {
			return raw
		}
		inner, ok := obj[dataKey]
		if !ok {
			return raw
		}
		if _, isCall := obj["id"]; isCall {
			return raw
		}
		raw = inner
	}
}

func asObject(raw json.RawMessage) (map[string]json.RawMessage, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, false
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return nil, false
	}
	return obj, true
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// splitCombined returns the call and extra-data parts of a combined document.
func splitCombined(raw json.RawMessage) (call, extra json.RawMessage, ok bool) {
	obj, isObj := asObject(raw)
	if !isObj {
		return nil, nil, false
	}
	call, hasCall := obj[callKey]
	extra, hasExtra := obj[callExtraKey]
	if !hasCall && !hasExtra {
		return nil, nil, false
	}
	return unwrap(call), unwrap(extra), true
}

func decodeIncidents(body []byte) ([]domain.RawIncident, error) {
	raw := unwrap(body)
	if isNull(raw) {
		return []domain.RawIncident{}, nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("expected a list of calls: %w", err)
	}

	incidents := make([]domain.RawIncident, 0, len(items))
	for i, item := range items {
		incident, err := decodeIncident(item)
		if err != nil {
			return nil, fmt.Errorf("call at index %d: %w", i, err)
		}
		incidents = append(incidents, incident)
	}
	return incidents, nil
}

func decodeIncident(body []byte) (domain.RawIncident, error) {
	raw := unwrap(body)
	if call, _, ok := splitCombined(raw); ok {
		raw = call
	}
	if isNull(raw) {
		return domain.RawIncident{}, nil
	}

	var w wireIncident
	if err := json.Unmarshal(raw, &w); err != nil {
		return domain.RawIncident{}, err
	}
	return w.toDomain(), nil
}

func decodeExtra(body []byte) (domain.ExtraData, error) {
	raw := unwrap(body)
	if _, extra, ok := splitCombined(raw); ok {
		raw = extra
	}
	if isNull(raw) {
		return domain.ExtraData{Activity: []domain.RawActivity{}, Dispatches: []domain.RawDispatch{}}, nil
	}

	var w wireExtra
	if err := json.Unmarshal(raw, &w); err != nil {
		return domain.ExtraData{}, err
	}
	return w.toDomain(), nil
}

type wireIncident struct {
	ID          flexString   `json:"id"`
	CreatedAt   flexTime     `json:"created_at"`
	Name        flexString   `json:"name"`
	Nature      flexString   `json:"nature"`
	Note        flexString   `json:"note"`
	Address     flexString   `json:"address"`
	ContactName flexString   `json:"contact_name"`
	ContactInfo flexString   `json:"contact_info"`
	ExternalID  flexString   `json:"external_id"`
	Priority    flexPriority `json:"priority"`
	Coordinates flexString   `json:"coordinates"`
	ClosedAt    flexTime     `json:"closed_at"`
	CadNumber   flexString   `json:"cad_number"`
}

func (w wireIncident) toDomain() domain.RawIncident {
	return domain.RawIncident{
		ID:          string(w.ID),
		CreatedAt:   string(w.CreatedAt),
		Name:        string(w.Name),
		Nature:      string(w.Nature),
		Note:        string(w.Note),
		Address:     string(w.Address),
		ContactName: string(w.ContactName),
		ContactInfo: string(w.ContactInfo),
		ExternalID:  string(w.ExternalID),
		Priority:    domain.PriorityRef{ID: string(w.Priority)},
		Coordinates: string(w.Coordinates),
		ClosedAt:    string(w.ClosedAt),
		CadNumber:   string(w.CadNumber),
	}
}

type wireActivity struct {
	ActorType   flexString `json:"actor_type"`
	UnitName    flexString `json:"unit_name"`
	Status      flexStatus `json:"status"`
	Timestamp   flexTime   `json:"timestamp"`
	StatusLabel flexString `json:"status_label"`
}

type wireDispatch struct {
	ActorType flexString `json:"actor_type"`
	UnitName  flexString `json:"unit_name"`
	Location  flexString `json:"location"`
}

type wireExtra struct {
	Activity   []wireActivity `json:"activity"`
	Dispatches []wireDispatch `json:"dispatches"`
}

func (w wireExtra) toDomain() domain.ExtraData {
	extra := domain.ExtraData{
		Activity:   make([]domain.RawActivity, 0, len(w.Activity)),
		Dispatches: make([]domain.RawDispatch, 0, len(w.Dispatches)),
	}
	for _, a := range w.Activity {
		extra.Activity = append(extra.Activity, domain.RawActivity{
			ActorType:   string(a.ActorType),
			UnitName:    string(a.UnitName),
			Status:      a.Status.code(),
			Timestamp:   string(a.Timestamp),
			StatusLabel: string(a.StatusLabel),
		})
	}
	for _, d := range w.Dispatches {
		extra.Dispatches = append(extra.Dispatches, domain.RawDispatch{
			ActorType: string(d.ActorType),
			UnitName:  string(d.UnitName),
			Location:  string(d.Location),
		})
	}
	return extra
}

// flexString accepts a JSON string, number or bool and stores its trimmed text. null and
// objects decode to empty.
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	*s = flexString(scalarText(data))
	return nil
}

func scalarText(data []byte) string {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return ""
	}
	switch trimmed[0] {
	case '"':
		var v string
		if err := json.Unmarshal(trimmed, &v); err != nil {
			return ""
		}
		return strings.TrimSpace(v)
	case '{', '[', 'n':
		return ""
	default:
		return string(trimmed)
	}
}

// flexPriority accepts 1560, "1560" or {"id": 1560}.
type flexPriority string

func (p *flexPriority) UnmarshalJSON(data []byte) error {
	if obj, ok := asObject(data); ok {
		*p = flexPriority(scalarText(obj["id"]))
		return nil
	}
	*p = flexPriority(scalarText(data))
	return nil
}

// flexStatus accepts a number or numeric string. Anything else is StatusUnknown.
type flexStatus struct {
	value domain.StatusCode
	set   bool
}

func (s *flexStatus) UnmarshalJSON(data []byte) error {
	text := scalarText(data)
	n, err := strconv.Atoi(text)
	if err != nil {
		s.set = false
		return nil
	}
	s.value = domain.StatusCode(n)
	s.set = true
	return nil
}

func (s flexStatus) code() domain.StatusCode {
	if !s.set {
		return domain.StatusUnknown
	}
	return s.value
}

// flexTime normalizes RFC3339 strings and epoch seconds or milliseconds to RFC3339 UTC,
// keeping any sub-second part.
// Text it cannot parse is kept as sent.
type flexTime string

func (t *flexTime) UnmarshalJSON(data []byte) error {
	*t = flexTime(normalizeTimestamp(scalarText(data)))
	return nil
}

func normalizeTimestamp(text string) string {
	if text == "" {
		return ""
	}
	if parsed, err := time.Parse(time.RFC3339Nano, text); err == nil {
		return parsed.UTC().Format(time.RFC3339Nano)
	}
	if epoch, err := strconv.ParseFloat(text, 64); err == nil {
		if epoch >= epochMillisThreshold {
			return time.UnixMicro(int64(math.Round(epoch * 1e3))).UTC().Format(time.RFC3339Nano)
		}
		return time.UnixMicro(int64(math.Round(epoch * 1e6))).UTC().Format(time.RFC3339Nano)
	}
	return text
}
