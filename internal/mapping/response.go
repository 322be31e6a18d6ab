package mapping

import (
	"strings"

	"cadbridge/internal/domain"
)

var nonEmergencyKeywords = []string{
	"non-emergency",
	"non emergency",
	"non-urgent",
	"non urgent",
	"routine",
	"scheduled",
}

// ResponseRules configures the priority half of the classifier.
type ResponseRules struct {
	// NonEmergencyPriorityIDs lists priority ids that mean "no lights & sirens". Every other id,
	// including a missing one, is treated as an emergency.
	NonEmergencyPriorityIDs []string
}

// ClassifyResponse decides the response mode. Keywords in text take precedence over the
// priority id. This is the only classifier; both sinks read its result from the derived
// incident.
func ClassifyResponse(text string, priority domain.PriorityRef, rules ResponseRules) domain.ResponseMode {
	lowered := strings.ToLower(text)
	for _, kw := range nonEmergencyKeywords {
		if strings.Contains(lowered, kw) {
			return domain.ResponseModeNonEmergency
		}
	}

	id := strings.TrimSpace(priority.ID)
	for _, nonEmergency := range rules.NonEmergencyPriorityIDs {
		if id != "" && id == strings.TrimSpace(nonEmergency) {
			return domain.ResponseModeNonEmergency
		}
	}
	return domain.ResponseModeEmergency
}
