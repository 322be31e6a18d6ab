package mapping

import (
	"testing"

	"cadbridge/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestClassifyResponse(t *testing.T) {
	rules := ResponseRules{NonEmergencyPriorityIDs: []string{"1561"}}

	tests := []struct {
		name     string
		text     string
		priority domain.PriorityRef
		want     domain.ResponseMode
	}{
		{"keyword beats emergency priority", "Routine transport, non-emergency", domain.PriorityRef{ID: "1560"}, domain.ResponseModeNonEmergency},
		{"keyword is case insensitive", "NON URGENT lift assist", domain.PriorityRef{}, domain.ResponseModeNonEmergency},
		{"scheduled keyword", "Scheduled IFT", domain.PriorityRef{ID: "1560"}, domain.ResponseModeNonEmergency},
		{"non-emergency priority id", "FALL", domain.PriorityRef{ID: "1561"}, domain.ResponseModeNonEmergency},
		{"emergency priority id", "PERSON DOWN", domain.PriorityRef{ID: "1560"}, domain.ResponseModeEmergency},
		{"unknown priority id", "CHEST PAIN", domain.PriorityRef{ID: "42"}, domain.ResponseModeEmergency},
		{"missing priority", "CHEST PAIN", domain.PriorityRef{}, domain.ResponseModeEmergency},
		{"emergency word alone is not a keyword", "EMERGENCY TRANSFER", domain.PriorityRef{}, domain.ResponseModeEmergency},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyResponse(tt.text, tt.priority, rules))
		})
	}
}

func TestClassifyResponse_NoRulesDefaultsToEmergency(t *testing.T) {
	assert.Equal(t, domain.ResponseModeEmergency, ClassifyResponse("", domain.PriorityRef{ID: "1561"}, ResponseRules{}))
}
