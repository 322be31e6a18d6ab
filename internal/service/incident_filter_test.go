package service

import (
	"testing"

	"cadbridge/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIncidentFilter_Match(t *testing.T) {
	incident := domain.RawIncident{
		ID:       "198513",
		Name:     "Medical",
		Nature:   "PERSON DOWN",
		Priority: domain.PriorityRef{ID: "1560"},
		ClosedAt: "2025-05-05T20:00:00Z",
	}

	tests := []struct {
		expression string
		want       bool
	}{
		{`call_type == "Medical"`, true},
		{`call_type != "Test" && !(nature contains "DRILL")`, true},
		{`priority in ["1561"]`, false},
		{`closed`, true},
		{`id startsWith "2"`, false},
	}
	for _, tt := range tests {
		t.Run(tt.expression, func(t *testing.T) {
			f, err := NewIncidentFilter(tt.expression)
			require.NoError(t, err)
			got, err := f.Match(incident)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIncidentFilter_EmptyMatchesEverything(t *testing.T) {
	f, err := NewIncidentFilter("  ")
	require.NoError(t, err)
	assert.Nil(t, f)

	ok, err := f.Match(domain.RawIncident{})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "", f.String())
}

func TestIncidentFilter_CompileErrors(t *testing.T) {
	_, err := NewIncidentFilter(`unknown_field == 1`)
	assert.Error(t, err)

	_, err = NewIncidentFilter(`nature`)
	assert.Error(t, err)
}
