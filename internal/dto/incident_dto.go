package dto

import "cadbridge/internal/domain"

type ExportIncidentRequest struct{}

type ExportIncidentResponse struct {
	ExportOutcomeResponse
}

type PreviewIncidentRequest struct{}

type PreviewIncidentResponse struct {
	Incident domain.DerivedIncident `json:"incident"`
	// Row maps sheet column names to the values that would be written.
	Row  map[string]string `json:"row"`
	XML  string            `json:"xml"`
	Path string            `json:"path"`
}
