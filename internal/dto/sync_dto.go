package dto

// SyncRequest starts a batch. Zero days_back uses the configured default.
type SyncRequest struct {
	DaysBack   int  `json:"days_back" binding:"gte=0,lte=90"`
	ActiveOnly bool `json:"active_only"`
}

type SyncResponse struct {
	RunID        string                  `json:"run_id"`
	StartedAt    string                  `json:"started_at"`
	FinishedAt   string                  `json:"finished_at"`
	DaysBack     int                     `json:"days_back"`
	ActiveOnly   bool                    `json:"active_only"`
	Total        int                     `json:"total"`
	Filtered     int                     `json:"filtered"`
	Transferred  int                     `json:"transferred"`
	Unchanged    int                     `json:"unchanged"`
	Failed       int                     `json:"failed"`
	IngestFailed int                     `json:"ingest_failed"`
	SheetFailed  int                     `json:"sheet_failed"`
	Cancelled    bool                    `json:"cancelled,omitempty"`
	Outcomes     []ExportOutcomeResponse `json:"outcomes"`
}

// ExportOutcomeResponse is one call's result in both sinks.
type ExportOutcomeResponse struct {
	IncidentID     string `json:"incident_id"`
	ExportedAt     string `json:"exported_at"`
	DeliveryStatus string `json:"delivery_status"`
	Path           string `json:"path,omitempty"`
	Attempts       int    `json:"attempts,omitempty"`
	ErrorCode      string `json:"error_code,omitempty"`
	DeliveryError  string `json:"delivery_error,omitempty"`
	SheetAction    string `json:"sheet_action,omitempty"`
	SheetRow       int    `json:"sheet_row,omitempty"`
	SheetError     string `json:"sheet_error,omitempty"`
}
