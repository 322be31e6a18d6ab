package dto

// GetRunRequest represents request to get a run
type GetRunRequest struct {
	// No body fields - run_id comes from path params
}

// ListRunsRequest represents request to list runs
type ListRunsRequest struct {
	// No body fields - limit and next_token come from the query string
}

// ListRunsResponse represents response for listing runs
type ListRunsResponse struct {
	Runs []RunResponse `json:"runs"`
	PaginationResponse
}

// RunResponse is one recorded polling batch.
type RunResponse struct {
	RunID        string   `json:"run_id"`
	Trigger      string   `json:"trigger"`
	Status       string   `json:"status"` // COMPLETED, PARTIAL, FAILED
	Owner        string   `json:"owner"`
	DaysBack     int      `json:"days_back"`
	ActiveOnly   bool     `json:"active_only"`
	Total        int      `json:"total"`
	Filtered     int      `json:"filtered"`
	Transferred  int      `json:"transferred"`
	Unchanged    int      `json:"unchanged"`
	Failed       int      `json:"failed"`
	IngestFailed int      `json:"ingest_failed"`
	SheetFailed  int      `json:"sheet_failed"`
	Cancelled    bool     `json:"cancelled"`
	FailedCalls  []string `json:"failed_calls,omitempty"`
	Error        string   `json:"error,omitempty"`
	StartedAt    string   `json:"started_at"`
	FinishedAt   string   `json:"finished_at"`
}

// GetRunResponse represents response for getting a run
type GetRunResponse struct {
	RunResponse
}

// PaginationResponse represents common pagination metadata
type PaginationResponse struct {
	Count     int    `json:"count"`
	NextToken string `json:"next_token,omitempty"`
}
