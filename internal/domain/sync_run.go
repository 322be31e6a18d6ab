package domain

// RunStatus is the overall result of one polling batch.
type RunStatus string

const (
	RunStatusCompleted RunStatus = "COMPLETED"
	// RunStatusPartial means some calls failed or the batch was cancelled part way.
	RunStatusPartial RunStatus = "PARTIAL"
	// RunStatusFailed means the calls could not be listed at all.
	RunStatusFailed RunStatus = "FAILED"
)

type RunTrigger string

const (
	RunTriggerSchedule RunTrigger = "schedule"
	RunTriggerManual   RunTrigger = "manual"
)

// SyncRunKind is the constant partition value used to list runs by start time.
const SyncRunKind = "sync_run"

// SyncRun is the stored record of one batch. Times are unix milliseconds.
type SyncRun struct {
	RunID        string     `dynamodbav:"run_id" json:"run_id"`
	Kind         string     `dynamodbav:"kind" json:"-"`
	Trigger      RunTrigger `dynamodbav:"trigger" json:"trigger"`
	Status       RunStatus  `dynamodbav:"status" json:"status"`
	Owner        string     `dynamodbav:"owner" json:"owner"`
	DaysBack     int        `dynamodbav:"days_back" json:"days_back"`
	ActiveOnly   bool       `dynamodbav:"active_only" json:"active_only"`
	Total        int        `dynamodbav:"total" json:"total"`
	Filtered     int        `dynamodbav:"filtered" json:"filtered"`
	Transferred  int        `dynamodbav:"transferred" json:"transferred"`
	Unchanged    int        `dynamodbav:"unchanged" json:"unchanged"`
	Failed       int        `dynamodbav:"failed" json:"failed"`
	IngestFailed int        `dynamodbav:"ingest_failed" json:"ingest_failed"`
	SheetFailed  int        `dynamodbav:"sheet_failed" json:"sheet_failed"`
	Cancelled    bool       `dynamodbav:"cancelled" json:"cancelled"`
	FailedCalls  []string   `dynamodbav:"failed_calls,omitempty" json:"failed_calls,omitempty"`
	Error        string     `dynamodbav:"error,omitempty" json:"error,omitempty"`
	StartedAt    int64      `dynamodbav:"started_at" json:"started_at"`
	FinishedAt   int64      `dynamodbav:"finished_at" json:"finished_at"`
}
