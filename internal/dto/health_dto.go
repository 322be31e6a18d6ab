package dto

// HealthCheckRequest represents request for health check
type HealthCheckRequest struct {
	// No body fields
}

// HealthCheckResponse represents response for health check
type HealthCheckResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
	// WriterLockHolder is the owner recorded on the writer lock, empty when it is free.
	WriterLockHolder string `json:"writer_lock_holder,omitempty"`
}
