package response

// StandardResponse is the envelope of every API response.
type StandardResponse struct {
	Status    StatusEnum `json:"status"`
	ErrorCode int        `json:"errorCode"`
	Message   string     `json:"message"`
	Data      any        `json:"data"`
	Errors    []Errors   `json:"errors"`
	// RequestID echoes the X-Request-ID of the request.
	RequestID string `json:"requestId,omitempty"`
}

type StatusEnum string

const (
	StatusSuccess StatusEnum = "SUCCESS"
	// StatusPartialSuccess is returned with HTTP 200 when some items of a batch failed.
	StatusPartialSuccess StatusEnum = "PARTIAL_SUCCESS"
	StatusFailed         StatusEnum = "FAILED"
)

type Errors struct {
	ErrorCode int    `json:"errorCode"`
	Message   string `json:"message"`
	// Data identifies the failed item, usually a call id.
	Data any `json:"data"`
}
