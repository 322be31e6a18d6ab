package dto

type ClearFingerprintsRequest struct{}

type ClearFingerprintsResponse struct {
	Cleared int `json:"cleared"`
}
