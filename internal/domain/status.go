package domain

import "strconv"

// StatusCode is a unit status from the dispatch platform's activity log.
type StatusCode int

const (
	StatusUnknown      StatusCode = -1
	StatusAvailable    StatusCode = 0
	StatusAvailableAlt StatusCode = 2
	StatusAtPatient    StatusCode = 3
	StatusOutOfService StatusCode = 4
	StatusEnRoute      StatusCode = 5
	StatusOnScene      StatusCode = 6
	StatusStaging      StatusCode = 7
	StatusReturning    StatusCode = 8
)

var statusNames = map[StatusCode]string{
	StatusAvailable:    "Available",
	StatusAvailableAlt: "Available",
	StatusAtPatient:    "Committed",
	StatusOutOfService: "Out of Service",
	StatusEnRoute:      "Responding",
	StatusOnScene:      "On Scene",
	StatusStaging:      "Staging",
	StatusReturning:    "Returning",
}

func (s StatusCode) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "Unknown(" + strconv.Itoa(int(s)) + ")"
}

// IsAvailable reports whether s is one of the two "available" codes.
func (s StatusCode) IsAvailable() bool {
	return s == StatusAvailable || s == StatusAvailableAlt
}
