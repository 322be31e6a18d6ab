package mapping

import "strings"

// Address is a free-text address split into its parts.
type Address struct {
	Full   string
	Street string
	City   string
	State  string
	Zip    string
}

var lineBreaks = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

// ParseAddress splits "<street>, <city>, <state> <zip>[, <country>]". With fewer than three
// comma segments only Street is set, holding the whole cleaned string.
func ParseAddress(raw string) Address {
	cleaned := strings.TrimSpace(lineBreaks.Replace(raw))
	addr := Address{Full: cleaned, Street: cleaned}
	if cleaned == "" {
		return addr
	}

	segments := strings.Split(cleaned, ",")
	for i := range segments {
		segments[i] = strings.TrimSpace(segments[i])
	}
	if len(segments) < 3 {
		return addr
	}

	addr.Street = segments[0]
	addr.City = segments[1]
	stateZip := strings.Fields(segments[2])
	if len(stateZip) > 0 {
		addr.State = stateZip[0]
	}
	if len(stateZip) > 1 {
		addr.Zip = stateZip[1]
	}
	return addr
}

// ParseName splits a contact name into first name and the remaining tokens.
func ParseName(raw string) (first, last string) {
	tokens := strings.Fields(raw)
	switch len(tokens) {
	case 0:
		return "", ""
	case 1:
		return tokens[0], ""
	default:
		return tokens[0], strings.Join(tokens[1:], " ")
	}
}

// ParseCoordinates splits "lat,lon". Anything but exactly two parts yields empty values.
func ParseCoordinates(raw string) (lat, lon string) {
	parts := strings.Split(raw, ",")
	if len(parts) != 2 {
		return "", ""
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
}

// Describe joins nature and note as "nature - note", dropping the note when it is empty.
func Describe(nature, note string) string {
	nature = strings.TrimSpace(nature)
	note = strings.TrimSpace(note)
	switch {
	case note == "":
		return nature
	case nature == "":
		return note
	default:
		return nature + " - " + note
	}
}
