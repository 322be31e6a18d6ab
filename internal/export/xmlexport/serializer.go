// Package xmlexport renders a derived incident into the billing system's CadIncident document.
package xmlexport

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"

	"cadbridge/internal/domain"
)

const (
	rootElement = "CadIncident"
	guidElement = "Guid"
	declaration = `<?xml version="1.0" encoding="UTF-8"?>`
)

// Options controls the deployment-specific parts of the document.
type Options struct {
	// IncludeGUID prefixes the document with a fixed GUID element (legacy targets).
	IncludeGUID bool
	GUID        string
}

// Element is one child of the root, in document order.
type Element struct {
	Name  string
	Value string
}

type Serializer struct {
	opts Options
}

func NewSerializer(opts Options) *Serializer {
	return &Serializer{opts: opts}
}

// Elements lists the document's children for d. The shape is fixed: every element is always
// present, whatever the values.
func (s *Serializer) Elements(d domain.DerivedIncident) []Element {
	elements := make([]Element, 0, 24)
	if s.opts.IncludeGUID {
		elements = append(elements, Element{guidElement, s.opts.GUID})
	}

	return append(elements,
		Element{"IncidentNumber", d.IncidentID},
		Element{"IncidentOrOnset", d.DispatchTime},
		Element{"DispatchNotified", d.DispatchTime},
		Element{"IncidentAddress1", d.Street},
		Element{"IncidentCity", d.City},
		Element{"IncidentState", d.State},
		Element{"IncidentZip", d.Zip},
		Element{"CadDispatchText", d.Nature},
		Element{"EmsUnitCallSign", strings.Join(d.Units, ", ")},
		Element{"UnitNotifiedByDispatch", d.DispatchTime},
		Element{"ResponseModeToScene", d.ResponseMode.Code()},
		Element{"CallNature", d.Nature},
		Element{"CallNatureDescription", d.Description},
		Element{"UnitEnRoute", d.EnRoute},
		Element{"UnitArrivedOnScene", d.OnScene},
		Element{"UnitAtPatient", d.AtPatient},
		Element{"UnitCleared", d.Cleared},
		Element{"UnitBackInService", d.BackInService},
		Element{"SceneGpsLocationLat", d.Latitude},
		Element{"SceneGpsLocationLong", d.Longitude},
		Element{"PatientFirstName", d.PatientFirstName},
		Element{"PatientLastName", d.PatientLastName},
		Element{"PatientDOB", d.PatientDOB},
	)
}

// Serialize renders d as a UTF-8 XML document. Output depends only on d and the options.
func (s *Serializer) Serialize(d domain.DerivedIncident) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(declaration)
	buf.WriteString("\n<" + rootElement + ">\n")

	for _, el := range s.Elements(d) {
		if el.Value == "" {
			fmt.Fprintf(&buf, "  <%s/>\n", el.Name)
			continue
		}
		fmt.Fprintf(&buf, "  <%s>", el.Name)
		if err := xml.EscapeText(&buf, []byte(el.Value)); err != nil {
			return nil, fmt.Errorf("failed to escape %s: %w", el.Name, err)
		}
		fmt.Fprintf(&buf, "</%s>\n", el.Name)
	}

	buf.WriteString("</" + rootElement + ">\n")
	return buf.Bytes(), nil
}
