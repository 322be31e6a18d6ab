package service

import (
	"fmt"
	"strings"

	"cadbridge/internal/domain"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// filterEnv is what a filter expression can see. Only fields available before the extra-data
// fetch are exposed so a rejected call costs no further API requests.
type filterEnv struct {
	ID        string `expr:"id"`
	CallType  string `expr:"call_type"`
	Nature    string `expr:"nature"`
	Note      string `expr:"note"`
	Address   string `expr:"address"`
	Priority  string `expr:"priority"`
	CreatedAt string `expr:"created_at"`
	Closed    bool   `expr:"closed"`
}

func newFilterEnv(incident domain.RawIncident) filterEnv {
	return filterEnv{
		ID:        strings.TrimSpace(incident.ID),
		CallType:  strings.TrimSpace(incident.Name),
		Nature:    strings.TrimSpace(incident.Nature),
		Note:      strings.TrimSpace(incident.Note),
		Address:   strings.TrimSpace(incident.Address),
		Priority:  strings.TrimSpace(incident.Priority.ID),
		CreatedAt: strings.TrimSpace(incident.CreatedAt),
		Closed:    strings.TrimSpace(incident.ClosedAt) != "",
	}
}

// IncidentFilter decides which polled calls are exported, e.g.
// `call_type != "Test" && !(nature contains "DRILL")`. A nil filter accepts everything.
type IncidentFilter struct {
	expression string
	program    *vm.Program
}

// NewIncidentFilter compiles expression. An empty expression yields a nil filter.
func NewIncidentFilter(expression string) (*IncidentFilter, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return nil, nil
	}

	program, err := expr.Compile(expression, expr.Env(filterEnv{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("failed to compile incident filter: %w", err)
	}
	return &IncidentFilter{expression: expression, program: program}, nil
}

func (f *IncidentFilter) Match(incident domain.RawIncident) (bool, error) {
	if f == nil {
		return true, nil
	}

	out, err := expr.Run(f.program, newFilterEnv(incident))
	if err != nil {
		return false, fmt.Errorf("failed to evaluate incident filter: %w", err)
	}
	matched, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("incident filter returned %T, expected bool", out)
	}
	return matched, nil
}

func (f *IncidentFilter) String() string {
	if f == nil {
		return ""
	}
	return f.expression
}
