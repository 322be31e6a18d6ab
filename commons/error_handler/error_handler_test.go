package error_handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorCollection_GetHTTPStatus(t *testing.T) {
	tests := []struct {
		name  string
		codes []int
		want  int
	}{
		{"empty", nil, http.StatusOK},
		{"not found", []int{CodeNotFound}, http.StatusNotFound},
		{"conflict", []int{CodeConflict}, http.StatusConflict},
		{"server error wins", []int{CodeValidationError, CodeBadGateway}, http.StatusBadGateway},
		{"unknown code", []int{42}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ec := NewErrorCollection()
			for _, code := range tt.codes {
				ec.AddError(code, "x", nil)
			}
			assert.Equal(t, tt.want, ec.GetHTTPStatus())
		})
	}
}

func TestErrorCollection_Partial(t *testing.T) {
	ec := NewErrorCollection().AddError(CodeBadGateway, "call 7 failed", nil).MarkPartial()
	assert.True(t, ec.HasErrors())
	assert.True(t, ec.IsPartial())
	assert.Equal(t, http.StatusOK, ec.GetHTTPStatus())
}
