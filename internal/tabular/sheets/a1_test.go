package sheets

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestColumnLetter(t *testing.T) {
	tests := []struct {
		column int
		want   string
	}{
		{0, "A"},
		{1, "B"},
		{25, "Z"},
		{26, "AA"},
		{51, "AZ"},
		{52, "BA"},
		{701, "ZZ"},
		{702, "AAA"},
		{-1, ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ColumnLetter(tt.column), "column %d", tt.column)
	}
}

func TestRanges(t *testing.T) {
	assert.Equal(t, "'Call Data'!B:B", columnRange("Call Data", 1))
	assert.Equal(t, "'Call Data'!A7", rowRange("Call Data", 7))
	assert.Equal(t, "'Bob''s'!A1", rowRange("Bob's", 1))
}
