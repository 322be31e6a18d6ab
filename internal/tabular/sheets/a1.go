package sheets

import (
	"fmt"
	"strings"
)

// ColumnLetter converts a zero-based column index into A1 notation (0 → A, 26 → AA).
func ColumnLetter(column int) string {
	if column < 0 {
		return ""
	}
	var letters []byte
	for n := column + 1; n > 0; n = (n - 1) / 26 {
		letters = append([]byte{byte('A' + (n-1)%26)}, letters...)
	}
	return string(letters)
}

func quoteSheet(sheet string) string {
	return "'" + strings.ReplaceAll(sheet, "'", "''") + "'"
}

func columnRange(sheet string, column int) string {
	col := ColumnLetter(column)
	return fmt.Sprintf("%s!%s:%s", quoteSheet(sheet), col, col)
}

func rowRange(sheet string, row int) string {
	return fmt.Sprintf("%s!A%d", quoteSheet(sheet), row)
}
