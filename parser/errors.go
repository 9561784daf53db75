package parser

import (
	"fmt"
	"strings"
)

// Error is a ParseError per spec §7: it always carries file:line:column and
// the offending source line with a caret, because every production that
// has consumed a disambiguating prefix uses an assert-like check to reject
// malformed remainder (spec §4.2).
type Error struct {
	File    string
	Line    int
	Column  int
	Message string
	Source  string // the offending source line, for caret rendering
}

func (e *Error) Error() string {
	caret := strings.Repeat(" ", max(0, e.Column-1)) + "^"
	if e.Source == "" {
		return fmt.Sprintf("%s:%d:%d: %s", e.File, e.Line, e.Column, e.Message)
	}
	return fmt.Sprintf("%s:%d:%d: %s\n%s\n%s", e.File, e.Line, e.Column, e.Message, e.Source, caret)
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
