package compiler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Phase names the pipeline stage that rejected the source.
type Phase string

const (
	PhaseParser   Phase = "parser"
	PhaseCompiler Phase = "compiler"
)

// contextLines is how many lines are shown on each side of the failing line.
const contextLines = 2

// CompileError is a located compile failure. Context, when set, is a
// numbered excerpt of the source with a caret under Column.
type CompileError struct {
	Phase   Phase
	Message string
	Line    int // 1-indexed
	Column  int // 1-indexed
	Context string
}

func (e *CompileError) Error() string {
	msg := fmt.Sprintf("%s error at line %d, column %d: %s", e.Phase, e.Line, e.Column, e.Message)
	if e.Context == "" {
		return msg
	}
	return msg + "\n" + e.Context
}

func newCompileError(phase Phase, message string, line, column int, source string) *CompileError {
	return &CompileError{
		Phase:   phase,
		Message: message,
		Line:    line,
		Column:  column,
		Context: GenerateErrorContext(source, line, column),
	}
}

// NewParserErrorWithContext reports a syntax error.
func NewParserErrorWithContext(message string, line, column int, source string) *CompileError {
	return newCompileError(PhaseParser, message, line, column, source)
}

// NewCompilerErrorWithContext reports an error found while emitting opcodes.
func NewCompilerErrorWithContext(message string, line, column int, source string) *CompileError {
	return newCompileError(PhaseCompiler, message, line, column, source)
}

// GenerateErrorContext renders the lines around line, marking it with ">"
// and placing a caret under column:
//
//	  2 | var x = 5;
//	  3 | var y = 10;
//	> 4 | var z = ;
//	              ^
//	  5 | var w = 20;
//	  6 | var v = 30;
//
// It returns "" when line is outside source.
func GenerateErrorContext(source string, line, column int) string {
	if source == "" || line <= 0 {
		return ""
	}
	lines := strings.Split(source, "\n")
	if line > len(lines) {
		return ""
	}

	first := max(line-contextLines, 1)
	last := min(line+contextLines, len(lines))
	width := len(strconv.Itoa(last))
	gutter := 2 + width + 3 // "> " + number + " | "

	var b strings.Builder
	for n := first; n <= last; n++ {
		marker := "  "
		if n == line {
			marker = "> "
		}
		fmt.Fprintf(&b, "%s%*d | %s\n", marker, width, n, lines[n-1])
		if n == line {
			b.WriteString(strings.Repeat(" ", gutter+max(column-1, 0)))
			b.WriteString("^\n")
		}
	}
	return b.String()
}

// IsCompileError reports whether err is or wraps a *CompileError.
func IsCompileError(err error) bool {
	var ce *CompileError
	return errors.As(err, &ce)
}

// FirstLine returns the line of the first CompileError in errs, or 0.
func FirstLine(errs []error) int {
	for _, err := range errs {
		var ce *CompileError
		if errors.As(err, &ce) {
			return ce.Line
		}
	}
	return 0
}
