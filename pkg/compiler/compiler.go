// Package compiler provides the compilation pipeline for processor scripts (.js files).
// It transforms source code into OpCode through four phases:
// 1. Lexer: Tokenization
// 2. Parser: AST generation
// 3. Inject: yield guards on every loop
// 4. Compiler: OpCode generation
//
// The unified API:
// - Compile: Compiles source code with yield injection
// - CompileWithOptions: Compiles with explicit options
// - CompileFile: Compiles a file (handles BOM, UTF-16 and Shift-JIS sources)
package compiler

import (
	"fmt"

	"github.com/zurustar/procscript/pkg/compiler/compiler"
	"github.com/zurustar/procscript/pkg/compiler/inject"
	"github.com/zurustar/procscript/pkg/compiler/lexer"
	"github.com/zurustar/procscript/pkg/compiler/parser"
	"github.com/zurustar/procscript/pkg/opcode"
	"github.com/zurustar/procscript/pkg/script"
)

// CompileOptions provides configuration options for compilation.
type CompileOptions struct {
	// InjectYields instruments every loop with a yield guard.
	InjectYields bool
}

// DefaultOptions returns the options used by Compile.
func DefaultOptions() CompileOptions {
	return CompileOptions{InjectYields: true}
}

// Result is the output of a successful compilation.
type Result struct {
	// OpCodes is the program ready for the VM.
	OpCodes []opcode.OpCode

	// Source is the instrumented program rendered back to source.
	Source string

	// Guards is the number of loops that received a yield guard.
	Guards int

	// GuardLines holds the source line of each guard in ID order.
	GuardLines []int
}

// Compile compiles source code to OpCode with yield injection enabled.
// If any phase fails the pipeline stops and the accumulated errors are returned.
func Compile(source string) (*Result, []error) {
	return CompileWithOptions(source, DefaultOptions())
}

// CompileWithOptions compiles source code with the given options.
func CompileWithOptions(source string, opts CompileOptions) (*Result, []error) {
	l := lexer.New(source)
	p := parser.New(l)
	program, parseErrs := p.ParseProgram()

	if len(parseErrs) > 0 {
		var compileErrors []error
		for _, err := range parseErrs {
			if pe, ok := err.(*parser.ParserError); ok {
				compileErrors = append(compileErrors, NewParserErrorWithContext(
					pe.Message, pe.Line, pe.Column, source))
			} else {
				compileErrors = append(compileErrors, err)
			}
		}
		return nil, compileErrors
	}

	var injected inject.Result
	if opts.InjectYields {
		injected = inject.Instrument(program)
	}

	c := compiler.New()
	opcodes, compileErrs := c.Compile(program)
	if len(compileErrs) > 0 {
		var compileErrors []error
		for _, err := range compileErrs {
			if ce, ok := err.(*compiler.CompilerError); ok {
				compileErrors = append(compileErrors, NewCompilerErrorWithContext(
					ce.Message, ce.Line, ce.Column, source))
			} else {
				compileErrors = append(compileErrors, err)
			}
		}
		return nil, compileErrors
	}

	return &Result{
		OpCodes:    opcodes,
		Source:     program.String(),
		Guards:     injected.Guards,
		GuardLines: injected.Lines,
	}, nil
}

// CompileFile reads a script file, converts it to UTF-8 and compiles it.
func CompileFile(path string) (*Result, []error) {
	s, err := script.LoadFile(path)
	if err != nil {
		return nil, []error{fmt.Errorf("failed to load %s: %w", path, err)}
	}
	return Compile(s.Content)
}

// Re-exported types for convenience.
type (
	Lexer    = lexer.Lexer
	Token    = lexer.Token
	Parser   = parser.Parser
	Program  = parser.Program
	Compiler = compiler.Compiler
)

// NewLexer creates a new Lexer for the given source.
func NewLexer(source string) *Lexer {
	return lexer.New(source)
}

// NewParser creates a new Parser from the given Lexer.
func NewParser(l *Lexer) *Parser {
	return parser.New(l)
}

// NewCompiler creates a new code generator.
func NewCompiler() *Compiler {
	return compiler.New()
}
