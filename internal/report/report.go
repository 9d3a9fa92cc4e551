// Package report implements a classified, positioned, fatal error
// reporter. Every error kind is fatal: Reporter.Abort never returns, it
// panics with an *Error that a single recover() at the compiler's entry
// point turns back into a normal error value, using exceptions for
// control flow rather than threading an error return through every
// production of the parser.
package report

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/simpl2021/simplc/internal/token"
)

// Kind classifies the offending condition.
type Kind int

const (
	// Lexical
	IllegalCharacter Kind = iota
	NumberTooLarge
	IdentifierTooLong
	IllegalEscape
	NonPrintableInString
	StringNotClosed
	CommentNotClosed

	// Syntactic
	ExpectedToken
	ExpectedConstruct

	// Name resolution
	UnknownIdentifier
	MultipleDefinition
	NotAFunction
	NotAProcedure
	NotAVariable
	NotAnArray
	MissingArgList
	ScalarVariableExpected

	// Type
	IncompatibleTypes
	IllegalArrayOperation
	ExitNotAllowedInProcedure
	MissingExitExpression
	TooFewArguments
	TooManyArguments
	TakesNoArguments

	// Resource
	OutOfMemory
	CannotOpenSource
)

// Error is a single fatal, positioned diagnostic.
type Error struct {
	File string
	Pos  token.Position
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s:%s: %s", e.File, e.Pos, e.Msg)
}

// Reporter accumulates the file name a compilation run is for and is the
// sole place that constructs and raises *Error values.
type Reporter struct {
	File string
}

// New creates a Reporter for the named source.
func New(file string) *Reporter { return &Reporter{File: file} }

// Abort raises a classified, positioned, fatal error. It never returns: it
// panics with the constructed *Error, to be recovered exactly once at the
// compiler's top level.
func (r *Reporter) Abort(pos token.Position, kind Kind, format string, args ...interface{}) {
	panic(&Error{File: r.File, Pos: pos, Kind: kind, Msg: fmt.Sprintf(format, args...)})
}

// ExpectedFound raises an "expected token X found Y" syntax error.
func (r *Reporter) ExpectedFound(pos token.Position, want, found fmt.Stringer) {
	r.Abort(pos, ExpectedToken, "expected %v, found %v", want, found)
}

// Recover turns a panic raised by Abort back into a normal error value.
// Any other panic value is re-raised unchanged (it is a genuine bug, not a
// classified compile error). Intended to be called from a single deferred
// closure at the compiler's entry point.
func Recover(errp *error) {
	if e := recover(); e != nil {
		if re, ok := e.(*Error); ok {
			*errp = re
			return
		}
		panic(e)
	}
}

// Wrap adds non-positioned context to an I/O-boundary error: opening the
// source file, flushing the listing, invoking the external assembler.
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}
