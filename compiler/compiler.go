// Package compiler wires the scanner, parser, and emitter into the
// single entry point the command-line driver calls: read a source file,
// run one forward pass over it, and flush the resulting listing.
package compiler

import (
	"io"

	"github.com/pkg/errors"

	"github.com/simpl2021/simplc/internal/emitter"
	"github.com/simpl2021/simplc/internal/lexer"
	"github.com/simpl2021/simplc/internal/parser"
	"github.com/simpl2021/simplc/internal/report"
)

// Compile reads a SIMPL-2021 program from src and writes its Jasmin
// listing to out. name identifies the source for diagnostics and becomes
// the emitted class name. The first lexical, syntactic, type, or
// name-resolution error aborts the whole compilation; Compile returns
// that error rather than a partial listing.
func Compile(name string, src io.Reader, out io.Writer) (err error) {
	rep := report.New(name)
	defer report.Recover(&err)

	lex := lexer.New(src, rep)
	em := emitter.New()
	p := parser.New(lex, rep, em)
	p.Program()

	if err := em.Flush(out); err != nil {
		return errors.Wrap(err, "flushing listing")
	}
	return nil
}

// Disassemble runs the same pass as Compile but returns the buffered
// instruction listing as a string instead of flushing it through a
// writer, for the command-line driver's -S debug mode.
func Disassemble(name string, src io.Reader) (listing string, err error) {
	rep := report.New(name)
	defer report.Recover(&err)

	lex := lexer.New(src, rep)
	em := emitter.New()
	p := parser.New(lex, rep, em)
	p.Program()

	return em.Disassemble(), nil
}
