package emitter

import (
	"fmt"
	"io"
	"strings"

	"github.com/simpl2021/simplc/internal/ngi"
	"github.com/simpl2021/simplc/internal/types"
)

// Label is an opaque, monotonically allocated placeholder used by emitted
// branch instructions.
type Label int

// subroutine is the per-method instruction buffer: labels defined within
// it, its locals-array width, and its emitted lines in program order.
type subroutine struct {
	name        string
	descriptor  string // JVM method descriptor, e.g. (II)I
	isMain      bool
	localsWidth int
	lines       []string
	labelsAt    map[Label]bool // labels defined in this subroutine
	labelsUsed  map[Label]bool // labels referenced by a branch in this subroutine
}

// Emitter owns the instruction buffer, partitioned by subroutine, and the
// whole-compilation monotonic label counter.
type Emitter struct {
	className string
	subs      []*subroutine
	cur       *subroutine
	nextLabel Label
}

// New creates an empty Emitter.
func New() *Emitter { return &Emitter{} }

// SetClassName records the class the listing declares.
func (e *Emitter) SetClassName(name string) { e.className = name }

// InitSubroutine opens a fresh, empty instruction buffer for a subroutine.
// sig is nil for the program body, which is emitted as "main"; otherwise
// sig is the subroutine's callable type, used to build its JVM descriptor.
func (e *Emitter) InitSubroutine(name string, sig *types.Type) {
	sub := &subroutine{
		name:       name,
		labelsAt:   map[Label]bool{},
		labelsUsed: map[Label]bool{},
	}
	if sig == nil {
		sub.isMain = true
		sub.name = "main"
		sub.descriptor = "([Ljava/lang/String;)V"
	} else {
		sub.descriptor = descriptor(*sig)
	}
	e.cur = sub
}

// CloseSubroutine sets the just-closed subroutine's locals-array width (the
// symbol table's variables_width at the point of closing) and appends it
// to the emitted program.
func (e *Emitter) CloseSubroutine(localsWidth int) {
	e.cur.localsWidth = localsWidth
	e.subs = append(e.subs, e.cur)
	e.cur = nil
}

// GetLabel allocates a new, as-yet-undefined label. Allocation is
// monotonic across the whole compilation.
func (e *Emitter) GetLabel() Label {
	e.nextLabel++
	return e.nextLabel
}

// GenLabel defines label at the current position in the active
// subroutine's buffer.
func (e *Emitter) GenLabel(label Label) {
	e.cur.labelsAt[label] = true
	e.cur.lines = append(e.cur.lines, fmt.Sprintf("L%d:", label))
}

// Gen1 emits a bare, no-operand instruction.
func (e *Emitter) Gen1(op string) {
	e.cur.lines = append(e.cur.lines, "\t"+op)
}

// Gen2 emits an instruction with an integer operand (iload/istore/
// aload/astore offsets, or ldc's constant).
func (e *Emitter) Gen2(op string, operand int) {
	e.cur.lines = append(e.cur.lines, fmt.Sprintf("\t%s %d", op, operand))
}

// Gen2Label emits a branch instruction (goto, ifeq, ...) targeting label.
func (e *Emitter) Gen2Label(op string, label Label) {
	e.cur.labelsUsed[label] = true
	e.cur.lines = append(e.cur.lines, fmt.Sprintf("\t%s L%d", op, label))
}

// relOpcode maps a relational operator to the JVM if_icmpXX mnemonic that
// branches when the comparison holds.
var relOpcode = map[string]string{
	"=":  "if_icmpeq",
	"#":  "if_icmpne",
	"<":  "if_icmplt",
	"<=": "if_icmple",
	">":  "if_icmpgt",
	">=": "if_icmpge",
}

// GenCmp emits a relational comparison: pop the two integer (or
// boolean-encoded) operands, push 1 if the comparison holds, else 0.
func (e *Emitter) GenCmp(relOp string) {
	opcode, ok := relOpcode[relOp]
	if !ok {
		panic("emitter: unknown relational operator " + relOp)
	}
	lTrue := e.GetLabel()
	lEnd := e.GetLabel()
	e.Gen2Label(opcode, lTrue)
	e.Gen2("ldc", 0)
	e.Gen2Label("goto", lEnd)
	e.GenLabel(lTrue)
	e.Gen2("ldc", 1)
	e.GenLabel(lEnd)
}

// GenCall emits a call to a subroutine, with the given callable signature
// used to build its descriptor. The callee is assumed to live on the same
// class as the caller.
func (e *Emitter) GenCall(name string, sig types.Type) {
	e.cur.lines = append(e.cur.lines, fmt.Sprintf("\tinvokestatic %s%s", name, descriptor(sig)))
}

// GenNewArray emits the sequence for `array S`: S is assumed already
// evaluated and on the stack by the caller. The element type is always
// int regardless of the declared array's base type: a boolean array is
// still backed by a newarray int, read and written through iaload/iastore
// like every other array, and only ever holds 0/1.
func (e *Emitter) GenNewArray() {
	e.cur.lines = append(e.cur.lines, "\tnewarray int")
}

// GenRead emits a read of one scalar value of the given base type.
func (e *Emitter) GenRead(t types.Base) {
	e.cur.lines = append(e.cur.lines, fmt.Sprintf("\tinvokestatic simpl/runtime/IO/read%s()%s", readSuffix(t), descriptorOf(t)))
}

// GenPrint emits a print of one scalar value of the given base type,
// consuming the value already on the stack.
func (e *Emitter) GenPrint(t types.Base) {
	e.cur.lines = append(e.cur.lines, fmt.Sprintf("\tinvokestatic simpl/runtime/IO/print%s(%s)V", readSuffix(t), descriptorOf(t)))
}

// GenPrintString emits a literal string write. Escapes in lit are already
// in the scanner's \n \t \" \\ form and are forwarded as-is for Jasmin's
// own string escaping.
func (e *Emitter) GenPrintString(lit string) {
	e.cur.lines = append(e.cur.lines,
		fmt.Sprintf("\tldc \"%s\"", lit),
		"\tinvokestatic simpl/runtime/IO/printString(Ljava/lang/String;)V")
}

func readSuffix(t types.Base) string {
	if t == types.Boolean {
		return "Boolean"
	}
	return "Int"
}

func descriptorOf(t types.Base) string {
	if t == types.Boolean {
		return "Z"
	}
	return "I"
}

// baseDescriptor renders a scalar/array value type's JVM field descriptor.
func baseDescriptor(t types.Type) string {
	d := descriptorOf(t.Base)
	if t.Kind == types.KindArray {
		return "[" + d
	}
	return d
}

// descriptor renders a callable Type's full JVM method descriptor, e.g.
// (II[Z)I for a function(integer, integer, boolean array) -> integer.
func descriptor(sig types.Type) string {
	var b strings.Builder
	b.WriteByte('(')
	for _, p := range sig.Params {
		b.WriteString(baseDescriptor(p))
	}
	b.WriteByte(')')
	if sig.Ret == nil {
		b.WriteByte('V')
	} else {
		b.WriteString(baseDescriptor(*sig.Ret))
	}
	return b.String()
}

// Flush writes the complete listing for every subroutine compiled so far,
// in the order they were closed, to w. It validates, along the way, that
// every label referenced by a branch is defined within the subroutine
// that uses it.
func (e *Emitter) Flush(w io.Writer) error {
	ew := ngi.NewListingWriter(w)
	fmt.Fprintf(ew, ".class public %s\n.super java/lang/Object\n\n", e.className)
	for _, s := range e.subs {
		if err := s.validateLabels(); err != nil {
			return err
		}
		fmt.Fprintf(ew, ".method public static %s%s\n", s.name, s.descriptor)
		fmt.Fprintf(ew, ".limit stack %d\n", stackLimit)
		fmt.Fprintf(ew, ".limit locals %d\n", max(s.localsWidth, 1))
		for _, line := range s.lines {
			fmt.Fprintln(ew, line)
		}
		fmt.Fprintln(ew, ".end method")
		fmt.Fprintln(ew)
	}
	return ew.Err
}

// stackLimit is a fixed, generous operand-stack bound. Computing a tight
// per-method bound would mean tracking stack depth through every parser
// production; emitting one conservative constant is simpler and the
// assembler never runs short.
const stackLimit = 64

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func (s *subroutine) validateLabels() error {
	for l := range s.labelsUsed {
		if !s.labelsAt[l] {
			return fmt.Errorf("emitter: label L%d referenced in %s but never defined", l, s.name)
		}
	}
	return nil
}

// Disassemble is a debug aid for the -S flag: it renders the buffered
// instructions for every subroutine as a single string, without invoking
// the external assembler.
func (e *Emitter) Disassemble() string {
	var b strings.Builder
	for _, s := range e.subs {
		b.WriteString(s.name)
		b.WriteString(s.descriptor)
		b.WriteByte('\n')
		for _, line := range s.lines {
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}
	return b.String()
}
