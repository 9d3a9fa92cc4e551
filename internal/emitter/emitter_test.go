package emitter_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/simpl2021/simplc/internal/emitter"
	"github.com/simpl2021/simplc/internal/types"
)

func TestFlushEmitsMainWithDefaultDescriptor(t *testing.T) {
	e := emitter.New()
	e.SetClassName("Prog")
	e.InitSubroutine("main", nil)
	e.Gen2(emitter.OpLdc, 5)
	e.Gen1(emitter.OpReturn)
	e.CloseSubroutine(1)

	var buf bytes.Buffer
	if err := e.Flush(&buf); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, ".class public Prog") {
		t.Fatalf("missing class header: %s", out)
	}
	if !strings.Contains(out, ".method public static main([Ljava/lang/String;)V") {
		t.Fatalf("missing main descriptor: %s", out)
	}
	if !strings.Contains(out, "ldc 5") || !strings.Contains(out, "return") {
		t.Fatalf("missing emitted body: %s", out)
	}
}

func TestDescriptorForFunctionAndProcedure(t *testing.T) {
	e := emitter.New()
	e.SetClassName("Prog")

	proc := types.Procedure([]types.Type{types.Scalar(types.Integer)})
	e.InitSubroutine("p", &proc)
	e.Gen1(emitter.OpReturn)
	e.CloseSubroutine(1)

	fn := types.Function(types.Scalar(types.Integer), []types.Type{types.Scalar(types.Integer), types.Array(types.Boolean)})
	e.InitSubroutine("f", &fn)
	e.Gen2(emitter.OpILoad, 1)
	e.Gen1(emitter.OpIReturn)
	e.CloseSubroutine(1)

	var buf bytes.Buffer
	if err := e.Flush(&buf); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, ".method public static p(I)V") {
		t.Fatalf("wrong procedure descriptor: %s", out)
	}
	if !strings.Contains(out, ".method public static f(I[Z)I") {
		t.Fatalf("wrong function descriptor: %s", out)
	}
}

func TestGenCmpEmitsBooleanPushIdiom(t *testing.T) {
	e := emitter.New()
	e.SetClassName("Prog")
	e.InitSubroutine("main", nil)
	e.GenCmp("<")
	e.Gen1(emitter.OpReturn)
	e.CloseSubroutine(1)

	var buf bytes.Buffer
	if err := e.Flush(&buf); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "if_icmplt L1") {
		t.Fatalf("expected if_icmplt targeting a label: %s", out)
	}
	if !strings.Contains(out, "L1:") || !strings.Contains(out, "L2:") {
		t.Fatalf("expected both labels defined: %s", out)
	}
}

func TestFlushRejectsUndefinedLabel(t *testing.T) {
	e := emitter.New()
	e.SetClassName("Prog")
	e.InitSubroutine("main", nil)
	l := e.GetLabel()
	e.Gen2Label("goto", l)
	e.Gen1(emitter.OpReturn)
	e.CloseSubroutine(1)

	var buf bytes.Buffer
	if err := e.Flush(&buf); err == nil {
		t.Fatal("expected an error for a branch to an undefined label")
	}
}

func TestGenNewArrayAndIO(t *testing.T) {
	e := emitter.New()
	e.SetClassName("Prog")
	e.InitSubroutine("main", nil)
	e.GenNewArray()
	e.GenRead(types.Boolean)
	e.GenPrint(types.Integer)
	e.GenPrintString(`hi`)
	e.Gen1(emitter.OpReturn)
	e.CloseSubroutine(1)

	var buf bytes.Buffer
	if err := e.Flush(&buf); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"newarray int",
		"readBoolean()Z",
		"printInt(I)V",
		`ldc "hi"`,
		"printString(Ljava/lang/String;)V",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output: %s", want, out)
		}
	}
}

// A boolean array is still backed by a plain int array: GenNewArray never
// branches on element type, so a declared "boolean ... array" allocates
// and is indexed exactly like an integer array.
func TestGenNewArrayIsAlwaysInt(t *testing.T) {
	e := emitter.New()
	e.SetClassName("Prog")
	e.InitSubroutine("main", nil)
	e.GenNewArray()
	e.Gen1(emitter.OpReturn)
	e.CloseSubroutine(1)

	var buf bytes.Buffer
	if err := e.Flush(&buf); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "newarray int") {
		t.Fatalf("expected newarray int: %s", out)
	}
	if strings.Contains(out, "newarray boolean") {
		t.Fatalf("did not expect a newarray boolean: %s", out)
	}
}

func TestDisassembleListsAllSubroutines(t *testing.T) {
	e := emitter.New()
	e.SetClassName("Prog")
	e.InitSubroutine("main", nil)
	e.Gen1(emitter.OpReturn)
	e.CloseSubroutine(1)

	out := e.Disassemble()
	if !strings.Contains(out, "main(") {
		t.Fatalf("expected main in disassembly: %s", out)
	}
}
