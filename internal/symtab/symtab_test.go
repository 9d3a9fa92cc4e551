package symtab_test

import (
	"testing"

	"github.com/simpl2021/simplc/internal/symtab"
	"github.com/simpl2021/simplc/internal/types"
)

func TestGlobalVariableOffsets(t *testing.T) {
	tab := symtab.New()
	px, err := tab.InsertName("x", symtab.Property{Type: types.Scalar(types.Integer)})
	if err != nil {
		t.Fatal(err)
	}
	py, err := tab.InsertName("y", symtab.Property{Type: types.Scalar(types.Integer)})
	if err != nil {
		t.Fatal(err)
	}
	if px.Offset != 1 || py.Offset != 2 {
		t.Fatalf("expected offsets 1,2, got %d,%d", px.Offset, py.Offset)
	}
	if tab.VariablesWidth() != 3 {
		t.Fatalf("expected width 3, got %d", tab.VariablesWidth())
	}
}

func TestSubroutineScopeIsolation(t *testing.T) {
	tab := symtab.New()
	proc := symtab.Property{Type: types.Procedure(nil)}
	if !tab.OpenSubroutine("f", proc) {
		t.Fatal("expected open to succeed")
	}
	if _, err := tab.InsertName("a", symtab.Property{Type: types.Scalar(types.Integer)}); err != nil {
		t.Fatal(err)
	}
	if _, ok := tab.FindName("a"); !ok {
		t.Fatal("expected to find local a")
	}
	tab.CloseSubroutine()
	if _, ok := tab.FindName("a"); ok {
		t.Fatal("expected a to be gone after close")
	}
	if _, ok := tab.FindName("f"); !ok {
		t.Fatal("expected f visible at outer scope after close")
	}
}

func TestActiveShadowsOuterRegardlessOfKind(t *testing.T) {
	tab := symtab.New()
	if _, err := tab.InsertName("v", symtab.Property{Type: types.Scalar(types.Integer)}); err != nil {
		t.Fatal(err)
	}
	proc := symtab.Property{Type: types.Procedure(nil)}
	if !tab.OpenSubroutine("f", proc) {
		t.Fatal("expected open to succeed")
	}
	// shadow the global variable "v" with an unrelated local of the same
	// name; the active scope must win even though the outer hit would not
	// otherwise be visible (it isn't callable).
	local, err := tab.InsertName("v", symtab.Property{Type: types.Scalar(types.Boolean)})
	if err != nil {
		t.Fatal(err)
	}
	found, ok := tab.FindName("v")
	if !ok || found.Type.Base != types.Boolean {
		t.Fatalf("expected local v to shadow global v, got %+v ok=%v", found, ok)
	}
	if local.Offset != 1 {
		t.Fatalf("expected fresh offset numbering in new scope, got %d", local.Offset)
	}
}

func TestSubroutineCannotSeeOuterLocals(t *testing.T) {
	tab := symtab.New()
	if _, err := tab.InsertName("g", symtab.Property{Type: types.Scalar(types.Integer)}); err != nil {
		t.Fatal(err)
	}
	if !tab.OpenSubroutine("f", symtab.Property{Type: types.Procedure(nil)}) {
		t.Fatal("expected open to succeed")
	}
	if _, ok := tab.FindName("g"); ok {
		t.Fatal("a subroutine must not see the program's non-callable globals")
	}
}

func TestMultipleDefinitionInSameScope(t *testing.T) {
	tab := symtab.New()
	if _, err := tab.InsertName("x", symtab.Property{Type: types.Scalar(types.Integer)}); err != nil {
		t.Fatal(err)
	}
	if _, err := tab.InsertName("x", symtab.Property{Type: types.Scalar(types.Integer)}); err != symtab.ErrMultipleDefinition {
		t.Fatalf("expected ErrMultipleDefinition, got %v", err)
	}
}

func TestDuplicateSubroutineName(t *testing.T) {
	tab := symtab.New()
	proc := symtab.Property{Type: types.Procedure(nil)}
	if !tab.OpenSubroutine("f", proc) {
		t.Fatal("expected first open to succeed")
	}
	tab.CloseSubroutine()
	if tab.OpenSubroutine("f", proc) {
		t.Fatal("expected second open of the same name to fail")
	}
}
