// Package symtab implements a two-scope symbol table: an active scope
// (locals and parameters of the subroutine currently being compiled, or
// the program's globals at top level) and a saved outer scope (subroutine
// names and the program's globals, once a subroutine has been entered).
// Both scopes are internal/dict tables keyed by identifier.
package symtab

import (
	"github.com/simpl2021/simplc/internal/dict"
	"github.com/simpl2021/simplc/internal/types"
)

// Property describes one bound name: its value type and, for a variable,
// the local-variable-array offset assigned when it was declared.
type Property struct {
	Type   types.Type
	Offset int // 1-based local slot; meaningless for a callable
}

// ErrMultipleDefinition is returned by InsertName when the identifier is
// already visible in the relevant scope. OpenSubroutine reports the same
// condition by returning false.
var ErrMultipleDefinition = dict.ErrDuplicate

// Table is the two-scope façade wrapping the two internal/dict tables.
type Table struct {
	active     *dict.Dict
	outer      *dict.Dict // nil at top level
	currOffset int
}

// New creates a Table with a single active scope for the program's
// globals; the outer scope starts out absent.
func New() *Table {
	return &Table{active: dict.New(dict.StringKeys{}), currOffset: 1}
}

// OpenSubroutine inserts name into the current active table with its
// callable property, then pushes a fresh, empty active scope for the
// subroutine's parameters and locals. It returns false without modifying
// the active scope for subsequent declarations if name is already defined
// in the active table.
func (t *Table) OpenSubroutine(name string, prop Property) bool {
	if err := t.active.Insert(name, prop); err != nil {
		return false
	}
	t.outer = t.active
	t.active = dict.New(dict.StringKeys{})
	t.currOffset = 1
	return true
}

// CloseSubroutine destroys the active scope (the subroutine's locals and
// parameters) and restores the saved outer scope as active.
func (t *Table) CloseSubroutine() {
	t.active = t.outer
	t.outer = nil
}

// InsertName binds id to prop in the current active scope. It fails if id
// is already visible: present in the active scope, or present and
// callable in the outer scope (a local may not shadow a subroutine name).
// On success, if prop's type is a variable, prop.Offset is set to the next
// unused local slot.
func (t *Table) InsertName(id string, prop Property) (Property, error) {
	if t.outer != nil {
		if v, ok := t.outer.Search(id); ok && v.(Property).Type.IsCallable() {
			return Property{}, ErrMultipleDefinition
		}
	}
	if prop.Type.IsVariable() {
		prop.Offset = t.currOffset
		t.currOffset++
	}
	if err := t.active.Insert(id, prop); err != nil {
		return Property{}, err
	}
	return prop, nil
}

// FindName resolves an identifier. The active scope is always consulted
// first and wins outright regardless of kind: a subroutine's own locals
// must never be shadowed by an outer name of the same spelling. Only on a
// miss in the active scope does the outer scope apply, and then only a
// callable hit there is visible (a subroutine must not see another
// subroutine's locals or the program's non-callable globals).
func (t *Table) FindName(id string) (Property, bool) {
	if v, ok := t.active.Search(id); ok {
		return v.(Property), true
	}
	if t.outer != nil {
		if v, ok := t.outer.Search(id); ok {
			if p := v.(Property); p.Type.IsCallable() {
				return p, true
			}
		}
	}
	return Property{}, false
}

// VariablesWidth returns curr_offset, the next unused local slot: one more
// than the number of variable slots assigned since it was last reset to 1,
// since slot numbering starts at 1. It is reported to the emitter when
// closing a subroutine so it can declare the method's locals-array size.
func (t *Table) VariablesWidth() int { return t.currOffset }
