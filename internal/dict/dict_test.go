package dict_test

import (
	"fmt"
	"testing"

	"github.com/simpl2021/simplc/internal/dict"
)

func TestInsertSearch(t *testing.T) {
	d := dict.New(dict.StringKeys{})
	if err := d.Insert("x", 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v, ok := d.Search("x")
	if !ok || v.(int) != 1 {
		t.Fatalf("expected (1, true), got (%v, %v)", v, ok)
	}
	if _, ok := d.Search("y"); ok {
		t.Fatalf("expected miss for y")
	}
}

func TestInsertDuplicate(t *testing.T) {
	d := dict.New(dict.StringKeys{})
	if err := d.Insert("x", 1); err != nil {
		t.Fatal(err)
	}
	if err := d.Insert("x", 2); err != dict.ErrDuplicate {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	v, _ := d.Search("x")
	if v.(int) != 1 {
		t.Fatalf("duplicate insert must not overwrite, got %v", v)
	}
}

// TestCapacityIsAlwaysPrime checks that after any sequence of inserts,
// capacity is one of the precomputed primes and the load factor invariant
// holds immediately before any non-rehashing insert.
func TestCapacityIsAlwaysPrime(t *testing.T) {
	validPrimes := map[int]bool{
		13: true, 31: true, 61: true, 127: true, 251: true,
		509: true, 1021: true, 2039: true, 4093: true,
	}
	d := dict.New(dict.StringKeys{})
	for i := 0; i < 3000; i++ {
		key := fmt.Sprintf("key-%d", i)
		before := d.Cap()
		if err := d.Insert(key, i); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
		if !validPrimes[d.Cap()] {
			t.Fatalf("capacity %d after insert %d is not a precomputed prime", d.Cap(), i)
		}
		if d.Cap() == before {
			// no rehash happened: load factor must have held before this insert.
			if float64(d.Len()-1)/float64(before) >= 0.75 {
				t.Fatalf("load factor invariant violated at insert %d", i)
			}
		}
	}
}

func TestEachVisitsAllEntries(t *testing.T) {
	d := dict.New(dict.StringKeys{})
	want := map[string]int{"a": 1, "b": 2, "c": 3}
	for k, v := range want {
		if err := d.Insert(k, v); err != nil {
			t.Fatal(err)
		}
	}
	got := map[string]int{}
	d.Each(func(k string, v interface{}) { got[k] = v.(int) })
	if len(got) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(got))
	}
	for k, v := range want {
		if got[k] != v {
			t.Fatalf("key %s: expected %d, got %d", k, v, got[k])
		}
	}
}
