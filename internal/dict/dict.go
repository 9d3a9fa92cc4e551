// Package dict implements a generic open-chained hash table that grows by
// rehashing to the largest prime below the next power of two, the way a
// hand-rolled systems-language symbol table dictionary would. It is the
// storage underneath internal/symtab's two scopes.
package dict

import "github.com/pkg/errors"

// primeDelta[n] is such that (1<<n)-primeDelta[n] is the largest prime
// strictly less than 1<<n, for n in [2, 31]. Entries 0 and 1 are unused;
// the table never operates below index 2.
var primeDelta = [32]uint32{
	0, 0, 1, 1, 3, 1, 3, 1, 5, 3, 3, 9, 3, 1, 3, 19,
	15, 1, 5, 1, 3, 9, 3, 15, 3, 39, 5, 39, 57, 3, 35, 1,
}

func primeAt(n int) int {
	return int((uint32(1) << uint(n)) - primeDelta[n])
}

// initialCapIndex is the capacity index used for a freshly created table:
// capacity 13, the smallest prime this dictionary ever starts at.
const initialCapIndex = 4

// maxLoadFactor is the load factor that triggers a rehash on insert.
const maxLoadFactor = 0.75

// ErrDuplicate is returned by Insert when the key is already present.
var ErrDuplicate = errors.New("duplicate key")

// Strategy supplies the hash and comparison functions a Dict is
// parameterised over. Keys are strings; Dict itself never compares keys
// directly.
type Strategy interface {
	Hash(key string, capacity int) int
	Equal(a, b string) bool
}

// StringKeys is the one concrete Strategy this package needs: a cyclic
// left-rotate string hash and byte-wise equality.
type StringKeys struct{}

// Hash computes h = rotl(h, 5) + byte for every byte of key, then reduces
// mod capacity.
func (StringKeys) Hash(key string, capacity int) int {
	var h uint32
	for i := 0; i < len(key); i++ {
		h = (h<<5 | h>>27) + uint32(key[i])
	}
	return int(h % uint32(capacity))
}

// Equal does a plain byte-wise comparison.
func (StringKeys) Equal(a, b string) bool { return a == b }

type entry struct {
	key   string
	value interface{}
	next  *entry
}

// Dict is a chained open-hash dictionary mapping string keys to arbitrary
// values. The zero value is not usable; use New.
type Dict struct {
	strategy Strategy
	buckets  []*entry
	capIndex int
	entries  int
}

// New creates an empty Dict at the initial capacity (prime 13) using the
// given Strategy.
func New(strategy Strategy) *Dict {
	return &Dict{
		strategy: strategy,
		buckets:  make([]*entry, primeAt(initialCapIndex)),
		capIndex: initialCapIndex,
	}
}

// Len returns the number of live entries.
func (d *Dict) Len() int { return d.entries }

// Cap returns the current bucket capacity (always one of the precomputed
// primes).
func (d *Dict) Cap() int { return len(d.buckets) }

// Search returns the value associated with key and true, or nil and false
// if key is not present.
func (d *Dict) Search(key string) (interface{}, bool) {
	idx := d.strategy.Hash(key, len(d.buckets))
	for e := d.buckets[idx]; e != nil; e = e.next {
		if d.strategy.Equal(e.key, key) {
			return e.value, true
		}
	}
	return nil, false
}

// Insert adds key/value to the table. It returns ErrDuplicate if an entry
// comparing equal to key is already present; the table is left unmodified
// in that case.
func (d *Dict) Insert(key string, value interface{}) error {
	if _, found := d.Search(key); found {
		return ErrDuplicate
	}
	if float64(d.entries+1)/float64(len(d.buckets)) >= maxLoadFactor {
		d.rehash()
	}
	idx := d.strategy.Hash(key, len(d.buckets))
	d.buckets[idx] = &entry{key: key, value: value, next: d.buckets[idx]}
	d.entries++
	return nil
}

// rehash grows the bucket array to the next prime-below-a-power-of-two and
// redistributes every live entry.
func (d *Dict) rehash() {
	next := d.capIndex + 1
	newBuckets := make([]*entry, primeAt(next))
	for _, head := range d.buckets {
		for e := head; e != nil; {
			n := e.next
			idx := d.strategy.Hash(e.key, len(newBuckets))
			e.next = newBuckets[idx]
			newBuckets[idx] = e
			e = n
		}
	}
	d.buckets = newBuckets
	d.capIndex = next
}

// Each calls fn for every live entry, in unspecified order. fn must not
// mutate the table.
func (d *Dict) Each(fn func(key string, value interface{})) {
	for _, head := range d.buckets {
		for e := head; e != nil; e = e.next {
			fn(e.key, e.value)
		}
	}
}
