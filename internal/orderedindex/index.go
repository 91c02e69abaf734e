// Package orderedindex implements the keyed ordered container spec.md
// §4.1 (C1) describes: insert/delete/search plus first/next/prev and
// in-order iteration that tolerates deletion of the current entry mid-walk.
// It backs both the contact and range indexes of internal/contactplan.
//
// The container is a sorted slice searched with binary search rather than
// a balanced tree: spec.md §5 bounds contact-plan size at roughly 10^4
// entries, where a slice's O(n) insert/delete is cheaper in practice than
// tree rebalancing, and iteration over a slice is allocation-free.
package orderedindex

import "sort"

// ErrDuplicateKey is returned by Insert when the key already exists;
// spec.md §4.1 disallows duplicate keys.
type ErrDuplicateKey struct{}

func (ErrDuplicateKey) Error() string { return "orderedindex: duplicate key" }

type entry[K any, V any] struct {
	key K
	val V
}

// Index is a generic ordered map keyed by K, comparing keys with a
// caller-supplied less function.
type Index[K any, V any] struct {
	less    func(a, b K) bool
	entries []entry[K, V]
}

// New creates an empty Index ordered by less.
func New[K any, V any](less func(a, b K) bool) *Index[K, V] {
	return &Index[K, V]{less: less}
}

func (ix *Index[K, V]) search(key K) (int, bool) {
	n := len(ix.entries)
	i := sort.Search(n, func(i int) bool {
		return !ix.less(ix.entries[i].key, key)
	})
	if i < n && !ix.less(key, ix.entries[i].key) {
		return i, true
	}
	return i, false
}

// Insert adds key/val. It returns ErrDuplicateKey if key is already
// present, leaving the index unchanged.
func (ix *Index[K, V]) Insert(key K, val V) error {
	i, found := ix.search(key)
	if found {
		return ErrDuplicateKey{}
	}
	ix.entries = append(ix.entries, entry[K, V]{})
	copy(ix.entries[i+1:], ix.entries[i:])
	ix.entries[i] = entry[K, V]{key: key, val: val}
	return nil
}

// Replace overwrites the value stored at key, or inserts it if absent.
// It returns true if an existing entry was overwritten.
func (ix *Index[K, V]) Replace(key K, val V) bool {
	i, found := ix.search(key)
	if found {
		ix.entries[i].val = val
		return true
	}
	ix.entries = append(ix.entries, entry[K, V]{})
	copy(ix.entries[i+1:], ix.entries[i:])
	ix.entries[i] = entry[K, V]{key: key, val: val}
	return false
}

// Delete removes key. It returns true if the key was present.
func (ix *Index[K, V]) Delete(key K) bool {
	i, found := ix.search(key)
	if !found {
		return false
	}
	ix.entries = append(ix.entries[:i], ix.entries[i+1:]...)
	return true
}

// Search returns the value stored at key.
func (ix *Index[K, V]) Search(key K) (V, bool) {
	i, found := ix.search(key)
	if !found {
		var zero V
		return zero, false
	}
	return ix.entries[i].val, true
}

// Len returns the number of entries in the index.
func (ix *Index[K, V]) Len() int { return len(ix.entries) }

// First returns the smallest key/value pair, or false if the index is empty.
func (ix *Index[K, V]) First() (K, V, bool) {
	if len(ix.entries) == 0 {
		var zk K
		var zv V
		return zk, zv, false
	}
	e := ix.entries[0]
	return e.key, e.val, true
}

// Next returns the entry with the smallest key strictly greater than key
// (key itself need not be present), or false if there is none.
func (ix *Index[K, V]) Next(key K) (K, V, bool) {
	i, found := ix.search(key)
	if found {
		i++
	}
	if i >= len(ix.entries) {
		var zk K
		var zv V
		return zk, zv, false
	}
	e := ix.entries[i]
	return e.key, e.val, true
}

// Prev returns the entry with the largest key strictly less than key
// (key itself need not be present), or false if there is none.
func (ix *Index[K, V]) Prev(key K) (K, V, bool) {
	i, _ := ix.search(key)
	if i == 0 {
		var zk K
		var zv V
		return zk, zv, false
	}
	e := ix.entries[i-1]
	return e.key, e.val, true
}

// ForEach walks entries in ascending key order, calling fn for each.
// The key of the following entry is captured before fn runs, so fn may
// delete the current entry (via the owning Index) without the walk
// skipping or revisiting an entry. Returning false from fn stops the walk.
func (ix *Index[K, V]) ForEach(fn func(key K, val V) bool) {
	key, val, ok := ix.First()
	for ok {
		nextKey, _, hasNext := ix.Next(key)
		if !fn(key, val) {
			return
		}
		if !hasNext {
			return
		}
		// Re-resolve in case fn mutated entries around nextKey.
		var v V
		v, ok = ix.Search(nextKey)
		key = nextKey
		val = v
	}
}

// All returns a snapshot slice of all values in ascending key order.
func (ix *Index[K, V]) All() []V {
	out := make([]V, len(ix.entries))
	for i, e := range ix.entries {
		out[i] = e.val
	}
	return out
}
