package model

import (
	"cmp"

	"github.com/google/btree"
)

const btreeDegree = 8

type entry[K cmp.Ordered, V any] struct {
	key K
	val V
}

// index is a unique-key ordered container. Lookup, insert and remove are
// O(log n); iteration is in key order.
type index[K cmp.Ordered, V any] struct {
	tree *btree.BTreeG[entry[K, V]]
}

func newIndex[K cmp.Ordered, V any]() *index[K, V] {
	return &index[K, V]{
		tree: btree.NewG(btreeDegree, func(a, b entry[K, V]) bool {
			return a.key < b.key
		}),
	}
}

// insert adds val under key and reports false, leaving the existing entry
// untouched, if key is already present.
func (ix *index[K, V]) insert(key K, val V) bool {
	lookup := entry[K, V]{key: key}
	if ix.tree.Has(lookup) {
		return false
	}
	ix.tree.ReplaceOrInsert(entry[K, V]{key: key, val: val})
	return true
}

func (ix *index[K, V]) get(key K) (V, bool) {
	e, ok := ix.tree.Get(entry[K, V]{key: key})
	return e.val, ok
}

func (ix *index[K, V]) remove(key K) (V, bool) {
	e, ok := ix.tree.Delete(entry[K, V]{key: key})
	return e.val, ok
}

func (ix *index[K, V]) len() int {
	return ix.tree.Len()
}

// each calls fn in key order until fn returns false.
func (ix *index[K, V]) each(fn func(V) bool) {
	ix.tree.Ascend(func(e entry[K, V]) bool {
		return fn(e.val)
	})
}

func (ix *index[K, V]) values() []V {
	out := make([]V, 0, ix.len())
	ix.each(func(v V) bool {
		out = append(out, v)
		return true
	})
	return out
}
