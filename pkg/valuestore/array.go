// Package valuestore implements the multi-array value store (component A):
// N-dimensional arrays of a fixed scalar type with flat and multi-indexed
// access. In the solver it holds the Lagrange dual's per-constraint
// multipliers; the model does not use it to group or name entities.
//
// The C++ reference instantiates its value-proxy template over exactly two
// concrete scalar types in practice, per DESIGN NOTES §9. Go generics let
// this package express that as one generic type instead of duplicating the
// container per type.
package valuestore

import "fmt"

// Array is a row-major, fixed-shape N-dimensional array of scalars. Strides
// are row-major: the last dimension varies fastest.
type Array[T any] struct {
	shape   []int
	strides []int
	data    []T
}

// New constructs an Array with the given shape. Every dimension must be
// positive.
func New[T any](shape ...int) *Array[T] {
	if len(shape) == 0 {
		shape = []int{1}
	}
	size := 1
	for _, d := range shape {
		if d <= 0 {
			panic(fmt.Sprintf("valuestore: non-positive dimension %d in shape %v", d, shape))
		}
		size *= d
	}
	strides := make([]int, len(shape))
	acc := 1
	for i := len(shape) - 1; i >= 0; i-- {
		strides[i] = acc
		acc *= shape[i]
	}
	return &Array[T]{
		shape:   append([]int(nil), shape...),
		strides: strides,
		data:    make([]T, size),
	}
}

// Rank returns the number of dimensions.
func (a *Array[T]) Rank() int { return len(a.shape) }

// Shape returns a copy of the array's dimensions.
func (a *Array[T]) Shape() []int { return append([]int(nil), a.shape...) }

// Len returns the total number of scalar elements.
func (a *Array[T]) Len() int { return len(a.data) }

// Flat returns the element at the given flat (row-major) index.
func (a *Array[T]) Flat(i int) T {
	a.checkFlat(i)
	return a.data[i]
}

// SetFlat assigns the element at the given flat index.
func (a *Array[T]) SetFlat(i int, v T) {
	a.checkFlat(i)
	a.data[i] = v
}

// At returns the element at the given multi-index, runtime-checked against
// the array's rank.
func (a *Array[T]) At(idx ...int) T {
	return a.data[a.flatIndex(idx)]
}

// SetAt assigns the element at the given multi-index.
func (a *Array[T]) SetAt(v T, idx ...int) {
	a.data[a.flatIndex(idx)] = v
}

// Fill assigns v to every element.
func (a *Array[T]) Fill(v T) {
	for i := range a.data {
		a.data[i] = v
	}
}

// Unflatten maps a flat index back to a multi-index, for pretty-printing
// entity names such as "y[ 3, 7]".
func (a *Array[T]) Unflatten(flat int) []int {
	a.checkFlat(flat)
	idx := make([]int, len(a.shape))
	remaining := flat
	for i, stride := range a.strides {
		idx[i] = remaining / stride
		remaining %= stride
	}
	return idx
}

// Each calls f for every (flatIndex, value) pair in row-major order.
func (a *Array[T]) Each(f func(flat int, v T)) {
	for i, v := range a.data {
		f(i, v)
	}
}

func (a *Array[T]) flatIndex(idx []int) int {
	if len(idx) != len(a.shape) {
		panic(fmt.Sprintf("valuestore: index rank %d does not match array rank %d", len(idx), len(a.shape)))
	}
	flat := 0
	for i, v := range idx {
		if v < 0 || v >= a.shape[i] {
			panic(fmt.Sprintf("valuestore: index %d out of range [0,%d) in dimension %d", v, a.shape[i], i))
		}
		flat += v * a.strides[i]
	}
	return flat
}

func (a *Array[T]) checkFlat(i int) {
	if i < 0 || i >= len(a.data) {
		panic(fmt.Sprintf("valuestore: flat index %d out of range [0,%d)", i, len(a.data)))
	}
}
