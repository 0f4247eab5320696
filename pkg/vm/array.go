package vm

import (
	"sync"
)

// Array represents a script array.
// It wraps a slice to support pass-by-reference semantics.
type Array struct {
	elements []any
	mu       sync.RWMutex
}

// NewArray creates a new Array with the specified initial size.
// All elements are initialized to undefined.
func NewArray(size int) *Array {
	elements := make([]any, size)
	for i := range elements {
		elements[i] = Undefined
	}
	return &Array{elements: elements}
}

// NewArrayFromSlice creates a new Array from an existing slice.
func NewArrayFromSlice(slice []any) *Array {
	return &Array{elements: slice}
}

// Get retrieves the element at the specified index.
// Out of range reads return undefined and false.
func (a *Array) Get(index int64) (any, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if index < 0 || int(index) >= len(a.elements) {
		return Undefined, false
	}
	return a.elements[index], true
}

// Set sets the element at the specified index.
// If the index exceeds the current size, the array grows and the gap is filled with undefined.
func (a *Array) Set(index int64, value any) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if index < 0 {
		return
	}

	if int(index) >= len(a.elements) {
		newElements := make([]any, int(index)+1)
		copy(newElements, a.elements)
		for i := len(a.elements); i < len(newElements); i++ {
			newElements[i] = Undefined
		}
		a.elements = newElements
	}

	a.elements[index] = value
}

// Len returns the current length of the array.
func (a *Array) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.elements)
}

// SetLen truncates or extends the array to n elements.
func (a *Array) SetLen(n int) {
	if n < 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if n <= len(a.elements) {
		a.elements = a.elements[:n]
		return
	}
	for len(a.elements) < n {
		a.elements = append(a.elements, Undefined)
	}
}

// ToSlice returns a copy of the underlying slice.
func (a *Array) ToSlice() []any {
	a.mu.RLock()
	defer a.mu.RUnlock()
	result := make([]any, len(a.elements))
	copy(result, a.elements)
	return result
}

// Push appends values and returns the new length.
func (a *Array) Push(values ...any) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.elements = append(a.elements, values...)
	return len(a.elements)
}

// Pop removes and returns the last element, or undefined when empty.
func (a *Array) Pop() any {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.elements) == 0 {
		return Undefined
	}
	last := a.elements[len(a.elements)-1]
	a.elements = a.elements[:len(a.elements)-1]
	return last
}

// Shift removes and returns the first element, or undefined when empty.
func (a *Array) Shift() any {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.elements) == 0 {
		return Undefined
	}
	first := a.elements[0]
	a.elements = append([]any(nil), a.elements[1:]...)
	return first
}

// Unshift prepends values and returns the new length.
func (a *Array) Unshift(values ...any) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.elements = append(append([]any(nil), values...), a.elements...)
	return len(a.elements)
}
