package service

import (
	"sync"
)

// RingList is a fixed-capacity circular list. Once full, each Add
// overwrites the oldest entry. It is safe to share across goroutines.
type RingList[T comparable] struct {
	capacity int
	index    int
	items    []T
	mutex    *sync.RWMutex
}

// NewRingList creates a new RingList with the specified capacity.
func NewRingList[T comparable](capacity int) *RingList[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &RingList[T]{
		capacity: capacity,
		items:    make([]T, capacity),
		mutex:    &sync.RWMutex{},
	}
}

// Add adds an item to the list. If capacity is ten, then the
// eleventh item overwrites the first.
func (list *RingList[T]) Add(item T) {
	list.mutex.Lock()
	list.items[list.index] = item
	list.index = (list.index + 1) % list.capacity
	list.mutex.Unlock()
}

// Contains returns true if the item is in the list.
func (list *RingList[T]) Contains(item T) bool {
	var zero T
	if item == zero {
		return false
	}
	list.mutex.RLock()
	defer list.mutex.RUnlock()
	for _, value := range list.items {
		if value == item {
			return true
		}
	}
	return false
}

// Del removes all instances of item.
func (list *RingList[T]) Del(item T) {
	var zero T
	if item == zero {
		return
	}
	list.mutex.Lock()
	for i, value := range list.items {
		if value == item {
			list.items[i] = zero
		}
	}
	list.mutex.Unlock()
}

// Items returns the non-empty entries, oldest first.
func (list *RingList[T]) Items() []T {
	var zero T
	list.mutex.RLock()
	defer list.mutex.RUnlock()
	items := make([]T, 0, list.capacity)
	for i := 0; i < list.capacity; i++ {
		value := list.items[(list.index+i)%list.capacity]
		if value != zero {
			items = append(items, value)
		}
	}
	return items
}
