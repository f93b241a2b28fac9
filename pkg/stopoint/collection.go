package stopoint

import "github.com/tracewell/tracewell/pkg/primitives"

// Collection is the "templated stop-point collections" container named
// in spec §9's design notes: rather than writing one address-keyed map
// per element kind (as pkg/proc/breakpoints.go's BreakpointMap does for
// *Breakpoint alone), one generic container serves BreakpointSite,
// Watchpoint, and Breakpoint alike, parameterized by each element's
// id/address accessors.
type Collection[T any] struct {
	idOf   func(*T) int
	addrOf func(*T) primitives.VirtAddr

	byID   map[int]*T
	byAddr map[primitives.VirtAddr]*T
	order  []*T
}

// NewCollection builds an empty collection over T, given how to read an
// element's id and address.
func NewCollection[T any](idOf func(*T) int, addrOf func(*T) primitives.VirtAddr) *Collection[T] {
	return &Collection[T]{
		idOf:   idOf,
		addrOf: addrOf,
		byID:   make(map[int]*T),
		byAddr: make(map[primitives.VirtAddr]*T),
	}
}

// Add inserts item, indexed by its current id and address.
func (c *Collection[T]) Add(item *T) {
	c.byID[c.idOf(item)] = item
	c.byAddr[c.addrOf(item)] = item
	c.order = append(c.order, item)
}

// Remove deletes the element with the given id, if present.
func (c *Collection[T]) Remove(id int) {
	item, ok := c.byID[id]
	if !ok {
		return
	}
	delete(c.byID, id)
	delete(c.byAddr, c.addrOf(item))
	for i, v := range c.order {
		if v == item {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// ByID looks up an element by id.
func (c *Collection[T]) ByID(id int) (*T, bool) {
	item, ok := c.byID[id]
	return item, ok
}

// ByAddress looks up an element by its exact address.
func (c *Collection[T]) ByAddress(addr primitives.VirtAddr) (*T, bool) {
	item, ok := c.byAddr[addr]
	return item, ok
}

// All returns every element in insertion order.
func (c *Collection[T]) All() []*T {
	out := make([]*T, len(c.order))
	copy(out, c.order)
	return out
}

// InRange returns every element whose address lies in [lo, hi).
func (c *Collection[T]) InRange(lo, hi primitives.VirtAddr) []*T {
	var out []*T
	for _, item := range c.order {
		a := c.addrOf(item)
		if !a.Less(lo) && a.Less(hi) {
			out = append(out, item)
		}
	}
	return out
}

// Len reports how many elements the collection holds.
func (c *Collection[T]) Len() int { return len(c.order) }
