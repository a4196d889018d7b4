package engine

const absent = -1

// Table is a sparse set of components keyed by entity. Values live in a dense
// slice, so iteration is cache friendly and pointers returned by Get stay valid
// until the next Insert or Remove.
type Table[T any] struct {
	sparse   []int32 // entity index -> dense slot
	entities []Entity
	values   []T
}

// Insert adds or replaces the component of e.
func (t *Table[T]) Insert(e Entity, v T) {
	idx := int(e.Index())
	for len(t.sparse) <= idx {
		t.sparse = append(t.sparse, absent)
	}
	if slot := t.sparse[idx]; slot != absent {
		t.entities[slot] = e
		t.values[slot] = v
		return
	}
	t.sparse[idx] = int32(len(t.values))
	t.entities = append(t.entities, e)
	t.values = append(t.values, v)
}

// Get returns a pointer to e's component for in-place mutation.
func (t *Table[T]) Get(e Entity) (*T, bool) {
	slot := t.slot(e)
	if slot == absent {
		return nil, false
	}
	return &t.values[slot], true
}

func (t *Table[T]) Has(e Entity) bool {
	return t.slot(e) != absent
}

// Remove deletes e's component by swapping the last slot into its place.
func (t *Table[T]) Remove(e Entity) bool {
	slot := t.slot(e)
	if slot == absent {
		return false
	}
	last := int32(len(t.values) - 1)
	if slot != last {
		moved := t.entities[last]
		t.entities[slot] = moved
		t.values[slot] = t.values[last]
		t.sparse[moved.Index()] = slot
	}
	var zero T
	t.values[last] = zero
	t.entities = t.entities[:last]
	t.values = t.values[:last]
	t.sparse[e.Index()] = absent
	return true
}

func (t *Table[T]) Len() int {
	return len(t.values)
}

// Entities exposes the dense key slice. Do not modify it.
func (t *Table[T]) Entities() []Entity {
	return t.entities
}

// Each calls fn for every component in dense order.
func (t *Table[T]) Each(fn func(Entity, *T)) {
	for i := range t.values {
		fn(t.entities[i], &t.values[i])
	}
}

func (t *Table[T]) slot(e Entity) int32 {
	idx := int(e.Index())
	if idx >= len(t.sparse) {
		return absent
	}
	slot := t.sparse[idx]
	if slot == absent || t.entities[slot] != e {
		return absent
	}
	return slot
}
