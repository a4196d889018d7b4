package engine

import "fmt"

// Entity is an opaque handle: slot index in the low 32 bits, generation in the high 32.
type Entity uint64

// NoEntity is never returned by an allocator.
const NoEntity Entity = 0

func newEntity(index, generation uint32) Entity {
	return Entity(uint64(generation)<<32 | uint64(index))
}

func (e Entity) Index() uint32 {
	return uint32(e)
}

func (e Entity) Generation() uint32 {
	return uint32(e >> 32)
}

func (e Entity) String() string {
	return fmt.Sprintf("%dv%d", e.Index(), e.Generation())
}

// EntityAllocator hands out entity handles and recycles freed slots with a bumped generation.
type EntityAllocator struct {
	generations []uint32
	free        []uint32
	alive       int
}

func (a *EntityAllocator) Allocate() Entity {
	a.alive++
	if n := len(a.free); n > 0 {
		idx := a.free[n-1]
		a.free = a.free[:n-1]
		return newEntity(idx, a.generations[idx])
	}
	// generations start at 1 so the zero handle stays invalid
	a.generations = append(a.generations, 1)
	return newEntity(uint32(len(a.generations)-1), 1)
}

// Free releases e. Returns false if e is stale.
func (a *EntityAllocator) Free(e Entity) bool {
	if !a.Alive(e) {
		return false
	}
	idx := e.Index()
	a.generations[idx]++
	a.free = append(a.free, idx)
	a.alive--
	return true
}

func (a *EntityAllocator) Alive(e Entity) bool {
	idx := e.Index()
	return int(idx) < len(a.generations) && a.generations[idx] == e.Generation()
}

func (a *EntityAllocator) Len() int {
	return a.alive
}
