package engine

import (
	"collide3d/internal/components"

	"github.com/go-gl/mathgl/mgl32"
)

// Scene is the entity/component store. It is the system of record for
// transforms and velocities; subsystems keep only derived per-entity state.
type Scene struct {
	Name string

	entities   EntityAllocator
	names      Table[string]
	Transforms Table[components.Transform]
	Velocities Table[components.Velocity]
	Bodies     Table[components.Body]
	Colliders  Table[components.Collider]

	moved            []Entity
	movedSet         Table[struct{}]
	removedColliders []Entity
}

func NewScene(name string) *Scene {
	return &Scene{Name: name}
}

// Spawn allocates a new entity with a transform at the origin.
func (s *Scene) Spawn(name string) Entity {
	e := s.entities.Allocate()
	s.names.Insert(e, name)
	s.Transforms.Insert(e, components.NewTransform(mgl32.Vec3{}))
	s.MarkMoved(e)
	return e
}

// Despawn removes e and all of its components.
func (s *Scene) Despawn(e Entity) bool {
	if !s.entities.Alive(e) {
		return false
	}
	s.RemoveCollider(e)
	s.names.Remove(e)
	s.Transforms.Remove(e)
	s.Velocities.Remove(e)
	s.Bodies.Remove(e)
	s.movedSet.Remove(e)
	return s.entities.Free(e)
}

func (s *Scene) Alive(e Entity) bool {
	return s.entities.Alive(e)
}

func (s *Scene) Len() int {
	return s.entities.Len()
}

func (s *Scene) EntityName(e Entity) string {
	if n, ok := s.names.Get(e); ok {
		return *n
	}
	return ""
}

func (s *Scene) FindByName(name string) (Entity, bool) {
	for i, n := range s.names.values {
		if n == name {
			return s.names.entities[i], true
		}
	}
	return NoEntity, false
}

func (s *Scene) SetTransform(e Entity, t components.Transform) {
	if !s.entities.Alive(e) {
		return
	}
	s.Transforms.Insert(e, t)
	s.MarkMoved(e)
}

func (s *Scene) SetVelocity(e Entity, v components.Velocity) {
	if s.entities.Alive(e) {
		s.Velocities.Insert(e, v)
	}
}

func (s *Scene) SetBody(e Entity, b components.Body) {
	if s.entities.Alive(e) {
		s.Bodies.Insert(e, b)
	}
}

// SetCollider attaches or replaces e's collider; the entity counts as moved.
func (s *Scene) SetCollider(e Entity, c components.Collider) {
	if !s.entities.Alive(e) {
		return
	}
	s.Colliders.Insert(e, c)
	s.MarkMoved(e)
}

func (s *Scene) RemoveCollider(e Entity) bool {
	if !s.Colliders.Remove(e) {
		return false
	}
	s.removedColliders = append(s.removedColliders, e)
	return true
}

// MarkMoved flags e so the next physics pass refreshes its bounds.
func (s *Scene) MarkMoved(e Entity) {
	if s.movedSet.Has(e) {
		return
	}
	s.movedSet.Insert(e, struct{}{})
	s.moved = append(s.moved, e)
}

// Changes returns entities moved and colliders removed since the last
// ClearChanges. The slices are owned by the scene.
func (s *Scene) Changes() (moved, removedColliders []Entity) {
	return s.moved, s.removedColliders
}

func (s *Scene) ClearChanges() {
	for _, e := range s.moved {
		s.movedSet.Remove(e)
	}
	s.moved = s.moved[:0]
	s.removedColliders = s.removedColliders[:0]
}
