package physics

import (
	"collide3d/internal/engine"
	"collide3d/internal/geom"

	"github.com/go-gl/mathgl/mgl32"
)

type RaycastHit struct {
	Entity   engine.Entity
	Point    mgl32.Vec3
	Normal   mgl32.Vec3
	Distance float32
}

// RayCast returns the closest collider whose world AABB the ray hits within
// maxDistance. The broad phase prunes candidates; hits are measured against
// the cached tight boxes.
func (w *World) RayCast(origin, direction mgl32.Vec3, maxDistance float32) (RaycastHit, bool) {
	if direction.LenSqr() == 0 || maxDistance <= 0 {
		return RaycastHit{}, false
	}
	direction = direction.Normalize()

	var closest RaycastHit
	closest.Distance = maxDistance
	hit := false

	w.tree.RayCast(origin, direction, maxDistance, func(e engine.Entity, _ float32) float32 {
		box, ok := w.aabbs[e]
		if !ok {
			return closest.Distance
		}
		if h, ok := raycastBox(origin, direction, box, closest.Distance); ok {
			h.Entity = e
			closest = h
			hit = true
		}
		return closest.Distance
	})

	return closest, hit
}

func raycastBox(origin, direction mgl32.Vec3, box geom.AABB, maxDistance float32) (RaycastHit, bool) {
	t, ok := box.RayIntersect(origin, direction, maxDistance)
	if !ok {
		return RaycastHit{}, false
	}

	point := origin.Add(direction.Mul(t))

	// Calculate normal based on which face was hit
	var normal mgl32.Vec3
	const epsilon = 0.001
	switch {
	case abs32(point[0]-box.Min[0]) < epsilon:
		normal = mgl32.Vec3{-1, 0, 0}
	case abs32(point[0]-box.Max[0]) < epsilon:
		normal = mgl32.Vec3{1, 0, 0}
	case abs32(point[1]-box.Min[1]) < epsilon:
		normal = mgl32.Vec3{0, -1, 0}
	case abs32(point[1]-box.Max[1]) < epsilon:
		normal = mgl32.Vec3{0, 1, 0}
	case abs32(point[2]-box.Min[2]) < epsilon:
		normal = mgl32.Vec3{0, 0, -1}
	default:
		normal = mgl32.Vec3{0, 0, 1}
	}

	return RaycastHit{Point: point, Normal: normal, Distance: t}, true
}
