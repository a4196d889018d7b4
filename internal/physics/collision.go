package physics

import (
	"collide3d/internal/engine"
	"collide3d/internal/geom"

	"github.com/go-gl/mathgl/mgl32"
)

// Contact is one point of contact between two entities.
type Contact struct {
	EntityA     engine.Entity
	EntityB     engine.Entity
	Normal      mgl32.Vec3 // unit, A toward B
	Penetration float32    // >= 0
	Point       mgl32.Vec3 // world space
}

// Manifold groups the contacts a pair produced this tick. First and Count
// index FrameContext.Contacts.
type Manifold struct {
	Pair   Pair
	Normal mgl32.Vec3
	First  int
	Count  int
}

// collisionInput is what contact generation needs to know about one side.
type collisionInput struct {
	entity engine.Entity
	box    geom.AABB
	shape  *geom.ConvexCollider
	matrix mgl32.Mat4
}

// ApproximateContact builds a contact from world AABBs alone. The normal is
// the axis of least overlap, pointing from A toward B.
func ApproximateContact(a, b engine.Entity, boxA, boxB geom.AABB) (Contact, bool) {
	axis, dir, depth, ok := boxA.Separation(boxB)
	if !ok {
		return Contact{}, false
	}

	// A leaves B along dir, so B lies the other way
	var normal mgl32.Vec3
	normal[axis] = -dir

	return Contact{
		EntityA:     a,
		EntityB:     b,
		Normal:      normal,
		Penetration: depth,
		Point:       overlapCenter(boxA, boxB),
	}, true
}

// ConvexContact runs GJK and EPA on two placed shapes. The contact point is the
// midpoint of the two witness points.
func (np *NarrowPhase) ConvexContact(a, b engine.Entity, shapeA *geom.ConvexCollider, ma mgl32.Mat4, shapeB *geom.ConvexCollider, mb mgl32.Mat4) (Contact, bool, error) {
	pen, ok, err := np.Collide(shapeA, ma, shapeB, mb)
	if err != nil || !ok {
		return Contact{}, false, err
	}
	return Contact{
		EntityA:     a,
		EntityB:     b,
		Normal:      pen.Normal,
		Penetration: pen.Depth,
		Point:       pen.PointA.Add(pen.PointB).Mul(0.5),
	}, true, nil
}

// generateContact picks the contact path for a pair according to mode.
func (np *NarrowPhase) generateContact(mode ContactMode, a, b collisionInput) (Contact, bool, error) {
	convex := a.shape != nil && b.shape != nil
	switch mode {
	case ContactApproximate:
		convex = false
	case ContactConvex:
		if !convex {
			// nothing exact to run without two shapes
			return Contact{}, false, nil
		}
	}

	if convex {
		return np.ConvexContact(a.entity, b.entity, a.shape, a.matrix, b.shape, b.matrix)
	}
	c, ok := ApproximateContact(a.entity, b.entity, a.box, b.box)
	return c, ok, nil
}
