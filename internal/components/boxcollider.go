package components

import (
	"collide3d/internal/geom"

	"github.com/go-gl/mathgl/mgl32"
)

// Collider is the collision component. Shape is optional: without one the
// pipeline only has the local AABB and falls back to approximate contacts.
type Collider struct {
	Local geom.AABB
	Shape *geom.ConvexCollider
	Layer geom.CollisionLayer
	Mask  geom.CollisionLayer
}

// NewBoxCollider creates an AABB-only collider of the given full size.
func NewBoxCollider(size mgl32.Vec3) Collider {
	return Collider{
		Local: geom.NewAABBFromCenter(mgl32.Vec3{}, size),
		Layer: geom.LayerDefault,
		Mask:  geom.LayerAll,
	}
}

// NewConvexCollider wraps a convex shape, taking layer and mask from it.
func NewConvexCollider(shape *geom.ConvexCollider) Collider {
	return Collider{
		Local: shape.LocalAABB(),
		Shape: shape,
		Layer: shape.Layer,
		Mask:  shape.Mask,
	}
}

// WorldAABB places the local box with the entity transform.
func (c Collider) WorldAABB(t Transform) geom.AABB {
	return c.Local.Transform(t.Matrix())
}

// Accepts reports whether the layer/mask pair lets c and other collide.
func (c Collider) Accepts(other Collider) bool {
	return c.Layer&other.Mask != 0 && other.Layer&c.Mask != 0
}
