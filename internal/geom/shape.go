package geom

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// ShapeKind tags the convex shape variants the narrow phase understands.
type ShapeKind uint8

const (
	// ShapeHull is an ordered set of local-space vertices.
	ShapeHull ShapeKind = iota
	// ShapeBox is an oriented box described by half extents.
	ShapeBox
)

func (k ShapeKind) String() string {
	switch k {
	case ShapeHull:
		return "hull"
	case ShapeBox:
		return "box"
	default:
		return fmt.Sprintf("ShapeKind(%d)", uint8(k))
	}
}

// CollisionLayer is a bit in a collider's layer or mask.
type CollisionLayer uint32

const (
	LayerDefault CollisionLayer = 1 << iota
	LayerStatic
	LayerDynamic
	LayerTrigger

	LayerAll CollisionLayer = 0xffffffff
)

// ConvexCollider is an immutable convex shape in local space.
type ConvexCollider struct {
	Kind        ShapeKind
	Vertices    []mgl32.Vec3 // ShapeHull only
	HalfExtents mgl32.Vec3   // ShapeBox only
	Layer       CollisionLayer
	Mask        CollisionLayer

	local AABB
}

// Cube returns an 8-vertex hull of the given edge length centered on the origin.
// The vertex order is fixed; support ties resolve to the lowest index.
func Cube(size float32, layer CollisionLayer) *ConvexCollider {
	h := size / 2
	return NewHull([]mgl32.Vec3{
		{-h, -h, -h},
		{-h, -h, h},
		{-h, h, -h},
		{-h, h, h},
		{h, -h, -h},
		{h, -h, h},
		{h, h, -h},
		{h, h, h},
	}, layer)
}

// NewHull copies verts into a hull collider.
func NewHull(verts []mgl32.Vec3, layer CollisionLayer) *ConvexCollider {
	owned := make([]mgl32.Vec3, len(verts))
	copy(owned, verts)
	return &ConvexCollider{
		Kind:     ShapeHull,
		Vertices: owned,
		Layer:    layer,
		Mask:     LayerAll,
		local:    NewAABBFromPoints(owned),
	}
}

// NewBox creates an analytic box collider.
func NewBox(halfExtents mgl32.Vec3, layer CollisionLayer) *ConvexCollider {
	return &ConvexCollider{
		Kind:        ShapeBox,
		HalfExtents: halfExtents,
		Layer:       layer,
		Mask:        LayerAll,
		local:       AABB{Min: halfExtents.Mul(-1), Max: halfExtents},
	}
}

// WithMask returns c with its mask replaced. The receiver is not modified.
func (c *ConvexCollider) WithMask(mask CollisionLayer) *ConvexCollider {
	cp := *c
	cp.Mask = mask
	return &cp
}

func (c *ConvexCollider) LocalAABB() AABB {
	return c.local
}

// LocalSupport returns the local vertex furthest along the local direction d.
func (c *ConvexCollider) LocalSupport(d mgl32.Vec3) mgl32.Vec3 {
	switch c.Kind {
	case ShapeBox:
		h := c.HalfExtents
		p := h
		for i := 0; i < 3; i++ {
			if d[i] < 0 {
				p[i] = -h[i]
			}
		}
		return p
	default:
		if len(c.Vertices) == 0 {
			return mgl32.Vec3{}
		}
		best := 0
		bestDot := c.Vertices[0].Dot(d)
		for i := 1; i < len(c.Vertices); i++ {
			// strict comparison keeps the lowest index on ties
			if dot := c.Vertices[i].Dot(d); dot > bestDot {
				best = i
				bestDot = dot
			}
		}
		return c.Vertices[best]
	}
}

// Support returns the world-space point of c, placed by m, furthest along the
// world direction d.
func (c *ConvexCollider) Support(d mgl32.Vec3, m mgl32.Mat4) mgl32.Vec3 {
	return TransformPoint(m, c.LocalSupport(TransformDirection(m, d)))
}

// Collides reports whether the layer/mask pair accepts the other collider.
func (c *ConvexCollider) Collides(other *ConvexCollider) bool {
	return c.Layer&other.Mask != 0 && other.Layer&c.Mask != 0
}
