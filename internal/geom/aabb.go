package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// AABB is an axis-aligned bounding box. Min <= Max on every axis.
type AABB struct {
	Min mgl32.Vec3
	Max mgl32.Vec3
}

// NewAABBFromCenter creates an AABB from a center point and full size dimensions.
func NewAABBFromCenter(center, size mgl32.Vec3) AABB {
	half := size.Mul(0.5)
	return AABB{
		Min: center.Sub(half),
		Max: center.Add(half),
	}
}

// NewAABBFromPoints returns the tightest box around pts. An empty slice yields the zero box.
func NewAABBFromPoints(pts []mgl32.Vec3) AABB {
	if len(pts) == 0 {
		return AABB{}
	}
	box := AABB{Min: pts[0], Max: pts[0]}
	for _, p := range pts[1:] {
		box = box.ExpandToPoint(p)
	}
	return box
}

func (a AABB) Intersects(b AABB) bool {
	return a.Min[0] <= b.Max[0] && a.Max[0] >= b.Min[0] &&
		a.Min[1] <= b.Max[1] && a.Max[1] >= b.Min[1] &&
		a.Min[2] <= b.Max[2] && a.Max[2] >= b.Min[2]
}

// Contains reports whether b lies entirely inside a.
func (a AABB) Contains(b AABB) bool {
	return a.Min[0] <= b.Min[0] && a.Min[1] <= b.Min[1] && a.Min[2] <= b.Min[2] &&
		b.Max[0] <= a.Max[0] && b.Max[1] <= a.Max[1] && b.Max[2] <= a.Max[2]
}

// Union returns the smallest box enclosing both a and b.
func (a AABB) Union(b AABB) AABB {
	return AABB{
		Min: mgl32.Vec3{min(a.Min[0], b.Min[0]), min(a.Min[1], b.Min[1]), min(a.Min[2], b.Min[2])},
		Max: mgl32.Vec3{max(a.Max[0], b.Max[0]), max(a.Max[1], b.Max[1]), max(a.Max[2], b.Max[2])},
	}
}

func (a AABB) ExpandToPoint(p mgl32.Vec3) AABB {
	return AABB{
		Min: mgl32.Vec3{min(a.Min[0], p[0]), min(a.Min[1], p[1]), min(a.Min[2], p[2])},
		Max: mgl32.Vec3{max(a.Max[0], p[0]), max(a.Max[1], p[1]), max(a.Max[2], p[2])},
	}
}

// Fatten grows the box by margin on every side.
func (a AABB) Fatten(margin float32) AABB {
	m := mgl32.Vec3{margin, margin, margin}
	return AABB{Min: a.Min.Sub(m), Max: a.Max.Add(m)}
}

// SurfaceArea is the insertion cost metric used by the broad phase.
func (a AABB) SurfaceArea() float32 {
	d := a.Max.Sub(a.Min)
	return 2 * (d[0]*d[1] + d[1]*d[2] + d[2]*d[0])
}

func (a AABB) Center() mgl32.Vec3 {
	return a.Min.Add(a.Max).Mul(0.5)
}

// Extents returns the half size on each axis.
func (a AABB) Extents() mgl32.Vec3 {
	return a.Max.Sub(a.Min).Mul(0.5)
}

// Transform returns the world box around the eight transformed corners of a.
func (a AABB) Transform(m mgl32.Mat4) AABB {
	corners := [8]mgl32.Vec3{
		{a.Min[0], a.Min[1], a.Min[2]},
		{a.Min[0], a.Min[1], a.Max[2]},
		{a.Min[0], a.Max[1], a.Min[2]},
		{a.Min[0], a.Max[1], a.Max[2]},
		{a.Max[0], a.Min[1], a.Min[2]},
		{a.Max[0], a.Min[1], a.Max[2]},
		{a.Max[0], a.Max[1], a.Min[2]},
		{a.Max[0], a.Max[1], a.Max[2]},
	}
	first := TransformPoint(m, corners[0])
	out := AABB{Min: first, Max: first}
	for _, c := range corners[1:] {
		out = out.ExpandToPoint(TransformPoint(m, c))
	}
	return out
}

// Separation finds the cheapest way to move a out of b: the axis, the
// direction along it (+1 or -1) and the distance. Ties go to the later axis
// and, within an axis, to the negative direction. ok is false when the boxes
// do not touch.
func (a AABB) Separation(b AABB) (axis int, dir, depth float32, ok bool) {
	if !a.Intersects(b) {
		return 0, 0, 0, false
	}
	depth = float32(math.MaxFloat32)
	for i := 0; i < 3; i++ {
		up := b.Max[i] - a.Min[i]
		down := a.Max[i] - b.Min[i]
		d, sign := down, float32(-1)
		if up < down {
			d, sign = up, 1
		}
		if d <= depth {
			axis, dir, depth = i, sign, d
		}
	}
	return axis, dir, depth, true
}

// RayIntersect runs a slab test and returns the entry distance along dir.
// dir does not need to be normalized; the distance is in units of dir.
func (a AABB) RayIntersect(origin, dir mgl32.Vec3, maxDistance float32) (float32, bool) {
	tmin := float32(-math.MaxFloat32)
	tmax := float32(math.MaxFloat32)

	for axis := 0; axis < 3; axis++ {
		if dir[axis] == 0 {
			if origin[axis] < a.Min[axis] || origin[axis] > a.Max[axis] {
				return 0, false
			}
			continue
		}
		inv := 1 / dir[axis]
		t1 := (a.Min[axis] - origin[axis]) * inv
		t2 := (a.Max[axis] - origin[axis]) * inv
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = max(tmin, t1)
		tmax = min(tmax, t2)
		if tmin > tmax {
			return 0, false
		}
	}

	if tmax < 0 {
		return 0, false
	}
	t := tmin
	if t < 0 {
		// origin starts inside the box
		t = 0
	}
	if t > maxDistance {
		return 0, false
	}
	return t, true
}

// TransformPoint applies m to p as a position (w = 1).
func TransformPoint(m mgl32.Mat4, p mgl32.Vec3) mgl32.Vec3 {
	return m.Mul4x1(p.Vec4(1)).Vec3()
}

// TransformDirection applies the transpose of m's linear part, mapping a world
// direction into the local frame for support queries.
func TransformDirection(m mgl32.Mat4, d mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{
		m[0]*d[0] + m[1]*d[1] + m[2]*d[2],
		m[4]*d[0] + m[5]*d[1] + m[6]*d[2],
		m[8]*d[0] + m[9]*d[1] + m[10]*d[2],
	}
}
