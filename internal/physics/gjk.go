package physics

import (
	"collide3d/internal/geom"

	"github.com/go-gl/mathgl/mgl32"
)

// gjkEpsilon bounds squared lengths treated as zero during simplex reduction.
const gjkEpsilon = 1e-10

// SupportPoint is a vertex of the Minkowski difference A-B along with the two
// shape vertices that produced it.
type SupportPoint struct {
	Point mgl32.Vec3
	A     mgl32.Vec3
	B     mgl32.Vec3
}

// Simplex holds 1-4 support points, most recent last.
type Simplex struct {
	Points [4]SupportPoint
	Count  int
}

// GJKResult is the outcome of an intersection test. When Hit is set the
// simplex is a tetrahedron enclosing the origin, ready for Penetration.
type GJKResult struct {
	Hit     bool
	Simplex Simplex
}

// NarrowPhase runs GJK and EPA. It owns the EPA scratch buffers, so one
// instance must not be shared between goroutines.
type NarrowPhase struct {
	cfg NarrowConfig

	verts []SupportPoint
	faces []epaFace
	edges []epaEdge
}

func NewNarrowPhase(cfg NarrowConfig) *NarrowPhase {
	return &NarrowPhase{cfg: cfg}
}

func minkowskiSupport(a *geom.ConvexCollider, ma mgl32.Mat4, b *geom.ConvexCollider, mb mgl32.Mat4, d mgl32.Vec3) SupportPoint {
	pa := a.Support(d, ma)
	pb := b.Support(d.Mul(-1), mb)
	return SupportPoint{Point: pa.Sub(pb), A: pa, B: pb}
}

// Intersect reports whether the shapes, placed by their world matrices,
// overlap.
func (np *NarrowPhase) Intersect(a *geom.ConvexCollider, ma mgl32.Mat4, b *geom.ConvexCollider, mb mgl32.Mat4) GJKResult {
	var s Simplex

	// Start toward B from A; any direction works but this one is usually close.
	dir := mb.Col(3).Vec3().Sub(ma.Col(3).Vec3())
	if dir.LenSqr() < gjkEpsilon {
		dir = mgl32.Vec3{1, 0, 0}
	}
	first := dir

	s.Points[0] = minkowskiSupport(a, ma, b, mb, dir)
	s.Count = 1

	dir = s.Points[0].Point.Mul(-1)
	if dir.LenSqr() < gjkEpsilon {
		// first support point sits on the origin, look the other way
		dir = first.Mul(-1)
	}

	for i := 0; i < np.cfg.GJKMaxIterations; i++ {
		p := minkowskiSupport(a, ma, b, mb, dir)

		// The new point does not pass the origin: the origin is outside.
		if p.Point.Dot(dir) <= 0 {
			return GJKResult{Simplex: s}
		}
		// No progress. Shapes only touch, or rounding keeps returning the
		// same vertex.
		for j := 0; j < s.Count; j++ {
			if p.Point.Sub(s.Points[j].Point).LenSqr() < gjkEpsilon {
				return GJKResult{Simplex: s}
			}
		}

		s.Points[s.Count] = p
		s.Count++

		if reduceSimplex(&s, &dir) {
			return GJKResult{Hit: true, Simplex: s}
		}
	}

	return GJKResult{Simplex: s}
}

// reduceSimplex keeps the feature of s closest to the origin and points dir at
// the origin from it. It returns true once a tetrahedron encloses the origin.
func reduceSimplex(s *Simplex, dir *mgl32.Vec3) bool {
	switch s.Count {
	case 2:
		return reduceLine(s, dir)
	case 3:
		return reduceTriangle(s, dir)
	case 4:
		return reduceTetrahedron(s, dir)
	}
	return false
}

func reduceLine(s *Simplex, dir *mgl32.Vec3) bool {
	a := s.Points[1].Point
	b := s.Points[0].Point
	ab := b.Sub(a)
	ao := a.Mul(-1)

	if ab.Dot(ao) < 0 {
		s.Points[0] = s.Points[1]
		s.Count = 1
		*dir = ao
		return false
	}

	*dir = edgeDirection(ab, ao)
	return false
}

func reduceTriangle(s *Simplex, dir *mgl32.Vec3) bool {
	a := s.Points[2].Point
	b := s.Points[1].Point
	c := s.Points[0].Point

	ab := b.Sub(a)
	ac := c.Sub(a)
	ao := a.Mul(-1)
	abc := ab.Cross(ac)

	if abc.LenSqr() < gjkEpsilon {
		// collinear: drop the oldest point
		s.Points[0] = s.Points[1]
		s.Points[1] = s.Points[2]
		s.Count = 2
		return reduceLine(s, dir)
	}

	if ab.Cross(abc).Dot(ao) > 0 {
		s.Points[0] = s.Points[1]
		s.Points[1] = s.Points[2]
		s.Count = 2
		*dir = edgeDirection(ab, ao)
		return false
	}

	if abc.Cross(ac).Dot(ao) > 0 {
		s.Points[1] = s.Points[2]
		s.Count = 2
		*dir = edgeDirection(ac, ao)
		return false
	}

	if abc.Dot(ao) >= 0 {
		*dir = abc
		return false
	}

	// Below the face: swap b and c so the winding faces the origin.
	s.Points[0], s.Points[1] = s.Points[1], s.Points[0]
	*dir = abc.Mul(-1)
	return false
}

func reduceTetrahedron(s *Simplex, dir *mgl32.Vec3) bool {
	a := s.Points[3].Point
	b := s.Points[2].Point
	c := s.Points[1].Point
	d := s.Points[0].Point

	ab := b.Sub(a)
	ac := c.Sub(a)
	ad := d.Sub(a)
	ao := a.Mul(-1)

	// Face normals, each flipped away from the vertex it does not touch.
	abc := ab.Cross(ac)
	if abc.Dot(ad) > 0 {
		abc = abc.Mul(-1)
	}
	acd := ac.Cross(ad)
	if acd.Dot(ab) > 0 {
		acd = acd.Mul(-1)
	}
	adb := ad.Cross(ab)
	if adb.Dot(ac) > 0 {
		adb = adb.Mul(-1)
	}

	pa, pb, pc, pd := s.Points[3], s.Points[2], s.Points[1], s.Points[0]

	if abc.LenSqr() < gjkEpsilon || acd.LenSqr() < gjkEpsilon || adb.LenSqr() < gjkEpsilon || abc.Dot(ao) > 0 {
		s.Points[0], s.Points[1], s.Points[2] = pc, pb, pa
		s.Count = 3
		return reduceTriangle(s, dir)
	}
	if acd.Dot(ao) > 0 {
		s.Points[0], s.Points[1], s.Points[2] = pd, pc, pa
		s.Count = 3
		return reduceTriangle(s, dir)
	}
	if adb.Dot(ao) > 0 {
		s.Points[0], s.Points[1], s.Points[2] = pb, pd, pa
		s.Count = 3
		return reduceTriangle(s, dir)
	}

	return true
}

// edgeDirection points from segment direction ab toward the origin. When the
// origin lies on the line it picks a fixed perpendicular so the search still
// leaves the line.
func edgeDirection(ab, ao mgl32.Vec3) mgl32.Vec3 {
	d := ab.Cross(ao).Cross(ab)
	if d.LenSqr() < gjkEpsilon {
		return perpendicular(ab)
	}
	return d
}

// perpendicular crosses v with the axis of its smallest component, lowest
// axis first on ties.
func perpendicular(v mgl32.Vec3) mgl32.Vec3 {
	axis := 0
	for i := 1; i < 3; i++ {
		if abs32(v[i]) < abs32(v[axis]) {
			axis = i
		}
	}
	var e mgl32.Vec3
	e[axis] = 1
	return v.Cross(e)
}
