package physics

import (
	"errors"

	"collide3d/internal/geom"

	"github.com/go-gl/mathgl/mgl32"
)

var (
	// ErrDegenerateSimplex means the starting tetrahedron, or a face built
	// while expanding, has no volume or area.
	ErrDegenerateSimplex = errors.New("epa: degenerate simplex")
	// ErrEPANotConverged means the iteration cap ran out before the closest
	// face stopped improving.
	ErrEPANotConverged = errors.New("epa: did not converge")
)

const (
	epaDegenerateEpsilon = 1e-12
	// a face is visible from a point this far in front of its plane
	epaVisibleEpsilon = 1e-6
)

// Penetration is the minimum translation separating two overlapping shapes.
// Moving B by Normal*Depth separates them.
type Penetration struct {
	Depth  float32
	Normal mgl32.Vec3 // unit, A toward B
	PointA mgl32.Vec3 // deepest point of A inside B
	PointB mgl32.Vec3 // deepest point of B inside A
}

type epaFace struct {
	a, b, c int32
	normal  mgl32.Vec3
	dist    float32
}

type epaEdge struct {
	a, b int32
}

// Penetration expands the tetrahedron from a successful Intersect into a
// polytope until its closest face lies on the Minkowski boundary.
func (np *NarrowPhase) Penetration(a *geom.ConvexCollider, ma mgl32.Mat4, b *geom.ConvexCollider, mb mgl32.Mat4, s Simplex) (Penetration, error) {
	if s.Count < 4 {
		return Penetration{}, ErrDegenerateSimplex
	}

	np.verts = append(np.verts[:0], s.Points[0], s.Points[1], s.Points[2], s.Points[3])
	np.faces = np.faces[:0]

	p0, p1, p2, p3 := s.Points[0].Point, s.Points[1].Point, s.Points[2].Point, s.Points[3].Point
	volume := p1.Sub(p0).Dot(p2.Sub(p0).Cross(p3.Sub(p0)))
	if abs32(volume) < epaDegenerateEpsilon {
		return Penetration{}, ErrDegenerateSimplex
	}

	// The initial centroid stays inside the polytope as it grows, so faces can
	// be oriented against it even when the origin sits on a face.
	interior := p0.Add(p1).Add(p2).Add(p3).Mul(0.25)

	if !np.addFace(0, 1, 2, interior) || !np.addFace(0, 3, 1, interior) ||
		!np.addFace(0, 2, 3, interior) || !np.addFace(1, 3, 2, interior) {
		return Penetration{}, ErrDegenerateSimplex
	}

	for i := 0; i < np.cfg.EPAMaxIterations; i++ {
		closest := 0
		for j := 1; j < len(np.faces); j++ {
			if np.faces[j].dist < np.faces[closest].dist {
				closest = j
			}
		}
		face := np.faces[closest]

		p := minkowskiSupport(a, ma, b, mb, face.normal)
		if p.Point.Dot(face.normal)-face.dist < np.cfg.EPATolerance {
			return np.result(face), nil
		}

		if !np.expand(p, interior) {
			return Penetration{}, ErrDegenerateSimplex
		}
	}

	return Penetration{}, ErrEPANotConverged
}

// expand adds p, drops every face that can see it and stitches the horizon.
func (np *NarrowPhase) expand(p SupportPoint, interior mgl32.Vec3) bool {
	idx := int32(len(np.verts))
	np.verts = append(np.verts, p)
	np.edges = np.edges[:0]

	kept := np.faces[:0]
	for _, f := range np.faces {
		if f.normal.Dot(p.Point.Sub(np.verts[f.a].Point)) > epaVisibleEpsilon {
			np.addEdge(f.a, f.b)
			np.addEdge(f.b, f.c)
			np.addEdge(f.c, f.a)
			continue
		}
		kept = append(kept, f)
	}
	np.faces = kept

	for _, e := range np.edges {
		if !np.addFace(e.a, e.b, idx, interior) {
			return false
		}
	}
	return len(np.faces) > 0
}

// addEdge records a horizon edge, cancelling it if the neighbouring visible
// face already added it in the opposite winding.
func (np *NarrowPhase) addEdge(a, b int32) {
	for i, e := range np.edges {
		if e.a == b && e.b == a {
			last := len(np.edges) - 1
			np.edges[i] = np.edges[last]
			np.edges = np.edges[:last]
			return
		}
	}
	np.edges = append(np.edges, epaEdge{a: a, b: b})
}

func (np *NarrowPhase) addFace(a, b, c int32, interior mgl32.Vec3) bool {
	va, vb, vc := np.verts[a].Point, np.verts[b].Point, np.verts[c].Point
	n := vb.Sub(va).Cross(vc.Sub(va))
	if n.LenSqr() < epaDegenerateEpsilon {
		return false
	}
	n = n.Normalize()
	if n.Dot(va.Sub(interior)) < 0 {
		n = n.Mul(-1)
		b, c = c, b
	}
	np.faces = append(np.faces, epaFace{a: a, b: b, c: c, normal: n, dist: n.Dot(va)})
	return true
}

func (np *NarrowPhase) result(f epaFace) Penetration {
	depth := max(f.dist, 0)

	// Witness points: the origin's projection onto the face, mapped back
	// through the barycentric weights onto each shape's vertices.
	va, vb, vc := np.verts[f.a], np.verts[f.b], np.verts[f.c]
	u, v, w := barycentric(f.normal.Mul(f.dist), va.Point, vb.Point, vc.Point)

	return Penetration{
		Depth:  depth,
		Normal: f.normal,
		PointA: va.A.Mul(u).Add(vb.A.Mul(v)).Add(vc.A.Mul(w)),
		PointB: va.B.Mul(u).Add(vb.B.Mul(v)).Add(vc.B.Mul(w)),
	}
}

func barycentric(p, a, b, c mgl32.Vec3) (u, v, w float32) {
	v0 := b.Sub(a)
	v1 := c.Sub(a)
	v2 := p.Sub(a)
	d00 := v0.Dot(v0)
	d01 := v0.Dot(v1)
	d11 := v1.Dot(v1)
	d20 := v2.Dot(v0)
	d21 := v2.Dot(v1)
	denom := d00*d11 - d01*d01
	if abs32(denom) < epaDegenerateEpsilon {
		return 1, 0, 0
	}
	v = (d11*d20 - d01*d21) / denom
	w = (d00*d21 - d01*d20) / denom
	return 1 - v - w, v, w
}

// Collide runs Intersect and, on overlap, Penetration. ok is false when the
// shapes are separate.
func (np *NarrowPhase) Collide(a *geom.ConvexCollider, ma mgl32.Mat4, b *geom.ConvexCollider, mb mgl32.Mat4) (pen Penetration, ok bool, err error) {
	res := np.Intersect(a, ma, b, mb)
	if !res.Hit {
		return Penetration{}, false, nil
	}
	pen, err = np.Penetration(a, ma, b, mb, res.Simplex)
	if err != nil {
		return Penetration{}, false, err
	}
	return pen, true, nil
}
