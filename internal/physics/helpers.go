package physics

import (
	"math"

	"collide3d/internal/engine"
	"collide3d/internal/geom"

	"github.com/go-gl/mathgl/mgl32"
)

// clamp restricts a value to a range
func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

func sqrt32(v float32) float32 {
	return float32(math.Sqrt(float64(v)))
}

// overlapCenter is the midpoint of the region two boxes share.
func overlapCenter(a, b geom.AABB) mgl32.Vec3 {
	lo := mgl32.Vec3{max(a.Min[0], b.Min[0]), max(a.Min[1], b.Min[1]), max(a.Min[2], b.Min[2])}
	hi := mgl32.Vec3{min(a.Max[0], b.Max[0]), min(a.Max[1], b.Max[1]), min(a.Max[2], b.Max[2])}
	return lo.Add(hi).Mul(0.5)
}

// Pair is an unordered entity pair stored with the lower id first.
type Pair struct {
	A, B engine.Entity
}

// MakePair orders a and b canonically.
func MakePair(a, b engine.Entity) Pair {
	if a > b {
		return Pair{A: b, B: a}
	}
	return Pair{A: a, B: b}
}
