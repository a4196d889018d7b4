package geom

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func box(minX, minY, minZ, maxX, maxY, maxZ float32) AABB {
	return AABB{Min: mgl32.Vec3{minX, minY, minZ}, Max: mgl32.Vec3{maxX, maxY, maxZ}}
}

func TestAABBIntersects(t *testing.T) {
	tests := []struct {
		name string
		a, b AABB
		want bool
	}{
		{"separated on X", box(0, 0, 0, 1, 1, 1), box(2, 0, 0, 3, 1, 1), false},
		{"separated on Y", box(0, 0, 0, 1, 1, 1), box(0, -3, 0, 1, -2, 1), false},
		{"separated on Z", box(0, 0, 0, 1, 1, 1), box(0, 0, 5, 1, 1, 6), false},
		{"partial overlap", box(0, 0, 0, 2, 2, 2), box(1, 1, 1, 3, 3, 3), true},
		{"containment", box(0, 0, 0, 10, 10, 10), box(2, 2, 2, 3, 3, 3), true},
		{"touching faces", box(0, 0, 0, 1, 1, 1), box(1, 0, 0, 2, 1, 1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Intersects(tt.b))
			assert.Equal(t, tt.want, tt.b.Intersects(tt.a), "symmetry")
		})
	}
}

func TestAABBContainsAndUnion(t *testing.T) {
	a := box(0, 0, 0, 1, 1, 1)
	b := box(2, -1, 0, 3, 0.5, 4)

	u := a.Union(b)
	assert.Equal(t, box(0, -1, 0, 3, 1, 4), u)
	assert.True(t, u.Contains(a))
	assert.True(t, u.Contains(b))
	assert.False(t, a.Contains(u))
}

func TestAABBFattenAndMetrics(t *testing.T) {
	a := box(0, 0, 0, 2, 2, 2)
	fat := a.Fatten(0.5)

	assert.Equal(t, box(-0.5, -0.5, -0.5, 2.5, 2.5, 2.5), fat)
	assert.True(t, fat.Contains(a))
	assert.InDelta(t, 24.0, a.SurfaceArea(), 1e-6)
	assert.Equal(t, mgl32.Vec3{1, 1, 1}, a.Center())
	assert.Equal(t, mgl32.Vec3{1, 1, 1}, a.Extents())
}

func TestAABBSeparation(t *testing.T) {
	a := NewAABBFromCenter(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{2, 2, 2})

	tests := []struct {
		name  string
		b     AABB
		axis  int
		dir   float32
		depth float32
	}{
		{"overlap on +x", NewAABBFromCenter(mgl32.Vec3{1.5, 0, 0}, mgl32.Vec3{2, 2, 2}), 0, -1, 0.5},
		{"overlap on -y", NewAABBFromCenter(mgl32.Vec3{0, -1.8, 0}, mgl32.Vec3{2, 2, 2}), 1, 1, 0.2},
		{"small box inside", NewAABBFromCenter(mgl32.Vec3{0, 0, 0.5}, mgl32.Vec3{1, 1, 1}), 2, -1, 1},
		{"touching faces", box(1, -1, -1, 3, 1, 1), 0, -1, 0},
		{"concentric ties go to z", a, 2, -1, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			axis, dir, depth, ok := a.Separation(tt.b)
			require.True(t, ok)
			assert.Equal(t, tt.axis, axis)
			assert.Equal(t, tt.dir, dir)
			assert.InDelta(t, tt.depth, depth, 1e-6)
		})
	}

	_, _, _, ok := a.Separation(NewAABBFromCenter(mgl32.Vec3{10, 0, 0}, mgl32.Vec3{2, 2, 2}))
	assert.False(t, ok)
}

func TestAABBTransform(t *testing.T) {
	local := box(-1, -1, -1, 1, 1, 1)

	moved := local.Transform(mgl32.Translate3D(5, 0, 0))
	assert.Equal(t, box(4, -1, -1, 6, 1, 1), moved)

	rotated := local.Transform(mgl32.HomogRotate3DY(mgl32.DegToRad(45)))
	assert.InDelta(t, 1.41421, rotated.Max[0], 1e-4)
	assert.InDelta(t, 1.41421, rotated.Max[2], 1e-4)
	assert.InDelta(t, 1.0, rotated.Max[1], 1e-5)
}

func TestAABBRayIntersect(t *testing.T) {
	a := box(-1, -1, -1, 1, 1, 1)

	dist, ok := a.RayIntersect(mgl32.Vec3{-5, 0, 0}, mgl32.Vec3{1, 0, 0}, 100)
	require.True(t, ok)
	assert.InDelta(t, 4.0, dist, 1e-6)

	_, ok = a.RayIntersect(mgl32.Vec3{-5, 3, 0}, mgl32.Vec3{1, 0, 0}, 100)
	assert.False(t, ok, "parallel ray outside the slab")

	_, ok = a.RayIntersect(mgl32.Vec3{-5, 0, 0}, mgl32.Vec3{1, 0, 0}, 3)
	assert.False(t, ok, "box beyond max distance")

	_, ok = a.RayIntersect(mgl32.Vec3{5, 0, 0}, mgl32.Vec3{1, 0, 0}, 100)
	assert.False(t, ok, "box behind the origin")

	dist, ok = a.RayIntersect(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 1, 0}, 100)
	require.True(t, ok)
	assert.Zero(t, dist, "origin inside")
}
