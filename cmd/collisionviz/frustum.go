package main

import (
	"collide3d/internal/geom"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// frustum holds the 6 planes of a view frustum: left, right, bottom, top,
// near, far. Normals point inward.
type frustum struct {
	planes [6]plane
}

// plane is ax + by + cz + d = 0
type plane struct {
	normal   rl.Vector3
	distance float32
}

// extractFrustum pulls the planes out of the camera's view-projection matrix
// (Gribb/Hartmann).
func extractFrustum(camera rl.Camera3D, near, far float32) frustum {
	view := rl.GetCameraMatrix(camera)

	aspect := float32(rl.GetScreenWidth()) / float32(rl.GetScreenHeight())
	var proj rl.Matrix
	if camera.Projection == rl.CameraPerspective {
		proj = rl.MatrixPerspective(camera.Fovy*rl.Deg2rad, aspect, near, far)
	} else {
		halfH := camera.Fovy / 2.0
		halfW := halfH * aspect
		proj = rl.MatrixOrtho(-halfW, halfW, -halfH, halfH, near, far)
	}

	vp := rl.MatrixMultiply(view, proj)

	// row4 +/- row1..3
	rows := [3][4]float32{
		{vp.M0, vp.M4, vp.M8, vp.M12},
		{vp.M1, vp.M5, vp.M9, vp.M13},
		{vp.M2, vp.M6, vp.M10, vp.M14},
	}
	w := [4]float32{vp.M3, vp.M7, vp.M11, vp.M15}

	var f frustum
	for i, r := range rows {
		f.planes[2*i] = normalizePlane(plane{
			normal:   rl.Vector3{X: w[0] + r[0], Y: w[1] + r[1], Z: w[2] + r[2]},
			distance: w[3] + r[3],
		})
		f.planes[2*i+1] = normalizePlane(plane{
			normal:   rl.Vector3{X: w[0] - r[0], Y: w[1] - r[1], Z: w[2] - r[2]},
			distance: w[3] - r[3],
		})
	}
	return f
}

func normalizePlane(p plane) plane {
	length := rl.Vector3Length(p.normal)
	if length == 0 {
		return p
	}
	return plane{
		normal:   rl.Vector3Scale(p.normal, 1.0/length),
		distance: p.distance / length,
	}
}

// containsAABB is false only when box lies entirely behind one plane. It
// tests the corner furthest along each plane normal.
func (f *frustum) containsAABB(box geom.AABB) bool {
	for i := range f.planes {
		n := f.planes[i].normal
		p := rl.Vector3{X: box.Min[0], Y: box.Min[1], Z: box.Min[2]}
		if n.X >= 0 {
			p.X = box.Max[0]
		}
		if n.Y >= 0 {
			p.Y = box.Max[1]
		}
		if n.Z >= 0 {
			p.Z = box.Max[2]
		}
		if rl.Vector3DotProduct(n, p)+f.planes[i].distance < 0 {
			return false
		}
	}
	return true
}
