package components

import "github.com/go-gl/mathgl/mgl32"

type Transform struct {
	Position mgl32.Vec3
	Rotation mgl32.Quat
	Scale    mgl32.Vec3
}

func NewTransform(position mgl32.Vec3) Transform {
	return Transform{
		Position: position,
		Rotation: mgl32.QuatIdent(),
		Scale:    mgl32.Vec3{1, 1, 1},
	}
}

// Matrix composes translation * rotation * scale.
func (t Transform) Matrix() mgl32.Mat4 {
	translation := mgl32.Translate3D(t.Position[0], t.Position[1], t.Position[2])
	rotation := t.Rotation.Mat4()
	scale := mgl32.Scale3D(t.Scale[0], t.Scale[1], t.Scale[2])
	return translation.Mul4(rotation).Mul4(scale)
}

// SetEulerDegrees replaces the rotation from X, Y, Z angles in degrees.
func (t *Transform) SetEulerDegrees(euler mgl32.Vec3) {
	t.Rotation = mgl32.AnglesToQuat(
		mgl32.DegToRad(euler[0]),
		mgl32.DegToRad(euler[1]),
		mgl32.DegToRad(euler[2]),
		mgl32.XYZ,
	)
}

// IntegrateRotation advances the orientation by angular velocity w (rad/s) over dt.
func (t *Transform) IntegrateRotation(w mgl32.Vec3, dt float32) {
	if w.LenSqr() == 0 {
		return
	}
	spin := mgl32.Quat{W: 0, V: w}.Mul(t.Rotation).Scale(0.5 * dt)
	t.Rotation = t.Rotation.Add(spin).Normalize()
}
