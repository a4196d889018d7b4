package main

import (
	"math"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// flyCamera is a free-flying debug camera. Mouse look is active while the
// right button is held so the left button stays free for picking.
type flyCamera struct {
	Position  rl.Vector3
	Yaw       float32
	Pitch     float32
	MoveSpeed float32
	LookSpeed float32
}

func newFlyCamera(pos rl.Vector3) *flyCamera {
	return &flyCamera{
		Position:  pos,
		Yaw:       -135.0,
		Pitch:     -25.0,
		MoveSpeed: 10.0,
		LookSpeed: 0.1,
	}
}

func (c *flyCamera) Update(deltaTime float32) {
	if rl.IsMouseButtonDown(rl.MouseRightButton) {
		mouseDelta := rl.GetMouseDelta()
		c.Yaw += mouseDelta.X * c.LookSpeed
		c.Pitch -= mouseDelta.Y * c.LookSpeed
		c.Pitch = min(max(c.Pitch, -89), 89)
	}

	forward := c.LookDirection()
	right := rl.Vector3Normalize(rl.Vector3CrossProduct(forward, rl.Vector3{Y: 1}))

	var move rl.Vector3
	if rl.IsKeyDown(rl.KeyW) {
		move = rl.Vector3Add(move, forward)
	}
	if rl.IsKeyDown(rl.KeyS) {
		move = rl.Vector3Subtract(move, forward)
	}
	if rl.IsKeyDown(rl.KeyD) {
		move = rl.Vector3Add(move, right)
	}
	if rl.IsKeyDown(rl.KeyA) {
		move = rl.Vector3Subtract(move, right)
	}
	if rl.IsKeyDown(rl.KeyE) {
		move.Y++
	}
	if rl.IsKeyDown(rl.KeyQ) {
		move.Y--
	}

	// Normalize diagonal movement so you don't go faster diagonally
	if rl.Vector3Length(move) > 0 {
		speed := c.MoveSpeed
		if rl.IsKeyDown(rl.KeyLeftShift) {
			speed *= 3
		}
		move = rl.Vector3Scale(rl.Vector3Normalize(move), speed*deltaTime)
		c.Position = rl.Vector3Add(c.Position, move)
	}
}

func (c *flyCamera) LookDirection() rl.Vector3 {
	yawRad := float64(c.Yaw) * math.Pi / 180
	pitchRad := float64(c.Pitch) * math.Pi / 180
	return rl.Vector3{
		X: float32(math.Cos(yawRad) * math.Cos(pitchRad)),
		Y: float32(math.Sin(pitchRad)),
		Z: float32(math.Sin(yawRad) * math.Cos(pitchRad)),
	}
}

func (c *flyCamera) Raylib() rl.Camera3D {
	return rl.Camera3D{
		Position:   c.Position,
		Target:     rl.Vector3Add(c.Position, c.LookDirection()),
		Up:         rl.Vector3{X: 0, Y: 1, Z: 0},
		Fovy:       45,
		Projection: rl.CameraPerspective,
	}
}
