package components

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// BodyKind selects how the solver treats a body.
type BodyKind uint8

const (
	Static BodyKind = iota
	Dynamic
	Kinematic
)

func (k BodyKind) String() string {
	switch k {
	case Static:
		return "static"
	case Dynamic:
		return "dynamic"
	case Kinematic:
		return "kinematic"
	default:
		return fmt.Sprintf("BodyKind(%d)", uint8(k))
	}
}

// ParseBodyKind accepts the lowercase names produced by String.
func ParseBodyKind(s string) (BodyKind, error) {
	switch s {
	case "static", "":
		return Static, nil
	case "dynamic":
		return Dynamic, nil
	case "kinematic":
		return Kinematic, nil
	}
	return Static, fmt.Errorf("unknown body kind %q", s)
}

// Body holds the physics attributes of an entity.
type Body struct {
	Kind        BodyKind
	Mass        float32
	Restitution float32 // 0 = no bounce, 1 = perfectly elastic
	Friction    float32 // coefficient, combined by geometric mean
	UseGravity  bool
}

func NewRigidbody() Body {
	return Body{
		Kind:        Dynamic,
		Mass:        1.0,
		Restitution: 0.5,
		Friction:    0.1,
		UseGravity:  true,
	}
}

func NewStaticBody() Body {
	return Body{
		Kind:        Static,
		Restitution: 0.5,
		Friction:    0.5,
	}
}

// InverseMass is zero for anything the solver must never move.
func (b Body) InverseMass() float32 {
	if b.Kind != Dynamic || b.Mass <= 0 {
		return 0
	}
	return 1 / b.Mass
}

// Velocity holds translational and angular (radians/sec) velocity.
type Velocity struct {
	Linear  mgl32.Vec3
	Angular mgl32.Vec3
}
