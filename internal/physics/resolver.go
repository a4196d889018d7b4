package physics

import (
	"collide3d/internal/components"
	"collide3d/internal/engine"

	"github.com/go-gl/mathgl/mgl32"
)

// Resolver is a sequential-impulse contact solver. It keeps no state between
// ticks.
type Resolver struct {
	cfg SolverConfig
}

func NewResolver(cfg SolverConfig) *Resolver {
	return &Resolver{cfg: cfg}
}

// bodyRef is one side of a contact as the solver sees it.
type bodyRef struct {
	entity  engine.Entity
	vel     *components.Velocity // nil: treated as at rest, never written
	body    *components.Body
	invMass float32
}

func lookupBody(scene *engine.Scene, e engine.Entity) bodyRef {
	ref := bodyRef{entity: e}
	if b, ok := scene.Bodies.Get(e); ok {
		ref.body = b
		ref.invMass = b.InverseMass()
	}
	if v, ok := scene.Velocities.Get(e); ok {
		ref.vel = v
	}
	return ref
}

func (b bodyRef) linear() mgl32.Vec3 {
	if b.vel == nil {
		return mgl32.Vec3{}
	}
	return b.vel.Linear
}

// combinedRestitution is the lesser of the two, or the only one present.
func combinedRestitution(a, b *components.Body) float32 {
	switch {
	case a != nil && b != nil:
		return min(a.Restitution, b.Restitution)
	case a != nil:
		return a.Restitution
	case b != nil:
		return b.Restitution
	}
	return 0
}

// combinedFriction is the geometric mean, or the only one present.
func combinedFriction(a, b *components.Body) float32 {
	switch {
	case a != nil && b != nil:
		return sqrt32(a.Friction * b.Friction)
	case a != nil:
		return a.Friction
	case b != nil:
		return b.Friction
	}
	return 0
}

// Resolve applies impulses for every contact in the frame, then pushes bodies
// apart by the accumulated positional corrections.
func (r *Resolver) Resolve(frame *FrameContext, scene *engine.Scene) {
	if len(frame.Contacts) == 0 {
		return
	}

	for it := 0; it < r.cfg.Iterations; it++ {
		for i := range frame.Contacts {
			r.solveVelocity(frame, scene, &frame.Contacts[i])
		}
	}

	for i := range frame.Contacts {
		r.accumulateCorrection(frame, scene, &frame.Contacts[i])
	}

	for _, c := range frame.Corrections {
		if t, ok := scene.Transforms.Get(c.Entity); ok {
			t.Position = t.Position.Add(c.Delta)
			scene.MarkMoved(c.Entity)
		}
	}
}

func (r *Resolver) solveVelocity(frame *FrameContext, scene *engine.Scene, c *Contact) {
	a := lookupBody(scene, c.EntityA)
	b := lookupBody(scene, c.EntityB)
	invMassSum := a.invMass + b.invMass
	if invMassSum == 0 {
		return
	}

	relVel := b.linear().Sub(a.linear())
	velAlongNormal := relVel.Dot(c.Normal)

	// Resting contact: leave it alone or it jitters.
	if abs32(velAlongNormal) < r.cfg.RestingThreshold && c.Penetration <= r.cfg.PenetrationSlop {
		return
	}

	var j float32
	if velAlongNormal < -r.cfg.RestingThreshold {
		e := combinedRestitution(a.body, b.body)
		j = -(1 + e) * velAlongNormal / invMassSum
		r.applyImpulse(frame, a, b, c.Normal.Mul(j))
	}

	if j <= 0 {
		return
	}

	// Friction along the tangential part of the pre-impulse relative velocity.
	tangent := relVel.Sub(c.Normal.Mul(velAlongNormal))
	tangentLen := tangent.Len()
	if tangentLen <= 1e-6 {
		return
	}
	tangent = tangent.Mul(1 / tangentLen)

	jt := -relVel.Dot(tangent) / invMassSum
	maxFriction := combinedFriction(a.body, b.body) * j
	jt = clamp(jt, -maxFriction, maxFriction)
	if jt != 0 {
		r.applyImpulse(frame, a, b, tangent.Mul(jt))
	}
}

// applyImpulse subtracts impulse from A and adds it to B, each scaled by
// inverse mass, and records the resulting velocity changes.
func (r *Resolver) applyImpulse(frame *FrameContext, a, b bodyRef, impulse mgl32.Vec3) {
	if a.invMass > 0 && a.vel != nil {
		dv := impulse.Mul(-a.invMass)
		a.vel.Linear = a.vel.Linear.Add(dv)
		frame.Impulses = append(frame.Impulses, Impulse{Entity: a.entity, Linear: dv})
	}
	if b.invMass > 0 && b.vel != nil {
		dv := impulse.Mul(b.invMass)
		b.vel.Linear = b.vel.Linear.Add(dv)
		frame.Impulses = append(frame.Impulses, Impulse{Entity: b.entity, Linear: dv})
	}
}

func (r *Resolver) accumulateCorrection(frame *FrameContext, scene *engine.Scene, c *Contact) {
	excess := max(c.Penetration-r.cfg.PenetrationSlop, 0)
	if excess <= 0 {
		return
	}
	a := lookupBody(scene, c.EntityA)
	b := lookupBody(scene, c.EntityB)
	invMassSum := a.invMass + b.invMass
	if invMassSum == 0 {
		return
	}

	correction := c.Normal.Mul(excess * r.cfg.CorrectionPercent / invMassSum)
	if a.invMass > 0 {
		frame.addCorrection(a.entity, correction.Mul(-a.invMass))
	}
	if b.invMass > 0 {
		frame.addCorrection(b.entity, correction.Mul(b.invMass))
	}
}
