package physics

import (
	"testing"

	"collide3d/internal/components"
	"collide3d/internal/engine"
	"collide3d/internal/geom"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDT = float32(1.0 / 60.0)

func newTestWorld(t *testing.T, mutate func(*Config)) *World {
	t.Helper()
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	w, err := NewWorld(cfg, nil)
	require.NoError(t, err)
	return w
}

func spawnCollider(scene *engine.Scene, name string, pos mgl32.Vec3, col components.Collider, body components.Body) engine.Entity {
	e := spawnBody(scene, name, pos, body, mgl32.Vec3{})
	scene.SetCollider(e, col)
	return e
}

type recordingObserver struct {
	ticks []TickStats
}

func (o *recordingObserver) ObserveTick(s TickStats) {
	o.ticks = append(o.ticks, s)
}

func TestWorldBoxSettlesOnFloor(t *testing.T) {
	w := newTestWorld(t, nil)
	scene := engine.NewScene("test")

	spawnCollider(scene, "Floor", mgl32.Vec3{}, components.NewBoxCollider(mgl32.Vec3{20, 1, 20}), components.NewStaticBody())
	box := spawnCollider(scene, "Box", mgl32.Vec3{0, 3, 0}, components.NewBoxCollider(mgl32.Vec3{1, 1, 1}), components.NewRigidbody())

	for i := 0; i < 240; i++ {
		w.Step(scene, testDT)
	}

	p := positionOf(t, scene, box)
	assert.InDelta(t, 1.0, p[1], 0.1, "box rests on top of the floor")
	assert.InDelta(t, 0, p[0], 1e-4)
	assert.Less(t, abs32(velocityOf(t, scene, box)[1]), float32(0.5))
	require.NoError(t, w.Tree().Validate())
}

func TestWorldContactLifecycle(t *testing.T) {
	w := newTestWorld(t, nil)
	scene := engine.NewScene("test")

	wall := spawnCollider(scene, "Wall", mgl32.Vec3{}, components.NewBoxCollider(mgl32.Vec3{1, 1, 1}), components.NewStaticBody())
	mover := spawnCollider(scene, "Mover", mgl32.Vec3{-3, 0, 0}, components.NewBoxCollider(mgl32.Vec3{1, 1, 1}),
		components.Body{Kind: components.Kinematic, Mass: 1})
	scene.SetVelocity(mover, components.Velocity{Linear: mgl32.Vec3{6, 0, 0}})

	var moverEvents, wallEvents []ContactEvent
	w.Contact.AddListener(func(ev ContactEvent) {
		ev.Contacts = nil
		switch ev.Entity {
		case mover:
			moverEvents = append(moverEvents, ev)
		case wall:
			wallEvents = append(wallEvents, ev)
		}
	})

	sawTouching := false
	for i := 0; i < 70; i++ {
		w.Step(scene, testDT)
		sawTouching = sawTouching || w.Touching(wall, mover)
	}
	assert.True(t, sawTouching)
	assert.False(t, w.Touching(mover, wall))

	require.Greater(t, len(moverEvents), 2)
	assert.Equal(t, ContactHit, moverEvents[0].Kind)
	assert.Equal(t, mover, moverEvents[0].Entity)
	assert.Equal(t, wall, moverEvents[0].Other)
	assert.Equal(t, mgl32.Vec3{1, 0, 0}, moverEvents[0].Normal, "normal points from the receiver toward the other entity")
	for _, ev := range moverEvents[1 : len(moverEvents)-1] {
		assert.Equal(t, ContactStay, ev.Kind)
	}
	assert.Equal(t, ContactExit, moverEvents[len(moverEvents)-1].Kind)

	require.Len(t, wallEvents, len(moverEvents), "both sides hear every event")
	assert.Equal(t, ContactHit, wallEvents[0].Kind)
	assert.Equal(t, mgl32.Vec3{-1, 0, 0}, wallEvents[0].Normal)

	// the kinematic body is never pushed
	assert.InDelta(t, 6, velocityOf(t, scene, mover)[0], 1e-5)
}

func TestWorldRestingPairKeepsReportingStay(t *testing.T) {
	w := newTestWorld(t, nil)
	scene := engine.NewScene("test")
	a := spawnCollider(scene, "A", mgl32.Vec3{}, components.NewBoxCollider(mgl32.Vec3{1, 1, 1}), components.NewStaticBody())
	spawnCollider(scene, "B", mgl32.Vec3{0.5, 0, 0}, components.NewBoxCollider(mgl32.Vec3{1, 1, 1}), components.NewStaticBody())

	var kinds []ContactEventKind
	w.Contact.AddListener(func(ev ContactEvent) {
		if ev.Entity == a {
			kinds = append(kinds, ev.Kind)
		}
	})
	for i := 0; i < 3; i++ {
		w.Step(scene, testDT)
	}
	assert.Equal(t, []ContactEventKind{ContactHit, ContactStay, ContactStay}, kinds)
}

func TestWorldDespawnRemovesLeafAndEmitsExit(t *testing.T) {
	w := newTestWorld(t, nil)
	scene := engine.NewScene("test")
	a := spawnCollider(scene, "A", mgl32.Vec3{}, components.NewBoxCollider(mgl32.Vec3{1, 1, 1}), components.NewStaticBody())
	b := spawnCollider(scene, "B", mgl32.Vec3{0.5, 0, 0}, components.NewBoxCollider(mgl32.Vec3{1, 1, 1}), components.NewStaticBody())

	w.Step(scene, testDT)
	require.Equal(t, 2, w.Tree().LeafCount())
	require.True(t, w.Touching(a, b))

	require.True(t, scene.Despawn(b))
	w.Step(scene, testDT)

	assert.Equal(t, 1, w.Tree().LeafCount())
	_, cached := w.WorldAABB(b)
	assert.False(t, cached)

	events := w.Frame().Events
	require.Len(t, events, 1, "only the surviving entity hears the exit")
	assert.Equal(t, ContactExit, events[0].Kind)
	assert.Equal(t, a, events[0].Entity)
	assert.Equal(t, b, events[0].Other)
	assert.Empty(t, events[0].Contacts)
	require.NoError(t, w.Tree().Validate())
}

func TestWorldLayerFiltering(t *testing.T) {
	ghost := components.NewBoxCollider(mgl32.Vec3{1, 1, 1})
	ghost.Layer = geom.LayerTrigger
	ghost.Mask = geom.LayerTrigger

	for _, filtering := range []bool{false, true} {
		w := newTestWorld(t, func(c *Config) { c.Contacts.LayerFiltering = filtering })
		scene := engine.NewScene("test")
		spawnCollider(scene, "Solid", mgl32.Vec3{}, components.NewBoxCollider(mgl32.Vec3{1, 1, 1}), components.NewStaticBody())
		spawnCollider(scene, "Ghost", mgl32.Vec3{0.5, 0, 0}, ghost, components.NewStaticBody())

		w.Step(scene, testDT)
		if filtering {
			assert.Empty(t, w.Frame().CandidatePairs)
			assert.Empty(t, w.Frame().Contacts)
		} else {
			assert.Len(t, w.Frame().Contacts, 1)
		}
	}
}

func TestWorldConvexContacts(t *testing.T) {
	w := newTestWorld(t, func(c *Config) { c.Contacts.Mode = ContactConvex })
	scene := engine.NewScene("test")
	cube := geom.Cube(2, geom.LayerDefault)
	a := spawnCollider(scene, "A", mgl32.Vec3{}, components.NewConvexCollider(cube), components.NewStaticBody())
	b := spawnCollider(scene, "B", mgl32.Vec3{1, 0, 0}, components.NewConvexCollider(cube), components.NewStaticBody())
	// a box-only collider never gets a contact in convex mode
	spawnCollider(scene, "Plain", mgl32.Vec3{0, 1, 0}, components.NewBoxCollider(mgl32.Vec3{1, 1, 1}), components.NewStaticBody())

	w.Step(scene, testDT)

	require.Len(t, w.Frame().Contacts, 1)
	c := w.Frame().Contacts[0]
	assert.Equal(t, a, c.EntityA)
	assert.Equal(t, b, c.EntityB)
	assert.InDelta(t, 1.0, c.Penetration, 1e-4)
	assert.InDelta(t, 1.0, c.Normal[0], 1e-4)
	assert.InDelta(t, 0.5, c.Point[0], 1e-3)
}

func TestWorldRayCast(t *testing.T) {
	w := newTestWorld(t, nil)
	scene := engine.NewScene("test")
	floor := spawnCollider(scene, "Floor", mgl32.Vec3{}, components.NewBoxCollider(mgl32.Vec3{20, 1, 20}), components.NewStaticBody())
	box := spawnCollider(scene, "Box", mgl32.Vec3{0, 2, 0}, components.NewBoxCollider(mgl32.Vec3{1, 1, 1}), components.NewStaticBody())
	w.Step(scene, testDT)

	hit, ok := w.RayCast(mgl32.Vec3{0, 10, 0}, mgl32.Vec3{0, -3, 0}, 100)
	require.True(t, ok)
	assert.Equal(t, box, hit.Entity)
	assert.InDelta(t, 7.5, hit.Distance, 1e-4)
	assert.Equal(t, mgl32.Vec3{0, 1, 0}, hit.Normal)

	hit, ok = w.RayCast(mgl32.Vec3{5, 10, 0}, mgl32.Vec3{0, -1, 0}, 100)
	require.True(t, ok)
	assert.Equal(t, floor, hit.Entity)
	assert.InDelta(t, 9.5, hit.Distance, 1e-4)

	_, ok = w.RayCast(mgl32.Vec3{0, 10, 0}, mgl32.Vec3{0, -1, 0}, 5)
	assert.False(t, ok, "out of range")
	_, ok = w.RayCast(mgl32.Vec3{0, 10, 0}, mgl32.Vec3{0, 1, 0}, 100)
	assert.False(t, ok, "pointing away")
	_, ok = w.RayCast(mgl32.Vec3{0, 10, 0}, mgl32.Vec3{}, 100)
	assert.False(t, ok, "zero direction")
}

func TestWorldObserverStats(t *testing.T) {
	w := newTestWorld(t, nil)
	obs := &recordingObserver{}
	w.SetObserver(obs)

	scene := engine.NewScene("test")
	spawnCollider(scene, "A", mgl32.Vec3{}, components.NewBoxCollider(mgl32.Vec3{1, 1, 1}), components.NewStaticBody())
	spawnCollider(scene, "B", mgl32.Vec3{0.5, 0, 0}, components.NewBoxCollider(mgl32.Vec3{1, 1, 1}), components.NewStaticBody())
	spawnCollider(scene, "Far", mgl32.Vec3{50, 0, 0}, components.NewBoxCollider(mgl32.Vec3{1, 1, 1}), components.NewStaticBody())

	w.Step(scene, testDT)

	require.Len(t, obs.ticks, 1)
	s := obs.ticks[0]
	assert.Equal(t, 3, s.Colliders)
	assert.Equal(t, 1, s.CandidatePairs)
	assert.Equal(t, 1, s.Contacts)
	assert.Equal(t, 2, s.Events)
	assert.Equal(t, 5, s.TreeNodes)
	assert.Zero(t, s.NarrowFailures)
	assert.Contains(t, s.String(), "colliders=3")
}

func TestWorldSetSolverConfig(t *testing.T) {
	w := newTestWorld(t, nil)

	bad := w.Config().Solver
	bad.Iterations = 0
	assert.ErrorIs(t, w.SetSolverConfig(bad), ErrInvalidConfig)
	assert.Equal(t, 1, w.Config().Solver.Iterations, "rejected config leaves the old one in place")

	good := w.Config().Solver
	good.Iterations = 4
	good.CorrectionPercent = 0.8
	require.NoError(t, w.SetSolverConfig(good))
	assert.Equal(t, good, w.Config().Solver)
}

func TestWorldRebuild(t *testing.T) {
	w := newTestWorld(t, nil)
	scene := engine.NewScene("test")
	a := spawnCollider(scene, "A", mgl32.Vec3{}, components.NewBoxCollider(mgl32.Vec3{1, 1, 1}), components.NewStaticBody())
	spawnCollider(scene, "B", mgl32.Vec3{0.5, 0, 0}, components.NewBoxCollider(mgl32.Vec3{1, 1, 1}), components.NewStaticBody())
	w.Step(scene, testDT)

	w.Rebuild(scene)
	assert.Zero(t, w.Tree().LeafCount())
	_, ok := w.WorldAABB(a)
	assert.False(t, ok)

	w.Step(scene, testDT)
	assert.Equal(t, 2, w.Tree().LeafCount())
	require.Len(t, w.Frame().Events, 2)
	assert.Equal(t, ContactHit, w.Frame().Events[0].Kind, "history is dropped with the rest of the derived state")
}

func TestNewWorldRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FixedTimestep = 0
	_, err := NewWorld(cfg, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestWorldStepSteadyStateAllocations(t *testing.T) {
	w := newTestWorld(t, nil)
	scene := engine.NewScene("test")
	a := spawnCollider(scene, "A", mgl32.Vec3{}, components.NewBoxCollider(mgl32.Vec3{1, 1, 1}), components.NewStaticBody())
	b := spawnCollider(scene, "B", mgl32.Vec3{0.5, 0, 0}, components.NewBoxCollider(mgl32.Vec3{1, 1, 1}), components.NewStaticBody())
	spawnCollider(scene, "HullA", mgl32.Vec3{0, 5, 0}, components.NewConvexCollider(geom.Cube(1, geom.LayerDefault)), components.NewStaticBody())
	spawnCollider(scene, "HullB", mgl32.Vec3{0.6, 5, 0}, components.NewConvexCollider(geom.Cube(1, geom.LayerDefault)), components.NewStaticBody())
	drifter := spawnBody(scene, "Drifter", mgl32.Vec3{20, 0, 0}, components.Body{Kind: components.Kinematic}, mgl32.Vec3{0.5, 0, 0})
	scene.SetCollider(drifter, components.NewBoxCollider(mgl32.Vec3{1, 1, 1}))

	for i := 0; i < 10; i++ {
		w.Step(scene, testDT)
	}
	require.True(t, w.Touching(a, b))

	allocs := testing.AllocsPerRun(50, func() {
		w.Step(scene, testDT)
	})
	assert.Zero(t, allocs)
}
