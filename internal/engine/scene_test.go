package engine

import (
	"testing"

	"collide3d/internal/components"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSceneSpawn(t *testing.T) {
	scene := NewScene("Test")
	e := scene.Spawn("Player")

	assert.True(t, scene.Alive(e))
	assert.Equal(t, 1, scene.Len())
	assert.Equal(t, "Player", scene.EntityName(e))

	tr, ok := scene.Transforms.Get(e)
	require.True(t, ok, "spawn should attach a transform")
	assert.Equal(t, mgl32.Vec3{1, 1, 1}, tr.Scale)

	found, ok := scene.FindByName("Player")
	assert.True(t, ok)
	assert.Equal(t, e, found)

	_, ok = scene.FindByName("Nobody")
	assert.False(t, ok)
}

func TestSceneDespawn(t *testing.T) {
	scene := NewScene("Test")
	a := scene.Spawn("A")
	b := scene.Spawn("B")
	scene.SetCollider(a, components.NewBoxCollider(mgl32.Vec3{1, 1, 1}))
	scene.ClearChanges()

	require.True(t, scene.Despawn(a))
	assert.False(t, scene.Alive(a))
	assert.False(t, scene.Despawn(a), "double despawn")
	assert.True(t, scene.Alive(b))
	assert.False(t, scene.Transforms.Has(a))

	_, removed := scene.Changes()
	assert.Equal(t, []Entity{a}, removed)

	c := scene.Spawn("C")
	assert.Equal(t, a.Index(), c.Index(), "slot is recycled")
	assert.NotEqual(t, a, c, "with a new generation")
}

func TestSceneChangeTracking(t *testing.T) {
	scene := NewScene("Test")
	e := scene.Spawn("Box")
	scene.ClearChanges()

	moved, removed := scene.Changes()
	assert.Empty(t, moved)
	assert.Empty(t, removed)

	scene.SetTransform(e, components.NewTransform(mgl32.Vec3{1, 0, 0}))
	scene.MarkMoved(e)
	scene.SetCollider(e, components.NewBoxCollider(mgl32.Vec3{1, 1, 1}))

	moved, _ = scene.Changes()
	assert.Equal(t, []Entity{e}, moved, "moved entities are deduplicated")

	scene.ClearChanges()
	scene.MarkMoved(e)
	moved, _ = scene.Changes()
	assert.Equal(t, []Entity{e}, moved, "entity can be marked again after a clear")
}

func TestSceneIgnoresDeadEntities(t *testing.T) {
	scene := NewScene("Test")
	e := scene.Spawn("Ghost")
	scene.Despawn(e)

	scene.SetBody(e, components.NewRigidbody())
	scene.SetVelocity(e, components.Velocity{})
	scene.SetCollider(e, components.NewBoxCollider(mgl32.Vec3{1, 1, 1}))

	assert.Zero(t, scene.Bodies.Len())
	assert.Zero(t, scene.Velocities.Len())
	assert.Zero(t, scene.Colliders.Len())
}
