package world

import (
	"bytes"
	"strings"
	"testing"

	"collide3d/internal/components"
	"collide3d/internal/engine"
	"collide3d/internal/geom"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleScene = "../../assets/scenes/stack.yaml"

func mustFind(t *testing.T, scene *engine.Scene, name string) engine.Entity {
	t.Helper()
	e, ok := scene.FindByName(name)
	require.True(t, ok, "entity %q", name)
	return e
}

func TestLoadSampleScene(t *testing.T) {
	scene, err := LoadSceneFile(sampleScene)
	require.NoError(t, err)

	assert.Equal(t, "Stack", scene.Name)
	assert.Equal(t, 7, scene.Len())
	assert.Equal(t, 7, scene.Colliders.Len())

	floor := mustFind(t, scene, "Floor")
	body, ok := scene.Bodies.Get(floor)
	require.True(t, ok)
	assert.Equal(t, components.Static, body.Kind)
	assert.False(t, scene.Velocities.Has(floor), "static bodies get no velocity")
	col, _ := scene.Colliders.Get(floor)
	assert.Nil(t, col.Shape)
	assert.Equal(t, geom.LayerStatic, col.Layer)
	assert.Equal(t, geom.LayerAll, col.Mask)

	boxB := mustFind(t, scene, "BoxB")
	body, _ = scene.Bodies.Get(boxB)
	assert.Equal(t, components.Dynamic, body.Kind)
	assert.Equal(t, float32(2), body.Mass)
	assert.True(t, body.UseGravity, "dynamic default")
	col, _ = scene.Colliders.Get(boxB)
	require.NotNil(t, col.Shape)
	assert.Equal(t, geom.ShapeHull, col.Shape.Kind)
	assert.Len(t, col.Shape.Vertices, 8)
	tr, _ := scene.Transforms.Get(boxB)
	assert.InDelta(t, 1, tr.Rotation.Len(), 1e-5)
	assert.NotEqual(t, mgl32.QuatIdent(), tr.Rotation)

	ramp := mustFind(t, scene, "Ramp")
	col, _ = scene.Colliders.Get(ramp)
	assert.Equal(t, geom.ShapeBox, col.Shape.Kind)
	body, _ = scene.Bodies.Get(ramp)
	assert.InDelta(t, 0.8, body.Friction, 1e-6)

	wedge := mustFind(t, scene, "Wedge")
	v, ok := scene.Velocities.Get(wedge)
	require.True(t, ok)
	assert.Equal(t, mgl32.Vec3{1, 0, 0}, v.Linear)
	assert.Equal(t, mgl32.Vec3{0, 1, 0}, v.Angular)

	trigger := mustFind(t, scene, "Trigger")
	assert.False(t, scene.Bodies.Has(trigger))
	col, _ = scene.Colliders.Get(trigger)
	assert.Equal(t, geom.LayerTrigger, col.Layer)
	assert.Equal(t, geom.LayerDynamic, col.Mask)
}

func TestLoadSceneDefaults(t *testing.T) {
	scene, err := LoadScene(strings.NewReader(`
objects:
  - name: Crate
    position: [1, 2, 3]
    body: {kind: dynamic}
    collider: {box: [1, 2, 1], offset: [0, 1, 0]}
`))
	require.NoError(t, err)
	assert.Equal(t, "Main", scene.Name)

	e := mustFind(t, scene, "Crate")
	tr, _ := scene.Transforms.Get(e)
	assert.Equal(t, mgl32.Vec3{1, 2, 3}, tr.Position)
	assert.Equal(t, mgl32.Vec3{1, 1, 1}, tr.Scale)

	body, _ := scene.Bodies.Get(e)
	assert.Equal(t, components.NewRigidbody(), *body)
	assert.True(t, scene.Velocities.Has(e), "dynamic bodies start at rest")

	col, _ := scene.Colliders.Get(e)
	assert.Equal(t, mgl32.Vec3{-0.5, 0, -0.5}, col.Local.Min)
	assert.Equal(t, mgl32.Vec3{0.5, 2, 0.5}, col.Local.Max)
	assert.Equal(t, geom.LayerDefault, col.Layer)
}

func TestLoadSceneEmpty(t *testing.T) {
	scene, err := LoadScene(strings.NewReader(""))
	require.NoError(t, err)
	assert.Zero(t, scene.Len())
}

func TestLoadSceneErrors(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		invalid bool
	}{
		{"unknown key", "objects:\n  - name: A\n    colour: red\n", false},
		{"not yaml", "objects: [", false},
		{"two shapes", "objects:\n  - name: A\n    collider: {box: [1, 1, 1], cube: 1}\n", true},
		{"no shape", "objects:\n  - name: A\n    collider: {layer: [default]}\n", true},
		{"unknown layer", "objects:\n  - name: A\n    collider: {cube: 1, layer: [ghosts]}\n", true},
		{"flat hull", "objects:\n  - name: A\n    collider: {hull: [[0, 0, 0], [1, 0, 0], [0, 1, 0]]}\n", true},
		{"massless dynamic", "objects:\n  - name: A\n    body: {kind: dynamic, mass: 0}\n", true},
		{"unknown kind", "objects:\n  - name: A\n    body: {kind: floaty}\n", true},
		{"bouncy", "objects:\n  - name: A\n    body: {kind: static, restitution: 2}\n", true},
		{"zero scale", "objects:\n  - name: A\n    scale: [1, 0, 1]\n", true},
		{"negative box", "objects:\n  - name: A\n    collider: {box: [1, -1, 1]}\n", true},
		{"offset on cube", "objects:\n  - name: A\n    collider: {cube: 1, offset: [0, 1, 0]}\n", true},
		{"offset on half extents", "objects:\n  - name: A\n    collider: {half_extents: [1, 1, 1], offset: [0, 1, 0]}\n", true},
		{"offset on hull", "objects:\n  - name: A\n    collider: {hull: [[0, 0, 0], [1, 0, 0], [0, 1, 0], [0, 0, 1]], offset: [1, 0, 0]}\n", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScene(strings.NewReader(tt.doc))
			require.Error(t, err)
			if tt.invalid {
				assert.ErrorIs(t, err, ErrInvalidScene)
			} else {
				assert.NotErrorIs(t, err, ErrInvalidScene)
			}
		})
	}
}

func TestLoadSceneBoxOffset(t *testing.T) {
	scene, err := LoadScene(strings.NewReader("objects:\n  - name: A\n    collider: {box: [2, 2, 2], offset: [0, 1, 0]}\n"))
	require.NoError(t, err)
	e := mustFind(t, scene, "A")
	col, ok := scene.Colliders.Get(e)
	require.True(t, ok)
	assert.Equal(t, mgl32.Vec3{-1, 0, -1}, col.Local.Min)
	assert.Equal(t, mgl32.Vec3{1, 2, 1}, col.Local.Max)
}

func TestLoadSceneErrorNamesObject(t *testing.T) {
	_, err := LoadScene(strings.NewReader("objects:\n  - name: Broken\n    collider: {cube: -1}\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Broken")
}

func TestSaveSceneRoundTrip(t *testing.T) {
	original, err := LoadSceneFile(sampleScene)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, SaveScene(&buf, original))

	loaded, err := LoadScene(&buf)
	require.NoError(t, err)
	assert.Equal(t, original.Name, loaded.Name)
	require.Equal(t, original.Len(), loaded.Len())

	for _, e := range original.Transforms.Entities() {
		name := original.EntityName(e)
		le := mustFind(t, loaded, name)

		ot, _ := original.Transforms.Get(e)
		lt, _ := loaded.Transforms.Get(le)
		assert.Equal(t, ot.Position, lt.Position, name)
		assert.Equal(t, ot.Scale, lt.Scale, name)
		assert.InDelta(t, 1, ot.Rotation.Dot(lt.Rotation), 1e-5, name)

		ob, hasBody := original.Bodies.Get(e)
		lb, _ := loaded.Bodies.Get(le)
		if assert.Equal(t, hasBody, loaded.Bodies.Has(le), name) && hasBody {
			assert.Equal(t, *ob, *lb, name)
		}

		ov, hasVel := original.Velocities.Get(e)
		lv, _ := loaded.Velocities.Get(le)
		if assert.Equal(t, hasVel, loaded.Velocities.Has(le), name) && hasVel {
			assert.Equal(t, *ov, *lv, name)
		}

		oc, _ := original.Colliders.Get(e)
		lc, _ := loaded.Colliders.Get(le)
		assert.Equal(t, oc.Local, lc.Local, name)
		assert.Equal(t, oc.Layer, lc.Layer, name)
		assert.Equal(t, oc.Mask, lc.Mask, name)
		if oc.Shape == nil {
			assert.Nil(t, lc.Shape, name)
			continue
		}
		require.NotNil(t, lc.Shape, name)
		assert.Equal(t, oc.Shape.Kind, lc.Shape.Kind, name)
		assert.Equal(t, oc.Shape.Vertices, lc.Shape.Vertices, name)
		assert.Equal(t, oc.Shape.HalfExtents, lc.Shape.HalfExtents, name)
	}
}
