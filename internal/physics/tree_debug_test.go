//go:build physicsdebug

package physics

import (
	"testing"

	"collide3d/internal/engine"
	"collide3d/internal/geom"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTreeCorruptFreeListPanics(t *testing.T) {
	tree := NewDynamicTree(0.1, nil)
	e := engine.Entity(1)
	id := tree.AllocateLeaf(e, geom.NewAABBFromCenter(mgl32.Vec3{}, mgl32.Vec3{1, 1, 1}))
	require.True(t, tree.Remove(id, e))

	assert.PanicsWithValue(t, "physics: dynamic tree: freeing a node twice", func() {
		tree.freeNode(id)
	})
}
