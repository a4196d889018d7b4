package main

import (
	"fmt"

	"collide3d/internal/geom"
	"collide3d/internal/physics"

	"github.com/fogleman/gg"
)

const (
	snapshotSize    = 1024
	snapshotPadding = 24
)

// writeTreeSnapshot draws the tree's boxes projected onto the XZ plane,
// shading deeper nodes warmer.
func writeTreeSnapshot(path string, tree *physics.DynamicTree) error {
	type node struct {
		box   geom.AABB
		depth int
		leaf  bool
	}
	var nodes []node
	maxDepth := 0
	tree.Walk(func(box geom.AABB, depth int, leaf bool) {
		nodes = append(nodes, node{box, depth, leaf})
		maxDepth = max(maxDepth, depth)
	})

	dc := gg.NewContext(snapshotSize, snapshotSize)
	dc.SetRGB(0.08, 0.08, 0.12)
	dc.Clear()
	if len(nodes) == 0 {
		return dc.SavePNG(path)
	}

	// the root encloses everything
	root := nodes[0].box
	span := max(root.Max[0]-root.Min[0], root.Max[2]-root.Min[2], 1e-3)
	scale := float64(snapshotSize-2*snapshotPadding) / float64(span)
	project := func(x, z float32) (float64, float64) {
		return snapshotPadding + float64(x-root.Min[0])*scale,
			snapshotPadding + float64(z-root.Min[2])*scale
	}

	for _, n := range nodes {
		x0, y0 := project(n.box.Min[0], n.box.Min[2])
		x1, y1 := project(n.box.Max[0], n.box.Max[2])
		t := float64(n.depth) / float64(max(maxDepth, 1))
		if n.leaf {
			dc.SetRGBA(1, 0.85, 0.3, 0.6)
			dc.SetLineWidth(1)
		} else {
			dc.SetRGBA(0.3+0.7*t, 0.4, 1-0.7*t, 0.5)
			dc.SetLineWidth(2 - t)
		}
		dc.DrawRectangle(x0, y0, x1-x0, y1-y0)
		dc.Stroke()
	}

	dc.SetRGB(0.9, 0.9, 0.95)
	dc.DrawString(treeCaption(tree), snapshotPadding, snapshotPadding-8)
	return dc.SavePNG(path)
}

func treeCaption(tree *physics.DynamicTree) string {
	return fmt.Sprintf("leaves %d  nodes %d  height %d", tree.LeafCount(), tree.NodeCount(), tree.Height())
}
