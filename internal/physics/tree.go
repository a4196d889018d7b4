package physics

import (
	"errors"
	"fmt"
	"time"

	"collide3d/internal/engine"
	"collide3d/internal/geom"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ErrTreeCorrupt is returned by Validate when the arena breaks an invariant.
var ErrTreeCorrupt = errors.New("dynamic tree corrupt")

// NodeID addresses a node in the tree arena. A leaf keeps its id until removed.
type NodeID int32

const NullNode NodeID = -1

type treeNode struct {
	box    geom.AABB // fattened for leaves, union of children otherwise
	tight  geom.AABB // leaves only
	entity engine.Entity
	parent NodeID // next free slot while on the free list
	child1 NodeID
	child2 NodeID
	height int32 // 0 for leaves, -1 while free
}

func (n *treeNode) isLeaf() bool {
	return n.child1 == NullNode
}

// DynamicTree is a bounding volume hierarchy over fattened leaf boxes. All nodes
// live in one slice; parent and child links are indices into it.
type DynamicTree struct {
	nodes     []treeNode
	root      NodeID
	freeList  NodeID
	nodeCount int
	leafCount int
	margin    float32

	// traversal scratch, reused so queries do not allocate
	stack []NodeID

	log      *zap.Logger
	staleLog rate.Sometimes
}

// NewDynamicTree creates an empty tree that fattens leaves by margin.
func NewDynamicTree(margin float32, log *zap.Logger) *DynamicTree {
	if log == nil {
		log = zap.NewNop()
	}
	return &DynamicTree{
		root:     NullNode,
		freeList: NullNode,
		margin:   margin,
		log:      log.Named("broadphase"),
		staleLog: rate.Sometimes{Interval: time.Second},
	}
}

func (t *DynamicTree) allocateNode() NodeID {
	if t.freeList == NullNode {
		t.nodes = append(t.nodes, treeNode{parent: NullNode, child1: NullNode, child2: NullNode, height: -1})
		t.freeList = NodeID(len(t.nodes) - 1)
	}
	id := t.freeList
	n := &t.nodes[id]
	t.assert(n.height == -1, "free list links a node that is in use")
	t.freeList = n.parent
	*n = treeNode{parent: NullNode, child1: NullNode, child2: NullNode}
	t.nodeCount++
	return id
}

func (t *DynamicTree) freeNode(id NodeID) {
	t.assert(id >= 0 && int(id) < len(t.nodes), "freeing a node outside the arena")
	t.assert(t.nodes[id].height != -1, "freeing a node twice")
	t.nodes[id] = treeNode{parent: t.freeList, child1: NullNode, child2: NullNode, height: -1}
	t.freeList = id
	t.nodeCount--
}

// AllocateLeaf inserts entity with its tight box and returns the leaf id.
func (t *DynamicTree) AllocateLeaf(entity engine.Entity, tight geom.AABB) NodeID {
	id := t.allocateNode()
	n := &t.nodes[id]
	n.tight = tight
	n.box = tight.Fatten(t.margin)
	n.entity = entity
	n.height = 0

	t.insertLeaf(id)
	t.leafCount++
	t.reserveStack()
	return id
}

// Update moves entity's leaf. While tight still fits in the fat box only the
// tight box is overwritten; otherwise the leaf is reinserted with a fresh fat
// box and Update returns true.
func (t *DynamicTree) Update(id NodeID, entity engine.Entity, tight geom.AABB) bool {
	if !t.isLeafOf(id, entity) {
		t.warnStale("update", id)
		return false
	}

	n := &t.nodes[id]
	if n.box.Contains(tight) {
		n.tight = tight
		return false
	}

	t.removeLeaf(id)
	n = &t.nodes[id]
	n.tight = tight
	n.box = tight.Fatten(t.margin)
	t.insertLeaf(id)
	t.reserveStack()
	return true
}

// Remove detaches entity's leaf and recycles its slot.
func (t *DynamicTree) Remove(id NodeID, entity engine.Entity) bool {
	if !t.isLeafOf(id, entity) {
		t.warnStale("remove", id)
		return false
	}
	t.removeLeaf(id)
	t.freeNode(id)
	t.leafCount--
	return true
}

// Query calls visit for every leaf whose fat box overlaps box. visit must not
// modify the tree or start another query.
func (t *DynamicTree) Query(box geom.AABB, visit func(engine.Entity)) {
	if t.root == NullNode {
		return
	}

	stack := append(t.stack[:0], t.root)
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n := &t.nodes[id]
		if !n.box.Intersects(box) {
			continue
		}
		if n.isLeaf() {
			visit(n.entity)
			continue
		}
		stack = append(stack, n.child1, n.child2)
	}
	t.stack = stack[:0]
}

// RayCast walks leaves whose fat box the ray enters within maxDistance, in no
// particular order. visit receives the entry distance and returns
// the new maximum distance; returning 0 or less ends the cast.
func (t *DynamicTree) RayCast(origin, dir mgl32.Vec3, maxDistance float32, visit func(e engine.Entity, entry float32) float32) {
	if t.root == NullNode {
		return
	}

	stack := append(t.stack[:0], t.root)
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n := &t.nodes[id]
		entry, hit := n.box.RayIntersect(origin, dir, maxDistance)
		if !hit {
			continue
		}
		if n.isLeaf() {
			if next := visit(n.entity, entry); next < maxDistance {
				maxDistance = next
			}
			if maxDistance <= 0 {
				break
			}
			continue
		}
		stack = append(stack, n.child1, n.child2)
	}
	t.stack = stack[:0]
}

func (t *DynamicTree) insertLeaf(leaf NodeID) {
	if t.root == NullNode {
		t.root = leaf
		t.nodes[leaf].parent = NullNode
		return
	}

	// Find the best sibling: descend while pushing the leaf further down is
	// cheaper than pairing it with the current node.
	leafBox := t.nodes[leaf].box
	index := t.root
	for !t.nodes[index].isLeaf() {
		node := &t.nodes[index]
		child1, child2 := node.child1, node.child2

		area := node.box.SurfaceArea()
		combinedArea := node.box.Union(leafBox).SurfaceArea()

		// Cost of creating a new parent for this node and the new leaf
		cost := 2 * combinedArea
		// Minimum cost of pushing the leaf further down the tree
		inheritanceCost := 2 * (combinedArea - area)

		cost1 := t.descendCost(child1, leafBox) + inheritanceCost
		cost2 := t.descendCost(child2, leafBox) + inheritanceCost

		if cost < cost1 && cost < cost2 {
			break
		}
		if cost1 < cost2 {
			index = child1
		} else {
			index = child2
		}
	}
	sibling := index

	oldParent := t.nodes[sibling].parent
	newParent := t.allocateNode()
	np := &t.nodes[newParent]
	np.parent = oldParent
	np.box = leafBox.Union(t.nodes[sibling].box)
	np.height = t.nodes[sibling].height + 1
	np.child1 = sibling
	np.child2 = leaf
	t.nodes[sibling].parent = newParent
	t.nodes[leaf].parent = newParent

	if oldParent == NullNode {
		t.root = newParent
	} else if t.nodes[oldParent].child1 == sibling {
		t.nodes[oldParent].child1 = newParent
	} else {
		t.nodes[oldParent].child2 = newParent
	}

	t.refit(newParent)
}

func (t *DynamicTree) descendCost(child NodeID, leafBox geom.AABB) float32 {
	n := &t.nodes[child]
	combined := n.box.Union(leafBox).SurfaceArea()
	if n.isLeaf() {
		return combined
	}
	return combined - n.box.SurfaceArea()
}

func (t *DynamicTree) removeLeaf(leaf NodeID) {
	if leaf == t.root {
		t.root = NullNode
		return
	}

	parent := t.nodes[leaf].parent
	grandParent := t.nodes[parent].parent
	sibling := t.nodes[parent].child1
	if sibling == leaf {
		sibling = t.nodes[parent].child2
	}

	t.freeNode(parent)
	t.nodes[leaf].parent = NullNode

	if grandParent == NullNode {
		t.root = sibling
		t.nodes[sibling].parent = NullNode
		return
	}

	if t.nodes[grandParent].child1 == parent {
		t.nodes[grandParent].child1 = sibling
	} else {
		t.nodes[grandParent].child2 = sibling
	}
	t.nodes[sibling].parent = grandParent
	t.refit(grandParent)
}

// refit walks to the root restoring heights and boxes, rotating as it goes.
func (t *DynamicTree) refit(index NodeID) {
	for index != NullNode {
		index = t.balance(index)

		n := &t.nodes[index]
		child1, child2 := n.child1, n.child2
		t.assert(child1 != NullNode && child2 != NullNode, "internal node is missing a child")

		n.height = 1 + max(t.nodes[child1].height, t.nodes[child2].height)
		n.box = t.nodes[child1].box.Union(t.nodes[child2].box)

		index = n.parent
	}
}

// balance performs a left or right rotation if node iA is imbalanced and
// returns the new subtree root.
func (t *DynamicTree) balance(iA NodeID) NodeID {
	A := &t.nodes[iA]
	if A.isLeaf() || A.height < 2 {
		return iA
	}

	iB, iC := A.child1, A.child2
	B, C := &t.nodes[iB], &t.nodes[iC]
	diff := C.height - B.height

	// Rotate C up
	if diff > 1 {
		iF, iG := C.child1, C.child2
		F, G := &t.nodes[iF], &t.nodes[iG]

		C.child1 = iA
		C.parent = A.parent
		A.parent = iC
		t.replaceChild(C.parent, iA, iC)

		if F.height > G.height {
			C.child2 = iF
			A.child2 = iG
			G.parent = iA
			A.box = B.box.Union(G.box)
			C.box = A.box.Union(F.box)
			A.height = 1 + max(B.height, G.height)
			C.height = 1 + max(A.height, F.height)
		} else {
			C.child2 = iG
			A.child2 = iF
			F.parent = iA
			A.box = B.box.Union(F.box)
			C.box = A.box.Union(G.box)
			A.height = 1 + max(B.height, F.height)
			C.height = 1 + max(A.height, G.height)
		}
		return iC
	}

	// Rotate B up
	if diff < -1 {
		iD, iE := B.child1, B.child2
		D, E := &t.nodes[iD], &t.nodes[iE]

		B.child1 = iA
		B.parent = A.parent
		A.parent = iB
		t.replaceChild(B.parent, iA, iB)

		if D.height > E.height {
			B.child2 = iD
			A.child1 = iE
			E.parent = iA
			A.box = C.box.Union(E.box)
			B.box = A.box.Union(D.box)
			A.height = 1 + max(C.height, E.height)
			B.height = 1 + max(A.height, D.height)
		} else {
			B.child2 = iE
			A.child1 = iD
			D.parent = iA
			A.box = C.box.Union(D.box)
			B.box = A.box.Union(E.box)
			A.height = 1 + max(C.height, D.height)
			B.height = 1 + max(A.height, E.height)
		}
		return iB
	}

	return iA
}

func (t *DynamicTree) replaceChild(parent, oldChild, newChild NodeID) {
	if parent == NullNode {
		t.root = newChild
		return
	}
	p := &t.nodes[parent]
	if p.child1 == oldChild {
		p.child1 = newChild
	} else {
		t.assert(p.child2 == oldChild, "parent does not reference the rotated child")
		p.child2 = newChild
	}
}

// reserveStack keeps the traversal stack large enough for the current height
// so steady-state queries never grow it.
func (t *DynamicTree) reserveStack() {
	need := int(t.Height()) + 2
	if cap(t.stack) < need {
		t.stack = make([]NodeID, 0, 2*need)
	}
}

func (t *DynamicTree) isLeafID(id NodeID) bool {
	if id < 0 || int(id) >= len(t.nodes) {
		return false
	}
	n := &t.nodes[id]
	return n.height == 0 && n.isLeaf()
}

// isLeafOf also rejects a slot that was freed and reused by another entity.
func (t *DynamicTree) isLeafOf(id NodeID, entity engine.Entity) bool {
	return t.isLeafID(id) && t.nodes[id].entity == entity
}

func (t *DynamicTree) warnStale(op string, id NodeID) {
	t.staleLog.Do(func() {
		t.log.Warn("stale node id ignored", zap.String("op", op), zap.Int32("node", int32(id)))
	})
}

func (t *DynamicTree) assert(ok bool, msg string) {
	if ok {
		return
	}
	if debugAsserts {
		panic("physics: dynamic tree: " + msg)
	}
	t.log.Error("dynamic tree invariant violated", zap.String("detail", msg))
}

// Height is the height of the root, 0 for an empty or single-leaf tree.
func (t *DynamicTree) Height() int32 {
	if t.root == NullNode {
		return 0
	}
	return t.nodes[t.root].height
}

func (t *DynamicTree) LeafCount() int {
	return t.leafCount
}

// NodeCount counts leaves and internal nodes currently in use.
func (t *DynamicTree) NodeCount() int {
	return t.nodeCount
}

func (t *DynamicTree) Margin() float32 {
	return t.margin
}

// FatAABB returns the stored fattened box of a leaf.
func (t *DynamicTree) FatAABB(id NodeID) (geom.AABB, bool) {
	if !t.isLeafID(id) {
		return geom.AABB{}, false
	}
	return t.nodes[id].box, true
}

func (t *DynamicTree) Entity(id NodeID) (engine.Entity, bool) {
	if !t.isLeafID(id) {
		return engine.NoEntity, false
	}
	return t.nodes[id].entity, true
}

// Walk visits every node depth first. Intended for debug drawing.
func (t *DynamicTree) Walk(fn func(box geom.AABB, depth int, leaf bool)) {
	var walk func(id NodeID, depth int)
	walk = func(id NodeID, depth int) {
		n := &t.nodes[id]
		fn(n.box, depth, n.isLeaf())
		if !n.isLeaf() {
			walk(n.child1, depth+1)
			walk(n.child2, depth+1)
		}
	}
	if t.root != NullNode {
		walk(t.root, 0)
	}
}

// Validate checks links, heights, box containment and arena accounting.
func (t *DynamicTree) Validate() error {
	if t.root != NullNode && t.nodes[t.root].parent != NullNode {
		return fmt.Errorf("%w: root %d has parent %d", ErrTreeCorrupt, t.root, t.nodes[t.root].parent)
	}

	leaves := 0
	used := 0
	var check func(id NodeID) error
	check = func(id NodeID) error {
		if id < 0 || int(id) >= len(t.nodes) {
			return fmt.Errorf("%w: node %d outside arena", ErrTreeCorrupt, id)
		}
		n := &t.nodes[id]
		used++
		if n.height < 0 {
			return fmt.Errorf("%w: node %d reachable but free", ErrTreeCorrupt, id)
		}
		if n.isLeaf() {
			leaves++
			if n.child2 != NullNode || n.height != 0 {
				return fmt.Errorf("%w: leaf %d malformed", ErrTreeCorrupt, id)
			}
			if !n.box.Contains(n.tight) {
				return fmt.Errorf("%w: leaf %d fat box misses tight box", ErrTreeCorrupt, id)
			}
			return nil
		}
		c1, c2 := n.child1, n.child2
		if c2 == NullNode {
			return fmt.Errorf("%w: node %d has one child", ErrTreeCorrupt, id)
		}
		for _, c := range [2]NodeID{c1, c2} {
			if c < 0 || int(c) >= len(t.nodes) || t.nodes[c].parent != id {
				return fmt.Errorf("%w: child %d of %d has wrong parent", ErrTreeCorrupt, c, id)
			}
			if !n.box.Contains(t.nodes[c].box) {
				return fmt.Errorf("%w: node %d does not contain child %d", ErrTreeCorrupt, id, c)
			}
		}
		if want := 1 + max(t.nodes[c1].height, t.nodes[c2].height); n.height != want {
			return fmt.Errorf("%w: node %d height %d, want %d", ErrTreeCorrupt, id, n.height, want)
		}
		if err := check(c1); err != nil {
			return err
		}
		return check(c2)
	}
	if t.root != NullNode {
		if err := check(t.root); err != nil {
			return err
		}
	}

	free := 0
	for id := t.freeList; id != NullNode; id = t.nodes[id].parent {
		if id < 0 || int(id) >= len(t.nodes) || t.nodes[id].height != -1 {
			return fmt.Errorf("%w: free list entry %d invalid", ErrTreeCorrupt, id)
		}
		free++
		if free > len(t.nodes) {
			return fmt.Errorf("%w: free list cycles", ErrTreeCorrupt)
		}
	}

	switch {
	case leaves != t.leafCount:
		return fmt.Errorf("%w: %d reachable leaves, counted %d", ErrTreeCorrupt, leaves, t.leafCount)
	case used != t.nodeCount:
		return fmt.Errorf("%w: %d reachable nodes, counted %d", ErrTreeCorrupt, used, t.nodeCount)
	case used+free != len(t.nodes):
		return fmt.Errorf("%w: %d used + %d free != %d slots", ErrTreeCorrupt, used, free, len(t.nodes))
	}
	return nil
}
