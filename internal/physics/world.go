package physics

import (
	"fmt"
	"time"

	"collide3d/internal/components"
	"collide3d/internal/engine"
	"collide3d/internal/geom"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// TickStats summarises one Step for observers.
type TickStats struct {
	Duration       time.Duration
	Colliders      int
	CandidatePairs int
	Contacts       int
	Impulses       int
	Events         int
	NarrowFailures int
	TreeHeight     int32
	TreeNodes      int
}

// Observer receives stats after every Step.
type Observer interface {
	ObserveTick(TickStats)
}

// World runs the collision pipeline over a scene. The scene stays the system
// of record; World only keeps derived state: the broad-phase tree, the world
// AABB cache and the entity to leaf mapping.
type World struct {
	cfg      Config
	log      *zap.Logger
	tree     *DynamicTree
	narrow   *NarrowPhase
	resolver *Resolver
	frame    *FrameContext
	contacts contactTracker
	observer Observer

	aabbs map[engine.Entity]geom.AABB
	nodes map[engine.Entity]NodeID

	// per-step state for the callbacks below, which are bound once so a
	// tick stays allocation free
	queryEntity engine.Entity
	queryScene  *engine.Scene
	stepDt      float32
	visit       func(engine.Entity)
	advance     func(engine.Entity, *components.Body)
	alive       func(engine.Entity) bool

	narrowLog rate.Sometimes

	// Contact fires for every hit, stay and exit at the end of Step.
	Contact engine.EventWithArg[ContactEvent]
}

func NewWorld(cfg Config, log *zap.Logger) (*World, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("physics")

	w := &World{
		cfg:       cfg,
		log:       log,
		tree:      NewDynamicTree(cfg.TreeMargin, log),
		narrow:    NewNarrowPhase(cfg.Narrow),
		resolver:  NewResolver(cfg.Solver),
		frame:     NewFrameContext(),
		contacts:  newContactTracker(),
		aabbs:     make(map[engine.Entity]geom.AABB),
		nodes:     make(map[engine.Entity]NodeID),
		narrowLog: rate.Sometimes{Interval: time.Second},
	}
	w.visit = w.visitCandidate
	w.advance = w.integrateBody
	w.alive = w.hasCollider
	return w, nil
}

func (w *World) Config() Config {
	return w.cfg
}

// SetSolverConfig swaps the resolver tunables between ticks.
func (w *World) SetSolverConfig(sc SolverConfig) error {
	cfg := w.cfg
	cfg.Solver = sc
	if err := cfg.Validate(); err != nil {
		return err
	}
	w.cfg = cfg
	w.resolver = NewResolver(sc)
	return nil
}

func (w *World) SetObserver(o Observer) {
	w.observer = o
}

func (w *World) Tree() *DynamicTree {
	return w.tree
}

// Frame exposes the last tick's scratch data. It is overwritten by Step.
func (w *World) Frame() *FrameContext {
	return w.frame
}

// WorldAABB returns the cached tight box of e from the last refresh.
func (w *World) WorldAABB(e engine.Entity) (geom.AABB, bool) {
	box, ok := w.aabbs[e]
	return box, ok
}

// Touching reports whether a and b were in contact on the last Step.
func (w *World) Touching(a, b engine.Entity) bool {
	return w.contacts.active(MakePair(a, b))
}

// Step advances the scene by dt: integrate, refresh bounds, find pairs,
// generate contacts, resolve, then report contact events.
func (w *World) Step(scene *engine.Scene, dt float32) {
	start := time.Now()

	w.frame.Clear()
	w.frame.DeltaTime = dt

	w.queryScene, w.stepDt = scene, dt
	defer func() { w.queryScene = nil }()

	scene.Bodies.Each(w.advance)

	moved, removed := scene.Changes()
	w.syncRemoved(removed)
	w.refreshBounds(scene, moved)
	w.findPairs(moved)
	scene.ClearChanges()

	failures := w.narrowPhase(scene)
	w.resolver.Resolve(w.frame, scene)

	w.contacts.collect(w.frame, w.alive)
	for _, ev := range w.frame.Events {
		w.Contact.Invoke(ev)
	}

	if w.observer != nil {
		w.observer.ObserveTick(TickStats{
			Duration:       time.Since(start),
			Colliders:      w.tree.LeafCount(),
			CandidatePairs: len(w.frame.CandidatePairs),
			Contacts:       len(w.frame.Contacts),
			Impulses:       len(w.frame.Impulses),
			Events:         len(w.frame.Events),
			NarrowFailures: failures,
			TreeHeight:     w.tree.Height(),
			TreeNodes:      w.tree.NodeCount(),
		})
	}
}

// integrateBody applies gravity to a dynamic body and moves any non-static
// body by its velocity.
func (w *World) integrateBody(e engine.Entity, b *components.Body) {
	if b.Kind == components.Static {
		return
	}
	scene, dt := w.queryScene, w.stepDt
	v, ok := scene.Velocities.Get(e)
	if !ok {
		return
	}
	if b.Kind == components.Dynamic && b.UseGravity {
		v.Linear = v.Linear.Add(w.cfg.Gravity.Mul(dt))
	}
	if v.Linear.LenSqr() == 0 && v.Angular.LenSqr() == 0 {
		return
	}
	t, ok := scene.Transforms.Get(e)
	if !ok {
		return
	}
	t.Position = t.Position.Add(v.Linear.Mul(dt))
	t.IntegrateRotation(v.Angular, dt)
	scene.MarkMoved(e)
}

func (w *World) hasCollider(e engine.Entity) bool {
	return w.queryScene.Colliders.Has(e)
}

func (w *World) syncRemoved(removed []engine.Entity) {
	for _, e := range removed {
		id, ok := w.nodes[e]
		if !ok {
			continue
		}
		w.tree.Remove(id, e)
		delete(w.nodes, e)
		delete(w.aabbs, e)
	}
}

func (w *World) refreshBounds(scene *engine.Scene, moved []engine.Entity) {
	for _, e := range moved {
		col, ok := scene.Colliders.Get(e)
		if !ok {
			continue
		}
		t, ok := scene.Transforms.Get(e)
		if !ok {
			continue
		}
		box := col.WorldAABB(*t)
		w.aabbs[e] = box
		if id, ok := w.nodes[e]; ok {
			w.tree.Update(id, e, box)
		} else {
			w.nodes[e] = w.tree.AllocateLeaf(e, box)
		}
	}
}

// findPairs queries the tree with every moved entity's tight box. Pairs that
// touched last tick are tested again even if neither side moved, so resting
// contacts keep reporting Stay.
func (w *World) findPairs(moved []engine.Entity) {
	for _, e := range moved {
		box, ok := w.aabbs[e]
		if !ok {
			continue
		}
		w.queryEntity = e
		w.tree.Query(box, w.visit)
	}

	for _, p := range w.contacts.prev {
		_, okA := w.nodes[p.A]
		_, okB := w.nodes[p.B]
		if okA && okB {
			w.frame.AddCandidate(p)
		}
	}
}

func (w *World) visitCandidate(other engine.Entity) {
	if other == w.queryEntity {
		return
	}
	if w.cfg.Contacts.LayerFiltering && !w.layersAccept(w.queryScene, w.queryEntity, other) {
		return
	}
	w.frame.AddCandidate(MakePair(w.queryEntity, other))
}

func (w *World) layersAccept(scene *engine.Scene, a, b engine.Entity) bool {
	ca, okA := scene.Colliders.Get(a)
	cb, okB := scene.Colliders.Get(b)
	return okA && okB && ca.Accepts(*cb)
}

func (w *World) input(scene *engine.Scene, e engine.Entity) (collisionInput, bool) {
	box, ok := w.aabbs[e]
	if !ok {
		return collisionInput{}, false
	}
	col, ok := scene.Colliders.Get(e)
	if !ok {
		return collisionInput{}, false
	}
	in := collisionInput{entity: e, box: box, shape: col.Shape}
	if in.shape != nil {
		t, ok := scene.Transforms.Get(e)
		if !ok {
			return collisionInput{}, false
		}
		in.matrix = t.Matrix()
	}
	return in, true
}

// narrowPhase turns candidate pairs into manifolds and returns how many
// pairs were skipped because contact generation failed.
func (w *World) narrowPhase(scene *engine.Scene) int {
	failures := 0
	for _, p := range w.frame.CandidatePairs {
		a, okA := w.input(scene, p.A)
		b, okB := w.input(scene, p.B)
		if !okA || !okB {
			w.narrowLog.Do(func() {
				w.log.Warn("skipping pair without cached bounds",
					zap.Stringer("a", p.A), zap.Stringer("b", p.B))
			})
			continue
		}
		if !a.box.Intersects(b.box) {
			continue
		}

		c, ok, err := w.narrow.generateContact(w.cfg.Contacts.Mode, a, b)
		if err != nil {
			failures++
			w.narrowLog.Do(func() {
				w.log.Warn("narrow phase failed, skipping pair",
					zap.Stringer("a", p.A), zap.Stringer("b", p.B), zap.Error(err))
			})
			continue
		}
		if ok {
			w.frame.AddManifold(p, c)
		}
	}
	return failures
}

// Rebuild drops all derived state and marks every collider in scene as
// moved, so the next Step reinserts them.
func (w *World) Rebuild(scene *engine.Scene) {
	w.tree = NewDynamicTree(w.cfg.TreeMargin, w.log)
	clear(w.aabbs)
	clear(w.nodes)
	w.contacts = newContactTracker()
	w.frame.Clear()
	for _, e := range scene.Colliders.Entities() {
		scene.MarkMoved(e)
	}
}

func (s TickStats) String() string {
	return fmt.Sprintf("colliders=%d pairs=%d contacts=%d impulses=%d height=%d took=%s",
		s.Colliders, s.CandidatePairs, s.Contacts, s.Impulses, s.TreeHeight, s.Duration)
}
