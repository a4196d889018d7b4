package main

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"collide3d/internal/components"
	"collide3d/internal/engine"
	"collide3d/internal/geom"
	"collide3d/internal/physics"
	"collide3d/internal/telemetry"
	"collide3d/internal/world"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

const queryIterations = 10

type bench struct {
	log       *zap.Logger
	seed      int64
	steps     int
	collector *telemetry.Collector

	lastWorld *world.World
}

func (b *bench) run(ctx context.Context, counts []int) error {
	fmt.Printf("%7s | %-28s | %-28s | %s\n", "objects", "tree query", "brute force", "pipeline step")
	for _, count := range counts {
		if err := ctx.Err(); err != nil {
			return err
		}
		bp, err := b.broadPhase(count)
		if err != nil {
			return err
		}
		step, err := b.pipeline(ctx, count)
		if err != nil {
			return err
		}
		fmt.Printf("%7d | %10v (%6d pairs) | %10v (%6d pairs) | %v (%.1fx)\n",
			count,
			bp.treeTime.Round(time.Microsecond), bp.treePairs,
			bp.bruteTime.Round(time.Microsecond), bp.brutePairs,
			step.Round(time.Microsecond),
			float64(bp.bruteTime)/float64(max(bp.treeTime, 1)))
	}
	return nil
}

type broadPhaseResult struct {
	treeTime, bruteTime   time.Duration
	treePairs, brutePairs int
}

// broadPhase times all-pairs queries over random boxes. Tree pairs use fat
// leaves, so they are a superset of the brute force pairs.
func (b *bench) broadPhase(count int) (broadPhaseResult, error) {
	rng := rand.New(rand.NewSource(b.seed))
	spawnSize := float32(50.0) + float32(count)/100.0

	boxes := make([]geom.AABB, count)
	for i := range boxes {
		center := mgl32.Vec3{
			rng.Float32()*spawnSize - spawnSize/2,
			rng.Float32()*spawnSize - spawnSize/2,
			rng.Float32()*spawnSize - spawnSize/2,
		}
		size := 1 + rng.Float32()
		boxes[i] = geom.NewAABBFromCenter(center, mgl32.Vec3{size, size, size})
	}

	tree := physics.NewDynamicTree(physics.DefaultConfig().TreeMargin, b.log)
	for i, box := range boxes {
		tree.AllocateLeaf(engine.Entity(i+1), box)
	}
	if err := tree.Validate(); err != nil {
		return broadPhaseResult{}, err
	}

	var res broadPhaseResult

	start := time.Now()
	for iter := 0; iter < queryIterations; iter++ {
		res.treePairs = 0
		for i, box := range boxes {
			self := engine.Entity(i + 1)
			tree.Query(box, func(e engine.Entity) {
				if e > self {
					res.treePairs++
				}
			})
		}
	}
	res.treeTime = time.Since(start) / queryIterations

	start = time.Now()
	for iter := 0; iter < queryIterations; iter++ {
		res.brutePairs = 0
		for i := 0; i < len(boxes); i++ {
			for j := i + 1; j < len(boxes); j++ {
				if boxes[i].Intersects(boxes[j]) {
					res.brutePairs++
				}
			}
		}
	}
	res.bruteTime = time.Since(start) / queryIterations

	b.log.Debug("broad phase",
		zap.Int("objects", count),
		zap.Int32("tree_height", tree.Height()),
		zap.Int("tree_nodes", tree.NodeCount()))
	return res, nil
}

// pipeline drops count boxes in a loose grid onto a floor and returns the
// mean step time.
func (b *bench) pipeline(ctx context.Context, count int) (time.Duration, error) {
	w, err := world.New(physics.DefaultConfig(), b.log)
	if err != nil {
		return 0, err
	}
	w.Physics.SetObserver(b.collector)
	w.SetScene(stressScene(count, b.seed))

	start := time.Now()
	for i := 0; i < b.steps; i++ {
		if i%16 == 0 {
			if err := ctx.Err(); err != nil {
				return 0, err
			}
		}
		w.Step()
	}
	elapsed := time.Since(start)

	b.lastWorld = w
	if b.steps == 0 {
		return 0, nil
	}
	return elapsed / time.Duration(b.steps), nil
}

func stressScene(count int, seed int64) *engine.Scene {
	rng := rand.New(rand.NewSource(seed))
	scene := engine.NewScene(fmt.Sprintf("Stress_%d", count))

	side := int(math.Ceil(math.Sqrt(float64(count))))
	extent := float32(side) * 1.5

	floor := scene.Spawn("Floor")
	scene.SetTransform(floor, components.NewTransform(mgl32.Vec3{0, -0.5, 0}))
	scene.SetBody(floor, components.NewStaticBody())
	floorCol := components.NewBoxCollider(mgl32.Vec3{extent*2 + 4, 1, extent*2 + 4})
	floorCol.Layer = geom.LayerStatic
	scene.SetCollider(floor, floorCol)

	for i := 0; i < count; i++ {
		row, col, layer := i%side, (i/side)%side, i/(side*side)
		pos := mgl32.Vec3{
			float32(row)*1.5 - extent/2 + rng.Float32()*0.2,
			1 + float32(layer)*1.5 + rng.Float32()*2,
			float32(col)*1.5 - extent/2 + rng.Float32()*0.2,
		}
		e := scene.Spawn(fmt.Sprintf("Box_%d", i))
		scene.SetTransform(e, components.NewTransform(pos))
		scene.SetBody(e, components.NewRigidbody())
		scene.SetVelocity(e, components.Velocity{})
		// alternate shapes so both contact paths get load
		if i%2 == 0 {
			scene.SetCollider(e, components.NewConvexCollider(geom.Cube(1, geom.LayerDynamic)))
		} else {
			scene.SetCollider(e, components.NewBoxCollider(mgl32.Vec3{1, 1, 1}))
		}
	}
	return scene
}
