// Package world drives a physics.World over a scene at a fixed timestep.
package world

import (
	"time"

	"collide3d/internal/engine"
	"collide3d/internal/physics"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// MaxStepsPerUpdate caps catch-up work after a long frame. Time beyond the
// cap is dropped.
const MaxStepsPerUpdate = 8

type World struct {
	Scene   *engine.Scene
	Physics *physics.World

	log         *zap.Logger
	timestep    float32
	accumulator float32
	ticks       uint64
	dropLog     rate.Sometimes

	// Stepped fires after every fixed physics step.
	Stepped engine.Event
}

func New(cfg physics.Config, log *zap.Logger) (*World, error) {
	if log == nil {
		log = zap.NewNop()
	}
	pw, err := physics.NewWorld(cfg, log)
	if err != nil {
		return nil, err
	}
	return &World{
		Scene:    engine.NewScene("Main"),
		Physics:  pw,
		log:      log.Named("world"),
		timestep: cfg.FixedTimestep,
		dropLog:  rate.Sometimes{Interval: 5 * time.Second},
	}, nil
}

// SetScene replaces the scene and rebuilds all physics state for it.
func (w *World) SetScene(scene *engine.Scene) {
	w.Scene = scene
	w.accumulator = 0
	w.Physics.Rebuild(scene)
	w.log.Info("scene loaded", zap.String("name", scene.Name), zap.Int("entities", scene.Len()))
}

// LoadSceneFile reads a YAML scene from path and makes it current.
func (w *World) LoadSceneFile(path string) error {
	scene, err := LoadSceneFile(path)
	if err != nil {
		return err
	}
	w.SetScene(scene)
	return nil
}

// Update banks frameDelta and runs as many fixed steps as it covers. It
// returns the number of steps taken.
func (w *World) Update(frameDelta float32) int {
	if frameDelta <= 0 {
		return 0
	}
	w.accumulator += frameDelta

	steps := 0
	for w.accumulator >= w.timestep {
		if steps == MaxStepsPerUpdate {
			dropped := w.accumulator
			w.accumulator = 0
			w.dropLog.Do(func() {
				w.log.Warn("physics falling behind, dropping time",
					zap.Float32("dropped_seconds", dropped))
			})
			break
		}
		w.Step()
		w.accumulator -= w.timestep
		steps++
	}
	return steps
}

// Step advances the simulation by exactly one fixed timestep.
func (w *World) Step() {
	w.Physics.Step(w.Scene, w.timestep)
	w.ticks++
	w.Stepped.Invoke()
}

// Alpha is how far the accumulator is into the next step, in [0, 1), for
// render interpolation.
func (w *World) Alpha() float32 {
	return w.accumulator / w.timestep
}

func (w *World) Ticks() uint64 {
	return w.ticks
}

func (w *World) Timestep() float32 {
	return w.timestep
}
