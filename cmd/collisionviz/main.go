// Command collisionviz renders a scene's colliders, contacts and broad-phase
// tree while the physics pipeline runs, with the solver tunables on sliders.
package main

import (
	"flag"
	"fmt"
	"os"

	"collide3d/internal/components"
	"collide3d/internal/engine"
	"collide3d/internal/geom"
	"collide3d/internal/logging"
	"collide3d/internal/physics"
	"collide3d/internal/world"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

const (
	frustumNear = 0.1
	frustumFar  = 1000.0
	shotSpeed   = 20.0
)

type viewer struct {
	world     *world.World
	log       *zap.Logger
	cam       *flyCamera
	scenePath string
	watcher   *sceneWatcher

	paused       bool
	showTree     bool
	showContacts bool

	selected    engine.Entity
	hasSelected bool
	shots       int

	// slider state, pushed to the world when it changes
	solver physics.SolverConfig

	stepMs float64
}

func main() {
	scenePath := flag.String("scene", "assets/scenes/stack.yaml", "YAML scene to load")
	configPath := flag.String("config", "", "physics config YAML; defaults when empty")
	debug := flag.Bool("debug", false, "development logging")
	flag.Parse()

	log := logging.Must(*debug)
	defer log.Sync()

	cfg, err := physics.LoadConfigFile(*configPath)
	if err != nil {
		log.Error("load config", zap.Error(err))
		os.Exit(1)
	}
	w, err := world.New(cfg, log)
	if err != nil {
		log.Error("create world", zap.Error(err))
		os.Exit(1)
	}
	if err := w.LoadSceneFile(*scenePath); err != nil {
		log.Error("load scene", zap.String("path", *scenePath), zap.Error(err))
		os.Exit(1)
	}

	v := &viewer{
		world:        w,
		log:          log,
		cam:          newFlyCamera(rl.Vector3{X: 12, Y: 8, Z: 12}),
		scenePath:    *scenePath,
		showContacts: true,
		solver:       cfg.Solver,
	}
	w.Physics.Contact.AddListener(v.onContact)

	if sw, err := watchScene(*scenePath, log); err != nil {
		log.Warn("scene hot reload disabled", zap.Error(err))
	} else {
		v.watcher = sw
		defer sw.Close()
	}
	v.Run()
}

func (v *viewer) Run() {
	rl.SetConfigFlags(rl.FlagWindowHighdpi | rl.FlagMsaa4xHint)
	rl.InitWindow(1280, 720, "collide3d")
	defer rl.CloseWindow()

	rl.SetTargetFPS(120)
	initGuiStyle()

	for !rl.WindowShouldClose() {
		v.Update()
		v.Draw()
	}
}

func (v *viewer) onContact(ev physics.ContactEvent) {
	// each pair is reported to both sides; log it once
	if ev.Kind == physics.ContactStay || ev.Entity > ev.Other {
		return
	}
	v.log.Debug("contact",
		zap.Stringer("kind", ev.Kind),
		zap.String("a", v.world.Scene.EntityName(ev.Entity)),
		zap.String("b", v.world.Scene.EntityName(ev.Other)))
}

func (v *viewer) Update() {
	deltaTime := rl.GetFrameTime()
	v.cam.Update(deltaTime)

	switch {
	case rl.IsKeyPressed(rl.KeyP):
		v.paused = !v.paused
	case rl.IsKeyPressed(rl.KeyF2):
		v.showTree = !v.showTree
	case rl.IsKeyPressed(rl.KeyF3):
		v.showContacts = !v.showContacts
	case rl.IsKeyPressed(rl.KeyR):
		v.reload()
	case rl.IsKeyPressed(rl.KeyF5):
		v.save()
	case rl.IsKeyPressed(rl.KeyDelete) && v.hasSelected:
		v.world.Scene.Despawn(v.selected)
		v.hasSelected = false
	case rl.IsKeyPressed(rl.KeySpace):
		v.shoot()
	}

	if v.watcher != nil && v.watcher.Changed() {
		v.log.Info("scene file changed, reloading", zap.String("path", v.scenePath))
		v.reload()
	}

	if rl.IsMouseButtonPressed(rl.MouseLeftButton) && !rl.CheckCollisionPointRec(rl.GetMousePosition(), panelBounds) {
		v.pick()
	}

	start := rl.GetTime()
	switch {
	case !v.paused:
		v.world.Update(deltaTime)
	case rl.IsKeyPressed(rl.KeyN):
		v.world.Step()
	}
	v.stepMs = (rl.GetTime() - start) * 1000
}

func (v *viewer) reload() {
	if err := v.world.LoadSceneFile(v.scenePath); err != nil {
		v.log.Warn("reload scene", zap.Error(err))
		return
	}
	v.hasSelected = false
}

func (v *viewer) save() {
	path := v.scenePath + ".saved.yaml"
	if err := world.SaveSceneFile(path, v.world.Scene); err != nil {
		v.log.Warn("save scene", zap.Error(err))
		return
	}
	v.log.Info("scene saved", zap.String("path", path))
}

// shoot launches a small dynamic cube along the view direction.
func (v *viewer) shoot() {
	v.shots++
	look := v.cam.LookDirection()
	dir := mgl32.Vec3{look.X, look.Y, look.Z}
	pos := fromRL(v.cam.Position).Add(dir.Mul(2))

	scene := v.world.Scene
	e := scene.Spawn(fmt.Sprintf("Shot_%d", v.shots))
	scene.SetTransform(e, components.NewTransform(pos))

	body := components.NewRigidbody()
	body.Restitution = 0.6
	scene.SetBody(e, body)
	scene.SetVelocity(e, components.Velocity{Linear: dir.Mul(shotSpeed)})
	scene.SetCollider(e, components.NewConvexCollider(geom.Cube(0.5, geom.LayerDynamic)))
}

func (v *viewer) pick() {
	ray := rl.GetScreenToWorldRay(rl.GetMousePosition(), v.cam.Raylib())
	hit, ok := v.world.Physics.RayCast(fromRL(ray.Position), fromRL(ray.Direction), frustumFar)
	v.selected, v.hasSelected = hit.Entity, ok
}

func (v *viewer) Draw() {
	camera := v.cam.Raylib()
	view := extractFrustum(camera, frustumNear, frustumFar)

	rl.BeginDrawing()
	rl.ClearBackground(rl.NewColor(20, 20, 30, 255))

	rl.BeginMode3D(camera)
	rl.DrawGrid(40, 1)
	v.drawColliders(&view)
	if v.showContacts {
		v.drawContacts()
	}
	if v.showTree {
		v.drawTree()
	}
	rl.EndMode3D()

	v.drawPanel()
	rl.EndDrawing()
}

func (v *viewer) drawColliders(view *frustum) {
	scene := v.world.Scene
	scene.Colliders.Each(func(e engine.Entity, c *components.Collider) {
		box, ok := v.world.Physics.WorldAABB(e)
		if !ok || !view.containsAABB(box) {
			return
		}
		color := colliderColor(scene, e)
		if v.hasSelected && e == v.selected {
			color = rl.Yellow
		}
		rl.DrawBoundingBox(rl.BoundingBox{Min: toRL(box.Min), Max: toRL(box.Max)}, color)

		if c.Shape == nil || c.Shape.Kind != geom.ShapeHull {
			return
		}
		t, ok := scene.Transforms.Get(e)
		if !ok {
			return
		}
		m := t.Matrix()
		for _, p := range c.Shape.Vertices {
			rl.DrawSphere(toRL(geom.TransformPoint(m, p)), 0.04, color)
		}
	})
}

func colliderColor(scene *engine.Scene, e engine.Entity) rl.Color {
	b, ok := scene.Bodies.Get(e)
	if !ok {
		return rl.Purple
	}
	switch b.Kind {
	case components.Dynamic:
		return rl.Orange
	case components.Kinematic:
		return rl.SkyBlue
	default:
		return rl.LightGray
	}
}

func (v *viewer) drawContacts() {
	for _, c := range v.world.Physics.Frame().Contacts {
		p := toRL(c.Point)
		rl.DrawSphere(p, 0.06, rl.Red)
		rl.DrawLine3D(p, toRL(c.Point.Add(c.Normal.Mul(0.5+c.Penetration))), rl.Green)
	}
}

func (v *viewer) drawTree() {
	v.world.Physics.Tree().Walk(func(box geom.AABB, depth int, leaf bool) {
		if leaf {
			return
		}
		shade := uint8(max(255-depth*24, 60))
		rl.DrawBoundingBox(rl.BoundingBox{Min: toRL(box.Min), Max: toRL(box.Max)}, rl.NewColor(80, shade, 255, 140))
	})
}

func toRL(v mgl32.Vec3) rl.Vector3 {
	return rl.Vector3{X: v[0], Y: v[1], Z: v[2]}
}

func fromRL(v rl.Vector3) mgl32.Vec3 {
	return mgl32.Vec3{v.X, v.Y, v.Z}
}
