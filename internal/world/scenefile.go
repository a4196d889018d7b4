package world

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"collide3d/internal/components"
	"collide3d/internal/engine"
	"collide3d/internal/geom"

	"github.com/go-gl/mathgl/mgl32"
	"gopkg.in/yaml.v3"
)

// ErrInvalidScene wraps every semantic error found while loading a scene.
var ErrInvalidScene = errors.New("invalid scene")

// --- YAML types ---

type SceneFile struct {
	Name    string      `yaml:"name,omitempty"`
	Objects []ObjectDef `yaml:"objects"`
}

type ObjectDef struct {
	Name     string     `yaml:"name"`
	Position [3]float32 `yaml:"position,flow"`
	// Euler angles in degrees, XYZ order.
	Rotation [3]float32 `yaml:"rotation,flow,omitempty"`
	// Exact orientation as x, y, z, w. Takes precedence over Rotation.
	Orientation *[4]float32  `yaml:"orientation,flow,omitempty"`
	Scale       *[3]float32  `yaml:"scale,flow,omitempty"`
	Body        *BodyDef     `yaml:"body,omitempty"`
	Velocity    *VelocityDef `yaml:"velocity,omitempty"`
	Collider    *ColliderDef `yaml:"collider,omitempty"`
}

type BodyDef struct {
	Kind        string   `yaml:"kind"`
	Mass        *float32 `yaml:"mass,omitempty"`
	Restitution *float32 `yaml:"restitution,omitempty"`
	Friction    *float32 `yaml:"friction,omitempty"`
	UseGravity  *bool    `yaml:"use_gravity,omitempty"`
}

type VelocityDef struct {
	Linear  [3]float32 `yaml:"linear,flow"`
	Angular [3]float32 `yaml:"angular,flow,omitempty"`
}

// ColliderDef sets exactly one of Box, Cube, HalfExtents or Hull.
type ColliderDef struct {
	// Full size of an AABB-only collider.
	Box *[3]float32 `yaml:"box,flow,omitempty"`
	// Center of the box collider relative to the object. Box only.
	Offset [3]float32 `yaml:"offset,flow,omitempty"`
	// Edge length of a convex cube hull.
	Cube *float32 `yaml:"cube,omitempty"`
	// Analytic convex box.
	HalfExtents *[3]float32  `yaml:"half_extents,flow,omitempty"`
	Hull        [][3]float32 `yaml:"hull,flow,omitempty"`
	Layer       []string     `yaml:"layer,flow,omitempty"`
	Mask        []string     `yaml:"mask,flow,omitempty"`
}

var layerByName = map[string]geom.CollisionLayer{
	"default": geom.LayerDefault,
	"static":  geom.LayerStatic,
	"dynamic": geom.LayerDynamic,
	"trigger": geom.LayerTrigger,
	"all":     geom.LayerAll,
}

func parseLayers(names []string, fallback geom.CollisionLayer) (geom.CollisionLayer, error) {
	if len(names) == 0 {
		return fallback, nil
	}
	var l geom.CollisionLayer
	for _, n := range names {
		bit, ok := layerByName[strings.ToLower(n)]
		if !ok {
			return 0, fmt.Errorf("unknown layer %q", n)
		}
		l |= bit
	}
	return l, nil
}

func layerNames(l geom.CollisionLayer) []string {
	if l == geom.LayerAll {
		return []string{"all"}
	}
	var names []string
	for _, n := range []string{"default", "static", "dynamic", "trigger"} {
		if l&layerByName[n] != 0 {
			names = append(names, n)
		}
	}
	return names
}

func vec3(v [3]float32) mgl32.Vec3 {
	return mgl32.Vec3{v[0], v[1], v[2]}
}

// --- Loading ---

// LoadScene decodes a YAML scene into a new engine.Scene. Unknown keys are
// rejected.
func LoadScene(r io.Reader) (*engine.Scene, error) {
	var sf SceneFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&sf); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse scene: %w", err)
	}

	name := sf.Name
	if name == "" {
		name = "Main"
	}
	scene := engine.NewScene(name)

	for i, def := range sf.Objects {
		if err := loadObject(scene, def); err != nil {
			label := def.Name
			if label == "" {
				label = fmt.Sprintf("#%d", i)
			}
			return nil, fmt.Errorf("%w: object %s: %w", ErrInvalidScene, label, err)
		}
	}
	return scene, nil
}

// LoadSceneFile opens path and calls LoadScene.
func LoadSceneFile(path string) (*engine.Scene, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read scene: %w", err)
	}
	defer f.Close()
	return LoadScene(f)
}

func loadObject(scene *engine.Scene, def ObjectDef) error {
	t := components.NewTransform(vec3(def.Position))
	switch {
	case def.Orientation != nil:
		o := def.Orientation
		t.Rotation = mgl32.Quat{W: o[3], V: mgl32.Vec3{o[0], o[1], o[2]}}.Normalize()
	default:
		t.SetEulerDegrees(vec3(def.Rotation))
	}
	if def.Scale != nil {
		t.Scale = vec3(*def.Scale)
		if t.Scale[0] <= 0 || t.Scale[1] <= 0 || t.Scale[2] <= 0 {
			return fmt.Errorf("scale must be positive, got %v", *def.Scale)
		}
	}

	var body *components.Body
	if def.Body != nil {
		b, err := loadBody(*def.Body)
		if err != nil {
			return err
		}
		body = &b
	}

	var collider *components.Collider
	if def.Collider != nil {
		c, err := loadCollider(*def.Collider)
		if err != nil {
			return err
		}
		collider = &c
	}

	e := scene.Spawn(def.Name)
	scene.SetTransform(e, t)
	if body != nil {
		scene.SetBody(e, *body)
	}
	if def.Velocity != nil {
		scene.SetVelocity(e, components.Velocity{
			Linear:  vec3(def.Velocity.Linear),
			Angular: vec3(def.Velocity.Angular),
		})
	} else if body != nil && body.Kind != components.Static {
		scene.SetVelocity(e, components.Velocity{})
	}
	if collider != nil {
		scene.SetCollider(e, *collider)
	}
	return nil
}

func loadBody(def BodyDef) (components.Body, error) {
	kind, err := components.ParseBodyKind(strings.ToLower(def.Kind))
	if err != nil {
		return components.Body{}, err
	}

	var b components.Body
	switch kind {
	case components.Dynamic:
		b = components.NewRigidbody()
	case components.Kinematic:
		b = components.Body{Kind: components.Kinematic, Mass: 1, Restitution: 0.5, Friction: 0.1}
	default:
		b = components.NewStaticBody()
	}

	if def.Mass != nil {
		b.Mass = *def.Mass
	}
	if def.Restitution != nil {
		b.Restitution = *def.Restitution
	}
	if def.Friction != nil {
		b.Friction = *def.Friction
	}
	if def.UseGravity != nil {
		b.UseGravity = *def.UseGravity
	}

	switch {
	case b.Kind == components.Dynamic && b.Mass <= 0:
		return components.Body{}, fmt.Errorf("dynamic body needs a positive mass, got %v", b.Mass)
	case b.Restitution < 0 || b.Restitution > 1:
		return components.Body{}, fmt.Errorf("restitution must be within [0, 1], got %v", b.Restitution)
	case b.Friction < 0:
		return components.Body{}, fmt.Errorf("friction must not be negative, got %v", b.Friction)
	}
	return b, nil
}

func loadCollider(def ColliderDef) (components.Collider, error) {
	layer, err := parseLayers(def.Layer, geom.LayerDefault)
	if err != nil {
		return components.Collider{}, err
	}
	mask, err := parseLayers(def.Mask, geom.LayerAll)
	if err != nil {
		return components.Collider{}, err
	}

	set := 0
	for _, present := range []bool{def.Box != nil, def.Cube != nil, def.HalfExtents != nil, len(def.Hull) > 0} {
		if present {
			set++
		}
	}
	if set != 1 {
		return components.Collider{}, errors.New("collider needs exactly one of box, cube, half_extents or hull")
	}
	if def.Box == nil && def.Offset != ([3]float32{}) {
		return components.Collider{}, errors.New("offset only applies to box colliders; place convex shapes with the object position")
	}

	var c components.Collider
	switch {
	case def.Box != nil:
		size := vec3(*def.Box)
		if size[0] <= 0 || size[1] <= 0 || size[2] <= 0 {
			return components.Collider{}, fmt.Errorf("box size must be positive, got %v", *def.Box)
		}
		c = components.NewBoxCollider(size)
		c.Local = geom.NewAABBFromCenter(vec3(def.Offset), size)
		c.Layer, c.Mask = layer, mask
		return c, nil
	case def.Cube != nil:
		if *def.Cube <= 0 {
			return components.Collider{}, fmt.Errorf("cube size must be positive, got %v", *def.Cube)
		}
		c = components.NewConvexCollider(geom.Cube(*def.Cube, layer).WithMask(mask))
	case def.HalfExtents != nil:
		h := vec3(*def.HalfExtents)
		if h[0] <= 0 || h[1] <= 0 || h[2] <= 0 {
			return components.Collider{}, fmt.Errorf("half extents must be positive, got %v", *def.HalfExtents)
		}
		c = components.NewConvexCollider(geom.NewBox(h, layer).WithMask(mask))
	default:
		if len(def.Hull) < 4 {
			return components.Collider{}, fmt.Errorf("hull needs at least 4 vertices, got %d", len(def.Hull))
		}
		verts := make([]mgl32.Vec3, len(def.Hull))
		for i, v := range def.Hull {
			verts[i] = vec3(v)
		}
		c = components.NewConvexCollider(geom.NewHull(verts, layer).WithMask(mask))
	}
	return c, nil
}

// --- Saving ---

// SaveScene writes every named entity with a transform as YAML. Convex cubes
// are written back as hulls.
func SaveScene(w io.Writer, scene *engine.Scene) error {
	sf := SceneFile{Name: scene.Name}

	for _, e := range scene.Transforms.Entities() {
		t, _ := scene.Transforms.Get(e)
		def := ObjectDef{
			Name:     scene.EntityName(e),
			Position: [3]float32(t.Position),
		}
		if t.Rotation != mgl32.QuatIdent() {
			def.Orientation = &[4]float32{t.Rotation.V[0], t.Rotation.V[1], t.Rotation.V[2], t.Rotation.W}
		}
		if t.Scale != (mgl32.Vec3{1, 1, 1}) {
			s := [3]float32(t.Scale)
			def.Scale = &s
		}

		if b, ok := scene.Bodies.Get(e); ok {
			def.Body = &BodyDef{
				Kind:        b.Kind.String(),
				Mass:        &b.Mass,
				Restitution: &b.Restitution,
				Friction:    &b.Friction,
				UseGravity:  &b.UseGravity,
			}
		}
		if v, ok := scene.Velocities.Get(e); ok {
			def.Velocity = &VelocityDef{Linear: [3]float32(v.Linear), Angular: [3]float32(v.Angular)}
		}
		if c, ok := scene.Colliders.Get(e); ok {
			def.Collider = saveCollider(*c)
		}

		sf.Objects = append(sf.Objects, def)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(sf); err != nil {
		return fmt.Errorf("marshal scene: %w", err)
	}
	return enc.Close()
}

// SaveSceneFile writes scene to path.
func SaveSceneFile(path string, scene *engine.Scene) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write scene: %w", err)
	}
	if err := SaveScene(f, scene); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func saveCollider(c components.Collider) *ColliderDef {
	def := &ColliderDef{
		Layer: layerNames(c.Layer),
		Mask:  layerNames(c.Mask),
	}
	if c.Shape == nil {
		size := [3]float32(c.Local.Max.Sub(c.Local.Min))
		def.Box = &size
		def.Offset = [3]float32(c.Local.Center())
		return def
	}
	switch c.Shape.Kind {
	case geom.ShapeBox:
		h := [3]float32(c.Shape.HalfExtents)
		def.HalfExtents = &h
	default:
		def.Hull = make([][3]float32, len(c.Shape.Vertices))
		for i, v := range c.Shape.Vertices {
			def.Hull[i] = [3]float32(v)
		}
	}
	return def
}
