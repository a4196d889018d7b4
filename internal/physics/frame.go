package physics

import (
	"collide3d/internal/engine"

	"github.com/go-gl/mathgl/mgl32"
)

// Impulse is a velocity change the resolver applied to one entity.
type Impulse struct {
	Entity  engine.Entity
	Linear  mgl32.Vec3
	Angular mgl32.Vec3 // always zero, the solver is linear only
}

// Correction is the accumulated positional push applied to one entity.
type Correction struct {
	Entity engine.Entity
	Delta  mgl32.Vec3
}

// FrameContext is the scratch state of a single collision pass. Everything in
// it is valid until the next Clear.
type FrameContext struct {
	DeltaTime      float32
	CandidatePairs []Pair
	Contacts       []Contact
	Manifolds      []Manifold
	Impulses       []Impulse
	Corrections    []Correction
	Events         []ContactEvent

	pairSet map[Pair]struct{}
	// index into Corrections per entity
	correctionIndex map[engine.Entity]int
}

func NewFrameContext() *FrameContext {
	return &FrameContext{
		pairSet:         make(map[Pair]struct{}),
		correctionIndex: make(map[engine.Entity]int),
	}
}

// Clear truncates every buffer, keeping capacity.
func (f *FrameContext) Clear() {
	f.DeltaTime = 0
	f.CandidatePairs = f.CandidatePairs[:0]
	f.Contacts = f.Contacts[:0]
	f.Manifolds = f.Manifolds[:0]
	f.Impulses = f.Impulses[:0]
	f.Corrections = f.Corrections[:0]
	f.Events = f.Events[:0]
	clear(f.pairSet)
	clear(f.correctionIndex)
}

// AddCandidate records a pair once per tick. It reports whether the pair
// was new.
func (f *FrameContext) AddCandidate(p Pair) bool {
	if _, seen := f.pairSet[p]; seen {
		return false
	}
	f.pairSet[p] = struct{}{}
	f.CandidatePairs = append(f.CandidatePairs, p)
	return true
}

// AddManifold appends contacts for one pair and indexes them as a manifold.
func (f *FrameContext) AddManifold(p Pair, contacts ...Contact) {
	if len(contacts) == 0 {
		return
	}
	f.Manifolds = append(f.Manifolds, Manifold{
		Pair:   p,
		Normal: contacts[0].Normal,
		First:  len(f.Contacts),
		Count:  len(contacts),
	})
	f.Contacts = append(f.Contacts, contacts...)
}

// ManifoldContacts returns the contacts belonging to m.
func (f *FrameContext) ManifoldContacts(m Manifold) []Contact {
	return f.Contacts[m.First : m.First+m.Count]
}

func (f *FrameContext) addCorrection(e engine.Entity, delta mgl32.Vec3) {
	if i, ok := f.correctionIndex[e]; ok {
		f.Corrections[i].Delta = f.Corrections[i].Delta.Add(delta)
		return
	}
	f.correctionIndex[e] = len(f.Corrections)
	f.Corrections = append(f.Corrections, Correction{Entity: e, Delta: delta})
}
