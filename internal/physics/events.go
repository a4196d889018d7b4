package physics

import (
	"fmt"

	"collide3d/internal/engine"

	"github.com/go-gl/mathgl/mgl32"
)

// ContactEventKind says where a pair is in its contact lifetime.
type ContactEventKind uint8

const (
	// ContactHit fires on the first tick two entities touch.
	ContactHit ContactEventKind = iota
	// ContactStay fires on every following tick they still touch.
	ContactStay
	// ContactExit fires on the first tick they no longer touch.
	ContactExit
)

func (k ContactEventKind) String() string {
	switch k {
	case ContactHit:
		return "hit"
	case ContactStay:
		return "stay"
	case ContactExit:
		return "exit"
	default:
		return fmt.Sprintf("ContactEventKind(%d)", uint8(k))
	}
}

// ContactEvent is delivered once per entity of a pair, with Entity being the
// receiver. Normal points from Entity toward Other. Contacts aliases frame
// storage and is only valid during dispatch; it is empty for exits.
type ContactEvent struct {
	Kind     ContactEventKind
	Entity   engine.Entity
	Other    engine.Entity
	Normal   mgl32.Vec3
	Contacts []Contact
}

// contactTracker remembers which pairs touched on the previous tick. Pairs
// are kept in first-seen order so events come out deterministically.
type contactTracker struct {
	prev    []Pair
	prevSet map[Pair]struct{}
	cur     []Pair
	curSet  map[Pair]struct{}
}

func newContactTracker() contactTracker {
	return contactTracker{
		prevSet: make(map[Pair]struct{}),
		curSet:  make(map[Pair]struct{}),
	}
}

// collect appends hit/stay events for the frame's manifolds and exit events
// for pairs that stopped touching, then swaps the pair sets.
func (t *contactTracker) collect(frame *FrameContext, alive func(engine.Entity) bool) {
	t.cur = t.cur[:0]
	clear(t.curSet)

	for _, m := range frame.Manifolds {
		t.cur = append(t.cur, m.Pair)
		t.curSet[m.Pair] = struct{}{}

		kind := ContactStay
		if _, ok := t.prevSet[m.Pair]; !ok {
			kind = ContactHit
		}
		contacts := frame.ManifoldContacts(m)
		frame.Events = append(frame.Events,
			ContactEvent{Kind: kind, Entity: m.Pair.A, Other: m.Pair.B, Normal: m.Normal, Contacts: contacts},
			ContactEvent{Kind: kind, Entity: m.Pair.B, Other: m.Pair.A, Normal: m.Normal.Mul(-1), Contacts: contacts},
		)
	}

	for _, p := range t.prev {
		if _, ok := t.curSet[p]; ok {
			continue
		}
		if alive(p.A) {
			frame.Events = append(frame.Events, ContactEvent{Kind: ContactExit, Entity: p.A, Other: p.B})
		}
		if alive(p.B) {
			frame.Events = append(frame.Events, ContactEvent{Kind: ContactExit, Entity: p.B, Other: p.A})
		}
	}

	t.prev, t.cur = t.cur, t.prev
	t.prevSet, t.curSet = t.curSet, t.prevSet
}

// active reports whether p touched on the last collected tick.
func (t *contactTracker) active(p Pair) bool {
	_, ok := t.prevSet[p]
	return ok
}
