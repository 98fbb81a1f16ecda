// Package host declares the collaborators the capture engine needs from the
// surrounding game server: entity handles, a directory of online actors and
// the optional asynchronous repositioning step performed before attachment.
package host

import (
	"github.com/google/uuid"

	"github.com/lixenwraith/mob-launch/vmath"
)

// Entity is any live handle owned by the host
type Entity interface {
	ID() uuid.UUID
	Name() string
	// Valid reports whether the handle still refers to a live entity
	Valid() bool
}

// Object is an entity that can be captured and launched
type Object interface {
	Entity
	// Kind is the lower-case entity type name, e.g. "pig"
	Kind() string
	SetVelocity(v vmath.Vec3F)
}

// Actor is an entity that captures objects
type Actor interface {
	Entity
	Online() bool
	World() string
	// Facing returns the unit look vector
	Facing() vmath.Vec3F
	HasPermission(node string) bool

	HasPassenger(obj Object) bool
	AddPassenger(obj Object) error
	RemovePassenger(obj Object)

	SendMessage(text string)
	SendActionBar(text string)
}

// Directory resolves actors by identifier
type Directory interface {
	Actor(id uuid.UUID) (Actor, bool)
	OnlineActors() []Actor
}

// Positioner moves an object into carry position before it is attached
// Hosts with region threading complete the move later; done must be called exactly once
type Positioner interface {
	PlaceAbove(actor Actor, obj Object, done func(error))
}

// PositionerFunc adapts a function to Positioner
type PositionerFunc func(actor Actor, obj Object, done func(error))

func (f PositionerFunc) PlaceAbove(actor Actor, obj Object, done func(error)) {
	f(actor, obj, done)
}

// Live reports whether an actor can currently hold anything
func Live(actor Actor) bool {
	return actor != nil && actor.Valid() && actor.Online()
}
