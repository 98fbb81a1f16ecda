package listener

import (
	"github.com/lixenwraith/mob-launch/host"
)

// EventType represents a host event the listener reacts to
type EventType int

const (
	// EventInteract is an actor right-clicking an object with the main hand
	// Fields: Actor, Object, MainHand, OffHand, Sneaking, Creative
	EventInteract EventType = iota

	// EventDamage is an actor hitting an object
	// Fields: Actor (damager), Object
	EventDamage

	// EventToggleSneak is the actor's sneak state changing
	// Fields: Actor, Sneaking (new state), MainHand, OffHand
	EventToggleSneak

	// EventQuit is the actor leaving; the directory may no longer resolve it
	// Fields: Actor
	EventQuit

	// EventDeath is the actor dying
	// Fields: Actor
	EventDeath

	// EventTeleport is the actor moving between locations
	// Fields: Actor, FromWorld, ToWorld
	EventTeleport

	// EventFallDamage is an object taking fall damage
	// Fields: Object
	EventFallDamage
)

func (t EventType) String() string {
	switch t {
	case EventInteract:
		return "interact"
	case EventDamage:
		return "damage"
	case EventToggleSneak:
		return "toggle-sneak"
	case EventQuit:
		return "quit"
	case EventDeath:
		return "death"
	case EventTeleport:
		return "teleport"
	case EventFallDamage:
		return "fall-damage"
	default:
		return "unknown"
	}
}

type ItemKind uint8

const (
	ItemEmpty ItemKind = iota
	ItemNameTag
	ItemOther
)

// Item is the relevant view of a held item stack
type Item struct {
	Kind ItemKind
	// DisplayName is the custom name, "" when unnamed
	DisplayName string
}

// Empty reports whether the hand holds nothing
func (i Item) Empty() bool { return i.Kind == ItemEmpty }

// Event is one host event
type Event struct {
	Type   EventType
	Actor  host.Actor
	Object host.Object

	MainHand Item
	OffHand  Item
	Sneaking bool
	Creative bool

	FromWorld string
	ToWorld   string
}

// HandsEmpty reports whether both hands are empty
func (e *Event) HandsEmpty() bool {
	return e.MainHand.Empty() && e.OffHand.Empty()
}

// Verdict tells the host what to do with the event
type Verdict struct {
	Cancel bool
	// ConsumeItem asks the host to take one item from the main hand
	ConsumeItem bool
}
