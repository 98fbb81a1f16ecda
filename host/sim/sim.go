// Package sim is an in-memory host used by the sandbox and by tests
package sim

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/lixenwraith/mob-launch/host"
	"github.com/lixenwraith/mob-launch/vmath"
)

var (
	ErrInvalidObject = errors.New("sim: object is not valid")
	ErrAlreadyRiding = errors.New("sim: object already rides another entity")
	ErrActorOffline  = errors.New("sim: actor is offline")
)

// World holds every simulated actor and object
type World struct {
	mu      sync.RWMutex
	actors  map[uuid.UUID]*Actor
	objects map[uuid.UUID]*Object

	asyncPlacement bool
	pending        []func()
}

func NewWorld() *World {
	return &World{
		actors:  make(map[uuid.UUID]*Actor),
		objects: make(map[uuid.UUID]*Object),
	}
}

// SpawnActor adds an online actor in the given world
func (w *World) SpawnActor(name, world string) *Actor {
	a := &Actor{
		id:     uuid.New(),
		name:   name,
		world:  world,
		online: true,
		alive:  true,
		perms:  make(map[string]bool),
	}
	w.mu.Lock()
	w.actors[a.id] = a
	w.mu.Unlock()
	return a
}

// SpawnObject adds a valid object in the given world
func (w *World) SpawnObject(kind, name, world string) *Object {
	o := &Object{
		id:    uuid.New(),
		kind:  strings.ToLower(kind),
		name:  name,
		world: world,
		valid: true,
	}
	w.mu.Lock()
	w.objects[o.id] = o
	w.mu.Unlock()
	return o
}

// Actor returns an online actor; offline actors resolve to nothing
func (w *World) Actor(id uuid.UUID) (host.Actor, bool) {
	w.mu.RLock()
	a, ok := w.actors[id]
	w.mu.RUnlock()
	if !ok || !a.Online() {
		return nil, false
	}
	return a, true
}

func (w *World) OnlineActors() []host.Actor {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]host.Actor, 0, len(w.actors))
	for _, a := range w.actors {
		if a.Online() {
			out = append(out, a)
		}
	}
	slices.SortFunc(out, func(x, y host.Actor) int { return strings.Compare(x.Name(), y.Name()) })
	return out
}

// Object looks up an object regardless of validity
func (w *World) Object(id uuid.UUID) (*Object, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	o, ok := w.objects[id]
	return o, ok
}

// Objects returns all valid objects sorted by name
func (w *World) Objects() []*Object {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]*Object, 0, len(w.objects))
	for _, o := range w.objects {
		if o.Valid() {
			out = append(out, o)
		}
	}
	slices.SortFunc(out, func(x, y *Object) int { return strings.Compare(x.name, y.name) })
	return out
}

// RegionOf maps an entity to its world name, the sandbox's unit of independent scheduling
func (w *World) RegionOf(id uuid.UUID) (string, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if a, ok := w.actors[id]; ok {
		return a.World(), true
	}
	if o, ok := w.objects[id]; ok && o.Valid() {
		return o.World(), true
	}
	return "", false
}

// SetAsyncPlacement queues PlaceAbove completions until FlushPlacements
func (w *World) SetAsyncPlacement(async bool) {
	w.mu.Lock()
	w.asyncPlacement = async
	w.mu.Unlock()
}

func (w *World) PlaceAbove(actor host.Actor, obj host.Object, done func(error)) {
	complete := func() {
		if !obj.Valid() {
			done(ErrInvalidObject)
			return
		}
		if o, ok := obj.(*Object); ok {
			o.mu.Lock()
			o.world = actor.World()
			o.mu.Unlock()
		}
		done(nil)
	}

	w.mu.Lock()
	if w.asyncPlacement {
		w.pending = append(w.pending, complete)
		w.mu.Unlock()
		return
	}
	w.mu.Unlock()
	complete()
}

// FlushPlacements completes queued placements in order and returns their count
func (w *World) FlushPlacements() int {
	w.mu.Lock()
	pending := w.pending
	w.pending = nil
	w.mu.Unlock()

	for _, fn := range pending {
		fn()
	}
	return len(pending)
}

// Actor is a simulated player
type Actor struct {
	mu         sync.RWMutex
	id         uuid.UUID
	name       string
	world      string
	online     bool
	alive      bool
	yaw, pitch float64
	perms      map[string]bool
	passengers []*Object
	messages   []string
	actionBar  string
}

func (a *Actor) ID() uuid.UUID { return a.id }
func (a *Actor) Name() string  { return a.name }

func (a *Actor) Valid() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.alive && a.online
}

func (a *Actor) Online() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.online
}

func (a *Actor) World() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.world
}

func (a *Actor) Facing() vmath.Vec3F {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return vmath.V3FFromYawPitch(a.yaw, a.pitch)
}

// Look sets the look angle in degrees
func (a *Actor) Look(yaw, pitch float64) {
	a.mu.Lock()
	a.yaw, a.pitch = yaw, pitch
	a.mu.Unlock()
}

// Angles returns the current yaw and pitch
func (a *Actor) Angles() (yaw, pitch float64) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.yaw, a.pitch
}

// HasPermission honours exact nodes and the "*" wildcard
func (a *Actor) HasPermission(node string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.perms["*"] || a.perms[node]
}

func (a *Actor) Grant(nodes ...string) {
	a.mu.Lock()
	for _, n := range nodes {
		a.perms[n] = true
	}
	a.mu.Unlock()
}

func (a *Actor) Revoke(nodes ...string) {
	a.mu.Lock()
	for _, n := range nodes {
		delete(a.perms, n)
	}
	a.mu.Unlock()
}

func (a *Actor) HasPassenger(obj host.Object) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return slices.ContainsFunc(a.passengers, func(o *Object) bool { return o.id == obj.ID() })
}

func (a *Actor) AddPassenger(obj host.Object) error {
	o, ok := obj.(*Object)
	if !ok {
		return fmt.Errorf("sim: foreign object type %T", obj)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.online {
		return ErrActorOffline
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.valid {
		return ErrInvalidObject
	}
	if o.vehicle != nil {
		return ErrAlreadyRiding
	}
	o.vehicle = a
	a.passengers = append(a.passengers, o)
	return nil
}

func (a *Actor) RemovePassenger(obj host.Object) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.passengers = slices.DeleteFunc(a.passengers, func(o *Object) bool {
		if o.id != obj.ID() {
			return false
		}
		o.mu.Lock()
		o.vehicle = nil
		o.mu.Unlock()
		return true
	})
}

// Passengers returns a copy of the carried objects
func (a *Actor) Passengers() []*Object {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return slices.Clone(a.passengers)
}

func (a *Actor) SendMessage(text string) {
	a.mu.Lock()
	a.messages = append(a.messages, text)
	a.mu.Unlock()
}

func (a *Actor) SendActionBar(text string) {
	a.mu.Lock()
	a.actionBar = text
	a.mu.Unlock()
}

func (a *Actor) Messages() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return slices.Clone(a.messages)
}

// LastMessage returns the newest chat line or ""
func (a *Actor) LastMessage() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if len(a.messages) == 0 {
		return ""
	}
	return a.messages[len(a.messages)-1]
}

func (a *Actor) ActionBar() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.actionBar
}

// Disconnect marks the actor offline, passengers stay mounted until released
func (a *Actor) Disconnect() {
	a.mu.Lock()
	a.online = false
	a.mu.Unlock()
}

func (a *Actor) Reconnect() {
	a.mu.Lock()
	a.online = true
	a.mu.Unlock()
}

func (a *Actor) Kill() {
	a.mu.Lock()
	a.alive = false
	a.mu.Unlock()
}

func (a *Actor) Respawn() {
	a.mu.Lock()
	a.alive = true
	a.mu.Unlock()
}

// Teleport moves the actor to another world and returns the previous one
func (a *Actor) Teleport(world string) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	from := a.world
	a.world = world
	return from
}

// Eject detaches an object without going through the engine, leaving stale bookkeeping behind
func (a *Actor) Eject(obj host.Object) {
	a.RemovePassenger(obj)
}

// Object is a simulated mob
type Object struct {
	mu       sync.RWMutex
	id       uuid.UUID
	kind     string
	name     string
	world    string
	valid    bool
	velocity vmath.Vec3F
	vehicle  *Actor
}

func (o *Object) ID() uuid.UUID { return o.id }
func (o *Object) Name() string  { return o.name }
func (o *Object) Kind() string  { return o.kind }

func (o *Object) Valid() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.valid
}

func (o *Object) World() string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.world
}

func (o *Object) SetVelocity(v vmath.Vec3F) {
	o.mu.Lock()
	o.velocity = v
	o.mu.Unlock()
}

func (o *Object) Velocity() vmath.Vec3F {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.velocity
}

// Riding reports whether the object is mounted on some actor
func (o *Object) Riding() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.vehicle != nil
}

// Remove destroys the object and dismounts it
func (o *Object) Remove() {
	o.mu.Lock()
	o.valid = false
	v := o.vehicle
	o.mu.Unlock()

	if v != nil {
		v.RemovePassenger(o)
	}
}
