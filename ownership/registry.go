// Package ownership keeps the actor<->object capture links consistent.
//
// The Registry is the only owner of both directions of the mapping, of the
// mounted marker on captured objects and of the charge session attached to
// each link. Every removal path, including the lazy self-heal triggered by a
// staleness check, goes through evictLocked so the three records always
// disappear together under one lock.
package ownership

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lixenwraith/mob-launch/host"
	"github.com/lixenwraith/mob-launch/status"
	"github.com/lixenwraith/mob-launch/tag"
)

var (
	ErrAlreadyCapturing = errors.New("actor already captures an object")
	ErrAlreadyCaptured  = errors.New("object already captured")
)

// Stopper is the part of a charge session the registry needs
type Stopper interface {
	Stop()
}

// Link is a read-only copy of one capture
type Link struct {
	Actor uuid.UUID
	// Holder is the actor handle captured at acquisition, usable after the actor goes offline
	Holder host.Actor
	Object host.Object
}

type link struct {
	actor   uuid.UUID
	holder  host.Actor
	object  host.Object
	session Stopper
}

func (l *link) snapshot() Link {
	return Link{Actor: l.actor, Holder: l.holder, Object: l.object}
}

type Registry struct {
	mu       sync.Mutex
	byActor  map[uuid.UUID]*link
	byObject map[uuid.UUID]uuid.UUID

	dir  host.Directory
	tags *tag.Tags
	log  zerolog.Logger

	heals *atomic.Int64
}

func New(dir host.Directory, tags *tag.Tags, logger zerolog.Logger, stats *status.Registry) *Registry {
	return &Registry{
		byActor:  make(map[uuid.UUID]*link),
		byObject: make(map[uuid.UUID]uuid.UUID),
		dir:      dir,
		tags:     tags,
		log:      logger.With().Str("component", "ownership").Logger(),
		heals:    stats.Counter("ownership.self_heals"),
	}
}

// TryAcquire records the link actor->obj and marks obj mounted
// attach runs under the registry lock before anything is recorded; its error aborts the acquisition
func (r *Registry) TryAcquire(actor host.Actor, obj host.Object, attach func() error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if l, ok := r.byActor[actor.ID()]; ok {
		if r.actorLinkLiveLocked(actor, l) {
			return ErrAlreadyCapturing
		}
		r.evictLocked(l, "stale actor link")
	}
	if r.objectCapturedLocked(obj) {
		return ErrAlreadyCaptured
	}

	if attach != nil {
		if err := attach(); err != nil {
			return fmt.Errorf("attach %s to %s: %w", obj.ID(), actor.ID(), err)
		}
	}

	r.byActor[actor.ID()] = &link{actor: actor.ID(), holder: actor, object: obj}
	r.byObject[obj.ID()] = actor.ID()
	r.tags.MarkMounted(obj.ID())
	return nil
}

// Release removes the actor's link, clears the mounted marker and stops its session
func (r *Registry) Release(actorID uuid.UUID) (host.Object, bool) {
	l, ok := r.ReleaseLink(actorID)
	return l.Object, ok
}

// ReleaseLink is Release returning the whole link
func (r *Registry) ReleaseLink(actorID uuid.UUID) (Link, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.byActor[actorID]
	if !ok {
		return Link{}, false
	}
	r.removeLocked(l)
	return l.snapshot(), true
}

// IsActorCapturing verifies the held object is valid and still attached, healing otherwise
func (r *Registry) IsActorCapturing(actor host.Actor) bool {
	if actor == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.byActor[actor.ID()]
	if !ok {
		return false
	}
	if r.actorLinkLiveLocked(actor, l) {
		return true
	}
	r.evictLocked(l, "actor no longer carries object")
	return false
}

// IsObjectCaptured verifies some live actor still carries obj, healing marker and link otherwise
func (r *Registry) IsObjectCaptured(obj host.Object) bool {
	if obj == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.objectCapturedLocked(obj)
}

// Held returns the linked object without verification
func (r *Registry) Held(actorID uuid.UUID) (host.Object, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.byActor[actorID]
	if !ok {
		return nil, false
	}
	return l.object, true
}

// Owner returns the actor linked to an object without verification
func (r *Registry) Owner(objID uuid.UUID) (uuid.UUID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byObject[objID]
	return id, ok
}

// AttachSession binds s to the actor's link, stopping any session it replaces
// Without a link s is stopped and false returned
func (r *Registry) AttachSession(actorID uuid.UUID, s Stopper) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.byActor[actorID]
	if !ok {
		s.Stop()
		return false
	}
	if l.session != nil && l.session != s {
		l.session.Stop()
	}
	l.session = s
	return true
}

// TakeSession detaches and returns the actor's session, nil if none
func (r *Registry) TakeSession(actorID uuid.UUID) Stopper {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.byActor[actorID]
	if !ok || l.session == nil {
		return nil
	}
	s := l.session
	l.session = nil
	return s
}

// Session returns the actor's session without detaching it
func (r *Registry) Session(actorID uuid.UUID) Stopper {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.byActor[actorID]; ok {
		return l.session
	}
	return nil
}

// Drain removes every link, used at shutdown
func (r *Registry) Drain() []Link {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Link, 0, len(r.byActor))
	for _, l := range r.byActor {
		out = append(out, l.snapshot())
		r.removeLocked(l)
	}
	return out
}

// Links returns a copy of the actor->object mapping
func (r *Registry) Links() map[uuid.UUID]uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[uuid.UUID]uuid.UUID, len(r.byActor))
	for a, l := range r.byActor {
		out[a] = l.object.ID()
	}
	return out
}

// Len returns the number of links
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byActor)
}

func (r *Registry) actorLinkLiveLocked(actor host.Actor, l *link) bool {
	return l.object.Valid() && actor.Valid() && actor.HasPassenger(l.object)
}

func (r *Registry) objectCapturedLocked(obj host.Object) bool {
	if ownerID, ok := r.byObject[obj.ID()]; ok {
		l, linked := r.byActor[ownerID]
		if !linked {
			delete(r.byObject, obj.ID())
			return r.objectCapturedLocked(obj)
		}
		owner, online := r.dir.Actor(ownerID)
		if online && obj.Valid() && owner.Valid() && owner.HasPassenger(obj) {
			if !r.tags.IsMounted(obj.ID()) {
				r.tags.MarkMounted(obj.ID())
			}
			return true
		}
		r.evictLocked(l, "owner no longer carries object")
		return false
	}

	if !r.tags.IsMounted(obj.ID()) {
		return false
	}
	// Marked but unknown here: honour any actor visibly carrying it
	if obj.Valid() {
		for _, a := range r.dir.OnlineActors() {
			if a.HasPassenger(obj) {
				return true
			}
		}
	}
	r.tags.UnmarkMounted(obj.ID())
	r.heals.Add(1)
	r.log.Debug().Str("object", obj.ID().String()).Msg("cleared orphaned mounted marker")
	return false
}

func (r *Registry) evictLocked(l *link, reason string) {
	r.removeLocked(l)
	r.heals.Add(1)
	r.log.Debug().
		Str("actor", l.actor.String()).
		Str("object", l.object.ID().String()).
		Str("reason", reason).
		Msg("self-healed stale capture")
}

func (r *Registry) removeLocked(l *link) {
	delete(r.byActor, l.actor)
	if r.byObject[l.object.ID()] == l.actor {
		delete(r.byObject, l.object.ID())
	}
	r.tags.UnmarkMounted(l.object.ID())
	if l.session != nil {
		l.session.Stop()
		l.session = nil
	}
}
