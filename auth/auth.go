// Package auth decides whether an actor may capture a given kind of object
// and whether it may claim or use an object bound to another actor.
package auth

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/lixenwraith/mob-launch/host"
	"github.com/lixenwraith/mob-launch/tag"
)

const (
	NodeUse     = "moblaunch.use"
	NodeUseAll  = "moblaunch.use.*"
	NodeUseKind = "moblaunch.use."
	NodeAdmin   = "moblaunch.admin"
)

// Reason explains a capture decision
type Reason uint8

const (
	Allowed Reason = iota
	DeniedPermission
	DeniedKind
	DeniedOwner
)

func (r Reason) String() string {
	switch r {
	case Allowed:
		return "allowed"
	case DeniedPermission:
		return "no-permission"
	case DeniedKind:
		return "kind-not-allowed"
	case DeniedOwner:
		return "owned-by-other"
	default:
		return fmt.Sprintf("reason(%d)", uint8(r))
	}
}

// Authorizer is consulted once per capture attempt
type Authorizer interface {
	CanCapture(actor host.Actor, kind string) bool
}

// Explainer is an Authorizer that can say why it refused
type Explainer interface {
	Authorizer
	Check(actor host.Actor, kind string) Reason
}

// AuthorizerFunc adapts a function to Authorizer
type AuthorizerFunc func(actor host.Actor, kind string) bool

func (f AuthorizerFunc) CanCapture(actor host.Actor, kind string) bool { return f(actor, kind) }

// AllowAll permits every capture
var AllowAll = AuthorizerFunc(func(host.Actor, string) bool { return true })

// PermissionAuthorizer checks permission nodes and the allowed-kind list
type PermissionAuthorizer struct {
	// KindAllowed reports whether a lower-case kind is on the allow list; nil allows all
	KindAllowed func(kind string) bool
}

func (p *PermissionAuthorizer) CanCapture(actor host.Actor, kind string) bool {
	return p.Check(actor, kind) == Allowed
}

func (p *PermissionAuthorizer) Check(actor host.Actor, kind string) Reason {
	kind = strings.ToLower(kind)

	if !actor.HasPermission(NodeUse) {
		return DeniedPermission
	}
	if !actor.HasPermission(NodeUseAll) && !actor.HasPermission(NodeUseKind+kind) {
		return DeniedPermission
	}
	if !actor.HasPermission(NodeAdmin) && p.KindAllowed != nil && !p.KindAllowed(kind) {
		return DeniedKind
	}
	return Allowed
}

// Decide runs a in a panic-safe way and returns the refusal reason
// Plain Authorizers report DeniedPermission on refusal; a panic counts as refusal
func Decide(a Authorizer, actor host.Actor, kind string, logger zerolog.Logger) (r Reason) {
	if a == nil {
		return Allowed
	}
	defer func() {
		if p := recover(); p != nil {
			logger.Warn().Str("actor", actor.ID().String()).Str("panic", fmt.Sprint(p)).Msg("authorizer failed")
			r = DeniedPermission
		}
	}()

	if e, ok := a.(Explainer); ok {
		return e.Check(actor, kind)
	}
	if a.CanCapture(actor, kind) {
		return Allowed
	}
	return DeniedPermission
}

// OwnerAllows reports whether actor may capture or rebind obj given its ownership tag
// Unowned and self-owned objects pass; admins pass regardless
func OwnerAllows(tags *tag.Tags, actor host.Actor, obj host.Object) bool {
	if tags == nil {
		return true
	}
	owner, ok := tags.Owner(obj.ID())
	if !ok || owner == actor.ID() {
		return true
	}
	return actor.HasPermission(NodeAdmin)
}
