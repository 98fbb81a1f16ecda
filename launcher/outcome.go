package launcher

import (
	"github.com/lixenwraith/mob-launch/host"
	"github.com/lixenwraith/mob-launch/vmath"
)

type OutcomeKind uint8

const (
	// OutcomeNone means there was nothing to release
	OutcomeNone OutcomeKind = iota
	// OutcomeCleared means stale bookkeeping was removed for an object that no longer exists
	OutcomeCleared
	OutcomeDrop
	OutcomeLaunch
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeNone:
		return "none"
	case OutcomeCleared:
		return "cleared"
	case OutcomeDrop:
		return "drop"
	case OutcomeLaunch:
		return "launch"
	default:
		return "unknown"
	}
}

// Outcome reports how a release ended
type Outcome struct {
	Kind    OutcomeKind
	Percent int
	// Velocity is the applied launch vector, zero for drops
	Velocity vmath.Vec3F
	Object   host.Object
	// Vetoed marks a launch turned into a drop by a hook
	Vetoed bool
}
