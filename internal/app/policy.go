package app

import (
	"github.com/dkeye/voxify/internal/core"
	"github.com/dkeye/voxify/internal/domain"
)

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	DropFrame
	KickMember
)

// Policy decides what happens to a member whose outbound buffer rejected an event.
type Policy interface {
	OnBackPressure(room domain.RoomKey, member core.MemberSession) BackpressureAction
}

// SimplePolicy drops the event for fire-and-forget delivery, or kicks the
// slow member when Kick is set.
type SimplePolicy struct {
	Kick bool
}

func (p SimplePolicy) OnBackPressure(_ domain.RoomKey, _ core.MemberSession) BackpressureAction {
	if p.Kick {
		return KickMember
	}
	return DropFrame
}

// PolicyFromConfig maps the slow_consumer setting ("drop" or "kick").
func PolicyFromConfig(mode string) Policy {
	return SimplePolicy{Kick: mode == "kick"}
}
