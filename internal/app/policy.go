package app

import (
	"fmt"

	"github.com/dkeye/roomcast/internal/core"
)

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	KickMember
	DropFrame
)

// Policy decides what happens to a member whose outbound queue is full.
type Policy interface {
	OnBackPressure(member core.Member) BackpressureAction
}

type SimplePolicy struct {
	Action BackpressureAction
}

func (p SimplePolicy) OnBackPressure(core.Member) BackpressureAction {
	return p.Action
}

// PolicyFor maps the slow_consumer setting to a Policy.
func PolicyFor(name string) (Policy, error) {
	switch name {
	case "", "drop":
		return SimplePolicy{Action: DropFrame}, nil
	case "kick":
		return SimplePolicy{Action: KickMember}, nil
	}
	return nil, fmt.Errorf("unknown slow consumer policy %q", name)
}
