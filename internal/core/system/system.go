// Package system orders the per-tick work. Systems register with a
// phase; the runner executes them phase by phase so input is always
// consumed before AI acts and broadcasts always see the settled state.
package system

// Phase fixes execution order inside one tick.
type Phase int

const (
	PhaseInput Phase = iota
	PhaseRespawn
	PhaseAI
	PhaseCombat
	PhaseBroadcast
	PhaseCleanup
)

func (p Phase) String() string {
	switch p {
	case PhaseInput:
		return "input"
	case PhaseRespawn:
		return "respawn"
	case PhaseAI:
		return "ai"
	case PhaseCombat:
		return "combat"
	case PhaseBroadcast:
		return "broadcast"
	case PhaseCleanup:
		return "cleanup"
	}
	return "unknown"
}

// Context is what every system sees for one tick of one map.
type Context struct {
	Tick  int64
	MapID string
}

// System is one unit of per-tick work.
type System interface {
	Name() string
	Phase() Phase
	Run(ctx *Context) error
}
