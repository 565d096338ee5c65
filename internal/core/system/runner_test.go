package system

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSystem struct {
	name  string
	phase Phase
	fn    func(*Context) error
}

func (f *fakeSystem) Name() string            { return f.name }
func (f *fakeSystem) Phase() Phase            { return f.phase }
func (f *fakeSystem) Run(ctx *Context) error  { return f.fn(ctx) }

func TestRunnerPhaseOrder(t *testing.T) {
	r := NewRunner(zap.NewNop())
	var order []string
	mk := func(name string, phase Phase) *fakeSystem {
		return &fakeSystem{name: name, phase: phase, fn: func(*Context) error {
			order = append(order, name)
			return nil
		}}
	}
	// Registered out of phase order on purpose.
	r.Register(mk("broadcast", PhaseBroadcast))
	r.Register(mk("input", PhaseInput))
	r.Register(mk("combat", PhaseCombat))
	r.Register(mk("ai", PhaseAI))
	r.Register(mk("respawn", PhaseRespawn))

	r.Run(&Context{Tick: 1, MapID: "overworld"})
	require.Equal(t, []string{"input", "respawn", "ai", "combat", "broadcast"}, order)
}

func TestRunnerSurvivesFailuresAndPanics(t *testing.T) {
	r := NewRunner(zap.NewNop())
	ran := false
	r.Register(&fakeSystem{name: "bad", phase: PhaseInput, fn: func(*Context) error {
		return errors.New("boom")
	}})
	r.Register(&fakeSystem{name: "panics", phase: PhaseAI, fn: func(*Context) error {
		panic("boom")
	}})
	r.Register(&fakeSystem{name: "after", phase: PhaseBroadcast, fn: func(*Context) error {
		ran = true
		return nil
	}})

	require.NotPanics(t, func() { r.Run(&Context{Tick: 1}) })
	require.True(t, ran)
}
