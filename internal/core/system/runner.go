package system

import (
	"sort"

	"go.uber.org/zap"
)

// Runner holds the registered systems in phase order and drives them
// once per tick per map.
type Runner struct {
	systems []System
	log     *zap.Logger
}

func NewRunner(log *zap.Logger) *Runner {
	return &Runner{log: log}
}

// Register adds a system. Registration order breaks phase ties.
func (r *Runner) Register(s System) {
	r.systems = append(r.systems, s)
	sort.SliceStable(r.systems, func(i, j int) bool {
		return r.systems[i].Phase() < r.systems[j].Phase()
	})
}

// Run executes every system for the tick. A failing system is logged
// and skipped; one bad system must not stall the loop.
func (r *Runner) Run(ctx *Context) {
	for _, s := range r.systems {
		if err := r.runOne(s, ctx); err != nil {
			r.log.Error("system tick failed",
				zap.String("system", s.Name()),
				zap.String("phase", s.Phase().String()),
				zap.String("map", ctx.MapID),
				zap.Int64("tick", ctx.Tick),
				zap.Error(err))
		}
	}
}

func (r *Runner) runOne(s System, ctx *Context) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("system panicked",
				zap.String("system", s.Name()),
				zap.Any("panic", rec),
				zap.Stack("stack"))
		}
	}()
	return s.Run(ctx)
}

// Len returns the number of registered systems.
func (r *Runner) Len() int { return len(r.systems) }
