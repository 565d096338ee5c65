package game

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gridrealm/server/internal/core/system"
	"github.com/gridrealm/server/internal/metrics"
	"github.com/gridrealm/server/internal/proto"
	"github.com/gridrealm/server/internal/world"
)

// slowTickThreshold flags hot ticks that ate too much of their budget.
const slowTickThreshold = 50 * time.Millisecond

// Scheduler drives the two-rate loop: the 20 Hz hot path (input,
// respawn, per-map simulation, broadcast) and the 5 Hz warm path
// (personal state streams, persistence flushes, record sweeps). Maps
// simulate in parallel; everything global runs on the loop goroutine.
type Scheduler struct {
	sim    *Sim
	runner *system.Runner // per-map systems
	pre    *system.Runner // global, before the map fan-out

	// Input drains queued client frames into the handlers. Runs first
	// every hot tick, on the loop goroutine.
	Input func(tick int64)
	// FlushOutputs pushes each session's buffered frames to its socket.
	FlushOutputs func()
	// PersistFlush writes dirty records to the warm tier.
	PersistFlush func(ctx context.Context) error

	tick       int64
	warmEvery  int64
	flushEvery int64 // in warm ticks
	log        *zap.Logger
}

func NewScheduler(sim *Sim, log *zap.Logger) *Scheduler {
	s := &Scheduler{
		sim:        sim,
		runner:     system.NewRunner(log),
		pre:        system.NewRunner(log),
		warmEvery:  int64(sim.Cfg.Tick.WarmEvery()),
		flushEvery: int64(sim.Cfg.Database.FlushInterval / (time.Second / 5)),
		log:        log,
	}
	if s.flushEvery <= 0 {
		s.flushEvery = 300
	}
	s.pre.Register(NewRespawnSystem(sim))
	s.runner.Register(NewAISystem(sim))
	s.runner.Register(NewPlayerCombatSystem(sim))
	s.runner.Register(NewBroadcastSystem(sim))
	return s
}

// Tick returns the current hot tick number.
func (s *Scheduler) Tick() int64 { return s.tick }

// Run blocks driving the loop until ctx is canceled.
func (s *Scheduler) Run(ctx context.Context) {
	interval := s.sim.Cfg.Tick.HotInterval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	s.log.Info("tick loop started",
		zap.Duration("interval", interval),
		zap.Int64("warm_every", s.warmEvery))
	for {
		select {
		case <-ctx.Done():
			s.log.Info("tick loop stopped", zap.Int64("tick", s.tick))
			return
		case <-ticker.C:
			s.Step(ctx)
		}
	}
}

// Step executes exactly one hot tick. Exposed for tests.
func (s *Scheduler) Step(ctx context.Context) {
	start := time.Now()
	s.tick++
	tick := s.tick

	if s.Input != nil {
		s.Input(tick)
	}
	s.pre.Run(&system.Context{Tick: tick})

	// Each map simulates independently; the stores lock internally.
	var g errgroup.Group
	for _, mapID := range s.sim.Maps.IDs() {
		mapID := mapID
		g.Go(func() error {
			s.runner.Run(&system.Context{Tick: tick, MapID: mapID})
			return nil
		})
	}
	g.Wait()

	s.sim.Store.ExpireGroundItems(tick)

	if tick%s.warmEvery == 0 {
		s.warmTick(ctx, tick)
	}

	if s.FlushOutputs != nil {
		s.FlushOutputs()
	}

	elapsed := time.Since(start)
	metrics.TickDuration.Observe(elapsed.Seconds())
	if elapsed > slowTickThreshold {
		metrics.SlowTicks.Inc()
		s.log.Warn("slow tick",
			zap.Int64("tick", tick),
			zap.Duration("elapsed", elapsed))
	}
}

// warmTick runs the 5 Hz path: personal state streams and, on its own
// slower cadence, persistence flushes and hot-record sweeps.
func (s *Scheduler) warmTick(ctx context.Context, tick int64) {
	s.sendStateUpdates()
	metrics.PlayersOnline.Set(float64(s.sim.Store.OnlineCount()))
	metrics.EntitiesLive.Set(float64(s.sim.Store.EntityCount()))

	warmTick := tick / s.warmEvery
	if warmTick%s.flushEvery != 0 {
		return
	}
	if s.PersistFlush != nil {
		flushCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		if err := s.PersistFlush(flushCtx); err != nil {
			s.log.Error("persistence flush failed", zap.Error(err))
		} else {
			metrics.PersistFlushes.Inc()
		}
		cancel()
	}
	if reaped := s.sim.Store.Sweep(); len(reaped) > 0 {
		s.log.Info("swept expired hot records", zap.Int("count", len(reaped)))
	}
}

// sendStateUpdates flushes each dirty player's personal stream.
func (s *Scheduler) sendStateUpdates() {
	s.sim.State.ForEach(func(p *world.PlayerInfo) {
		if !p.StateDirty {
			return
		}
		p.StateDirty = false
		rec, ok := s.sim.Store.GetPlayer(p.PlayerID)
		if !ok {
			return
		}
		stats := s.statsView(p)
		p.Send(proto.EventStateUpdate, &proto.StateUpdatePayload{
			HP: rec.HP, MaxHP: rec.MaxHP,
			Inventory: p.Inventory.Views(),
			Equipment: p.Equipment.Views(),
			Stats:     &stats,
		})
	})
}

func (s *Scheduler) statsView(p *world.PlayerInfo) proto.StatsView {
	return proto.StatsView{
		Bonuses: p.Equipment.StatTotals().ToMap(),
		Skills:  p.Skills.ToMap(),
	}
}

// StatsView builds the wire stats for a player. Shared with the query
// handler.
func (s *Scheduler) StatsView(p *world.PlayerInfo) proto.StatsView { return s.statsView(p) }
