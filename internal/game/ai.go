package game

import (
	"github.com/gridrealm/server/internal/core/system"
	"github.com/gridrealm/server/internal/data"
	"github.com/gridrealm/server/internal/store"
	"github.com/gridrealm/server/internal/world"
)

// AISystem drives every entity's state machine once per hot tick:
// idle → wander → combat → returning, with death handled by the
// respawn queue.
type AISystem struct {
	sim *Sim
}

func NewAISystem(sim *Sim) *AISystem { return &AISystem{sim: sim} }

func (a *AISystem) Name() string        { return "entity-ai" }
func (a *AISystem) Phase() system.Phase { return system.PhaseAI }

func (a *AISystem) Run(ctx *system.Context) error {
	m := a.sim.Maps.Get(ctx.MapID)
	if m == nil {
		return nil
	}
	enabled := a.sim.Cfg.AI.Enabled
	for _, ent := range a.sim.Store.GetMapEntities(ctx.MapID) {
		// Death bookkeeping runs even with AI disabled: a killed corpse
		// must still despawn into the respawn queue.
		if ent.State == store.StateDying {
			a.finishDying(ctx.Tick, ent)
			continue
		}
		if !enabled {
			continue
		}
		a.tickEntity(ctx.Tick, m, ent)
	}
	return nil
}

// finishDying despawns a corpse whose death animation finished; the
// despawn enqueues the respawn.
func (a *AISystem) finishDying(tick int64, ent store.EntityRecord) {
	if tick < ent.DyingUntilTick {
		return
	}
	a.sim.Store.DespawnEntity(ent.InstanceID, tick)
}

func (a *AISystem) tickEntity(tick int64, m *data.MapInfo, ent store.EntityRecord) {
	tpl := a.sim.Ents.Get(ent.Template)
	if tpl == nil {
		return
	}
	switch ent.State {
	case store.StateIdle:
		a.tickIdle(tick, m, ent, tpl)
	case store.StateWander:
		a.tickWander(tick, m, ent, tpl)
	case store.StateCombat:
		a.tickCombat(tick, m, ent, tpl)
	case store.StateReturning:
		a.tickReturning(tick, m, ent)
	}
}

// tickIdle waits out the idle timer, scanning for prey the whole time.
func (a *AISystem) tickIdle(tick int64, m *data.MapInfo, ent store.EntityRecord, tpl *data.EntityTemplate) {
	if a.tryAggro(tick, m, ent, tpl) {
		return
	}
	if tick < ent.NextDecisionTick {
		return
	}
	goal, ok := a.pickWanderGoal(m, ent)
	if !ok {
		a.deferIdle(tick, ent.InstanceID)
		return
	}
	a.sim.Store.MutateEntity(ent.InstanceID, func(e *store.EntityRecord) {
		e.State = store.StateWander
		e.Path = [][2]int{{goal.X, goal.Y}}
		e.NextDecisionTick = tick + int64(a.sim.Cfg.AI.WanderInterval)
	})
}

// tickWander takes one step toward the wander goal every wander
// interval, dropping back to idle on arrival or a dead end.
func (a *AISystem) tickWander(tick int64, m *data.MapInfo, ent store.EntityRecord, tpl *data.EntityTemplate) {
	if a.tryAggro(tick, m, ent, tpl) {
		return
	}
	if tick < ent.NextDecisionTick {
		return
	}
	if len(ent.Path) == 0 {
		a.toIdle(tick, ent.InstanceID)
		return
	}
	goal := Point{ent.Path[0][0], ent.Path[0][1]}
	cur := Point{ent.X, ent.Y}
	if cur == goal {
		a.toIdle(tick, ent.InstanceID)
		return
	}
	step, ok := a.step(m, ent, cur, goal)
	if !ok {
		a.toIdle(tick, ent.InstanceID)
		return
	}
	a.sim.Store.MutateEntity(ent.InstanceID, func(e *store.EntityRecord) {
		e.X, e.Y = step.X, step.Y
		e.NextDecisionTick = tick + int64(a.sim.Cfg.AI.WanderInterval)
		if step == goal {
			e.State = store.StateIdle
			e.Path = nil
			e.NextDecisionTick = a.idleUntil(tick)
		}
	})
}

// tickCombat chases and swings at the target, disengaging when the
// target is gone, the leash breaks, or line of sight stays lost too
// long.
func (a *AISystem) tickCombat(tick int64, m *data.MapInfo, ent store.EntityRecord, tpl *data.EntityTemplate) {
	target, ok := a.sim.Store.GetPlayer(ent.TargetPlayerID)
	if !ok || !target.Online || target.MapID != ent.MapID || target.DyingUntilTick > 0 {
		a.disengage(ent.InstanceID)
		return
	}
	spawn := Point{ent.SpawnX, ent.SpawnY}
	pos := Point{ent.X, ent.Y}
	tpos := Point{target.X, target.Y}

	leash := ent.DisengageRadius
	if leash > 0 && euclideanSq(pos, spawn) > leash*leash {
		a.disengage(ent.InstanceID)
		return
	}

	// LOS bookkeeping: a target that stays hidden past the timeout is
	// dropped.
	if HasLineOfSight(m.TileMap, pos, tpos) {
		if ent.LOSLostSinceTick != 0 {
			a.sim.Store.MutateEntity(ent.InstanceID, func(e *store.EntityRecord) { e.LOSLostSinceTick = 0 })
		}
	} else {
		if ent.LOSLostSinceTick == 0 {
			a.sim.Store.MutateEntity(ent.InstanceID, func(e *store.EntityRecord) { e.LOSLostSinceTick = tick })
		} else if tick-ent.LOSLostSinceTick >= int64(a.sim.Cfg.AI.LOSTimeout) {
			a.disengage(ent.InstanceID)
			return
		}
	}

	if chebyshev(pos, tpos) <= 1 {
		a.trySwing(tick, ent, tpl, target)
		return
	}

	// Chase: repath toward the target every chase interval.
	if tick < ent.NextDecisionTick {
		return
	}
	step, ok := a.step(m, ent, pos, tpos)
	if !ok {
		return
	}
	a.sim.Store.MutateEntity(ent.InstanceID, func(e *store.EntityRecord) {
		e.X, e.Y = step.X, step.Y
		e.NextDecisionTick = tick + int64(a.sim.Cfg.AI.ChaseInterval)
	})
}

// tickReturning walks home ignoring aggro, snapping to the spawn if the
// way back is blocked.
func (a *AISystem) tickReturning(tick int64, m *data.MapInfo, ent store.EntityRecord) {
	if tick < ent.NextDecisionTick {
		return
	}
	pos := Point{ent.X, ent.Y}
	spawn := Point{ent.SpawnX, ent.SpawnY}
	if pos == spawn {
		a.arriveHome(tick, ent.InstanceID)
		return
	}
	step, ok := a.step(m, ent, pos, spawn)
	if !ok {
		// Cornered on the way home: snap back and heal up.
		a.sim.Store.MutateEntity(ent.InstanceID, func(e *store.EntityRecord) {
			e.X, e.Y = spawn.X, spawn.Y
		})
		a.arriveHome(tick, ent.InstanceID)
		return
	}
	a.sim.Store.MutateEntity(ent.InstanceID, func(e *store.EntityRecord) {
		e.X, e.Y = step.X, step.Y
		e.NextDecisionTick = tick + int64(a.sim.Cfg.AI.ChaseInterval)
		if step == spawn {
			e.State = store.StateIdle
			e.HP = e.MaxHP
			e.NextDecisionTick = a.idleUntil(tick)
		}
	})
}

// tryAggro scans for the nearest player inside the aggro radius with
// line of sight and locks on. Only aggressive templates scan; neutral
// and passive ones fight only when hit.
func (a *AISystem) tryAggro(tick int64, m *data.MapInfo, ent store.EntityRecord, tpl *data.EntityTemplate) bool {
	if tpl.Behavior != data.BehaviorAggressive || ent.AggroRadius <= 0 {
		return false
	}
	pos := Point{ent.X, ent.Y}
	var best *store.PlayerRecord
	bestDist := ent.AggroRadius*ent.AggroRadius + 1
	for _, p := range a.sim.Store.GetNearbyPlayers(ent.MapID, ent.X, ent.Y, ent.AggroRadius) {
		if p.DyingUntilTick > 0 {
			continue
		}
		d := euclideanSq(pos, Point{p.X, p.Y})
		if d > ent.AggroRadius*ent.AggroRadius || d >= bestDist {
			continue
		}
		if !HasLineOfSight(m.TileMap, pos, Point{p.X, p.Y}) {
			continue
		}
		cp := p
		best = &cp
		bestDist = d
	}
	if best == nil {
		return false
	}
	a.sim.Store.MutateEntity(ent.InstanceID, func(e *store.EntityRecord) {
		e.State = store.StateCombat
		e.TargetPlayerID = best.PlayerID
		e.Path = nil
		e.LOSLostSinceTick = 0
		e.NextDecisionTick = tick
	})
	return true
}

func (a *AISystem) trySwing(tick int64, ent store.EntityRecord, tpl *data.EntityTemplate, target store.PlayerRecord) {
	if tick < ent.NextAttackTick {
		return
	}
	a.sim.Store.MutateEntity(ent.InstanceID, func(e *store.EntityRecord) {
		e.NextAttackTick = tick + int64(a.sim.Cfg.AI.AttackInterval)
	})
	attacker := a.sim.EntityProfile(tpl)
	var defender CombatProfile
	if p := a.sim.State.ByPlayerID(target.PlayerID); p != nil {
		defender = a.sim.PlayerProfile(p)
	}
	hit, dmg := RollAttack(attacker, defender, a.sim.RandInt)
	a.sim.DamagePlayer(tick, TargetEntity, ent.InstanceID, target.PlayerID, hit, dmg)
}

// step paths one tile toward goal, treating other actors as walls.
func (a *AISystem) step(m *data.MapInfo, ent store.EntityRecord, from, goal Point) (Point, bool) {
	skip := map[string]struct{}{world.EntityKey(ent.InstanceID): {}}
	occ := a.sim.Occupancy(ent.MapID, skip)
	// The target's own tile stays pathable so chase terminates
	// adjacent to it.
	return NextStep(m.TileMap, from, goal, occ, a.sim.Cfg.AI.MaxPathfindingDistance)
}

func (a *AISystem) pickWanderGoal(m *data.MapInfo, ent store.EntityRecord) (Point, bool) {
	if ent.WanderRadius <= 0 {
		return Point{}, false
	}
	for try := 0; try < 6; try++ {
		gx := ent.SpawnX + a.sim.RandInt(ent.WanderRadius*2+1) - ent.WanderRadius
		gy := ent.SpawnY + a.sim.RandInt(ent.WanderRadius*2+1) - ent.WanderRadius
		if gx == ent.X && gy == ent.Y {
			continue
		}
		if !m.IsBlocked(gx, gy) {
			return Point{gx, gy}, true
		}
	}
	return Point{}, false
}

func (a *AISystem) idleUntil(tick int64) int64 {
	span := a.sim.Cfg.AI.IdleMax - a.sim.Cfg.AI.IdleMin
	if span <= 0 {
		return tick + int64(a.sim.Cfg.AI.IdleMin)
	}
	return tick + int64(a.sim.Cfg.AI.IdleMin+a.sim.RandInt(span+1))
}

func (a *AISystem) toIdle(tick int64, instanceID int64) {
	a.sim.Store.MutateEntity(instanceID, func(e *store.EntityRecord) {
		e.State = store.StateIdle
		e.Path = nil
		e.NextDecisionTick = a.idleUntil(tick)
	})
}

func (a *AISystem) deferIdle(tick int64, instanceID int64) {
	a.sim.Store.MutateEntity(instanceID, func(e *store.EntityRecord) {
		e.NextDecisionTick = a.idleUntil(tick)
	})
}

func (a *AISystem) disengage(instanceID int64) {
	a.sim.Store.MutateEntity(instanceID, func(e *store.EntityRecord) {
		e.State = store.StateReturning
		e.TargetPlayerID = 0
		e.Path = nil
		e.LOSLostSinceTick = 0
		e.NextDecisionTick = 0
	})
}

func (a *AISystem) arriveHome(tick int64, instanceID int64) {
	a.sim.Store.MutateEntity(instanceID, func(e *store.EntityRecord) {
		e.State = store.StateIdle
		e.HP = e.MaxHP
		e.Path = nil
		e.NextDecisionTick = a.idleUntil(tick)
	})
}
