package game

import (
	"github.com/gridrealm/server/internal/core/system"
	"github.com/gridrealm/server/internal/data"
	"github.com/gridrealm/server/internal/store"
)

// PlayerCombatSystem resolves player auto-attacks: while a target is
// set, the player swings every attack interval whenever adjacent with
// line of sight. Target selection happens in the attack handler; this
// system keeps the exchange going.
type PlayerCombatSystem struct {
	sim *Sim
}

func NewPlayerCombatSystem(sim *Sim) *PlayerCombatSystem { return &PlayerCombatSystem{sim: sim} }

func (c *PlayerCombatSystem) Name() string        { return "player-combat" }
func (c *PlayerCombatSystem) Phase() system.Phase { return system.PhaseCombat }

func (c *PlayerCombatSystem) Run(ctx *system.Context) error {
	m := c.sim.Maps.Get(ctx.MapID)
	if m == nil {
		return nil
	}
	for _, rec := range c.sim.Store.GetPlayersOnMap(ctx.MapID) {
		if rec.TargetKind == "" || rec.DyingUntilTick > 0 {
			continue
		}
		c.tickAttacker(ctx.Tick, m, rec)
	}
	return nil
}

func (c *PlayerCombatSystem) tickAttacker(tick int64, m *data.MapInfo, rec store.PlayerRecord) {
	pos := Point{rec.X, rec.Y}
	var tpos Point

	switch rec.TargetKind {
	case TargetEntity:
		ent, ok := c.sim.Store.GetEntity(rec.TargetID)
		if !ok || ent.State == store.StateDying || ent.MapID != rec.MapID {
			c.clearTarget(rec.PlayerID)
			return
		}
		tpos = Point{ent.X, ent.Y}
	case TargetPlayer:
		t, ok := c.sim.Store.GetPlayer(rec.TargetID)
		if !ok || !t.Online || t.MapID != rec.MapID || t.DyingUntilTick > 0 {
			c.clearTarget(rec.PlayerID)
			return
		}
		tpos = Point{t.X, t.Y}
	default:
		c.clearTarget(rec.PlayerID)
		return
	}

	if chebyshev(pos, tpos) > 1 {
		return // the move handler walks the player in; no auto-pathing
	}
	if !HasLineOfSight(m.TileMap, pos, tpos) {
		return
	}
	if tick < rec.NextAttackTick {
		return
	}
	c.sim.Store.MutatePlayer(rec.PlayerID, func(p *store.PlayerRecord) {
		p.NextAttackTick = tick + int64(c.sim.Cfg.AI.AttackInterval)
	})

	attacker := c.sim.State.ByPlayerID(rec.PlayerID)
	if attacker == nil {
		return
	}
	atkProfile := c.sim.PlayerProfile(attacker)

	switch rec.TargetKind {
	case TargetEntity:
		ent, _ := c.sim.Store.GetEntity(rec.TargetID)
		tpl := c.sim.Ents.Get(ent.Template)
		if tpl == nil || !tpl.Attackable() {
			c.clearTarget(rec.PlayerID)
			return
		}
		hit, dmg := RollAttack(atkProfile, c.sim.EntityProfile(tpl), c.sim.RandInt)
		c.sim.DamageEntity(tick, attacker, rec.TargetID, hit, dmg)
		// A dead target ends the exchange.
		if after, still := c.sim.Store.GetEntity(rec.TargetID); !still || after.State == store.StateDying {
			c.clearTarget(rec.PlayerID)
		}
	case TargetPlayer:
		var defProfile CombatProfile
		if t := c.sim.State.ByPlayerID(rec.TargetID); t != nil {
			defProfile = c.sim.PlayerProfile(t)
		}
		hit, dmg := RollAttack(atkProfile, defProfile, c.sim.RandInt)
		c.sim.DamagePlayer(tick, TargetPlayer, rec.PlayerID, rec.TargetID, hit, dmg)
	}
}

func (c *PlayerCombatSystem) clearTarget(playerID int64) {
	c.sim.Store.MutatePlayer(playerID, func(p *store.PlayerRecord) {
		p.TargetKind = ""
		p.TargetID = 0
	})
}
