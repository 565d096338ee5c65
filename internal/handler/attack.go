package handler

import (
	"github.com/gridrealm/server/internal/game"
	"github.com/gridrealm/server/internal/proto"
	"github.com/gridrealm/server/internal/store"
)

// handleAttack locks the player onto a target. The combat system closes
// range and swings; this only validates the lock.
func handleAttack(c *Ctx) error {
	var req proto.AttackPayload
	if err := c.Frame.DecodePayload(&req); err != nil {
		return proto.Errorf(proto.ErrProtocolBadFrame, proto.CategoryValidation, "bad attack payload")
	}
	rec, ok := c.Sim.Store.GetPlayer(c.Player.PlayerID)
	if !ok {
		return proto.Errorf(proto.ErrAuthRequired, proto.CategoryPermission, "no hot record")
	}
	if rec.DyingUntilTick > 0 {
		return proto.Errorf(proto.ErrAttackNoTarget, proto.CategoryConflict, "you are dead")
	}

	var tx, ty int
	switch req.TargetKind {
	case game.TargetEntity:
		ent, ok := c.Sim.Store.GetEntity(req.TargetID)
		if !ok || ent.State == store.StateDying || ent.State == store.StateDead || ent.MapID != rec.MapID {
			return proto.Errorf(proto.ErrAttackNoTarget, proto.CategoryValidation, "no such target")
		}
		tpl := c.Sim.Ents.Get(ent.Template)
		if tpl == nil || !tpl.Attackable() {
			return proto.Errorf(proto.ErrAttackNotAttackable, proto.CategoryValidation,
				ent.Template+" cannot be attacked")
		}
		tx, ty = ent.X, ent.Y
	case game.TargetPlayer:
		if req.TargetID == c.Player.PlayerID {
			return proto.Errorf(proto.ErrAttackNoTarget, proto.CategoryValidation, "cannot attack yourself")
		}
		other, ok := c.Sim.Store.GetPlayer(req.TargetID)
		if !ok || !other.Online || other.MapID != rec.MapID || other.DyingUntilTick > 0 {
			return proto.Errorf(proto.ErrAttackNoTarget, proto.CategoryValidation, "no such target")
		}
		tx, ty = other.X, other.Y
	default:
		return proto.Errorf(proto.ErrAttackNoTarget, proto.CategoryValidation,
			"unknown target kind "+req.TargetKind)
	}

	rng := game.VisibleRange(game.ChunkRadius)
	if abs(tx-rec.X) > rng || abs(ty-rec.Y) > rng {
		return proto.Errorf(proto.ErrAttackOutOfRange, proto.CategoryValidation, "target out of range")
	}
	if m := c.Sim.Maps.Get(rec.MapID); m != nil {
		if !game.HasLineOfSight(m.TileMap, game.Point{X: rec.X, Y: rec.Y}, game.Point{X: tx, Y: ty}) {
			return proto.Errorf(proto.ErrAttackNoLOS, proto.CategoryValidation, "no line of sight to target")
		}
	}

	c.Sim.Store.MutatePlayer(c.Player.PlayerID, func(p *store.PlayerRecord) {
		p.TargetKind = req.TargetKind
		p.TargetID = req.TargetID
	})
	c.OK(map[string]any{"target_kind": req.TargetKind, "target_id": req.TargetID})
	return nil
}

// handleToggleAutoRetaliate flips whether taking damage auto-targets
// the attacker.
func handleToggleAutoRetaliate(c *Ctx) error {
	var enabled bool
	c.Sim.Store.MutatePlayer(c.Player.PlayerID, func(p *store.PlayerRecord) {
		p.AutoRetaliate = !p.AutoRetaliate
		enabled = p.AutoRetaliate
	})
	c.OK(map[string]any{"auto_retaliate": enabled})
	return nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
