package handler

import (
	"github.com/gridrealm/server/internal/proto"
	"github.com/gridrealm/server/internal/store"
	"github.com/gridrealm/server/internal/world"
)

// handleMove steps the player one tile. Facing updates even when the
// step is refused, so a blocked player can still turn in place.
func handleMove(c *Ctx) error {
	var req proto.MovePayload
	if err := c.Frame.DecodePayload(&req); err != nil {
		return proto.Errorf(proto.ErrProtocolBadFrame, proto.CategoryValidation, "bad move payload")
	}
	if !req.Direction.Valid() {
		return proto.Errorf(proto.ErrMoveInvalidDirection, proto.CategoryValidation,
			"unknown direction "+string(req.Direction))
	}
	rec, ok := c.Sim.Store.GetPlayer(c.Player.PlayerID)
	if !ok {
		return proto.Errorf(proto.ErrAuthRequired, proto.CategoryPermission, "no hot record")
	}
	if rec.DyingUntilTick > 0 {
		return proto.Errorf(proto.ErrMoveBlocked, proto.CategoryConflict, "you are dead")
	}

	c.Sim.Store.MutatePlayer(c.Player.PlayerID, func(p *store.PlayerRecord) {
		p.Facing = req.Direction
	})

	if c.Tick < rec.NextMoveTick {
		werr := proto.Errorf(proto.ErrMoveCooldown, proto.CategoryConflict, "moving too fast")
		werr.RetryAfter = float64(rec.NextMoveTick-c.Tick) * c.Sim.Cfg.Tick.HotInterval().Seconds()
		return werr
	}

	dx, dy := req.Direction.Offset()
	nx, ny := rec.X+dx, rec.Y+dy
	m := c.Sim.Maps.Get(rec.MapID)
	if m == nil || m.IsBlocked(nx, ny) {
		return proto.Errorf(proto.ErrMoveBlocked, proto.CategoryConflict, "tile is blocked")
	}
	skip := map[string]struct{}{world.PlayerKey(c.Player.PlayerID): {}}
	if !c.Sim.TileFree(rec.MapID, nx, ny, skip) {
		return proto.Errorf(proto.ErrMoveOccupied, proto.CategoryConflict, "tile is occupied")
	}

	cooldown := moveCooldownTicks(c)
	if _, _, err := c.Sim.Store.SetPlayerPosition(c.Player.PlayerID, nx, ny, req.Direction); err != nil {
		return err
	}
	c.Sim.Store.MutatePlayer(c.Player.PlayerID, func(p *store.PlayerRecord) {
		p.NextMoveTick = c.Tick + cooldown
	})
	c.Player.PersistDirty = true

	c.OK(&proto.MoveResult{X: nx, Y: ny, MapID: rec.MapID, Facing: req.Direction})
	return nil
}

// moveCooldownTicks converts the configured cooldown into hot ticks,
// minimum one.
func moveCooldownTicks(c *Ctx) int64 {
	n := int64(c.Sim.Cfg.Game.MoveCooldown / c.Sim.Cfg.Tick.HotInterval())
	if n < 1 {
		n = 1
	}
	return n
}
