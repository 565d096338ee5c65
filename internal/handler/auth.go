package handler

import (
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/gridrealm/server/internal/game"
	"github.com/gridrealm/server/internal/persist"
	"github.com/gridrealm/server/internal/proto"
	"github.com/gridrealm/server/internal/store"
	"github.com/gridrealm/server/internal/world"
)

// handleAuthenticate binds the session to its player: verifies the
// token, loads or revives the record, registers the runtime, and
// delivers the welcome burst (welcome, initial chunks, join broadcast).
func handleAuthenticate(c *Ctx) error {
	var req proto.AuthenticatePayload
	if err := c.Frame.DecodePayload(&req); err != nil {
		return proto.Errorf(proto.ErrProtocolBadFrame, proto.CategoryValidation, "bad authenticate payload")
	}
	playerID, err := c.Tokens.Verify(req.Token)
	if err != nil {
		return proto.Errorf(proto.ErrAuthInvalidToken, proto.CategoryPermission, "invalid or expired token")
	}

	ctx, cancel := c.DBCtx()
	defer cancel()
	row, err := c.Players.GetByID(ctx, playerID)
	if errors.Is(err, persist.ErrPlayerNotFound) {
		return proto.Errorf(proto.ErrAuthInvalidToken, proto.CategoryPermission, "unknown player")
	}
	if err != nil {
		return err
	}

	// Fall back to the default spawn when the saved map no longer
	// exists.
	mapID := row.MapID
	x, y := row.X, row.Y
	m := c.Sim.Maps.Get(mapID)
	if m == nil {
		mapID = c.Sim.Maps.DefaultID()
		m = c.Sim.Maps.Get(mapID)
		x, y = m.SpawnX, m.SpawnY
	}

	rec, err := c.Sim.Store.RegisterOnline(store.PlayerRecord{
		PlayerID: row.ID, Username: row.Username, Role: row.Role,
		MapID: mapID, X: x, Y: y, Facing: proto.South,
		HP: row.HP, MaxHP: row.MaxHP, AutoRetaliate: true,
	}, row.Banned, row.TimeoutUntil)
	switch {
	case errors.Is(err, store.ErrPlayerBanned):
		return proto.Errorf(proto.ErrAuthBanned, proto.CategoryPermission, "account banned")
	case errors.Is(err, store.ErrPlayerTimedOut):
		return proto.Errorf(proto.ErrAuthTimedOut, proto.CategoryPermission, "account temporarily suspended")
	case err != nil:
		return err
	}

	sess := c.Sess
	p := world.NewPlayerInfo(sess.ID, row.ID, row.Username, row.Role, c.Sim.Items,
		func(frameType string, payload any) { sess.SendEvent(frameType, payload) })
	if len(row.Appearance) > 0 {
		if app, err := world.AppearanceFromMap(row.Appearance); err == nil {
			p.Appearance = app
		}
	}
	if err := loadContainers(c, p); err != nil {
		c.Log.Warn("loading containers failed, starting empty",
			zap.Int64("player", row.ID), zap.Error(err))
	}

	// A second login bumps the first session off.
	if evicted := c.Sim.State.Add(p); evicted != nil {
		c.Log.Info("duplicate login, evicting old session",
			zap.Int64("player", row.ID),
			zap.Int64("old_session", evicted.SessionID))
	}
	sess.Authenticate(row.ID)
	hash := c.Sim.PublishVisual(p)

	go func() {
		tctx, tcancel := c.DBCtx()
		defer tcancel()
		if err := c.Players.TouchLogin(tctx, row.ID); err != nil {
			c.Log.Warn("touch login failed", zap.Int64("player", row.ID), zap.Error(err))
		}
	}()

	stats := c.Sched.StatsView(p)
	c.OK(map[string]any{"player_id": rec.PlayerID})
	sess.SendEvent(proto.EventWelcome, &proto.WelcomePayload{
		Player: proto.PlayerView{
			PlayerID: rec.PlayerID, Username: rec.Username,
			X: rec.X, Y: rec.Y, Facing: rec.Facing,
			HP: rec.HP, MaxHP: rec.MaxHP,
			VisualHash: hash, VisualState: p.VisualState().View(),
		},
		MapID:      rec.MapID,
		ChunkSize:  c.Sim.Cfg.Game.ChunkSize,
		TickRateHz: c.Sim.Cfg.Tick.HotHz,
		Inventory:  p.Inventory.Views(),
		Equipment:  p.Equipment.Views(),
		Stats:      stats,
		ServerTime: time.Now().UnixMilli(),
	})
	sendChunksAround(c, p, rec.MapID, rec.X, rec.Y)
	c.Sim.BroadcastToMap(rec.MapID, proto.EventPlayerJoined, &proto.PlayerJoinedPayload{
		PlayerID: rec.PlayerID, Username: rec.Username,
	})
	c.Log.Info("player joined",
		zap.Int64("player", rec.PlayerID),
		zap.String("username", rec.Username),
		zap.String("map", rec.MapID))
	return nil
}

func loadContainers(c *Ctx, p *world.PlayerInfo) error {
	ctx, cancel := c.DBCtx()
	defer cancel()
	inv, err := c.Items.LoadInventory(ctx, p.PlayerID)
	if err != nil {
		return err
	}
	for _, row := range inv {
		p.Inventory.Set(row.Slot, &world.ItemStack{
			Item: row.Item, Quantity: row.Quantity, Durability: row.Durability,
		})
	}
	eq, err := c.Items.LoadEquipment(ctx, p.PlayerID)
	if err != nil {
		return err
	}
	for _, row := range eq {
		p.Equipment.Set(row.SlotName, &world.ItemStack{
			Item: row.Item, Quantity: 1, Durability: row.Durability,
		})
	}
	skills, err := c.Players.LoadSkills(ctx, p.PlayerID)
	if err != nil {
		return err
	}
	for skill, xp := range skills {
		p.Skills.SetXP(skill, xp)
	}
	return nil
}

// sendChunksAround delivers the initial chunk window.
func sendChunksAround(c *Ctx, p *world.PlayerInfo, mapID string, x, y int) {
	m := c.Sim.Maps.Get(mapID)
	if m == nil {
		return
	}
	ccx, ccy := x/c.Sim.Cfg.Game.ChunkSize, y/c.Sim.Cfg.Game.ChunkSize
	var chunks []proto.ChunkView
	for dy := -game.ChunkRadius; dy <= game.ChunkRadius; dy++ {
		for dx := -game.ChunkRadius; dx <= game.ChunkRadius; dx++ {
			chunks = append(chunks, proto.ChunkView{
				CX: ccx + dx, CY: ccy + dy,
				Layers: m.Chunk(ccx+dx, ccy+dy),
			})
		}
	}
	p.Send(proto.EventChunkUpdate, &proto.ChunkUpdatePayload{MapID: mapID, Chunks: chunks})
}
