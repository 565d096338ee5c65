package handler

import (
	"github.com/gridrealm/server/internal/proto"
	"github.com/gridrealm/server/internal/world"
)

// maxChunkQueryRadius bounds a single chunk query (a 7×7 chunk block).
const maxChunkQueryRadius = 3

func handleQueryInventory(c *Ctx) error {
	c.Data(&proto.InventoryData{
		Slots:    c.Player.Inventory.Views(),
		Capacity: world.InventoryCapacity,
	})
	return nil
}

func handleQueryEquipment(c *Ctx) error {
	c.Data(&proto.EquipmentData{
		Slots: c.Player.Equipment.Views(),
		Stats: c.Player.Equipment.StatTotals().ToMap(),
	})
	return nil
}

func handleQueryStats(c *Ctx) error {
	stats := c.Sched.StatsView(c.Player)
	c.Data(&stats)
	return nil
}

// handleQueryMapChunks returns tile layers around a chunk coordinate on
// the player's current map.
func handleQueryMapChunks(c *Ctx) error {
	var req proto.MapChunksQuery
	if err := c.Frame.DecodePayload(&req); err != nil {
		return proto.Errorf(proto.ErrProtocolBadFrame, proto.CategoryValidation, "bad map chunks query")
	}
	if req.Radius < 0 || req.Radius > maxChunkQueryRadius {
		return proto.Errorf(proto.ErrQueryOutOfRange, proto.CategoryValidation,
			"radius out of range")
	}
	rec, ok := c.Sim.Store.GetPlayer(c.Player.PlayerID)
	if !ok {
		return proto.Errorf(proto.ErrAuthRequired, proto.CategoryPermission, "no hot record")
	}
	m := c.Sim.Maps.Get(rec.MapID)
	if m == nil {
		return proto.Errorf(proto.ErrQueryOutOfRange, proto.CategoryValidation, "no such map")
	}
	// The queried block must overlap the player's own window; clients
	// cannot stream arbitrary map geometry.
	size := c.Sim.Cfg.Game.ChunkSize
	pcx, pcy := rec.X/size, rec.Y/size
	if abs(req.CenterX-pcx) > maxChunkQueryRadius+1 || abs(req.CenterY-pcy) > maxChunkQueryRadius+1 {
		return proto.Errorf(proto.ErrQueryOutOfRange, proto.CategoryValidation,
			"chunk block too far from player")
	}

	var chunks []proto.ChunkView
	for dy := -req.Radius; dy <= req.Radius; dy++ {
		for dx := -req.Radius; dx <= req.Radius; dx++ {
			chunks = append(chunks, proto.ChunkView{
				CX: req.CenterX + dx, CY: req.CenterY + dy,
				Layers: m.Chunk(req.CenterX+dx, req.CenterY+dy),
			})
		}
	}
	c.Data(&proto.MapChunksData{MapID: rec.MapID, Chunks: chunks})
	return nil
}
