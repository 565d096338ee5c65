package handler

import (
	"github.com/gridrealm/server/internal/proto"
	"github.com/gridrealm/server/internal/world"
)

// handleUpdateAppearance replaces the player's appearance. The full
// field set must be present and every value in its enum; the new
// fingerprint fans out to the map.
func handleUpdateAppearance(c *Ctx) error {
	var req proto.UpdateAppearancePayload
	if err := c.Frame.DecodePayload(&req); err != nil {
		return proto.Errorf(proto.ErrProtocolBadFrame, proto.CategoryValidation, "bad appearance payload")
	}
	app, err := world.AppearanceFromMap(req.Appearance)
	if err != nil {
		if werr, ok := err.(*proto.WireError); ok {
			return werr
		}
		return proto.Errorf(proto.ErrAppearanceInvalid, proto.CategoryValidation, err.Error())
	}
	c.Player.Appearance = app
	hash := c.Sim.PublishVisual(c.Player)
	c.Player.PersistDirty = true

	if rec, ok := c.Sim.Store.GetPlayer(c.Player.PlayerID); ok {
		c.Sim.BroadcastToMap(rec.MapID, proto.EventAppearanceUpdate, &proto.AppearanceUpdatePayload{
			PlayerID:    c.Player.PlayerID,
			VisualHash:  hash,
			VisualState: c.Player.VisualState().View(),
		})
	}
	c.OK(map[string]any{"visual_hash": hash})
	return nil
}
