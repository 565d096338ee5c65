package handler

import (
	"go.uber.org/zap"

	"github.com/gridrealm/server/internal/proto"
)

// adminGiveMaxQuantity bounds a single grant.
const adminGiveMaxQuantity = 1000

// handleAdminGive spawns items into a player's inventory. Admin only;
// an empty target means the admin themselves.
func handleAdminGive(c *Ctx) error {
	if !c.Player.IsAdmin() {
		return proto.Errorf(proto.ErrAdminNotAuthorized, proto.CategoryPermission,
			"admin role required")
	}
	var req proto.AdminGivePayload
	if err := c.Frame.DecodePayload(&req); err != nil {
		return proto.Errorf(proto.ErrProtocolBadFrame, proto.CategoryValidation, "bad admin give payload")
	}
	if req.Quantity < 1 || req.Quantity > adminGiveMaxQuantity {
		return proto.Errorf(proto.ErrAdminInvalidQuantity, proto.CategoryValidation,
			"quantity must be between 1 and 1000")
	}
	tpl := c.Sim.Items.Get(req.Item)
	if tpl == nil {
		return proto.Errorf(proto.ErrAdminItemNotFound, proto.CategoryValidation,
			"no such item "+req.Item)
	}

	target := c.Player
	if req.Target != "" {
		target = c.Sim.State.ByName(req.Target)
		if target == nil {
			return proto.Errorf(proto.ErrPlayerNotOnline, proto.CategoryValidation,
				"player not online: "+req.Target)
		}
	}
	if !target.Inventory.CanAdd(req.Item, req.Quantity) {
		return proto.Errorf(proto.ErrAdminInventoryFull, proto.CategoryConflict,
			"target inventory cannot hold that")
	}
	target.Inventory.Add(req.Item, req.Quantity)
	target.StateDirty = true
	target.PersistDirty = true

	c.Log.Info("admin give",
		zap.String("admin", c.Player.Username),
		zap.String("target", target.Username),
		zap.String("item", req.Item),
		zap.Int("quantity", req.Quantity))
	c.OK(map[string]any{"target": target.Username, "item": req.Item, "quantity": req.Quantity})
	return nil
}
