package handler

import (
	"github.com/gridrealm/server/internal/game"
	"github.com/gridrealm/server/internal/proto"
	"github.com/gridrealm/server/internal/store"
	"github.com/gridrealm/server/internal/world"
)

// pickupRange is how far (Chebyshev) a ground item may be grabbed from.
const pickupRange = 1

func handleInventoryMove(c *Ctx) error {
	var req proto.InventoryMovePayload
	if err := c.Frame.DecodePayload(&req); err != nil {
		return proto.Errorf(proto.ErrProtocolBadFrame, proto.CategoryValidation, "bad inventory move payload")
	}
	if req.FromSlot < 0 || req.FromSlot >= world.InventoryCapacity ||
		req.ToSlot < 0 || req.ToSlot >= world.InventoryCapacity {
		return proto.Errorf(proto.ErrInvInvalidSlot, proto.CategoryValidation, "slot out of range")
	}
	if c.Player.Inventory.Get(req.FromSlot) == nil {
		return proto.Errorf(proto.ErrInvSlotEmpty, proto.CategoryValidation, "source slot is empty")
	}
	c.Player.Inventory.Move(req.FromSlot, req.ToSlot)
	c.Player.StateDirty = true
	c.Player.PersistDirty = true
	c.OK(&proto.InventoryData{Slots: c.Player.Inventory.Views(), Capacity: world.InventoryCapacity})
	return nil
}

func handleInventorySort(c *Ctx) error {
	c.Player.Inventory.Sort()
	c.Player.StateDirty = true
	c.Player.PersistDirty = true
	c.OK(&proto.InventoryData{Slots: c.Player.Inventory.Views(), Capacity: world.InventoryCapacity})
	return nil
}

// handleItemDrop moves part of a stack from the inventory to the floor
// at the player's feet, protected for the owner.
func handleItemDrop(c *Ctx) error {
	var req proto.ItemDropPayload
	if err := c.Frame.DecodePayload(&req); err != nil {
		return proto.Errorf(proto.ErrProtocolBadFrame, proto.CategoryValidation, "bad item drop payload")
	}
	st := c.Player.Inventory.Get(req.Slot)
	if st == nil {
		return proto.Errorf(proto.ErrInvSlotEmpty, proto.CategoryValidation, "slot is empty")
	}
	if req.Quantity <= 0 || req.Quantity > st.Quantity {
		return proto.Errorf(proto.ErrInvBadQuantity, proto.CategoryValidation, "bad quantity")
	}
	rec, ok := c.Sim.Store.GetPlayer(c.Player.PlayerID)
	if !ok {
		return proto.Errorf(proto.ErrAuthRequired, proto.CategoryPermission, "no hot record")
	}
	removed := c.Player.Inventory.Remove(req.Slot, req.Quantity)
	if removed == nil {
		return proto.Errorf(proto.ErrInvBadQuantity, proto.CategoryValidation, "bad quantity")
	}
	dropped := c.Sim.Store.AddGroundItem(store.GroundItemRecord{
		MapID: rec.MapID, X: rec.X, Y: rec.Y,
		Item: removed.Item, Quantity: removed.Quantity,
		OwnerID:      c.Player.PlayerID,
		PublicAtTick: c.Tick + game.LootProtectionTicks,
		ExpireAtTick: c.Tick + game.GroundItemTTLTicks,
	})
	c.Player.StateDirty = true
	c.Player.PersistDirty = true
	c.OK(map[string]any{"ground_item_id": dropped.GroundItemID})
	return nil
}

// handleItemPickup lifts a nearby ground stack into the inventory,
// honoring loot protection.
func handleItemPickup(c *Ctx) error {
	var req proto.ItemPickupPayload
	if err := c.Frame.DecodePayload(&req); err != nil {
		return proto.Errorf(proto.ErrProtocolBadFrame, proto.CategoryValidation, "bad item pickup payload")
	}
	rec, ok := c.Sim.Store.GetPlayer(c.Player.PlayerID)
	if !ok {
		return proto.Errorf(proto.ErrAuthRequired, proto.CategoryPermission, "no hot record")
	}
	gi, ok := c.Sim.Store.GetGroundItem(req.GroundItemID)
	if !ok || gi.MapID != rec.MapID {
		return proto.Errorf(proto.ErrPickupGone, proto.CategoryConflict, "item is gone")
	}
	if abs(gi.X-rec.X) > pickupRange || abs(gi.Y-rec.Y) > pickupRange {
		return proto.Errorf(proto.ErrPickupTooFar, proto.CategoryValidation, "too far away")
	}
	if !c.Player.Inventory.CanAdd(gi.Item, gi.Quantity) {
		return proto.Errorf(proto.ErrInvFull, proto.CategoryConflict, "inventory is full")
	}
	taken, ok := c.Sim.Store.TakeGroundItem(req.GroundItemID, c.Player.PlayerID, c.Tick)
	if !ok {
		// Still owned by someone else, or a racing pickup won.
		if g2, exists := c.Sim.Store.GetGroundItem(req.GroundItemID); exists &&
			g2.OwnerID != 0 && g2.OwnerID != c.Player.PlayerID {
			return proto.Errorf(proto.ErrPickupProtected, proto.CategoryPermission,
				"that drop belongs to someone else")
		}
		return proto.Errorf(proto.ErrPickupGone, proto.CategoryConflict, "item is gone")
	}
	if leftover := c.Player.Inventory.Add(taken.Item, taken.Quantity); leftover > 0 {
		// CanAdd raced a concurrent change; return the rest to the floor.
		c.Sim.Store.AddGroundItem(store.GroundItemRecord{
			MapID: taken.MapID, X: taken.X, Y: taken.Y,
			Item: taken.Item, Quantity: leftover,
			OwnerID:      c.Player.PlayerID,
			PublicAtTick: taken.PublicAtTick,
			ExpireAtTick: taken.ExpireAtTick,
		})
	}
	c.Player.StateDirty = true
	c.Player.PersistDirty = true
	c.OK(&proto.InventoryData{Slots: c.Player.Inventory.Views(), Capacity: world.InventoryCapacity})
	return nil
}
