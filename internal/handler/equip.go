package handler

import (
	"github.com/gridrealm/server/internal/proto"
	"github.com/gridrealm/server/internal/world"
)

// returnStack puts a worn stack back in the bag, keeping its durability
// instead of re-minting a fresh one.
func returnStack(inv *world.Inventory, st *world.ItemStack) {
	if st.Durability == nil {
		inv.Add(st.Item, st.Quantity)
		return
	}
	for slot := 0; slot < world.InventoryCapacity; slot++ {
		if inv.Get(slot) == nil {
			inv.Set(slot, st)
			return
		}
	}
}

// handleItemEquip moves an inventory item onto the body. Whatever the
// slot held goes back to the bag.
func handleItemEquip(c *Ctx) error {
	var req proto.ItemEquipPayload
	if err := c.Frame.DecodePayload(&req); err != nil {
		return proto.Errorf(proto.ErrProtocolBadFrame, proto.CategoryValidation, "bad item equip payload")
	}
	st := c.Player.Inventory.Get(req.Slot)
	if st == nil {
		return proto.Errorf(proto.ErrInvSlotEmpty, proto.CategoryValidation, "slot is empty")
	}
	tpl := c.Sim.Items.Get(st.Item)
	if werr := c.Player.Equipment.CanEquip(tpl, c.Player.Skills.Level); werr != nil {
		return werr
	}
	removed := c.Player.Inventory.Remove(req.Slot, 1)
	if removed == nil {
		return proto.Errorf(proto.ErrInvSlotEmpty, proto.CategoryValidation, "slot is empty")
	}
	if displaced := c.Player.Equipment.Equip(tpl, removed); displaced != nil {
		// The emptied inventory slot guarantees room.
		returnStack(c.Player.Inventory, displaced)
	}
	c.Sim.PublishVisual(c.Player)
	c.Player.StateDirty = true
	c.Player.PersistDirty = true
	c.OK(&proto.EquipmentData{
		Slots: c.Player.Equipment.Views(),
		Stats: c.Player.Equipment.StatTotals().ToMap(),
	})
	return nil
}

// handleItemUnequip takes a worn item off into the inventory.
func handleItemUnequip(c *Ctx) error {
	var req proto.ItemUnequipPayload
	if err := c.Frame.DecodePayload(&req); err != nil {
		return proto.Errorf(proto.ErrProtocolBadFrame, proto.CategoryValidation, "bad item unequip payload")
	}
	worn := c.Player.Equipment.Get(req.SlotName)
	if worn != nil && !c.Player.Inventory.CanAdd(worn.Item, worn.Quantity) {
		return proto.Errorf(proto.ErrInvFull, proto.CategoryConflict, "inventory is full")
	}
	st, werr := c.Player.Equipment.Unequip(req.SlotName)
	if werr != nil {
		return werr
	}
	returnStack(c.Player.Inventory, st)
	c.Sim.PublishVisual(c.Player)
	c.Player.StateDirty = true
	c.Player.PersistDirty = true
	c.OK(&proto.EquipmentData{
		Slots: c.Player.Equipment.Views(),
		Stats: c.Player.Equipment.StatTotals().ToMap(),
	})
	return nil
}
