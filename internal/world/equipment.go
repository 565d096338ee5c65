package world

import (
	"fmt"

	"github.com/gridrealm/server/internal/data"
	"github.com/gridrealm/server/internal/proto"
)

// Equipment is the set of worn items, one per slot. Not goroutine safe.
type Equipment struct {
	slots map[string]*ItemStack // slot name → single-quantity stack
	items *data.ItemTable
}

func NewEquipment(items *data.ItemTable) *Equipment {
	return &Equipment{slots: make(map[string]*ItemStack), items: items}
}

// Get returns the worn stack in the named slot, nil if empty.
func (eq *Equipment) Get(slotName string) *ItemStack { return eq.slots[slotName] }

// Set force-places a stack, used when loading from the warm tier.
func (eq *Equipment) Set(slotName string, st *ItemStack) {
	if st == nil {
		delete(eq.slots, slotName)
		return
	}
	eq.slots[slotName] = st
}

// skillLevel resolves a skill requirement against the player's levels.
type skillLevel func(skill string) int

// CanEquip validates the template against slot rules and skill
// requirements. It does not mutate.
func (eq *Equipment) CanEquip(tpl *data.ItemTemplate, level skillLevel) *proto.WireError {
	if tpl == nil || !tpl.Equippable() {
		return proto.Errorf(proto.ErrEquipNotEquippable, proto.CategoryValidation,
			"item cannot be equipped")
	}
	if tpl.RequiredSkill != "" && level(tpl.RequiredSkill) < tpl.RequiredLevel {
		return proto.Errorf(proto.ErrEquipLevelTooLow, proto.CategoryValidation,
			fmt.Sprintf("requires %s level %d", tpl.RequiredSkill, tpl.RequiredLevel))
	}
	if tpl.TwoHanded && eq.slots[data.SlotOffHand] != nil {
		return proto.Errorf(proto.ErrEquipTwoHanded, proto.CategoryConflict,
			"unequip your off-hand first")
	}
	if tpl.EquipmentSlot == data.SlotOffHand {
		if main := eq.slots[data.SlotMainHand]; main != nil {
			if mt := eq.items.Get(main.Item); mt != nil && mt.TwoHanded {
				return proto.Errorf(proto.ErrEquipTwoHanded, proto.CategoryConflict,
					"your main hand weapon needs both hands")
			}
		}
	}
	return nil
}

// Equip places the stack in its template slot, returning whatever was
// displaced. Call CanEquip first; Equip assumes validity.
func (eq *Equipment) Equip(tpl *data.ItemTemplate, st *ItemStack) (displaced *ItemStack) {
	displaced = eq.slots[tpl.EquipmentSlot]
	eq.slots[tpl.EquipmentSlot] = st
	return displaced
}

// Unequip clears the named slot and returns its stack.
func (eq *Equipment) Unequip(slotName string) (*ItemStack, *proto.WireError) {
	if !data.ValidSlot(slotName) {
		return nil, proto.Errorf(proto.ErrEquipWrongSlot, proto.CategoryValidation,
			"unknown equipment slot "+slotName)
	}
	st := eq.slots[slotName]
	if st == nil {
		return nil, proto.Errorf(proto.ErrEquipSlotEmpty, proto.CategoryValidation,
			"nothing equipped in "+slotName)
	}
	delete(eq.slots, slotName)
	return st, nil
}

// StatTotals sums the stat bonuses of everything worn.
func (eq *Equipment) StatTotals() data.Stats {
	var total data.Stats
	for _, st := range eq.slots {
		if tpl := eq.items.Get(st.Item); tpl != nil {
			total = total.Add(tpl.Stats)
		}
	}
	return total
}

// Visuals builds the visible-slot sprite map for visual hashing. Slots
// whose item has no sprite render nothing and are omitted.
func (eq *Equipment) Visuals() map[string]*proto.SpriteRef {
	out := make(map[string]*proto.SpriteRef)
	for _, slotName := range data.VisibleSlots {
		st := eq.slots[slotName]
		if st == nil {
			continue
		}
		tpl := eq.items.Get(st.Item)
		if tpl == nil || tpl.Sprite == "" {
			continue
		}
		out[slotName] = &proto.SpriteRef{Sprite: tpl.Sprite, Tint: tpl.Tint}
	}
	return out
}

// Slots iterates occupied slots in visible-slot order.
func (eq *Equipment) Slots(fn func(slotName string, st *ItemStack)) {
	for _, name := range data.VisibleSlots {
		if st := eq.slots[name]; st != nil {
			fn(name, st)
		}
	}
}

// Clear empties every slot and returns the worn stacks, for death drops.
func (eq *Equipment) Clear() []*ItemStack {
	var out []*ItemStack
	for name, st := range eq.slots {
		out = append(out, st)
		delete(eq.slots, name)
	}
	return out
}

// Views renders the wire form of every occupied slot.
func (eq *Equipment) Views() []proto.EquipmentSlotView {
	var out []proto.EquipmentSlotView
	eq.Slots(func(slotName string, st *ItemStack) {
		out = append(out, proto.EquipmentSlotView{
			SlotName: slotName, Item: st.Item, Durability: st.Durability,
		})
	})
	return out
}
