package world

import (
	"sort"

	"github.com/gridrealm/server/internal/data"
	"github.com/gridrealm/server/internal/proto"
)

// InventoryCapacity is the fixed slot count of a player inventory.
const InventoryCapacity = 28

// ItemStack is one occupied inventory slot.
type ItemStack struct {
	Item       string
	Quantity   int
	Durability *int // nil when the template has no durability
}

// Inventory is a fixed 28-slot container. Nil slots are empty. Not
// goroutine safe; access runs through the owning session's map worker.
type Inventory struct {
	slots [InventoryCapacity]*ItemStack
	items *data.ItemTable
}

func NewInventory(items *data.ItemTable) *Inventory {
	return &Inventory{items: items}
}

// Get returns the stack at slot, nil if empty or out of range.
func (inv *Inventory) Get(slot int) *ItemStack {
	if slot < 0 || slot >= InventoryCapacity {
		return nil
	}
	return inv.slots[slot]
}

// Set overwrites a slot. Used when loading from the warm tier.
func (inv *Inventory) Set(slot int, st *ItemStack) {
	if slot >= 0 && slot < InventoryCapacity {
		inv.slots[slot] = st
	}
}

// FreeSlots counts empty slots.
func (inv *Inventory) FreeSlots() int {
	n := 0
	for _, st := range inv.slots {
		if st == nil {
			n++
		}
	}
	return n
}

// CanAdd reports whether quantity of item fits without mutating.
func (inv *Inventory) CanAdd(item string, quantity int) bool {
	tpl := inv.items.Get(item)
	if tpl == nil || quantity <= 0 {
		return false
	}
	remaining := quantity
	if tpl.Stackable() {
		for _, st := range inv.slots {
			if st != nil && st.Item == item && st.Quantity < tpl.MaxStackSize {
				remaining -= tpl.MaxStackSize - st.Quantity
				if remaining <= 0 {
					return true
				}
			}
		}
		free := inv.FreeSlots()
		return remaining <= free*tpl.MaxStackSize
	}
	return remaining <= inv.FreeSlots()
}

// Add inserts quantity of item, topping up existing stacks before
// opening new slots. Returns the leftover that did not fit.
func (inv *Inventory) Add(item string, quantity int) (leftover int) {
	tpl := inv.items.Get(item)
	if tpl == nil || quantity <= 0 {
		return quantity
	}
	remaining := quantity
	if tpl.Stackable() {
		for _, st := range inv.slots {
			if remaining == 0 {
				return 0
			}
			if st != nil && st.Item == item && st.Quantity < tpl.MaxStackSize {
				take := min(remaining, tpl.MaxStackSize-st.Quantity)
				st.Quantity += take
				remaining -= take
			}
		}
	}
	for i := range inv.slots {
		if remaining == 0 {
			return 0
		}
		if inv.slots[i] != nil {
			continue
		}
		take := 1
		if tpl.Stackable() {
			take = min(remaining, tpl.MaxStackSize)
		}
		st := &ItemStack{Item: item, Quantity: take}
		if tpl.MaxDurability > 0 {
			d := tpl.MaxDurability
			st.Durability = &d
		}
		inv.slots[i] = st
		remaining -= take
	}
	return remaining
}

// Remove takes quantity from the stack at slot. Shrinks or clears the
// slot; returns the removed stack or nil when the slot cannot cover it.
func (inv *Inventory) Remove(slot, quantity int) *ItemStack {
	st := inv.Get(slot)
	if st == nil || quantity <= 0 || st.Quantity < quantity {
		return nil
	}
	if st.Quantity == quantity {
		inv.slots[slot] = nil
		return st
	}
	st.Quantity -= quantity
	return &ItemStack{Item: st.Item, Quantity: quantity}
}

// Move swaps or merges the contents of two slots. Same-item stackable
// slots merge up to the stack limit; otherwise the slots swap.
func (inv *Inventory) Move(from, to int) bool {
	if from == to || inv.Get(from) == nil {
		return false
	}
	if to < 0 || to >= InventoryCapacity {
		return false
	}
	src, dst := inv.slots[from], inv.slots[to]
	if dst != nil && dst.Item == src.Item {
		tpl := inv.items.Get(src.Item)
		if tpl != nil && tpl.Stackable() && dst.Quantity < tpl.MaxStackSize {
			take := min(src.Quantity, tpl.MaxStackSize-dst.Quantity)
			dst.Quantity += take
			src.Quantity -= take
			if src.Quantity == 0 {
				inv.slots[from] = nil
			}
			return true
		}
	}
	inv.slots[from], inv.slots[to] = dst, src
	return true
}

// Sort compacts the inventory: stacks merge, then slots order by
// category and name.
func (inv *Inventory) Sort() {
	var stacks []*ItemStack
	for i, st := range inv.slots {
		if st != nil {
			stacks = append(stacks, st)
			inv.slots[i] = nil
		}
	}
	// Merge same-item stacks.
	merged := make([]*ItemStack, 0, len(stacks))
	for _, st := range stacks {
		tpl := inv.items.Get(st.Item)
		placed := false
		if tpl != nil && tpl.Stackable() {
			for _, m := range merged {
				if m.Item == st.Item && m.Quantity < tpl.MaxStackSize {
					take := min(st.Quantity, tpl.MaxStackSize-m.Quantity)
					m.Quantity += take
					st.Quantity -= take
					if st.Quantity == 0 {
						placed = true
						break
					}
				}
			}
		}
		if !placed {
			merged = append(merged, st)
		}
	}
	sort.SliceStable(merged, func(i, j int) bool {
		a, b := inv.items.Get(merged[i].Item), inv.items.Get(merged[j].Item)
		if a != nil && b != nil && a.Category != b.Category {
			return a.Category < b.Category
		}
		return merged[i].Item < merged[j].Item
	})
	for i, st := range merged {
		inv.slots[i] = st
	}
}

// Count sums the quantity of item across all slots.
func (inv *Inventory) Count(item string) int {
	n := 0
	for _, st := range inv.slots {
		if st != nil && st.Item == item {
			n += st.Quantity
		}
	}
	return n
}

// Slots iterates occupied slots in index order.
func (inv *Inventory) Slots(fn func(slot int, st *ItemStack)) {
	for i, st := range inv.slots {
		if st != nil {
			fn(i, st)
		}
	}
}

// Clear empties every slot and returns what was held, for death drops.
func (inv *Inventory) Clear() []*ItemStack {
	var out []*ItemStack
	for i, st := range inv.slots {
		if st != nil {
			out = append(out, st)
			inv.slots[i] = nil
		}
	}
	return out
}

// Views renders the wire form of every occupied slot.
func (inv *Inventory) Views() []proto.InventorySlotView {
	var out []proto.InventorySlotView
	inv.Slots(func(slot int, st *ItemStack) {
		out = append(out, proto.InventorySlotView{
			Slot: slot, Item: st.Item, Quantity: st.Quantity, Durability: st.Durability,
		})
	})
	return out
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
