package world

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gridrealm/server/internal/data"
)

func TestInventoryStacking(t *testing.T) {
	inv := NewInventory(data.Items())

	// An existing partial stack tops up before a new slot opens.
	require.Zero(t, inv.Add("copper_ore", 30))
	require.Zero(t, inv.Add("copper_ore", 75))
	require.Equal(t, 105, inv.Count("copper_ore"))

	// 105 ore at 50/stack occupies exactly three slots.
	occupied := 0
	inv.Slots(func(_ int, st *ItemStack) {
		occupied++
		require.LessOrEqual(t, st.Quantity, 50)
	})
	require.Equal(t, 3, occupied)
}

func TestInventoryUnstackableFillsSlots(t *testing.T) {
	inv := NewInventory(data.Items())
	require.Zero(t, inv.Add("bronze_shortsword", 2))

	occupied := 0
	inv.Slots(func(_ int, st *ItemStack) {
		occupied++
		require.Equal(t, 1, st.Quantity)
		require.NotNil(t, st.Durability)
	})
	require.Equal(t, 2, occupied)
}

func TestInventoryOverflow(t *testing.T) {
	inv := NewInventory(data.Items())
	// 28 slots * 50/stack = 1400 ore capacity.
	require.True(t, inv.CanAdd("copper_ore", 1400))
	require.False(t, inv.CanAdd("copper_ore", 1401))

	leftover := inv.Add("copper_ore", 1450)
	require.Equal(t, 50, leftover)
	require.Equal(t, 1400, inv.Count("copper_ore"))
	require.Zero(t, inv.FreeSlots())
}

func TestInventoryRemove(t *testing.T) {
	inv := NewInventory(data.Items())
	inv.Add("copper_ore", 30)

	taken := inv.Remove(0, 10)
	require.NotNil(t, taken)
	require.Equal(t, 10, taken.Quantity)
	require.Equal(t, 20, inv.Count("copper_ore"))

	// Removing more than held fails without mutating.
	require.Nil(t, inv.Remove(0, 99))
	require.Equal(t, 20, inv.Count("copper_ore"))

	// Exact removal clears the slot.
	require.NotNil(t, inv.Remove(0, 20))
	require.Nil(t, inv.Get(0))
}

func TestInventoryMoveAndMerge(t *testing.T) {
	inv := NewInventory(data.Items())
	inv.Set(0, &ItemStack{Item: "copper_ore", Quantity: 40})
	inv.Set(5, &ItemStack{Item: "copper_ore", Quantity: 30})

	// Merging respects the stack cap: 40+30 → 50 and 20.
	require.True(t, inv.Move(5, 0))
	require.Equal(t, 50, inv.Get(0).Quantity)
	require.Equal(t, 20, inv.Get(5).Quantity)

	// Different items swap.
	inv.Set(1, &ItemStack{Item: "oak_log", Quantity: 3})
	require.True(t, inv.Move(1, 5))
	require.Equal(t, "oak_log", inv.Get(5).Item)
	require.Equal(t, "copper_ore", inv.Get(1).Item)

	// Moving from an empty slot is rejected.
	require.False(t, inv.Move(20, 0))
}

func TestInventorySort(t *testing.T) {
	inv := NewInventory(data.Items())
	inv.Set(27, &ItemStack{Item: "copper_ore", Quantity: 10})
	inv.Set(3, &ItemStack{Item: "oak_log", Quantity: 5})
	inv.Set(15, &ItemStack{Item: "copper_ore", Quantity: 15})

	inv.Sort()

	// Stacks merged and compacted to the front.
	require.Equal(t, 25, inv.Get(0).Quantity)
	require.Equal(t, "copper_ore", inv.Get(0).Item)
	require.Equal(t, "oak_log", inv.Get(1).Item)
	require.Nil(t, inv.Get(2))
}

func TestEquipmentRules(t *testing.T) {
	items := data.Items()
	eq := NewEquipment(items)
	level1 := func(string) int { return 1 }
	level20 := func(string) int { return 20 }

	// Level gate.
	iron := items.Get("iron_shortsword")
	require.NotNil(t, eq.CanEquip(iron, level1))
	require.Nil(t, eq.CanEquip(iron, level20))

	// Non-equippables are rejected.
	require.NotNil(t, eq.CanEquip(items.Get("copper_ore"), level20))

	// Two-handed weapons demand an empty off-hand.
	eq.Set(data.SlotOffHand, &ItemStack{Item: "wooden_shield", Quantity: 1})
	great := items.Get("iron_greatsword")
	werr := eq.CanEquip(great, level20)
	require.NotNil(t, werr)
	require.Equal(t, "EQUIP_TWO_HANDED_CONFLICT", werr.Code)

	// And a shield cannot join a two-handed main hand.
	eq = NewEquipment(items)
	eq.Set(data.SlotMainHand, &ItemStack{Item: "iron_greatsword", Quantity: 1})
	werr = eq.CanEquip(items.Get("wooden_shield"), level20)
	require.NotNil(t, werr)
}

func TestEquipDisplacesAndTotals(t *testing.T) {
	items := data.Items()
	eq := NewEquipment(items)
	level := func(string) int { return 20 }

	sword := items.Get("bronze_shortsword")
	require.Nil(t, eq.CanEquip(sword, level))
	require.Nil(t, eq.Equip(sword, &ItemStack{Item: sword.Name, Quantity: 1}))

	// Equipping into an occupied slot displaces the old item.
	iron := items.Get("iron_shortsword")
	displaced := eq.Equip(iron, &ItemStack{Item: iron.Name, Quantity: 1})
	require.NotNil(t, displaced)
	require.Equal(t, "bronze_shortsword", displaced.Item)

	eq.Set(data.SlotBody, &ItemStack{Item: "leather_tunic", Quantity: 1})
	totals := eq.StatTotals()
	require.Equal(t, 8, totals.Attack)
	require.Equal(t, 4, totals.PhysicalDefence)

	vis := eq.Visuals()
	require.Contains(t, vis, data.SlotMainHand)
	require.Equal(t, "#8b5a2b", vis[data.SlotBody].Tint)
}

func TestUnequip(t *testing.T) {
	eq := NewEquipment(data.Items())
	eq.Set(data.SlotHead, &ItemStack{Item: "leather_cap", Quantity: 1})

	st, werr := eq.Unequip(data.SlotHead)
	require.Nil(t, werr)
	require.Equal(t, "leather_cap", st.Item)

	_, werr = eq.Unequip(data.SlotHead)
	require.NotNil(t, werr)
	require.Equal(t, "EQUIP_SLOT_EMPTY", werr.Code)

	_, werr = eq.Unequip("ring")
	require.NotNil(t, werr)
	require.Equal(t, "EQUIP_WRONG_SLOT", werr.Code)
}

func TestSkillLevels(t *testing.T) {
	s := NewSkillSet()
	require.Equal(t, 1, s.Level("attack"))

	require.True(t, s.AddXP("attack", 100)) // level 2 threshold
	require.Equal(t, 2, s.Level("attack"))
	require.False(t, s.AddXP("attack", 1))

	s.SetXP("mining", 4500)
	require.Equal(t, 10, s.Level("mining"))
}
