package data

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestItemTable(t *testing.T) {
	items := Items()
	require.Greater(t, items.Count(), 20)

	sword := items.Get("bronze_shortsword")
	require.NotNil(t, sword)
	require.True(t, sword.Equippable())
	require.False(t, sword.Stackable())
	require.Equal(t, SlotMainHand, sword.EquipmentSlot)
	require.Equal(t, 4, sword.Stats.Attack)
	require.Equal(t, 3, sword.Stats.Strength)

	ore := items.Get("copper_ore")
	require.NotNil(t, ore)
	require.True(t, ore.Stackable())
	require.Equal(t, 50, ore.MaxStackSize)
	require.False(t, ore.Equippable())

	require.Nil(t, items.Get("no_such_item"))
}

func TestEquippedItemRefsResolve(t *testing.T) {
	// Every humanoid's equipped_items must name real, equippable
	// templates in matching slots.
	items := Items()
	Entities().All(func(e *EntityTemplate) {
		for slot, name := range e.EquippedItems {
			it := items.Get(name)
			require.NotNil(t, it, "entity %s references unknown item %s", e.Name, name)
			require.Equal(t, slot, it.EquipmentSlot, "entity %s: item %s in wrong slot", e.Name, name)
		}
	})
}

func TestEntityTable(t *testing.T) {
	ents := Entities()

	goblin := ents.Get("goblin")
	require.NotNil(t, goblin)
	require.Equal(t, BehaviorAggressive, goblin.Behavior)
	require.Equal(t, 12, goblin.MaxHP())
	require.True(t, goblin.Attackable())

	merchant := ents.Get("village_merchant")
	require.NotNil(t, merchant)
	require.False(t, merchant.Attackable())

	// MaxHP falls back to 10 when the template omits hitpoints.
	bare := EntityTemplate{Name: "bare"}
	require.Equal(t, 10, bare.MaxHP())
}

func TestStatsAddAndMap(t *testing.T) {
	a := Stats{Attack: 2, PhysicalDefence: 1}
	b := Stats{Attack: 3, Mining: 4}
	sum := a.Add(b)
	require.Equal(t, 5, sum.Attack)
	require.Equal(t, 1, sum.PhysicalDefence)
	require.Equal(t, 4, sum.Mining)

	m := sum.ToMap()
	require.Equal(t, 5, m["attack"])
	require.Len(t, m, 13)
}

func TestValidSlot(t *testing.T) {
	require.True(t, ValidSlot(SlotMainHand))
	require.True(t, ValidSlot(SlotBelt))
	require.False(t, ValidSlot("ring"))
}
