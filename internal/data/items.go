package data

import "fmt"

// Equipment slot names. The visible slots drive visual-state hashing.
const (
	SlotHead     = "head"
	SlotBody     = "body"
	SlotLegs     = "legs"
	SlotFeet     = "feet"
	SlotHands    = "hands"
	SlotMainHand = "main_hand"
	SlotOffHand  = "off_hand"
	SlotBack     = "back"
	SlotBelt     = "belt"
)

// VisibleSlots lists every equipment slot that contributes to the visual state.
var VisibleSlots = []string{
	SlotHead, SlotBody, SlotLegs, SlotFeet, SlotHands,
	SlotMainHand, SlotOffHand, SlotBack, SlotBelt,
}

// ValidSlot reports whether name is a recognized equipment slot.
func ValidSlot(name string) bool {
	for _, s := range VisibleSlots {
		if s == name {
			return true
		}
	}
	return false
}

// Item categories.
const (
	CatWeapon     = "weapon"
	CatArmor      = "armor"
	CatTool       = "tool"
	CatResource   = "resource"
	CatConsumable = "consumable"
)

// ItemTemplate is one row of the compile-time item table, synced to the
// items DB table at startup.
type ItemTemplate struct {
	Name          string // unique key
	DisplayName   string
	Category      string
	Rarity        string
	EquipmentSlot string // "" = not equippable
	MaxStackSize  int
	TwoHanded     bool
	MaxDurability int    // 0 = indestructible
	RequiredSkill string // "" = none
	RequiredLevel int
	Tradeable     bool
	BaseValue     int
	Stats         Stats
	Sprite        string // equipped sprite identifier ("" = invisible when worn)
	Tint          string // optional hex tint for the equipped sprite
}

// Stackable reports whether more than one of the item fits in a slot.
func (it *ItemTemplate) Stackable() bool { return it.MaxStackSize > 1 }

// Equippable reports whether the item goes into an equipment slot.
func (it *ItemTemplate) Equippable() bool { return it.EquipmentSlot != "" }

// ItemTable indexes the item templates by name.
type ItemTable struct {
	byName map[string]*ItemTemplate
	names  []string // insertion order, for deterministic DB sync
}

// Get returns the template for name, or nil.
func (t *ItemTable) Get(name string) *ItemTemplate { return t.byName[name] }

// Count returns the number of templates.
func (t *ItemTable) Count() int { return len(t.names) }

// All iterates templates in table order.
func (t *ItemTable) All(fn func(*ItemTemplate)) {
	for _, n := range t.names {
		fn(t.byName[n])
	}
}

func newItemTable(items []ItemTemplate) *ItemTable {
	t := &ItemTable{byName: make(map[string]*ItemTemplate, len(items))}
	for i := range items {
		it := &items[i]
		if _, dup := t.byName[it.Name]; dup {
			panic(fmt.Sprintf("duplicate item template %q", it.Name))
		}
		t.byName[it.Name] = it
		t.names = append(t.names, it.Name)
	}
	return t
}

// Items returns the built-in item table.
func Items() *ItemTable { return itemTable }

var itemTable = newItemTable([]ItemTemplate{
	// Weapons
	{
		Name: "bronze_shortsword", DisplayName: "Bronze Shortsword", Category: CatWeapon,
		Rarity: "common", EquipmentSlot: SlotMainHand, MaxStackSize: 1, MaxDurability: 120,
		RequiredSkill: "attack", RequiredLevel: 1, Tradeable: true, BaseValue: 25,
		Stats: Stats{Attack: 4, Strength: 3}, Sprite: "weapon_bronze_shortsword",
	},
	{
		Name: "iron_shortsword", DisplayName: "Iron Shortsword", Category: CatWeapon,
		Rarity: "common", EquipmentSlot: SlotMainHand, MaxStackSize: 1, MaxDurability: 160,
		RequiredSkill: "attack", RequiredLevel: 5, Tradeable: true, BaseValue: 70,
		Stats: Stats{Attack: 8, Strength: 6}, Sprite: "weapon_iron_shortsword",
	},
	{
		Name: "iron_greatsword", DisplayName: "Iron Greatsword", Category: CatWeapon,
		Rarity: "uncommon", EquipmentSlot: SlotMainHand, MaxStackSize: 1, TwoHanded: true,
		MaxDurability: 180, RequiredSkill: "attack", RequiredLevel: 10, Tradeable: true,
		BaseValue: 180, Stats: Stats{Attack: 14, Strength: 15}, Sprite: "weapon_iron_greatsword",
	},
	{
		Name: "oak_shortbow", DisplayName: "Oak Shortbow", Category: CatWeapon,
		Rarity: "common", EquipmentSlot: SlotMainHand, MaxStackSize: 1, TwoHanded: true,
		MaxDurability: 100, RequiredSkill: "ranged", RequiredLevel: 1, Tradeable: true,
		BaseValue: 40, Stats: Stats{RangedAttack: 6, RangedStrength: 5}, Sprite: "weapon_oak_shortbow",
	},
	{
		Name: "apprentice_wand", DisplayName: "Apprentice Wand", Category: CatWeapon,
		Rarity: "common", EquipmentSlot: SlotMainHand, MaxStackSize: 1, MaxDurability: 90,
		RequiredSkill: "magic", RequiredLevel: 1, Tradeable: true, BaseValue: 55,
		Stats: Stats{MagicAttack: 7, MagicDamage: 4}, Sprite: "weapon_apprentice_wand",
	},

	// Shields & armor
	{
		Name: "wooden_shield", DisplayName: "Wooden Shield", Category: CatArmor,
		Rarity: "common", EquipmentSlot: SlotOffHand, MaxStackSize: 1, MaxDurability: 140,
		RequiredLevel: 1, Tradeable: true, BaseValue: 30,
		Stats: Stats{PhysicalDefence: 5}, Sprite: "shield_wooden",
	},
	{
		Name: "leather_cap", DisplayName: "Leather Cap", Category: CatArmor,
		Rarity: "common", EquipmentSlot: SlotHead, MaxStackSize: 1, MaxDurability: 90,
		RequiredLevel: 1, Tradeable: true, BaseValue: 15,
		Stats: Stats{PhysicalDefence: 2}, Sprite: "armor_leather_cap", Tint: "#8b5a2b",
	},
	{
		Name: "leather_tunic", DisplayName: "Leather Tunic", Category: CatArmor,
		Rarity: "common", EquipmentSlot: SlotBody, MaxStackSize: 1, MaxDurability: 110,
		RequiredLevel: 1, Tradeable: true, BaseValue: 25,
		Stats: Stats{PhysicalDefence: 4}, Sprite: "armor_leather_tunic", Tint: "#8b5a2b",
	},
	{
		Name: "leather_trousers", DisplayName: "Leather Trousers", Category: CatArmor,
		Rarity: "common", EquipmentSlot: SlotLegs, MaxStackSize: 1, MaxDurability: 100,
		RequiredLevel: 1, Tradeable: true, BaseValue: 20,
		Stats: Stats{PhysicalDefence: 3}, Sprite: "armor_leather_trousers", Tint: "#8b5a2b",
	},
	{
		Name: "leather_boots", DisplayName: "Leather Boots", Category: CatArmor,
		Rarity: "common", EquipmentSlot: SlotFeet, MaxStackSize: 1, MaxDurability: 80,
		RequiredLevel: 1, Tradeable: true, BaseValue: 12,
		Stats: Stats{PhysicalDefence: 1}, Sprite: "armor_leather_boots",
	},
	{
		Name: "leather_gloves", DisplayName: "Leather Gloves", Category: CatArmor,
		Rarity: "common", EquipmentSlot: SlotHands, MaxStackSize: 1, MaxDurability: 80,
		RequiredLevel: 1, Tradeable: true, BaseValue: 12,
		Stats: Stats{PhysicalDefence: 1}, Sprite: "armor_leather_gloves",
	},
	{
		Name: "iron_chainmail", DisplayName: "Iron Chainmail", Category: CatArmor,
		Rarity: "uncommon", EquipmentSlot: SlotBody, MaxStackSize: 1, MaxDurability: 200,
		RequiredSkill: "defence", RequiredLevel: 10, Tradeable: true, BaseValue: 210,
		Stats: Stats{PhysicalDefence: 11, MagicDefence: 2}, Sprite: "armor_iron_chainmail",
	},
	{
		Name: "wool_cloak", DisplayName: "Wool Cloak", Category: CatArmor,
		Rarity: "common", EquipmentSlot: SlotBack, MaxStackSize: 1, MaxDurability: 70,
		RequiredLevel: 1, Tradeable: true, BaseValue: 18,
		Stats: Stats{MagicDefence: 2}, Sprite: "armor_wool_cloak", Tint: "#4a6b3a",
	},
	{
		Name: "leather_belt", DisplayName: "Leather Belt", Category: CatArmor,
		Rarity: "common", EquipmentSlot: SlotBelt, MaxStackSize: 1, MaxDurability: 90,
		RequiredLevel: 1, Tradeable: true, BaseValue: 10,
		Stats: Stats{}, Sprite: "armor_leather_belt",
	},

	// Tools
	{
		Name: "bronze_pickaxe", DisplayName: "Bronze Pickaxe", Category: CatTool,
		Rarity: "common", EquipmentSlot: SlotMainHand, MaxStackSize: 1, MaxDurability: 150,
		RequiredSkill: "mining", RequiredLevel: 1, Tradeable: true, BaseValue: 32,
		Stats: Stats{Mining: 3, Attack: 1, Strength: 1}, Sprite: "tool_bronze_pickaxe",
	},
	{
		Name: "bronze_hatchet", DisplayName: "Bronze Hatchet", Category: CatTool,
		Rarity: "common", EquipmentSlot: SlotMainHand, MaxStackSize: 1, MaxDurability: 150,
		RequiredSkill: "woodcutting", RequiredLevel: 1, Tradeable: true, BaseValue: 32,
		Stats: Stats{Woodcutting: 3, Attack: 1, Strength: 1}, Sprite: "tool_bronze_hatchet",
	},
	{
		Name: "fishing_rod", DisplayName: "Fishing Rod", Category: CatTool,
		Rarity: "common", EquipmentSlot: SlotMainHand, MaxStackSize: 1, MaxDurability: 120,
		RequiredSkill: "fishing", RequiredLevel: 1, Tradeable: true, BaseValue: 20,
		Stats: Stats{Fishing: 3}, Sprite: "tool_fishing_rod",
	},

	// Resources & consumables
	{
		Name: "copper_ore", DisplayName: "Copper Ore", Category: CatResource,
		Rarity: "common", MaxStackSize: 50, Tradeable: true, BaseValue: 4,
	},
	{
		Name: "tin_ore", DisplayName: "Tin Ore", Category: CatResource,
		Rarity: "common", MaxStackSize: 50, Tradeable: true, BaseValue: 4,
	},
	{
		Name: "oak_log", DisplayName: "Oak Log", Category: CatResource,
		Rarity: "common", MaxStackSize: 50, Tradeable: true, BaseValue: 3,
	},
	{
		Name: "raw_trout", DisplayName: "Raw Trout", Category: CatResource,
		Rarity: "common", MaxStackSize: 20, Tradeable: true, BaseValue: 6,
	},
	{
		Name: "cooked_trout", DisplayName: "Cooked Trout", Category: CatConsumable,
		Rarity: "common", MaxStackSize: 20, Tradeable: true, BaseValue: 10,
		Stats: Stats{Health: 6},
	},
	{
		Name: "minor_health_potion", DisplayName: "Minor Health Potion", Category: CatConsumable,
		Rarity: "common", MaxStackSize: 10, Tradeable: true, BaseValue: 22,
		Stats: Stats{Health: 15},
	},
	{
		Name: "gold_coin", DisplayName: "Gold Coin", Category: CatResource,
		Rarity: "common", MaxStackSize: 1_000_000, Tradeable: true, BaseValue: 1,
	},
})
