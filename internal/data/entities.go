package data

import "fmt"

// Entity behaviors.
const (
	BehaviorPassive    = "passive"
	BehaviorNeutral    = "neutral"
	BehaviorAggressive = "aggressive"
	BehaviorGuard      = "guard"
	BehaviorMerchant   = "merchant"
	BehaviorQuestGiver = "quest_giver"
)

// EntityKind separates the template union variants.
type EntityKind string

const (
	KindMonster  EntityKind = "monster"
	KindHumanoid EntityKind = "humanoid"
)

// EntityTemplate is one row of the compile-time entity table, synced to
// the entities DB table at startup.
//
// Monsters carry innate stat bonuses; humanoid NPCs derive stats from
// EquippedItems and carry an Appearance instead of a sprite sheet.
type EntityTemplate struct {
	Name            string // unique key; matched by spawn point entity_id
	DisplayName     string
	Kind            EntityKind
	Behavior        string
	Level           int
	Skills          map[string]int // attack, strength, defence, hitpoints, ...
	Bonuses         Stats          // innate (monster only)
	SpriteSheet     string         // monster only
	Appearance      map[string]string // humanoid only, closed appearance enums
	EquippedItems   map[string]string // humanoid only: slot → item template name
	AggroRadius     int               // tiles; 0 disables aggro
	DisengageRadius int               // tiles from spawn before returning
	RespawnTicks    int               // hot ticks from death to respawn
	XPReward        int64
}

// MaxHP derives hit points from the hitpoints skill, defaulting to 10.
func (e *EntityTemplate) MaxHP() int {
	if hp, ok := e.Skills["hitpoints"]; ok && hp > 0 {
		return hp
	}
	return 10
}

// Attackable reports whether the template can be targeted in combat.
func (e *EntityTemplate) Attackable() bool {
	switch e.Behavior {
	case BehaviorMerchant, BehaviorQuestGiver:
		return false
	}
	return true
}

// EntityTable indexes entity templates by name.
type EntityTable struct {
	byName map[string]*EntityTemplate
	names  []string
}

func (t *EntityTable) Get(name string) *EntityTemplate { return t.byName[name] }
func (t *EntityTable) Count() int                      { return len(t.names) }

// All iterates templates in table order.
func (t *EntityTable) All(fn func(*EntityTemplate)) {
	for _, n := range t.names {
		fn(t.byName[n])
	}
}

func newEntityTable(rows []EntityTemplate) *EntityTable {
	t := &EntityTable{byName: make(map[string]*EntityTemplate, len(rows))}
	for i := range rows {
		e := &rows[i]
		if _, dup := t.byName[e.Name]; dup {
			panic(fmt.Sprintf("duplicate entity template %q", e.Name))
		}
		t.byName[e.Name] = e
		t.names = append(t.names, e.Name)
	}
	return t
}

// Entities returns the built-in entity-template table.
func Entities() *EntityTable { return entityTable }

var entityTable = newEntityTable([]EntityTemplate{
	{
		Name: "goblin", DisplayName: "Goblin", Kind: KindMonster,
		Behavior: BehaviorAggressive, Level: 2,
		Skills:      map[string]int{"attack": 3, "strength": 3, "defence": 2, "hitpoints": 12},
		Bonuses:     Stats{Attack: 2, Strength: 1},
		SpriteSheet: "mob_goblin", AggroRadius: 6, DisengageRadius: 14,
		RespawnTicks: 300, XPReward: 18,
	},
	{
		Name: "goblin_brute", DisplayName: "Goblin Brute", Kind: KindMonster,
		Behavior: BehaviorAggressive, Level: 6,
		Skills:      map[string]int{"attack": 7, "strength": 9, "defence": 5, "hitpoints": 26},
		Bonuses:     Stats{Attack: 4, Strength: 5, PhysicalDefence: 2},
		SpriteSheet: "mob_goblin_brute", AggroRadius: 8, DisengageRadius: 16,
		RespawnTicks: 600, XPReward: 55,
	},
	{
		Name: "grey_wolf", DisplayName: "Grey Wolf", Kind: KindMonster,
		Behavior: BehaviorNeutral, Level: 4,
		Skills:      map[string]int{"attack": 5, "strength": 5, "defence": 3, "hitpoints": 18},
		Bonuses:     Stats{Attack: 3, Strength: 2, Speed: 1},
		SpriteSheet: "mob_grey_wolf", AggroRadius: 0, DisengageRadius: 12,
		RespawnTicks: 400, XPReward: 30,
	},
	{
		Name: "meadow_rat", DisplayName: "Meadow Rat", Kind: KindMonster,
		Behavior: BehaviorPassive, Level: 1,
		Skills:      map[string]int{"attack": 1, "strength": 1, "defence": 1, "hitpoints": 5},
		SpriteSheet: "mob_meadow_rat", AggroRadius: 0, DisengageRadius: 8,
		RespawnTicks: 200, XPReward: 6,
	},
	{
		Name: "cave_spider", DisplayName: "Cave Spider", Kind: KindMonster,
		Behavior: BehaviorAggressive, Level: 9,
		Skills:      map[string]int{"attack": 11, "strength": 10, "defence": 8, "hitpoints": 34},
		Bonuses:     Stats{Attack: 6, Strength: 4, MagicDefence: 3},
		SpriteSheet: "mob_cave_spider", AggroRadius: 10, DisengageRadius: 18,
		RespawnTicks: 800, XPReward: 90,
	},
	{
		Name: "town_guard", DisplayName: "Town Guard", Kind: KindHumanoid,
		Behavior: BehaviorGuard, Level: 15,
		Skills: map[string]int{"attack": 18, "strength": 16, "defence": 20, "hitpoints": 60},
		Appearance: map[string]string{
			"body_type": "a", "skin_tone": "medium", "head_type": "a",
			"hair_style": "short", "hair_color": "brown", "eye_color": "brown",
			"facial_hair_style": "none", "facial_hair_color": "brown",
			"shirt_style": "plain", "shirt_color": "navy",
			"pants_style": "plain", "pants_color": "charcoal",
			"shoes_style": "boots", "shoes_color": "black",
		},
		EquippedItems: map[string]string{
			SlotMainHand: "iron_shortsword",
			SlotBody:     "iron_chainmail",
			SlotHead:     "leather_cap",
		},
		AggroRadius: 0, DisengageRadius: 10, RespawnTicks: 1200, XPReward: 0,
	},
	{
		Name: "village_merchant", DisplayName: "Village Merchant", Kind: KindHumanoid,
		Behavior: BehaviorMerchant, Level: 3,
		Skills: map[string]int{"hitpoints": 20},
		Appearance: map[string]string{
			"body_type": "b", "skin_tone": "tan", "head_type": "b",
			"hair_style": "bald", "hair_color": "black", "eye_color": "green",
			"facial_hair_style": "full_beard", "facial_hair_color": "black",
			"shirt_style": "tunic", "shirt_color": "maroon",
			"pants_style": "plain", "pants_color": "brown",
			"shoes_style": "shoes", "shoes_color": "brown",
		},
		EquippedItems: map[string]string{SlotBelt: "leather_belt"},
		AggroRadius:   0, DisengageRadius: 6, RespawnTicks: 1200, XPReward: 0,
	},
	{
		Name: "old_fisherman", DisplayName: "Old Fisherman", Kind: KindHumanoid,
		Behavior: BehaviorQuestGiver, Level: 2,
		Skills: map[string]int{"hitpoints": 15},
		Appearance: map[string]string{
			"body_type": "a", "skin_tone": "pale", "head_type": "c",
			"hair_style": "long", "hair_color": "grey", "eye_color": "blue",
			"facial_hair_style": "moustache", "facial_hair_color": "grey",
			"shirt_style": "tunic", "shirt_color": "olive",
			"pants_style": "rolled", "pants_color": "navy",
			"shoes_style": "none", "shoes_color": "none",
		},
		EquippedItems: map[string]string{SlotMainHand: "fishing_rod"},
		AggroRadius:   0, DisengageRadius: 4, RespawnTicks: 1200, XPReward: 0,
	},
})
