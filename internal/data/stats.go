package data

// Stats is the fixed bonus vector carried by items and innate on monsters.
type Stats struct {
	Attack          int `msgpack:"attack" json:"attack"`
	Strength        int `msgpack:"strength" json:"strength"`
	RangedAttack    int `msgpack:"ranged_attack" json:"ranged_attack"`
	RangedStrength  int `msgpack:"ranged_strength" json:"ranged_strength"`
	MagicAttack     int `msgpack:"magic_attack" json:"magic_attack"`
	MagicDamage     int `msgpack:"magic_damage" json:"magic_damage"`
	PhysicalDefence int `msgpack:"physical_defence" json:"physical_defence"`
	MagicDefence    int `msgpack:"magic_defence" json:"magic_defence"`
	Health          int `msgpack:"health" json:"health"`
	Speed           int `msgpack:"speed" json:"speed"`
	Mining          int `msgpack:"mining" json:"mining"`
	Woodcutting     int `msgpack:"woodcutting" json:"woodcutting"`
	Fishing         int `msgpack:"fishing" json:"fishing"`
}

// Add returns the elementwise sum of two stat vectors.
func (s Stats) Add(o Stats) Stats {
	return Stats{
		Attack:          s.Attack + o.Attack,
		Strength:        s.Strength + o.Strength,
		RangedAttack:    s.RangedAttack + o.RangedAttack,
		RangedStrength:  s.RangedStrength + o.RangedStrength,
		MagicAttack:     s.MagicAttack + o.MagicAttack,
		MagicDamage:     s.MagicDamage + o.MagicDamage,
		PhysicalDefence: s.PhysicalDefence + o.PhysicalDefence,
		MagicDefence:    s.MagicDefence + o.MagicDefence,
		Health:          s.Health + o.Health,
		Speed:           s.Speed + o.Speed,
		Mining:          s.Mining + o.Mining,
		Woodcutting:     s.Woodcutting + o.Woodcutting,
		Fishing:         s.Fishing + o.Fishing,
	}
}

// ToMap flattens the vector for wire/DB use. Keys are stable.
func (s Stats) ToMap() map[string]int {
	return map[string]int{
		"attack":           s.Attack,
		"strength":         s.Strength,
		"ranged_attack":    s.RangedAttack,
		"ranged_strength":  s.RangedStrength,
		"magic_attack":     s.MagicAttack,
		"magic_damage":     s.MagicDamage,
		"physical_defence": s.PhysicalDefence,
		"magic_defence":    s.MagicDefence,
		"health":           s.Health,
		"speed":            s.Speed,
		"mining":           s.Mining,
		"woodcutting":      s.Woodcutting,
		"fishing":          s.Fishing,
	}
}
