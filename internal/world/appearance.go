// Package world holds per-session runtime state and the visual-state
// machinery: appearance values, visual fingerprints, inventories and
// equipment, and the session registry the tick loop broadcasts through.
package world

import (
	"fmt"

	"github.com/gridrealm/server/internal/proto"
)

// Appearance field names, in canonical order.
var appearanceFields = []string{
	"body_type", "skin_tone", "head_type",
	"hair_style", "hair_color", "eye_color",
	"facial_hair_style", "facial_hair_color",
	"shirt_style", "shirt_color",
	"pants_style", "pants_color",
	"shoes_style", "shoes_color",
}

// appearanceEnums lists every legal value per field. The enums are
// closed: unknown values are rejected before they reach the hot store.
var appearanceEnums = map[string][]string{
	"body_type": {"a", "b", "c"},
	"skin_tone": {"pale", "light", "tan", "medium", "brown", "dark"},
	"head_type": {"a", "b", "c"},
	"hair_style": {
		"bald", "short", "medium", "long", "ponytail", "bun", "mohawk", "curly",
	},
	"hair_color": {
		"black", "brown", "blonde", "auburn", "red", "grey", "white", "blue", "green",
	},
	"eye_color":         {"brown", "blue", "green", "grey", "hazel", "amber"},
	"facial_hair_style": {"none", "moustache", "goatee", "full_beard", "stubble"},
	"facial_hair_color": {
		"black", "brown", "blonde", "auburn", "red", "grey", "white",
	},
	"shirt_style": {"plain", "tunic", "vest", "robe"},
	"shirt_color": {
		"white", "black", "charcoal", "brown", "navy", "maroon", "olive", "teal", "mustard",
	},
	"pants_style": {"plain", "shorts", "rolled", "skirt"},
	"pants_color": {
		"white", "black", "charcoal", "brown", "navy", "maroon", "olive",
	},
	"shoes_style": {"none", "shoes", "boots", "sandals"},
	"shoes_color": {"none", "black", "brown", "grey", "white"},
}

// Appearance is the validated 14-field customization value.
type Appearance struct {
	fields map[string]string
}

// DefaultAppearance is the new-character look.
func DefaultAppearance() Appearance {
	return Appearance{fields: map[string]string{
		"body_type": "a", "skin_tone": "light", "head_type": "a",
		"hair_style": "short", "hair_color": "brown", "eye_color": "brown",
		"facial_hair_style": "none", "facial_hair_color": "brown",
		"shirt_style": "plain", "shirt_color": "white",
		"pants_style": "plain", "pants_color": "navy",
		"shoes_style": "shoes", "shoes_color": "brown",
	}}
}

// AppearanceFromMap validates m as a complete appearance. Missing
// fields, extra fields, and out-of-enum values all fail.
func AppearanceFromMap(m map[string]string) (Appearance, error) {
	if len(m) != len(appearanceFields) {
		return Appearance{}, proto.Errorf(proto.ErrAppearanceInvalid, proto.CategoryValidation,
			fmt.Sprintf("appearance needs exactly %d fields, got %d", len(appearanceFields), len(m)))
	}
	fields := make(map[string]string, len(appearanceFields))
	for _, name := range appearanceFields {
		v, ok := m[name]
		if !ok {
			return Appearance{}, proto.Errorf(proto.ErrAppearanceInvalid, proto.CategoryValidation,
				"appearance missing field "+name)
		}
		if !enumContains(appearanceEnums[name], v) {
			return Appearance{}, proto.Errorf(proto.ErrAppearanceInvalid, proto.CategoryValidation,
				fmt.Sprintf("appearance field %s: invalid value %q", name, v))
		}
		fields[name] = v
	}
	return Appearance{fields: fields}, nil
}

// ToMap returns a copy of the field map.
func (a Appearance) ToMap() map[string]string {
	out := make(map[string]string, len(a.fields))
	for k, v := range a.fields {
		out[k] = v
	}
	return out
}

// Get returns one field's value.
func (a Appearance) Get(field string) string { return a.fields[field] }

func enumContains(vals []string, v string) bool {
	for _, x := range vals {
		if x == v {
			return true
		}
	}
	return false
}
