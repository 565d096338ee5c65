package data

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ChunkSize is the side length of a map chunk in tiles.
const ChunkSize = 16

// manifest mirrors data/maps/worlds.yaml.
type manifest struct {
	Maps []manifestMap `yaml:"maps"`
}

type manifestMap struct {
	ID          string `yaml:"id"`
	DisplayName string `yaml:"display_name"`
	File        string `yaml:"file"`
	SpawnX      int    `yaml:"spawn_x"`
	SpawnY      int    `yaml:"spawn_y"`
	Default     bool   `yaml:"default"`
}

// MapInfo couples a parsed TileMap with its manifest entry.
type MapInfo struct {
	*TileMap
	DisplayName string
	SpawnX      int // player spawn / respawn tile
	SpawnY      int
}

// Chunk extracts the 16x16 chunk at chunk coordinates (cx, cy). Layers
// are row-major ChunkSize*ChunkSize slices; tiles outside the map are 0.
func (m *MapInfo) Chunk(cx, cy int) map[string][]int {
	out := make(map[string][]int, len(m.LayerOrder))
	baseX, baseY := cx*ChunkSize, cy*ChunkSize
	for _, name := range m.LayerOrder {
		grid := make([]int, ChunkSize*ChunkSize)
		for dy := 0; dy < ChunkSize; dy++ {
			for dx := 0; dx < ChunkSize; dx++ {
				grid[dy*ChunkSize+dx] = m.TileAt(name, baseX+dx, baseY+dy)
			}
		}
		out[name] = grid
	}
	return out
}

// MapSet is the loaded world: every map indexed by ID.
type MapSet struct {
	byID      map[string]*MapInfo
	ids       []string
	defaultID string
}

// LoadMapSet reads the YAML manifest at path and parses every TMX map
// it references, relative to the manifest's directory.
func LoadMapSet(path string) (*MapSet, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read map manifest: %w", err)
	}
	var mf manifest
	if err := yaml.Unmarshal(raw, &mf); err != nil {
		return nil, fmt.Errorf("parse map manifest: %w", err)
	}
	if len(mf.Maps) == 0 {
		return nil, fmt.Errorf("map manifest %s lists no maps", path)
	}

	dir := filepath.Dir(path)
	set := &MapSet{byID: make(map[string]*MapInfo, len(mf.Maps))}
	for _, entry := range mf.Maps {
		if entry.ID == "" || entry.File == "" {
			return nil, fmt.Errorf("map manifest: entry missing id or file")
		}
		if _, dup := set.byID[entry.ID]; dup {
			return nil, fmt.Errorf("map manifest: duplicate map id %q", entry.ID)
		}
		tm, err := LoadTMX(entry.ID, filepath.Join(dir, entry.File))
		if err != nil {
			return nil, err
		}
		info := &MapInfo{
			TileMap:     tm,
			DisplayName: entry.DisplayName,
			SpawnX:      entry.SpawnX,
			SpawnY:      entry.SpawnY,
		}
		if tm.IsBlocked(entry.SpawnX, entry.SpawnY) {
			return nil, fmt.Errorf("map %s: spawn (%d,%d) is blocked", entry.ID, entry.SpawnX, entry.SpawnY)
		}
		set.byID[entry.ID] = info
		set.ids = append(set.ids, entry.ID)
		if entry.Default || set.defaultID == "" {
			set.defaultID = entry.ID
		}
	}
	return set, nil
}

// NewMapSet builds a set from already parsed maps. Used by tests and
// tools; the first map becomes the default.
func NewMapSet(maps ...*MapInfo) *MapSet {
	set := &MapSet{byID: make(map[string]*MapInfo, len(maps))}
	for _, m := range maps {
		set.byID[m.ID] = m
		set.ids = append(set.ids, m.ID)
		if set.defaultID == "" {
			set.defaultID = m.ID
		}
	}
	return set
}

// Get returns the map with the given ID, or nil.
func (s *MapSet) Get(id string) *MapInfo { return s.byID[id] }

// DefaultID returns the ID new players spawn into.
func (s *MapSet) DefaultID() string { return s.defaultID }

// IDs returns map IDs in manifest order.
func (s *MapSet) IDs() []string { return s.ids }

// Count returns the number of loaded maps.
func (s *MapSet) Count() int { return len(s.ids) }
