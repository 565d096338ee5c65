package data

import (
	"encoding/xml"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Tiled TMX map loading. Only the subset the server needs is parsed:
// CSV-encoded tile layers, the collision layer, and the spawns object
// group. Rendering-only features (animations, imagelayers) are ignored.

const (
	collisionLayerName = "collision"
	spawnsGroupName    = "spawns"
)

type tmxMap struct {
	XMLName      xml.Name         `xml:"map"`
	Width        int              `xml:"width,attr"`
	Height       int              `xml:"height,attr"`
	TileWidth    int              `xml:"tilewidth,attr"`
	TileHeight   int              `xml:"tileheight,attr"`
	Tilesets     []tmxTileset     `xml:"tileset"`
	Layers       []tmxLayer       `xml:"layer"`
	ObjectGroups []tmxObjectGroup `xml:"objectgroup"`
}

type tmxTileset struct {
	FirstGID int    `xml:"firstgid,attr"`
	Name     string `xml:"name,attr"`
	Source   string `xml:"source,attr"`
}

type tmxLayer struct {
	Name   string  `xml:"name,attr"`
	Width  int     `xml:"width,attr"`
	Height int     `xml:"height,attr"`
	Data   tmxData `xml:"data"`
}

type tmxData struct {
	Encoding string `xml:"encoding,attr"`
	Raw      string `xml:",chardata"`
}

type tmxObjectGroup struct {
	Name    string      `xml:"name,attr"`
	Objects []tmxObject `xml:"object"`
}

type tmxObject struct {
	ID         int           `xml:"id,attr"`
	Name       string        `xml:"name,attr"`
	X          float64       `xml:"x,attr"`
	Y          float64       `xml:"y,attr"`
	Properties []tmxProperty `xml:"properties>property"`
}

type tmxProperty struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

// TilesetRef describes one tileset the client must load to render the map.
type TilesetRef struct {
	FirstGID int    `yaml:"first_gid" json:"first_gid"`
	Name     string `yaml:"name" json:"name"`
	Source   string `yaml:"source" json:"source"`
}

// SpawnPoint is one entity spawn placed in the spawns object group.
type SpawnPoint struct {
	EntityID          string // entity template name
	X, Y              int    // tile coordinates
	WanderRadius      int
	AggroOverride     int // -1 = use template
	DisengageOverride int // -1 = use template
}

// TileMap is a fully parsed map: layered tile grids plus the derived
// collision grid and spawn list.
type TileMap struct {
	ID         string
	Width      int // tiles
	Height     int
	TileSize   int
	Tilesets   []TilesetRef
	LayerOrder []string
	Layers     map[string][]int // row-major, gid 0 = empty
	Blocked    []bool           // row-major collision grid
	Spawns     []SpawnPoint
}

// InBounds reports whether the tile coordinate lies on the map.
func (m *TileMap) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < m.Width && y < m.Height
}

// IsBlocked reports whether the tile is impassable. Out-of-bounds tiles
// are always blocked.
func (m *TileMap) IsBlocked(x, y int) bool {
	if !m.InBounds(x, y) {
		return true
	}
	return m.Blocked[y*m.Width+x]
}

// TileAt returns the gid at (x, y) on the named layer, 0 if empty or
// out of bounds.
func (m *TileMap) TileAt(layer string, x, y int) int {
	if !m.InBounds(x, y) {
		return 0
	}
	grid, ok := m.Layers[layer]
	if !ok {
		return 0
	}
	return grid[y*m.Width+x]
}

// LoadTMX parses a Tiled TMX file into a TileMap.
func LoadTMX(id, path string) (*TileMap, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read map %s: %w", id, err)
	}
	return ParseTMX(id, raw)
}

// ParseTMX parses TMX bytes. Split from LoadTMX so tests can feed
// literals.
func ParseTMX(id string, raw []byte) (*TileMap, error) {
	var doc tmxMap
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse map %s: %w", id, err)
	}
	if doc.Width <= 0 || doc.Height <= 0 {
		return nil, fmt.Errorf("map %s: invalid dimensions %dx%d", id, doc.Width, doc.Height)
	}
	if doc.TileWidth != doc.TileHeight {
		return nil, fmt.Errorf("map %s: non-square tiles %dx%d", id, doc.TileWidth, doc.TileHeight)
	}

	m := &TileMap{
		ID:       id,
		Width:    doc.Width,
		Height:   doc.Height,
		TileSize: doc.TileWidth,
		Layers:   make(map[string][]int, len(doc.Layers)),
		Blocked:  make([]bool, doc.Width*doc.Height),
	}
	for _, ts := range doc.Tilesets {
		m.Tilesets = append(m.Tilesets, TilesetRef{FirstGID: ts.FirstGID, Name: ts.Name, Source: ts.Source})
	}

	for _, layer := range doc.Layers {
		if layer.Data.Encoding != "csv" {
			return nil, fmt.Errorf("map %s layer %q: unsupported encoding %q", id, layer.Name, layer.Data.Encoding)
		}
		grid, err := parseCSVLayer(layer.Data.Raw, doc.Width*doc.Height)
		if err != nil {
			return nil, fmt.Errorf("map %s layer %q: %w", id, layer.Name, err)
		}
		if layer.Name == collisionLayerName {
			for i, gid := range grid {
				if gid != 0 {
					m.Blocked[i] = true
				}
			}
			continue
		}
		m.LayerOrder = append(m.LayerOrder, layer.Name)
		m.Layers[layer.Name] = grid
	}

	for _, og := range doc.ObjectGroups {
		if og.Name != spawnsGroupName {
			continue
		}
		for _, obj := range og.Objects {
			sp, err := parseSpawn(obj, doc.TileWidth)
			if err != nil {
				return nil, fmt.Errorf("map %s: %w", id, err)
			}
			m.Spawns = append(m.Spawns, sp)
		}
	}
	return m, nil
}

func parseCSVLayer(raw string, want int) ([]int, error) {
	fields := strings.Split(strings.TrimSpace(raw), ",")
	if len(fields) != want {
		return nil, fmt.Errorf("want %d tiles, got %d", want, len(fields))
	}
	grid := make([]int, want)
	for i, f := range fields {
		gid, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return nil, fmt.Errorf("tile %d: %w", i, err)
		}
		grid[i] = gid
	}
	return grid, nil
}

func parseSpawn(obj tmxObject, tileSize int) (SpawnPoint, error) {
	sp := SpawnPoint{
		X:                 int(obj.X) / tileSize,
		Y:                 int(obj.Y) / tileSize,
		WanderRadius:      3,
		AggroOverride:     -1,
		DisengageOverride: -1,
	}
	for _, p := range obj.Properties {
		switch p.Name {
		case "entity_id":
			sp.EntityID = p.Value
		case "wander_radius":
			n, err := strconv.Atoi(p.Value)
			if err != nil {
				return sp, fmt.Errorf("spawn object %d: wander_radius: %w", obj.ID, err)
			}
			sp.WanderRadius = n
		case "aggro_override":
			n, err := strconv.Atoi(p.Value)
			if err != nil {
				return sp, fmt.Errorf("spawn object %d: aggro_override: %w", obj.ID, err)
			}
			sp.AggroOverride = n
		case "disengage_override":
			n, err := strconv.Atoi(p.Value)
			if err != nil {
				return sp, fmt.Errorf("spawn object %d: disengage_override: %w", obj.ID, err)
			}
			sp.DisengageOverride = n
		}
	}
	if sp.EntityID == "" {
		return sp, fmt.Errorf("spawn object %d: missing entity_id property", obj.ID)
	}
	return sp, nil
}
