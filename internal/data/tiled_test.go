package data

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func csvGrid(w, h int, fill int, overrides map[[2]int]int) string {
	var b strings.Builder
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			gid := fill
			if v, ok := overrides[[2]int{x, y}]; ok {
				gid = v
			}
			if x > 0 || y > 0 {
				b.WriteByte(',')
			}
			b.WriteString(itoa(gid))
		}
	}
	return b.String()
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

func testTMX(t *testing.T) []byte {
	t.Helper()
	ground := csvGrid(32, 32, 1, nil)
	collision := csvGrid(32, 32, 0, map[[2]int]int{
		{5, 5}: 99,
		{6, 5}: 99,
	})
	return []byte(`<?xml version="1.0" encoding="UTF-8"?>
<map version="1.10" orientation="orthogonal" width="32" height="32" tilewidth="32" tileheight="32">
 <tileset firstgid="1" name="terrain" source="terrain.tsx"/>
 <layer name="ground" width="32" height="32">
  <data encoding="csv">` + ground + `</data>
 </layer>
 <layer name="collision" width="32" height="32">
  <data encoding="csv">` + collision + `</data>
 </layer>
 <objectgroup name="spawns">
  <object id="1" name="goblin camp" x="320" y="256">
   <properties>
    <property name="entity_id" value="goblin"/>
    <property name="wander_radius" value="5"/>
    <property name="aggro_override" value="4"/>
   </properties>
  </object>
 </objectgroup>
</map>`)
}

func TestParseTMX(t *testing.T) {
	m, err := ParseTMX("overworld", testTMX(t))
	require.NoError(t, err)

	require.Equal(t, 32, m.Width)
	require.Equal(t, 32, m.Height)
	require.Equal(t, 32, m.TileSize)
	require.Equal(t, []string{"ground"}, m.LayerOrder)
	require.Len(t, m.Tilesets, 1)
	require.Equal(t, "terrain", m.Tilesets[0].Name)

	// The collision layer becomes the blocked grid, not a tile layer.
	_, hasCollision := m.Layers["collision"]
	require.False(t, hasCollision)
	require.True(t, m.IsBlocked(5, 5))
	require.True(t, m.IsBlocked(6, 5))
	require.False(t, m.IsBlocked(4, 5))

	// Out-of-bounds tiles block movement.
	require.True(t, m.IsBlocked(-1, 0))
	require.True(t, m.IsBlocked(32, 0))

	require.Equal(t, 1, m.TileAt("ground", 0, 0))
	require.Equal(t, 0, m.TileAt("ground", 40, 40))
}

func TestParseTMXSpawns(t *testing.T) {
	m, err := ParseTMX("overworld", testTMX(t))
	require.NoError(t, err)

	require.Len(t, m.Spawns, 1)
	sp := m.Spawns[0]
	require.Equal(t, "goblin", sp.EntityID)
	require.Equal(t, 10, sp.X) // 320 px / 32 px tiles
	require.Equal(t, 8, sp.Y)
	require.Equal(t, 5, sp.WanderRadius)
	require.Equal(t, 4, sp.AggroOverride)
	require.Equal(t, -1, sp.DisengageOverride)
}

func TestParseTMXRejectsBadInput(t *testing.T) {
	_, err := ParseTMX("bad", []byte(`<map width="2" height="2" tilewidth="32" tileheight="32">
 <layer name="ground" width="2" height="2"><data encoding="base64">AAAA</data></layer>
</map>`))
	require.ErrorContains(t, err, "unsupported encoding")

	_, err = ParseTMX("bad", []byte(`<map width="2" height="2" tilewidth="32" tileheight="32">
 <layer name="ground" width="2" height="2"><data encoding="csv">1,2,3</data></layer>
</map>`))
	require.ErrorContains(t, err, "want 4 tiles")
}

func TestChunkExtraction(t *testing.T) {
	m, err := ParseTMX("overworld", testTMX(t))
	require.NoError(t, err)
	info := &MapInfo{TileMap: m, SpawnX: 1, SpawnY: 1}

	chunk := info.Chunk(0, 0)
	require.Len(t, chunk["ground"], ChunkSize*ChunkSize)
	require.Equal(t, 1, chunk["ground"][0])

	// Chunks past the map edge pad with empty tiles.
	edge := info.Chunk(2, 2)
	for _, gid := range edge["ground"] {
		require.Zero(t, gid)
	}
}
