package game

import (
	"github.com/gridrealm/server/internal/data"
	"github.com/gridrealm/server/internal/store"
)

// ChunkRadius is how many chunk rings around its own the client keeps
// loaded.
const ChunkRadius = 1

// VisibleRange is the half-width of the square interest window in
// tiles: the client's chunk radius plus one ring of preloaded chunks.
func VisibleRange(chunkRadius int) int {
	return (chunkRadius + 1) * data.ChunkSize
}

// inWindow is the interest test: a square window, not a circle, so the
// client's chunk cache lines up with what the server sends.
func inWindow(cx, cy, x, y, rng int) bool {
	return abs(x-cx) <= rng && abs(y-cy) <= rng
}

// view computes what one observer at (cx, cy) can see on a map.
type view struct {
	players     []store.PlayerRecord
	entities    []store.EntityRecord
	groundItems []store.GroundItemRecord
}

func computeView(s *store.Store, mapID string, cx, cy, rng int, selfID int64) view {
	var v view
	for _, p := range s.GetPlayersOnMap(mapID) {
		if p.PlayerID == selfID {
			continue
		}
		if inWindow(cx, cy, p.X, p.Y, rng) {
			v.players = append(v.players, p)
		}
	}
	for _, e := range s.GetMapEntities(mapID) {
		if inWindow(cx, cy, e.X, e.Y, rng) {
			v.entities = append(v.entities, e)
		}
	}
	for _, g := range s.GetMapGroundItems(mapID) {
		if inWindow(cx, cy, g.X, g.Y, rng) {
			v.groundItems = append(v.groundItems, g)
		}
	}
	return v
}
