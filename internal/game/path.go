// Package game implements the simulation: pathfinding, entity AI,
// combat resolution, interest management, and the tick scheduler that
// drives them.
package game

import (
	"container/heap"

	"github.com/gridrealm/server/internal/data"
)

// MaxPathDistance caps A* search cost. Paths longer than this fail fast
// instead of flooding the open set.
const MaxPathDistance = 50

// Point is a tile coordinate.
type Point struct {
	X, Y int
}

// PathResult is the outcome of a pathfinding request.
type PathResult struct {
	Found    bool
	Path     []Point // Path[0] is the start tile, Path[len-1] the goal
	Distance int     // steps between start and goal; 0 when not found
}

// blockedFn reports whether a tile is impassable for the mover.
type blockedFn func(x, y int) bool

type pathNode struct {
	p       Point
	g       int // cost from start
	f       int // g + heuristic
	parent  *pathNode
	index   int
}

type nodeHeap []*pathNode

func (h nodeHeap) Len() int            { return len(h) }
func (h nodeHeap) Less(i, j int) bool  { return h[i].f < h[j].f }
func (h nodeHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index, h[j].index = i, j
}
func (h *nodeHeap) Push(x any) {
	n := x.(*pathNode)
	n.index = len(*h)
	*h = append(*h, n)
}
func (h *nodeHeap) Pop() any {
	old := *h
	n := old[len(old)-1]
	old[len(old)-1] = nil
	*h = old[:len(old)-1]
	return n
}

var cardinals = [4][2]int{{0, -1}, {0, 1}, {1, 0}, {-1, 0}}

// FindPath runs 4-directional A* with a Manhattan heuristic from start
// to goal over the map's collision grid, treating extraBlocked tiles
// (occupied by other actors) as walls. The goal itself is never treated
// as extra-blocked, so chasing into a target's tile still paths
// adjacent. Search gives up past maxDistance steps.
func FindPath(m *data.TileMap, start, goal Point, extraBlocked map[Point]struct{}, maxDistance int) PathResult {
	if maxDistance <= 0 {
		maxDistance = MaxPathDistance
	}
	if start == goal {
		return PathResult{Found: true, Path: []Point{start}}
	}
	if m.IsBlocked(goal.X, goal.Y) {
		return PathResult{}
	}
	if manhattan(start, goal) > maxDistance {
		return PathResult{}
	}

	blocked := func(x, y int) bool {
		if m.IsBlocked(x, y) {
			return true
		}
		p := Point{x, y}
		if p == goal {
			return false
		}
		_, occ := extraBlocked[p]
		return occ
	}

	open := &nodeHeap{}
	heap.Init(open)
	startNode := &pathNode{p: start, g: 0, f: manhattan(start, goal)}
	heap.Push(open, startNode)
	best := map[Point]int{start: 0}

	for open.Len() > 0 {
		cur := heap.Pop(open).(*pathNode)
		if cur.p == goal {
			return buildResult(cur)
		}
		if cur.g >= maxDistance {
			continue
		}
		for _, d := range cardinals {
			nx, ny := cur.p.X+d[0], cur.p.Y+d[1]
			if blocked(nx, ny) {
				continue
			}
			np := Point{nx, ny}
			g := cur.g + 1
			if prev, seen := best[np]; seen && prev <= g {
				continue
			}
			best[np] = g
			heap.Push(open, &pathNode{p: np, g: g, f: g + manhattan(np, goal), parent: cur})
		}
	}
	return PathResult{}
}

func buildResult(goal *pathNode) PathResult {
	var rev []Point
	for n := goal; n != nil; n = n.parent {
		rev = append(rev, n.p)
	}
	path := make([]Point, len(rev))
	for i, p := range rev {
		path[len(rev)-1-i] = p
	}
	return PathResult{Found: true, Path: path, Distance: len(path) - 1}
}

// NextStep paths toward goal and returns only the first step past the
// start tile. AI repaths every movement tick, so caching the tail buys
// nothing.
func NextStep(m *data.TileMap, start, goal Point, extraBlocked map[Point]struct{}, maxDistance int) (Point, bool) {
	res := FindPath(m, start, goal, extraBlocked, maxDistance)
	if !res.Found || len(res.Path) < 2 {
		return Point{}, false
	}
	return res.Path[1], true
}

// HasLineOfSight walks Bresenham's line from a to b over the collision
// grid. The endpoints themselves never block: an archer on a wall can
// still be shot.
func HasLineOfSight(m *data.TileMap, a, b Point) bool {
	x0, y0, x1, y1 := a.X, a.Y, b.X, b.Y
	dx, dy := abs(x1-x0), -abs(y1-y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy
	for {
		if (x0 != a.X || y0 != a.Y) && (x0 != b.X || y0 != b.Y) {
			if m.IsBlocked(x0, y0) {
				return false
			}
		}
		if x0 == x1 && y0 == y1 {
			return true
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

// NearestOpenTile spirals outward from center in Manhattan-distance
// rings up to maxRadius and returns the first unblocked, unoccupied
// tile, so the cardinal neighbors win over the diagonals. Used for
// respawns onto contested spawn points.
func NearestOpenTile(m *data.TileMap, center Point, occupied map[Point]struct{}, maxRadius int) (Point, bool) {
	free := func(p Point) bool {
		if m.IsBlocked(p.X, p.Y) {
			return false
		}
		_, occ := occupied[p]
		return !occ
	}
	if free(center) {
		return center, true
	}
	for r := 1; r <= maxRadius; r++ {
		for dx := -r; dx <= r; dx++ {
			dy := r - abs(dx)
			p := Point{center.X + dx, center.Y + dy}
			if free(p) {
				return p, true
			}
			if dy != 0 {
				p = Point{center.X + dx, center.Y - dy}
				if free(p) {
					return p, true
				}
			}
		}
	}
	return Point{}, false
}

func manhattan(a, b Point) int { return abs(a.X-b.X) + abs(a.Y-b.Y) }

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// euclideanSq avoids the sqrt for radius comparisons.
func euclideanSq(a, b Point) int {
	dx, dy := a.X-b.X, a.Y-b.Y
	return dx*dx + dy*dy
}

// chebyshev is the board distance used for melee adjacency.
func chebyshev(a, b Point) int {
	dx, dy := abs(a.X-b.X), abs(a.Y-b.Y)
	if dx > dy {
		return dx
	}
	return dy
}
