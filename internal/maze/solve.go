package maze

import (
	"strings"

	"github.com/sudo-init-do/dailymaze/internal/domain"
)

// Solvable reports whether the exit can be reached from the entry through open cells.
func Solvable(grid domain.Layout) bool {
	return ShortestPath(grid) >= 0
}

// ShortestPath is the number of moves from entry to exit, or -1 when there is no path.
func ShortestPath(grid domain.Layout) int {
	if len(grid) < 3 || len(grid[0]) < 3 {
		return -1
	}
	height, width := len(grid), len(grid[0])
	start, goal := Entry(grid), Exit(grid)
	if grid[start.Row][start.Col] != Open || grid[goal.Row][goal.Col] != Open {
		return -1
	}

	dist := make([]int, height*width)
	for i := range dist {
		dist[i] = -1
	}
	dist[start.Row*width+start.Col] = 0
	queue := []Point{start}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		d := dist[cur.Row*width+cur.Col]
		if cur == goal {
			return d
		}
		for _, s := range steps {
			p := Point{cur.Row + s.Row, cur.Col + s.Col}
			if p.Row < 0 || p.Row >= height || p.Col < 0 || p.Col >= width || p.Col >= len(grid[p.Row]) {
				continue
			}
			if grid[p.Row][p.Col] != Open || dist[p.Row*width+p.Col] >= 0 {
				continue
			}
			dist[p.Row*width+p.Col] = d + 1
			queue = append(queue, p)
		}
	}
	return -1
}

// Render draws the layout as text: '#' walls, 'S' entry, 'E' exit.
func Render(grid domain.Layout) string {
	if len(grid) == 0 {
		return ""
	}
	entry, exit := Entry(grid), Exit(grid)

	var b strings.Builder
	b.Grow(len(grid) * (len(grid[0]) + 1))
	for r, row := range grid {
		for c, cell := range row {
			switch {
			case r == entry.Row && c == entry.Col:
				b.WriteByte('S')
			case r == exit.Row && c == exit.Col:
				b.WriteByte('E')
			case cell == Wall:
				b.WriteByte('#')
			default:
				b.WriteByte(' ')
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}
