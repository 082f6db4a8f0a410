// Package maze generates the daily maze and issues it exactly once per day.
package maze

import (
	"math/rand/v2"

	"github.com/sudo-init-do/dailymaze/internal/domain"
)

// Cell values of a layout.
const (
	Open = 0
	Wall = 1
)

// Size limits, inclusive, after odd-size normalization.
const (
	MinSize = 5
	MaxSize = 101
)

// Point addresses a layout cell.
type Point struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

var steps = [4]Point{{-1, 0}, {1, 0}, {0, -1}, {0, 1}}

// Normalize bumps even dimensions to the next odd number and checks the limits.
func Normalize(width, height int) (int, int, error) {
	if width%2 == 0 {
		width++
	}
	if height%2 == 0 {
		height++
	}
	if width < MinSize || width > MaxSize {
		return 0, 0, domain.Invalid("width", "must be between %d and %d", MinSize, MaxSize)
	}
	if height < MinSize || height > MaxSize {
		return 0, 0, domain.Invalid("height", "must be between %d and %d", MinSize, MaxSize)
	}
	return width, height, nil
}

// Generate carves a perfect maze with a randomized depth-first walk from (1,1),
// punches a few extra interior openings and opens the entry and exit.
func Generate(width, height int, rng *rand.Rand) (domain.Layout, error) {
	width, height, err := Normalize(width, height)
	if err != nil {
		return nil, err
	}

	grid := make(domain.Layout, height)
	for r := range grid {
		grid[r] = make([]int, width)
		for c := range grid[r] {
			grid[r][c] = Wall
		}
	}

	carve(grid, rng)
	addOpenings(grid, rng)

	entry, exit := Entry(grid), Exit(grid)
	grid[entry.Row][entry.Col] = Open
	grid[exit.Row][exit.Col] = Open
	return grid, nil
}

func carve(grid domain.Layout, rng *rand.Rand) {
	height, width := len(grid), len(grid[0])
	grid[1][1] = Open
	stack := []Point{{1, 1}}

	var next [4]Point
	for len(stack) > 0 {
		cur := stack[len(stack)-1]

		n := 0
		for _, s := range steps {
			p := Point{cur.Row + 2*s.Row, cur.Col + 2*s.Col}
			if p.Row > 0 && p.Row < height-1 && p.Col > 0 && p.Col < width-1 && grid[p.Row][p.Col] == Wall {
				next[n] = p
				n++
			}
		}
		if n == 0 {
			stack = stack[:len(stack)-1]
			continue
		}

		p := next[rng.IntN(n)]
		grid[(cur.Row+p.Row)/2][(cur.Col+p.Col)/2] = Open
		grid[p.Row][p.Col] = Open
		stack = append(stack, p)
	}
}

// addOpenings makes 3 to 7 attempts; each, with probability 0.3, removes the
// wall next to a random cell. The outer border is never touched.
func addOpenings(grid domain.Layout, rng *rand.Rand) {
	height, width := len(grid), len(grid[0])
	attempts := 3 + rng.IntN(5)
	for i := 0; i < attempts; i++ {
		if rng.Float64() >= 0.3 {
			continue
		}
		r := 1 + 2*rng.IntN((height-1)/2)
		c := 1 + 2*rng.IntN((width-1)/2)
		s := steps[rng.IntN(len(steps))]
		wr, wc := r+s.Row, c+s.Col
		if wr > 0 && wr < height-1 && wc > 0 && wc < width-1 {
			grid[wr][wc] = Open
		}
	}
}

// Entry is the opening on the left border. It is the same cell for every
// grid; the parameter keeps the signature in line with Exit.
func Entry(_ domain.Layout) Point { return Point{1, 0} }

// Exit is the opening on the right border.
func Exit(grid domain.Layout) Point { return Point{len(grid) - 2, len(grid[0]) - 1} }
