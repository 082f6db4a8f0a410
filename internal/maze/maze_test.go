package maze

import (
	"errors"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/sudo-init-do/dailymaze/internal/domain"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		w, h         int
		wantW, wantH int
		wantErr      bool
	}{
		{25, 17, 25, 17, false},
		{24, 16, 25, 17, false},
		{4, 4, 5, 5, false},
		{3, 9, 0, 0, true},
		{101, 101, 101, 101, false},
		{102, 9, 0, 0, true},
	}
	for _, tt := range tests {
		w, h, err := Normalize(tt.w, tt.h)
		if (err != nil) != tt.wantErr {
			t.Errorf("Normalize(%d, %d) error = %v, wantErr %v", tt.w, tt.h, err, tt.wantErr)
			continue
		}
		if err != nil {
			var verr *domain.ValidationError
			if !errors.As(err, &verr) {
				t.Errorf("Normalize(%d, %d) error %T is not a ValidationError", tt.w, tt.h, err)
			}
			continue
		}
		if w != tt.wantW || h != tt.wantH {
			t.Errorf("Normalize(%d, %d) = %d, %d; want %d, %d", tt.w, tt.h, w, h, tt.wantW, tt.wantH)
		}
	}
}

func TestGenerate_AlwaysSolvable(t *testing.T) {
	for size := MinSize; size <= MaxSize; size += 2 {
		for seed := uint64(0); seed < 5; seed++ {
			grid, err := Generate(size, size, rand.New(rand.NewPCG(seed, uint64(size))))
			if err != nil {
				t.Fatalf("Generate(%d) error: %v", size, err)
			}
			if !Solvable(grid) {
				t.Fatalf("maze %dx%d seed %d is not solvable:\n%s", size, size, seed, Render(grid))
			}
		}
	}
}

func TestGenerate_Shape(t *testing.T) {
	grid, err := Generate(24, 16, rand.New(rand.NewPCG(1, 2)))
	if err != nil {
		t.Fatal(err)
	}
	if len(grid) != 17 || len(grid[0]) != 25 {
		t.Fatalf("size = %dx%d, want 25x17", len(grid[0]), len(grid))
	}
	if grid[1][0] != Open {
		t.Error("entry (1,0) is not open")
	}
	if grid[15][24] != Open {
		t.Error("exit (15,24) is not open")
	}

	// The border stays closed apart from entry and exit.
	for r := range grid {
		for c := range grid[r] {
			border := r == 0 || c == 0 || r == len(grid)-1 || c == len(grid[r])-1
			if !border || grid[r][c] == Wall {
				continue
			}
			if (r != 1 || c != 0) && (r != 15 || c != 24) {
				t.Errorf("unexpected border opening at (%d,%d)", r, c)
			}
		}
	}

	// Every odd cell is reachable by the carve.
	for r := 1; r < len(grid); r += 2 {
		for c := 1; c < len(grid[r]); c += 2 {
			if grid[r][c] != Open {
				t.Errorf("cell (%d,%d) was never carved", r, c)
			}
		}
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	a, _ := Generate(25, 17, rand.New(rand.NewPCG(7, 7)))
	b, _ := Generate(25, 17, rand.New(rand.NewPCG(7, 7)))
	if Render(a) != Render(b) {
		t.Error("same seed produced different mazes")
	}
}

func TestSolvable_Blocked(t *testing.T) {
	grid := domain.Layout{
		{1, 1, 1, 1, 1},
		{0, 0, 1, 0, 1},
		{1, 0, 1, 0, 1},
		{1, 0, 1, 0, 0},
		{1, 1, 1, 1, 1},
	}
	if Solvable(grid) {
		t.Error("walled-off maze reported solvable")
	}

	grid[2][2] = Open
	if !Solvable(grid) {
		t.Error("open maze reported unsolvable")
	}
	if got := ShortestPath(grid); got != 6 {
		t.Errorf("ShortestPath = %d, want 6", got)
	}
}

func TestRender(t *testing.T) {
	grid := domain.Layout{
		{1, 1, 1, 1, 1},
		{0, 0, 0, 0, 1},
		{1, 1, 1, 0, 1},
		{1, 0, 0, 0, 0},
		{1, 1, 1, 1, 1},
	}
	want := strings.Join([]string{
		"#####",
		"S   #",
		"### #",
		"#   E",
		"#####",
	}, "\n") + "\n"
	if got := Render(grid); got != want {
		t.Errorf("Render =\n%s\nwant\n%s", got, want)
	}
}

func TestEntryExit(t *testing.T) {
	for _, size := range [][2]int{{5, 5}, {25, 17}, {9, 31}} {
		grid, err := Generate(size[0], size[1], rand.New(rand.NewPCG(7, 7)))
		if err != nil {
			t.Fatal(err)
		}
		in, out := Entry(grid), Exit(grid)
		if in != (Point{Row: 1, Col: 0}) {
			t.Errorf("%v entry = %+v", size, in)
		}
		if out != (Point{Row: size[1] - 2, Col: size[0] - 1}) {
			t.Errorf("%v exit = %+v", size, out)
		}
		if grid[in.Row][in.Col] != Open || grid[out.Row][out.Col] != Open {
			t.Errorf("%v openings are walled:\n%s", size, Render(grid))
		}
	}
}
