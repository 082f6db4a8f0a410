package maze

import (
	"context"
	"sync"
	"testing"

	"github.com/sudo-init-do/dailymaze/internal/domain"
	"github.com/sudo-init-do/dailymaze/internal/testutil"
)

func TestGetOrCreate_ConcurrentCallersShareOneMaze(t *testing.T) {
	st := testutil.NewStore(t)
	rules := domain.DefaultRules()
	day := domain.Day("2026-04-01")

	// Separate issuers with different seeds model separate server instances.
	const callers = 12
	layouts := make([]string, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for n := 0; n < callers; n++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			issuer := NewIssuer(st, rules, uint64(n), testutil.Logger())
			m, err := issuer.GetOrCreate(context.Background(), day)
			errs[n] = err
			if err == nil {
				layouts[n] = Render(m.Layout)
			}
		}(n)
	}
	wg.Wait()

	for n := 0; n < callers; n++ {
		if errs[n] != nil {
			t.Fatalf("caller %d: %v", n, errs[n])
		}
		if layouts[n] != layouts[0] {
			t.Fatalf("caller %d saw a different layout", n)
		}
	}

	counts, err := st.Counts(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if counts.Mazes != 1 {
		t.Errorf("stored mazes = %d, want 1", counts.Mazes)
	}
}

func TestGetOrCreate_UsesCache(t *testing.T) {
	st := testutil.NewStore(t)
	issuer := NewIssuer(st, domain.DefaultRules(), 1, testutil.Logger())
	ctx := context.Background()

	m, err := issuer.GetOrCreate(ctx, "2026-04-01")
	if err != nil {
		t.Fatal(err)
	}
	if m.Width != 25 || m.Height != 17 {
		t.Errorf("size = %dx%d, want 25x17", m.Width, m.Height)
	}
	if !Solvable(m.Layout) {
		t.Error("issued maze is not solvable")
	}
	if _, ok := issuer.cached("2026-04-01"); !ok {
		t.Error("layout not cached after commit")
	}
}

func TestRemember_PrunesOldestDays(t *testing.T) {
	issuer := NewIssuer(nil, domain.DefaultRules(), 0, testutil.Logger())
	start := domain.Day("2026-01-01")
	for n := 0; n < cacheDays+3; n++ {
		issuer.remember(start.AddDays(n), domain.Layout{{0}})
	}

	if len(issuer.cache) != cacheDays {
		t.Fatalf("cache holds %d days, want %d", len(issuer.cache), cacheDays)
	}
	if _, ok := issuer.cached(start); ok {
		t.Error("oldest day still cached")
	}
	if _, ok := issuer.cached(start.AddDays(cacheDays + 2)); !ok {
		t.Error("newest day missing from cache")
	}
}
