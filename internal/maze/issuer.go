package maze

import (
	"context"
	"errors"
	"hash/fnv"
	"log/slog"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/sudo-init-do/dailymaze/internal/domain"
	"github.com/sudo-init-do/dailymaze/internal/metrics"
	"github.com/sudo-init-do/dailymaze/internal/store"
)

const cacheDays = 8

// Issuer hands out the one maze of each day. The day primary key decides
// which generated layout wins a race; the cache only remembers committed rows.
type Issuer struct {
	store  store.Store
	width  int
	height int
	seed   uint64
	log    *slog.Logger
	now    func() time.Time

	mu    sync.RWMutex
	cache map[domain.Day]domain.Layout
}

// NewIssuer builds an issuer for the configured maze size. Layouts derive
// from seed and the day, so the same seed reproduces the same mazes.
func NewIssuer(st store.Store, rules domain.Rules, seed uint64, logger *slog.Logger) *Issuer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Issuer{
		store:  st,
		width:  rules.MazeWidth,
		height: rules.MazeHeight,
		seed:   seed,
		log:    logger,
		now:    time.Now,
		cache:  make(map[domain.Day]domain.Layout),
	}
}

// GetOrCreate returns the stored maze of day, generating it if nobody has yet.
func (i *Issuer) GetOrCreate(ctx context.Context, day domain.Day) (domain.DailyMaze, error) {
	var m domain.DailyMaze
	err := i.store.WithTx(ctx, func(tx store.Tx) error {
		if _, err := i.EnsureTx(ctx, tx, day); err != nil {
			return err
		}
		var err error
		m, err = tx.DailyMaze(ctx, day)
		return err
	})
	if err != nil {
		return domain.DailyMaze{}, err
	}
	i.remember(day, m.Layout)
	return m, nil
}

// EnsureTx makes sure day has a maze inside tx and returns its layout.
func (i *Issuer) EnsureTx(ctx context.Context, tx store.Tx, day domain.Day) (domain.Layout, error) {
	if layout, ok := i.cached(day); ok {
		return layout, nil
	}

	m, err := tx.DailyMaze(ctx, day)
	if err == nil {
		i.remember(day, m.Layout)
		return m.Layout, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	layout, err := Generate(i.width, i.height, i.rand(day))
	if err != nil {
		return nil, err
	}
	inserted, err := tx.InsertMaze(ctx, domain.DailyMaze{
		Day:       day,
		Layout:    layout,
		Width:     len(layout[0]),
		Height:    len(layout),
		CreatedAt: i.now().UTC(),
	})
	if err != nil {
		return nil, err
	}
	if inserted {
		metrics.MazesGenerated.Inc()
		i.log.Info("generated daily maze", "day", day, "width", len(layout[0]), "height", len(layout))
		return layout, nil
	}

	// Lost the race: the stored layout is the only valid one.
	m, err = tx.DailyMaze(ctx, day)
	if err != nil {
		return nil, err
	}
	i.remember(day, m.Layout)
	return m.Layout, nil
}

func (i *Issuer) rand(day domain.Day) *rand.Rand {
	h := fnv.New64a()
	h.Write([]byte(day))
	return rand.New(rand.NewPCG(i.seed, h.Sum64()))
}

func (i *Issuer) cached(day domain.Day) (domain.Layout, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	layout, ok := i.cache[day]
	return layout, ok
}

func (i *Issuer) remember(day domain.Day, layout domain.Layout) {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.cache[day] = layout
	if len(i.cache) <= cacheDays {
		return
	}
	days := make([]string, 0, len(i.cache))
	for d := range i.cache {
		days = append(days, string(d))
	}
	sort.Strings(days)
	for _, d := range days[:len(days)-cacheDays] {
		delete(i.cache, domain.Day(d))
	}
}
