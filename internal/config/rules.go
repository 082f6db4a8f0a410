package config

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/shopspring/decimal"

	"github.com/sudo-init-do/dailymaze/internal/domain"
	"github.com/sudo-init-do/dailymaze/internal/maze"
)

// rulesFile mirrors the TOML layout. Absent keys keep the defaults.
type rulesFile struct {
	EntryCost         *int64  `toml:"entry_cost"`
	PointsPerDollar   *int64  `toml:"points_per_dollar"`
	PayoutFraction    *string `toml:"payout_fraction"`
	MazeWidth         *int    `toml:"maze_width"`
	MazeHeight        *int    `toml:"maze_height"`
	OnePlayPerDay     *bool   `toml:"one_play_per_day"`
	Timezone          *string `toml:"timezone"`
	StandingsInterval *string `toml:"standings_interval"`
}

// LoadRules overlays the rules file at path on base and validates the result.
func LoadRules(path string, base domain.Rules) (domain.Rules, error) {
	var f rulesFile
	md, err := toml.DecodeFile(path, &f)
	if err != nil {
		return domain.Rules{}, fmt.Errorf("read rules %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return domain.Rules{}, fmt.Errorf("rules %s: unknown keys %s", path, strings.Join(keys, ", "))
	}

	r, err := f.apply(base)
	if err != nil {
		return domain.Rules{}, fmt.Errorf("rules %s: %w", path, err)
	}
	if err := ValidateRules(r); err != nil {
		return domain.Rules{}, fmt.Errorf("rules %s: %w", path, err)
	}
	return r, nil
}

func (f rulesFile) apply(r domain.Rules) (domain.Rules, error) {
	if f.EntryCost != nil {
		r.EntryCost = *f.EntryCost
	}
	if f.PointsPerDollar != nil {
		r.PointsPerDollar = *f.PointsPerDollar
	}
	if f.PayoutFraction != nil {
		d, err := decimal.NewFromString(*f.PayoutFraction)
		if err != nil {
			return r, fmt.Errorf("payout_fraction %q is not a decimal", *f.PayoutFraction)
		}
		r.PayoutFraction = d
	}
	if f.MazeWidth != nil {
		r.MazeWidth = *f.MazeWidth
	}
	if f.MazeHeight != nil {
		r.MazeHeight = *f.MazeHeight
	}
	if f.OnePlayPerDay != nil {
		r.OnePlayPerDay = *f.OnePlayPerDay
	}
	if f.Timezone != nil {
		loc, err := time.LoadLocation(*f.Timezone)
		if err != nil {
			return r, fmt.Errorf("timezone %q: %w", *f.Timezone, err)
		}
		r.Location = loc
	}
	if f.StandingsInterval != nil {
		d, err := time.ParseDuration(*f.StandingsInterval)
		if err != nil {
			return r, fmt.Errorf("standings_interval %q: %w", *f.StandingsInterval, err)
		}
		r.StandingsInterval = d
	}
	return r, nil
}

// ValidateRules rejects economics the ledger cannot represent exactly.
func ValidateRules(r domain.Rules) error {
	switch {
	case r.EntryCost <= 0:
		return fmt.Errorf("entry_cost must be positive, got %d", r.EntryCost)
	case r.PointsPerDollar <= 0:
		return fmt.Errorf("points_per_dollar must be positive, got %d", r.PointsPerDollar)
	case r.PayoutFraction.LessThanOrEqual(decimal.Zero) || r.PayoutFraction.GreaterThan(decimal.NewFromInt(1)):
		return fmt.Errorf("payout_fraction must be in (0, 1], got %s", r.PayoutFraction)
	case r.MazeWidth < maze.MinSize || r.MazeWidth > maze.MaxSize:
		return fmt.Errorf("maze_width must be in [%d, %d], got %d", maze.MinSize, maze.MaxSize, r.MazeWidth)
	case r.MazeHeight < maze.MinSize || r.MazeHeight > maze.MaxSize:
		return fmt.Errorf("maze_height must be in [%d, %d], got %d", maze.MinSize, maze.MaxSize, r.MazeHeight)
	case r.StandingsInterval < 100*time.Millisecond:
		return fmt.Errorf("standings_interval must be at least 100ms, got %s", r.StandingsInterval)
	}

	// Prize pools are kept in cents, so one entry must be a whole number of cents.
	usd := r.EntryCostUSD()
	if !usd.Equal(usd.Round(2)) {
		return fmt.Errorf("entry_cost %d at %d points per dollar is %s USD, which is not a whole number of cents",
			r.EntryCost, r.PointsPerDollar, usd.String())
	}
	return nil
}
