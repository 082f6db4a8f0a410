package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Rules are the tournament economics shared by all components.
type Rules struct {
	EntryCost         int64
	PointsPerDollar   int64
	PayoutFraction    decimal.Decimal
	MazeWidth         int
	MazeHeight        int
	OnePlayPerDay     bool
	Location          *time.Location
	StandingsInterval time.Duration
}

// DefaultRules mirrors the production tournament.
func DefaultRules() Rules {
	return Rules{
		EntryCost:         250,
		PointsPerDollar:   250,
		PayoutFraction:    decimal.RequireFromString("0.85"),
		MazeWidth:         25,
		MazeHeight:        17,
		OnePlayPerDay:     true,
		Location:          time.UTC,
		StandingsInterval: 5 * time.Second,
	}
}

// EntryCostUSD is the monetary value one entry adds to the prize pool.
func (r Rules) EntryCostUSD() decimal.Decimal {
	return PointsToUSD(r.EntryCost, r.PointsPerDollar)
}

// PointsToUSD converts points to dollars.
func PointsToUSD(points, pointsPerDollar int64) decimal.Decimal {
	return decimal.NewFromInt(points).Div(decimal.NewFromInt(pointsPerDollar))
}

// USDToPoints converts dollars to whole points, truncating fractions.
func USDToPoints(usd decimal.Decimal, pointsPerDollar int64) int64 {
	return usd.Mul(decimal.NewFromInt(pointsPerDollar)).IntPart()
}

// PrizeUSD is the share of pool paid to the winner.
func (r Rules) PrizeUSD(pool decimal.Decimal) decimal.Decimal {
	return pool.Mul(r.PayoutFraction)
}

// PrizePoints is the winner's credit for a pool, truncated to whole points.
func (r Rules) PrizePoints(pool decimal.Decimal) int64 {
	return USDToPoints(r.PrizeUSD(pool), r.PointsPerDollar)
}

// Today is the current tournament day.
func (r Rules) Today(now time.Time) Day {
	return DayOf(now, r.Loc())
}

// Loc returns the tournament time zone.
func (r Rules) Loc() *time.Location {
	if r.Location == nil {
		return time.UTC
	}
	return r.Location
}
