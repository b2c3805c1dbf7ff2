package journal

import (
	"fmt"
	"time"

	"trade-journal/models"

	"github.com/shopspring/decimal"
)

// StatsGroup aggregates closed positions sharing a direction and outcome.
type StatsGroup struct {
	Side           models.Side     `json:"side"`
	Outcome        string          `json:"outcome"` // "win" or "loss"
	Trades         int             `json:"trades"`
	TotalResult    decimal.Decimal `json:"total_result"`
	AvgResult      decimal.Decimal `json:"avg_result"`
	TotalFee       decimal.Decimal `json:"total_fee"`
	AvgPercentage  decimal.Decimal `json:"avg_percentage"`
	AvgTimeInTrade string          `json:"avg_time_in_trade"`
}

// ComputeStats aggregates closed positions into (side, outcome) groups.
// Open positions are ignored; a zero or negative result counts as a loss.
func ComputeStats(positions []models.Position) []StatsGroup {
	type key struct {
		side    models.Side
		outcome string
	}
	type acc struct {
		trades     int
		result     decimal.Decimal
		fee        decimal.Decimal
		percentage decimal.Decimal
		inTrade    time.Duration
	}

	groups := make(map[key]*acc)
	order := []key{
		{models.SideBuy, "win"}, {models.SideBuy, "loss"},
		{models.SideSell, "win"}, {models.SideSell, "loss"},
	}

	for i := range positions {
		p := &positions[i]
		if !p.Closed {
			continue
		}
		outcome := "loss"
		if p.Result.IsPositive() {
			outcome = "win"
		}
		k := key{p.Side, outcome}
		g, ok := groups[k]
		if !ok {
			g = &acc{result: decimal.Zero, fee: decimal.Zero, percentage: decimal.Zero}
			groups[k] = g
		}
		g.trades++
		g.result = g.result.Add(p.Result)
		g.fee = g.fee.Add(p.Fee)
		g.percentage = g.percentage.Add(p.ResultingPercentage())
		g.inTrade += p.ClosedAt().Sub(p.OpenedAt())
	}

	var stats []StatsGroup
	for _, k := range order {
		g, ok := groups[k]
		if !ok {
			continue
		}
		n := decimal.NewFromInt(int64(g.trades))
		stats = append(stats, StatsGroup{
			Side:           k.side,
			Outcome:        k.outcome,
			Trades:         g.trades,
			TotalResult:    g.result.Round(2),
			AvgResult:      g.result.Div(n).Round(2),
			TotalFee:       g.fee.Round(2),
			AvgPercentage:  g.percentage.Div(n).Round(2),
			AvgTimeInTrade: FormatDuration(g.inTrade / time.Duration(g.trades)),
		})
	}
	return stats
}

// FormatDuration renders a duration as "2d 3:04:05", dropping the day part
// when it is zero.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	days := int(d / (24 * time.Hour))
	d -= time.Duration(days) * 24 * time.Hour
	hours := int(d / time.Hour)
	minutes := int(d/time.Minute) % 60
	seconds := int(d/time.Second) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %d:%02d:%02d", days, hours, minutes, seconds)
	}
	return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
}
