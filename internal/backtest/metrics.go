package backtest

import (
	"math"
	"sort"
)

// Metrics is the full metrics suite derived from closed trades and the
// equity curve, per spec §4.14/§8.
type Metrics struct {
	TotalTrades         int
	WinningTrades       int
	LosingTrades        int
	WinRate             float64
	TotalPnL            float64
	TotalReturnPercent  float64
	AvgWin              float64
	AvgLoss             float64
	LargestWin          float64
	LargestLoss         float64
	ProfitFactor        float64
	Expectancy          float64
	AvgRMultiple        float64
	MedianRMultiple     float64
	BestRMultiple       float64
	WorstRMultiple      float64
	StdDevRMultiple     float64
	MaxConsecutiveWins  int
	MaxConsecutiveLosses int
	MaxDrawdown         float64
	MaxDrawdownPercent  float64
	Sharpe              float64
	Sortino             float64
	Calmar              float64
	TotalCommission     float64
	TotalSlippage       float64
}

// ComputeMetrics derives the full metrics suite from closed trades and the
// initial capital, per spec §4.14.
func ComputeMetrics(trades []Trade, equityCurve []EquityPoint, initialCapital float64) Metrics {
	var m Metrics
	m.TotalTrades = len(trades)
	if m.TotalTrades == 0 {
		return m
	}

	var sumWins, sumLosses float64
	rMultiples := make([]float64, 0, len(trades))

	for _, t := range trades {
		m.TotalPnL += t.RealizedPnL
		m.TotalCommission += t.Commission
		m.TotalSlippage += t.Slippage

		if t.RealizedPnL >= 0 {
			m.WinningTrades++
			sumWins += t.RealizedPnL
			if t.RealizedPnL > m.LargestWin {
				m.LargestWin = t.RealizedPnL
			}
		} else {
			m.LosingTrades++
			sumLosses += -t.RealizedPnL
			if t.RealizedPnL < m.LargestLoss {
				m.LargestLoss = t.RealizedPnL
			}
		}

		risk := initialEntryRisk(t)
		if risk > 0 {
			rMultiples = append(rMultiples, t.RealizedPnL/risk)
		}
	}

	m.WinRate = float64(m.WinningTrades) / float64(m.TotalTrades)
	m.TotalReturnPercent = m.TotalPnL / initialCapital

	if m.WinningTrades > 0 {
		m.AvgWin = sumWins / float64(m.WinningTrades)
	}
	if m.LosingTrades > 0 {
		m.AvgLoss = sumLosses / float64(m.LosingTrades)
	}
	if sumLosses > 0 {
		m.ProfitFactor = sumWins / sumLosses
	}
	m.Expectancy = m.WinRate*m.AvgWin - (1-m.WinRate)*m.AvgLoss

	m.AvgRMultiple, m.MedianRMultiple, m.BestRMultiple, m.WorstRMultiple, m.StdDevRMultiple = rStats(rMultiples)

	m.MaxConsecutiveWins, m.MaxConsecutiveLosses = consecutiveStreaks(trades)
	m.MaxDrawdown, m.MaxDrawdownPercent = maxDrawdown(equityCurve)

	dailyReturns := dailyReturnSeries(equityCurve)
	m.Sharpe = annualizedRatio(dailyReturns, false)
	m.Sortino = annualizedRatio(dailyReturns, true)
	if m.MaxDrawdownPercent > 0 {
		m.Calmar = m.TotalReturnPercent / m.MaxDrawdownPercent
	}

	return m
}

// initialEntryRisk approximates the per-trade dollar risk as entry-to-stop
// distance times the trade's initial quantity, used as the R-multiple
// denominator.
func initialEntryRisk(t Trade) float64 {
	if t.Signal == nil {
		return 0
	}
	risk := absf(t.Signal.Entry-t.Signal.Stop) * t.InitialQuantity
	return risk
}

func rStats(values []float64) (avg, median, best, worst, stdDev float64) {
	if len(values) == 0 {
		return 0, 0, 0, 0, 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	best = sorted[len(sorted)-1]
	worst = sorted[0]

	var sum float64
	for _, v := range values {
		sum += v
	}
	avg = sum / float64(len(values))

	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		median = (sorted[mid-1] + sorted[mid]) / 2
	} else {
		median = sorted[mid]
	}

	var variance float64
	for _, v := range values {
		d := v - avg
		variance += d * d
	}
	stdDev = math.Sqrt(variance / float64(len(values)))
	return
}

func consecutiveStreaks(trades []Trade) (maxWins, maxLosses int) {
	var curWins, curLosses int
	for _, t := range trades {
		if t.RealizedPnL >= 0 {
			curWins++
			curLosses = 0
		} else {
			curLosses++
			curWins = 0
		}
		if curWins > maxWins {
			maxWins = curWins
		}
		if curLosses > maxLosses {
			maxLosses = curLosses
		}
	}
	return
}

func maxDrawdown(curve []EquityPoint) (absDD, pctDD float64) {
	for _, p := range curve {
		if p.Drawdown > absDD {
			absDD = p.Drawdown
		}
		if p.DrawdownPct > pctDD {
			pctDD = p.DrawdownPct
		}
	}
	return
}

// dailyReturnSeries buckets equity-curve points by calendar day and returns
// the fractional return for each day that has at least one point.
func dailyReturnSeries(curve []EquityPoint) []float64 {
	if len(curve) < 2 {
		return nil
	}
	type bucket struct {
		day   string
		first float64
		last  float64
	}
	byDay := make(map[string]*bucket)
	var order []string
	for _, p := range curve {
		key := p.Timestamp.Format("2006-01-02")
		b, ok := byDay[key]
		if !ok {
			b = &bucket{day: key, first: p.Equity}
			byDay[key] = b
			order = append(order, key)
		}
		b.last = p.Equity
	}

	returns := make([]float64, 0, len(order))
	var prevClose float64
	for i, key := range order {
		b := byDay[key]
		base := b.first
		if i > 0 && prevClose > 0 {
			base = prevClose
		}
		if base > 0 {
			returns = append(returns, (b.last-base)/base)
		}
		prevClose = b.last
	}
	return returns
}

// annualizedRatio computes √252·mean/stddev over daily returns. When
// downside is true, the denominator is the standard deviation of only the
// negative returns (Sortino); otherwise it is the full-sample standard
// deviation (Sharpe).
func annualizedRatio(dailyReturns []float64, downside bool) float64 {
	if len(dailyReturns) == 0 {
		return 0
	}
	var sum float64
	for _, r := range dailyReturns {
		sum += r
	}
	mean := sum / float64(len(dailyReturns))

	var variance float64
	var count int
	for _, r := range dailyReturns {
		if downside {
			if r >= 0 {
				continue
			}
			variance += r * r
			count++
		} else {
			d := r - mean
			variance += d * d
			count++
		}
	}
	if count == 0 {
		return 0
	}
	stdDev := math.Sqrt(variance / float64(count))
	if stdDev == 0 {
		return 0
	}
	return math.Sqrt(252) * mean / stdDev
}
