// Package risk implements the pre-trade check pipeline and circuit breaker
// from spec §4.12. Grounded on the teacher's internal/risk/manager.go
// mutex-guarded config/counters shape and internal/circuit/breaker.go's
// trip/cooldown state machine, reworked from the teacher's standalone
// CanOpenPosition/RegisterPosition* calls onto the spec's single fixed-order
// check_order pipeline.
package risk

import (
	"fmt"
	"math"
	"sync"
	"time"
)

// Config holds every configurable limit from spec §4.12.
type Config struct {
	MaxOrderNotional       float64
	MaxPositionSizeUSD     float64
	MaxPositionSizePercent float64
	MaxTotalExposure       float64
	MaxExposurePercent     float64
	MaxPositions           int
	MaxOpenOrders          int
	MaxDailyLoss           float64
	MaxDailyLossPercent    float64
	MaxConsecutiveLosses   int
	MaxConsecutiveErrors   int
	MaxPriceDeviation      float64
	CircuitBreakerCooldown time.Duration
}

// DefaultConfig returns conservative defaults suitable for a fresh account.
func DefaultConfig() Config {
	return Config{
		MaxOrderNotional:       10_000,
		MaxPositionSizeUSD:     25_000,
		MaxPositionSizePercent: 0.25,
		MaxTotalExposure:       100_000,
		MaxExposurePercent:     0.75,
		MaxPositions:           10,
		MaxOpenOrders:          20,
		MaxDailyLoss:           5_000,
		MaxDailyLossPercent:    0.05,
		MaxConsecutiveLosses:   5,
		MaxConsecutiveErrors:   3,
		MaxPriceDeviation:      0.02,
		CircuitBreakerCooldown: 30 * time.Minute,
	}
}

// CheckRequest carries an order's own parameters plus the account-state
// aggregates the pipeline needs. The caller (typically the order manager)
// assembles these from the position tracker and account snapshot, so
// CheckOrder itself does not query the position tracker.
type CheckRequest struct {
	Symbol               string
	NotionalUSD          float64
	IsMarket             bool
	LimitPrice           float64
	MarketPrice          float64 // 0 means unavailable
	AccountBalance       float64
	OpenPositionCount    int
	OpenOrderCount       int
	SymbolExposureUSD    float64 // existing exposure for Symbol before this order
	TotalExposureUSD     float64
}

// Manager runs the fixed-order pre-trade check pipeline and tracks the
// counters/state that feed it, per spec §4.12.
type Manager struct {
	mu sync.Mutex

	config  Config
	breaker *Breaker

	dayStart time.Time

	dailyPnL          float64
	consecutiveLosses int
	consecutiveErrors int
}

// NewManager builds a Manager with the given config, UTC-midnight aligned.
func NewManager(config Config) *Manager {
	return &Manager{
		config:   config,
		breaker:  newBreaker(config.CircuitBreakerCooldown),
		dayStart: utcMidnight(time.Now()),
	}
}

func utcMidnight(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

func (m *Manager) rolloverIfNeeded() {
	today := utcMidnight(time.Now())
	if today.After(m.dayStart) {
		m.dayStart = today
		m.dailyPnL = 0
	}
}

// CheckOrder runs the fixed-order pipeline from spec §4.12 and returns
// (approved, reason). reason is empty when approved.
func (m *Manager) CheckOrder(req CheckRequest) (bool, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rolloverIfNeeded()

	if tripped, reason := m.breaker.CheckAndMaybeAutoReset(); tripped {
		return false, fmt.Sprintf("circuit breaker open: %s", reason)
	}

	if req.NotionalUSD > m.config.MaxOrderNotional {
		return false, fmt.Sprintf("order notional %.2f exceeds max %.2f", req.NotionalUSD, m.config.MaxOrderNotional)
	}

	projectedSymbolExposure := req.SymbolExposureUSD + req.NotionalUSD
	if projectedSymbolExposure > m.config.MaxPositionSizeUSD {
		return false, fmt.Sprintf("position size %.2f exceeds max %.2f", projectedSymbolExposure, m.config.MaxPositionSizeUSD)
	}
	if req.AccountBalance > 0 && projectedSymbolExposure/req.AccountBalance > m.config.MaxPositionSizePercent {
		return false, fmt.Sprintf("position size %.2f%% of balance exceeds max %.2f%%",
			100*projectedSymbolExposure/req.AccountBalance, 100*m.config.MaxPositionSizePercent)
	}

	if req.OpenPositionCount >= m.config.MaxPositions {
		return false, fmt.Sprintf("open position count %d reached max %d", req.OpenPositionCount, m.config.MaxPositions)
	}

	projectedTotalExposure := req.TotalExposureUSD + req.NotionalUSD
	if projectedTotalExposure > m.config.MaxTotalExposure {
		return false, fmt.Sprintf("total exposure %.2f exceeds max %.2f", projectedTotalExposure, m.config.MaxTotalExposure)
	}
	if req.AccountBalance > 0 && projectedTotalExposure/req.AccountBalance > m.config.MaxExposurePercent {
		return false, fmt.Sprintf("total exposure %.2f%% of balance exceeds max %.2f%%",
			100*projectedTotalExposure/req.AccountBalance, 100*m.config.MaxExposurePercent)
	}

	if m.dailyPnL < 0 {
		loss := -m.dailyPnL
		if loss > m.config.MaxDailyLoss {
			return false, fmt.Sprintf("daily loss %.2f exceeds max %.2f", loss, m.config.MaxDailyLoss)
		}
		if req.AccountBalance > 0 && loss/req.AccountBalance > m.config.MaxDailyLossPercent {
			return false, fmt.Sprintf("daily loss %.2f%% of balance exceeds max %.2f%%",
				100*loss/req.AccountBalance, 100*m.config.MaxDailyLossPercent)
		}
	}

	if req.OpenOrderCount >= m.config.MaxOpenOrders {
		return false, fmt.Sprintf("open order count %d reached max %d", req.OpenOrderCount, m.config.MaxOpenOrders)
	}

	if !req.IsMarket {
		if req.MarketPrice <= 0 {
			return false, "market price unavailable for price-sanity check"
		}
		deviation := math.Abs(req.LimitPrice-req.MarketPrice) / req.MarketPrice
		if deviation > m.config.MaxPriceDeviation {
			return false, fmt.Sprintf("limit price deviates %.2f%% from market, exceeds max %.2f%%",
				100*deviation, 100*m.config.MaxPriceDeviation)
		}
	}

	return true, ""
}

// RecordTrade updates daily P&L and the consecutive-loss streak, tripping
// the breaker if the streak reaches MaxConsecutiveLosses.
func (m *Manager) RecordTrade(pnl float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rolloverIfNeeded()

	m.dailyPnL += pnl
	if pnl < 0 {
		m.consecutiveLosses++
		if m.consecutiveLosses >= m.config.MaxConsecutiveLosses {
			m.breaker.Trip(fmt.Sprintf("consecutive losses: %d", m.consecutiveLosses))
		}
	} else {
		m.consecutiveLosses = 0
	}
}

// RecordError increments the consecutive-error counter, tripping the
// breaker if it reaches MaxConsecutiveErrors.
func (m *Manager) RecordError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.consecutiveErrors++
	if m.consecutiveErrors >= m.config.MaxConsecutiveErrors {
		m.breaker.Trip(fmt.Sprintf("consecutive errors: %d", m.consecutiveErrors))
	}
}

// RecordSuccess resets the consecutive-error counter.
func (m *Manager) RecordSuccess() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.consecutiveErrors = 0
}

// TripCircuitBreaker trips the breaker manually, e.g. from an operator command.
func (m *Manager) TripCircuitBreaker(reason string) {
	m.breaker.Trip(reason)
}

// ResetCircuitBreaker clears the breaker manually.
func (m *Manager) ResetCircuitBreaker() {
	m.breaker.Reset()
	m.mu.Lock()
	m.consecutiveLosses = 0
	m.consecutiveErrors = 0
	m.mu.Unlock()
}

// DailyPnL returns the running P&L for the current UTC day.
func (m *Manager) DailyPnL() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rolloverIfNeeded()
	return m.dailyPnL
}
