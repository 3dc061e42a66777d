// Package repository defines the persistence contracts of spec §6 and a
// pgx/v5-backed Postgres implementation, grounded on the teacher's
// internal/database/{db.go,repository.go}. Domain packages depend only on
// the narrow interface they need; PostgresRepository satisfies
// internal/marketdata's own SyncStateRepository directly (its Get/Upsert
// method names and signatures are dictated by that interface).
package repository

import (
	"time"

	"github.com/tradecore/engine/internal/candle"
	"github.com/tradecore/engine/internal/cycle"
	"github.com/tradecore/engine/internal/signal"
	"github.com/tradecore/engine/internal/zones"
)

// CandleRecord is a persisted candle row, keyed by (symbol, timeframe,
// timestamp, source) per spec §6.
type CandleRecord struct {
	Symbol    string
	Timeframe candle.Timeframe
	Source    string
	Candle    candle.Candle
}

// CandleRepository upserts candles and serves history queries for the
// resampler and detectors.
type CandleRepository interface {
	// UpsertBatch inserts records, skipping duplicates on the composite key
	// silently, and returns the number of rows actually inserted.
	UpsertBatch(records []CandleRecord) (int, error)
	Range(symbol string, tf candle.Timeframe, source string, from, to time.Time) ([]candle.Candle, error)
}

// FetchCheckpointRepository persists mid-backfill progress, independent of
// the sync-state cursor, so a crashed import can resume without restarting
// from the sync cursor's last confirmed point, per SPEC_FULL's C2 note.
type FetchCheckpointRepository interface {
	GetCheckpoint(symbol string, tf candle.Timeframe, source string) (FetchCheckpointRecord, bool, error)
	UpsertCheckpoint(c FetchCheckpointRecord) error
}

// FetchCheckpointRecord mirrors marketdata.FetchCheckpoint's fields as the
// row shape this package stores.
type FetchCheckpointRecord struct {
	Symbol        string
	Timeframe     candle.Timeframe
	Source        string
	LastWindowEnd time.Time
}

// StrategyRuleRepository persists the declarative setups of spec §3.1,
// including the outcome analyzer's statistics updates.
type StrategyRuleRepository interface {
	GetRule(id string) (signal.StrategyRule, bool, error)
	ListEnabledRules() ([]signal.StrategyRule, error)
	UpsertRule(rule signal.StrategyRule) error
	UpdateRuleStats(id string, tradeCount int, winRate, avgRMultiple, confidence float64) error
}

// TradeRecord is a persisted trade row, mirroring the Trade entity of spec
// §3.1.
type TradeRecord struct {
	ID              string
	StrategyRuleID  string
	Symbol          string
	Side            string
	EntryPrice      float64
	EntryTime       time.Time
	Quantity        float64
	Stop            float64
	TPLevels        []float64
	Status          string
	ExitPrice       *float64
	ExitTime        *time.Time
	ExitReason      string
	RealizedPnL     float64
	RMultiple       float64
	Reasoning       string
	PartialExitsPct float64
}

// TradeRepository persists executed/simulated trades.
type TradeRepository interface {
	CreateTrade(t TradeRecord) (string, error)
	UpdateTrade(t TradeRecord) error
	GetTrade(id string) (TradeRecord, bool, error)
	ListTradesBySymbol(symbol string, limit int) ([]TradeRecord, error)
}

// TradeDecisionRecord captures one signal-to-trade decision point (taken or
// skipped) for audit and feedback-loop replay.
type TradeDecisionRecord struct {
	ID        string
	SignalID  string
	TradeID   string // empty if the signal was not acted on
	Symbol    string
	Decision  string // "taken" or "skipped"
	Reason    string
	DecidedAt time.Time
}

// TradeDecisionRepository persists the audit trail of signal dispositions.
type TradeDecisionRepository interface {
	CreateDecision(d TradeDecisionRecord) (string, error)
	ListDecisionsBySymbol(symbol string, limit int) ([]TradeDecisionRecord, error)
}

// LearningJournalEntry is one outcome-analyzer retrospective, persisted for
// later aggregation into LearningInsight rows.
type LearningJournalEntry struct {
	ID                string
	TradeID           string
	SetupValidity     string
	PerformanceRating int
	WhatWorked        []string
	WhatDidnt         []string
	Lessons           []string
	CreatedAt         time.Time
}

// LearningInsightRecord is the persisted form of outcome.LearningInsight.
type LearningInsightRecord struct {
	ContextDescription string
	SampleSize         int
	WinRate            float64
	BaselineWinRate    float64
	EffectSize         float64
	Confidence         float64
	Active             bool
}

// LearningJournalRepository persists per-trade retrospectives and the
// aggregated insights derived from them.
type LearningJournalRepository interface {
	AppendJournalEntry(e LearningJournalEntry) (string, error)
	ListJournalByTrade(tradeID string) ([]LearningJournalEntry, error)
	UpsertInsight(i LearningInsightRecord) error
	ListActiveInsights() ([]LearningInsightRecord, error)
}

// ZoneRecord ties a detected zone to the symbol/timeframe it was computed on.
type ZoneRecord struct {
	Symbol    string
	Timeframe candle.Timeframe
	Zone      zones.Zone
}

// ZoneRepository persists support/resistance zones between process runs.
type ZoneRepository interface {
	UpsertZone(r ZoneRecord) error
	ListActiveZones(symbol string, tf candle.Timeframe) ([]zones.Zone, error)
	MarkZoneBroken(symbol string, tf candle.Timeframe, top, bottom float64) error
}

// MarketStructureRecord is one rolling cycle-classification history entry,
// persisted so a live loop's cycle_duration_candles and
// transition_probability survive a restart (the backtest engine keeps its
// own in-memory history, per SPEC_FULL's C3-C6 note).
type MarketStructureRecord struct {
	Symbol         string
	Timeframe      candle.Timeframe
	Classification cycle.Classification
	CandleIndex    int
	RecordedAt     time.Time
}

// MarketStructureRepository persists the cycle classification history.
type MarketStructureRepository interface {
	AppendMarketStructure(r MarketStructureRecord) error
	MarketStructureHistory(symbol string, tf candle.Timeframe, limit int) ([]MarketStructureRecord, error)
}
