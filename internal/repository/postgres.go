package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/tradecore/engine/internal/candle"
	"github.com/tradecore/engine/internal/cycle"
	"github.com/tradecore/engine/internal/marketdata"
	"github.com/tradecore/engine/internal/signal"
	"github.com/tradecore/engine/internal/zones"
)

// PostgresRepository implements every repository interface of spec §6 over
// a single connection pool, grounded on the teacher's database.Repository.
type PostgresRepository struct {
	db *DB
}

// NewPostgresRepository wraps an open DB in the repository interfaces.
func NewPostgresRepository(db *DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

var (
	_ CandleRepository           = (*PostgresRepository)(nil)
	_ FetchCheckpointRepository  = (*PostgresRepository)(nil)
	_ marketdata.SyncStateRepository = (*PostgresRepository)(nil)
	_ StrategyRuleRepository     = (*PostgresRepository)(nil)
	_ TradeRepository            = (*PostgresRepository)(nil)
	_ TradeDecisionRepository    = (*PostgresRepository)(nil)
	_ LearningJournalRepository  = (*PostgresRepository)(nil)
	_ ZoneRepository             = (*PostgresRepository)(nil)
	_ MarketStructureRepository  = (*PostgresRepository)(nil)
)

func (r *PostgresRepository) ctx() context.Context {
	return context.Background()
}

// -- candles -----------------------------------------------------------

// UpsertBatch inserts candle rows, skipping duplicates on the composite key
// silently per spec §6, and returns the count actually inserted.
func (r *PostgresRepository) UpsertBatch(records []CandleRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	inserted := 0
	batch := &pgx.Batch{}
	for _, rec := range records {
		batch.Queue(
			`INSERT INTO candles (symbol, timeframe, source, ts, open, high, low, close, volume)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
			 ON CONFLICT (symbol, timeframe, source, ts) DO NOTHING`,
			rec.Symbol, string(rec.Timeframe), rec.Source, rec.Candle.Timestamp,
			rec.Candle.Open, rec.Candle.High, rec.Candle.Low, rec.Candle.Close, rec.Candle.Volume,
		)
	}
	br := r.db.Pool.SendBatch(r.ctx(), batch)
	defer br.Close()
	for range records {
		tag, err := br.Exec()
		if err != nil {
			return inserted, fmt.Errorf("repository: upsert candle batch: %w", err)
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}

// Range returns candles for symbol/timeframe/source within [from, to], ordered by timestamp.
func (r *PostgresRepository) Range(symbol string, tf candle.Timeframe, source string, from, to time.Time) ([]candle.Candle, error) {
	rows, err := r.db.Pool.Query(r.ctx(),
		`SELECT ts, open, high, low, close, volume FROM candles
		 WHERE symbol=$1 AND timeframe=$2 AND source=$3 AND ts >= $4 AND ts <= $5
		 ORDER BY ts ASC`,
		symbol, string(tf), source, from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("repository: candle range: %w", err)
	}
	defer rows.Close()

	var out []candle.Candle
	for rows.Next() {
		var c candle.Candle
		if err := rows.Scan(&c.Timestamp, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, fmt.Errorf("repository: scan candle: %w", err)
		}
		c.Symbol = symbol
		c.Timeframe = tf
		out = append(out, c)
	}
	return out, rows.Err()
}

// -- fetch checkpoints ---------------------------------------------------

func (r *PostgresRepository) GetCheckpoint(symbol string, tf candle.Timeframe, source string) (FetchCheckpointRecord, bool, error) {
	var c FetchCheckpointRecord
	c.Symbol, c.Timeframe, c.Source = symbol, tf, source
	err := r.db.Pool.QueryRow(r.ctx(),
		`SELECT last_window_end FROM fetch_checkpoints WHERE symbol=$1 AND timeframe=$2 AND source=$3`,
		symbol, string(tf), source,
	).Scan(&c.LastWindowEnd)
	if err == pgx.ErrNoRows {
		return FetchCheckpointRecord{}, false, nil
	}
	if err != nil {
		return FetchCheckpointRecord{}, false, fmt.Errorf("repository: get checkpoint: %w", err)
	}
	return c, true, nil
}

func (r *PostgresRepository) UpsertCheckpoint(c FetchCheckpointRecord) error {
	_, err := r.db.Pool.Exec(r.ctx(),
		`INSERT INTO fetch_checkpoints (symbol, timeframe, source, last_window_end)
		 VALUES ($1,$2,$3,$4)
		 ON CONFLICT (symbol, timeframe, source) DO UPDATE SET last_window_end = EXCLUDED.last_window_end`,
		c.Symbol, string(c.Timeframe), c.Source, c.LastWindowEnd,
	)
	if err != nil {
		return fmt.Errorf("repository: upsert checkpoint: %w", err)
	}
	return nil
}

// -- sync state (implements marketdata.SyncStateRepository exactly) -----

func (r *PostgresRepository) Get(symbol string, tf candle.Timeframe, source string) (marketdata.SyncState, bool, error) {
	s := marketdata.SyncState{Symbol: symbol, Timeframe: tf, Source: source}
	var lastSync, oldest, newest *time.Time
	err := r.db.Pool.QueryRow(r.ctx(),
		`SELECT last_sync_at, oldest_ts, newest_ts, candle_count, is_syncing, last_error
		 FROM sync_state WHERE symbol=$1 AND timeframe=$2 AND source=$3`,
		symbol, string(tf), source,
	).Scan(&lastSync, &oldest, &newest, &s.CandleCount, &s.IsSyncing, &s.LastError)
	if err == pgx.ErrNoRows {
		return marketdata.SyncState{}, false, nil
	}
	if err != nil {
		return marketdata.SyncState{}, false, fmt.Errorf("repository: get sync state: %w", err)
	}
	if lastSync != nil {
		s.LastSyncAt = *lastSync
	}
	if oldest != nil {
		s.OldestTS = *oldest
	}
	if newest != nil {
		s.NewestTS = *newest
	}
	return s, true, nil
}

func (r *PostgresRepository) Upsert(state marketdata.SyncState) error {
	_, err := r.db.Pool.Exec(r.ctx(),
		`INSERT INTO sync_state (symbol, timeframe, source, last_sync_at, oldest_ts, newest_ts, candle_count, is_syncing, last_error)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		 ON CONFLICT (symbol, timeframe, source) DO UPDATE SET
		   last_sync_at = EXCLUDED.last_sync_at, oldest_ts = EXCLUDED.oldest_ts,
		   newest_ts = EXCLUDED.newest_ts, candle_count = EXCLUDED.candle_count,
		   is_syncing = EXCLUDED.is_syncing, last_error = EXCLUDED.last_error`,
		state.Symbol, string(state.Timeframe), state.Source, nullTime(state.LastSyncAt),
		nullTime(state.OldestTS), nullTime(state.NewestTS), state.CandleCount, state.IsSyncing, state.LastError,
	)
	if err != nil {
		return fmt.Errorf("repository: upsert sync state: %w", err)
	}
	return nil
}

func nullTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}

// -- strategy rules -------------------------------------------------------

func (r *PostgresRepository) GetRule(id string) (signal.StrategyRule, bool, error) {
	var payload []byte
	var confidence float64
	var tradeCount int
	var winRate, avgR *float64
	var enabled bool
	err := r.db.Pool.QueryRow(r.ctx(),
		`SELECT definition, confidence, trade_count, win_rate, avg_r_multiple, enabled
		 FROM strategy_rules WHERE id=$1`, id,
	).Scan(&payload, &confidence, &tradeCount, &winRate, &avgR, &enabled)
	if err == pgx.ErrNoRows {
		return signal.StrategyRule{}, false, nil
	}
	if err != nil {
		return signal.StrategyRule{}, false, fmt.Errorf("repository: get rule: %w", err)
	}
	var rule signal.StrategyRule
	if err := json.Unmarshal(payload, &rule); err != nil {
		return signal.StrategyRule{}, false, fmt.Errorf("repository: decode rule: %w", err)
	}
	rule.ID = id
	rule.Confidence, rule.TradeCount, rule.WinRate, rule.AvgRMultiple, rule.Enabled = confidence, tradeCount, winRate, avgR, enabled
	return rule, true, nil
}

func (r *PostgresRepository) ListEnabledRules() ([]signal.StrategyRule, error) {
	rows, err := r.db.Pool.Query(r.ctx(),
		`SELECT id, definition, confidence, trade_count, win_rate, avg_r_multiple, enabled
		 FROM strategy_rules WHERE enabled = TRUE`)
	if err != nil {
		return nil, fmt.Errorf("repository: list enabled rules: %w", err)
	}
	defer rows.Close()

	var out []signal.StrategyRule
	for rows.Next() {
		var id string
		var payload []byte
		var confidence float64
		var tradeCount int
		var winRate, avgR *float64
		var enabled bool
		if err := rows.Scan(&id, &payload, &confidence, &tradeCount, &winRate, &avgR, &enabled); err != nil {
			return nil, fmt.Errorf("repository: scan rule: %w", err)
		}
		var rule signal.StrategyRule
		if err := json.Unmarshal(payload, &rule); err != nil {
			return nil, fmt.Errorf("repository: decode rule: %w", err)
		}
		rule.ID = id
		rule.Confidence, rule.TradeCount, rule.WinRate, rule.AvgRMultiple, rule.Enabled = confidence, tradeCount, winRate, avgR, enabled
		out = append(out, rule)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) UpsertRule(rule signal.StrategyRule) error {
	payload, err := json.Marshal(rule)
	if err != nil {
		return fmt.Errorf("repository: encode rule: %w", err)
	}
	_, err = r.db.Pool.Exec(r.ctx(),
		`INSERT INTO strategy_rules (id, name, entry_type, definition, confidence, trade_count, win_rate, avg_r_multiple, enabled)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		 ON CONFLICT (id) DO UPDATE SET
		   name = EXCLUDED.name, entry_type = EXCLUDED.entry_type, definition = EXCLUDED.definition,
		   confidence = EXCLUDED.confidence, trade_count = EXCLUDED.trade_count,
		   win_rate = EXCLUDED.win_rate, avg_r_multiple = EXCLUDED.avg_r_multiple, enabled = EXCLUDED.enabled`,
		rule.ID, rule.Name, rule.EntryType, payload, rule.Confidence, rule.TradeCount, rule.WinRate, rule.AvgRMultiple, rule.Enabled,
	)
	if err != nil {
		return fmt.Errorf("repository: upsert rule: %w", err)
	}
	return nil
}

// UpdateRuleStats is called by the outcome analyzer after every terminal
// trade, per spec §3.2's "mutated only by the outcome analyzer" rule.
func (r *PostgresRepository) UpdateRuleStats(id string, tradeCount int, winRate, avgRMultiple, confidence float64) error {
	_, err := r.db.Pool.Exec(r.ctx(),
		`UPDATE strategy_rules SET trade_count=$2, win_rate=$3, avg_r_multiple=$4, confidence=$5 WHERE id=$1`,
		id, tradeCount, winRate, avgRMultiple, confidence,
	)
	if err != nil {
		return fmt.Errorf("repository: update rule stats: %w", err)
	}
	return nil
}

// -- trades ----------------------------------------------------------------

func (r *PostgresRepository) CreateTrade(t TradeRecord) (string, error) {
	tpLevels, err := json.Marshal(t.TPLevels)
	if err != nil {
		return "", fmt.Errorf("repository: encode tp levels: %w", err)
	}
	_, err = r.db.Pool.Exec(r.ctx(),
		`INSERT INTO trades (id, strategy_rule_id, symbol, side, entry_price, entry_time, quantity, stop, tp_levels, status, reasoning)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		t.ID, t.StrategyRuleID, t.Symbol, t.Side, t.EntryPrice, t.EntryTime, t.Quantity, t.Stop, tpLevels, t.Status, t.Reasoning,
	)
	if err != nil {
		return "", fmt.Errorf("repository: create trade: %w", err)
	}
	return t.ID, nil
}

func (r *PostgresRepository) UpdateTrade(t TradeRecord) error {
	_, err := r.db.Pool.Exec(r.ctx(),
		`UPDATE trades SET status=$2, exit_price=$3, exit_time=$4, exit_reason=$5,
		   realized_pnl=$6, r_multiple=$7, partial_exits_pct=$8 WHERE id=$1`,
		t.ID, t.Status, t.ExitPrice, t.ExitTime, t.ExitReason, t.RealizedPnL, t.RMultiple, t.PartialExitsPct,
	)
	if err != nil {
		return fmt.Errorf("repository: update trade: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetTrade(id string) (TradeRecord, bool, error) {
	var t TradeRecord
	var tpLevels []byte
	t.ID = id
	err := r.db.Pool.QueryRow(r.ctx(),
		`SELECT strategy_rule_id, symbol, side, entry_price, entry_time, quantity, stop, tp_levels,
		        status, exit_price, exit_time, exit_reason, realized_pnl, r_multiple, reasoning, partial_exits_pct
		 FROM trades WHERE id=$1`, id,
	).Scan(&t.StrategyRuleID, &t.Symbol, &t.Side, &t.EntryPrice, &t.EntryTime, &t.Quantity, &t.Stop, &tpLevels,
		&t.Status, &t.ExitPrice, &t.ExitTime, &t.ExitReason, &t.RealizedPnL, &t.RMultiple, &t.Reasoning, &t.PartialExitsPct)
	if err == pgx.ErrNoRows {
		return TradeRecord{}, false, nil
	}
	if err != nil {
		return TradeRecord{}, false, fmt.Errorf("repository: get trade: %w", err)
	}
	_ = json.Unmarshal(tpLevels, &t.TPLevels)
	return t, true, nil
}

func (r *PostgresRepository) ListTradesBySymbol(symbol string, limit int) ([]TradeRecord, error) {
	rows, err := r.db.Pool.Query(r.ctx(),
		`SELECT id, strategy_rule_id, side, entry_price, entry_time, quantity, stop, tp_levels,
		        status, exit_price, exit_time, exit_reason, realized_pnl, r_multiple, reasoning, partial_exits_pct
		 FROM trades WHERE symbol=$1 ORDER BY entry_time DESC LIMIT $2`, symbol, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("repository: list trades: %w", err)
	}
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		var t TradeRecord
		var tpLevels []byte
		t.Symbol = symbol
		if err := rows.Scan(&t.ID, &t.StrategyRuleID, &t.Side, &t.EntryPrice, &t.EntryTime, &t.Quantity, &t.Stop, &tpLevels,
			&t.Status, &t.ExitPrice, &t.ExitTime, &t.ExitReason, &t.RealizedPnL, &t.RMultiple, &t.Reasoning, &t.PartialExitsPct); err != nil {
			return nil, fmt.Errorf("repository: scan trade: %w", err)
		}
		_ = json.Unmarshal(tpLevels, &t.TPLevels)
		out = append(out, t)
	}
	return out, rows.Err()
}

// -- trade decisions ---------------------------------------------------

func (r *PostgresRepository) CreateDecision(d TradeDecisionRecord) (string, error) {
	_, err := r.db.Pool.Exec(r.ctx(),
		`INSERT INTO trade_decisions (id, signal_id, trade_id, symbol, decision, reason, decided_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		d.ID, d.SignalID, d.TradeID, d.Symbol, d.Decision, d.Reason, d.DecidedAt,
	)
	if err != nil {
		return "", fmt.Errorf("repository: create decision: %w", err)
	}
	return d.ID, nil
}

func (r *PostgresRepository) ListDecisionsBySymbol(symbol string, limit int) ([]TradeDecisionRecord, error) {
	rows, err := r.db.Pool.Query(r.ctx(),
		`SELECT id, signal_id, trade_id, decision, reason, decided_at
		 FROM trade_decisions WHERE symbol=$1 ORDER BY decided_at DESC LIMIT $2`, symbol, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("repository: list decisions: %w", err)
	}
	defer rows.Close()

	var out []TradeDecisionRecord
	for rows.Next() {
		d := TradeDecisionRecord{Symbol: symbol}
		if err := rows.Scan(&d.ID, &d.SignalID, &d.TradeID, &d.Decision, &d.Reason, &d.DecidedAt); err != nil {
			return nil, fmt.Errorf("repository: scan decision: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// -- learning journal / insights ---------------------------------------

func (r *PostgresRepository) AppendJournalEntry(e LearningJournalEntry) (string, error) {
	whatWorked, _ := json.Marshal(e.WhatWorked)
	whatDidnt, _ := json.Marshal(e.WhatDidnt)
	lessons, _ := json.Marshal(e.Lessons)
	_, err := r.db.Pool.Exec(r.ctx(),
		`INSERT INTO learning_journal (id, trade_id, setup_validity, performance_rating, what_worked, what_didnt, lessons, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		e.ID, e.TradeID, e.SetupValidity, e.PerformanceRating, whatWorked, whatDidnt, lessons, e.CreatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("repository: append journal entry: %w", err)
	}
	return e.ID, nil
}

func (r *PostgresRepository) ListJournalByTrade(tradeID string) ([]LearningJournalEntry, error) {
	rows, err := r.db.Pool.Query(r.ctx(),
		`SELECT id, setup_validity, performance_rating, what_worked, what_didnt, lessons, created_at
		 FROM learning_journal WHERE trade_id=$1 ORDER BY created_at ASC`, tradeID,
	)
	if err != nil {
		return nil, fmt.Errorf("repository: list journal: %w", err)
	}
	defer rows.Close()

	var out []LearningJournalEntry
	for rows.Next() {
		e := LearningJournalEntry{TradeID: tradeID}
		var whatWorked, whatDidnt, lessons []byte
		if err := rows.Scan(&e.ID, &e.SetupValidity, &e.PerformanceRating, &whatWorked, &whatDidnt, &lessons, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("repository: scan journal entry: %w", err)
		}
		_ = json.Unmarshal(whatWorked, &e.WhatWorked)
		_ = json.Unmarshal(whatDidnt, &e.WhatDidnt)
		_ = json.Unmarshal(lessons, &e.Lessons)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) UpsertInsight(i LearningInsightRecord) error {
	_, err := r.db.Pool.Exec(r.ctx(),
		`INSERT INTO learning_insights (context_description, sample_size, win_rate, baseline_win_rate, effect_size, confidence, active)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)
		 ON CONFLICT (context_description) DO UPDATE SET
		   sample_size = EXCLUDED.sample_size, win_rate = EXCLUDED.win_rate, baseline_win_rate = EXCLUDED.baseline_win_rate,
		   effect_size = EXCLUDED.effect_size, confidence = EXCLUDED.confidence, active = EXCLUDED.active`,
		i.ContextDescription, i.SampleSize, i.WinRate, i.BaselineWinRate, i.EffectSize, i.Confidence, i.Active,
	)
	if err != nil {
		return fmt.Errorf("repository: upsert insight: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListActiveInsights() ([]LearningInsightRecord, error) {
	rows, err := r.db.Pool.Query(r.ctx(),
		`SELECT context_description, sample_size, win_rate, baseline_win_rate, effect_size, confidence, active
		 FROM learning_insights WHERE active = TRUE`)
	if err != nil {
		return nil, fmt.Errorf("repository: list active insights: %w", err)
	}
	defer rows.Close()

	var out []LearningInsightRecord
	for rows.Next() {
		var i LearningInsightRecord
		if err := rows.Scan(&i.ContextDescription, &i.SampleSize, &i.WinRate, &i.BaselineWinRate, &i.EffectSize, &i.Confidence, &i.Active); err != nil {
			return nil, fmt.Errorf("repository: scan insight: %w", err)
		}
		out = append(out, i)
	}
	return out, rows.Err()
}

// -- zones ----------------------------------------------------------------

func (r *PostgresRepository) UpsertZone(rec ZoneRecord) error {
	z := rec.Zone
	_, err := r.db.Pool.Exec(r.ctx(),
		`INSERT INTO zones (symbol, timeframe, top, bottom, zone_type, strength_class, touches, bounces, first_touch, last_touch, avg_volume, broken)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		 ON CONFLICT (symbol, timeframe, top, bottom) DO UPDATE SET
		   zone_type = EXCLUDED.zone_type, strength_class = EXCLUDED.strength_class, touches = EXCLUDED.touches,
		   bounces = EXCLUDED.bounces, first_touch = EXCLUDED.first_touch, last_touch = EXCLUDED.last_touch,
		   avg_volume = EXCLUDED.avg_volume, broken = EXCLUDED.broken`,
		rec.Symbol, string(rec.Timeframe), z.Top, z.Bottom, string(z.Type), string(z.StrengthClass),
		z.Touches, z.Bounces, z.FirstTouch, z.LastTouch, z.AvgVolume, z.Broken,
	)
	if err != nil {
		return fmt.Errorf("repository: upsert zone: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListActiveZones(symbol string, tf candle.Timeframe) ([]zones.Zone, error) {
	rows, err := r.db.Pool.Query(r.ctx(),
		`SELECT top, bottom, zone_type, strength_class, touches, bounces, first_touch, last_touch, avg_volume, broken
		 FROM zones WHERE symbol=$1 AND timeframe=$2 AND broken = FALSE`, symbol, string(tf),
	)
	if err != nil {
		return nil, fmt.Errorf("repository: list active zones: %w", err)
	}
	defer rows.Close()

	var out []zones.Zone
	for rows.Next() {
		var z zones.Zone
		var zoneType, strengthClass string
		if err := rows.Scan(&z.Top, &z.Bottom, &zoneType, &strengthClass, &z.Touches, &z.Bounces, &z.FirstTouch, &z.LastTouch, &z.AvgVolume, &z.Broken); err != nil {
			return nil, fmt.Errorf("repository: scan zone: %w", err)
		}
		z.Type, z.StrengthClass = zones.Type(zoneType), zones.StrengthClass(strengthClass)
		out = append(out, z)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) MarkZoneBroken(symbol string, tf candle.Timeframe, top, bottom float64) error {
	_, err := r.db.Pool.Exec(r.ctx(),
		`UPDATE zones SET broken = TRUE WHERE symbol=$1 AND timeframe=$2 AND top=$3 AND bottom=$4`,
		symbol, string(tf), top, bottom,
	)
	if err != nil {
		return fmt.Errorf("repository: mark zone broken: %w", err)
	}
	return nil
}

// -- market structure ----------------------------------------------------

func (r *PostgresRepository) AppendMarketStructure(rec MarketStructureRecord) error {
	_, err := r.db.Pool.Exec(r.ctx(),
		`INSERT INTO market_structure (symbol, timeframe, candle_index, classification, recorded_at)
		 VALUES ($1,$2,$3,$4,$5)
		 ON CONFLICT (symbol, timeframe, candle_index) DO UPDATE SET
		   classification = EXCLUDED.classification, recorded_at = EXCLUDED.recorded_at`,
		rec.Symbol, string(rec.Timeframe), rec.CandleIndex, string(rec.Classification), rec.RecordedAt,
	)
	if err != nil {
		return fmt.Errorf("repository: append market structure: %w", err)
	}
	return nil
}

func (r *PostgresRepository) MarketStructureHistory(symbol string, tf candle.Timeframe, limit int) ([]MarketStructureRecord, error) {
	rows, err := r.db.Pool.Query(r.ctx(),
		`SELECT candle_index, classification, recorded_at FROM market_structure
		 WHERE symbol=$1 AND timeframe=$2 ORDER BY candle_index DESC LIMIT $3`, symbol, string(tf), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("repository: market structure history: %w", err)
	}
	defer rows.Close()

	var out []MarketStructureRecord
	for rows.Next() {
		rec := MarketStructureRecord{Symbol: symbol, Timeframe: tf}
		var classification string
		if err := rows.Scan(&rec.CandleIndex, &classification, &rec.RecordedAt); err != nil {
			return nil, fmt.Errorf("repository: scan market structure: %w", err)
		}
		rec.Classification = cycle.Classification(classification)
		out = append(out, rec)
	}
	return out, rows.Err()
}
