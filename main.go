// Command engine wires up the research/backtest pipeline end to end: it
// pulls a symbol's candle history through a KlineSource, detects patterns,
// structure, zones and the market cycle on each configured timeframe,
// scores confluence, generates a signal when one qualifies, and replays
// the resulting strategy through the backtest engine while routing order
// flow through risk, position and order management the way a live runner
// would. Grounded on the teacher's main.go composition-root shape
// (config -> logger -> event bus -> stores -> trading components), pared
// down to this engine's library-only scope (no HTTP/CLI front-end, no
// multi-tenant auth/billing -- those remain the caller's concern).
package main

import (
	"context"
	"math/rand"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/tradecore/engine/config"
	"github.com/tradecore/engine/internal/backtest"
	"github.com/tradecore/engine/internal/cache"
	"github.com/tradecore/engine/internal/candle"
	"github.com/tradecore/engine/internal/confluence"
	"github.com/tradecore/engine/internal/cycle"
	"github.com/tradecore/engine/internal/events"
	"github.com/tradecore/engine/internal/exchange"
	"github.com/tradecore/engine/internal/logging"
	"github.com/tradecore/engine/internal/marketdata"
	"github.com/tradecore/engine/internal/order"
	"github.com/tradecore/engine/internal/patterns"
	"github.com/tradecore/engine/internal/position"
	"github.com/tradecore/engine/internal/repository"
	"github.com/tradecore/engine/internal/risk"
	"github.com/tradecore/engine/internal/secrets"
	"github.com/tradecore/engine/internal/signal"
	"github.com/tradecore/engine/internal/structure"
	"github.com/tradecore/engine/internal/zones"
)

const entryTimeframe = candle.TF15m
const htfTimeframe = candle.TF4h
const symbol = "BTC-USD"

func main() {
	_ = config.LoadDotEnv(".env")
	cfg := config.Default()
	cfg.Database = config.DatabaseConfig{
		Host: envOr("DATABASE_HOST", "localhost"), Port: 5432,
		User: envOr("DATABASE_USER", "postgres"), Password: os.Getenv("DATABASE_PASSWORD"),
		Database: envOr("DATABASE_NAME", "tradecore"), SSLMode: envOr("DATABASE_SSLMODE", "disable"),
	}
	cfg.Redis = config.RedisConfig{Addr: envOr("REDIS_ADDR", "localhost:6379"), DB: 0}
	cfg.Vault = config.VaultConfig{Enabled: os.Getenv("VAULT_ADDR") != "", Address: os.Getenv("VAULT_ADDR"), Token: os.Getenv("VAULT_TOKEN"), SecretPath: "tradecore"}

	logger := logging.New(logging.Config{Level: cfg.Logging.Level, Output: cfg.Logging.Output, JSONFormat: cfg.Logging.JSONFormat, Component: "main"})
	bus := events.NewBus()
	bus.SubscribeAll(func(e events.Event) {
		logger.Info().Str("event", string(e.Type)).Interface("data", e.Data).Msg("event")
	})

	credProvider, err := secrets.NewProvider(cfg.Vault, logging.WithComponent("secrets"))
	if err != nil {
		logger.Fatal().Err(err).Msg("secrets provider init failed")
	}
	if _, err := credProvider.GetCredentials(context.Background(), "mock", true); err != nil {
		logger.Info().Msg("no cached exchange credentials yet; running against the mock exchange")
	}

	redisCache := cache.New(cfg.Redis, logging.WithComponent("cache"))
	defer redisCache.Close()

	var repo repository.CandleRepository
	if os.Getenv("DATABASE_HOST") != "" {
		db, err := repository.NewDB(context.Background(), repository.Config{
			Host: cfg.Database.Host, Port: cfg.Database.Port, User: cfg.Database.User,
			Password: cfg.Database.Password, Database: cfg.Database.Database, SSLMode: cfg.Database.SSLMode,
		}, logging.WithComponent("repository"))
		if err != nil {
			logger.Warn().Err(err).Msg("postgres unavailable, continuing without persistence")
		} else {
			defer db.Close()
			if err := db.RunMigrations(context.Background()); err != nil {
				logger.Warn().Err(err).Msg("schema migration failed")
			}
			repo = repository.NewPostgresRepository(db)
		}
	}

	source := newSyntheticSource()
	fetcher := marketdata.NewFetcher(source)
	start := time.Now().UTC().AddDate(0, 0, -30)
	candles, err := fetcher.FetchAll(context.Background(), symbol, entryTimeframe, &start, nil, func(fetched, batches int, oldest, newest time.Time) {
		logger.Debug().Int("fetched", fetched).Int("batches", batches).Msg("fetch progress")
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("historical fetch failed")
	}
	if repo != nil {
		records := make([]repository.CandleRecord, len(candles))
		for i, c := range candles {
			records[i] = repository.CandleRecord{Symbol: symbol, Timeframe: entryTimeframe, Source: "synthetic", Candle: c}
		}
		if n, err := repo.UpsertBatch(records); err != nil {
			logger.Warn().Err(err).Msg("candle persistence failed")
		} else {
			logger.Info().Int("inserted", n).Msg("candles persisted")
		}
	}

	htfCandles, err := candle.Resample(candles, entryTimeframe, htfTimeframe)
	if err != nil {
		logger.Fatal().Err(err).Msg("resample to higher timeframe failed")
	}

	detector := patterns.NewDetector()
	structureParams := structure.DefaultParams()
	zoneParams := zones.DefaultParams()
	cycleParams := cycle.DefaultParams()
	confluenceParams := confluence.DefaultParams()
	genParams := signal.DefaultGenerateParams()
	genParams.MinRR = cfg.Signal.MinRiskReward
	genParams.MaxSLPct = cfg.Signal.MaxStopLossPercent
	genParams.AllowZoneCrossing = cfg.Signal.AllowZoneCrossing

	riskManager := risk.NewManager(risk.DefaultConfig())
	tracker := position.New(logging.WithComponent("position"))
	trailing := risk.NewTrailingStopManager(risk.TrailingConfig{Enabled: true, TrailingPercent: 0.015, ActivationPercent: 0.01}, logging.WithComponent("trailing_stop"))
	audit := exchange.NewMemoryAuditSink()
	mockExchange := exchange.NewMockClient(map[string]float64{symbol: candles[len(candles)-1].Close}, audit)
	orderManager := order.New(riskManager, tracker, logging.WithComponent("order"))

	generator := func(c candle.Candle, index int) *signal.Signal {
		window := candles[:index+1]
		if len(window) < structureParams.Lookback*2+1 {
			return nil
		}
		htfWindow := htfCandlesUpTo(htfCandles, c.Timestamp)
		if len(htfWindow) < structureParams.Lookback*2+1 {
			return nil
		}
		entryCtx := buildContext(entryTimeframe, window, detector, structureParams, zoneParams, cycleParams)
		htfCtx := buildContext(htfTimeframe, htfWindow, detector, structureParams, zoneParams, cycleParams)

		score := confluence.Compute([]confluence.TimeframeContext{entryCtx, htfCtx}, entryTimeframe, nil, confluenceParams)
		_ = redisCache.SetConfluenceScore(context.Background(), symbol, entryTimeframe, htfTimeframe, score)
		if !score.GeneratesSignal {
			return nil
		}

		swings := structure.FindSwings(window, structureParams)
		zoneList := zones.Detect(window, swings, zoneParams)
		sig, err := signal.Generate(score, symbol, window, swings, zoneList, c.Timestamp, genParams)
		if err != nil || sig == nil {
			return nil
		}
		bus.PublishSignalGenerated(symbol, string(sig.Side), sig.SetupType, score.Total)
		return sig
	}

	btConfig := backtest.DefaultConfig()
	btConfig.InitialCapital = cfg.Backtest.InitialCapital
	btConfig.PositionSizePercent = cfg.Backtest.PositionSizePercent
	engine := backtest.New(btConfig, generator)
	engine.OnSnapshot(func(state backtest.State) {
		bus.PublishBacktestProgress(state.ProgressPercent, len(state.OpenTrades), len(state.ClosedTrades))
	})

	final := engine.Run(candles)
	logger.Info().
		Float64("final_capital", final.CurrentCapital).
		Int("closed_trades", len(final.ClosedTrades)).
		Msg("backtest complete")

	demoLiveOrderFlow(context.Background(), mockExchange, orderManager, tracker, trailing, logger)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func buildContext(tf candle.Timeframe, cs []candle.Candle, detector *patterns.Detector, sp structure.Params, zp zones.Params, cp cycle.Params) confluence.TimeframeContext {
	ps := detector.DetectAll(cs)
	summary := structure.Analyze(cs, sp)
	swings := structure.FindSwings(cs, sp)
	zoneList := zones.Detect(cs, swings, zp)
	metrics := cycle.ComputeMetrics(cs, cp)
	classification := cycle.Classify(metrics, cp)
	cycleConfidence := cycle.Confidence(metrics, cp)

	trend := confluence.None
	switch summary.CurrentTrend {
	case structure.TrendBullish:
		trend = confluence.Long
	case structure.TrendBearish:
		trend = confluence.Short
	}

	last := cs[len(cs)-1].Close
	inSupport, inResistance, zoneStrength := false, false, 0.0
	if z, ok := zones.FindNearest(zoneList, last, 0.01); ok {
		zoneStrength = strengthWeight(z.StrengthClass)
		if z.Type == zones.Support {
			inSupport = true
		} else {
			inResistance = true
		}
	}

	return confluence.TimeframeContext{
		Timeframe: tf, Candles: cs, Patterns: ps,
		TrendDirection: trend, TrendStrength: 1.0,
		MarketCycle: classification, CycleConfidence: cycleConfidence,
		InSupportZone: inSupport, InResistanceZone: inResistance, ZoneStrength: zoneStrength,
	}
}

func strengthWeight(s zones.StrengthClass) float64 {
	switch s {
	case zones.Major:
		return 1.0
	case zones.Strong:
		return 0.75
	case zones.Moderate:
		return 0.5
	default:
		return 0.25
	}
}

func htfCandlesUpTo(htf []candle.Candle, ts time.Time) []candle.Candle {
	i := 0
	for i < len(htf) && !htf[i].Timestamp.After(ts) {
		i++
	}
	return htf[:i]
}

// demoLiveOrderFlow shows the risk -> order -> position -> trailing-stop
// wiring a live runner would drive per generated signal, outside the
// backtest replay.
func demoLiveOrderFlow(ctx context.Context, client *exchange.MockClient, mgr *order.Manager, tracker *position.Tracker, trailing *risk.TrailingStopManager, logger zerolog.Logger) {
	req := exchange.OrderRequest{Symbol: symbol, Side: exchange.Buy, Kind: exchange.Market, Quantity: 0.01}
	check := risk.CheckRequest{Symbol: symbol, NotionalUSD: 500, IsMarket: true, AccountBalance: 10000}

	managed, err := mgr.SubmitOrder(ctx, req, check, client.PlaceOrder)
	if err != nil {
		logger.Warn().Err(err).Msg("order submission failed")
		return
	}
	logger.Info().Str("order_id", managed.ID).Str("status", string(managed.Status)).Msg("order submitted")
	if managed.Status != order.StatusSubmitted {
		return
	}

	placed, err := client.GetOrder(ctx, managed.ExchangeID)
	if err != nil {
		logger.Warn().Err(err).Msg("could not read back placed order")
		return
	}
	if _, err := mgr.ProcessFill(managed.ID, placed.Quantity, placed.Price, time.Now().UTC(), 0); err != nil {
		logger.Warn().Err(err).Msg("fill processing failed")
		return
	}

	if pos, ok := tracker.Get(symbol); ok {
		logger.Info().Float64("quantity", pos.Quantity).Float64("avg_entry", pos.AvgEntry).Msg("position open")
		trailing.AddPosition(symbol, position.SideBuy, pos.AvgEntry, pos.AvgEntry*0.98)
	}
}

// syntheticSource is a deterministic in-memory KlineSource standing in for
// a real exchange feed; swap it for internal/marketdata.HTTPKlineSource or
// a live exchange.Client-backed source to run against real data.
type syntheticSource struct {
	rng   *rand.Rand
	price float64
}

func newSyntheticSource() *syntheticSource {
	return &syntheticSource{rng: rand.New(rand.NewSource(7)), price: 30000}
}

func (s *syntheticSource) FetchKlines(ctx context.Context, symbol string, tf candle.Timeframe, startMs, endMs int64, limit int) ([]candle.Candle, error) {
	step := candle.Duration(tf)
	start := time.UnixMilli(startMs).UTC()
	end := time.UnixMilli(endMs).UTC()
	out := make([]candle.Candle, 0, limit)
	for i := 0; i < limit; i++ {
		ts := start.Add(time.Duration(i) * step)
		if !ts.Before(end) {
			break
		}
		open := s.price
		move := (s.rng.Float64() - 0.5) * open * 0.01
		cl := open + move
		high := max64(open, cl) + s.rng.Float64()*open*0.002
		low := min64(open, cl) - s.rng.Float64()*open*0.002
		s.price = cl
		out = append(out, candle.Candle{
			Symbol: symbol, Timeframe: tf, Source: "synthetic",
			Timestamp: ts, Open: open, High: high, Low: low, Close: cl,
			Volume: 10 + s.rng.Float64()*5,
		})
	}
	return out, nil
}

func max64(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func min64(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
