// Package config holds the typed settings surface for every engine
// component (§6 of the spec): the shapes, sane defaults, and two loading
// helpers (LoadDotEnv for a local .env file, ApplyRiskEnvOverrides for
// risk limits from environment variables). Loading from other files, flags,
// or a secrets manager is a caller concern (CLI wrappers are a non-goal).
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates every component's settings.
type Config struct {
	Risk       RiskConfig       `json:"risk"`
	RateLimit  RateLimitConfig  `json:"ratelim"`
	Backtest   BacktestConfig   `json:"backtest"`
	Signal     SignalConfig     `json:"signal"`
	Confluence ConfluenceConfig `json:"confluence"`
	Detector   DetectorConfig   `json:"detector"`
	Database   DatabaseConfig   `json:"database"`
	Redis      RedisConfig      `json:"redis"`
	Vault      VaultConfig      `json:"vault"`
	Logging    LoggingConfig    `json:"logging"`
}

// RiskConfig mirrors spec §6's "risk" group.
type RiskConfig struct {
	MaxOrderNotional       float64       `json:"max_order_notional"`
	MaxPositionSizeUSD     float64       `json:"max_position_size_usd"`
	MaxPositionSizePercent float64       `json:"max_position_size_percent"`
	MaxTotalExposure       float64       `json:"max_total_exposure"`
	MaxExposurePercent     float64       `json:"max_exposure_percent"`
	MaxPositions           int           `json:"max_positions"`
	MaxOpenOrders          int           `json:"max_open_orders"`
	MaxDailyLoss           float64       `json:"max_daily_loss"`
	MaxDailyLossPercent    float64       `json:"max_daily_loss_percent"`
	MaxConsecutiveLosses   int           `json:"max_consecutive_losses"`
	MaxConsecutiveErrors   int           `json:"max_consecutive_errors"`
	MaxPriceDeviation      float64       `json:"max_price_deviation"`
	CircuitBreakerCooldown time.Duration `json:"circuit_breaker_cooldown"`
}

// DefaultRiskConfig returns conservative defaults.
func DefaultRiskConfig() RiskConfig {
	return RiskConfig{
		MaxOrderNotional:       50000,
		MaxPositionSizeUSD:     25000,
		MaxPositionSizePercent: 0.20,
		MaxTotalExposure:       100000,
		MaxExposurePercent:     0.80,
		MaxPositions:           5,
		MaxOpenOrders:          10,
		MaxDailyLoss:           5000,
		MaxDailyLossPercent:    0.05,
		MaxConsecutiveLosses:   3,
		MaxConsecutiveErrors:   5,
		MaxPriceDeviation:      0.02,
		CircuitBreakerCooldown: 30 * time.Minute,
	}
}

// RateLimitConfig mirrors spec §6's "ratelim" group / §4.9.
type RateLimitConfig struct {
	MaxRequests     int           `json:"max_requests"`
	Window          time.Duration `json:"window"`
	HeadroomPercent float64       `json:"headroom_percent"`
}

// DefaultRateLimitConfig matches §6's example venue: 100 req/min, 30% headroom.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxRequests:     100,
		Window:          time.Minute,
		HeadroomPercent: 0.30,
	}
}

// BacktestConfig mirrors §4.14.
type BacktestConfig struct {
	InitialCapital       float64 `json:"initial_capital"`
	PositionSizePercent  float64 `json:"position_size_percent"`
	MaxOpenTrades        int     `json:"max_open_trades"`
	CommissionPercent    float64 `json:"commission_percent"`
	SlippagePercent      float64 `json:"slippage_percent"`
	PartialExitEnabled   bool    `json:"partial_exit_enabled"`
	TP1ExitPercent       float64 `json:"tp1_exit_percent"`
	TP2ExitPercent       float64 `json:"tp2_exit_percent"`
	TPExitRemainderToTP3 bool    `json:"tp_exit_fraction_remainder_to_tp3"`
	EmitInterval         int     `json:"emit_interval"`
}

// DefaultBacktestConfig returns the example values used throughout spec §8.
func DefaultBacktestConfig() BacktestConfig {
	return BacktestConfig{
		InitialCapital:       10000,
		PositionSizePercent:  0.01,
		MaxOpenTrades:        5,
		CommissionPercent:    0.0004,
		SlippagePercent:      0.0002,
		PartialExitEnabled:   true,
		TP1ExitPercent:       0.5,
		TP2ExitPercent:       0.3,
		TPExitRemainderToTP3: true,
		EmitInterval:         50,
	}
}

// SignalConfig mirrors §6's "signal" group / §4.7-4.8.
type SignalConfig struct {
	MinConfluenceScore       float64 `json:"min_confluence_score"`
	MinPatternScore          float64 `json:"min_pattern_score"`
	MinAgreementPercentage   float64 `json:"min_agreement_percentage"`
	MinRiskReward            float64 `json:"min_risk_reward"`
	MaxStopLossPercent       float64 `json:"max_stop_loss_percent"`
	UseATRStops              bool    `json:"use_atr_stops"`
	ATRMultiplier            float64 `json:"atr_multiplier"`
	RequireHigherTFAlignment bool    `json:"require_higher_tf_alignment"`
	AllowZoneCrossing        bool    `json:"allow_zone_crossing"`
}

// DefaultSignalConfig matches spec defaults (min_total 0.65, min_rr 2.0, etc).
func DefaultSignalConfig() SignalConfig {
	return SignalConfig{
		MinConfluenceScore:       0.65,
		MinPatternScore:          0.50,
		MinAgreementPercentage:   0.60,
		MinRiskReward:            2.0,
		MaxStopLossPercent:       0.05,
		UseATRStops:              true,
		ATRMultiplier:            2.0,
		RequireHigherTFAlignment: false,
		AllowZoneCrossing:        false,
	}
}

// ConfluenceConfig mirrors §4.7's default weights.
type ConfluenceConfig struct {
	WeightPattern   float64 `json:"weight_pattern"`
	WeightStructure float64 `json:"weight_structure"`
	WeightCycle     float64 `json:"weight_cycle"`
	WeightTimeframe float64 `json:"weight_timeframe"`
	WeightZone      float64 `json:"weight_zone"`
}

// DefaultConfluenceConfig returns the spec's default weights (sum to 1.0).
func DefaultConfluenceConfig() ConfluenceConfig {
	return ConfluenceConfig{
		WeightPattern:   0.30,
		WeightStructure: 0.25,
		WeightCycle:     0.15,
		WeightTimeframe: 0.20,
		WeightZone:      0.10,
	}
}

// DetectorConfig mirrors §6's "detector" group / §4.3-4.5.
type DetectorConfig struct {
	Lookback            int     `json:"lookback"`
	MinSwingBodyPct     float64 `json:"min_swing_body_pct"`
	MinGapSize          float64 `json:"min_gap_size"`
	MinVolumePercentile float64 `json:"min_volume_percentile"`
	MinMoveSize         float64 `json:"min_move_size"`
	ZoneBandPct         float64 `json:"zone_band_pct"`
	ZoneMergeThreshold  float64 `json:"zone_merge_threshold"`
	MinTouches          int     `json:"min_touches"`
	BounceWindow        int     `json:"bounce_window"`
}

// DefaultDetectorConfig matches the numeric defaults quoted throughout §4.3-4.5.
func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
		Lookback:            5,
		MinSwingBodyPct:     0.3,
		MinGapSize:          0.002,
		MinVolumePercentile: 0.70,
		MinMoveSize:         0.01,
		ZoneBandPct:         0.002,
		ZoneMergeThreshold:  0.01,
		MinTouches:          2,
		BounceWindow:        3,
	}
}

// DatabaseConfig configures the Postgres pool backing internal/repository.
type DatabaseConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
	SSLMode  string `json:"ssl_mode"`
}

// RedisConfig configures internal/cache.
type RedisConfig struct {
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

// VaultConfig configures internal/secrets (exchange API key retrieval).
type VaultConfig struct {
	Enabled    bool   `json:"enabled"`
	Address    string `json:"address"`
	Token      string `json:"token"`
	TLSEnabled bool   `json:"tls_enabled"`
	CACert     string `json:"ca_cert"`
	SecretPath string `json:"secret_path"`
}

// LoggingConfig configures internal/logging.
type LoggingConfig struct {
	Level      string `json:"level"`
	Output     string `json:"output"`
	JSONFormat bool   `json:"json_format"`
}

// Default returns a Config populated with each component's documented
// defaults, suitable as a starting point before applying env overrides.
func Default() *Config {
	return &Config{
		Risk:       DefaultRiskConfig(),
		RateLimit:  DefaultRateLimitConfig(),
		Backtest:   DefaultBacktestConfig(),
		Signal:     DefaultSignalConfig(),
		Confluence: DefaultConfluenceConfig(),
		Detector:   DefaultDetectorConfig(),
		Logging:    LoggingConfig{Level: "info", Output: "stdout", JSONFormat: true},
	}
}

// LoadDotEnv loads a .env file into the process environment if present; a
// missing file is not an error. Intended for local development only.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	return godotenv.Load(path)
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

// ApplyRiskEnvOverrides layers OS environment overrides onto a RiskConfig,
// the one config surface operators commonly tune without a redeploy.
func ApplyRiskEnvOverrides(rc RiskConfig) RiskConfig {
	rc.MaxDailyLossPercent = envFloat("RISK_MAX_DAILY_LOSS_PERCENT", rc.MaxDailyLossPercent)
	rc.MaxPositions = envInt("RISK_MAX_POSITIONS", rc.MaxPositions)
	return rc
}
