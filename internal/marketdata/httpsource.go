package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
	"github.com/tradecore/engine/internal/candle"
)

// rawKline mirrors the teacher's binance Kline decode shape: a JSON array
// of mixed-type fields per candle.
type rawKline []interface{}

// HTTPKlineSource fetches klines over HTTP with exponential backoff on
// transient errors and 5xx, Retry-After on 429, and fatal treatment of
// other 4xx, per spec §4.2.
type HTTPKlineSource struct {
	BaseURL    string
	KlinesPath string // e.g. "/api/v3/klines"
	client     *retryablehttp.Client
}

// NewHTTPKlineSource builds a source with the spec's retry policy:
// base*2^attempt backoff, capped at 5 retries.
func NewHTTPKlineSource(baseURL, klinesPath string, logger zerolog.Logger) *HTTPKlineSource {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 5
	rc.RetryWaitMin = 500 * time.Millisecond
	rc.RetryWaitMax = 30 * time.Second
	rc.Logger = nil
	rc.CheckRetry = fatalOn4xxExceptTooManyRequests
	rc.Backoff = backoffWithRetryAfter
	rc.ErrorHandler = func(resp *http.Response, err error, numTries int) (*http.Response, error) {
		logger.Warn().Err(err).Int("attempts", numTries).Msg("kline fetch exhausted retries")
		return resp, err
	}
	return &HTTPKlineSource{BaseURL: baseURL, KlinesPath: klinesPath, client: rc}
}

func fatalOn4xxExceptTooManyRequests(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if err != nil {
		return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return true, nil
	}
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return false, fmt.Errorf("fatal client error: %s", resp.Status)
	}
	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}

func backoffWithRetryAfter(min, max time.Duration, attemptNum int, resp *http.Response) time.Duration {
	if resp != nil && resp.StatusCode == http.StatusTooManyRequests {
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if secs, err := strconv.Atoi(ra); err == nil {
				return time.Duration(secs) * time.Second
			}
		}
	}
	return retryablehttp.DefaultBackoff(min, max, attemptNum, resp)
}

// FetchKlines fetches a single page of up to limit candles in [startMs, endMs).
func (s *HTTPKlineSource) FetchKlines(ctx context.Context, symbol string, tf candle.Timeframe, startMs, endMs int64, limit int) ([]candle.Candle, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("interval", string(tf))
	q.Set("startTime", strconv.FormatInt(startMs, 10))
	q.Set("endTime", strconv.FormatInt(endMs, 10))
	q.Set("limit", strconv.Itoa(limit))

	endpoint := fmt.Sprintf("%s%s?%s", s.BaseURL, s.KlinesPath, q.Encode())
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch klines: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("kline fetch returned %s", resp.Status)
	}

	var raws []rawKline
	if err := json.NewDecoder(resp.Body).Decode(&raws); err != nil {
		return nil, fmt.Errorf("decode klines: %w", err)
	}

	out := make([]candle.Candle, 0, len(raws))
	for _, r := range raws {
		if len(r) < 6 {
			continue
		}
		ts, err := parseEpochMillis(r[0])
		if err != nil {
			continue
		}
		out = append(out, candle.Candle{
			Symbol:    symbol,
			Timeframe: tf,
			Source:    s.BaseURL,
			Timestamp: ts,
			Open:      parseFloat(r[1]),
			High:      parseFloat(r[2]),
			Low:       parseFloat(r[3]),
			Close:     parseFloat(r[4]),
			Volume:    parseFloat(r[5]),
		})
	}
	return out, nil
}

func parseEpochMillis(v interface{}) (time.Time, error) {
	switch n := v.(type) {
	case float64:
		return time.UnixMilli(int64(n)).UTC(), nil
	default:
		return time.Time{}, fmt.Errorf("unexpected timestamp type %T", v)
	}
}

func parseFloat(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case string:
		f, _ := strconv.ParseFloat(n, 64)
		return f
	default:
		return 0
	}
}
