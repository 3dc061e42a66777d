package marketdata

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/tradecore/engine/internal/candle"
)

// unixMsThreshold disambiguates unix-seconds from unix-milliseconds: any
// numeric value above this (seconds since epoch for year ~2100) is ms.
const unixMsThreshold = 4_102_444_800

// CandleWriter is the subset of the repository the importer depends on.
type CandleWriter interface {
	UpsertCandles(candles []candle.Candle) error
}

// DeadLetterEntry records a row that failed validation during CSV import.
type DeadLetterEntry struct {
	LineNo int       `json:"line_no"`
	Raw    string    `json:"raw"`
	Error  string    `json:"error"`
	At     time.Time `json:"at"`
}

// ImportResult summarizes a CSV import run.
type ImportResult struct {
	RunID       string
	Imported    int
	DeadLettered int
	DeadLetterPath string
}

// ImportCSV reads an OHLCV CSV file, validates and aligns each row to tf,
// writes valid rows to writer in batches, and dead-letters invalid rows to
// a JSONL file keyed by runID. Import is idempotent: writer.UpsertCandles
// must upsert on (symbol, timeframe, timestamp, source).
func ImportCSV(path, symbol string, tf candle.Timeframe, source, runID, deadLetterDir string, batchSize int, writer CandleWriter, now time.Time) (ImportResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return ImportResult{}, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	if batchSize <= 0 {
		batchSize = 500
	}

	dlPath := fmt.Sprintf("%s/dead-letter-%s.jsonl", deadLetterDir, runID)
	var dlFile *os.File

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return ImportResult{}, fmt.Errorf("read header: %w", err)
	}
	cols := indexColumns(header)
	if _, ok := cols["time"]; !ok {
		return ImportResult{}, fmt.Errorf("csv missing required column: time")
	}

	result := ImportResult{RunID: runID}
	var batch []candle.Candle
	lineNo := 1

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := writer.UpsertCandles(batch); err != nil {
			return fmt.Errorf("upsert candles: %w", err)
		}
		result.Imported += len(batch)
		batch = batch[:0]
		return nil
	}

	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		lineNo++
		if err != nil {
			if dlFile, err = deadLetter(dlFile, dlPath, lineNo, strings.Join(row, ","), err); err != nil {
				return result, err
			}
			result.DeadLettered++
			continue
		}

		c, parseErr := parseRow(row, cols, symbol, tf, source)
		if parseErr == nil {
			parseErr = c.Validate(now)
		}
		if parseErr != nil {
			if dlFile, err = deadLetter(dlFile, dlPath, lineNo, strings.Join(row, ","), parseErr); err != nil {
				return result, err
			}
			result.DeadLettered++
			continue
		}

		c.Timestamp = candle.Align(c.Timestamp, tf)
		batch = append(batch, c)
		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return result, err
			}
		}
	}
	if err := flush(); err != nil {
		return result, err
	}
	if dlFile != nil {
		dlFile.Close()
		result.DeadLetterPath = dlPath
	}
	return result, nil
}

func indexColumns(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return cols
}

func parseRow(row []string, cols map[string]int, symbol string, tf candle.Timeframe, source string) (candle.Candle, error) {
	get := func(name string) (string, bool) {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return "", false
		}
		return strings.TrimSpace(row[i]), true
	}

	timeStr, ok := get("time")
	if !ok || timeStr == "" {
		return candle.Candle{}, fmt.Errorf("missing time")
	}
	ts, err := parseFlexibleTime(timeStr)
	if err != nil {
		return candle.Candle{}, err
	}

	floats := make(map[string]float64, 5)
	for _, name := range []string{"open", "high", "low", "close"} {
		v, ok := get(name)
		if !ok {
			return candle.Candle{}, fmt.Errorf("missing column: %s", name)
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return candle.Candle{}, fmt.Errorf("invalid %s: %w", name, err)
		}
		floats[name] = f
	}
	volume := 0.0
	if v, ok := get("volume"); ok && v != "" {
		volume, _ = strconv.ParseFloat(v, 64)
	}

	return candle.Candle{
		Symbol: symbol, Timeframe: tf, Source: source, Timestamp: ts,
		Open: floats["open"], High: floats["high"], Low: floats["low"], Close: floats["close"],
		Volume: volume,
	}, nil
}

func parseFlexibleTime(v string) (time.Time, error) {
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		if n > unixMsThreshold {
			return time.UnixMilli(n).UTC(), nil
		}
		return time.Unix(n, 0).UTC(), nil
	}
	layouts := []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time format: %q", v)
}

func deadLetter(dlFile *os.File, path string, lineNo int, raw string, cause error) (*os.File, error) {
	var err error
	if dlFile == nil {
		dlFile, err = os.Create(path)
		if err != nil {
			return nil, fmt.Errorf("create dead letter file: %w", err)
		}
	}
	entry := DeadLetterEntry{LineNo: lineNo, Raw: raw, Error: cause.Error(), At: time.Now().UTC()}
	b, _ := json.Marshal(entry)
	if _, err := dlFile.Write(append(b, '\n')); err != nil {
		return dlFile, fmt.Errorf("write dead letter entry: %w", err)
	}
	return dlFile, nil
}
