package marketdata

import (
	"errors"
	"fmt"
	"time"

	"github.com/tradecore/engine/internal/candle"
)

// ErrAlreadySyncing is returned when a sync is started for a key that is
// already mid-sync.
var ErrAlreadySyncing = errors.New("marketdata: sync already in progress")

// SyncState is the per-(symbol, timeframe, source) cursor, per spec §4.2.
type SyncState struct {
	Symbol      string
	Timeframe   candle.Timeframe
	Source      string
	LastSyncAt  time.Time
	OldestTS    time.Time
	NewestTS    time.Time
	CandleCount int
	IsSyncing   bool
	LastError   string
}

// Key returns the composite (symbol, timeframe, source) identity.
func (s SyncState) Key() string {
	return fmt.Sprintf("%s|%s|%s", s.Symbol, s.Timeframe, s.Source)
}

// SyncStateRepository persists sync cursors; implemented by the Postgres
// repository.
type SyncStateRepository interface {
	Get(symbol string, tf candle.Timeframe, source string) (SyncState, bool, error)
	Upsert(state SyncState) error
}

// BeginSync marks a cursor as syncing, failing with ErrAlreadySyncing if a
// sync for the same key is already in progress.
func BeginSync(repo SyncStateRepository, symbol string, tf candle.Timeframe, source string) (SyncState, error) {
	state, found, err := repo.Get(symbol, tf, source)
	if err != nil {
		return SyncState{}, err
	}
	if found && state.IsSyncing {
		return SyncState{}, ErrAlreadySyncing
	}
	if !found {
		state = SyncState{Symbol: symbol, Timeframe: tf, Source: source}
	}
	state.IsSyncing = true
	if err := repo.Upsert(state); err != nil {
		return SyncState{}, err
	}
	return state, nil
}

// CompleteSync records the outcome of a sync run and clears IsSyncing.
func CompleteSync(repo SyncStateRepository, state SyncState, fetched []candle.Candle, syncErr error, now time.Time) error {
	state.IsSyncing = false
	state.LastSyncAt = now
	if syncErr != nil {
		state.LastError = syncErr.Error()
		return repo.Upsert(state)
	}
	state.LastError = ""
	state.CandleCount += len(fetched)
	if len(fetched) > 0 {
		oldest, newest := windowBounds(fetched)
		if state.OldestTS.IsZero() || oldest.Before(state.OldestTS) {
			state.OldestTS = oldest
		}
		if newest.After(state.NewestTS) {
			state.NewestTS = newest
		}
	}
	return repo.Upsert(state)
}
