// Unit tests that exercise pure helpers without a database connection.
// The PostgresRepository methods themselves require a live Postgres
// instance and are not covered here.
package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNullTimeZeroIsNil(t *testing.T) {
	require.Nil(t, nullTime(time.Time{}))
}

func TestNullTimeNonZeroPassesThrough(t *testing.T) {
	now := time.Now().UTC()
	require.Equal(t, now, nullTime(now))
}

func TestRecordTypesZeroValuesAreValid(t *testing.T) {
	var c CandleRecord
	require.Equal(t, "", c.Symbol)

	var tr TradeRecord
	require.Nil(t, tr.ExitPrice)
	require.Nil(t, tr.ExitTime)
}
