package database

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMetricsRecordQuery(t *testing.T) {
	m := NewMetrics(50 * time.Millisecond)

	m.RecordQuery("exec", 10*time.Millisecond, nil)
	m.RecordQuery("query", 80*time.Millisecond, nil)
	m.RecordQuery("query_row", 5*time.Millisecond, sql.ErrNoRows)
	m.RecordQuery("begin_tx", time.Millisecond, errors.New("connection refused"))

	snap := m.Snapshot(sql.DBStats{OpenConnections: 3})

	assert.Equal(t, int64(4), snap.QueryCount)
	assert.Equal(t, int64(1), snap.ErrorCount, "no-rows is not an error")
	assert.Equal(t, int64(1), snap.SlowQueryCount)
	assert.Equal(t, int64(1), snap.TxCount)
	assert.Equal(t, 3, snap.DBStats.OpenConnections)
	assert.Equal(t, 24*time.Millisecond, snap.AvgQueryDuration)
}

func TestNewMetricsDefaultsThreshold(t *testing.T) {
	m := NewMetrics(0)
	assert.Equal(t, 100*time.Millisecond, m.SlowQueryThreshold())
}

func TestTruncateQuery(t *testing.T) {
	short := "SELECT 1"
	assert.Equal(t, short, truncateQuery(short))

	long := make([]byte, 300)
	for i := range long {
		long[i] = 'x'
	}
	out := truncateQuery(string(long))
	assert.Len(t, out, 203)
}
