package monitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector(t *testing.T) {
	c := NewCollector()

	c.Begin()
	assert.Equal(t, int64(1), c.Snapshot().Active)

	c.Record("query", 10*time.Millisecond, "", "d")
	c.Begin()
	c.Record("update", 30*time.Millisecond, "SE2006", "d")
	c.Record("ddl", 20*time.Millisecond, "", "")

	s := c.Snapshot()
	assert.Equal(t, int64(3), s.Statements)
	assert.Equal(t, int64(2), s.Succeeded)
	assert.Equal(t, int64(1), s.Failed)
	assert.InDelta(t, 66.67, s.SuccessRate, 0.01)
	assert.Equal(t, 20*time.Millisecond, s.AvgDuration)
	assert.Equal(t, int64(0), s.Active)
	assert.Equal(t, map[string]int64{"query": 1, "update": 1, "ddl": 1}, s.ByKind)
	assert.Equal(t, map[string]int64{"SE2006": 1}, s.Errors)
	assert.Equal(t, map[string]int64{"d": 2}, s.DocumentAccess)
}

func TestCollector_SnapshotIsCopy(t *testing.T) {
	c := NewCollector()
	c.Record("query", time.Millisecond, "", "d")

	s := c.Snapshot()
	s.DocumentAccess["d"] = 100
	assert.Equal(t, int64(1), c.Snapshot().DocumentAccess["d"])
}

func TestCollector_Reset(t *testing.T) {
	c := NewCollector()
	c.Record("query", time.Millisecond, "X", "d")
	c.RecordSlow()
	c.Reset()

	s := c.Snapshot()
	assert.Zero(t, s.Statements)
	assert.Zero(t, s.SlowStatements)
	assert.Zero(t, s.SuccessRate)
	assert.Empty(t, s.Errors)
}

func TestSlowLog(t *testing.T) {
	l := NewSlowLog(50*time.Millisecond, 2)

	assert.Zero(t, l.Record(SlowEntry{Statement: "fast", Duration: 10 * time.Millisecond}))
	assert.True(t, l.IsSlow(50*time.Millisecond))
	assert.False(t, l.IsSlow(49*time.Millisecond))

	id1 := l.Record(SlowEntry{Statement: "a", Document: "d", Duration: 60 * time.Millisecond})
	id2 := l.Record(SlowEntry{Statement: "b", Duration: 70 * time.Millisecond})
	assert.Equal(t, int64(1), id1)
	assert.Equal(t, int64(2), id2)

	entries := l.Entries()
	require.Len(t, entries, 2)
	assert.False(t, entries[0].Timestamp.IsZero())
	assert.Len(t, l.ByDocument("d"), 1)

	// 超出容量时移除最旧的记录
	l.Record(SlowEntry{Statement: "c", Duration: 80 * time.Millisecond})
	entries = l.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "b", entries[0].Statement)
	assert.Equal(t, "c", entries[1].Statement)
	assert.Empty(t, l.ByDocument("d"))

	l.Clear()
	assert.Empty(t, l.Entries())
	assert.Equal(t, int64(1), l.Record(SlowEntry{Duration: time.Second}))
}

func TestSlowLog_Threshold(t *testing.T) {
	l := NewSlowLog(time.Second, 0)
	assert.Equal(t, time.Second, l.Threshold())

	l.SetThreshold(0)
	assert.NotZero(t, l.Record(SlowEntry{Statement: "x"}))
	assert.Len(t, l.Entries(), 1)
}

func TestTracker(t *testing.T) {
	c := NewCollector()
	l := NewSlowLog(0, 10)

	tr := Track(c, l, "doc('d')", "query")
	tr.Document = "d"
	assert.Equal(t, int64(1), c.Snapshot().Active)

	d := tr.End(3, "", "")
	assert.GreaterOrEqual(t, d, time.Duration(0))

	s := c.Snapshot()
	assert.Equal(t, int64(1), s.Statements)
	assert.Equal(t, int64(1), s.SlowStatements)
	assert.Zero(t, s.Active)

	entries := l.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "doc('d')", entries[0].Statement)
	assert.Equal(t, 3, entries[0].Items)
}

func TestTracker_NoSlowLog(t *testing.T) {
	c := NewCollector()
	Track(c, nil, "x", "query").End(0, "SE1", "boom")

	s := c.Snapshot()
	assert.Equal(t, int64(1), s.Failed)
	assert.Zero(t, s.SlowStatements)
}
