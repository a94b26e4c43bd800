package monitor

import "time"

// Tracker measures one statement and reports it to a Collector and an
// optional SlowLog.
type Tracker struct {
	metrics *Collector
	slow    *SlowLog
	start   time.Time

	Statement string
	Kind      string
	Document  string
}

// Track starts measuring a statement.
func Track(metrics *Collector, slow *SlowLog, statement, kind string) *Tracker {
	metrics.Begin()
	return &Tracker{
		metrics:   metrics,
		slow:      slow,
		start:     time.Now(),
		Statement: statement,
		Kind:      kind,
	}
}

// End records the statement. errCode and errMsg are empty on success.
func (t *Tracker) End(items int, errCode, errMsg string) time.Duration {
	d := time.Since(t.start)
	t.metrics.Record(t.Kind, d, errCode, t.Document)

	if t.slow != nil && t.slow.Record(SlowEntry{
		Statement: t.Statement,
		Kind:      t.Kind,
		Document:  t.Document,
		Duration:  d,
		Items:     items,
		Error:     errMsg,
	}) != 0 {
		t.metrics.RecordSlow()
	}
	return d
}
