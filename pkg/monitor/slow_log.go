package monitor

import (
	"sync"
	"time"
)

// SlowEntry 慢语句日志项
type SlowEntry struct {
	ID        int64         `json:"id"`
	Statement string        `json:"statement"`
	Kind      string        `json:"kind"`
	Document  string        `json:"document,omitempty"`
	Duration  time.Duration `json:"duration"`
	Timestamp time.Time     `json:"timestamp"`
	Items     int           `json:"items"`
	Error     string        `json:"error,omitempty"`
}

// SlowLog keeps the most recent statements that ran for at least the
// threshold. The oldest entry is evicted once maxEntries is reached.
type SlowLog struct {
	mu         sync.RWMutex
	entries    []*SlowEntry
	threshold  time.Duration
	maxEntries int
	nextID     int64
}

// NewSlowLog 创建慢语句日志
func NewSlowLog(threshold time.Duration, maxEntries int) *SlowLog {
	if maxEntries < 1 {
		maxEntries = 1
	}
	return &SlowLog{
		entries:    make([]*SlowEntry, 0, maxEntries),
		threshold:  threshold,
		maxEntries: maxEntries,
		nextID:     1,
	}
}

// IsSlow 检查是否为慢语句
func (l *SlowLog) IsSlow(d time.Duration) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return d >= l.threshold
}

// Record stores e when its duration reaches the threshold and returns the
// assigned ID, or 0 when e is not slow.
func (l *SlowLog) Record(e SlowEntry) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	if e.Duration < l.threshold {
		return 0
	}

	e.ID = l.nextID
	l.nextID++
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	l.entries = append(l.entries, &e)

	// 超出最大条目数时移除最旧的记录
	if len(l.entries) > l.maxEntries {
		l.entries = l.entries[1:]
	}
	return e.ID
}

// Entries returns the logged statements, oldest first.
func (l *SlowLog) Entries() []SlowEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]SlowEntry, len(l.entries))
	for i, e := range l.entries {
		out[i] = *e
	}
	return out
}

// ByDocument 获取指定文档的慢语句
func (l *SlowLog) ByDocument(doc string) []SlowEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []SlowEntry
	for _, e := range l.entries {
		if e.Document == doc {
			out = append(out, *e)
		}
	}
	return out
}

// SetThreshold 设置慢语句阈值
func (l *SlowLog) SetThreshold(d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.threshold = d
}

// Threshold 获取慢语句阈值
func (l *SlowLog) Threshold() time.Duration {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.threshold
}

// Clear 清空所有记录
func (l *SlowLog) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = make([]*SlowEntry, 0, l.maxEntries)
	l.nextID = 1
}
