// Package monitor collects statement statistics of the embedded engine and
// keeps a bounded log of slow statements.
package monitor

import (
	"maps"
	"sync"
	"time"
)

// Collector 监控指标收集器
type Collector struct {
	mu             sync.RWMutex
	statements     int64
	succeeded      int64
	failed         int64
	totalDuration  time.Duration
	slowStatements int64
	active         int64
	byKind         map[string]int64
	errors         map[string]int64
	documentAccess map[string]int64
	startTime      time.Time
}

// NewCollector 创建监控指标收集器
func NewCollector() *Collector {
	c := &Collector{}
	c.Reset()
	return c
}

// Begin marks a statement as running.
func (c *Collector) Begin() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active++
}

// Record 记录一条已结束的语句. errCode is empty for a successful statement,
// doc is the document it addressed (may be empty).
func (c *Collector) Record(kind string, d time.Duration, errCode, doc string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active > 0 {
		c.active--
	}
	c.statements++
	c.totalDuration += d
	c.byKind[kind]++

	if errCode == "" {
		c.succeeded++
	} else {
		c.failed++
		c.errors[errCode]++
	}

	if doc != "" {
		c.documentAccess[doc]++
	}
}

// RecordSlow counts a slow statement.
func (c *Collector) RecordSlow() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.slowStatements++
}

// Reset 重置所有指标
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.statements = 0
	c.succeeded = 0
	c.failed = 0
	c.totalDuration = 0
	c.slowStatements = 0
	c.active = 0
	c.byKind = make(map[string]int64)
	c.errors = make(map[string]int64)
	c.documentAccess = make(map[string]int64)
	c.startTime = time.Now()
}

// Snapshot 指标快照
type Snapshot struct {
	Statements     int64            `json:"statements"`
	Succeeded      int64            `json:"succeeded"`
	Failed         int64            `json:"failed"`
	SuccessRate    float64          `json:"success_rate"`
	AvgDuration    time.Duration    `json:"avg_duration"`
	SlowStatements int64            `json:"slow_statements"`
	Active         int64            `json:"active"`
	ByKind         map[string]int64 `json:"by_kind"`
	Errors         map[string]int64 `json:"errors"`
	DocumentAccess map[string]int64 `json:"document_access"`
	Uptime         time.Duration    `json:"uptime"`
}

// Snapshot 获取指标快照
func (c *Collector) Snapshot() *Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := &Snapshot{
		Statements:     c.statements,
		Succeeded:      c.succeeded,
		Failed:         c.failed,
		SlowStatements: c.slowStatements,
		Active:         c.active,
		ByKind:         maps.Clone(c.byKind),
		Errors:         maps.Clone(c.errors),
		DocumentAccess: maps.Clone(c.documentAccess),
		Uptime:         time.Since(c.startTime),
	}
	if c.statements > 0 {
		s.SuccessRate = float64(c.succeeded) / float64(c.statements) * 100
		s.AvgDuration = c.totalDuration / time.Duration(c.statements)
	}
	return s
}
