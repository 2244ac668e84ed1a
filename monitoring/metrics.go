// Package monitoring 提供预测指标采集与实时推送
package monitoring

import (
	"fmt"
	"sync"
	"time"
)

// PredictionEvent 一次预测的监控事件
type PredictionEvent struct {
	Model       string    `json:"model"`
	Layer       int       `json:"layer"`
	Probability float64   `json:"probability"`
	DurationMS  float64   `json:"duration_ms"`
	Error       string    `json:"error,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// ProbeStats 单个 (model, layer) 的累计统计
type ProbeStats struct {
	Count           int64     `json:"count"`
	Failures        int64     `json:"failures"`
	AvgLatencyMS    float64   `json:"avg_latency_ms"`
	LastProbability float64   `json:"last_probability"`
	LastSeen        time.Time `json:"last_seen"`

	totalLatency time.Duration
}

// Monitor 进程内预测指标采集器。只在内存中保留有界的累计统计，
// 不持久化预测历史。
type Monitor struct {
	mu        sync.RWMutex
	startTime time.Time
	total     int64
	failures  int64
	perProbe  map[string]*ProbeStats

	hub *Hub
}

// NewMonitor 创建监控器；hub 可为 nil（不推送实时事件）
func NewMonitor(hub *Hub) *Monitor {
	return &Monitor{
		startTime: time.Now(),
		perProbe:  make(map[string]*ProbeStats),
		hub:       hub,
	}
}

// RecordPrediction 记录一次预测并向WebSocket客户端广播事件
func (m *Monitor) RecordPrediction(model string, layer int, probability float64, duration time.Duration, err error) {
	key := fmt.Sprintf("%s/%d", model, layer)

	m.mu.Lock()
	stats, ok := m.perProbe[key]
	if !ok {
		stats = &ProbeStats{}
		m.perProbe[key] = stats
	}
	m.total++
	stats.Count++
	stats.totalLatency += duration
	stats.AvgLatencyMS = float64(stats.totalLatency.Microseconds()) / 1000 / float64(stats.Count)
	stats.LastSeen = time.Now()
	if err != nil {
		m.failures++
		stats.Failures++
	} else {
		stats.LastProbability = probability
	}
	m.mu.Unlock()

	if m.hub != nil {
		event := PredictionEvent{
			Model:       model,
			Layer:       layer,
			Probability: probability,
			DurationMS:  float64(duration.Microseconds()) / 1000,
			Timestamp:   time.Now(),
		}
		if err != nil {
			event.Error = err.Error()
		}
		m.hub.Broadcast(event)
	}
}

// Snapshot 返回当前统计快照
func (m *Monitor) Snapshot() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	probes := make(map[string]ProbeStats, len(m.perProbe))
	for key, stats := range m.perProbe {
		probes[key] = *stats
	}

	snapshot := map[string]interface{}{
		"uptime_seconds":    time.Since(m.startTime).Seconds(),
		"total_predictions": m.total,
		"total_failures":    m.failures,
		"probes":            probes,
	}
	if m.hub != nil {
		snapshot["connected_clients"] = m.hub.ClientCount()
	}
	return snapshot
}

// Hub 返回关联的WebSocket中心，未配置时为 nil
func (m *Monitor) Hub() *Hub {
	return m.hub
}
