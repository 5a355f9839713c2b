package monitor

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aitoooooo/redisx/pkg/models"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Monitor 用于监控慢命令和大 key，并维护扫描指标
// 所有方法对 nil 接收者安全
type Monitor struct {
	slowThreshold   time.Duration
	bigKeyThreshold int64
	logger          *zap.Logger

	// 统计数据
	slowCommandCount atomic.Int64
	bigKeyCount      atomic.Int64
	maxKeySize       atomic.Int64
	maxKeyMu         sync.Mutex
	maxKeyName       string

	registry        *prometheus.Registry
	keysScanned     *prometheus.CounterVec
	keysProcessed   *prometheus.CounterVec
	nodeErrors      *prometheus.CounterVec
	bigKeys         prometheus.Counter
	commandDuration *prometheus.HistogramVec
}

// NewMonitor 创建监控器，bigKeyThreshold 为 0 表示不检测大 key
func NewMonitor(slowThreshold time.Duration, bigKeyThreshold int64, logger *zap.Logger) *Monitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Monitor{
		slowThreshold:   slowThreshold,
		bigKeyThreshold: bigKeyThreshold,
		logger:          logger,
		registry:        prometheus.NewRegistry(),
	}

	m.keysScanned = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "redisx_keys_scanned_total",
		Help: "Keys enumerated by SCAN",
	}, []string{"topology"})
	m.keysProcessed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "redisx_keys_processed_total",
		Help: "Keys whose metadata was retrieved",
	}, []string{"topology"})
	m.nodeErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "redisx_node_scan_errors_total",
		Help: "Node scans that ended with an error",
	}, []string{"topology"})
	m.bigKeys = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "redisx_big_keys_total",
		Help: "Keys whose memory usage exceeded the big key threshold",
	})
	m.commandDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "redisx_command_duration_seconds",
		Help:    "Latency of commands and pipelines sent to the store",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}, []string{"command"})

	m.registry.MustRegister(m.keysScanned, m.keysProcessed, m.nodeErrors, m.bigKeys, m.commandDuration)
	return m
}

// Registry 返回监控器自己的 prometheus 注册表
func (m *Monitor) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// LogSlowCommand 记录命令耗时（计算从 startTime 开始的耗时），超过阈值时告警
func (m *Monitor) LogSlowCommand(command string, startTime time.Time, args string) {
	if m == nil {
		return
	}
	duration := time.Since(startTime)
	m.commandDuration.WithLabelValues(command).Observe(duration.Seconds())
	if m.slowThreshold > 0 && duration > m.slowThreshold {
		m.slowCommandCount.Add(1)
		m.logger.Warn("[SLOW] command exceeded threshold",
			zap.String("command", command),
			zap.Duration("took", duration),
			zap.String("args", args))
	}
}

// CheckKey 检查 key 的内存占用
func (m *Monitor) CheckKey(key *models.KeyDescriptor) {
	if m == nil || key == nil || m.bigKeyThreshold <= 0 || key.Size == nil {
		return
	}

	size := int64(*key.Size)
	if size <= m.bigKeyThreshold {
		return
	}
	m.bigKeyCount.Add(1)
	m.bigKeys.Inc()

	m.maxKeyMu.Lock()
	if size > m.maxKeySize.Load() {
		m.maxKeySize.Store(size)
		m.maxKeyName = key.Name
	}
	m.maxKeyMu.Unlock()

	m.logger.Warn("[WARN] big key detected",
		zap.String("key", key.Name),
		zap.String("type", key.Type),
		zap.Int64("size", size))
}

// CheckKeysBatch 批量检查 key
func (m *Monitor) CheckKeysBatch(keys []models.KeyDescriptor) {
	for i := range keys {
		m.CheckKey(&keys[i])
	}
}

// RecordNode 记录单个节点的扫描结果
func (m *Monitor) RecordNode(topology models.Topology, progress models.NodeProgress, err error) {
	if m == nil {
		return
	}
	label := topology.String()
	m.keysScanned.WithLabelValues(label).Add(float64(progress.Scanned))
	m.keysProcessed.WithLabelValues(label).Add(float64(progress.Processed))
	if err != nil {
		m.nodeErrors.WithLabelValues(label).Inc()
	}
}

// GetStats 获取监控统计数据
func (m *Monitor) GetStats() map[string]interface{} {
	if m == nil {
		return map[string]interface{}{}
	}
	m.maxKeyMu.Lock()
	maxKeyName := m.maxKeyName
	m.maxKeyMu.Unlock()

	return map[string]interface{}{
		"slow_threshold":     m.slowThreshold,
		"big_key_threshold":  m.bigKeyThreshold,
		"slow_command_count": m.slowCommandCount.Load(),
		"big_key_count":      m.bigKeyCount.Load(),
		"max_key_size":       m.maxKeySize.Load(),
		"max_key_name":       maxKeyName,
	}
}

// PrintStats 打印监控统计信息
func (m *Monitor) PrintStats(w io.Writer) {
	if m == nil {
		return
	}
	slow := m.slowCommandCount.Load()
	big := m.bigKeyCount.Load()
	if slow == 0 && big == 0 {
		return
	}

	fmt.Fprintln(w, "\n=== Monitor Statistics ===")
	if slow > 0 {
		fmt.Fprintf(w, "Slow commands detected: %d\n", slow)
		fmt.Fprintf(w, "Threshold: %v\n", m.slowThreshold)
	}
	if big > 0 {
		m.maxKeyMu.Lock()
		name := m.maxKeyName
		m.maxKeyMu.Unlock()
		fmt.Fprintf(w, "Big keys detected: %d\n", big)
		fmt.Fprintf(w, "Max key size: %d bytes (%s)\n", m.maxKeySize.Load(), name)
		fmt.Fprintf(w, "Threshold: %d bytes\n", m.bigKeyThreshold)
	}
}
