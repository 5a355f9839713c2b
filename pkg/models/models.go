package models

import (
	"fmt"
	"strings"
	"time"
)

// Topology 目标库的部署形态
type Topology string

const (
	TopologyStandalone Topology = "standalone"
	TopologySentinel   Topology = "sentinel"
	TopologyCluster    Topology = "cluster"
)

// ParseTopology 解析部署形态（大小写不敏感）
func ParseTopology(s string) (Topology, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "standalone", "single":
		return TopologyStandalone, nil
	case "sentinel":
		return TopologySentinel, nil
	case "cluster":
		return TopologyCluster, nil
	default:
		return "", fmt.Errorf("unknown topology: %s", s)
	}
}

func (t Topology) String() string {
	return string(t)
}

// ScanFilter 扫描过滤条件
type ScanFilter struct {
	Match     string `json:"match" yaml:"match"`           // glob 模式，默认 *
	Type      string `json:"type,omitempty" yaml:"type"`   // 数据类型过滤，可选
	Count     int64  `json:"count" yaml:"count"`           // 每次 SCAN 的 COUNT 提示
	KeysLimit int64  `json:"keysLimit" yaml:"keys_limit"` // 每个节点的 key 上限，0 表示不限制
}

// KeyDescriptor 单个 key 的元数据
type KeyDescriptor struct {
	Name   string  `json:"name"`
	Type   string  `json:"type"`
	TTL    int64   `json:"ttl"`              // -1 永不过期，-2 已消失或未取到
	Size   *uint64 `json:"memory,omitempty"` // MEMORY USAGE，nil 表示未取到
	Length *uint64 `json:"length,omitempty"` // 长度/基数，nil 表示无此概念或未取到
	// Vanished 枚举之后 key 已不存在（TYPE 返回 none 或 TTL 返回 -2）
	Vanished bool `json:"vanished,omitempty"`
}

// NodeProgress 单个节点的扫描进度
type NodeProgress struct {
	Total     int64 `json:"total"`     // 扫描开始时的 DBSIZE 估计
	Scanned   int64 `json:"scanned"`   // 已枚举的 key 数
	Processed int64 `json:"processed"` // 成功获取元数据的 key 数
}

// Add 累加另一个节点的进度
func (p *NodeProgress) Add(other NodeProgress) {
	p.Total += other.Total
	p.Scanned += other.Scanned
	p.Processed += other.Processed
}

// ScanResult 单个节点的扫描结果
type ScanResult struct {
	Node     string          `json:"node"`
	Keys     []KeyDescriptor `json:"keys"`
	Progress NodeProgress    `json:"progress"`
	Error    string          `json:"error,omitempty"`
}

// NodeFailure 部分成功模式下记录的节点错误
type NodeFailure struct {
	Node     string       `json:"node"`
	Error    string       `json:"error"`
	Progress NodeProgress `json:"progress"`
}

// SimpleTypeSummary 按类型汇总
type SimpleTypeSummary struct {
	Type  string `json:"type"`
	Total int64  `json:"total"`
}

// SimpleSummary 总量 + 按类型分布
type SimpleSummary struct {
	Total int64               `json:"total"`
	Types []SimpleTypeSummary `json:"types"`
}

// NspTypeSummary 命名空间内按类型汇总
type NspTypeSummary struct {
	Type   string `json:"type"`
	Keys   int64  `json:"keys"`
	Memory int64  `json:"memory"`
}

// NspSummary 命名空间（key 前缀）汇总
type NspSummary struct {
	Nsp    string           `json:"nsp"`
	Keys   int64            `json:"keys"`
	Memory int64            `json:"memory"`
	Types  []NspTypeSummary `json:"types"`
}

// ExpirationGroup TTL 分组，Threshold 为 0 表示永不过期
type ExpirationGroup struct {
	Label     string `json:"label"`
	Threshold int64  `json:"threshold"`
	Keys      int64  `json:"keys"`
	Memory    int64  `json:"total"`
}

// DatabaseAnalysis 一次完整的分析报告，创建后只读
type DatabaseAnalysis struct {
	ID               string            `json:"id"`
	DatabaseID       string            `json:"databaseId"`
	CreatedAt        time.Time         `json:"createdAt"`
	Filter           ScanFilter        `json:"filter"`
	Delimiter        string            `json:"delimiter"`
	Progress         NodeProgress      `json:"progress"`
	Partial          bool              `json:"partial,omitempty"`
	NodeErrors       []NodeFailure     `json:"nodeErrors,omitempty"`
	TotalKeys        SimpleSummary     `json:"totalKeys"`
	TotalMemory      SimpleSummary     `json:"totalMemory"`
	TopKeysNsp       []NspSummary      `json:"topKeysNsp"`
	TopMemoryNsp     []NspSummary      `json:"topMemoryNsp"`
	TopKeysLength    []KeyDescriptor   `json:"topKeysLength"`
	TopKeysMemory    []KeyDescriptor   `json:"topKeysMemory"`
	ExpirationGroups []ExpirationGroup `json:"expirationGroups"`
}

// CountsByType 返回 类型 -> key 数
func (a *DatabaseAnalysis) CountsByType() map[string]int64 {
	counts := make(map[string]int64, len(a.TotalKeys.Types))
	for _, t := range a.TotalKeys.Types {
		counts[t.Type] = t.Total
	}
	return counts
}

// Short 转换为列表展示用的精简结构
func (a *DatabaseAnalysis) Short() ShortDatabaseAnalysis {
	return ShortDatabaseAnalysis{ID: a.ID, CreatedAt: a.CreatedAt}
}

// ShortDatabaseAnalysis 列表展示用，只包含 id 与创建时间
type ShortDatabaseAnalysis struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
}

// GlobalConfig 全局配置
type GlobalConfig struct {
	// 连接
	Topology       Topology `yaml:"topology"`
	Addrs          []string `yaml:"addrs"`
	Username       string   `yaml:"username"`
	Password       string   `yaml:"password"`
	DB             int      `yaml:"db"`
	SentinelMaster string   `yaml:"sentinel_master"`
	DatabaseID     string   `yaml:"database_id"`

	// 报告存储
	Provider    string `yaml:"provider"`
	ProviderDSN string `yaml:"provider_dsn"`
	S3Bucket    string `yaml:"s3_bucket"`
	S3Prefix    string `yaml:"s3_prefix"`
	S3Region    string `yaml:"s3_region"`
	S3Endpoint  string `yaml:"s3_endpoint"`

	// 日志
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// 监控阈值
	SlowThreshold   time.Duration `yaml:"slow_threshold"`
	BigKeyThreshold int64         `yaml:"big_key_threshold"` // 字节，0 表示不检测

	Workers int `yaml:"workers"` // 每个节点获取元数据的并发数

	// analyze 专属参数
	Filter    ScanFilter    `yaml:"filter"`
	Delimiter string        `yaml:"delimiter"`
	Top       int           `yaml:"top"`
	Timeout   time.Duration `yaml:"timeout"`
	Partial   bool          `yaml:"partial"`
	Output    string        `yaml:"output"`
}
