package config

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/aitoooooo/redisx/pkg/filter"
	"github.com/aitoooooo/redisx/pkg/models"
	"github.com/aitoooooo/redisx/pkg/provider"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// PasswordEnv 未通过 flag 或配置文件指定密码时读取的环境变量
const PasswordEnv = "REDISX_PASSWORD"

var GlobalConfig *models.GlobalConfig

// InitConfig 合并配置：flag 默认值 < --config 文件 < 显式指定的 flag
func InitConfig(cmd *cobra.Command) (*models.GlobalConfig, error) {
	cfg := &models.GlobalConfig{}

	// flag 默认值
	if err := applyFlags(cmd, cfg, false); err != nil {
		return nil, err
	}

	// 配置文件，只覆盖文件中出现的字段
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("invalid config file %s: %w", path, err)
		}
	}

	// 命令行显式指定的 flag
	if err := applyFlags(cmd, cfg, true); err != nil {
		return nil, err
	}

	if cfg.Password == "" {
		cfg.Password = os.Getenv(PasswordEnv)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	GlobalConfig = cfg
	return cfg, nil
}

func applyFlags(cmd *cobra.Command, cfg *models.GlobalConfig, onlyChanged bool) error {
	flags := cmd.Flags()
	set := func(name string) bool {
		f := flags.Lookup(name)
		return f != nil && (!onlyChanged || f.Changed)
	}
	duration := func(name string, dst *time.Duration) error {
		if !set(name) {
			return nil
		}
		s, _ := flags.GetString(name)
		d, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid %s format: %w", name, err)
		}
		*dst = d
		return nil
	}

	// 连接
	if set("topology") {
		s, _ := flags.GetString("topology")
		cfg.Topology = models.Topology(s)
	}
	if set("addr") {
		cfg.Addrs, _ = flags.GetStringSlice("addr")
	}
	if set("username") {
		cfg.Username, _ = flags.GetString("username")
	}
	if set("password") {
		cfg.Password, _ = flags.GetString("password")
	}
	if set("db") {
		cfg.DB, _ = flags.GetInt("db")
	}
	if set("sentinel-master") {
		cfg.SentinelMaster, _ = flags.GetString("sentinel-master")
	}
	if set("database-id") {
		cfg.DatabaseID, _ = flags.GetString("database-id")
	}

	// 报告存储
	if set("provider") {
		cfg.Provider, _ = flags.GetString("provider")
	}
	if set("provider-dsn") {
		cfg.ProviderDSN, _ = flags.GetString("provider-dsn")
	}
	if set("s3-bucket") {
		cfg.S3Bucket, _ = flags.GetString("s3-bucket")
	}
	if set("s3-prefix") {
		cfg.S3Prefix, _ = flags.GetString("s3-prefix")
	}
	if set("s3-region") {
		cfg.S3Region, _ = flags.GetString("s3-region")
	}
	if set("s3-endpoint") {
		cfg.S3Endpoint, _ = flags.GetString("s3-endpoint")
	}

	// 日志
	if set("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}
	if set("log-format") {
		cfg.LogFormat, _ = flags.GetString("log-format")
	}

	// 监控阈值
	if err := duration("slow-threshold", &cfg.SlowThreshold); err != nil {
		return err
	}
	if set("big-key-threshold") {
		cfg.BigKeyThreshold, _ = flags.GetInt64("big-key-threshold")
	}
	if set("workers") {
		cfg.Workers, _ = flags.GetInt("workers")
	}

	// analyze
	if set("match") {
		cfg.Filter.Match, _ = flags.GetString("match")
	}
	if set("type") {
		cfg.Filter.Type, _ = flags.GetString("type")
	}
	if set("count") {
		cfg.Filter.Count, _ = flags.GetInt64("count")
	}
	if set("keys-limit") {
		cfg.Filter.KeysLimit, _ = flags.GetInt64("keys-limit")
	}
	if set("delimiter") {
		cfg.Delimiter, _ = flags.GetString("delimiter")
	}
	if set("top") {
		cfg.Top, _ = flags.GetInt("top")
	}
	if err := duration("timeout", &cfg.Timeout); err != nil {
		return err
	}
	if set("partial") {
		cfg.Partial, _ = flags.GetBool("partial")
	}
	if set("output") {
		cfg.Output, _ = flags.GetString("output")
	}
	return nil
}

func validate(cfg *models.GlobalConfig) error {
	topology, err := models.ParseTopology(cfg.Topology.String())
	if err != nil {
		return fmt.Errorf("invalid --topology: %w", err)
	}
	cfg.Topology = topology

	if len(cfg.Addrs) == 0 {
		return fmt.Errorf("must specify at least one --addr")
	}
	if cfg.Topology == models.TopologySentinel && cfg.SentinelMaster == "" {
		return fmt.Errorf("--sentinel-master is required for sentinel topology")
	}
	if cfg.Topology == models.TopologyCluster && cfg.DB != 0 {
		return fmt.Errorf("--db must be 0 for cluster topology")
	}
	if cfg.DatabaseID == "" {
		// 默认以第一个地址标识库
		cfg.DatabaseID = cfg.Addrs[0]
	}

	if _, err := provider.ParseType(cfg.Provider); err != nil {
		return fmt.Errorf("invalid --provider: %w", err)
	}

	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.BigKeyThreshold < 0 {
		return fmt.Errorf("invalid --big-key-threshold: %d", cfg.BigKeyThreshold)
	}

	if cfg.Filter.Count < 0 {
		return fmt.Errorf("invalid --count: %d", cfg.Filter.Count)
	}
	if cfg.Filter.KeysLimit < 0 {
		return fmt.Errorf("invalid --keys-limit: %d", cfg.Filter.KeysLimit)
	}
	if err := filter.Validate(filter.Normalize(cfg.Filter)); err != nil {
		return fmt.Errorf("invalid --type: %w", err)
	}
	if cfg.Timeout < 0 {
		return fmt.Errorf("invalid --timeout: %s", cfg.Timeout)
	}

	switch strings.ToLower(cfg.Output) {
	case "", "auto", "json", "text":
	default:
		return fmt.Errorf("invalid --output: %s (auto|json|text)", cfg.Output)
	}
	return nil
}

func AddGlobalFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String("config", "", "YAML 配置文件，显式指定的 flag 优先")
	cmd.PersistentFlags().String("topology", "standalone", "部署形态 standalone|sentinel|cluster")
	cmd.PersistentFlags().StringSlice("addr", []string{"127.0.0.1:6379"}, "节点地址，可重复；哨兵模式为哨兵地址")
	cmd.PersistentFlags().String("username", "", "ACL 用户名")
	cmd.PersistentFlags().String("password", "", "密码，也可通过环境变量 "+PasswordEnv+" 指定")
	cmd.PersistentFlags().Int("db", 0, "逻辑库编号，集群模式必须为 0")
	cmd.PersistentFlags().String("sentinel-master", "", "哨兵模式下的 master 名称")
	cmd.PersistentFlags().String("database-id", "", "库标识，用于保存与查询报告，默认第一个地址")
	cmd.PersistentFlags().String("provider", "file", "报告存储 memory|file|sqlite|mysql|postgres|s3")
	cmd.PersistentFlags().String("provider-dsn", "", "存储位置：file 为目录，sqlite 为文件，mysql/postgres 为 DSN")
	cmd.PersistentFlags().String("s3-bucket", "", "S3 bucket")
	cmd.PersistentFlags().String("s3-prefix", "redisx", "S3 对象前缀")
	cmd.PersistentFlags().String("s3-region", "", "S3 region，默认 us-east-1")
	cmd.PersistentFlags().String("s3-endpoint", "", "兼容 S3 的服务地址")
	cmd.PersistentFlags().String("log-level", "info", "日志级别 debug|info|warn|error")
	cmd.PersistentFlags().String("log-format", "console", "日志格式 console|json")
	cmd.PersistentFlags().String("slow-threshold", "100ms", "慢命令阈值")
	cmd.PersistentFlags().Int64("big-key-threshold", 0, "大 key 阈值（字节），默认 0（不检测）")
	cmd.PersistentFlags().Int("workers", 0, "每个节点获取元数据的 worker 数量，默认 0=CPU 数")
}

func AddAnalyzeFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("match", "m", filter.DefaultMatch, "key 匹配模式（glob），不含通配符时直接检查该 key")
	cmd.Flags().String("type", "", "只分析指定类型 string|list|hash|set|zset|stream|json|graph|timeseries")
	cmd.Flags().Int64("count", filter.DefaultCount, "每次 SCAN 的 COUNT")
	cmd.Flags().Int64("keys-limit", filter.DefaultKeysLimit, "每个节点最多扫描的 key 数，0 表示不限制")
	cmd.Flags().String("delimiter", ":", "命名空间分隔符")
	cmd.Flags().IntP("top", "t", 15, "Top 列表的条数")
	cmd.Flags().String("timeout", "0s", "扫描超时，到期后用已扫描的部分生成报告，0 表示不限制")
	cmd.Flags().Bool("partial", false, "集群模式下单个分片失败时继续，报告中记录失败的分片")
	cmd.Flags().StringP("output", "o", "auto", "输出格式 auto|json|text")
}
