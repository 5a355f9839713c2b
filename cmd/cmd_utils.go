package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aitoooooo/redisx/pkg/analysis"
	"github.com/aitoooooo/redisx/pkg/config"
	"github.com/aitoooooo/redisx/pkg/keyinfo"
	"github.com/aitoooooo/redisx/pkg/logger"
	"github.com/aitoooooo/redisx/pkg/models"
	"github.com/aitoooooo/redisx/pkg/monitor"
	"github.com/aitoooooo/redisx/pkg/provider"
	"github.com/aitoooooo/redisx/pkg/scanner"
	"github.com/aitoooooo/redisx/pkg/source"
	"github.com/aitoooooo/redisx/pkg/version"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"
)

// CommandHelper 提供命令的公共功能：配置、日志、监控以及各组件的组装
type CommandHelper struct {
	cfg     *models.GlobalConfig
	logger  *zap.Logger
	monitor *monitor.Monitor
}

// NewCommandHelper 初始化配置与日志
func NewCommandHelper(cmd *cobra.Command) (*CommandHelper, error) {
	cfg, err := config.InitConfig(cmd)
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}
	return &CommandHelper{
		cfg:     cfg,
		logger:  log,
		monitor: monitor.NewMonitor(cfg.SlowThreshold, cfg.BigKeyThreshold, log),
	}, nil
}

// Close 刷新日志
func (ch *CommandHelper) Close() {
	_ = ch.logger.Sync()
}

// OpenProvider 按配置创建报告存储
func (ch *CommandHelper) OpenProvider(ctx context.Context) (provider.Provider, error) {
	t, err := provider.ParseType(ch.cfg.Provider)
	if err != nil {
		return nil, err
	}
	return provider.NewFactory().Create(ctx, provider.Config{
		Type: t,
		DSN:  ch.cfg.ProviderDSN,
		S3: provider.S3Config{
			Bucket:   ch.cfg.S3Bucket,
			Prefix:   ch.cfg.S3Prefix,
			Region:   ch.cfg.S3Region,
			Endpoint: ch.cfg.S3Endpoint,
		},
	})
}

// OpenSource 连接目标库
func (ch *CommandHelper) OpenSource(ctx context.Context) (*source.RedisSource, error) {
	rs := source.NewRedisSource(source.Options{
		Topology:       ch.cfg.Topology,
		Addrs:          ch.cfg.Addrs,
		Username:       ch.cfg.Username,
		Password:       ch.cfg.Password,
		DB:             ch.cfg.DB,
		SentinelMaster: ch.cfg.SentinelMaster,
		ClientName:     version.ClientName(),
	}, ch.monitor)
	if err := rs.Open(ctx); err != nil {
		return nil, err
	}
	return rs, nil
}

// NewService 组装 key 信息策略、扫描策略、分析器与存储
func (ch *CommandHelper) NewService(p provider.Provider) *analysis.Service {
	keyInfo := keyinfo.NewManager(ch.logger)
	sc := scanner.DefaultScanner(keyInfo, ch.monitor, ch.logger)
	return analysis.NewService(analysis.NewKeysScanner(sc, ch.logger), analysis.NewAnalyzer(), p, ch.logger)
}

// useJSON 判断输出格式，auto 时终端输出文本、管道输出 JSON
func useJSON(output string, w io.Writer) bool {
	switch strings.ToLower(output) {
	case "json":
		return true
	case "text":
		return false
	}
	if f, ok := w.(*os.File); ok {
		return !term.IsTerminal(int(f.Fd()))
	}
	return true
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// formatBytes 以 1024 为进制格式化字节数
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
