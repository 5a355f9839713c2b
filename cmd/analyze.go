package cmd

import (
	"os"

	"github.com/aitoooooo/redisx/pkg/analysis"
	"github.com/aitoooooo/redisx/pkg/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Scan the keyspace and create an analysis report",
	Long: `Enumerate keys with SCAN on every node, fetch type, TTL, memory usage and
length for each key, then save a report with type distribution, top namespaces,
top keys by memory and length, and expiration groups.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		helper, err := NewCommandHelper(cmd)
		if err != nil {
			return err
		}
		defer helper.Close()
		cfg := helper.cfg

		// 报告存储
		p, err := helper.OpenProvider(cmd.Context())
		if err != nil {
			return err
		}
		defer p.Close()

		// 连接目标库
		rs, err := helper.OpenSource(cmd.Context())
		if err != nil {
			return err
		}
		defer rs.Close()

		helper.logger.Info("starting analysis",
			zap.String("database_id", cfg.DatabaseID),
			zap.String("topology", cfg.Topology.String()),
			zap.Strings("addrs", cfg.Addrs),
			zap.String("pattern", cfg.Filter.Match))

		result, err := helper.NewService(p).Create(cmd.Context(), rs, analysis.CreateRequest{
			DatabaseID: cfg.DatabaseID,
			Filter:     cfg.Filter,
			Delimiter:  cfg.Delimiter,
			Top:        cfg.Top,
			Workers:    cfg.Workers,
			Partial:    cfg.Partial,
			Timeout:    cfg.Timeout,
		})
		if err != nil {
			return err
		}

		// 输出结果
		if useJSON(cfg.Output, os.Stdout) {
			if err := printJSON(os.Stdout, result); err != nil {
				return err
			}
		} else {
			printAnalysis(os.Stdout, result)
		}
		helper.monitor.PrintStats(os.Stderr)
		return nil
	},
}

func init() {
	config.AddAnalyzeFlags(analyzeCmd)
}
