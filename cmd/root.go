package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aitoooooo/redisx/pkg/config"
	"github.com/aitoooooo/redisx/pkg/version"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "redisx",
	Short: "Keyspace scanning and analysis for Redis-compatible stores",
	Long: `redisx inspects the keyspace of a running standalone, sentinel or cluster
deployment without blocking it. It scans keys with SCAN, collects per-key
metadata with pipelines, and saves analysis reports to a pluggable store.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	// Ctrl+C 取消扫描
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.SetVersionTemplate(version.Info() + "\n")

	// 添加全局 flag
	config.AddGlobalFlags(rootCmd)

	// 添加子命令
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(versionCmd)
}
