package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aitoooooo/redisx/pkg/models"
	"github.com/aitoooooo/redisx/pkg/scanner"
	"github.com/aitoooooo/redisx/pkg/source"
	"go.uber.org/zap"
)

// ErrScanTimeout 扫描超过 Timeout，返回的是已完成部分的结果
var ErrScanTimeout = errors.New("scan timed out")

// ScanOptions 一次扫描的参数
type ScanOptions struct {
	Filter  models.ScanFilter
	Workers int
	Partial bool
	// Timeout 扫描截止时间，0 表示只受调用方 ctx 控制
	Timeout time.Duration
}

// KeysScanner 按部署形态选择扫描策略并委托执行，本身不重试
type KeysScanner struct {
	scanner *scanner.Scanner
	logger  *zap.Logger
}

// NewKeysScanner 创建扫描编排器
func NewKeysScanner(s *scanner.Scanner, logger *zap.Logger) *KeysScanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KeysScanner{scanner: s, logger: logger.Named("keys-scanner")}
}

// Scan 扫描整个库
// 超时且调用方 ctx 仍有效时，返回部分结果和 ErrScanTimeout
func (ks *KeysScanner) Scan(ctx context.Context, exec source.Executor, opts ScanOptions) ([]models.ScanResult, error) {
	strategy, err := ks.scanner.GetStrategy(exec.Topology().String())
	if err != nil {
		return nil, err
	}

	scanCtx := ctx
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		scanCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	results, err := strategy.GetKeys(scanCtx, exec, scanner.Options{
		Filter:  opts.Filter,
		Workers: opts.Workers,
		Partial: opts.Partial,
	})
	if err != nil && ctx.Err() == nil && errors.Is(scanCtx.Err(), context.DeadlineExceeded) {
		ks.logger.Warn("scan deadline reached, keeping partial results",
			zap.String("topology", exec.Topology().String()),
			zap.Duration("timeout", opts.Timeout),
			zap.Int("nodes", len(results)))
		return results, fmt.Errorf("%w after %s", ErrScanTimeout, opts.Timeout)
	}
	return results, err
}
