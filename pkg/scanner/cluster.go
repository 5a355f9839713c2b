package scanner

import (
	"context"
	"errors"
	"fmt"

	"github.com/aitoooooo/redisx/pkg/keyinfo"
	"github.com/aitoooooo/redisx/pkg/models"
	"github.com/aitoooooo/redisx/pkg/monitor"
	"github.com/aitoooooo/redisx/pkg/source"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ClusterStrategy 集群扫描策略，每个 master 独立扫描，KeysLimit 对每个分片单独生效
// 精确匹配的模式同样走 SCAN MATCH，只有持有该槽位的分片会返回它
type ClusterStrategy struct {
	baseStrategy
}

// NewClusterStrategy 创建集群策略
func NewClusterStrategy(keyInfo *keyinfo.Manager, m *monitor.Monitor, logger *zap.Logger) *ClusterStrategy {
	base := newBaseStrategy(keyInfo, m, logger)
	base.exactLookup = false
	return &ClusterStrategy{baseStrategy: base}
}

func (s *ClusterStrategy) GetKeys(ctx context.Context, exec source.Executor, opts Options) ([]models.ScanResult, error) {
	nodes, err := exec.Nodes(ctx)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("no master node found in cluster")
	}

	// 每个分片只写自己下标的位置，不共享可变状态
	results := make([]models.ScanResult, len(nodes))

	if opts.Partial {
		return results, s.scanPartial(ctx, exec.Topology(), nodes, opts, results)
	}

	// 默认快速失败：任一分片出错即取消其它分片
	g, gctx := errgroup.WithContext(ctx)
	for i, node := range nodes {
		g.Go(func() error {
			result, err := s.scanNode(gctx, exec.Topology(), node, opts)
			results[i] = *result
			if err != nil {
				return &NodeError{Node: node.Address(), Err: err}
			}
			return nil
		})
	}
	return results, g.Wait()
}

// scanPartial 分片失败时记录错误并继续，全部失败或调用方取消时才返回错误
func (s *ClusterStrategy) scanPartial(ctx context.Context, topology models.Topology, nodes []source.Node, opts Options, results []models.ScanResult) error {
	errs := make([]error, len(nodes))
	var g errgroup.Group
	for i, node := range nodes {
		g.Go(func() error {
			result, err := s.scanNode(ctx, topology, node, opts)
			results[i] = *result
			if err != nil {
				errs[i] = &NodeError{Node: node.Address(), Err: err}
				results[i].Error = err.Error()
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}

	failed := 0
	for _, err := range errs {
		if err != nil {
			failed++
		}
	}
	if failed == len(nodes) {
		return errors.Join(errs...)
	}
	if failed > 0 {
		s.logger.Warn("cluster scan finished with failed shards",
			zap.Int("failed", failed),
			zap.Int("shards", len(nodes)))
	}
	return nil
}
