package scanner

import (
	"context"
	"fmt"

	"github.com/aitoooooo/redisx/pkg/keyinfo"
	"github.com/aitoooooo/redisx/pkg/models"
	"github.com/aitoooooo/redisx/pkg/monitor"
	"github.com/aitoooooo/redisx/pkg/source"
	"go.uber.org/zap"
)

// StandaloneStrategy 单机与哨兵的扫描策略，只有一个逻辑节点
type StandaloneStrategy struct {
	baseStrategy
}

// NewStandaloneStrategy 创建单机策略
func NewStandaloneStrategy(keyInfo *keyinfo.Manager, m *monitor.Monitor, logger *zap.Logger) *StandaloneStrategy {
	return &StandaloneStrategy{baseStrategy: newBaseStrategy(keyInfo, m, logger)}
}

func (s *StandaloneStrategy) GetKeys(ctx context.Context, exec source.Executor, opts Options) ([]models.ScanResult, error) {
	nodes, err := exec.Nodes(ctx)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("no node available for %s topology", exec.Topology())
	}

	result, err := s.scanNode(ctx, exec.Topology(), nodes[0], opts)
	return []models.ScanResult{*result}, err
}
