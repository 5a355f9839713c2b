package scanner

import (
	"sync"

	"github.com/aitoooooo/redisx/pkg/keyinfo"
	"github.com/aitoooooo/redisx/pkg/models"
	"github.com/aitoooooo/redisx/pkg/monitor"
	"go.uber.org/zap"
)

// StrategyNotFoundError 没有注册对应的扫描策略，属于配置错误，不应重试
type StrategyNotFoundError struct {
	ID string
}

func (e *StrategyNotFoundError) Error() string {
	return "Unsupported scan strategy: " + e.ID
}

// Scanner 部署形态 -> 扫描策略 的注册表
type Scanner struct {
	mu         sync.RWMutex
	strategies map[string]Strategy
}

// NewScanner 用给定的策略创建注册表
func NewScanner(strategies map[models.Topology]Strategy) *Scanner {
	s := &Scanner{strategies: make(map[string]Strategy, len(strategies))}
	for id, strategy := range strategies {
		s.strategies[string(id)] = strategy
	}
	return s
}

// DefaultScanner 注册内置的三种部署形态，哨兵与单机共用一个策略
func DefaultScanner(keyInfo *keyinfo.Manager, m *monitor.Monitor, logger *zap.Logger) *Scanner {
	standalone := NewStandaloneStrategy(keyInfo, m, logger)
	return NewScanner(map[models.Topology]Strategy{
		models.TopologyStandalone: standalone,
		models.TopologySentinel:   standalone,
		models.TopologyCluster:    NewClusterStrategy(keyInfo, m, logger),
	})
}

// AddStrategy 注册或替换策略
func (s *Scanner) AddStrategy(id string, strategy Strategy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.strategies[id] = strategy
}

// GetStrategy 获取策略，未注册时返回 *StrategyNotFoundError
func (s *Scanner) GetStrategy(id string) (Strategy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	strategy, ok := s.strategies[id]
	if !ok {
		return nil, &StrategyNotFoundError{ID: id}
	}
	return strategy, nil
}
