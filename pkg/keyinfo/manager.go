package keyinfo

import (
	"context"
	"sync"

	"github.com/aitoooooo/redisx/pkg/models"
	"github.com/aitoooooo/redisx/pkg/source"
	"github.com/aitoooooo/redisx/pkg/util"
	"go.uber.org/zap"
)

// Manager 按数据类型分发到对应的 Strategy
type Manager struct {
	mu         sync.RWMutex
	strategies map[util.DataType]Strategy
	fallback   Strategy
}

// NewManager 创建管理器并注册内置类型
func NewManager(logger *zap.Logger) *Manager {
	m := &Manager{
		strategies: make(map[util.DataType]Strategy),
		fallback:   NewUnsupportedTypeInfoStrategy(logger),
	}

	for _, dt := range []util.DataType{
		util.TypeString,
		util.TypeList,
		util.TypeHash,
		util.TypeSet,
		util.TypeZSet,
		util.TypeStream,
		util.TypeJSON,
		util.TypeGraph,
		util.TypeTimeSeries,
	} {
		m.strategies[dt] = NewTypeInfoStrategy(dt, util.LengthCommand(dt), logger)
	}
	return m
}

// AddStrategy 注册或替换类型策略
func (m *Manager) AddStrategy(dt util.DataType, s Strategy) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.strategies[dt] = s
}

// GetStrategy 获取类型策略，未注册的类型返回通用策略
func (m *Manager) GetStrategy(dt util.DataType) Strategy {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.strategies[dt]; ok {
		return s
	}
	return m.fallback
}

// GetInfo 获取单个 key 的元数据
func (m *Manager) GetInfo(ctx context.Context, node source.Node, key string, knownType string) (*models.KeyDescriptor, error) {
	return m.GetStrategy(util.DataType(knownType)).GetInfo(ctx, node, key, knownType)
}
