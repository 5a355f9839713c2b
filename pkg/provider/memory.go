package provider

import (
	"context"
	"fmt"
	"sync"

	"github.com/aitoooooo/redisx/pkg/models"
)

// MemoryProvider 进程内存储，保存序列化后的副本
type MemoryProvider struct {
	mu    sync.RWMutex
	items map[string]memoryItem
}

type memoryItem struct {
	short      models.ShortDatabaseAnalysis
	databaseID string
	data       []byte
}

// NewMemoryProvider 创建内存存储
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{items: make(map[string]memoryItem)}
}

func (p *MemoryProvider) Create(ctx context.Context, analysis *models.DatabaseAnalysis) (*models.DatabaseAnalysis, error) {
	saved, data, err := prepare(analysis)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.items[saved.ID]; exists {
		return nil, fmt.Errorf("analysis %s already exists", saved.ID)
	}
	p.items[saved.ID] = memoryItem{short: saved.Short(), databaseID: saved.DatabaseID, data: data}
	return saved, nil
}

func (p *MemoryProvider) Get(ctx context.Context, id string) (*models.DatabaseAnalysis, error) {
	p.mu.RLock()
	item, ok := p.items[id]
	p.mu.RUnlock()
	if !ok {
		return nil, notFound(id)
	}
	return decode(item.data)
}

func (p *MemoryProvider) List(ctx context.Context, databaseID string) ([]models.ShortDatabaseAnalysis, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	list := []models.ShortDatabaseAnalysis{}
	for _, item := range p.items {
		if item.databaseID == databaseID {
			list = append(list, item.short)
		}
	}
	sortNewestFirst(list)
	return list, nil
}

func (p *MemoryProvider) Close() error {
	return nil
}
