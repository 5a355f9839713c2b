package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/aitoooooo/redisx/pkg/models"
)

// FileProvider 每份报告一个 JSON 文件，默认目录 ~/.redisx/analyses
type FileProvider struct {
	dir string
	mu  sync.RWMutex
}

// DefaultDir 默认的报告目录
func DefaultDir() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".redisx", "analyses")
}

// NewFileProvider 创建文件存储，dir 为空时使用默认目录
func NewFileProvider(dir string) (*FileProvider, error) {
	if dir == "" {
		dir = DefaultDir()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create analysis dir: %w", err)
	}
	return &FileProvider{dir: dir}, nil
}

// Dir 返回报告目录
func (p *FileProvider) Dir() string {
	return p.dir
}

func (p *FileProvider) path(id string) (string, error) {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return "", fmt.Errorf("invalid analysis id: %q", id)
	}
	return filepath.Join(p.dir, id+".json"), nil
}

func (p *FileProvider) Create(ctx context.Context, analysis *models.DatabaseAnalysis) (*models.DatabaseAnalysis, error) {
	saved, _, err := prepare(analysis)
	if err != nil {
		return nil, err
	}
	path, err := p.path(saved.ID)
	if err != nil {
		return nil, err
	}

	data, err := json.MarshalIndent(saved, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal analysis: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("analysis %s already exists", saved.ID)
	}
	// 先写临时文件再改名，读取方不会看到写了一半的报告
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write analysis file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return nil, fmt.Errorf("failed to write analysis file: %w", err)
	}
	return saved, nil
}

func (p *FileProvider) Get(ctx context.Context, id string) (*models.DatabaseAnalysis, error) {
	path, err := p.path(id)
	if err != nil {
		return nil, err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, notFound(id)
		}
		return nil, fmt.Errorf("failed to read analysis file: %w", err)
	}
	return decode(data)
}

func (p *FileProvider) List(ctx context.Context, databaseID string) ([]models.ShortDatabaseAnalysis, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	entries, err := os.ReadDir(p.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read analysis dir: %w", err)
	}

	list := []models.ShortDatabaseAnalysis{}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(filepath.Join(p.dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read analysis file: %w", err)
		}
		var head struct {
			ID         string    `json:"id"`
			DatabaseID string    `json:"databaseId"`
			CreatedAt  time.Time `json:"createdAt"`
		}
		if err := json.Unmarshal(data, &head); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s: %w", entry.Name(), err)
		}
		if head.DatabaseID == databaseID {
			list = append(list, models.ShortDatabaseAnalysis{ID: head.ID, CreatedAt: head.CreatedAt})
		}
	}
	sortNewestFirst(list)
	return list, nil
}

func (p *FileProvider) Close() error {
	return nil
}
