package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aitoooooo/redisx/pkg/models"
	"github.com/google/uuid"
)

// ErrNotFound 指定 id 的分析报告不存在
var ErrNotFound = errors.New("analysis not found")

// Provider 分析报告的持久化，报告只创建不修改
type Provider interface {
	// Create 保存报告，ID 为空时生成
	Create(ctx context.Context, analysis *models.DatabaseAnalysis) (*models.DatabaseAnalysis, error)
	// Get 按 id 读取完整报告，不存在时返回 ErrNotFound
	Get(ctx context.Context, id string) (*models.DatabaseAnalysis, error)
	// List 列出某个库的报告，按创建时间倒序
	List(ctx context.Context, databaseID string) ([]models.ShortDatabaseAnalysis, error)
	Close() error
}

// Type 存储类型
type Type string

const (
	TypeMemory   Type = "memory"
	TypeFile     Type = "file"
	TypeSQLite   Type = "sqlite"
	TypeMySQL    Type = "mysql"
	TypePostgres Type = "postgres"
	TypeS3       Type = "s3"
)

// ParseType 解析存储类型
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "memory", "mem":
		return TypeMemory, nil
	case "", "file", "local":
		return TypeFile, nil
	case "sqlite", "sqlite3":
		return TypeSQLite, nil
	case "mysql":
		return TypeMySQL, nil
	case "postgres", "postgresql", "pg":
		return TypePostgres, nil
	case "s3":
		return TypeS3, nil
	default:
		return "", fmt.Errorf("unknown provider type: %s", s)
	}
}

func (t Type) String() string {
	return string(t)
}

// prepare 复制一份待保存的报告，补齐 ID 与创建时间
func prepare(analysis *models.DatabaseAnalysis) (*models.DatabaseAnalysis, []byte, error) {
	if analysis == nil {
		return nil, nil, errors.New("analysis is nil")
	}
	cp := *analysis
	if cp.ID == "" {
		cp.ID = uuid.NewString()
	}
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	cp.CreatedAt = cp.CreatedAt.UTC()

	data, err := json.Marshal(&cp)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal analysis: %w", err)
	}
	// 返回值与存储内容一致，调用方修改不会影响已保存的报告
	saved, err := decode(data)
	if err != nil {
		return nil, nil, err
	}
	return saved, data, nil
}

func decode(data []byte) (*models.DatabaseAnalysis, error) {
	var analysis models.DatabaseAnalysis
	if err := json.Unmarshal(data, &analysis); err != nil {
		return nil, fmt.Errorf("failed to unmarshal analysis: %w", err)
	}
	return &analysis, nil
}

func notFound(id string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, id)
}

// sortNewestFirst 按创建时间倒序，时间相同按 id 排序
func sortNewestFirst(items []models.ShortDatabaseAnalysis) {
	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}
		return items[i].ID < items[j].ID
	})
}
