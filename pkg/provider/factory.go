package provider

import (
	"context"
	"fmt"
	"sort"
)

// Config 创建存储所需的配置
type Config struct {
	Type Type
	// DSN file 为目录，sqlite 为文件路径，mysql/postgres 为连接串
	DSN string
	S3  S3Config
}

// Creator 按配置创建存储
type Creator func(ctx context.Context, cfg Config) (Provider, error)

// Factory 存储类型 -> 创建函数
type Factory struct {
	creators map[Type]Creator
}

// NewFactory 创建工厂并注册内置存储
func NewFactory() *Factory {
	f := &Factory{creators: make(map[Type]Creator)}

	f.Register(TypeMemory, func(ctx context.Context, cfg Config) (Provider, error) {
		return NewMemoryProvider(), nil
	})
	f.Register(TypeFile, func(ctx context.Context, cfg Config) (Provider, error) {
		return NewFileProvider(cfg.DSN)
	})
	f.Register(TypeSQLite, func(ctx context.Context, cfg Config) (Provider, error) {
		return NewSQLProvider(ctx, DialectSQLite, cfg.DSN)
	})
	f.Register(TypeMySQL, func(ctx context.Context, cfg Config) (Provider, error) {
		return NewSQLProvider(ctx, DialectMySQL, cfg.DSN)
	})
	f.Register(TypePostgres, func(ctx context.Context, cfg Config) (Provider, error) {
		return NewSQLProvider(ctx, DialectPostgres, cfg.DSN)
	})
	f.Register(TypeS3, func(ctx context.Context, cfg Config) (Provider, error) {
		return NewS3Provider(ctx, cfg.S3)
	})

	return f
}

// Register 注册或替换存储类型
func (f *Factory) Register(t Type, creator Creator) {
	f.creators[t] = creator
}

// Create 按配置创建存储
func (f *Factory) Create(ctx context.Context, cfg Config) (Provider, error) {
	creator, ok := f.creators[cfg.Type]
	if !ok {
		return nil, fmt.Errorf("unknown provider type: %s", cfg.Type)
	}
	p, err := creator(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s provider: %w", cfg.Type, err)
	}
	return p, nil
}

// Available 已注册的存储类型
func (f *Factory) Available() []Type {
	types := make([]Type, 0, len(f.creators))
	for t := range f.creators {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}
