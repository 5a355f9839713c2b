package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aitoooooo/redisx/pkg/filter"
	"github.com/aitoooooo/redisx/pkg/models"
	"github.com/aitoooooo/redisx/pkg/provider"
	"github.com/aitoooooo/redisx/pkg/source"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrNoNodes 扫描没有返回任何节点结果
var ErrNoNodes = errors.New("no node scanned")

// CreateRequest 创建分析的参数
type CreateRequest struct {
	DatabaseID string
	Filter     models.ScanFilter
	Delimiter  string
	Top        int
	Workers    int
	Partial    bool
	Timeout    time.Duration
}

// Service 扫描 -> 汇总 -> 分析 -> 保存
type Service struct {
	scanner  *KeysScanner
	analyzer *Analyzer
	provider provider.Provider
	logger   *zap.Logger

	now   func() time.Time
	newID func() string
}

// NewService 创建分析服务
func NewService(ks *KeysScanner, analyzer *Analyzer, p provider.Provider, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if analyzer == nil {
		analyzer = NewAnalyzer()
	}
	return &Service{
		scanner:  ks,
		analyzer: analyzer,
		provider: p,
		logger:   logger.Named("analysis"),
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Create 同步完成一次分析并保存，保存恰好一次
// 存储端的错误（如 NOPERM）原样包装返回，可用 errors.Is/As 判断
func (s *Service) Create(ctx context.Context, exec source.Executor, req CreateRequest) (*models.DatabaseAnalysis, error) {
	f := filter.Normalize(req.Filter)
	if err := filter.Validate(f); err != nil {
		return nil, err
	}
	logger := s.logger.With(
		zap.String("database_id", req.DatabaseID),
		zap.String("topology", exec.Topology().String()),
		zap.String("pattern", f.Match))

	results, err := s.scanner.Scan(ctx, exec, ScanOptions{
		Filter:  f,
		Workers: req.Workers,
		Partial: req.Partial,
		Timeout: req.Timeout,
	})
	partial := false
	if errors.Is(err, ErrScanTimeout) {
		partial = true
		err = nil
	}
	if err != nil {
		logger.Error("unable to analyze database", zap.Error(err))
		return nil, fmt.Errorf("failed to scan database: %w", err)
	}
	if len(results) == 0 {
		return nil, ErrNoNodes
	}

	var (
		progress   models.NodeProgress
		keys       []models.KeyDescriptor
		nodeErrors []models.NodeFailure
	)
	for _, r := range results {
		progress.Add(r.Progress)
		keys = append(keys, r.Keys...)
		if r.Error != "" {
			nodeErrors = append(nodeErrors, models.NodeFailure{Node: r.Node, Error: r.Error, Progress: r.Progress})
		}
	}

	analysis := s.analyzer.Analyze(AnalyzeParams{
		DatabaseID: req.DatabaseID,
		Filter:     f,
		Delimiter:  req.Delimiter,
		Progress:   progress,
		Top:        req.Top,
	}, keys)
	analysis.ID = s.newID()
	analysis.CreatedAt = s.now().UTC()
	analysis.Partial = partial || len(nodeErrors) > 0
	analysis.NodeErrors = nodeErrors

	saved, err := s.provider.Create(ctx, analysis)
	if err != nil {
		logger.Error("unable to save analysis", zap.String("analysis_id", analysis.ID), zap.Error(err))
		return nil, fmt.Errorf("failed to save analysis: %w", err)
	}

	logger.Info("database analysis created",
		zap.String("analysis_id", saved.ID),
		zap.Int64("total", progress.Total),
		zap.Int64("scanned", progress.Scanned),
		zap.Int64("processed", progress.Processed),
		zap.Bool("partial", saved.Partial))
	return saved, nil
}

// Get 按 id 读取完整报告
func (s *Service) Get(ctx context.Context, id string) (*models.DatabaseAnalysis, error) {
	return s.provider.Get(ctx, id)
}

// List 列出某个库的报告，只包含 id 与创建时间
func (s *Service) List(ctx context.Context, databaseID string) ([]models.ShortDatabaseAnalysis, error) {
	return s.provider.List(ctx, databaseID)
}
