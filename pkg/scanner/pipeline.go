package scanner

import (
	"context"
	"fmt"
	"sync"

	"github.com/aitoooooo/redisx/pkg/filter"
	"github.com/aitoooooo/redisx/pkg/keyinfo"
	"github.com/aitoooooo/redisx/pkg/models"
	"github.com/aitoooooo/redisx/pkg/monitor"
	"github.com/aitoooooo/redisx/pkg/source"
	"github.com/aitoooooo/redisx/pkg/util"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// baseStrategy 单节点扫描与元数据获取，单机与集群策略共用
type baseStrategy struct {
	keyInfo *keyinfo.Manager
	monitor *monitor.Monitor
	logger  *zap.Logger

	// KeyConcurrency 单个批次内并发获取元数据的 key 数
	KeyConcurrency int
	// exactLookup 模式不含通配符时用 EXISTS 代替 SCAN
	// 集群 master 对不属于自己槽位的 key 返回 MOVED，因此集群策略关闭
	exactLookup bool
}

func newBaseStrategy(keyInfo *keyinfo.Manager, m *monitor.Monitor, logger *zap.Logger) baseStrategy {
	if logger == nil {
		logger = zap.NewNop()
	}
	if keyInfo == nil {
		keyInfo = keyinfo.NewManager(logger)
	}
	return baseStrategy{
		keyInfo:        keyInfo,
		monitor:        m,
		logger:         logger.Named("scanner"),
		KeyConcurrency: defaultKeyConcurrency,
		exactLookup:    true,
	}
}

// GetKeysInfo 获取一批 key 的元数据，结果顺序与 keys 一致
func (b *baseStrategy) GetKeysInfo(ctx context.Context, node source.Node, keys []string, typeHint string) ([]models.KeyDescriptor, error) {
	if len(keys) == 0 {
		return []models.KeyDescriptor{}, nil
	}

	types, err := b.resolveTypes(ctx, node, keys, typeHint)
	if err != nil {
		return nil, err
	}

	descs := make([]models.KeyDescriptor, len(keys))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(b.KeyConcurrency, 1))
	for i, key := range keys {
		if types[i] == string(util.TypeNone) {
			// TYPE 时 key 已经不存在
			descs[i] = models.KeyDescriptor{Name: key, Type: types[i], TTL: -2, Vanished: true}
			continue
		}
		g.Go(func() error {
			desc, err := b.keyInfo.GetInfo(gctx, node, key, types[i])
			if err != nil {
				return err
			}
			descs[i] = *desc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	b.monitor.CheckKeysBatch(descs)
	return descs, nil
}

// resolveTypes 一次管道查询所有 key 的类型，单条失败时类型为空
func (b *baseStrategy) resolveTypes(ctx context.Context, node source.Node, keys []string, typeHint string) ([]string, error) {
	types := make([]string, len(keys))
	if typeHint != "" {
		for i := range types {
			types[i] = typeHint
		}
		return types, nil
	}

	cmds := make([][]interface{}, len(keys))
	for i, key := range keys {
		cmds[i] = []interface{}{"TYPE", key}
	}
	replies, err := node.ExecPipeline(ctx, cmds)
	if err != nil {
		return nil, err
	}
	for i, reply := range replies {
		if reply.Err != nil {
			continue
		}
		if t, ok := source.ToString(reply.Value); ok {
			types[i] = t
		}
	}
	return types, nil
}

// isProcessed 元数据是否获取成功：key 仍然存在且类型已知
func isProcessed(desc models.KeyDescriptor) bool {
	return !desc.Vanished && desc.Type != "" && desc.Type != string(util.TypeNone)
}

// scanNode 扫描单个节点
// 生产者按游标顺序执行 SCAN，把每批 key 交给消费者并发获取元数据
// 总是返回非 nil 的结果，出错或取消时其中是已完成部分的进度
func (b *baseStrategy) scanNode(ctx context.Context, topology models.Topology, node source.Node, opts Options) (*models.ScanResult, error) {
	f := filter.Normalize(opts.Filter)
	result := &models.ScanResult{
		Node: node.Address(),
		Keys: []models.KeyDescriptor{},
	}
	logger := b.logger.With(zap.String("node", node.Address()), zap.String("topology", topology.String()))

	err := b.runNode(ctx, node, f, opts.Workers, result)

	b.monitor.RecordNode(topology, result.Progress, err)
	if err != nil {
		logger.Warn("node scan stopped",
			zap.Int64("scanned", result.Progress.Scanned),
			zap.Int64("processed", result.Progress.Processed),
			zap.Error(err))
		return result, err
	}
	logger.Info("node scan finished",
		zap.Int64("total", result.Progress.Total),
		zap.Int64("scanned", result.Progress.Scanned),
		zap.Int64("processed", result.Progress.Processed))
	return result, nil
}

func (b *baseStrategy) runNode(ctx context.Context, node source.Node, f models.ScanFilter, workers int, result *models.ScanResult) error {
	// 扫描开始时的 key 总数估计
	size, err := node.Exec(ctx, "DBSIZE")
	if err != nil {
		return fmt.Errorf("failed to get dbsize: %w", err)
	}
	result.Progress.Total, _ = source.ToInt64(size)

	if key, ok := filter.ExactKey(f); ok && b.exactLookup {
		return b.lookupExact(ctx, node, key, f, result)
	}

	if workers <= 0 {
		workers = defaultWorkers
	}

	var (
		mu      sync.Mutex
		scanned int64
	)
	batches := make(chan []string, workers)
	g, gctx := errgroup.WithContext(ctx)

	// 生产者
	g.Go(func() error {
		defer close(batches)

		var cursor uint64
		for {
			if err := gctx.Err(); err != nil {
				return err
			}
			left, ok := filter.Remaining(f.KeysLimit, scanned)
			if !ok {
				return nil
			}

			reply, err := node.Exec(gctx, filter.ScanArgs(cursor, f)...)
			if err != nil {
				return fmt.Errorf("scan failed at cursor %d: %w", cursor, err)
			}
			next, keys, err := source.ParseScanReply(reply)
			if err != nil {
				return err
			}
			if left >= 0 && int64(len(keys)) > left {
				keys = keys[:left]
			}

			mu.Lock()
			scanned += int64(len(keys))
			result.Progress.Scanned = scanned
			mu.Unlock()

			if len(keys) > 0 {
				select {
				case batches <- keys:
				case <-gctx.Done():
					return gctx.Err()
				}
			}

			cursor = next
			if cursor == 0 {
				return nil
			}
		}
	})

	// 消费者
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for batch := range batches {
				descs, err := b.GetKeysInfo(gctx, node, batch, f.Type)
				if err != nil {
					return err
				}
				b.collect(&mu, result, descs)
			}
			return nil
		})
	}

	return g.Wait()
}

// lookupExact 模式不含通配符时直接检查该 key，不做 SCAN
func (b *baseStrategy) lookupExact(ctx context.Context, node source.Node, key string, f models.ScanFilter, result *models.ScanResult) error {
	exists, err := node.Exec(ctx, "EXISTS", key)
	if err != nil {
		return fmt.Errorf("failed to check key: %w", err)
	}
	if n, _ := source.ToInt64(exists); n == 0 {
		return nil
	}

	descs, err := b.GetKeysInfo(ctx, node, []string{key}, "")
	if err != nil {
		return err
	}
	if f.Type != "" && descs[0].Type != f.Type {
		return nil
	}
	result.Progress.Scanned = 1
	var mu sync.Mutex
	b.collect(&mu, result, descs)
	return nil
}

func (b *baseStrategy) collect(mu *sync.Mutex, result *models.ScanResult, descs []models.KeyDescriptor) {
	mu.Lock()
	defer mu.Unlock()
	for _, desc := range descs {
		if isProcessed(desc) {
			result.Progress.Processed++
		}
	}
	result.Keys = append(result.Keys, descs...)
}
