package scanner

import (
	"context"
	"fmt"

	"github.com/aitoooooo/redisx/pkg/models"
	"github.com/aitoooooo/redisx/pkg/source"
)

const (
	defaultWorkers        = 4
	defaultKeyConcurrency = 16
)

// Options 一次扫描的参数
type Options struct {
	Filter models.ScanFilter
	// Workers 每个节点并发处理 key 批次的消费者数量
	Workers int
	// Partial 集群模式下单个分片失败时保留其它分片的结果
	Partial bool
}

// Strategy 某种部署形态下的扫描策略
type Strategy interface {
	// GetKeys 扫描所有节点，每个节点返回一个 ScanResult
	// 出错时仍返回已完成部分的结果
	GetKeys(ctx context.Context, exec source.Executor, opts Options) ([]models.ScanResult, error)
	// GetKeysInfo 获取一批 key 的元数据，typeHint 为空时先查询 TYPE
	GetKeysInfo(ctx context.Context, node source.Node, keys []string, typeHint string) ([]models.KeyDescriptor, error)
}

// NodeError 单个节点扫描失败
type NodeError struct {
	Node string
	Err  error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("node %s: %v", e.Node, e.Err)
}

func (e *NodeError) Unwrap() error {
	return e.Err
}
