package source

import (
	"context"

	"github.com/aitoooooo/redisx/pkg/models"
)

// Reply 管道中单条命令的结果，Value 为 nil 且 Err 为 nil 表示空回复
type Reply struct {
	Value interface{}
	Err   error
}

// Node 一个可寻址的节点（单机/哨兵为唯一节点，集群为每个 master）
type Node interface {
	// Address 节点地址
	Address() string
	// Exec 执行单条命令，空回复返回 (nil, nil)
	Exec(ctx context.Context, args ...interface{}) (interface{}, error)
	// ExecPipeline 一次往返执行一批命令
	// 整体失败（网络、认证、超时）返回 error，单条命令的错误放在对应 Reply 中
	ExecPipeline(ctx context.Context, cmds [][]interface{}) ([]Reply, error)
}

// Executor 命令执行器，屏蔽拓扑差异
type Executor interface {
	// Topology 部署形态
	Topology() models.Topology
	// Nodes 需要扫描的节点列表
	Nodes(ctx context.Context) ([]Node, error)
	// Close 关闭连接
	Close() error
}
