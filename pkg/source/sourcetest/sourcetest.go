// Package sourcetest 提供内存版的 source.Executor / source.Node，用于测试扫描与分析流程。
package sourcetest

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/aitoooooo/redisx/pkg/models"
	"github.com/aitoooooo/redisx/pkg/source"
)

// Key 模拟的 key
type Key struct {
	Type   string
	TTL    int64   // -1 永不过期
	Size   *uint64 // nil 时 MEMORY USAGE 返回空
	Length int64
	// Vanish 为 true 时 SCAN 仍会返回该 key，但获取元数据时 key 已不存在
	Vanish bool
}

// Node 内存节点
type Node struct {
	Addr string

	mu   sync.Mutex
	keys map[string]Key

	// PipelineErr 非空时所有管道整体失败
	PipelineErr error
	// ScanErr 非空时 SCAN 失败
	ScanErr error
	// ItemErrs 按命令名注入单条命令错误，如 "LLEN" -> WRONGTYPE
	ItemErrs map[string]error
	// BeforeScan 每次 SCAN 前回调，参数为第几次 SCAN（从 1 开始）
	BeforeScan func(call int64)
	// MovedTo 非空时模拟集群分片：不属于本节点的 key 命令返回 MOVED
	MovedTo string

	ScanCalls     atomic.Int64
	PipelineCalls atomic.Int64
}

// NewNode 创建节点
func NewNode(addr string, keys map[string]Key) *Node {
	if keys == nil {
		keys = make(map[string]Key)
	}
	return &Node{Addr: addr, keys: keys}
}

// Size 辅助构造 *uint64
func Size(v uint64) *uint64 {
	return &v
}

func (n *Node) Address() string {
	return n.Addr
}

func (n *Node) Exec(ctx context.Context, args ...interface{}) (interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.EqualFold(fmt.Sprint(args[0]), "SCAN") {
		call := n.ScanCalls.Add(1)
		if n.BeforeScan != nil {
			n.BeforeScan(call)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if n.ScanErr != nil {
			return nil, n.ScanErr
		}
	}
	return n.handle(args)
}

func (n *Node) ExecPipeline(ctx context.Context, cmds [][]interface{}) ([]source.Reply, error) {
	n.PipelineCalls.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if n.PipelineErr != nil {
		return nil, n.PipelineErr
	}
	replies := make([]source.Reply, len(cmds))
	for i, args := range cmds {
		name := strings.ToUpper(fmt.Sprint(args[0]))
		if err, ok := n.ItemErrs[name]; ok {
			replies[i] = source.Reply{Err: err}
			continue
		}
		v, err := n.handle(args)
		replies[i] = source.Reply{Value: v, Err: err}
	}
	return replies, nil
}

func (n *Node) lookup(name string) (Key, bool) {
	k, ok := n.keys[name]
	if !ok || k.Vanish {
		return Key{}, false
	}
	return k, true
}

func (n *Node) handle(args []interface{}) (interface{}, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	name := strings.ToUpper(fmt.Sprint(args[0]))
	arg := func(i int) string {
		if i < len(args) {
			return fmt.Sprint(args[i])
		}
		return ""
	}

	if n.MovedTo != "" && isKeyCommand(name) {
		key := arg(1)
		if name == "MEMORY" {
			key = arg(2)
		}
		if _, ok := n.keys[key]; !ok {
			return nil, fmt.Errorf("MOVED 1234 %s", n.MovedTo)
		}
	}

	switch name {
	case "DBSIZE":
		return int64(len(n.keys)), nil
	case "EXISTS":
		if _, ok := n.lookup(arg(1)); ok {
			return int64(1), nil
		}
		return int64(0), nil
	case "TYPE":
		if k, ok := n.lookup(arg(1)); ok {
			return k.Type, nil
		}
		return "none", nil
	case "TTL":
		if k, ok := n.lookup(arg(1)); ok {
			return k.TTL, nil
		}
		return int64(-2), nil
	case "MEMORY":
		k, ok := n.lookup(arg(2))
		if !ok || k.Size == nil {
			return nil, nil
		}
		return int64(*k.Size), nil
	case "STRLEN", "LLEN", "HLEN", "SCARD", "ZCARD", "XLEN", "JSON.OBJLEN":
		if k, ok := n.lookup(arg(1)); ok {
			return k.Length, nil
		}
		return int64(0), nil
	case "SCAN":
		return n.scan(args)
	}
	return nil, errors.New("ERR unknown command '" + name + "'")
}

func isKeyCommand(name string) bool {
	switch name {
	case "DBSIZE", "SCAN":
		return false
	}
	return true
}

// scan 游标为有序 key 列表中的下标
func (n *Node) scan(args []interface{}) (interface{}, error) {
	cursor, err := strconv.Atoi(fmt.Sprint(args[1]))
	if err != nil {
		return nil, err
	}
	match, count, typ := "*", 10, ""
	for i := 2; i+1 < len(args); i += 2 {
		switch strings.ToUpper(fmt.Sprint(args[i])) {
		case "MATCH":
			match = fmt.Sprint(args[i+1])
		case "COUNT":
			count, _ = strconv.Atoi(fmt.Sprint(args[i+1]))
		case "TYPE":
			typ = fmt.Sprint(args[i+1])
		}
	}

	names := make([]string, 0, len(n.keys))
	for name := range n.keys {
		names = append(names, name)
	}
	sort.Strings(names)

	end := cursor + count
	next := end
	if end >= len(names) {
		end = len(names)
		next = 0
	}

	batch := []interface{}{}
	for _, name := range names[cursor:end] {
		if ok, _ := path.Match(match, name); !ok {
			continue
		}
		if typ != "" && n.keys[name].Type != typ {
			continue
		}
		batch = append(batch, name)
	}
	return []interface{}{strconv.Itoa(next), batch}, nil
}

// Executor 内存执行器
type Executor struct {
	Topo      models.Topology
	NodeList  []*Node
	NodesErr  error
	CloseErr  error
	closeOnce atomic.Bool
}

// NewStandalone 单节点执行器
func NewStandalone(keys map[string]Key) *Executor {
	return &Executor{
		Topo:     models.TopologyStandalone,
		NodeList: []*Node{NewNode("127.0.0.1:6379", keys)},
	}
}

// NewCluster 多分片执行器
func NewCluster(shards ...*Node) *Executor {
	return &Executor{Topo: models.TopologyCluster, NodeList: shards}
}

func (e *Executor) Topology() models.Topology {
	return e.Topo
}

func (e *Executor) Nodes(ctx context.Context) ([]source.Node, error) {
	if e.NodesErr != nil {
		return nil, e.NodesErr
	}
	nodes := make([]source.Node, len(e.NodeList))
	for i, n := range e.NodeList {
		nodes[i] = n
	}
	return nodes, nil
}

func (e *Executor) Close() error {
	e.closeOnce.Store(true)
	return e.CloseErr
}

// Closed 是否已调用 Close
func (e *Executor) Closed() bool {
	return e.closeOnce.Load()
}
