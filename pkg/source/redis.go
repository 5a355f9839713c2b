package source

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aitoooooo/redisx/pkg/models"
	"github.com/aitoooooo/redisx/pkg/monitor"
	"github.com/redis/go-redis/v9"
)

// Options 连接参数
type Options struct {
	Topology       models.Topology
	Addrs          []string
	Username       string
	Password       string
	DB             int
	SentinelMaster string
	ClientName     string // CLIENT SETNAME
	DialTimeout    time.Duration
	ReadTimeout    time.Duration
}

// RedisSource 基于 go-redis 的命令执行器
type RedisSource struct {
	opts    Options
	client  redis.UniversalClient
	monitor *monitor.Monitor
}

// NewRedisSource 创建数据源，调用 Open 之后才可用
func NewRedisSource(opts Options, m *monitor.Monitor) *RedisSource {
	return &RedisSource{
		opts:    opts,
		monitor: m,
	}
}

// Open 建立连接并 PING
func (rs *RedisSource) Open(ctx context.Context) error {
	client, err := newClient(rs.opts)
	if err != nil {
		return err
	}

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return fmt.Errorf("failed to ping %s: %w", strings.Join(rs.opts.Addrs, ","), err)
	}
	rs.client = client
	return nil
}

// Close 关闭连接
func (rs *RedisSource) Close() error {
	if rs.client == nil {
		return nil
	}
	if err := rs.client.Close(); err != nil {
		return fmt.Errorf("failed to close redis connection: %w", err)
	}
	return nil
}

// Topology 部署形态
func (rs *RedisSource) Topology() models.Topology {
	return rs.opts.Topology
}

// Nodes 单机/哨兵返回一个节点，集群返回全部 master（按地址排序）
func (rs *RedisSource) Nodes(ctx context.Context) ([]Node, error) {
	if rs.client == nil {
		return nil, fmt.Errorf("redis source is not open")
	}

	switch c := rs.client.(type) {
	case *redis.ClusterClient:
		var mu sync.Mutex
		var nodes []Node
		err := c.ForEachMaster(ctx, func(ctx context.Context, client *redis.Client) error {
			mu.Lock()
			defer mu.Unlock()
			nodes = append(nodes, &redisNode{
				addr:    client.Options().Addr,
				client:  client,
				monitor: rs.monitor,
			})
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list cluster masters: %w", err)
		}
		sort.Slice(nodes, func(i, j int) bool {
			return nodes[i].Address() < nodes[j].Address()
		})
		return nodes, nil
	case *redis.Client:
		addr := c.Options().Addr
		if rs.opts.Topology == models.TopologySentinel {
			addr = rs.opts.SentinelMaster
		}
		return []Node{&redisNode{addr: addr, client: c, monitor: rs.monitor}}, nil
	default:
		return nil, fmt.Errorf("unsupported client type %T", rs.client)
	}
}

// newClient 根据部署形态创建客户端，不建立连接
func newClient(opts Options) (redis.UniversalClient, error) {
	if len(opts.Addrs) == 0 {
		return nil, fmt.Errorf("at least one address is required")
	}

	switch opts.Topology {
	case models.TopologyStandalone, "":
		return redis.NewClient(&redis.Options{
			Addr:        opts.Addrs[0],
			Username:    opts.Username,
			Password:    opts.Password,
			DB:          opts.DB,
			ClientName:  opts.ClientName,
			Protocol:    2,
			DialTimeout: opts.DialTimeout,
			ReadTimeout: opts.ReadTimeout,
		}), nil
	case models.TopologySentinel:
		if opts.SentinelMaster == "" {
			return nil, fmt.Errorf("sentinel master name is required for sentinel topology")
		}
		return redis.NewFailoverClient(&redis.FailoverOptions{
			MasterName:    opts.SentinelMaster,
			SentinelAddrs: opts.Addrs,
			Username:      opts.Username,
			Password:      opts.Password,
			DB:            opts.DB,
			ClientName:    opts.ClientName,
			Protocol:      2,
			DialTimeout:   opts.DialTimeout,
			ReadTimeout:   opts.ReadTimeout,
		}), nil
	case models.TopologyCluster:
		if opts.DB != 0 {
			return nil, fmt.Errorf("cluster topology only supports db 0, got %d", opts.DB)
		}
		return redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:       opts.Addrs,
			Username:    opts.Username,
			Password:    opts.Password,
			ClientName:  opts.ClientName,
			Protocol:    2,
			DialTimeout: opts.DialTimeout,
			ReadTimeout: opts.ReadTimeout,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported topology: %s", opts.Topology)
	}
}

type cmdDoer interface {
	Do(ctx context.Context, args ...interface{}) *redis.Cmd
	Pipeline() redis.Pipeliner
}

// redisNode 单个节点上的命令执行
type redisNode struct {
	addr    string
	client  cmdDoer
	monitor *monitor.Monitor
}

func (n *redisNode) Address() string {
	return n.addr
}

func (n *redisNode) Exec(ctx context.Context, args ...interface{}) (interface{}, error) {
	start := time.Now()
	defer n.monitor.LogSlowCommand(commandName(args), start, fmt.Sprintf("node=%s", n.addr))

	v, err := n.client.Do(ctx, args...).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return v, err
}

func (n *redisNode) ExecPipeline(ctx context.Context, cmds [][]interface{}) ([]Reply, error) {
	if len(cmds) == 0 {
		return nil, nil
	}
	start := time.Now()
	defer n.monitor.LogSlowCommand("PIPELINE", start, fmt.Sprintf("node=%s,commands=%d", n.addr, len(cmds)))

	pipe := n.client.Pipeline()
	results := make([]*redis.Cmd, len(cmds))
	for i, args := range cmds {
		results[i] = pipe.Do(ctx, args...)
	}

	// Exec 返回第一条失败命令的错误，只有非回复错误才代表整个管道失败
	if _, err := pipe.Exec(ctx); err != nil && !IsReplyError(err) {
		return nil, err
	}

	replies := make([]Reply, len(results))
	for i, cmd := range results {
		v, err := cmd.Result()
		if errors.Is(err, redis.Nil) {
			v, err = nil, nil
		}
		replies[i] = Reply{Value: v, Err: err}
	}
	return replies, nil
}

// IsReplyError 判断是否为服务端返回的错误回复（WRONGTYPE、NOPERM 等）
func IsReplyError(err error) bool {
	var replyErr redis.Error
	return errors.As(err, &replyErr)
}

func commandName(args []interface{}) string {
	if len(args) == 0 {
		return ""
	}
	if s, ok := args[0].(string); ok {
		return strings.ToUpper(s)
	}
	return fmt.Sprint(args[0])
}
