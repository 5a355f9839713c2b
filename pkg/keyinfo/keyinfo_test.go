package keyinfo

import (
	"context"
	"errors"
	"testing"

	"github.com/aitoooooo/redisx/pkg/models"
	"github.com/aitoooooo/redisx/pkg/source"
	"github.com/aitoooooo/redisx/pkg/source/sourcetest"
	"github.com/aitoooooo/redisx/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// recordingNode 记录收到的管道命令
type recordingNode struct {
	*sourcetest.Node
	pipelines [][][]interface{}
}

func (r *recordingNode) ExecPipeline(ctx context.Context, cmds [][]interface{}) ([]source.Reply, error) {
	r.pipelines = append(r.pipelines, cmds)
	return r.Node.ExecPipeline(ctx, cmds)
}

func newNode() *sourcetest.Node {
	return sourcetest.NewNode("127.0.0.1:6379", map[string]sourcetest.Key{
		"str":    {Type: "string", TTL: -1, Size: sourcetest.Size(56), Length: 5},
		"list":   {Type: "list", TTL: 300, Size: sourcetest.Size(120), Length: 3},
		"hash":   {Type: "hash", TTL: -1, Size: sourcetest.Size(200), Length: 10},
		"set":    {Type: "set", TTL: -1, Size: sourcetest.Size(80), Length: 4},
		"zset":   {Type: "zset", TTL: -1, Size: sourcetest.Size(90), Length: 6},
		"stream": {Type: "stream", TTL: -1, Size: sourcetest.Size(600), Length: 2},
		"gone":   {Type: "list", TTL: -1, Size: sourcetest.Size(10), Length: 1, Vanish: true},
		"nosize": {Type: "string", TTL: -1, Length: 2},
		"graph":  {Type: "graphdata", TTL: -1, Size: sourcetest.Size(1000)},
	})
}

func TestGetInfoPipelinesOneBatch(t *testing.T) {
	node := &recordingNode{Node: newNode()}
	m := NewManager(zaptest.NewLogger(t))

	desc, err := m.GetInfo(context.Background(), node, "list", "list")
	require.NoError(t, err)

	require.Len(t, node.pipelines, 1)
	cmds := node.pipelines[0]
	require.Len(t, cmds, 3)
	assert.Equal(t, []interface{}{"TTL", "list"}, cmds[0])
	assert.Equal(t, []interface{}{"MEMORY", "USAGE", "list", "SAMPLES", "0"}, cmds[1])
	assert.Equal(t, []interface{}{"LLEN", "list"}, cmds[2])

	assert.Equal(t, "list", desc.Name)
	assert.Equal(t, "list", desc.Type)
	assert.Equal(t, int64(300), desc.TTL)
	require.NotNil(t, desc.Size)
	assert.Equal(t, uint64(120), *desc.Size)
	require.NotNil(t, desc.Length)
	assert.Equal(t, uint64(3), *desc.Length)
}

func TestGetInfoPerType(t *testing.T) {
	tests := []struct {
		key       string
		typ       string
		lengthCmd string
		length    uint64
	}{
		{"str", "string", "STRLEN", 5},
		{"hash", "hash", "HLEN", 10},
		{"set", "set", "SCARD", 4},
		{"zset", "zset", "ZCARD", 6},
		{"stream", "stream", "XLEN", 2},
	}

	m := NewManager(nil)
	for _, test := range tests {
		node := &recordingNode{Node: newNode()}
		desc, err := m.GetInfo(context.Background(), node, test.key, test.typ)
		require.NoError(t, err, test.key)
		assert.Equal(t, test.lengthCmd, node.pipelines[0][2][0], test.key)
		require.NotNil(t, desc.Length, test.key)
		assert.Equal(t, test.length, *desc.Length, test.key)
		assert.Equal(t, int64(-1), desc.TTL, test.key)
	}
}

func TestGetInfoUnknownTypeHasNoLength(t *testing.T) {
	node := &recordingNode{Node: newNode()}
	m := NewManager(nil)

	desc, err := m.GetInfo(context.Background(), node, "graph", "graphdata")
	require.NoError(t, err)
	assert.Len(t, node.pipelines[0], 2)
	assert.Nil(t, desc.Length)
	require.NotNil(t, desc.Size)
	assert.Equal(t, uint64(1000), *desc.Size)

	desc, err = m.GetInfo(context.Background(), node, "graph", "MBbloom--")
	require.NoError(t, err)
	assert.Equal(t, "MBbloom--", desc.Type)
	assert.Nil(t, desc.Length)
}

func TestGetInfoVanishedKey(t *testing.T) {
	m := NewManager(nil)

	desc, err := m.GetInfo(context.Background(), newNode(), "gone", "list")
	require.NoError(t, err)
	assert.Equal(t, int64(-2), desc.TTL)
	assert.True(t, desc.Vanished)
	assert.Nil(t, desc.Size)
	assert.Nil(t, desc.Length)
}

func TestGetInfoTTLErrorKeepsKey(t *testing.T) {
	node := newNode()
	node.ItemErrs = map[string]error{
		"TTL": errors.New("NOPERM this user has no permissions to run the 'ttl' command"),
	}
	m := NewManager(nil)

	desc, err := m.GetInfo(context.Background(), node, "list", "list")
	require.NoError(t, err)
	assert.False(t, desc.Vanished)
	assert.Equal(t, int64(-2), desc.TTL)
	require.NotNil(t, desc.Size)
	assert.Equal(t, uint64(120), *desc.Size)
	require.NotNil(t, desc.Length)
	assert.Equal(t, uint64(3), *desc.Length)
}

func TestGetInfoAbsentMemoryIsNotZero(t *testing.T) {
	m := NewManager(nil)

	desc, err := m.GetInfo(context.Background(), newNode(), "nosize", "string")
	require.NoError(t, err)
	assert.Nil(t, desc.Size)
	require.NotNil(t, desc.Length)
	assert.Equal(t, uint64(2), *desc.Length)
}

func TestGetInfoItemErrorIsAbsentField(t *testing.T) {
	node := newNode()
	node.ItemErrs = map[string]error{
		"LLEN": errors.New("WRONGTYPE Operation against a key holding the wrong kind of value"),
	}
	m := NewManager(nil)

	desc, err := m.GetInfo(context.Background(), node, "list", "list")
	require.NoError(t, err)
	assert.Nil(t, desc.Length)
	assert.Equal(t, int64(300), desc.TTL)
	require.NotNil(t, desc.Size)
}

func TestGetInfoPipelineErrorPropagates(t *testing.T) {
	node := newNode()
	connErr := errors.New("dial tcp 127.0.0.1:6379: connection refused")
	node.PipelineErr = connErr
	m := NewManager(nil)

	desc, err := m.GetInfo(context.Background(), node, "list", "list")
	assert.Nil(t, desc)
	assert.ErrorIs(t, err, connErr)
}

type stubStrategy struct{ called bool }

func (s *stubStrategy) GetInfo(ctx context.Context, node source.Node, key string, knownType string) (*models.KeyDescriptor, error) {
	s.called = true
	return &models.KeyDescriptor{Name: key, Type: knownType, TTL: -1}, nil
}

func TestManagerAddStrategy(t *testing.T) {
	m := NewManager(nil)
	stub := &stubStrategy{}
	m.AddStrategy(util.DataType("MBbloom--"), stub)

	assert.Same(t, stub, m.GetStrategy("MBbloom--"))
	_, err := m.GetInfo(context.Background(), newNode(), "bloom", "MBbloom--")
	require.NoError(t, err)
	assert.True(t, stub.called)
}
