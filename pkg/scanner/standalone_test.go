package scanner

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/aitoooooo/redisx/pkg/models"
	"github.com/aitoooooo/redisx/pkg/source/sourcetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func stringKeys(prefix string, n int) map[string]sourcetest.Key {
	keys := make(map[string]sourcetest.Key, n)
	for i := 0; i < n; i++ {
		keys[fmt.Sprintf("%s:%03d", prefix, i)] = sourcetest.Key{Type: "string", TTL: -1, Size: sourcetest.Size(64), Length: 3}
	}
	return keys
}

func TestStandaloneScanAllKeys(t *testing.T) {
	exec := sourcetest.NewStandalone(map[string]sourcetest.Key{
		"s": {Type: "string", TTL: -1, Size: sourcetest.Size(50), Length: 4},
		"l": {Type: "list", TTL: 100, Size: sourcetest.Size(150), Length: 2},
		"h": {Type: "hash", TTL: -1, Size: sourcetest.Size(250), Length: 7},
	})
	strategy := NewStandaloneStrategy(nil, nil, zaptest.NewLogger(t))

	results, err := strategy.GetKeys(context.Background(), exec, Options{
		Filter: models.ScanFilter{Match: "*", Count: 2, KeysLimit: 100},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)

	res := results[0]
	assert.Equal(t, "127.0.0.1:6379", res.Node)
	assert.Len(t, res.Keys, 3)
	assert.Equal(t, models.NodeProgress{Total: 3, Scanned: 3, Processed: 3}, res.Progress)

	types := map[string]string{}
	for _, k := range res.Keys {
		types[k.Name] = k.Type
	}
	assert.Equal(t, map[string]string{"s": "string", "l": "list", "h": "hash"}, types)
}

func TestStandaloneKeysLimit(t *testing.T) {
	exec := sourcetest.NewStandalone(stringKeys("k", 50))
	strategy := NewStandaloneStrategy(nil, nil, nil)

	results, err := strategy.GetKeys(context.Background(), exec, Options{
		Filter: models.ScanFilter{Match: "*", Count: 7, KeysLimit: 10},
	})
	require.NoError(t, err)

	res := results[0]
	assert.Equal(t, int64(10), res.Progress.Scanned)
	assert.Equal(t, int64(10), res.Progress.Processed)
	assert.Equal(t, int64(50), res.Progress.Total)
	assert.Len(t, res.Keys, 10)
	// 7 + 7 之后配额用完，不再发 SCAN
	assert.Equal(t, int64(2), exec.NodeList[0].ScanCalls.Load())
}

func TestStandaloneUnlimitedStopsAtCursorZero(t *testing.T) {
	exec := sourcetest.NewStandalone(stringKeys("k", 25))
	strategy := NewStandaloneStrategy(nil, nil, nil)

	results, err := strategy.GetKeys(context.Background(), exec, Options{
		Filter: models.ScanFilter{Match: "*", Count: 10},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(25), results[0].Progress.Scanned)
	assert.Equal(t, int64(3), exec.NodeList[0].ScanCalls.Load())
}

func TestStandaloneVanishedKey(t *testing.T) {
	keys := stringKeys("k", 2)
	keys["gone"] = sourcetest.Key{Type: "list", TTL: 5, Size: sourcetest.Size(100), Vanish: true}
	exec := sourcetest.NewStandalone(keys)
	strategy := NewStandaloneStrategy(nil, nil, nil)

	results, err := strategy.GetKeys(context.Background(), exec, Options{
		Filter: models.ScanFilter{Match: "*", Count: 100, KeysLimit: 100},
	})
	require.NoError(t, err)

	res := results[0]
	assert.Equal(t, int64(3), res.Progress.Scanned)
	assert.Equal(t, int64(2), res.Progress.Processed)
	assert.LessOrEqual(t, res.Progress.Processed, res.Progress.Scanned)

	var gone *models.KeyDescriptor
	for i := range res.Keys {
		if res.Keys[i].Name == "gone" {
			gone = &res.Keys[i]
		}
	}
	require.NotNil(t, gone)
	assert.Equal(t, int64(-2), gone.TTL)
	assert.Nil(t, gone.Size)
}

func TestStandaloneTypeFilter(t *testing.T) {
	keys := stringKeys("k", 3)
	keys["l1"] = sourcetest.Key{Type: "list", TTL: -1, Size: sourcetest.Size(10), Length: 1}
	keys["l2"] = sourcetest.Key{Type: "list", TTL: -1, Size: sourcetest.Size(10), Length: 1}
	exec := sourcetest.NewStandalone(keys)
	strategy := NewStandaloneStrategy(nil, nil, nil)

	results, err := strategy.GetKeys(context.Background(), exec, Options{
		Filter: models.ScanFilter{Match: "*", Count: 100, Type: "list"},
	})
	require.NoError(t, err)
	require.Len(t, results[0].Keys, 2)
	for _, k := range results[0].Keys {
		assert.Equal(t, "list", k.Type)
	}
}

func TestStandaloneExactMatch(t *testing.T) {
	exec := sourcetest.NewStandalone(stringKeys("k", 5))
	strategy := NewStandaloneStrategy(nil, nil, nil)

	results, err := strategy.GetKeys(context.Background(), exec, Options{
		Filter: models.ScanFilter{Match: "k:002", Count: 100},
	})
	require.NoError(t, err)
	require.Len(t, results[0].Keys, 1)
	assert.Equal(t, "k:002", results[0].Keys[0].Name)
	assert.Equal(t, int64(1), results[0].Progress.Scanned)
	assert.Equal(t, int64(0), exec.NodeList[0].ScanCalls.Load())

	results, err = strategy.GetKeys(context.Background(), exec, Options{
		Filter: models.ScanFilter{Match: "missing", Count: 100},
	})
	require.NoError(t, err)
	assert.Empty(t, results[0].Keys)
	assert.Equal(t, int64(0), results[0].Progress.Scanned)

	results, err = strategy.GetKeys(context.Background(), exec, Options{
		Filter: models.ScanFilter{Match: "k:002", Count: 100, Type: "hash"},
	})
	require.NoError(t, err)
	assert.Empty(t, results[0].Keys)
}

func TestStandaloneScanErrorPropagates(t *testing.T) {
	exec := sourcetest.NewStandalone(stringKeys("k", 5))
	scanErr := errors.New("NOPERM this user has no permissions to run the 'scan' command")
	exec.NodeList[0].ScanErr = scanErr
	strategy := NewStandaloneStrategy(nil, nil, nil)

	results, err := strategy.GetKeys(context.Background(), exec, Options{
		Filter: models.ScanFilter{Match: "*", Count: 10},
	})
	assert.ErrorIs(t, err, scanErr)
	require.Len(t, results, 1)
	assert.Equal(t, int64(5), results[0].Progress.Total)
}

func TestStandalonePipelineErrorPropagates(t *testing.T) {
	exec := sourcetest.NewStandalone(stringKeys("k", 5))
	connErr := errors.New("i/o timeout")
	exec.NodeList[0].PipelineErr = connErr
	strategy := NewStandaloneStrategy(nil, nil, nil)

	_, err := strategy.GetKeys(context.Background(), exec, Options{
		Filter: models.ScanFilter{Match: "*", Count: 10},
	})
	assert.ErrorIs(t, err, connErr)
}

func TestStandaloneCancellationKeepsPartialProgress(t *testing.T) {
	exec := sourcetest.NewStandalone(stringKeys("k", 20))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	exec.NodeList[0].BeforeScan = func(call int64) {
		if call == 2 {
			cancel()
		}
	}
	strategy := NewStandaloneStrategy(nil, nil, nil)

	results, err := strategy.GetKeys(ctx, exec, Options{
		Filter: models.ScanFilter{Match: "*", Count: 5},
	})
	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, results, 1)

	progress := results[0].Progress
	assert.Equal(t, int64(5), progress.Scanned)
	assert.LessOrEqual(t, progress.Processed, progress.Scanned)
	assert.Equal(t, int64(2), exec.NodeList[0].ScanCalls.Load())
}

func TestGetKeysInfoResolvesTypes(t *testing.T) {
	node := sourcetest.NewNode("n1", map[string]sourcetest.Key{
		"a": {Type: "set", TTL: -1, Size: sourcetest.Size(10), Length: 2},
		"b": {Type: "zset", TTL: 60, Size: sourcetest.Size(20), Length: 3},
	})
	strategy := NewStandaloneStrategy(nil, nil, nil)

	descs, err := strategy.GetKeysInfo(context.Background(), node, []string{"a", "b", "c"}, "")
	require.NoError(t, err)
	require.Len(t, descs, 3)
	assert.Equal(t, "set", descs[0].Type)
	assert.Equal(t, "zset", descs[1].Type)
	assert.Equal(t, int64(60), descs[1].TTL)
	assert.Equal(t, "none", descs[2].Type)
	assert.Equal(t, int64(-2), descs[2].TTL)

	descs, err = strategy.GetKeysInfo(context.Background(), node, nil, "")
	require.NoError(t, err)
	assert.Empty(t, descs)
}
