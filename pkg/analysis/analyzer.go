package analysis

import (
	"math"
	"sort"

	"github.com/aitoooooo/redisx/pkg/models"
	"github.com/aitoooooo/redisx/pkg/util"
)

const (
	DefaultDelimiter = ":"
	DefaultTop       = 15
)

// 过期时间分组，Threshold 为秒，key 落入第一个 TTL < Threshold 的组
var expirationGroups = []models.ExpirationGroup{
	{Label: "No Expiry", Threshold: 0},
	{Label: "<1 hr", Threshold: 3600},
	{Label: "1-4 Hrs", Threshold: 4 * 3600},
	{Label: "4-12 Hrs", Threshold: 12 * 3600},
	{Label: "12-24 Hrs", Threshold: 24 * 3600},
	{Label: "1-7 Days", Threshold: 7 * 24 * 3600},
	{Label: ">7 Days", Threshold: 30 * 24 * 3600},
	{Label: ">1 Month", Threshold: math.MaxInt64},
}

// AnalyzeParams 分析参数，Progress 为各节点进度之和
type AnalyzeParams struct {
	DatabaseID string
	Filter     models.ScanFilter
	Delimiter  string
	Progress   models.NodeProgress
	Top        int
}

// Analyzer 把扁平化的 key 列表汇总成分析报告，不做持久化
type Analyzer struct{}

// NewAnalyzer 创建分析器
func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// Analyze 纯函数：相同输入得到相同报告，ID 与 CreatedAt 由调用方填充
// 扫描后已消失的 key 只计入 Progress，不参与任何统计；TTL 未取到的 key 不进入过期分组
func (a *Analyzer) Analyze(params AnalyzeParams, keys []models.KeyDescriptor) *models.DatabaseAnalysis {
	delimiter := params.Delimiter
	if delimiter == "" {
		delimiter = DefaultDelimiter
	}
	top := params.Top
	if top <= 0 {
		top = DefaultTop
	}

	live := make([]models.KeyDescriptor, 0, len(keys))
	for _, k := range keys {
		if k.Vanished || k.Type == string(util.TypeNone) {
			continue
		}
		live = append(live, k)
	}

	totalKeys, totalMemory := summarize(live)
	byKeys, byMemory := namespaces(live, delimiter, top)

	return &models.DatabaseAnalysis{
		DatabaseID:       params.DatabaseID,
		Filter:           params.Filter,
		Delimiter:        delimiter,
		Progress:         params.Progress,
		TotalKeys:        totalKeys,
		TotalMemory:      totalMemory,
		TopKeysNsp:       byKeys,
		TopMemoryNsp:     byMemory,
		TopKeysLength:    topKeys(live, top, func(k models.KeyDescriptor) *uint64 { return k.Length }),
		TopKeysMemory:    topKeys(live, top, func(k models.KeyDescriptor) *uint64 { return k.Size }),
		ExpirationGroups: expiration(live),
	}
}

func summarize(keys []models.KeyDescriptor) (models.SimpleSummary, models.SimpleSummary) {
	counts := make(map[string]int64)
	memory := make(map[string]int64)
	var totalKeys, totalMemory int64
	for _, k := range keys {
		counts[k.Type]++
		totalKeys++
		if k.Size != nil {
			memory[k.Type] += int64(*k.Size)
			totalMemory += int64(*k.Size)
		}
	}
	return models.SimpleSummary{Total: totalKeys, Types: sortedTypes(counts)},
		models.SimpleSummary{Total: totalMemory, Types: sortedTypes(memory)}
}

func sortedTypes(dist map[string]int64) []models.SimpleTypeSummary {
	items := make([]models.SimpleTypeSummary, 0, len(dist))
	for t, v := range dist {
		items = append(items, models.SimpleTypeSummary{Type: t, Total: v})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Total != items[j].Total {
			return items[i].Total > items[j].Total
		}
		return items[i].Type < items[j].Type
	})
	return items
}

func namespaces(keys []models.KeyDescriptor, delimiter string, top int) ([]models.NspSummary, []models.NspSummary) {
	type nspStat struct {
		keys, memory int64
		types        map[string]*models.NspTypeSummary
	}
	stats := make(map[string]*nspStat)
	for _, k := range keys {
		nsp := util.Namespace(k.Name, delimiter)
		if nsp == "" {
			continue
		}
		st, ok := stats[nsp]
		if !ok {
			st = &nspStat{types: make(map[string]*models.NspTypeSummary)}
			stats[nsp] = st
		}
		ts, ok := st.types[k.Type]
		if !ok {
			ts = &models.NspTypeSummary{Type: k.Type}
			st.types[k.Type] = ts
		}
		st.keys++
		ts.Keys++
		if k.Size != nil {
			st.memory += int64(*k.Size)
			ts.Memory += int64(*k.Size)
		}
	}

	all := make([]models.NspSummary, 0, len(stats))
	for nsp, st := range stats {
		summary := models.NspSummary{Nsp: nsp, Keys: st.keys, Memory: st.memory}
		for _, ts := range st.types {
			summary.Types = append(summary.Types, *ts)
		}
		sort.Slice(summary.Types, func(i, j int) bool {
			return summary.Types[i].Type < summary.Types[j].Type
		})
		all = append(all, summary)
	}

	byKeys := append([]models.NspSummary(nil), all...)
	sort.Slice(byKeys, func(i, j int) bool {
		if byKeys[i].Keys != byKeys[j].Keys {
			return byKeys[i].Keys > byKeys[j].Keys
		}
		return byKeys[i].Nsp < byKeys[j].Nsp
	})
	byMemory := append([]models.NspSummary(nil), all...)
	sort.Slice(byMemory, func(i, j int) bool {
		if byMemory[i].Memory != byMemory[j].Memory {
			return byMemory[i].Memory > byMemory[j].Memory
		}
		return byMemory[i].Nsp < byMemory[j].Nsp
	})
	return truncate(byKeys, top), truncate(byMemory, top)
}

// topKeys 按指标降序取前 top 个，指标缺失的 key 不参与排名
func topKeys(keys []models.KeyDescriptor, top int, metric func(models.KeyDescriptor) *uint64) []models.KeyDescriptor {
	ranked := make([]models.KeyDescriptor, 0, len(keys))
	for _, k := range keys {
		if metric(k) != nil {
			ranked = append(ranked, k)
		}
	}
	sort.Slice(ranked, func(i, j int) bool {
		vi, vj := *metric(ranked[i]), *metric(ranked[j])
		if vi != vj {
			return vi > vj
		}
		return ranked[i].Name < ranked[j].Name
	})
	return truncate(ranked, top)
}

func expiration(keys []models.KeyDescriptor) []models.ExpirationGroup {
	groups := append([]models.ExpirationGroup(nil), expirationGroups...)
	for _, k := range keys {
		idx := expirationGroup(k.TTL)
		if idx < 0 {
			continue
		}
		groups[idx].Keys++
		if k.Size != nil {
			groups[idx].Memory += int64(*k.Size)
		}
	}
	return groups
}

// expirationGroup 返回 TTL 所属分组下标，-1 永不过期归入第 0 组
func expirationGroup(ttl int64) int {
	if ttl == -1 {
		return 0
	}
	if ttl < 0 {
		return -1
	}
	for i := 1; i < len(expirationGroups); i++ {
		if ttl < expirationGroups[i].Threshold {
			return i
		}
	}
	return len(expirationGroups) - 1
}

func truncate[T any](items []T, top int) []T {
	if top > 0 && len(items) > top {
		return items[:top]
	}
	return items
}
