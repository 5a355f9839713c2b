package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aitoooooo/redisx/pkg/models"
	"github.com/aitoooooo/redisx/pkg/util"
)

func printAnalysis(w io.Writer, a *models.DatabaseAnalysis) {
	fmt.Fprintf(w, "Analysis: %s\n", a.ID)
	fmt.Fprintf(w, "Database: %s\n", a.DatabaseID)
	fmt.Fprintf(w, "Created:  %s\n", a.CreatedAt.Local().Format(time.DateTime))

	f := a.Filter
	typ := f.Type
	if typ == "" {
		typ = "all"
	}
	limit := "unlimited"
	if f.KeysLimit > 0 {
		limit = fmt.Sprintf("%d per node", f.KeysLimit)
	}
	fmt.Fprintf(w, "Filter:   match=%s type=%s count=%d keys-limit=%s\n", f.Match, typ, f.Count, limit)

	p := a.Progress
	fmt.Fprintf(w, "Progress: scanned %d of %d keys, processed %d\n", p.Scanned, p.Total, p.Processed)
	if a.Partial {
		fmt.Fprintln(w, "Partial:  yes, the report covers only part of the keyspace")
	}
	for _, ne := range a.NodeErrors {
		fmt.Fprintf(w, "  node %s failed after %d keys: %s\n", ne.Node, ne.Progress.Scanned, ne.Error)
	}

	fmt.Fprintf(w, "\nTotal Keys: %d\n", a.TotalKeys.Total)
	fmt.Fprintf(w, "Total Memory: %s\n", formatBytes(a.TotalMemory.Total))

	fmt.Fprintln(w, "\n=== Keys by Type ===")
	printDist(w, a.TotalKeys.Types, func(v int64) string { return fmt.Sprint(v) })

	fmt.Fprintln(w, "\n=== Memory by Type ===")
	printDist(w, a.TotalMemory.Types, formatBytes)

	fmt.Fprintf(w, "\n=== Top Namespaces by Keys (delimiter %q) ===\n", a.Delimiter)
	printNamespaces(w, a.TopKeysNsp)

	fmt.Fprintln(w, "\n=== Top Namespaces by Memory ===")
	printNamespaces(w, a.TopMemoryNsp)

	fmt.Fprintln(w, "\n=== Top Keys by Memory ===")
	printKeys(w, a.TopKeysMemory)

	fmt.Fprintln(w, "\n=== Top Keys by Length ===")
	printKeys(w, a.TopKeysLength)

	fmt.Fprintln(w, "\n=== Expiration ===")
	for _, g := range a.ExpirationGroups {
		fmt.Fprintf(w, "  %-10s %d keys, %s\n", g.Label+":", g.Keys, formatBytes(g.Memory))
	}
}

// printDist 输出按值降序排好的分布
func printDist(w io.Writer, items []models.SimpleTypeSummary, format func(int64) string) {
	if len(items) == 0 {
		fmt.Fprintln(w, "  (none)")
		return
	}
	for _, item := range items {
		fmt.Fprintf(w, "  %s: %s\n", item.Type, format(item.Total))
	}
}

func printNamespaces(w io.Writer, items []models.NspSummary) {
	if len(items) == 0 {
		fmt.Fprintln(w, "  (none)")
		return
	}
	for _, nsp := range items {
		types := make([]string, 0, len(nsp.Types))
		for _, t := range nsp.Types {
			types = append(types, fmt.Sprintf("%s=%d", t.Type, t.Keys))
		}
		fmt.Fprintf(w, "  %s: %d keys, %s [%s]\n", nsp.Nsp, nsp.Keys, formatBytes(nsp.Memory), strings.Join(types, " "))
	}
}

func printKeys(w io.Writer, keys []models.KeyDescriptor) {
	if len(keys) == 0 {
		fmt.Fprintln(w, "  (none)")
		return
	}
	for _, k := range keys {
		size, length, unit := "-", "-", "length"
		if k.Size != nil {
			size = formatBytes(int64(*k.Size))
		}
		if k.Length != nil {
			length = fmt.Sprint(*k.Length)
		}
		if util.IsCollectionType(util.DataType(k.Type)) {
			unit = "items"
		}
		fmt.Fprintf(w, "  %s (%s): memory %s, %s %s, ttl %s\n", k.Name, k.Type, size, unit, length, formatTTL(k.TTL))
	}
}

func formatTTL(ttl int64) string {
	switch {
	case ttl == -1:
		return "none"
	case ttl < 0:
		return "unknown"
	default:
		return (time.Duration(ttl) * time.Second).String()
	}
}

func printList(w io.Writer, databaseID string, list []models.ShortDatabaseAnalysis) {
	if len(list) == 0 {
		fmt.Fprintf(w, "No analyses for %s\n", databaseID)
		return
	}
	fmt.Fprintf(w, "Analyses for %s:\n", databaseID)
	for _, item := range list {
		fmt.Fprintf(w, "  %s  %s\n", item.ID, item.CreatedAt.Local().Format(time.DateTime))
	}
}
