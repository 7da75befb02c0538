package tables

import (
	"sort"
	"strings"
	"time"
)

const (
	// channelGroupSeparator joins the per-database groups of a cache channel.
	channelGroupSeparator = ";;"
	// channelTableSeparator joins the tables inside one group.
	channelTableSeparator = ","
)

// Metadata is the immutable set of tables a query depends on, in the order
// introspection first saw them.
//
// Metadata does not deduplicate. Callers merging several statements must
// drop repeated identities before calling New.
type Metadata struct {
	tables []Table
}

// New creates a Metadata over a copy of tables.
func New(tables []Table) *Metadata {
	cp := make([]Table, len(tables))
	copy(cp, tables)
	return &Metadata{tables: cp}
}

// Len returns the number of tables.
func (m *Metadata) Len() int {
	return len(m.tables)
}

// Tables returns the tables surviving the requested filters, in order.
// Tables without a timestamp are dropped first when skipNotUpdatedAt is set,
// then analysis tables when skipAnalysisCached is set.
func (m *Metadata) Tables(skipNotUpdatedAt, skipAnalysisCached bool) []Table {
	result := make([]Table, 0, len(m.tables))
	for _, t := range m.tables {
		if skipNotUpdatedAt && !t.HasUpdatedAt() {
			continue
		}
		if skipAnalysisCached && IsAnalysisTable(t.TableName) {
			continue
		}
		result = append(result, t)
	}
	return result
}

// Key returns the sorted surrogate keys of the tables. Analysis tables are
// not filtered here. Duplicate keys are kept.
func (m *Metadata) Key(skipNotUpdatedAt bool) []string {
	filtered := m.Tables(skipNotUpdatedAt, false)
	keys := make([]string, 0, len(filtered))
	for _, t := range filtered {
		keys = append(keys, SurrogateKey(t))
	}
	sort.Strings(keys)
	return keys
}

// SurrogateKeyHeader returns the keys joined by spaces, the format of a
// Surrogate-Key response header.
func (m *Metadata) SurrogateKeyHeader(skipNotUpdatedAt bool) string {
	return strings.Join(m.Key(skipNotUpdatedAt), " ")
}

// CacheChannel returns the tables grouped by database, e.g.
//
//	db1:public.t1,public.t2;;db2:public.t3
//
// Databases appear in first-seen order and tables keep their order inside
// each group. The result is empty when no table survives the filter.
func (m *Metadata) CacheChannel(skipNotUpdatedAt bool) string {
	var dbOrder []string
	groups := make(map[string][]string)
	for _, t := range m.Tables(skipNotUpdatedAt, false) {
		if _, seen := groups[t.DBName]; !seen {
			dbOrder = append(dbOrder, t.DBName)
		}
		groups[t.DBName] = append(groups[t.DBName], t.QualifiedName())
	}

	rendered := make([]string, 0, len(dbOrder))
	for _, db := range dbOrder {
		rendered = append(rendered, db+":"+strings.Join(groups[db], channelTableSeparator))
	}
	return strings.Join(rendered, channelGroupSeparator)
}

// LastUpdatedAt returns the most recent UpdatedAt across all tables.
// fallback is returned when there are no tables, none has a timestamp, or
// the maximum carries no information (zero time or the Unix epoch).
func (m *Metadata) LastUpdatedAt(fallback time.Time) time.Time {
	var latest time.Time
	for _, t := range m.tables {
		if t.UpdatedAt != nil && t.UpdatedAt.After(latest) {
			latest = *t.UpdatedAt
		}
	}
	if latest.IsZero() || latest.UnixMilli() == 0 {
		return fallback
	}
	return latest
}
