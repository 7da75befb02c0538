package tables

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(ms int64) *time.Time {
	t := time.UnixMilli(ms)
	return &t
}

func tbl(db, schema, name string) Table {
	return Table{DBName: db, SchemaName: schema, TableName: name}
}

func updated(t Table, ms int64) Table {
	t.UpdatedAt = at(ms)
	return t
}

const analysisName = "analysis_0123456789_0123456789abcdef0123456789abcdef01234567"

func TestMetadata_CacheChannel(t *testing.T) {
	tests := []struct {
		name     string
		tables   []Table
		expected string
	}{
		{
			name: "groups tables by database",
			tables: []Table{
				tbl("db1", "public", "tableone"),
				tbl("db1", "public", "tabletwo"),
			},
			expected: "db1:public.tableone,public.tabletwo",
		},
		{
			name: "tables from different databases",
			tables: []Table{
				tbl("db1", "public", "tableone"),
				tbl("db1", "public", "tabletwo"),
				tbl("db2", "public", "tablethree"),
			},
			expected: "db1:public.tableone,public.tabletwo;;db2:public.tablethree",
		},
		{
			name: "databases keep first-seen order",
			tables: []Table{
				tbl("zeta", "public", "a"),
				tbl("alpha", "public", "b"),
				tbl("zeta", "other", "c"),
			},
			expected: "zeta:public.a,other.c;;alpha:public.b",
		},
		{
			name: "quoted identifiers are kept",
			tables: []Table{
				tbl("db", "public", "t1"),
				tbl("db", "public", `"t with space"`),
			},
			expected: `db:public.t1,public."t with space"`,
		},
		{
			name:     "no tables",
			tables:   nil,
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, New(tt.tables).CacheChannel(false))
		})
	}
}

func TestMetadata_CacheChannel_SkipNotUpdatedAt(t *testing.T) {
	now := time.Now().UnixMilli()

	tests := []struct {
		name     string
		tables   []Table
		expected string
	}{
		{
			name: "no timestamps",
			tables: []Table{
				tbl("db1", "public", "tableone"),
				tbl("db1", "public", "tabletwo"),
			},
			expected: "",
		},
		{
			name: "one timestamp",
			tables: []Table{
				updated(tbl("db1", "public", "tableone"), now),
				tbl("db1", "public", "tabletwo"),
			},
			expected: "db1:public.tableone",
		},
		{
			name: "all timestamps",
			tables: []Table{
				updated(tbl("db1", "public", "tableone"), now),
				updated(tbl("db1", "public", "tabletwo"), now),
			},
			expected: "db1:public.tableone,public.tabletwo",
		},
		{
			name: "across databases",
			tables: []Table{
				updated(tbl("db1", "public", "tableone"), now),
				tbl("db1", "public", "tabletwo"),
				updated(tbl("db2", "public", "tablethree"), now),
			},
			expected: "db1:public.tableone;;db2:public.tablethree",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, New(tt.tables).CacheChannel(true))
		})
	}
}

func TestMetadata_CacheChannel_KeepsAnalysisTables(t *testing.T) {
	md := New([]Table{tbl("db", "public", analysisName)})
	assert.Equal(t, "db:public."+analysisName, md.CacheChannel(false))
}

func TestMetadata_Key(t *testing.T) {
	tests := []struct {
		name     string
		tables   []Table
		expected []string
	}{
		{
			name:     "plain table",
			tables:   []Table{updated(tbl("db1", "public", "tableone"), 12345678)},
			expected: []string{"t:8ny9He"},
		},
		{
			name:     "quoted schema is hashed verbatim",
			tables:   []Table{updated(tbl("db1", `"sch-ema"`, "tableone"), 12345678)},
			expected: []string{"t:oVg75u"},
		},
		{
			name: "sorted ascending",
			tables: []Table{
				tbl("db1", "public", "tableone"),
				tbl("db1", "public", "tabletwo"),
				tbl("db2", "public", "tablethree"),
			},
			expected: []string{"t:8ny9He", "t:Oh18ac", "t:v5EDFF"},
		},
		{
			name:     "standard base64 alphabet",
			tables:   []Table{tbl("otherdb", "public", "t3")},
			expected: []string{"t:taJf+Q"},
		},
		{
			name: "duplicates are not removed",
			tables: []Table{
				tbl("db1", "public", "t1"),
				tbl("db1", "public", "t1"),
			},
			expected: []string{"t:Yu3UCL", "t:Yu3UCL"},
		},
		{
			name:     "analysis tables are keyed",
			tables:   []Table{tbl("db1", "public", analysisName)},
			expected: []string{SurrogateKey(tbl("db1", "public", analysisName))},
		},
		{
			name:     "no tables",
			tables:   nil,
			expected: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, New(tt.tables).Key(false))
		})
	}
}

func TestMetadata_Key_Length(t *testing.T) {
	md := New([]Table{
		tbl("db1", "public", "tableone"),
		tbl("db1", "public", "tabletwo"),
	})

	keys := md.Key(false)
	require.Len(t, keys, 2)
	for _, k := range keys {
		assert.Len(t, k, 8)
		assert.True(t, strings.HasPrefix(k, "t:"))
	}
}

func TestMetadata_Key_SkipNotUpdatedAt(t *testing.T) {
	now := time.Now().UnixMilli()

	tests := []struct {
		name           string
		tables         []Table
		expectedLength int
	}{
		{
			name:           "no timestamps",
			tables:         []Table{tbl("db1", "public", "tableone"), tbl("db1", "public", "tabletwo")},
			expectedLength: 0,
		},
		{
			name:           "one timestamp",
			tables:         []Table{updated(tbl("db1", "public", "tableone"), now), tbl("db1", "public", "tabletwo")},
			expectedLength: 1,
		},
		{
			name: "all timestamps",
			tables: []Table{
				updated(tbl("db1", "public", "tableone"), now),
				updated(tbl("db1", "public", "tabletwo"), now),
			},
			expectedLength: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, New(tt.tables).Key(true), tt.expectedLength)
		})
	}
}

func TestMetadata_SurrogateKeyHeader(t *testing.T) {
	md := New([]Table{
		tbl("db1", "public", "tabletwo"),
		tbl("db1", "public", "tableone"),
	})
	assert.Equal(t, "t:8ny9He t:v5EDFF", md.SurrogateKeyHeader(false))
	assert.Equal(t, "", md.SurrogateKeyHeader(true))
}

func TestMetadata_LastUpdatedAt(t *testing.T) {
	fallback := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		tables   []Table
		expected time.Time
	}{
		{
			name: "latest of the known dates",
			tables: []Table{
				updated(tbl("db1", "public", "tableone"), 12345678),
				updated(tbl("db1", "public", "tabletwo"), 1234567891),
				tbl("db2", "public", "tablethree"),
			},
			expected: time.UnixMilli(1234567891),
		},
		{
			name:     "unknown date",
			tables:   []Table{tbl("db2", "public", "tablethree")},
			expected: fallback,
		},
		{
			name:     "no tables",
			tables:   nil,
			expected: fallback,
		},
		{
			name:     "epoch carries no information",
			tables:   []Table{updated(tbl("db1", "public", "t1"), 0)},
			expected: fallback,
		},
		{
			name: "zero time carries no information",
			tables: []Table{
				{DBName: "db1", SchemaName: "public", TableName: "t1", UpdatedAt: &time.Time{}},
			},
			expected: fallback,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := New(tt.tables).LastUpdatedAt(fallback)
			assert.True(t, tt.expected.Equal(got), "expected %v, got %v", tt.expected, got)
		})
	}
}

func TestMetadata_LastUpdatedAt_ZeroFallback(t *testing.T) {
	got := New(nil).LastUpdatedAt(time.Time{})
	assert.True(t, got.IsZero())

	latest := New([]Table{updated(tbl("db", "public", "t"), 1234567891)}).LastUpdatedAt(time.Time{})
	assert.Equal(t, int64(1234567891), latest.UnixMilli())
}

func TestMetadata_Tables(t *testing.T) {
	plain := tbl("db", "public", "plain")
	fresh := updated(tbl("db", "public", "fresh"), 1000)
	analysis := tbl("db", "public", analysisName)
	freshAnalysis := updated(tbl("db", "public", analysisName), 1000)

	md := New([]Table{plain, analysis, fresh, freshAnalysis})

	tests := []struct {
		name             string
		skipNotUpdatedAt bool
		skipAnalysis     bool
		expected         []Table
	}{
		{"no filters", false, false, []Table{plain, analysis, fresh, freshAnalysis}},
		{"skip not updated", true, false, []Table{fresh, freshAnalysis}},
		{"skip analysis", false, true, []Table{plain, fresh}},
		{"both filters", true, true, []Table{fresh}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, md.Tables(tt.skipNotUpdatedAt, tt.skipAnalysis))
		})
	}
}

func TestIsAnalysisTable(t *testing.T) {
	tests := []struct {
		name     string
		expected bool
	}{
		{analysisName, true},
		{"analysis_0123456789_0123456789abcdef0123456789abcdef0123456", false},   // 39 hex
		{"analysis_0123456789_0123456789abcdef0123456789abcdef012345678", false}, // 41 hex
		{"analysis_ABCDEF6789_0123456789abcdef0123456789abcdef01234567", false},  // uppercase
		{"analysis_012345678g_0123456789abcdef0123456789abcdef01234567", false},  // non-hex
		{"xanalysis_0123456789_0123456789abcdef0123456789abcdef01234567", false},
		{"analysis", false},
		{"tableone", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsAnalysisTable(tt.name))
		})
	}
}

func TestNew_CopiesInput(t *testing.T) {
	input := []Table{tbl("db", "public", "a")}
	md := New(input)
	input[0].TableName = "b"

	assert.Equal(t, "db:public.a", md.CacheChannel(false))
	assert.Equal(t, 1, md.Len())
}

func TestMetadata_ConcurrentReads(t *testing.T) {
	md := New([]Table{
		updated(tbl("db1", "public", "tableone"), 1000),
		tbl("db2", "public", "tablethree"),
	})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, "db1:public.tableone;;db2:public.tablethree", md.CacheChannel(false))
			assert.Len(t, md.Key(true), 1)
		}()
	}
	wg.Wait()
}

func TestTable_Identity(t *testing.T) {
	a := updated(tbl("db", "public", "t"), 1)
	b := tbl("db", "public", "t")

	assert.Equal(t, a.Identity(), b.Identity())
	assert.NotEqual(t, a.Identity(), tbl("db", `"public"`, "t").Identity())
	assert.Equal(t, "public.t", a.QualifiedName())
}
