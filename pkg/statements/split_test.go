package statements

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "standard query",
			input:    "SELECT * FROM geometry_columns;",
			expected: []string{"SELECT * FROM geometry_columns"},
		},
		{
			name:     "without trailing semicolon",
			input:    "SELECT 1",
			expected: []string{"SELECT 1"},
		},
		{
			name:     "leading semicolons",
			input:    ";;;SELECT 1",
			expected: []string{"SELECT 1"},
		},
		{
			name:  "multiple statements",
			input: "\nSELECT * FROM geometry_columns;\nSELECT 1;\nSELECT 2 = 3;\n",
			expected: []string{
				"SELECT * FROM geometry_columns",
				"SELECT 1",
				"SELECT 2 = 3",
			},
		},
		{
			name:     "semicolon inside double-quoted identifier",
			input:    `CREATE table "my't;le" ("$" int); SELECT 1`,
			expected: []string{`CREATE table "my't;le" ("$" int)`, "SELECT 1"},
		},
		{
			name:     "semicolon inside dollar quote",
			input:    "SELECT $tag$ a; b $tag$; SELECT 2",
			expected: []string{"SELECT $tag$ a; b $tag$", "SELECT 2"},
		},
		{
			name: "quoted commands",
			input: `
CREATE table "my'tab;le" ("$" int);
SELECT '1','$$', '$hello$', "$" FROM "my'tab;le";
CREATE function "hi'there" ("'" text default '$') returns void as $h$ declare a int; b text; begin b='hi'; return; end; $h$ language 'plpgsql';
SELECT 5;
`,
			expected: []string{
				`CREATE table "my'tab;le" ("$" int)`,
				`SELECT '1','$$', '$hello$', "$" FROM "my'tab;le"`,
				`CREATE function "hi'there" ("'" text default '$') returns void as $h$ declare a int; b text; begin b='hi'; return; end; $h$ language 'plpgsql'`,
				`SELECT 5`,
			},
		},
		{
			name:     "doubled quotes inside literals and identifiers",
			input:    `INSER INTO "my''""t" values ('''','""'';;');` + "\nSELECT 2;",
			expected: []string{`INSER INTO "my''""t" values ('''','""'';;')`, "SELECT 2"},
		},
		{
			name:  "semicolon inside dollar tag is not a tag",
			input: `INSER INTO "my''""t" values ('''','""'';;');` + "\nSELECT $qu;oted$ hi $qu;oted$;",
			expected: []string{
				`INSER INTO "my''""t" values ('''','""'';;')`,
				"SELECT $qu",
				"oted$ hi $qu",
				"oted$",
			},
		},
		{
			name:     "line breaks mid statement",
			input:    "\nSELECT\n1 ; SELECT\n2\n",
			expected: []string{"SELECT\n1", "SELECT\n2"},
		},
		{
			name:     "dollar quoted body spanning lines",
			input:    "\nSELECT $quoted$ hi\n$quoted$;\n",
			expected: []string{"SELECT $quoted$ hi\n$quoted$"},
		},
		{
			name:     "empty dollar tag",
			input:    "DO $$ BEGIN PERFORM 1; END $$; SELECT 3",
			expected: []string{"DO $$ BEGIN PERFORM 1; END $$", "SELECT 3"},
		},
		{
			name:     "different tag does not close dollar quote",
			input:    "SELECT $a$ x $b$ y; $a$; SELECT 4",
			expected: []string{"SELECT $a$ x $b$ y; $a$", "SELECT 4"},
		},
		{
			name:     "positional parameter is not a dollar quote",
			input:    "SELECT $1; SELECT $2",
			expected: []string{"SELECT $1", "SELECT $2"},
		},
		{
			name:     "empty statements dropped",
			input:    "SELECT 1;;  ;\n;SELECT 2;;",
			expected: []string{"SELECT 1", "SELECT 2"},
		},
		{
			name:     "empty input",
			input:    "",
			expected: nil,
		},
		{
			name:     "only separators and whitespace",
			input:    " ; ;\n\t;",
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Split(tt.input))
		})
	}
}

func TestSplit_PlainTextMatchesNaiveSplit(t *testing.T) {
	inputs := []string{
		"SELECT 1",
		"SELECT 1; SELECT 2",
		";;SELECT a FROM b;\n\nUPDATE c SET d = 1;;",
		"  \n  ",
		"TABLE t1; TABLE t1;",
		"select *\nfrom x\nwhere y > 2;\nselect 1",
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			var expected []string
			for _, part := range strings.Split(input, ";") {
				if trimmed := strings.TrimSpace(part); trimmed != "" {
					expected = append(expected, trimmed)
				}
			}
			assert.Equal(t, expected, Split(input))
		})
	}
}

func TestSplit_Idempotent(t *testing.T) {
	input := `
CREATE table "my'tab;le" ("$" int);
SELECT '1','$$', '$hello$', "$" FROM "my'tab;le";
CREATE function "hi'there" ("'" text default '$') returns void as $h$ declare a int; b text; begin b='hi'; return; end; $h$ language 'plpgsql';
INSER INTO "my''""t" values ('''','""'';;');
SELECT $quoted$ hi
$quoted$;
SELECT 5
`
	stmts := Split(input)
	require.Len(t, stmts, 6)

	for _, stmt := range stmts {
		assert.Equal(t, []string{stmt}, Split(stmt+";"))
	}
}

func TestSplit_MalformedInputTerminates(t *testing.T) {
	inputs := []string{
		"\n\n    /a\n    $b$\n    $c$d\n    ;\n",
		"SELECT 'unterminated; SELECT 2",
		`SELECT "unterminated; SELECT 2`,
		"SELECT $tag$ never closed; SELECT 2",
		"$",
		"$$",
		"'",
		`"`,
		"$a",
		strings.Repeat("$x", 10000),
	}

	for _, input := range inputs {
		assert.NotPanics(t, func() {
			_ = Split(input)
		})
	}
}

func TestSplit_UnterminatedRegionKeepsContent(t *testing.T) {
	// Only termination is guaranteed; the remaining text ends up in one statement.
	stmts := Split("SELECT 1; SELECT 'abc; def")
	assert.Equal(t, []string{"SELECT 1", "SELECT 'abc; def"}, stmts)
}

func TestCount(t *testing.T) {
	assert.Equal(t, 0, Count(""))
	assert.Equal(t, 2, Count("TABLE t1; TABLE t1;"))
	assert.Equal(t, 1, Count("SELECT ';'"))
}

func TestSplitter_States(t *testing.T) {
	tests := []struct {
		name      string
		start     state
		delim     string
		input     string
		wantState state
		wantBuf   string
		wantPos   int
	}{
		{"normal opens single quote", stateNormal, "", "'x", stateSingleQuote, "'", 1},
		{"normal opens double quote", stateNormal, "", `"x`, stateDoubleQuote, `"`, 1},
		{"normal opens dollar quote", stateNormal, "", "$fn$ body", stateDollarQuote, "$fn$", 4},
		{"normal keeps lone dollar", stateNormal, "", "$ 1", stateNormal, "$", 1},
		{"normal keeps newline", stateNormal, "", "\nx", stateNormal, "\n", 1},
		{"single quote escape", stateSingleQuote, "", "''x", stateSingleQuote, "''", 2},
		{"single quote closes", stateSingleQuote, "", "' x", stateNormal, "'", 1},
		{"single quote keeps semicolon", stateSingleQuote, "", ";", stateSingleQuote, ";", 1},
		{"single quote keeps double quote", stateSingleQuote, "", `"`, stateSingleQuote, `"`, 1},
		{"double quote escape", stateDoubleQuote, "", `""x`, stateDoubleQuote, `""`, 2},
		{"double quote closes", stateDoubleQuote, "", `" x`, stateNormal, `"`, 1},
		{"double quote keeps single quote", stateDoubleQuote, "", "'", stateDoubleQuote, "'", 1},
		{"dollar quote closes on delimiter", stateDollarQuote, "$fn$", "$fn$;", stateNormal, "$fn$", 4},
		{"dollar quote ignores other tag", stateDollarQuote, "$fn$", "$x$", stateDollarQuote, "$", 1},
		{"dollar quote keeps quotes", stateDollarQuote, "$$", "'", stateDollarQuote, "'", 1},
		{"dollar quote keeps semicolon", stateDollarQuote, "$$", ";", stateDollarQuote, ";", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &splitter{input: tt.input, state: tt.start, delim: tt.delim}
			s.step()

			assert.Equal(t, tt.wantState, s.state, "state is %s", s.state)
			assert.Equal(t, tt.wantBuf, s.buf.String())
			assert.Equal(t, tt.wantPos, s.pos)
			assert.Empty(t, s.out)
		})
	}
}

func TestSplitter_SemicolonFlushesInNormalState(t *testing.T) {
	s := &splitter{input: ";"}
	s.buf.WriteString("  SELECT 1 \n")
	s.step()

	assert.Equal(t, []string{"SELECT 1"}, s.out)
	assert.Equal(t, "", s.buf.String())
	assert.Equal(t, 1, s.pos)
}

func TestDollarDelimiter(t *testing.T) {
	tests := []struct {
		input string
		want  string
		ok    bool
	}{
		{"$$", "$$", true},
		{"$tag$ rest", "$tag$", true},
		{"$t_1$", "$t_1$", true},
		{"$qu;oted$", "", false},
		{"$1", "", false},
		{"$ $", "", false},
		{"$", "", false},
		{"x$$", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := dollarDelimiter(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "normal", stateNormal.String())
	assert.Equal(t, "single-quote", stateSingleQuote.String())
	assert.Equal(t, "double-quote", stateDoubleQuote.String())
	assert.Equal(t, "dollar-quote", stateDollarQuote.String())
	assert.Equal(t, "unknown", state(42).String())
}
