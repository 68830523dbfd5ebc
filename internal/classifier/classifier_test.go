package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetdesk/backend/internal/patterns"
)

func TestClassify(t *testing.T) {
	c := New(nil, nil)
	tests := []struct {
		name     string
		input    any
		severity Severity
	}{
		{"empty", "", Safe},
		{"nil", nil, Safe},
		{"name", "O'Brien", Safe},
		{"number", 42, Safe},
		{"float", 12.5, Safe},
		{"script", "<script>alert(1)</script>John", Dangerous},
		{"encoded script", "&lt;script&gt;alert(1)&lt;/script&gt;", Dangerous},
		{"sql tautology", "' OR 1=1 --", Dangerous},
		{"stacked query", "x'; DROP TABLE drivers;--", Dangerous},
		{"bare bracket", "a < b", Suspicious},
		{"global object", "see window.name", Suspicious},
		{"call", "alert (1)", Suspicious},
		{"backtick", "`quoted`", Suspicious},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.severity, c.Classify(tt.input, Options{}).Severity)
		})
	}
}

func TestClassify_DangerousReportsMaliciousCode(t *testing.T) {
	c := New(nil, nil)
	r := c.Classify("' OR 1=1 --", Options{})
	require.Equal(t, Dangerous, r.Severity)
	assert.Contains(t, r.Errors, MsgMaliciousCode)
	assert.Contains(t, r.Categories(), patterns.CategorySQL)
	assert.Equal(t, "--", r.Sanitized)
}

func TestClassify_StrictMode(t *testing.T) {
	c := New(nil, nil)

	lax := c.Classify("a < b", Options{})
	assert.Empty(t, lax.Errors)
	assert.Equal(t, []string{MsgSuspiciousContent}, lax.Warnings)

	strict := c.Classify("a < b", Options{StrictMode: true})
	assert.Equal(t, []string{MsgSuspiciousContent}, strict.Errors)
	assert.Equal(t, "a &lt; b", strict.Sanitized)
}

func TestClassify_MonotonicSeverity(t *testing.T) {
	c := New(nil, nil)
	safe := []string{"", "John", "abc", "x1", "12", "Toyota Corolla 2019", "Fuel 45.30", "O'Brien", "O'Brien "}
	payloads := []string{
		"<script>alert(1)</script>",
		"' OR 1=1 --",
		"javascript:alert(1)",
		"javascript:void(0)",
		"vbscript:msgbox(1)",
		"data:text/html;base64,x",
		"DROP TABLE users",
		"exec xp_cmdshell",
		"UNION SELECT password",
		"INSERT INTO users",
		"DELETE FROM vehicles",
		"onerror=alert(1)",
		"; rm -rf /",
		"../../etc/passwd",
		"{{7*7}}",
		`<iframe src="x">`,
	}
	for _, s := range safe {
		for _, p := range payloads {
			assert.NotEqual(t, Safe, c.Classify(s+p, Options{}).Severity, "%q", s+p)
		}
	}
}

func TestClassifyObject(t *testing.T) {
	c := New(nil, nil)
	data := map[string]any{
		"plate": "AB-123-CD",
		"notes": "a < b",
		"driver": map[string]any{
			"name": "<script>x</script>",
		},
		"tags":  []any{"ok", "' OR 1=1"},
		"year":  2020.0,
		"empty": nil,
	}
	res := c.ClassifyObject(data, Options{})
	assert.Equal(t, Dangerous, res.Severity)
	assert.Equal(t, []string{"driver.name", "tags[1]"}, res.Paths(Dangerous))
	assert.Equal(t, []string{"driver.name", "notes", "tags[1]"}, res.Paths(Suspicious))
	assert.Equal(t, Safe, res.Fields["year"].Severity)
	_, hasEmpty := res.Fields["empty"]
	assert.False(t, hasEmpty)
}

func TestClassifyForm(t *testing.T) {
	c := New(nil, nil)
	res := c.ClassifyForm(map[string]string{"name": "John", "email": "john@example.com"}, Options{})
	assert.Equal(t, Safe, res.Severity)
	assert.Len(t, res.Fields, 2)
}

func TestSeverity_String(t *testing.T) {
	assert.Equal(t, "safe", Safe.String())
	assert.Equal(t, "suspicious", Suspicious.String())
	assert.Equal(t, "dangerous", Dangerous.String())
	b, err := Dangerous.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "dangerous", string(b))
	assert.Equal(t, Dangerous, Max(Suspicious, Dangerous))
}
