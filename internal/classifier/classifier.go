// Package classifier grades untrusted values as safe, suspicious or dangerous.
package classifier

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/fleetdesk/backend/internal/patterns"
	"github.com/fleetdesk/backend/internal/sanitizer"
)

// Severity is the coarse threat grade of a value. Higher is worse.
type Severity int

const (
	Safe Severity = iota
	Suspicious
	Dangerous
)

func (s Severity) String() string {
	switch s {
	case Suspicious:
		return "suspicious"
	case Dangerous:
		return "dangerous"
	default:
		return "safe"
	}
}

// MarshalText renders the severity by name in JSON responses.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Max returns the worse of two severities.
func Max(a, b Severity) Severity {
	if b > a {
		return b
	}
	return a
}

const (
	MsgMaliciousCode     = "malicious code detected"
	MsgSuspiciousContent = "suspicious content detected"
)

// Options tune a classification.
type Options struct {
	// StrictMode turns suspicious content into an error instead of a warning.
	StrictMode bool
}

// Result is the outcome of classifying one value.
type Result struct {
	Severity  Severity
	Errors    []string
	Warnings  []string
	Sanitized string
	Matches   []patterns.Signature
}

// Categories returns the distinct categories of the matched signatures.
func (r Result) Categories() []patterns.Category {
	seen := make(map[patterns.Category]struct{})
	var out []patterns.Category
	for _, m := range r.Matches {
		if _, ok := seen[m.Category]; ok {
			continue
		}
		seen[m.Category] = struct{}{}
		out = append(out, m.Category)
	}
	return out
}

// Classifier combines the signature catalog with the sanitizer.
type Classifier struct {
	catalog   *patterns.Catalog
	sanitizer *sanitizer.Sanitizer
}

// New returns a classifier. Nil arguments fall back to the defaults.
func New(catalog *patterns.Catalog, s *sanitizer.Sanitizer) *Classifier {
	if catalog == nil {
		catalog = patterns.Default()
	}
	if s == nil {
		s = sanitizer.New(catalog)
	}
	return &Classifier{catalog: catalog, sanitizer: s}
}

// Catalog returns the catalog the classifier matches against.
func (c *Classifier) Catalog() *patterns.Catalog { return c.catalog }

// Sanitizer returns the sanitizer used for Result.Sanitized.
func (c *Classifier) Sanitizer() *sanitizer.Sanitizer { return c.sanitizer }

// Classify grades input. It never fails: any value is coerced to a string.
func (c *Classifier) Classify(input any, opts Options) Result {
	raw := ToString(input)
	res := Result{Severity: Safe, Sanitized: c.sanitizer.Sanitize(raw)}
	if raw == "" {
		return res
	}

	decoded := sanitizer.Decode(raw)
	res.Matches = dedupe(c.catalog.Match(raw), c.catalog.Match(decoded))
	if len(res.Matches) > 0 {
		res.Severity = Dangerous
		res.Errors = append(res.Errors, MsgMaliciousCode)
		return res
	}

	if susp := dedupe(c.catalog.MatchSuspicious(raw), c.catalog.MatchSuspicious(decoded)); len(susp) > 0 {
		res.Severity = Suspicious
		res.Matches = susp
		if opts.StrictMode {
			res.Errors = append(res.Errors, MsgSuspiciousContent)
		} else {
			res.Warnings = append(res.Warnings, MsgSuspiciousContent)
		}
	}
	return res
}

func dedupe(lists ...[]patterns.Signature) []patterns.Signature {
	seen := make(map[string]struct{})
	var out []patterns.Signature
	for _, l := range lists {
		for _, s := range l {
			if _, ok := seen[s.Name]; ok {
				continue
			}
			seen[s.Name] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}

// ObjectResult is the outcome of classifying every string in an object.
type ObjectResult struct {
	Severity Severity
	// Fields is keyed by dotted path, e.g. "driver.name" or "tags[1]".
	Fields map[string]Result
}

// Paths returns the field paths at or above the given severity, sorted.
func (o ObjectResult) Paths(min Severity) []string {
	var out []string
	for p, r := range o.Fields {
		if r.Severity >= min {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

// ClassifyObject walks data recursively and classifies every leaf value.
func (c *Classifier) ClassifyObject(data map[string]any, opts Options) ObjectResult {
	out := ObjectResult{Severity: Safe, Fields: make(map[string]Result)}
	c.walk("", data, opts, &out)
	return out
}

// ClassifyForm classifies a flat form submission.
func (c *Classifier) ClassifyForm(form map[string]string, opts Options) ObjectResult {
	out := ObjectResult{Severity: Safe, Fields: make(map[string]Result, len(form))}
	for k, v := range form {
		r := c.Classify(v, opts)
		out.Fields[k] = r
		out.Severity = Max(out.Severity, r.Severity)
	}
	return out
}

func (c *Classifier) walk(path string, v any, opts Options, out *ObjectResult) {
	switch t := v.(type) {
	case map[string]any:
		for k, child := range t {
			c.walk(join(path, k), child, opts, out)
		}
	case []any:
		for i, child := range t {
			c.walk(path+"["+strconv.Itoa(i)+"]", child, opts, out)
		}
	case nil:
	default:
		r := c.Classify(t, opts)
		out.Fields[path] = r
		out.Severity = Max(out.Severity, r.Severity)
	}
}

func join(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

// ToString coerces any value to the string that is classified and sanitized.
func ToString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case fmt.Stringer:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	default:
		return fmt.Sprint(t)
	}
}
