// Package fieldvalidator validates form values against per-field-kind rules
// and returns their sanitized form.
package fieldvalidator

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/fleetdesk/backend/internal/classifier"
	"github.com/fleetdesk/backend/internal/patterns"
)

const (
	MsgRequired         = "is required"
	MsgInvalidFieldName = "invalid field name"
)

var fieldNameRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]{0,63}$`)

// Options tune a validation run.
type Options struct {
	StrictMode bool
	// Partial skips required-field checks for keys absent from the input, as
	// an update only carries the fields it changes.
	Partial bool
}

// Result is the outcome of validating one value.
type Result struct {
	IsValid bool
	// Input is the raw value as a string, before any sanitization.
	Input          string
	SanitizedValue string
	Errors         []string
	Warnings       []string
	Severity       classifier.Severity
	Matches        []patterns.Signature
}

// Validator applies rules on top of the threat classifier.
type Validator struct {
	classifier *classifier.Classifier
	now        func() time.Time
}

// New returns a Validator. A nil classifier means the default one.
func New(c *classifier.Classifier) *Validator {
	if c == nil {
		c = classifier.New(nil, nil)
	}
	return &Validator{classifier: c, now: time.Now}
}

// WithClock replaces the clock used for year bounds.
func (v *Validator) WithClock(now func() time.Time) *Validator {
	v.now = now
	return v
}

// Classifier exposes the classifier the validator runs first.
func (v *Validator) Classifier() *classifier.Classifier { return v.classifier }

// Validate checks a single value against rule.
func (v *Validator) Validate(value any, rule Rule, opts Options) Result {
	raw := classifier.ToString(value)
	if strings.TrimSpace(raw) == "" {
		if rule.Required {
			return Result{IsValid: false, Input: raw, Errors: []string{MsgRequired}}
		}
		return Result{IsValid: true, Input: raw}
	}

	cls := v.classifier.Classify(raw, classifier.Options{StrictMode: opts.StrictMode})
	res := Result{
		Input:          raw,
		SanitizedValue: cls.Sanitized,
		Errors:         cls.Errors,
		Warnings:       cls.Warnings,
		Severity:       cls.Severity,
		Matches:        cls.Matches,
	}

	if rule.MaxLength > 0 && utf8.RuneCountInString(res.SanitizedValue) > rule.MaxLength {
		res.SanitizedValue = truncate(res.SanitizedValue, rule.MaxLength)
		res.Warnings = append(res.Warnings, fmt.Sprintf("value truncated to %d characters", rule.MaxLength))
	}

	clean := v.classifier.Sanitizer().Clean(raw)
	if rule.MinLength > 0 && utf8.RuneCountInString(clean) < rule.MinLength {
		res.Errors = append(res.Errors, fmt.Sprintf("must be at least %d characters", rule.MinLength))
	}
	if rule.Pattern != nil && clean != "" && !rule.Pattern.MatchString(clean) {
		res.Errors = append(res.Errors, fmt.Sprintf("invalid %s format", rule.Kind))
	}
	if msg := checkRange(rule.Kind, clean, v.now()); msg != "" {
		res.Errors = append(res.Errors, msg)
	}

	res.IsValid = len(res.Errors) == 0
	return res
}

// truncate cuts s to n runes without splitting an escape sequence.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	cut := runes[:n]
	for i := len(cut) - 1; i >= 0 && i >= len(cut)-len("&quot;"); i-- {
		if cut[i] == ';' {
			break
		}
		if cut[i] == '&' {
			cut = cut[:i]
			break
		}
	}
	return string(cut)
}

func checkRange(kind FieldKind, text string, now time.Time) string {
	if text == "" {
		return ""
	}
	switch kind {
	case KindYear:
		year, err := strconv.Atoi(text)
		if err != nil {
			return ""
		}
		if maxYear := now.Year() + 1; year < MinYear || year > maxYear {
			return fmt.Sprintf("year must be between %d and %d", MinYear, maxYear)
		}
	case KindCurrency:
		amount, err := strconv.ParseFloat(strings.Replace(text, ",", ".", 1), 64)
		if err != nil {
			return ""
		}
		if amount < 0 {
			return "amount must not be negative"
		}
		if amount > MaxMoney {
			return fmt.Sprintf("amount must not exceed %d", MaxMoney)
		}
	case KindMileage:
		km, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return ""
		}
		if km < 0 {
			return "mileage must not be negative"
		}
		if km > MaxMileage {
			return fmt.Sprintf("mileage must not exceed %d", MaxMileage)
		}
	case KindDate:
		if _, err := time.Parse("2006-01-02", text); err != nil {
			return "invalid calendar date"
		}
	}
	return ""
}

// ObjectResult aggregates the validation of a whole form or payload.
type ObjectResult struct {
	IsValid bool
	// Sanitized is a deep copy of the input with every string replaced by its
	// sanitized form. Non-string primitives are kept as they were.
	Sanitized map[string]any
	Errors    map[string][]string
	Warnings  map[string][]string
	Severity  classifier.Severity
	// Fields holds the per-value results keyed by dotted path.
	Fields map[string]Result
}

// ValidateObject validates every value in data against the rule set.
func (v *Validator) ValidateObject(data map[string]any, rules RuleSet, opts Options) ObjectResult {
	out := ObjectResult{
		Errors:   make(map[string][]string),
		Warnings: make(map[string][]string),
		Fields:   make(map[string]Result),
		Severity: classifier.Safe,
	}

	if !opts.Partial {
		for name, rule := range rules {
			if _, ok := data[name]; !ok && rule.Required {
				out.Errors[name] = append(out.Errors[name], MsgRequired)
			}
		}
	}

	out.Sanitized = v.walkMap("", data, rules, opts, &out)
	out.IsValid = len(out.Errors) == 0
	return out
}

func (v *Validator) walkMap(path string, data map[string]any, rules RuleSet, opts Options, out *ObjectResult) map[string]any {
	clean := make(map[string]any, len(data))
	for k, child := range data {
		childPath := joinPath(path, k)
		if !fieldNameRe.MatchString(k) {
			v.rejectKey(path, k, opts, out)
			continue
		}
		clean[k] = v.walk(childPath, k, child, rules, opts, out)
	}
	return clean
}

// rejectKey drops a key that is not a plain identifier. The key itself is
// classified so injected keys still count as malicious input.
func (v *Validator) rejectKey(path, key string, opts Options, out *ObjectResult) {
	r := v.classifier.Classify(key, classifier.Options{StrictMode: opts.StrictMode})
	res := Result{
		Input:          key,
		SanitizedValue: r.Sanitized,
		Errors:         append([]string{MsgInvalidFieldName}, r.Errors...),
		Severity:       r.Severity,
		Matches:        r.Matches,
	}
	label := joinPath(path, r.Sanitized)
	if r.Sanitized == "" {
		label = joinPath(path, "_")
	}
	out.record(label, res)
}

func (v *Validator) walk(path, field string, val any, rules RuleSet, opts Options, out *ObjectResult) any {
	switch t := val.(type) {
	case map[string]any:
		return v.walkMap(path, t, rules, opts, out)
	case []any:
		items := make([]any, 0, len(t))
		for i, item := range t {
			items = append(items, v.walk(fmt.Sprintf("%s[%d]", path, i), field, item, rules, opts, out))
		}
		return items
	case nil:
		if rule := rules.Rule(field); rule.Required && !strings.Contains(path, ".") {
			out.record(path, Result{Errors: []string{MsgRequired}})
		}
		return nil
	case bool:
		return t
	case string:
		r := v.Validate(t, rules.Rule(field), opts)
		out.record(path, r)
		return r.SanitizedValue
	default:
		// numbers keep their type; their text form is still range checked
		r := v.Validate(t, rules.Rule(field), opts)
		out.record(path, r)
		return t
	}
}

func (o *ObjectResult) record(path string, r Result) {
	o.Fields[path] = r
	if len(r.Errors) > 0 {
		o.Errors[path] = append(o.Errors[path], r.Errors...)
	}
	if len(r.Warnings) > 0 {
		o.Warnings[path] = append(o.Warnings[path], r.Warnings...)
	}
	o.Severity = classifier.Max(o.Severity, r.Severity)
}

func joinPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}
