// Package sanitizer rewrites untrusted strings into a form that is inert as
// HTML, SQL, shell or template syntax.
package sanitizer

import (
	"html"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"

	"github.com/fleetdesk/backend/internal/patterns"
)

// maxPasses bounds the cleaning loop. Real inputs settle in two or three
// passes; text still changing after that many is dropped.
const maxPasses = 32

// inertElements are formatting elements the tag policy keeps (without any
// attributes). They are escaped afterwards like any other markup.
var inertElements = []string{
	"b", "i", "em", "strong", "u", "s", "p", "br", "ul", "ol", "li",
	"span", "small", "sub", "sup", "code", "pre", "blockquote",
}

var escaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#x27;",
	"/", "&#x2F;",
)

// Sanitizer removes catalog matches and dangerous markup, then escapes what is
// left. A Sanitizer is safe for concurrent use.
type Sanitizer struct {
	catalog *patterns.Catalog
	policy  *bluemonday.Policy
}

// New builds a Sanitizer over the given catalog. A nil catalog means the
// built-in one.
func New(catalog *patterns.Catalog) *Sanitizer {
	if catalog == nil {
		catalog = patterns.Default()
	}

	policy := bluemonday.NewPolicy()
	policy.AllowElements(inertElements...)
	// Drop the text inside dangerous containers (<style>, <script>, ...) too.
	policy.SkipElementsContent(catalog.DangerousTags()...)

	return &Sanitizer{catalog: catalog, policy: policy}
}

var defaultSanitizer = New(nil)

// Sanitize applies the default sanitizer.
func Sanitize(input string) string {
	return defaultSanitizer.Sanitize(input)
}

// Sanitize returns the escaped, cleaned form of input. It is idempotent:
// Sanitize(Sanitize(x)) == Sanitize(x).
func (s *Sanitizer) Sanitize(input string) string {
	return Escape(s.Clean(input))
}

// Clean returns the text Sanitize escapes: entity-decoded, with signature
// matches, dangerous markup and control characters removed, and trimmed.
// The steps repeat until the text stops changing, so removing one match can
// never leave a new one behind. The result is always a fixed point: input that
// does not settle within maxPasses yields "".
func (s *Sanitizer) Clean(input string) string {
	text := input
	for i := 0; i < maxPasses; i++ {
		next := s.pass(text)
		if next == text {
			return next
		}
		text = next
	}
	return ""
}

func (s *Sanitizer) pass(text string) string {
	text = Decode(text)
	text = s.catalog.Remove(text)
	text = s.stripMarkup(text)
	return strings.TrimSpace(text)
}

// stripMarkup removes dangerous elements and every attribute. The policy
// re-escapes text, so its output is decoded again for the next pass.
func (s *Sanitizer) stripMarkup(text string) string {
	if !strings.Contains(text, "<") {
		return text
	}
	return html.UnescapeString(s.policy.Sanitize(text))
}

// Decode returns the entity-decoded, control-free form of input without
// removing anything else. The classifier matches against it so encoded
// payloads are seen for what they are.
func Decode(input string) string {
	return StripControl(unescapeAll(StripControl(input)))
}

// unescapeAll decodes entities until none are left, however deeply they are
// nested. Every decoded entity is longer in runes than its replacement, so
// the loop ends.
func unescapeAll(s string) string {
	for strings.IndexByte(s, '&') >= 0 {
		next := html.UnescapeString(s)
		if next == s {
			break
		}
		s = next
	}
	return s
}

// Escape HTML-escapes the five reserved characters and forward slash.
func Escape(s string) string {
	return escaper.Replace(s)
}

// StripControl removes C0 and C1 control characters and DEL. Tab and line
// feed are kept; carriage returns are dropped.
func StripControl(s string) string {
	if strings.IndexFunc(s, isStripped) < 0 {
		return s
	}
	return strings.Map(func(r rune) rune {
		if isStripped(r) {
			return -1
		}
		return r
	}, s)
}

func isStripped(r rune) bool {
	if r == '\t' || r == '\n' {
		return false
	}
	return unicode.IsControl(r)
}
