// Package patterns holds the signature catalog shared by the sanitizer, the
// threat classifier and the audit ledger. The catalog is plain data
// (Definition) compiled into a Catalog, so it can be extended from a YAML file
// without touching any control flow.
package patterns

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Category groups signatures by the kind of attack they describe.
type Category string

const (
	CategoryXSS        Category = "xss"
	CategoryProtocol   Category = "protocol"
	CategorySQL        Category = "sqli"
	CategoryCommand    Category = "cmdi"
	CategoryPath       Category = "path"
	CategoryTemplate   Category = "template"
	CategoryXML        Category = "xml"
	CategorySuspicious Category = "suspicious"
)

// ErrEmptyMatch is returned when a signature would match the empty string.
// Such a signature could never be removed and would flag every input.
var ErrEmptyMatch = errors.New("signature matches the empty string")

// SignatureDef is the uncompiled form of a signature.
type SignatureDef struct {
	Name     string   `yaml:"name"`
	Category Category `yaml:"category"`
	Pattern  string   `yaml:"pattern"`
}

// Definition is the data form of a catalog.
type Definition struct {
	Signatures          []SignatureDef `yaml:"signatures"`
	Suspicious          []SignatureDef `yaml:"suspicious"`
	DangerousTags       []string       `yaml:"dangerous_tags"`
	DangerousAttributes []string       `yaml:"dangerous_attributes"`
}

// Signature is a compiled catalog entry.
type Signature struct {
	Name     string
	Category Category
	Regex    *regexp.Regexp
}

// Catalog is an immutable, compiled signature set. It is safe for concurrent use.
type Catalog struct {
	def        Definition
	signatures []Signature
	suspicious []Signature
}

// Compile validates and compiles a definition. Dangerous tag and attribute
// names are turned into two extra xss signatures.
func Compile(def Definition) (*Catalog, error) {
	c := &Catalog{def: cloneDefinition(def)}

	for _, sd := range def.Signatures {
		sig, err := compileSignature(sd)
		if err != nil {
			return nil, err
		}
		c.signatures = append(c.signatures, sig)
	}

	if len(def.DangerousTags) > 0 {
		sig, err := compileSignature(SignatureDef{
			Name:     "dangerous_tag",
			Category: CategoryXSS,
			Pattern:  `(?i)<\s*/?\s*(?:` + alternation(def.DangerousTags) + `)\b[^>]*>?`,
		})
		if err != nil {
			return nil, err
		}
		c.signatures = append(c.signatures, sig)
	}

	if len(def.DangerousAttributes) > 0 {
		// Only attributes inside a tag count; "style = casual" in a note is text.
		sig, err := compileSignature(SignatureDef{
			Name:     "dangerous_attribute",
			Category: CategoryXSS,
			Pattern:  `(?i)<[a-z][^>]*\s(?:` + alternation(def.DangerousAttributes) + `)\s*=\s*(?:"[^"]*"|'[^']*'|[^\s>]*)`,
		})
		if err != nil {
			return nil, err
		}
		c.signatures = append(c.signatures, sig)
	}

	for _, sd := range def.Suspicious {
		if sd.Category == "" {
			sd.Category = CategorySuspicious
		}
		sig, err := compileSignature(sd)
		if err != nil {
			return nil, err
		}
		c.suspicious = append(c.suspicious, sig)
	}

	return c, nil
}

func compileSignature(sd SignatureDef) (Signature, error) {
	if sd.Name == "" {
		return Signature{}, errors.New("signature without a name")
	}
	re, err := regexp.Compile(sd.Pattern)
	if err != nil {
		return Signature{}, fmt.Errorf("compile signature %q: %w", sd.Name, err)
	}
	if re.MatchString("") {
		return Signature{}, fmt.Errorf("signature %q: %w", sd.Name, ErrEmptyMatch)
	}
	return Signature{Name: sd.Name, Category: sd.Category, Regex: re}, nil
}

func alternation(names []string) string {
	quoted := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n != "" {
			quoted = append(quoted, regexp.QuoteMeta(strings.ToLower(n)))
		}
	}
	return strings.Join(quoted, "|")
}

// Definition returns a copy of the data the catalog was compiled from.
func (c *Catalog) Definition() Definition {
	return cloneDefinition(c.def)
}

// Signatures returns the dangerous signatures, in evaluation order.
func (c *Catalog) Signatures() []Signature {
	return append([]Signature(nil), c.signatures...)
}

// DangerousTags returns the lower-cased dangerous element names.
func (c *Catalog) DangerousTags() []string {
	out := make([]string, 0, len(c.def.DangerousTags))
	for _, t := range c.def.DangerousTags {
		out = append(out, strings.ToLower(strings.TrimSpace(t)))
	}
	return out
}

// Match returns every dangerous signature that matches s.
func (c *Catalog) Match(s string) []Signature {
	return matchAll(c.signatures, s)
}

// MatchSuspicious returns every suspicious signature that matches s.
func (c *Catalog) MatchSuspicious(s string) []Signature {
	return matchAll(c.suspicious, s)
}

func matchAll(sigs []Signature, s string) []Signature {
	if s == "" {
		return nil
	}
	var out []Signature
	for _, sig := range sigs {
		if sig.Regex.MatchString(s) {
			out = append(out, sig)
		}
	}
	return out
}

// Remove deletes every dangerous-signature match from s in a single pass over
// the catalog. Callers that need a fixed point must loop.
func (c *Catalog) Remove(s string) string {
	for _, sig := range c.signatures {
		if s == "" {
			return s
		}
		s = sig.Regex.ReplaceAllString(s, "")
	}
	return s
}

// maxExtractLen caps extracted pattern text so the frequency table stays small.
const maxExtractLen = 64

// Extract returns the normalized substrings of s matched by dangerous
// signatures. It is used for reporting only.
func (c *Catalog) Extract(s string) []string {
	if s == "" {
		return nil
	}
	seen := make(map[string]struct{})
	var out []string
	for _, sig := range c.signatures {
		for _, m := range sig.Regex.FindAllString(s, 8) {
			m = strings.ToLower(strings.Join(strings.Fields(m), " "))
			if len([]rune(m)) > maxExtractLen {
				m = string([]rune(m)[:maxExtractLen])
			}
			if m == "" {
				continue
			}
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			out = append(out, m)
		}
	}
	sort.Strings(out)
	return out
}

// Merge combines two definitions. Signatures in extra with a name already
// present in base replace the base entry.
func Merge(base, extra Definition) Definition {
	out := cloneDefinition(base)
	out.Signatures = mergeSignatures(out.Signatures, extra.Signatures)
	out.Suspicious = mergeSignatures(out.Suspicious, extra.Suspicious)
	out.DangerousTags = mergeNames(out.DangerousTags, extra.DangerousTags)
	out.DangerousAttributes = mergeNames(out.DangerousAttributes, extra.DangerousAttributes)
	return out
}

func mergeSignatures(base, extra []SignatureDef) []SignatureDef {
	idx := make(map[string]int, len(base))
	for i, s := range base {
		idx[s.Name] = i
	}
	for _, s := range extra {
		if i, ok := idx[s.Name]; ok {
			base[i] = s
			continue
		}
		idx[s.Name] = len(base)
		base = append(base, s)
	}
	return base
}

func mergeNames(base, extra []string) []string {
	seen := make(map[string]struct{}, len(base))
	for _, n := range base {
		seen[strings.ToLower(n)] = struct{}{}
	}
	for _, n := range extra {
		key := strings.ToLower(n)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		base = append(base, n)
	}
	return base
}

// LoadFile reads a YAML definition from path.
func LoadFile(path string) (Definition, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Definition{}, fmt.Errorf("read pattern file: %w", err)
	}
	var def Definition
	if err := yaml.Unmarshal(raw, &def); err != nil {
		return Definition{}, fmt.Errorf("parse pattern file: %w", err)
	}
	return def, nil
}

// Load compiles the built-in catalog, extended by the YAML file at path when
// path is not empty.
func Load(path string) (*Catalog, error) {
	def := Builtin()
	if path != "" {
		extra, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		def = Merge(def, extra)
	}
	return Compile(def)
}

func cloneDefinition(d Definition) Definition {
	return Definition{
		Signatures:          append([]SignatureDef(nil), d.Signatures...),
		Suspicious:          append([]SignatureDef(nil), d.Suspicious...),
		DangerousTags:       append([]string(nil), d.DangerousTags...),
		DangerousAttributes: append([]string(nil), d.DangerousAttributes...),
	}
}
