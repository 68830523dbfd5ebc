package patterns

import "sync"

const shellCommands = `cat|ls|rm|mv|cp|wget|curl|nc|ncat|netcat|bash|sh|zsh|ksh|powershell|pwsh|cmd|python|python3|perl|php|ruby|whoami|uname|chmod|chown|kill|sudo|su|nslookup|ping`

// Builtin returns the default catalog definition.
func Builtin() Definition {
	return Definition{
		Signatures: []SignatureDef{
			// Keyword-led signatures carry no leading word boundary: a payload
			// glued onto a word ("JohnDROP TABLE x") must still match.

			// script injection
			{Name: "script_block", Category: CategoryXSS, Pattern: `(?is)<\s*script\b[^>]*>.*?<\s*/\s*script\s*>`},
			{Name: "script_tag", Category: CategoryXSS, Pattern: `(?i)<\s*/?\s*script\b[^>]*>?`},
			{Name: "event_handler", Category: CategoryXSS, Pattern: `(?i)on(?:abort|afterprint|animationend|animationstart|beforeunload|blur|change|click|contextmenu|copy|cut|dblclick|drag|dragend|dragover|drop|error|focus|focusin|hashchange|input|invalid|keydown|keypress|keyup|load|message|mousedown|mouseenter|mouseleave|mousemove|mouseout|mouseover|mouseup|paste|pointerdown|pointerover|reset|resize|scroll|search|select|submit|toggle|transitionend|unload|wheel)\s*=`},
			{Name: "style_expression", Category: CategoryXSS, Pattern: `(?i)expression\s*\(`},
			{Name: "dom_sink", Category: CategoryXSS, Pattern: `(?i)document\s*\.\s*(?:cookie|write|writeln|domain)\b|\.\s*(?:inner|outer)HTML\s*=`},

			// protocol handlers
			{Name: "javascript_uri", Category: CategoryProtocol, Pattern: `(?i)javascript\s*:`},
			{Name: "vbscript_uri", Category: CategoryProtocol, Pattern: `(?i)vbscript\s*:`},
			{Name: "data_uri", Category: CategoryProtocol, Pattern: `(?i)data\s*:\s*[a-z]+/[a-z0-9.+\-]+\s*[;,]`},

			// SQL: keywords combined with clause keywords
			{Name: "sql_union_select", Category: CategorySQL, Pattern: `(?i)union\s+(?:all\s+)?select\b`},
			{Name: "sql_select_from", Category: CategorySQL, Pattern: `(?i)select\s+(?:\*|[\w,\s()]+?)\s+from\s+\w+`},
			{Name: "sql_insert_into", Category: CategorySQL, Pattern: `(?i)insert\s+into\s+\w+`},
			{Name: "sql_update_set", Category: CategorySQL, Pattern: `(?i)update\s+\w+\s+set\s+\w+\s*=`},
			{Name: "sql_delete_from", Category: CategorySQL, Pattern: `(?i)delete\s+from\s+\w+`},
			{Name: "sql_ddl", Category: CategorySQL, Pattern: `(?i)(?:drop|truncate|alter)\s+(?:table|database|schema|index|view)\b`},
			{Name: "sql_quote_tautology", Category: CategorySQL, Pattern: `(?i)['"]\s*(?:or|and)\s+(?:'[^']*'|"[^"]*"|\d+)\s*(?:=|<>|!=|like)\s*(?:'[^']*'|"[^"]*"|\d+)`},
			{Name: "sql_numeric_tautology", Category: CategorySQL, Pattern: `(?i)(?:or|and)\s+(\d+)\s*=\s*\d+\b`},
			{Name: "sql_quote_comment", Category: CategorySQL, Pattern: `['"]\s*(?:--|#|/\*)`},
			{Name: "sql_stacked", Category: CategorySQL, Pattern: `(?i);\s*(?:drop|alter|truncate|delete|update|insert|create|exec|execute|shutdown)\b`},
			{Name: "sql_time_based", Category: CategorySQL, Pattern: `(?i)(?:sleep|benchmark|pg_sleep)\s*\(\s*\d+|waitfor\s+delay\s+'`},
			{Name: "sql_procedure", Category: CategorySQL, Pattern: `(?i)exec(?:ute)?\s+(?:xp_|sp_)\w+`},
			{Name: "sql_schema_probe", Category: CategorySQL, Pattern: `(?i)(?:information_schema|pg_catalog|sysobjects|syscolumns)\b`},

			// shell metacharacters
			{Name: "cmd_chain", Category: CategoryCommand, Pattern: `(?i)(?:;|\|\|?|&&)\s*(?:` + shellCommands + `)\b`},
			{Name: "cmd_subshell", Category: CategoryCommand, Pattern: `\$\([^)]*\)`},
			{Name: "cmd_backtick", Category: CategoryCommand, Pattern: "(?i)`\\s*(?:" + shellCommands + ")\\b"},
			{Name: "cmd_redirect", Category: CategoryCommand, Pattern: `[<>]\s*/(?:etc|tmp|dev|proc)/`},

			// path traversal
			{Name: "path_traversal", Category: CategoryPath, Pattern: `(?i)(?:\.\.|%2e%2e|%252e%252e)(?:/|\\|%2f|%5c|%252f)`},
			{Name: "path_sensitive_file", Category: CategoryPath, Pattern: `(?i)/etc/(?:passwd|shadow|hosts)\b|/proc/self/|\\windows\\system32`},
			{Name: "path_null_byte", Category: CategoryPath, Pattern: `(?i)%00|\\x00|\\u0000`},

			// template interpolation
			{Name: "template_mustache", Category: CategoryTemplate, Pattern: `(?s)\{\{.*?\}\}`},
			{Name: "template_dollar", Category: CategoryTemplate, Pattern: `(?s)\$\{.*?\}`},
			{Name: "template_hash", Category: CategoryTemplate, Pattern: `(?s)#\{.*?\}`},
			{Name: "template_erb", Category: CategoryTemplate, Pattern: `(?s)<%.*?%>`},

			// XML entities and declarations
			{Name: "xml_doctype", Category: CategoryXML, Pattern: `(?i)<!\s*doctype\b[^>]*>?`},
			{Name: "xml_entity", Category: CategoryXML, Pattern: `(?i)<!\s*entity\b[^>]*>?`},
			{Name: "xml_cdata", Category: CategoryXML, Pattern: `(?i)<!\[cdata\[`},
		},
		Suspicious: []SignatureDef{
			{Name: "angle_bracket", Pattern: `[<>]`},
			{Name: "curly_brace", Pattern: `[{}]`},
			{Name: "backtick", Pattern: "`"},
			{Name: "global_object", Pattern: `(?i)\b(?:window|document|globalThis|localStorage|sessionStorage|navigator)\s*\.`},
			{Name: "call_like", Pattern: `(?i)\b(?:alert|eval|prompt|confirm|setTimeout|setInterval|Function|fetch|atob|btoa|importScripts)\s*\(`},
		},
		DangerousTags: []string{
			"script", "iframe", "frame", "frameset", "object", "embed", "applet",
			"form", "link", "meta", "style", "base", "svg", "math", "template",
			"noscript", "xml", "import",
		},
		DangerousAttributes: []string{
			"formaction", "srcdoc", "xlink:href", "style", "background", "dynsrc", "lowsrc",
		},
	}
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Default returns the compiled built-in catalog. The built-in definition is
// covered by tests, so a compile failure here is a programming error.
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := Compile(Builtin())
		if err != nil {
			panic(err)
		}
		defaultCatalog = c
	})
	return defaultCatalog
}
