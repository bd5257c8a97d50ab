// Package parser extracts frontmatter, references, and tags from Markdown content.
package parser

import (
	"bytes"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	// [[target]] and [[target|alias]]; also matches the bracket part of
	// ![[target]] embeds, so embeds resolve to the same targets.
	wikilinkRe = regexp.MustCompile(`\[\[(.*?)\]\]`)
	embedRe    = regexp.MustCompile(`!\[\[(.*?)\]\]`)
	mdLinkRe   = regexp.MustCompile(`\[[^\]]*\]\(([^)\s]+)\)`)
	tagRe      = regexp.MustCompile(`(?:^|\s)#([A-Za-z0-9_/-]+)`)
)

// Result holds the output of parsing a Markdown file.
type Result struct {
	Frontmatter map[string]any
	Body        string
	Refs        []string
	Tags        []string
	Title       string
	WordCount   int
}

// Parse extracts frontmatter, body, references, and tags from raw Markdown bytes.
func Parse(data []byte) (*Result, error) {
	fm, body, err := splitFrontmatter(data)
	if err != nil {
		return nil, err
	}

	return &Result{
		Frontmatter: fm,
		Body:        body,
		Refs:        extractRefs(body),
		Tags:        extractTags(body, fm),
		Title:       deriveTitle(fm, body),
		WordCount:   len(strings.Fields(body)),
	}, nil
}

// Render serializes frontmatter and body back into the on-disk note format.
// Empty frontmatter emits the body alone, without a delimiter block.
func Render(fm map[string]any, body string) ([]byte, error) {
	if len(fm) == 0 {
		return []byte(body), nil
	}
	meta, err := yaml.Marshal(fm)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(meta)
	buf.WriteString("---\n")
	buf.WriteString(body)
	return buf.Bytes(), nil
}

// splitFrontmatter separates YAML frontmatter (between leading --- delimiters)
// from the Markdown body. If no frontmatter is found the entire content is body.
// Both delimiters must be whole "---" lines; "----" or "---text" do not count.
func splitFrontmatter(data []byte) (map[string]any, string, error) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data), nil
	}
	rest := trimmed[len(delim):]
	if len(rest) > 0 && rest[0] != '\n' && rest[0] != '\r' {
		// Opening line carries trailing text, not a delimiter.
		return nil, string(data), nil
	}

	idx := closingDelim(rest)
	if idx < 0 {
		// No closing delimiter — treat everything as body.
		return nil, string(data), nil
	}

	yamlBlock := rest[:idx]
	// Body starts after closing delimiter line.
	afterDelim := rest[idx+1+len(delim):]
	body := strings.TrimLeft(string(afterDelim), "\n\r")

	var fm map[string]any
	if err := yaml.Unmarshal(yamlBlock, &fm); err != nil {
		// Invalid YAML — the whole content is body.
		return nil, string(data), nil
	}

	return fm, body, nil
}

// closingDelim returns the offset in rest of the newline that starts a
// full "---" closing delimiter line, or -1 when no such line exists.
func closingDelim(rest []byte) int {
	marker := []byte("\n---")
	for from := 0; ; {
		i := bytes.Index(rest[from:], marker)
		if i < 0 {
			return -1
		}
		i += from
		tail := rest[i+len(marker):]
		if len(tail) == 0 || tail[0] == '\n' || tail[0] == '\r' {
			return i
		}
		from = i + 1
	}
}

// extractRefs returns deduplicated outgoing references in first-seen order.
// Three patterns are scanned: [[wikilinks]] (aliases dropped), ![[embeds]],
// and [label](target) inline links whose target is not a web URL.
func extractRefs(body string) []string {
	seen := make(map[string]struct{})
	var out []string

	add := func(target string) {
		target = strings.TrimSpace(target)
		if target == "" {
			return
		}
		if _, ok := seen[target]; ok {
			return
		}
		seen[target] = struct{}{}
		out = append(out, target)
	}

	for _, m := range wikilinkRe.FindAllStringSubmatch(body, -1) {
		raw := m[1]
		// Handle aliases: [[Target|Alias]] → Target.
		if i := strings.Index(raw, "|"); i >= 0 {
			raw = raw[:i]
		}
		add(raw)
	}

	for _, m := range embedRe.FindAllStringSubmatch(body, -1) {
		raw := m[1]
		if i := strings.Index(raw, "|"); i >= 0 {
			raw = raw[:i]
		}
		add(raw)
	}

	for _, m := range mdLinkRe.FindAllStringSubmatch(body, -1) {
		target := m[1]
		// Absolute web URLs are not note references.
		if strings.Contains(target, "://") {
			continue
		}
		add(target)
	}

	return out
}

// extractTags collects #tags from body and from the frontmatter "tags" field.
// Frontmatter tags may be a single string or a list; values are coerced.
func extractTags(body string, fm map[string]any) []string {
	seen := make(map[string]struct{})
	var out []string

	add := func(t string) {
		t = strings.TrimSpace(t)
		if t == "" {
			return
		}
		if _, dup := seen[t]; dup {
			return
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}

	if fm != nil {
		switch v := fm["tags"].(type) {
		case string:
			add(v)
		case []any:
			for _, item := range v {
				if s, ok := item.(string); ok {
					add(s)
				}
			}
		}
	}

	for _, m := range tagRe.FindAllStringSubmatch(body, -1) {
		add(m[1])
	}

	return out
}

// deriveTitle returns the frontmatter "title" if present, otherwise the first
// H1 heading, otherwise empty string.
func deriveTitle(fm map[string]any, body string) string {
	if fm != nil {
		if t, ok := fm["title"]; ok {
			if s, ok := t.(string); ok && s != "" {
				return s
			}
		}
	}
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}
