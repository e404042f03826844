// Package wikitext tokenizes MediaWiki markup into an ordered node stream.
// It covers the constructs twin-town listing pages actually use: headings,
// wikilinks, list-item markers, ref tags, templates, external links and the
// plain text between them. It is not a general wikitext parser.
package wikitext

import (
	"regexp"
	"strings"
)

var (
	commentRE = regexp.MustCompile(`(?ms)<!--.*?-->`)
	nowikiRE  = regexp.MustCompile(`(?ms)<nowiki>.*?</nowiki>`)
	headingRE = regexp.MustCompile(`^(={2,6})\s*(.*?)\s*=+\s*$`)
	refOpenRE = regexp.MustCompile(`(?s)^<ref(\s[^>/]*)?(/?)>`)
	attrRE    = regexp.MustCompile(`(\w[\w-]*)\s*=\s*("([^"]*)"|'([^']*)'|(\S+))`)
)

// Node is one structural element of a page, in document order.
type Node interface {
	node()
}

// Heading is a section heading, e.g. "== Poland ==".
type Heading struct {
	Title string
	Level int
}

// ListItem is a single list-nesting marker: one node per leading "*" or "#".
type ListItem struct {
	Marker byte
}

// Wikilink is an internal link [[Title|Text]].
type Wikilink struct {
	Title string
	Text  string
}

// Display returns the link text shown to the reader, preferring the display
// text over the raw title.
func (w Wikilink) Display() string {
	if w.Text != "" {
		return w.Text
	}
	return w.Title
}

// Template is a transclusion {{name|param|param}}.
type Template struct {
	Name   string
	Params []string
}

// Param returns the value of a named parameter ("key=value"), or "" when the
// template does not carry it.
func (t Template) Param(key string) string {
	prefix := key + "="
	for _, p := range t.Params {
		trimmed := strings.TrimSpace(p)
		if strings.HasPrefix(trimmed, prefix) {
			return strings.TrimSpace(strings.TrimPrefix(trimmed, prefix))
		}
	}
	return ""
}

// Positional returns the i-th unnamed parameter, or "".
func (t Template) Positional(i int) string {
	n := 0
	for _, p := range t.Params {
		trimmed := strings.TrimSpace(p)
		if strings.Contains(trimmed, "=") {
			continue
		}
		if n == i {
			return trimmed
		}
		n++
	}
	return ""
}

// RefTag is a citation tag, either self-contained (<ref>...</ref>) or a named
// reuse (<ref name="x"/>). Content holds the tokenized inner markup.
type RefTag struct {
	Name        string
	Group       string
	SelfClosing bool
	Content     []Node
}

// ExternalLink is a bracketed external link [http://example.org label].
type ExternalLink struct {
	URL  string
	Text string
}

// Text is the plain text between markup constructs, newlines included.
type Text struct {
	Value string
}

func (Heading) node()      {}
func (ListItem) node()     {}
func (Wikilink) node()     {}
func (Template) node()     {}
func (RefTag) node()       {}
func (ExternalLink) node() {}
func (Text) node()         {}

// Parse tokenizes a whole page. HTML comments and nowiki spans are stripped
// first, matching how the listing pages are read upstream.
func Parse(text string) []Node {
	cleaned := nowikiRE.ReplaceAllString(commentRE.ReplaceAllString(text, ""), "")
	p := &parser{src: cleaned, atLineStart: true}
	return p.run(true)
}

type parser struct {
	src         string
	pos         int
	atLineStart bool
	buf         strings.Builder
	nodes       []Node
}

func (p *parser) run(topLevel bool) []Node {
	for p.pos < len(p.src) {
		if topLevel && p.atLineStart {
			if p.lineStart() {
				continue
			}
		}
		if p.special() {
			continue
		}
		c := p.src[p.pos]
		p.buf.WriteByte(c)
		p.pos++
		p.atLineStart = c == '\n'
	}
	p.flush()
	return p.nodes
}

// lineStart handles headings and list markers; returns true when it consumed input.
func (p *parser) lineStart() bool {
	line, end := p.currentLine()
	if m := headingRE.FindStringSubmatch(line); m != nil {
		p.flush()
		p.nodes = append(p.nodes, Heading{Title: m[2], Level: len(m[1])})
		p.pos = end
		p.atLineStart = true
		return true
	}
	if len(line) > 0 && (line[0] == '*' || line[0] == '#') {
		p.flush()
		for p.pos < len(p.src) && (p.src[p.pos] == '*' || p.src[p.pos] == '#') {
			p.nodes = append(p.nodes, ListItem{Marker: p.src[p.pos]})
			p.pos++
		}
		p.atLineStart = false
		return true
	}
	p.atLineStart = false
	return false
}

// special handles inline markup; returns true when it consumed input.
func (p *parser) special() bool {
	rest := p.src[p.pos:]
	switch {
	case strings.HasPrefix(rest, "<ref"):
		return p.refTag(rest)
	case strings.HasPrefix(rest, "{{"):
		return p.template(rest)
	case strings.HasPrefix(rest, "[["):
		return p.wikilink(rest)
	case strings.HasPrefix(rest, "[http") || strings.HasPrefix(rest, "[//"):
		return p.externalLink(rest)
	}
	return false
}

func (p *parser) refTag(rest string) bool {
	m := refOpenRE.FindStringSubmatch(rest)
	if m == nil {
		return false
	}
	ref := RefTag{}
	for _, attr := range attrRE.FindAllStringSubmatch(m[1], -1) {
		value := attr[3] + attr[4] + attr[5]
		switch attr[1] {
		case "name":
			ref.Name = value
		case "group":
			ref.Group = value
		}
	}
	p.flush()
	if m[2] == "/" {
		ref.SelfClosing = true
		p.nodes = append(p.nodes, ref)
		p.pos += len(m[0])
		p.atLineStart = false
		return true
	}
	closing := strings.Index(rest[len(m[0]):], "</ref>")
	if closing < 0 {
		// Unterminated tag; treat the opener as plain text.
		p.buf.WriteString(m[0])
		p.pos += len(m[0])
		p.atLineStart = false
		return true
	}
	inner := rest[len(m[0]) : len(m[0])+closing]
	sub := &parser{src: inner}
	ref.Content = sub.run(false)
	p.nodes = append(p.nodes, ref)
	p.pos += len(m[0]) + closing + len("</ref>")
	p.atLineStart = false
	return true
}

func (p *parser) template(rest string) bool {
	depth := 0
	end := -1
	for i := 0; i < len(rest)-1; i++ {
		switch {
		case rest[i] == '{' && rest[i+1] == '{':
			depth++
			i++
		case rest[i] == '}' && rest[i+1] == '}':
			depth--
			i++
			if depth == 0 {
				end = i + 1
			}
		}
		if end >= 0 {
			break
		}
	}
	if end < 0 {
		return false
	}
	body := rest[2 : end-2]
	parts := splitTopLevel(body)
	tpl := Template{Name: strings.TrimSpace(parts[0])}
	if len(parts) > 1 {
		tpl.Params = parts[1:]
	}
	p.flush()
	p.nodes = append(p.nodes, tpl)
	p.pos += end
	p.atLineStart = false
	return true
}

func (p *parser) wikilink(rest string) bool {
	end := strings.Index(rest, "]]")
	if end < 0 {
		return false
	}
	body := rest[2:end]
	link := Wikilink{Title: body}
	if pipe := strings.Index(body, "|"); pipe >= 0 {
		link.Title = body[:pipe]
		link.Text = body[pipe+1:]
	}
	p.flush()
	p.nodes = append(p.nodes, link)
	p.pos += end + 2
	p.atLineStart = false
	return true
}

func (p *parser) externalLink(rest string) bool {
	end := strings.Index(rest, "]")
	if end < 0 {
		return false
	}
	body := rest[1:end]
	link := ExternalLink{URL: body}
	if space := strings.IndexAny(body, " \t"); space >= 0 {
		link.URL = body[:space]
		link.Text = strings.TrimSpace(body[space+1:])
	}
	p.flush()
	p.nodes = append(p.nodes, link)
	p.pos += end + 1
	p.atLineStart = false
	return true
}

func (p *parser) currentLine() (string, int) {
	end := strings.IndexByte(p.src[p.pos:], '\n')
	if end < 0 {
		return p.src[p.pos:], len(p.src)
	}
	return p.src[p.pos : p.pos+end], p.pos + end + 1
}

func (p *parser) flush() {
	if p.buf.Len() > 0 {
		p.nodes = append(p.nodes, Text{Value: p.buf.String()})
		p.buf.Reset()
	}
}

// splitTopLevel splits template parameters on "|", ignoring pipes nested in
// inner templates or wikilinks.
func splitTopLevel(s string) []string {
	var parts []string
	var braces, brackets int
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '{':
			braces++
		case '}':
			braces--
		case '[':
			brackets++
		case ']':
			brackets--
		case '|':
			if braces == 0 && brackets == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, s[start:])
	return parts
}
