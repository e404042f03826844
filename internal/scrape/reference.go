package scrape

import (
	"strings"

	"github.com/cinekele/twin-cities/internal/wikitext"
)

// NamedReferences maps <ref name="..."> definitions to their parsed content.
// It is built once per page, before relationship parsing.
type NamedReferences map[string]*Reference

// BuildNamedReferences scans every citation tag on a page and records the
// named ones. Tags carrying a group attribute are excluded (grouped footnotes
// are out of scope), as are tags whose content is more than one node
// (ambiguous nested markup).
func BuildNamedReferences(nodes []wikitext.Node) NamedReferences {
	table := make(NamedReferences)
	for _, n := range nodes {
		ref, ok := n.(wikitext.RefTag)
		if !ok || ref.Name == "" || ref.Group != "" {
			continue
		}
		if len(ref.Content) != 1 {
			continue
		}
		if parsed := referenceFromNodes(ref.Content); parsed != nil {
			table[ref.Name] = parsed
		}
	}
	return table
}

// ParseReference extracts a citation record from a ref tag. A named reuse is
// resolved through the table; an unresolvable name yields nil rather than an
// error, and callers skip attaching it.
func ParseReference(tag wikitext.RefTag, table NamedReferences) *Reference {
	if tag.Name != "" {
		return table[tag.Name]
	}
	return referenceFromNodes(tag.Content)
}

func referenceFromNodes(nodes []wikitext.Node) *Reference {
	if len(nodes) == 0 {
		return nil
	}
	first := nodes[0]
	if len(nodes) > 1 {
		// Degenerate markup like "url: http://..." split across nodes.
		if text, ok := first.(wikitext.Text); ok && strings.HasPrefix(strings.TrimSpace(text.Value), "url") {
			return &Reference{URL: nodeString(nodes[1])}
		}
	}
	switch n := first.(type) {
	case wikitext.ExternalLink:
		return &Reference{URL: n.URL}
	case wikitext.Template:
		return referenceFromTemplate(n)
	default:
		return nil
	}
}

func referenceFromTemplate(tpl wikitext.Template) *Reference {
	ref := &Reference{
		URL:        tpl.Param("url"),
		Website:    tpl.Param("website"),
		Title:      tpl.Param("title"),
		Publisher:  tpl.Param("publisher"),
		Language:   tpl.Param("language"),
		AccessDate: tpl.Param("access-date"),
		Date:       tpl.Param("date"),
	}
	if ref.IsZero() {
		return nil
	}
	return ref
}

func nodeString(n wikitext.Node) string {
	switch v := n.(type) {
	case wikitext.Text:
		return strings.TrimSpace(v.Value)
	case wikitext.ExternalLink:
		return v.URL
	case wikitext.Wikilink:
		return v.Display()
	default:
		return ""
	}
}
