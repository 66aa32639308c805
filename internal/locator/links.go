package locator

import (
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// LinkOptions selects which tables and links of a listing page are kept.
type LinkOptions struct {
	// SkipTables is the number of leading tables to ignore.
	SkipTables int
	// MaxTables caps the tables scanned after the skipped ones; 0 means all.
	MaxTables int
	// Extensions are lower-case suffixes such as ".xls".
	Extensions []string
}

// ExtractLinks parses an HTML document and returns the absolute spreadsheet
// links found in the selected tables, in first-seen document order without
// repeats. Relative hrefs are resolved against base.
func ExtractLinks(r io.Reader, base *url.URL, opts LinkOptions) ([]string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse listing page: %w", err)
	}

	tables := findAll(doc, atom.Table)
	if opts.SkipTables >= len(tables) {
		return nil, nil
	}
	tables = tables[opts.SkipTables:]
	if opts.MaxTables > 0 && len(tables) > opts.MaxTables {
		tables = tables[:opts.MaxTables]
	}

	seen := make(map[string]bool)
	var links []string
	for _, table := range tables {
		for _, a := range findAll(table, atom.A) {
			href := attr(a, "href")
			if href == "" {
				continue
			}
			ref, err := url.Parse(strings.TrimSpace(href))
			if err != nil {
				continue
			}
			if !hasExtension(ref.Path, opts.Extensions) {
				continue
			}
			abs := ref.String()
			if base != nil {
				abs = base.ResolveReference(ref).String()
			}
			if seen[abs] {
				continue
			}
			seen[abs] = true
			links = append(links, abs)
		}
	}
	return links, nil
}

// findAll returns every descendant element of n with the given tag, in
// document order.
func findAll(n *html.Node, tag atom.Atom) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.DataAtom == tag {
				out = append(out, c)
			}
			walk(c)
		}
	}
	walk(n)
	return out
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasExtension(p string, exts []string) bool {
	ext := strings.ToLower(path.Ext(p))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}
