package extract

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// htmlNode adapts a goquery selection holding exactly one node.
type htmlNode struct {
	sel *goquery.Selection
}

// FromHTML parses rawHTML and returns its document node.
func FromHTML(rawHTML string) (Node, error) {
	root, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("extract: parse html: %w", err)
	}
	doc := goquery.NewDocumentFromNode(root)
	return &htmlNode{sel: doc.Selection}, nil
}

func (n *htmlNode) QueryAll(selector string) ([]Node, error) {
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("extract: invalid selector %q: %w", selector, err)
	}
	found := n.sel.FindMatcher(sel)
	nodes := make([]Node, 0, found.Length())
	found.Each(func(_ int, s *goquery.Selection) {
		nodes = append(nodes, &htmlNode{sel: s})
	})
	return nodes, nil
}

func (n *htmlNode) Text() (string, error) {
	return n.sel.Text(), nil
}
