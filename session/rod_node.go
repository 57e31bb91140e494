package session

import (
	"github.com/go-rod/rod"
	"github.com/use-agent/pokedex/extract"
)

// rodDocument exposes a live page as an extract.Node. Queries run inside
// the page, so text is the browser's rendered innerText.
type rodDocument struct {
	page *rod.Page
}

func (d *rodDocument) QueryAll(selector string) ([]extract.Node, error) {
	els, err := d.page.Elements(selector)
	if err != nil {
		return nil, err
	}
	return wrapElements(els), nil
}

func (d *rodDocument) Text() (string, error) {
	res, err := d.page.Eval(`() => document.documentElement.innerText`)
	if err != nil {
		return "", err
	}
	return res.Value.Str(), nil
}

type rodElement struct {
	el *rod.Element
}

func (e *rodElement) QueryAll(selector string) ([]extract.Node, error) {
	els, err := e.el.Elements(selector)
	if err != nil {
		return nil, err
	}
	return wrapElements(els), nil
}

func (e *rodElement) Text() (string, error) {
	return e.el.Text()
}

func wrapElements(els rod.Elements) []extract.Node {
	nodes := make([]extract.Node, 0, len(els))
	for _, el := range els {
		nodes = append(nodes, &rodElement{el: el})
	}
	return nodes
}
