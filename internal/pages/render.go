package pages

import (
	"bytes"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Assets are the bundle files a page links to, as URLs relative to the page.
type Assets struct {
	// Scripts are loaded at the end of <body> in order.
	Scripts []string

	// Styles are linked at the end of <head> in order.
	Styles []string

	// Preload are shared chunks the scripts import, hinted in <head> so the
	// browser fetches them in parallel. Only used with Module.
	Preload []string

	// Module loads scripts as ES modules, required when code splitting.
	Module bool
}

// Render injects the asset tags into a page template. A template without
// <head> or <body> gets them from the HTML parser.
func Render(template []byte, assets Assets) ([]byte, error) {
	doc, err := html.Parse(bytes.NewReader(template))
	if err != nil {
		return nil, err
	}

	head := findElement(doc, atom.Head)
	body := findElement(doc, atom.Body)

	for _, href := range assets.Styles {
		head.AppendChild(element(atom.Link,
			html.Attribute{Key: "rel", Val: "stylesheet"},
			html.Attribute{Key: "href", Val: href},
		))
	}

	if assets.Module {
		for _, href := range assets.Preload {
			head.AppendChild(element(atom.Link,
				html.Attribute{Key: "rel", Val: "modulepreload"},
				html.Attribute{Key: "href", Val: href},
			))
		}
	}

	for _, src := range assets.Scripts {
		attrs := []html.Attribute{{Key: "src", Val: src}}
		if assets.Module {
			attrs = append([]html.Attribute{{Key: "type", Val: "module"}}, attrs...)
		} else {
			attrs = append(attrs, html.Attribute{Key: "defer"})
		}
		body.AppendChild(element(atom.Script, attrs...))
	}

	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func element(a atom.Atom, attrs ...html.Attribute) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		DataAtom: a,
		Data:     a.String(),
		Attr:     attrs,
	}
}

// findElement returns the first element with the given atom, depth first.
func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}
