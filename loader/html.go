package loader

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// SelectText parses an HTML document and returns the text of every element
// whose tag is in selectors, in document order, one block per element
// separated by blank lines. Script and style contents are ignored.
func SelectText(r io.Reader, selectors map[string]bool) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	var blocks []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "template":
				return
			}
			if selectors[n.Data] {
				if t := textContent(n); t != "" {
					blocks = append(blocks, t)
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return strings.Join(blocks, "\n\n"), nil
}

// StripHTML returns the visible text of an HTML fragment with runs of
// whitespace collapsed to single spaces. Input that is not HTML is returned
// with whitespace collapsed.
func StripHTML(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return collapseSpace(s)
	}

	nodes, err := html.ParseFragment(strings.NewReader(s), &html.Node{
		Type:     html.ElementNode,
		Data:     "body",
		DataAtom: atom.Body,
	})
	if err != nil {
		return collapseSpace(s)
	}

	var buf strings.Builder
	for _, n := range nodes {
		collectText(n, &buf)
		buf.WriteByte(' ')
	}
	return collapseSpace(buf.String())
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	collectText(n, &buf)
	return collapseSpace(buf.String())
}

func collectText(n *html.Node, buf *strings.Builder) {
	switch {
	case n.Type == html.TextNode:
		buf.WriteString(n.Data)
		return
	case n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style"):
		return
	case n.Type == html.ElementNode && n.Data == "br":
		buf.WriteByte(' ')
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, buf)
	}
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
