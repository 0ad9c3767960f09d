package email

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

var whitespace = regexp.MustCompile(`\s+`)

// PlainText renders the readable text of an HTML email body, used as the
// text/plain alternative part.
func PlainText(body string) string {
	doc, err := htmlquery.Parse(strings.NewReader(body))
	if err != nil {
		return ""
	}
	root := htmlquery.FindOne(doc, "//body")
	if root == nil {
		root = doc
	}
	buf := new(bytes.Buffer)
	dig(root, buf)
	return compactWhitespace(buf.String())
}

// Links lists the href of every anchor in an HTML email body.
func Links(body string) []string {
	doc, err := htmlquery.Parse(strings.NewReader(body))
	if err != nil {
		return nil
	}
	var links []string
	for _, a := range htmlquery.Find(doc, "//a[@href]") {
		links = append(links, htmlquery.SelectAttr(a, "href"))
	}
	return links
}

func dig(n *html.Node, buf *bytes.Buffer) {
	if n == nil {
		return
	}
	switch {
	case n.Type == html.ElementNode && (n.Data == "style" || n.Data == "script"):
		return
	case n.Type == html.TextNode:
		buf.WriteString(n.Data)
		buf.WriteByte(' ')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		dig(c, buf)
	}
}

func compactWhitespace(s string) string {
	s = whitespace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
