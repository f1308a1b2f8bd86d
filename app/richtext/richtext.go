// Package richtext sanitizes the HTML produced by the post editor and
// derives plain-text excerpts from it.
package richtext

import (
	"net/url"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var allowedElements = map[atom.Atom]bool{
	atom.P: true, atom.Br: true, atom.H1: true, atom.H2: true, atom.H3: true,
	atom.Strong: true, atom.B: true, atom.Em: true, atom.I: true, atom.U: true,
	atom.S: true, atom.Strike: true, atom.Blockquote: true, atom.Pre: true,
	atom.Code: true, atom.Ol: true, atom.Ul: true, atom.Li: true, atom.A: true,
	atom.Img: true, atom.Span: true,
}

// dropped elements lose their content too.
var droppedElements = map[atom.Atom]bool{
	atom.Script: true, atom.Style: true, atom.Iframe: true, atom.Object: true,
	atom.Embed: true, atom.Noscript: true, atom.Template: true, atom.Title: true,
	atom.Textarea: true, atom.Select: true,
}

var voidElements = map[atom.Atom]bool{atom.Br: true, atom.Img: true}

var blockElements = map[atom.Atom]bool{
	atom.P: true, atom.Br: true, atom.H1: true, atom.H2: true, atom.H3: true,
	atom.Blockquote: true, atom.Pre: true, atom.Li: true, atom.Div: true,
}

func parse(markup string) []*html.Node {
	ctx := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(markup), ctx)
	if err != nil {
		return []*html.Node{{Type: html.TextNode, Data: markup}}
	}
	return nodes
}

// Sanitize keeps the editor's formatting elements and safe attributes and
// escapes or drops everything else.
func Sanitize(markup string) string {
	var b strings.Builder
	for _, n := range parse(markup) {
		writeNode(&b, n)
	}
	return b.String()
}

func writeNode(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(html.EscapeString(n.Data))
		return
	case html.ElementNode:
	default:
		return
	}

	if droppedElements[n.DataAtom] {
		return
	}
	allowed := allowedElements[n.DataAtom]
	if allowed {
		b.WriteByte('<')
		b.WriteString(n.Data)
		for _, attr := range keepAttrs(n) {
			b.WriteByte(' ')
			b.WriteString(attr.Key)
			b.WriteString(`="`)
			b.WriteString(html.EscapeString(attr.Val))
			b.WriteByte('"')
		}
		b.WriteByte('>')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeNode(b, c)
	}
	if allowed && !voidElements[n.DataAtom] {
		b.WriteString("</")
		b.WriteString(n.Data)
		b.WriteByte('>')
	}
}

func keepAttrs(n *html.Node) []html.Attribute {
	var kept []html.Attribute
	for _, attr := range n.Attr {
		if attr.Namespace != "" {
			continue
		}
		key := strings.ToLower(attr.Key)
		switch {
		case key == "class" && editorClass(attr.Val):
			kept = append(kept, html.Attribute{Key: key, Val: attr.Val})
		case key == "href" && n.DataAtom == atom.A:
			if v, ok := safeURL(attr.Val, true); ok {
				kept = append(kept, html.Attribute{Key: key, Val: v})
			}
		case key == "src" && n.DataAtom == atom.Img:
			if v, ok := safeURL(attr.Val, false); ok {
				kept = append(kept, html.Attribute{Key: key, Val: v})
			}
		case (key == "alt" && n.DataAtom == atom.Img) || (key == "title" && n.DataAtom == atom.A):
			kept = append(kept, html.Attribute{Key: key, Val: attr.Val})
		}
	}
	return kept
}

func editorClass(v string) bool {
	classes := strings.Fields(v)
	if len(classes) == 0 {
		return false
	}
	for _, c := range classes {
		if !strings.HasPrefix(c, "ql-") {
			return false
		}
	}
	return true
}

// SafeImageURL returns the trimmed URL when it is relative or uses http or
// https.
func SafeImageURL(raw string) (string, bool) {
	return safeURL(raw, false)
}

func safeURL(raw string, allowMailto bool) (string, bool) {
	v := strings.TrimSpace(raw)
	if v == "" || strings.HasPrefix(v, "//") {
		return "", false
	}
	u, err := url.Parse(v)
	if err != nil {
		return "", false
	}
	switch strings.ToLower(u.Scheme) {
	case "":
		return v, true
	case "http", "https":
		return v, true
	case "mailto":
		return v, allowMailto
	}
	return "", false
}

// PlainText strips all markup and collapses whitespace.
func PlainText(markup string) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
		case html.ElementNode:
			if droppedElements[n.DataAtom] {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && blockElements[n.DataAtom] {
			b.WriteByte(' ')
		}
	}
	for _, n := range parse(markup) {
		walk(n)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// IsBlank reports whether markup shows nothing: no text and no image.
func IsBlank(markup string) bool {
	if PlainText(markup) != "" {
		return false
	}
	var hasImage bool
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Img {
			hasImage = true
			return
		}
		for c := n.FirstChild; c != nil && !hasImage; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range parse(markup) {
		walk(n)
	}
	return !hasImage
}

// Excerpt returns the first n runes of the plain text, followed by "..."
// when the text was cut.
func Excerpt(markup string, n int) string {
	text := PlainText(markup)
	if n <= 0 || utf8.RuneCountInString(text) <= n {
		return text
	}
	runes := []rune(text)
	return strings.TrimRight(string(runes[:n]), " ") + "..."
}
