// Copyright 2026 NGOClaw Authors
// SPDX-License-Identifier: Apache-2.0

package telegram

import (
	"bytes"
	"html"
	"regexp"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var markdown = goldmark.New()

// MarkdownToTelegramHTML converts report Markdown to Telegram-safe HTML.
// Telegram HTML supports: <b>, <i>, <code>, <pre>, <a href="">. Anything else,
// raw HTML included, is emitted as escaped text so user-controlled chat titles
// can never break the caption markup.
func MarkdownToTelegramHTML(md string) string {
	if md == "" {
		return ""
	}

	src := []byte(md)
	doc := markdown.Parser().Parse(text.NewReader(src))

	var buf bytes.Buffer
	r := &tgHTMLRenderer{src: src}
	r.renderChildren(&buf, doc)

	return strings.TrimRight(buf.String(), "\n")
}

// tgHTMLRenderer walks the goldmark AST and emits Telegram-compatible HTML.
type tgHTMLRenderer struct {
	src []byte
}

func (r *tgHTMLRenderer) renderNode(w *bytes.Buffer, node ast.Node) {
	switch n := node.(type) {
	case *ast.Paragraph, *ast.TextBlock:
		r.renderChildren(w, n)
		w.WriteString("\n\n")

	case *ast.Heading:
		// TG has no heading tags
		w.WriteString("<b>")
		r.renderChildren(w, n)
		w.WriteString("</b>\n\n")

	case *ast.List:
		idx := n.Start
		for item := n.FirstChild(); item != nil; item = item.NextSibling() {
			if n.IsOrdered() {
				w.WriteString(strconv.Itoa(idx))
				w.WriteString(". ")
				idx++
			} else {
				w.WriteString("• ")
			}
			var inner bytes.Buffer
			r.renderChildren(&inner, item)
			w.WriteString(strings.TrimRight(inner.String(), "\n"))
			w.WriteString("\n")
		}
		w.WriteString("\n")

	case *ast.FencedCodeBlock, *ast.CodeBlock:
		w.WriteString("<pre>")
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			w.WriteString(html.EscapeString(string(seg.Value(r.src))))
		}
		w.WriteString("</pre>\n\n")

	case *ast.Text:
		w.WriteString(html.EscapeString(string(n.Segment.Value(r.src))))
		if n.SoftLineBreak() || n.HardLineBreak() {
			w.WriteString("\n")
		}

	case *ast.String:
		w.WriteString(html.EscapeString(string(n.Value)))

	case *ast.CodeSpan:
		w.WriteString("<code>")
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			if t, ok := c.(*ast.Text); ok {
				w.WriteString(html.EscapeString(string(t.Segment.Value(r.src))))
			}
		}
		w.WriteString("</code>")

	case *ast.Emphasis:
		tag := "i"
		if n.Level == 2 {
			tag = "b"
		}
		w.WriteString("<" + tag + ">")
		r.renderChildren(w, n)
		w.WriteString("</" + tag + ">")

	case *ast.Link:
		w.WriteString(`<a href="`)
		w.WriteString(html.EscapeString(string(n.Destination)))
		w.WriteString(`">`)
		r.renderChildren(w, n)
		w.WriteString("</a>")

	case *ast.AutoLink:
		url := html.EscapeString(string(n.URL(r.src)))
		w.WriteString(`<a href="` + url + `">` + url + "</a>")

	case *ast.RawHTML:
		segs := n.Segments
		for i := 0; i < segs.Len(); i++ {
			seg := segs.At(i)
			w.WriteString(html.EscapeString(string(seg.Value(r.src))))
		}

	case *ast.HTMLBlock:
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			w.WriteString(html.EscapeString(string(seg.Value(r.src))))
		}
		w.WriteString("\n")

	default:
		r.renderChildren(w, node)
	}
}

func (r *tgHTMLRenderer) renderChildren(w *bytes.Buffer, node ast.Node) {
	for child := node.FirstChild(); child != nil; child = child.NextSibling() {
		r.renderNode(w, child)
	}
}

var reStripMD = regexp.MustCompile("`[^`]+`|\\*\\*|__|~~|\\[([^]]+)\\]\\([^)]+\\)")

// StripMarkdownForPlaintext removes Markdown markers, leaving plain text.
// Used when Telegram rejects the HTML rendition.
func StripMarkdownForPlaintext(md string) string {
	return reStripMD.ReplaceAllStringFunc(md, func(match string) string {
		switch {
		case strings.HasPrefix(match, "["):
			if idx := strings.Index(match, "]("); idx > 0 {
				return match[1:idx]
			}
			return match
		case strings.HasPrefix(match, "`"):
			return strings.Trim(match, "`")
		default:
			return ""
		}
	})
}
