// Package htmlrender converts assembled article markdown to HTML.
package htmlrender

import (
	"bytes"
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

// Options controls the HTML output.
type Options struct {
	// Title wraps the body in a standalone document when non-empty.
	Title string
	// WeChat flattens lists and headings into paragraphs, which the WeChat
	// editor otherwise merges or restyles.
	WeChat bool
}

// local_only assets are file:// URLs, which the safe renderer blanks out.
var converter = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithParserOptions(parser.WithAutoHeadingID()),
	goldmark.WithRendererOptions(gmhtml.WithUnsafe()),
)

// Render converts markdown to HTML.
func Render(markdown string, opts Options) (string, error) {
	var buf bytes.Buffer
	if err := converter.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	body := buf.String()
	if opts.WeChat {
		body = flattenForWeChat(body)
	}
	title := strings.TrimSpace(opts.Title)
	if title == "" {
		return body, nil
	}
	var doc strings.Builder
	doc.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	doc.WriteString("<meta name=\"viewport\" content=\"width=device-width, initial-scale=1\">\n")
	fmt.Fprintf(&doc, "<title>%s</title>\n", html.EscapeString(title))
	doc.WriteString("<style>body{max-width:760px;margin:2em auto;padding:0 1em;line-height:1.75}img{max-width:100%;height:auto}</style>\n")
	doc.WriteString("</head>\n<body>\n")
	doc.WriteString(body)
	doc.WriteString("</body>\n</html>\n")
	return doc.String(), nil
}

var (
	orderedList   = regexp.MustCompile(`(?s)<ol[^>]*>(.*?)</ol>`)
	unorderedList = regexp.MustCompile(`(?s)<ul[^>]*>(.*?)</ul>`)
	listItem      = regexp.MustCompile(`(?s)<li[^>]*>(.*?)</li>`)
	heading       = regexp.MustCompile(`(?s)<h([1-6])[^>]*>(.*?)</h[1-6]>`)
)

var headingSizes = map[string]string{"1": "24px", "2": "20px", "3": "18px", "4": "16px", "5": "15px", "6": "14px"}

func flattenForWeChat(body string) string {
	body = orderedList.ReplaceAllStringFunc(body, func(block string) string {
		items := listItem.FindAllStringSubmatch(block, -1)
		var b strings.Builder
		for i, item := range items {
			fmt.Fprintf(&b, "<p>%d. %s</p>\n", i+1, unwrapParagraph(item[1]))
		}
		return b.String()
	})
	body = unorderedList.ReplaceAllStringFunc(body, func(block string) string {
		items := listItem.FindAllStringSubmatch(block, -1)
		var b strings.Builder
		for _, item := range items {
			fmt.Fprintf(&b, "<p>• %s</p>\n", unwrapParagraph(item[1]))
		}
		return b.String()
	})
	return heading.ReplaceAllStringFunc(body, func(block string) string {
		m := heading.FindStringSubmatch(block)
		return fmt.Sprintf(`<p style="font-size:%s;font-weight:bold;margin:1em 0 0.5em">%s</p>`, headingSizes[m[1]], strings.TrimSpace(m[2]))
	})
}

// unwrapParagraph drops the <p> goldmark adds inside loose list items.
func unwrapParagraph(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "<p>")
	s = strings.TrimSuffix(s, "</p>")
	return strings.TrimSpace(s)
}
