package htmlrender_test

import (
	"strings"
	"testing"

	"vidpress/internal/htmlrender"
)

const article = "# Title\n\nIntro with https://example.com link.\n\n## Part\n\nNow watch.\n\n![demo](file:///tmp/a.jpg)\n\n| a | b |\n|---|---|\n| 1 | 2 |\n\n1. first\n2. second\n\n- dot\n"

func TestRenderFragment(t *testing.T) {
	out, err := htmlrender.Render(article, htmlrender.Options{})
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	for _, want := range []string{
		`<h1 id="title">Title</h1>`,
		`<img src="file:///tmp/a.jpg" alt="demo">`,
		`<a href="https://example.com">https://example.com</a>`,
		"<table>",
		"<ol>",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
	if strings.Contains(out, "<html>") {
		t.Fatal("fragment should not be wrapped")
	}
}

func TestRenderStandaloneEscapesTitle(t *testing.T) {
	out, err := htmlrender.Render("body", htmlrender.Options{Title: "A & <B>"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "<!DOCTYPE html>") || !strings.Contains(out, "<title>A &amp; &lt;B&gt;</title>") {
		t.Fatalf("unexpected document:\n%s", out)
	}
}

func TestRenderWeChatFlattensListsAndHeadings(t *testing.T) {
	out, err := htmlrender.Render(article, htmlrender.Options{WeChat: true})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out, "<ol>") || strings.Contains(out, "<ul>") || strings.Contains(out, "<h2") {
		t.Fatalf("expected lists and headings flattened:\n%s", out)
	}
	for _, want := range []string{"<p>1. first</p>", "<p>2. second</p>", "<p>• dot</p>", `font-size:20px;font-weight:bold;margin:1em 0 0.5em">Part</p>`} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}
