package markdown

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToHTMLExternalLinksOpenInNewTab(t *testing.T) {
	html := string(ToHTML("[press kit](https://example.com/kit)", Options{RootURL: "https://wchloe.com"}))

	assert.Contains(t, html, `href="https://example.com/kit"`)
	assert.Contains(t, html, `target="_blank"`)
	assert.Contains(t, html, `rel="noopener noreferrer"`)
}

func TestToHTMLRewritesSiteLinks(t *testing.T) {
	html := string(ToHTML("[roster](https://wchloe.com/talent?category=model#top)", Options{
		RootURL: "https://wchloe.com/",
	}))

	assert.Contains(t, html, `href="/talent?category=model#top"`)
	assert.NotContains(t, html, `target="_blank"`)

	html = string(ToHTML("[contact](/contact)", Options{}))
	assert.Contains(t, html, `href="/contact"`)
	assert.NotContains(t, html, `rel=`)
}

func TestSiteRelativeMatchesHostExactly(t *testing.T) {
	cases := []struct {
		href   string
		want   string
		onSite bool
	}{
		{href: "https://agency.co.ke/blog/blog001", want: "/blog/blog001", onSite: true},
		{href: "http://AGENCY.co.ke", want: "/", onSite: true},
		{href: "https://agency.co.ke.evil.com/talent", want: "https://agency.co.ke.evil.com/talent"},
		{href: "https://agency.co.ke@evil.com/talent", want: "https://agency.co.ke@evil.com/talent"},
		{href: "https://evil.com/?next=https://agency.co.ke", want: "https://evil.com/?next=https://agency.co.ke"},
		{href: "//agency.co.ke.evil.com/x", want: "//agency.co.ke.evil.com/x"},
		{href: "/contact", want: "/contact", onSite: true},
	}
	for _, tc := range cases {
		got, onSite := siteRelative(tc.href, "https://agency.co.ke")
		assert.Equal(t, tc.want, got, tc.href)
		assert.Equal(t, tc.onSite, onSite, tc.href)
	}

	html := string(ToHTML("[fake](https://agency.co.ke.evil.com/talent)", Options{RootURL: "https://agency.co.ke"}))
	assert.Contains(t, html, `href="https://agency.co.ke.evil.com/talent"`)
	assert.Contains(t, html, `target="_blank"`)
}

func TestToHTMLHighlightsCodeBlocks(t *testing.T) {
	html := string(ToHTML("```go\nfmt.Println(\"hello\")\n```", Options{}))

	assert.Contains(t, html, `class="chroma"`)
	assert.Contains(t, html, "Println")
}

func TestToHTMLInlineCode(t *testing.T) {
	html := string(ToHTML("Use `<b>` sparingly.", Options{}))
	assert.Contains(t, html, `<code class="inline-code">&lt;b&gt;</code>`)
}

func TestToHTMLDropsRawHTML(t *testing.T) {
	html := string(ToHTML("Hello\n\n<script>alert(1)</script>", Options{}))
	assert.NotContains(t, html, "<script>")
	assert.Empty(t, ToHTML("  ", Options{}))
}

func TestExcerpt(t *testing.T) {
	assert.Equal(t, "alpha beta...", Excerpt("alpha beta gamma delta", 12))
	assert.Equal(t, "Challenges and Opportunities Access to funding",
		Excerpt("## Challenges and Opportunities\n\nAccess to **funding**", 100))
	assert.Equal(t, "see the roster", Excerpt("see [the roster](/talent)", 100))
	assert.Empty(t, Excerpt("anything", 0))
}

func TestReadingMinutes(t *testing.T) {
	assert.Equal(t, 1, ReadingMinutes("short"))
	assert.Equal(t, 2, ReadingMinutes(strings.Repeat("word ", 201)))
}

func TestCodeCSS(t *testing.T) {
	css := string(CodeCSS())
	assert.Contains(t, css, "prefers-color-scheme: light")
	assert.Contains(t, css, "prefers-color-scheme: dark")
}
