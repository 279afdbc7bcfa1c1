// Package markdown renders blog post bodies and builds plain-text excerpts.
package markdown

import (
	stdhtml "html"
	"html/template"
	"io"
	"math"
	"net/url"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	md "github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/ast"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

type Options struct {
	// RootURL is the site's absolute URL. Links into it are rewritten to
	// site-relative paths and stay in the current tab.
	RootURL string
}

const (
	wordsPerMinute = 200
	breakWindow    = 0.8
)

var (
	fencedCodePattern  = regexp.MustCompile("(?s)```.*?```")
	tableRowPattern    = regexp.MustCompile(`(?m)^\|.*\|.*$`)
	imagePattern       = regexp.MustCompile(`!\[.*?\]\(.*?\)`)
	rulePattern        = regexp.MustCompile(`(?m)^---+$`)
	emphasisPattern    = regexp.MustCompile(`(\*{1,3}|_)(.*?)(\*{1,3}|_)`)
	headingPattern     = regexp.MustCompile(`(?m)^#{1,6}\s+(.*?)$`)
	strikePattern      = regexp.MustCompile(`~~(.*?)~~`)
	inlineCodePattern  = regexp.MustCompile("`(.*?)`")
	linkPattern        = regexp.MustCompile(`\[(.*?)\]\(.*?\)`)
	quotePattern       = regexp.MustCompile(`(?m)^\s*>\s*(.*?)$`)
	orderedItemPattern = regexp.MustCompile(`(?m)^\s*\d+\.\s+`)
	htmlTagPattern     = regexp.MustCompile(`<[^>]*>`)
)

// ToHTML renders post markdown. Raw HTML in the source is dropped.
func ToHTML(input string, opts Options) template.HTML {
	if strings.TrimSpace(input) == "" {
		return template.HTML("")
	}

	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	doc := p.Parse([]byte(input))
	rewriteLinks(doc, strings.TrimRight(opts.RootURL, "/"))

	renderer := mdhtml.NewRenderer(mdhtml.RendererOptions{
		Flags:          mdhtml.CommonFlags | mdhtml.SkipHTML,
		RenderNodeHook: renderNodeHook,
	})

	return template.HTML(md.Render(doc, renderer))
}

// Excerpt is the first maxChars runes of the post as plain text, cut at a
// word boundary when one is close.
func Excerpt(input string, maxChars int) string {
	if maxChars < 1 {
		return ""
	}

	clean := PlainText(input)
	if utf8.RuneCountInString(clean) <= maxChars {
		return clean
	}

	return truncateRunes(clean, maxChars)
}

// ReadingMinutes estimates reading time, never less than one minute.
func ReadingMinutes(input string) int {
	words := len(strings.Fields(PlainText(input)))
	return int(math.Max(1, math.Ceil(float64(words)/wordsPerMinute)))
}

func PlainText(source string) string {
	text := source
	for _, pattern := range []*regexp.Regexp{fencedCodePattern, tableRowPattern, imagePattern, rulePattern} {
		text = pattern.ReplaceAllString(text, " ")
	}

	text = emphasisPattern.ReplaceAllString(text, "$2")
	text = headingPattern.ReplaceAllString(text, "\n$1\n")
	text = strikePattern.ReplaceAllString(text, "$1")
	text = inlineCodePattern.ReplaceAllString(text, "$1")
	text = linkPattern.ReplaceAllString(text, "$1")
	text = quotePattern.ReplaceAllString(text, "$1")
	text = orderedItemPattern.ReplaceAllString(text, "- ")
	text = htmlTagPattern.ReplaceAllString(text, "")

	return strings.Join(strings.Fields(text), " ")
}

func truncateRunes(text string, maxChars int) string {
	runes := []rune(text)
	cut := maxChars
	for idx := maxChars - 1; idx >= int(float64(maxChars)*breakWindow); idx-- {
		if unicode.IsSpace(runes[idx]) {
			cut = idx
			break
		}
	}

	truncated := strings.TrimSpace(string(runes[:cut]))
	if truncated == "" {
		truncated = strings.TrimSpace(string(runes[:maxChars]))
	}
	return truncated + "..."
}

func rewriteLinks(doc ast.Node, rootURL string) {
	ast.WalkFunc(doc, func(node ast.Node, entering bool) ast.WalkStatus {
		link, ok := node.(*ast.Link)
		if !entering || !ok {
			return ast.GoToNext
		}

		href, onSite := siteRelative(string(link.Destination), rootURL)
		link.Destination = []byte(href)
		if !onSite {
			link.AdditionalAttributes = externalAttributes(link.AdditionalAttributes)
		}
		return ast.GoToNext
	})
}

func siteRelative(href string, rootURL string) (string, bool) {
	if strings.HasPrefix(href, "/") && !strings.HasPrefix(href, "//") {
		return href, true
	}
	if rootURL == "" {
		return href, false
	}

	root, err := url.Parse(rootURL)
	if err != nil || root.Host == "" {
		return href, false
	}
	parsed, err := url.Parse(href)
	if err != nil || !strings.EqualFold(parsed.Host, root.Host) {
		return href, false
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return href, false
	}
	if base := strings.TrimRight(root.Path, "/"); base != "" &&
		parsed.Path != base && !strings.HasPrefix(parsed.Path, base+"/") {
		return href, false
	}

	relative := parsed.Path
	if relative == "" {
		relative = "/"
	}
	if parsed.RawQuery != "" {
		relative += "?" + parsed.RawQuery
	}
	if parsed.Fragment != "" {
		relative += "#" + parsed.Fragment
	}
	return relative, true
}

func externalAttributes(existing []string) []string {
	attrs := make([]string, 0, len(existing)+2)
	for _, attr := range existing {
		name := strings.ToLower(strings.TrimSpace(attr))
		if strings.HasPrefix(name, "target=") || strings.HasPrefix(name, "rel=") {
			continue
		}
		attrs = append(attrs, attr)
	}
	return append(attrs, `target="_blank"`, `rel="noopener noreferrer"`)
}

func renderNodeHook(writer io.Writer, node ast.Node, entering bool) (ast.WalkStatus, bool) {
	if !entering {
		return ast.GoToNext, false
	}

	switch typed := node.(type) {
	case *ast.CodeBlock:
		renderCodeBlock(writer, typed)
		return ast.SkipChildren, true
	case *ast.Code:
		_, _ = io.WriteString(writer, `<code class="inline-code">`+stdhtml.EscapeString(string(typed.Literal))+`</code>`)
		return ast.SkipChildren, true
	}
	return ast.GoToNext, false
}

func renderCodeBlock(writer io.Writer, block *ast.CodeBlock) {
	code := string(block.Literal)
	lexer := pickLexer(codeLanguage(block.Info), code)

	iterator, err := lexer.Tokenise(nil, code)
	if err == nil {
		formatter := chromahtml.New(chromahtml.WithClasses(true))
		if err = formatter.Format(writer, styles.Fallback, iterator); err == nil {
			return
		}
	}

	_, _ = io.WriteString(writer, `<pre class="chroma"><code>`+stdhtml.EscapeString(code)+`</code></pre>`)
}

func pickLexer(language string, code string) chroma.Lexer {
	if language != "" {
		if lexer := lexers.Get(language); lexer != nil {
			return lexer
		}
	}
	if lexer := lexers.Analyse(code); lexer != nil {
		return lexer
	}
	return lexers.Fallback
}

func codeLanguage(info []byte) string {
	fields := strings.Fields(string(info))
	if len(fields) == 0 {
		return ""
	}
	return strings.ToLower(fields[0])
}
