package markdown

import (
	"bytes"
	"html/template"
	"strings"
	"sync"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/styles"
)

// CodeCSS is the stylesheet for highlighted code blocks: "github" for light
// schemes and "monokai" for dark ones.
var CodeCSS = sync.OnceValue(func() template.CSS {
	var out strings.Builder
	for _, scheme := range []struct{ media, style string }{
		{"light", "github"},
		{"dark", "monokai"},
	} {
		css := styleCSS(scheme.style)
		if css == "" {
			continue
		}
		out.WriteString("@media (prefers-color-scheme: " + scheme.media + ") {\n")
		out.WriteString(css)
		out.WriteString("}\n")
	}
	return template.CSS(out.String())
})

func styleCSS(name string) string {
	style := styles.Get(name)
	if style == nil {
		style = styles.Fallback
	}

	var buffer bytes.Buffer
	if err := chromahtml.New(chromahtml.WithClasses(true)).WriteCSS(&buffer, style); err != nil {
		return ""
	}
	return buffer.String()
}
