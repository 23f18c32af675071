// Package markup converts the catalog's lightweight BBCode markup into markdown.
package markup

import (
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/frustra/bbcode"
)

// Normalizer converts raw BBCode descriptions to plain markdown text in two
// stages: BBCode to HTML, then HTML to markdown. Safe for concurrent use.
type Normalizer struct {
	compiler bbcode.Compiler
}

// NewNormalizer creates a normalizer with auto-closed tags and unmatched
// closing tags ignored, which matches how lenient the upstream renderer is.
func NewNormalizer() *Normalizer {
	return &Normalizer{
		compiler: bbcode.NewCompiler(true, true),
	}
}

// Normalize converts raw markup to markdown.
// If either conversion stage fails the input is returned unchanged; a
// description with stray tags beats a dropped item.
func (n *Normalizer) Normalize(raw string) string {
	if raw == "" {
		return ""
	}

	html := n.compiler.Compile(raw)

	markdown, err := htmltomarkdown.ConvertString(html)
	if err != nil {
		return raw
	}
	return strings.TrimSpace(markdown)
}
