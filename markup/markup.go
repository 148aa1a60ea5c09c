// Package markup renders user supplied markdown into sanitized HTML.
package markup

import (
	"bytes"
	"fmt"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

type Renderer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

func NewRenderer() *Renderer {
	policy := bluemonday.UGCPolicy()
	policy.AddTargetBlankToFullyQualifiedLinks(true)
	policy.RequireNoReferrerOnLinks(true)

	return &Renderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(
				html.WithHardWraps(),
				html.WithXHTML(),
			),
		),
		policy: policy,
	}
}

// Render converts markdown to HTML that is safe to embed in a page.
func (r *Renderer) Render(source string) (string, error) {
	var buf bytes.Buffer

	err := r.md.Convert([]byte(source), &buf)
	if err != nil {
		return "", fmt.Errorf("failed to convert markdown: %w", err)
	}

	return string(r.policy.SanitizeBytes(buf.Bytes())), nil
}
