package email

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"
)

// mdRenderer escapes raw HTML in the source (WithUnsafe is not set), so
// customer-supplied text such as names and addresses cannot inject markup.
var mdRenderer = goldmark.New(
	goldmark.WithExtensions(extension.Table),
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

const layoutHead = `<!doctype html><html lang="pt-BR"><head><meta charset="utf-8"></head>` +
	`<body style="font-family:Arial,sans-serif;color:#1f2937;max-width:600px;margin:0 auto">`

const layoutTail = `</body></html>`

// RenderMarkdown converts md into a complete HTML email document.
func RenderMarkdown(md string) (string, error) {
	var buf bytes.Buffer
	buf.WriteString(layoutHead)
	if err := mdRenderer.Convert([]byte(md), &buf); err != nil {
		return "", fmt.Errorf("render email: %w", err)
	}
	buf.WriteString(layoutTail)
	return buf.String(), nil
}
