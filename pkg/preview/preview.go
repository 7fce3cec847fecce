// Package preview renders a short plain-text preview of a downloaded HTML
// page for terminal display.
package preview

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/net/html"
)

// DefaultMaxRunes is the preview length used by the CLI.
const DefaultMaxRunes = 500

// truncationMarker is appended when the preview was cut short.
const truncationMarker = "\n..."

// Text extracts readable text from raw HTML, skipping script/style noise and
// collapsing whitespace, truncated to maxRunes.
func Text(rawHTML string, maxRunes int) (string, error) {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return "", fmt.Errorf("preview: parse html: %w", err)
	}

	var builder strings.Builder
	collectText(doc, &builder)
	text := strings.Join(strings.Fields(builder.String()), " ")

	runes := []rune(text)
	if maxRunes > 0 && len(runes) > maxRunes {
		return string(runes[:maxRunes]) + truncationMarker, nil
	}
	return text, nil
}

// File reads an HTML file and returns its text preview.
func File(path string, maxRunes int) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("preview: read %s: %w", path, err)
	}
	return Text(string(data), maxRunes)
}

func collectText(n *html.Node, builder *strings.Builder) {
	if n.Type == html.CommentNode {
		return
	}
	if n.Type == html.ElementNode && isSkippedElement(strings.ToLower(n.Data)) {
		return
	}
	if n.Type == html.TextNode {
		builder.WriteString(n.Data)
		builder.WriteString(" ")
		return
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		collectText(child, builder)
	}
}

func isSkippedElement(tag string) bool {
	switch tag {
	case "script", "style", "noscript", "template", "iframe", "svg", "head":
		return true
	}
	return false
}
