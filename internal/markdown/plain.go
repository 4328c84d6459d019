package markdown

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var parser = goldmark.New().Parser()

// Plain flattens markdown to the text worth reading out loud. Code blocks
// are dropped, inline markup is stripped, each block becomes one line.
func Plain(src string) string {
	source := []byte(src)
	doc := parser.Parse(text.NewReader(source))

	var (
		lines []string
		cur   strings.Builder
	)

	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			lines = append(lines, s)
		}
		cur.Reset()
	}

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch node := n.(type) {
		case *ast.FencedCodeBlock, *ast.CodeBlock, *ast.HTMLBlock:
			return ast.WalkSkipChildren, nil

		case *ast.Paragraph, *ast.Heading, *ast.TextBlock:
			if !entering {
				flush()
			}

		case *ast.Text:
			if entering {
				cur.Write(node.Segment.Value(source))
				if node.SoftLineBreak() || node.HardLineBreak() {
					cur.WriteByte(' ')
				}
			}

		case *ast.String:
			if entering {
				cur.Write(node.Value)
			}
		}
		return ast.WalkContinue, nil
	})
	flush()

	return strings.Join(lines, "\n")
}
