package command

import "strings"

// Rules renders the command format section of the system prompt.
func Rules() string {
	var b strings.Builder

	b.WriteString("When modifying code, you MUST start your response with EXACTLY one of these commands on its own line:\n\n")
	for _, g := range table {
		b.WriteString(g.marker)
		b.WriteString("\n")
	}

	b.WriteString("\nCORRECT FORMAT EXAMPLES:\n")
	for _, g := range table {
		b.WriteString("\n")
		b.WriteString(g.marker)
		b.WriteString("\n")
		b.WriteString(g.example)
		b.WriteString("\n")
		if g.hasPayload {
			b.WriteString("[code follows in a fenced block]\n")
		} else {
			b.WriteString("[no code needed after this command]\n")
		}
	}

	b.WriteString(`
INCORRECT FORMAT EXAMPLES:
- "Let me delete that line for you..."
- "### Command: Delete row"
- "DELETE LINE: Let me help"
- Any command with extra text on the same line

Remember:
- Commands must be EXACT and on their own line
- Always explain what you're doing on the line right after the command
`)

	for _, g := range table {
		if !g.hasPayload {
			b.WriteString("- For ")
			b.WriteString(g.marker)
			b.WriteString(" no code should follow, only the explanation\n")
		}
	}

	return b.String()
}
