package markdown

import "strings"

const (
	fence       = "```"
	languageTag = "python"
)

// ExtractCode returns the body of the first fenced code block in text.
// A bare "python" line right after the opening fence is treated as a
// language tag and dropped. Text without a fence yields "". If the block
// is never closed, the lines collected up to the end of text are returned.
func ExtractCode(text string) string {
	if text == "" {
		return ""
	}

	var (
		code    []string
		inBlock bool
	)

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, fence) {
			if inBlock {
				break
			}
			inBlock = true
			continue
		}

		if !inBlock {
			continue
		}

		if len(code) == 0 && strings.EqualFold(trimmed, languageTag) {
			continue
		}
		code = append(code, line)
	}

	return strings.Join(code, "\n")
}
