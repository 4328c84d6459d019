package command

import (
	"fmt"
	"strings"
)

type Kind uint

const (
	NoCommand Kind = iota
	CreateFunction
	EditRow
	DeleteRow
)

// Wire names understood by the editor listener.
const (
	WireInsertCode = "insertGeneratedCode"
	WireEditLine   = "editLine"
	WireDeleteLine = "deleteLine"
)

type grammar struct {
	kind       Kind
	marker     string
	wire       string
	hasPayload bool
	example    string
}

// table is checked top to bottom. The system prompt is rendered from it
// too, so the model is told exactly the markers Classify accepts.
var table = []grammar{
	{CreateFunction, "CREATE FUNCTION:", WireInsertCode, true, "Here's a function that generates random names..."},
	{EditRow, "EDIT ROW:", WireEditLine, true, "I'll modify the current line to fix the syntax error."},
	{DeleteRow, "DELETE ROW:", WireDeleteLine, false, "I'll delete the currently selected line in the editor."},
}

func lookup(k Kind) (grammar, bool) {
	for _, g := range table {
		if g.kind == k {
			return g, true
		}
	}
	return grammar{}, false
}

func (k Kind) String() string {
	switch k {
	case CreateFunction:
		return "CreateFunction"
	case EditRow:
		return "EditRow"
	case DeleteRow:
		return "DeleteRow"
	default:
		return "NoCommand"
	}
}

func (k Kind) Marker() string {
	g, _ := lookup(k)
	return g.marker
}

// Wire returns the editor command name, or "" for NoCommand.
func (k Kind) Wire() string {
	g, _ := lookup(k)
	return g.wire
}

func (k Kind) HasPayload() bool {
	g, _ := lookup(k)
	return g.hasPayload
}

// FromWire maps an editor command name back to its Kind.
func FromWire(name string) (Kind, bool) {
	for _, g := range table {
		if g.wire == name {
			return g.kind, true
		}
	}
	return NoCommand, false
}

type Command struct {
	Kind        Kind
	Explanation string
	Payload     string
}

func (c Command) IsCommand() bool { return c.Kind != NoCommand }

// Content is the payload forwarded to the editor; nil when the command
// carries none.
func (c Command) Content() *string {
	if !c.Kind.HasPayload() {
		return nil
	}
	p := c.Payload
	return &p
}

func (c Command) String() string {
	return fmt.Sprintf("%s(%q)", c.Kind, c.Payload)
}

// Classify matches the first line of a model response against the command
// markers. The match is exact and case sensitive; anything else is
// NoCommand. Line 1 is the explanation, lines 2.. are the payload.
func Classify(response string) Command {
	text := strings.TrimSpace(response)
	if text == "" {
		return Command{Kind: NoCommand}
	}

	lines := strings.Split(text, "\n")
	first := strings.TrimSpace(lines[0])

	for _, g := range table {
		if first != g.marker {
			continue
		}

		cmd := Command{Kind: g.kind}
		if len(lines) > 1 {
			cmd.Explanation = strings.TrimSpace(lines[1])
		}
		if g.hasPayload && len(lines) > 2 {
			cmd.Payload = strings.Join(lines[2:], "\n")
		}
		return cmd
	}

	return Command{Kind: NoCommand}
}
