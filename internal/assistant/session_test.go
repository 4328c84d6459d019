package assistant

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vocode/internal/chat"
	"vocode/internal/command"
	"vocode/pkg/tokens"
)

type wordEncoder struct{}

func (wordEncoder) Count(text string) int { return len(strings.Fields(text)) }

func wordEstimator() *tokens.Estimator {
	return tokens.NewEstimator(tokens.WithLookup(func(string) (tokens.Encoder, error) {
		return wordEncoder{}, nil
	}))
}

type fakeModel struct {
	replies []string
	err     error
	calls   [][]chat.Message
}

func (f *fakeModel) Complete(_ context.Context, _ string, msgs []chat.Message) (chat.Message, error) {
	f.calls = append(f.calls, msgs)
	if f.err != nil {
		return chat.Message{}, f.err
	}
	r := f.replies[0]
	f.replies = f.replies[1:]
	return chat.Assistant(r), nil
}

type fakeEditor struct {
	sent []command.Command
	err  error
}

func (f *fakeEditor) Dispatch(c command.Command) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, c)
	return nil
}

func newSession(model *fakeModel, cfg Config, opts ...Option) *Session {
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = "system rules"
	}
	return NewSession(cfg, wordEstimator(), model, opts...)
}

func TestAskPlainAnswer(t *testing.T) {
	model := &fakeModel{replies: []string{"Sure, here's your answer"}}
	editor := &fakeEditor{}
	s := newSession(model, Config{}, WithEditor(editor))

	reply, err := s.Ask(context.Background(), "what is 2 + 2")
	require.NoError(t, err)

	assert.Equal(t, "Sure, here's your answer", reply.Text)
	assert.Equal(t, command.NoCommand, reply.Command.Kind)
	assert.False(t, reply.Dispatched)
	assert.Empty(t, editor.sent)

	h := s.History()
	require.Len(t, h, 3)
	assert.Equal(t, chat.System("system rules"), h[0])
	assert.Equal(t, chat.User("what is 2 + 2"), h[1])
	assert.Equal(t, chat.Assistant("Sure, here's your answer"), h[2])
}

func TestAskDispatchesCommand(t *testing.T) {
	answer := "CREATE FUNCTION:\nHere it is\n```python\ndef f(): pass\n```"
	model := &fakeModel{replies: []string{answer}}
	editor := &fakeEditor{}
	s := newSession(model, Config{}, WithEditor(editor))

	reply, err := s.Ask(context.Background(), "make f")
	require.NoError(t, err)

	assert.True(t, reply.Dispatched)
	require.Len(t, editor.sent, 1)
	assert.Equal(t, command.CreateFunction, editor.sent[0].Kind)
	assert.Equal(t, "```python\ndef f(): pass\n```", editor.sent[0].Payload)
}

func TestAskEditorFailureIsNotFatal(t *testing.T) {
	model := &fakeModel{replies: []string{"DELETE ROW:\nbye", "ok"}}
	editor := &fakeEditor{err: errors.New("broken pipe")}
	s := newSession(model, Config{}, WithEditor(editor))

	reply, err := s.Ask(context.Background(), "delete it")
	require.NoError(t, err)
	assert.Equal(t, command.DeleteRow, reply.Command.Kind)
	assert.False(t, reply.Dispatched)

	_, err = s.Ask(context.Background(), "next")
	require.NoError(t, err)
	assert.Len(t, s.History(), 5)
}

func TestAskWithoutEditor(t *testing.T) {
	model := &fakeModel{replies: []string{"EDIT ROW:\nfix\nx = 1"}}
	s := newSession(model, Config{})

	reply, err := s.Ask(context.Background(), "fix it")
	require.NoError(t, err)
	assert.Equal(t, command.EditRow, reply.Command.Kind)
	assert.False(t, reply.Dispatched)
}

func TestAskEmptyPrompt(t *testing.T) {
	model := &fakeModel{}
	s := newSession(model, Config{})

	_, err := s.Ask(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyPrompt)
	assert.Len(t, s.History(), 1)
	assert.Empty(t, model.calls)
}

func TestAskUpstreamFailureKeepsUserMessage(t *testing.T) {
	model := &fakeModel{err: errors.New("503")}
	s := newSession(model, Config{})

	_, err := s.Ask(context.Background(), "hello")
	require.ErrorIs(t, err, ErrUpstream)

	h := s.History()
	require.Len(t, h, 2)
	assert.Equal(t, chat.User("hello"), h[1])
}

func TestAskOverBudget(t *testing.T) {
	model := &fakeModel{}
	s := newSession(model, Config{Ceiling: 20})

	_, err := s.Ask(context.Background(), strings.Repeat("word ", 50))
	require.ErrorIs(t, err, ErrOverBudget)
	assert.Empty(t, model.calls)
}

func TestAskTrimsBeforeCalling(t *testing.T) {
	model := &fakeModel{replies: []string{"a b c", "d e f", "g h i"}}
	// system 2 words + one exchange fits, two do not
	s := newSession(model, Config{Ceiling: 4 + 2 + 2*(4+3) + 4 + 3 + 2})

	for _, p := range []string{"one two three", "four five six", "seven eight nine"} {
		_, err := s.Ask(context.Background(), p)
		require.NoError(t, err)
	}

	last := model.calls[len(model.calls)-1]
	assert.Equal(t, chat.System("system rules"), last[0])
	assert.Equal(t, chat.User("seven eight nine"), last[len(last)-1])
	assert.Less(t, len(last), 6)
}

func TestAskWritesBackup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ChatHistoryBackup.txt")
	model := &fakeModel{replies: []string{"first", "second"}}
	s := newSession(model, Config{BackupPath: path})

	_, err := s.Ask(context.Background(), "one")
	require.NoError(t, err)
	_, err = s.Ask(context.Background(), "two")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, s.history.String(), string(data))
	assert.Contains(t, string(data), `'content': "second"`)
}

func TestAskOnceLeavesHistory(t *testing.T) {
	model := &fakeModel{replies: []string{"DELETE ROW:\nremoving"}}
	editor := &fakeEditor{}
	s := newSession(model, Config{}, WithEditor(editor))

	reply, err := s.AskOnce(context.Background(), "delete line")
	require.NoError(t, err)
	assert.True(t, reply.Dispatched)
	assert.Len(t, s.History(), 1)

	require.Len(t, model.calls, 1)
	assert.Equal(t, []chat.Message{chat.User("delete line")}, model.calls[0])
}

func TestAskOnceOverBudget(t *testing.T) {
	model := &fakeModel{}
	s := newSession(model, Config{Ceiling: 10})

	_, err := s.AskOnce(context.Background(), strings.Repeat("x ", 20))
	assert.ErrorIs(t, err, ErrOverBudget)
	assert.Empty(t, model.calls)
}

func TestSystemPromptCarriesMarkers(t *testing.T) {
	p := SystemPrompt()
	for _, k := range []command.Kind{command.CreateFunction, command.EditRow, command.DeleteRow} {
		assert.Contains(t, p, "\n"+k.Marker()+"\n")
	}
}
