package chat

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vocode/pkg/tokens"
)

type wordEncoder struct{}

func (wordEncoder) Count(text string) int { return len(strings.Fields(text)) }

func wordEstimator() *tokens.Estimator {
	return tokens.NewEstimator(tokens.WithLookup(func(string) (tokens.Encoder, error) {
		return wordEncoder{}, nil
	}))
}

func words(n int, tag string) string {
	return strings.TrimSpace(strings.Repeat(tag+" ", n))
}

func TestHistoryAppendKeepsOrder(t *testing.T) {
	h := NewHistory(System("sys"), wordEstimator(), "gpt-4o", 0)
	h.Append(User("a"))
	h.Append(Assistant("b"))
	h.Append(User("a"))

	got := h.Messages()
	require.Len(t, got, 4)
	assert.Equal(t, []Role{RoleSystem, RoleUser, RoleAssistant, RoleUser},
		[]Role{got[0].Role, got[1].Role, got[2].Role, got[3].Role})
	assert.Equal(t, DefaultCeiling, h.Ceiling())
}

func TestHistoryTrimUnderCeilingIsNoop(t *testing.T) {
	h := NewHistory(System("sys"), wordEstimator(), "gpt-4o", 100)
	h.Append(User("hello"))

	n, err := h.Trim()
	require.NoError(t, err)
	assert.Equal(t, 4*2+2+2, n)
	assert.Equal(t, 2, h.Len())
}

func TestHistoryTrimEvictsOldestNonSystem(t *testing.T) {
	// every message costs 4 + 10
	h := NewHistory(System(words(10, "s")), wordEstimator(), "gpt-4o", 14*3+2)
	for i := 0; i < 4; i++ {
		h.Append(User(words(10, fmt.Sprintf("m%d", i))))
	}

	n, err := h.Trim()
	require.NoError(t, err)
	assert.LessOrEqual(t, n, h.Ceiling())

	got := h.Messages()
	require.Len(t, got, 3)
	assert.Equal(t, words(10, "s"), got[0].Content)
	assert.Equal(t, words(10, "m2"), got[1].Content)
	assert.Equal(t, words(10, "m3"), got[2].Content)
}

func TestHistoryTrimStopsAtLastMessage(t *testing.T) {
	h := NewHistory(System("sys"), wordEstimator(), "gpt-4o", 50)
	h.Append(User("small"))
	h.Append(User(words(500, "big")))

	n, err := h.Trim()
	require.NoError(t, err)
	assert.Greater(t, n, h.Ceiling())

	got := h.Messages()
	require.Len(t, got, 2)
	assert.Equal(t, RoleSystem, got[0].Role)
	assert.Equal(t, words(500, "big"), got[1].Content)
}

func TestHistoryTrimEstimatorError(t *testing.T) {
	boom := errors.New("boom")
	est := tokens.NewEstimator(tokens.WithLookup(func(string) (tokens.Encoder, error) {
		return nil, boom
	}))
	h := NewHistory(System("sys"), est, "gpt-4o", 0)
	h.Append(User("x"))

	_, err := h.Trim()
	require.Error(t, err)

	var unsupported *tokens.UnsupportedModelError
	assert.ErrorAs(t, err, &unsupported)
	assert.Equal(t, 2, h.Len())
}

func TestHistoryLongConversationStaysBounded(t *testing.T) {
	system := System(words(200, "rules"))
	h := NewHistory(system, wordEstimator(), "gpt-4o", 8000)

	for i := 0; i < 50; i++ {
		h.Append(User(words(300, fmt.Sprintf("q%d", i))))
		n, err := h.Trim()
		require.NoError(t, err)
		require.LessOrEqual(t, n, 8000)

		h.Append(Assistant(words(300, fmt.Sprintf("a%d", i))))
		n, err = h.Trim()
		require.NoError(t, err)
		require.LessOrEqual(t, n, 8000)

		require.Equal(t, system, h.Messages()[0])
	}

	got := h.Messages()
	assert.Equal(t, words(300, "a49"), got[len(got)-1].Content)
	assert.Equal(t, words(300, "q49"), got[len(got)-2].Content)
}

func TestHistoryString(t *testing.T) {
	h := NewHistory(System("be nice"), wordEstimator(), "gpt-4o", 0)
	h.Append(User(`say "hi"`))

	assert.Equal(t,
		`[{'role': "system", 'content': "be nice"}, {'role': "user", 'content': "say \"hi\""}]`,
		h.String())
}
