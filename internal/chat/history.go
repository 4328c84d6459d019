package chat

import (
	"fmt"
	log "log/slog"
	"strings"
	"sync"

	"vocode/pkg/tokens"
)

const DefaultCeiling = 8000

type Estimator interface {
	Estimate(messages []tokens.Message, model string) (int, error)
}

// History is the conversation buffer. Index 0 always holds the system
// message it was created with; Trim evicts from index 1 onward.
type History struct {
	mu       sync.Mutex
	messages []Message
	est      Estimator
	model    string
	ceiling  int
}

func NewHistory(system Message, est Estimator, model string, ceiling int) *History {
	if ceiling <= 0 {
		ceiling = DefaultCeiling
	}
	system.Role = RoleSystem

	return &History{
		messages: []Message{system},
		est:      est,
		model:    model,
		ceiling:  ceiling,
	}
}

func (h *History) Ceiling() int { return h.ceiling }

func (h *History) Model() string { return h.model }

func (h *History) Append(m Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, m)
}

// Trim evicts the oldest non-system message until the estimate fits the
// ceiling or only the system message and one other are left. It returns
// the final estimate, which may still exceed the ceiling in that case.
func (h *History) Trim() (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	n, err := h.estimateLocked()
	if err != nil {
		return 0, err
	}
	log.Debug("History size", "tokens", n, "messages", len(h.messages))

	for n > h.ceiling && len(h.messages) > 2 {
		h.messages = append(h.messages[:1], h.messages[2:]...)

		n, err = h.estimateLocked()
		if err != nil {
			return 0, err
		}
		log.Debug("Evicted message", "tokens", n, "messages", len(h.messages))
	}

	return n, nil
}

func (h *History) Estimate() (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.estimateLocked()
}

func (h *History) estimateLocked() (int, error) {
	n, err := h.est.Estimate(toTokens(h.messages), h.model)
	if err != nil {
		return 0, fmt.Errorf("estimate history: %w", err)
	}
	return n, nil
}

// Messages returns a copy in conversation order.
func (h *History) Messages() []Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Message(nil), h.messages...)
}

func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.messages)
}

func (h *History) String() string {
	h.mu.Lock()
	defer h.mu.Unlock()

	parts := make([]string, len(h.messages))
	for i, m := range h.messages {
		parts[i] = m.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
