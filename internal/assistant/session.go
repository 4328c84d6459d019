package assistant

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"vocode/internal/chat"
	"vocode/internal/command"
	"vocode/internal/llm"
	"vocode/pkg/tokens"
)

const DefaultModel = "gpt-4o"

var (
	ErrEmptyPrompt = errors.New("didn't receive input")
	ErrOverBudget  = errors.New("prompt exceeds the token ceiling")
	ErrUpstream    = errors.New("model call failed")
)

// Dispatcher forwards a classified command to the editor.
type Dispatcher interface {
	Dispatch(c command.Command) error
}

type Config struct {
	Model        string
	Ceiling      int
	SystemPrompt string
	BackupPath   string
}

type Option func(*Session)

// WithEditor attaches the editor transport. Without it commands are
// classified and reported but not sent anywhere.
func WithEditor(d Dispatcher) Option {
	return func(s *Session) { s.editor = d }
}

type Reply struct {
	Text       string
	Command    command.Command
	Dispatched bool
	Tokens     int
}

// Session is one conversation with the model. Turns are serialized.
type Session struct {
	mu sync.Mutex

	id      string
	cfg     Config
	est     chat.Estimator
	history *chat.History
	llm     llm.Completer
	editor  Dispatcher
}

func NewSession(cfg Config, est chat.Estimator, completer llm.Completer, opts ...Option) *Session {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Ceiling <= 0 {
		cfg.Ceiling = chat.DefaultCeiling
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = SystemPrompt()
	}

	s := &Session{
		id:      uuid.NewString(),
		cfg:     cfg,
		est:     est,
		history: chat.NewHistory(chat.System(cfg.SystemPrompt), est, cfg.Model, cfg.Ceiling),
		llm:     completer,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *Session) ID() string { return s.id }

func (s *Session) History() []chat.Message { return s.history.Messages() }

// Ask runs one turn with the full conversation history. The user message
// stays in the history even when the model call fails.
func (s *Session) Ask(ctx context.Context, prompt string) (Reply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return Reply{}, ErrEmptyPrompt
	}

	log.Info("Received prompt", "session", s.id, "prompt", prompt)

	s.history.Append(chat.User(prompt))

	n, err := s.history.Trim()
	if err != nil {
		return Reply{}, err
	}
	if n > s.cfg.Ceiling {
		return Reply{}, fmt.Errorf("%w: %d > %d", ErrOverBudget, n, s.cfg.Ceiling)
	}

	log.Info("Asking model", "session", s.id, "model", s.cfg.Model, "tokens", n, "messages", s.history.Len())

	answer, err := s.llm.Complete(ctx, s.cfg.Model, s.history.Messages())
	if err != nil {
		return Reply{}, fmt.Errorf("%w: %w", ErrUpstream, err)
	}

	s.history.Append(answer)

	reply := s.handle(answer.Content)
	reply.Tokens = n

	if s.cfg.BackupPath != "" {
		if err := writeBackup(s.cfg.BackupPath, s.history.String()); err != nil {
			log.Warn("Failed to write history backup", "path", s.cfg.BackupPath, "err", err)
		}
	}

	return reply, nil
}

// AskOnce sends the prompt on its own, without history or system message,
// and leaves the conversation untouched.
func (s *Session) AskOnce(ctx context.Context, prompt string) (Reply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return Reply{}, ErrEmptyPrompt
	}

	log.Info("Received one-off prompt", "session", s.id, "prompt", prompt)

	question := []chat.Message{chat.User(prompt)}

	n, err := s.est.Estimate([]tokens.Message{{Role: chat.RoleUser, Content: prompt}}, s.cfg.Model)
	if err != nil {
		return Reply{}, err
	}
	if n > s.cfg.Ceiling {
		return Reply{}, fmt.Errorf("%w: %d > %d", ErrOverBudget, n, s.cfg.Ceiling)
	}

	answer, err := s.llm.Complete(ctx, s.cfg.Model, question)
	if err != nil {
		return Reply{}, fmt.Errorf("%w: %w", ErrUpstream, err)
	}

	reply := s.handle(answer.Content)
	reply.Tokens = n
	return reply, nil
}

func (s *Session) handle(answer string) Reply {
	reply := Reply{Text: answer, Command: command.Classify(answer)}

	if !reply.Command.IsCommand() {
		log.Debug("No command detected", "session", s.id)
		return reply
	}

	log.Info("Command detected", "session", s.id, "cmd", reply.Command.Kind.String())

	if s.editor == nil {
		log.Warn("No editor connected, command not sent", "cmd", reply.Command.Kind.Wire())
		return reply
	}

	if err := s.editor.Dispatch(reply.Command); err != nil {
		log.Warn("Editor command dropped", "cmd", reply.Command.Kind.Wire(), "err", err)
		return reply
	}

	reply.Dispatched = true
	return reply
}
