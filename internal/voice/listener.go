package voice

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"strings"
	"sync"
	"time"
)

var (
	ErrAlreadyRecording = errors.New("already recording")
	ErrNotRecording     = errors.New("not recording")
	ErrNoSpeech         = errors.New("no speech detected")
	ErrBusy             = errors.New("recording cannot be stopped now")
)

type State uint

const (
	Idle State = iota
	Recording
)

func (s State) String() string {
	if s == Recording {
		return "recording"
	}
	return "idle"
}

type Recorder interface {
	RecordUntil(stop <-chan struct{}, maxDur time.Duration) ([]float32, error)
	RecordUtterance(maxDur time.Duration) ([]float32, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, pcm []float32) (string, error)
}

type capture struct {
	pcm []float32
	err error
}

// Listener drives one recording at a time: Start moves Idle to Recording
// and spawns the capture task, Stop signals it and returns the transcript.
// stop is nil while Recording when the capture cannot be stopped: during
// Listen, or after Stop already signalled it.
type Listener struct {
	mu    sync.Mutex
	state State
	stop  chan struct{}
	done  chan capture

	rec     Recorder
	stt     Transcriber
	maxDur  time.Duration
	OnStart func()
}

func NewListener(rec Recorder, stt Transcriber, maxDur time.Duration) *Listener {
	return &Listener{rec: rec, stt: stt, maxDur: maxDur}
}

func (l *Listener) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *Listener) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state == Recording {
		return ErrAlreadyRecording
	}

	l.state = Recording
	l.stop = make(chan struct{})
	l.done = make(chan capture, 1)

	if l.OnStart != nil {
		l.OnStart()
	}
	log.Info("Listening...")

	go func(stop <-chan struct{}, done chan<- capture) {
		pcm, err := l.rec.RecordUntil(stop, l.maxDur)
		done <- capture{pcm: pcm, err: err}
	}(l.stop, l.done)

	return nil
}

// Stop ends the current recording and transcribes it. The listener is
// back to Idle whether or not transcription succeeds. If ctx ends first the
// listener stays Recording until the capture task has returned.
func (l *Listener) Stop(ctx context.Context) (string, error) {
	l.mu.Lock()
	if l.state != Recording {
		l.mu.Unlock()
		return "", ErrNotRecording
	}
	if l.stop == nil {
		l.mu.Unlock()
		return "", ErrBusy
	}
	close(l.stop)
	l.stop = nil
	done := l.done
	l.mu.Unlock()

	var c capture
	select {
	case c = <-done:
	case <-ctx.Done():
		go func() {
			<-done
			l.reset()
		}()
		return "", ctx.Err()
	}
	l.reset()

	if c.err != nil {
		return "", fmt.Errorf("record: %w", c.err)
	}

	log.Info("Recorded", "samples", len(c.pcm))
	return l.transcribe(ctx, c.pcm)
}

// Toggle starts a recording when idle and stops it otherwise. started
// reports which of the two happened.
func (l *Listener) Toggle(ctx context.Context) (text string, started bool, err error) {
	if l.State() == Idle {
		return "", true, l.Start()
	}
	text, err = l.Stop(ctx)
	return text, false, err
}

// Listen records a single utterance, ending on silence.
func (l *Listener) Listen(ctx context.Context) (string, error) {
	l.mu.Lock()
	if l.state == Recording {
		l.mu.Unlock()
		return "", ErrAlreadyRecording
	}
	l.state = Recording
	if l.OnStart != nil {
		l.OnStart()
	}
	l.mu.Unlock()

	pcm, err := l.rec.RecordUtterance(l.maxDur)
	l.reset()
	if err != nil {
		return "", fmt.Errorf("record: %w", err)
	}

	return l.transcribe(ctx, pcm)
}

func (l *Listener) reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state = Idle
	l.stop = nil
	l.done = nil
}

func (l *Listener) transcribe(ctx context.Context, pcm []float32) (string, error) {
	if len(pcm) == 0 {
		return "", ErrNoSpeech
	}

	text, err := l.stt.Transcribe(ctx, pcm)
	if err != nil {
		return "", fmt.Errorf("transcribe: %w", err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrNoSpeech
	}

	log.Info("Transcribed", "text", text)
	return text, nil
}
