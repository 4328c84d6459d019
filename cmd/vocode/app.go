package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	log "log/slog"
	"strings"
	"time"

	"vocode/internal/assistant"
	"vocode/internal/config"
	"vocode/internal/ipc"
	"vocode/internal/markdown"
	"vocode/internal/tts"
	"vocode/internal/voice"
)

const turnTimeout = 2 * time.Minute

var errQuit = errors.New("quit")

type app struct {
	sess     *assistant.Session
	conf     config.Config
	stt      voice.Transcriber
	listener *voice.Listener
	speak    bool
}

// turn runs one request end to end. Failures are reported and the turn is
// abandoned; nothing here stops the daemon.
func (a *app) turn(ctx context.Context, prompt string, once bool) (assistant.Reply, error) {
	ctx, cancel := context.WithTimeout(ctx, turnTimeout)
	defer cancel()

	var (
		reply assistant.Reply
		err   error
	)
	if once {
		reply, err = a.sess.AskOnce(ctx, prompt)
	} else {
		reply, err = a.sess.Ask(ctx, prompt)
	}

	switch {
	case err == nil:
	case errors.Is(err, assistant.ErrEmptyPrompt):
		log.Warn("Didn't receive input!")
		return reply, err
	case errors.Is(err, assistant.ErrOverBudget):
		log.Error("The prompt is too large for the model", "err", err)
		return reply, err
	default:
		log.Error("Turn failed", "err", err)
		return reply, err
	}

	log.Info("──────── VOCODE ────────")
	log.Info("command:", "kind", reply.Command.Kind.String(), "sent", reply.Dispatched)
	log.Info("tokens: ", "n", reply.Tokens)
	log.Info("────────────────────────")
	fmt.Println(reply.Text)

	if a.speak {
		if err := tts.Speak(markdown.Plain(reply.Text), a.conf.Voice.SpeakLang); err != nil {
			log.Error("Failed to voice out", "err", err)
		}
	}

	return reply, nil
}

// repl reads one prompt per line. "/once <text>" skips the history and
// "/quit" ends the session.
func (a *app) repl(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				// stdin closed; keep serving the control socket
				<-ctx.Done()
				return ctx.Err()
			}

			line = strings.TrimSpace(line)
			switch {
			case line == "":
				continue
			case line == "/quit":
				return errQuit
			case strings.HasPrefix(line, "/once "):
				a.turn(ctx, strings.TrimPrefix(line, "/once "), true)
			default:
				a.turn(ctx, line, false)
			}
		}
	}
}

func (a *app) control(ctx context.Context) ipc.Handler {
	return func(msg ipc.ControlMessage) ipc.Reply {
		log.Debug("Control message", "cmd", msg.Cmd)

		switch msg.Cmd {
		case ipc.CmdAsk:
			return a.replyTurn(ctx, msg.Text)

		case ipc.CmdStart, ipc.CmdStop, ipc.CmdToggle, ipc.CmdListen:
			if a.listener == nil {
				return ipc.Reply{Error: "voice input unavailable"}
			}
			return a.voiceControl(ctx, msg.Cmd)

		default:
			log.Warn("Unknown command", "cmd", msg.Cmd)
			return ipc.Reply{Error: "unknown command " + msg.Cmd}
		}
	}
}

func (a *app) voiceControl(ctx context.Context, cmd string) ipc.Reply {
	var (
		text string
		err  error
	)

	switch cmd {
	case ipc.CmdStart:
		if err := a.listener.Start(); err != nil {
			return ipc.Reply{Error: err.Error()}
		}
		return ipc.Reply{OK: true, Text: voice.Recording.String()}

	case ipc.CmdToggle:
		var started bool
		text, started, err = a.listener.Toggle(ctx)
		if err == nil && started {
			return ipc.Reply{OK: true, Text: voice.Recording.String()}
		}

	case ipc.CmdStop:
		text, err = a.listener.Stop(ctx)

	case ipc.CmdListen:
		text, err = a.listener.Listen(ctx)
	}

	if err != nil {
		if errors.Is(err, voice.ErrNoSpeech) {
			log.Warn("Did not receive any input from your microphone!")
		} else {
			log.Error("Voice capture failed", "err", err)
		}
		return ipc.Reply{Error: err.Error()}
	}

	return a.replyTurn(ctx, text)
}

func (a *app) replyTurn(ctx context.Context, text string) ipc.Reply {
	reply, err := a.turn(ctx, text, false)
	if err != nil {
		return ipc.Reply{Error: err.Error()}
	}
	return ipc.Reply{OK: true, Text: reply.Text}
}
