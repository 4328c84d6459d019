package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	cli "github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/lmittmann/tint"
	log "log/slog"

	"vocode/internal/assistant"
	"vocode/internal/config"
	"vocode/internal/editor"
	"vocode/internal/ipc"
	"vocode/internal/llm"
	"vocode/internal/notify"
	"vocode/internal/proxy"
	"vocode/internal/voice"
	"vocode/pkg/stt"
	"vocode/pkg/tokens"
)

var logLevelMap = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

func main() {
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	logLevel := cli.StringP("log", "l", "info", "Log level")
	proxyAddr := cli.StringP("proxy", "p", "", "Socks proxy address for the model API")
	audioFile := cli.StringP("file", "f", "", "Transcribe an audio file, ask it and exit")
	ask := cli.StringP("ask", "a", "", "Ask a single prompt and exit")
	once := cli.Bool("once", false, "Send --ask/--file prompts without conversation history")
	noVoice := cli.Bool("no-voice", false, "Disable microphone and speech output")
	cli.Parse()

	log.SetDefault(log.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level:      logLevelMap[*logLevel],
		TimeFormat: time.Kitchen,
	})))

	log.Info("Booting up")

	if err := godotenv.Load(*envFile); err != nil {
		log.Debug("No env file loaded", "path", *envFile, "err", err)
	}

	conf, err := config.Read()
	if err != nil {
		log.Error("Failed to read config", "err", err)
		os.Exit(1)
	}
	if *proxyAddr != "" {
		conf.LLM.Proxy = *proxyAddr
	}
	log.Debug("Loaded config", "config", conf)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	httpClient, err := proxy.NewHTTPClient(conf.LLM.Proxy)
	if err != nil {
		log.Error("Failed to dial socks proxy", "proxy", conf.LLM.Proxy, "err", err)
		os.Exit(1)
	}

	completer, err := llm.New(llm.Options{
		Provider:   conf.LLM.Provider,
		APIKey:     conf.LLM.APIKey,
		BaseURL:    conf.LLM.BaseURL,
		HTTPClient: httpClient,
	})
	if err != nil {
		log.Error("Failed to init model client", "err", err)
		os.Exit(1)
	}

	var opts []assistant.Option
	dialCtx, dialCancel := context.WithTimeout(ctx, 5*time.Second)
	ed, err := editor.Connect(dialCtx, conf.Editor.URL)
	dialCancel()
	if err != nil {
		log.Warn("Editor not reachable, commands will not be sent", "err", err)
	} else {
		defer ed.Close()
		opts = append(opts, assistant.WithEditor(ed))
	}

	sess := assistant.NewSession(assistant.Config{
		Model:      conf.LLM.Model,
		Ceiling:    conf.Chat.Ceiling,
		BackupPath: conf.Chat.BackupFile,
	}, tokens.NewEstimator(), completer, opts...)

	log.Info("Session ready", "session", sess.ID(), "model", conf.LLM.Model)

	vc := &app{sess: sess, conf: conf, speak: conf.Voice.Speak && !*noVoice}

	if !*noVoice || *audioFile != "" {
		closeVoice, err := vc.initVoice(*audioFile == "")
		if err != nil {
			log.Warn("Voice input unavailable", "err", err)
		} else {
			defer closeVoice()
		}
	}

	switch {
	case *audioFile != "":
		if vc.stt == nil {
			log.Error("Cannot transcribe without a whisper model")
			os.Exit(1)
		}
		text, err := voice.TranscribeFile(ctx, vc.stt, *audioFile)
		if err != nil {
			log.Error("Failed to transcribe file", "file", *audioFile, "err", err)
			os.Exit(1)
		}
		vc.turn(ctx, text, *once)
		return

	case *ask != "":
		vc.turn(ctx, *ask, *once)
		return
	}

	srv, err := ipc.StartServer(conf.Socket, vc.control(ctx))
	if err != nil {
		log.Error("Failed ipc server", "err", err)
		os.Exit(1)
	}
	defer srv.Close()

	log.Info("Boot up - successful")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return vc.repl(gctx, os.Stdin)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errQuit) && !errors.Is(err, context.Canceled) {
		log.Error("Stopped", "err", err)
		os.Exit(1)
	}

	log.Info("Bye")
}

// initVoice loads whisper and, when withMic is set, the microphone.
func (a *app) initVoice(withMic bool) (func(), error) {
	whisper, err := stt.NewTranscriber(a.conf.Voice.WhisperModel)
	if err != nil {
		return nil, fmt.Errorf("load whisper: %w", err)
	}
	a.stt = voice.NewWhisper(whisper, a.conf.Voice.Language)
	log.Debug("Loaded whisper")

	if !withMic {
		return func() { whisper.Close() }, nil
	}

	mic := voice.NewMic()
	if err := mic.Init(); err != nil {
		whisper.Close()
		return nil, fmt.Errorf("init audio: %w", err)
	}
	log.Debug("Loaded recorder")

	a.listener = voice.NewListener(mic, a.stt, a.conf.Voice.RecordMax)
	a.listener.OnStart = func() {
		if err := notify.Beep(a.conf.Voice.BeepFile); err != nil {
			log.Debug("No cue played", "err", err)
		}
	}

	return func() {
		mic.Close()
		whisper.Close()
	}, nil
}
