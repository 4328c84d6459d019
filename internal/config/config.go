package config

import (
	"log/slog"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	LLM    LLM
	Editor Editor
	Voice  Voice
	Chat   Chat
	Socket string `env:"VOCODE_SOCKET" env-default:"/tmp/vocode.sock"`
}

func (conf Config) LogValue() slog.Value {
	key := "<unset>"
	if conf.LLM.APIKey != "" {
		key = "<hidden>"
	}

	return slog.GroupValue(
		slog.Group("llm",
			slog.String("provider", conf.LLM.Provider),
			slog.String("model", conf.LLM.Model),
			slog.String("api_key", key),
			slog.String("base_url", conf.LLM.BaseURL),
		),
		slog.Group("editor", slog.String("url", conf.Editor.URL)),
		slog.Group("voice",
			slog.String("whisper_model", conf.Voice.WhisperModel),
			slog.String("language", conf.Voice.Language),
			slog.Bool("speak", conf.Voice.Speak),
		),
		slog.Group("chat",
			slog.Int("ceiling", conf.Chat.Ceiling),
			slog.String("backup", conf.Chat.BackupFile),
		),
		slog.String("socket", conf.Socket),
	)
}

type LLM struct {
	Provider string `env:"VOCODE_PROVIDER" env-default:"openai"`
	Model    string `env:"VOCODE_MODEL" env-default:"gpt-4o"`
	APIKey   string `env:"OPENAI_API_KEY"`
	BaseURL  string `env:"VOCODE_LLM_URL"`
	Proxy    string `env:"VOCODE_PROXY"`
}

type Editor struct {
	URL string `env:"VOCODE_EDITOR_URL" env-default:"ws://localhost:5001"`
}

type Voice struct {
	WhisperModel string        `env:"VOCODE_WHISPER_MODEL" env-default:"third_party/whisper.cpp/models/ggml-medium.bin"`
	Language     string        `env:"VOCODE_LANGUAGE" env-default:"auto"`
	BeepFile     string        `env:"VOCODE_BEEP_FILE" env-default:"beep.mp3"`
	Speak        bool          `env:"VOCODE_SPEAK" env-default:"false"`
	SpeakLang    string        `env:"VOCODE_SPEAK_LANG" env-default:"en"`
	RecordMax    time.Duration `env:"VOCODE_RECORD_MAX" env-default:"30s"`
}

type Chat struct {
	Ceiling    int    `env:"VOCODE_TOKEN_CEILING" env-default:"8000"`
	BackupFile string `env:"VOCODE_BACKUP_FILE" env-default:"ChatHistoryBackup.txt"`
}

func Read() (Config, error) {
	var conf Config
	if err := cleanenv.ReadEnv(&conf); err != nil {
		return Config{}, err
	}
	return conf, nil
}
