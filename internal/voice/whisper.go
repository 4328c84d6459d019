package voice

import (
	"context"
	"fmt"

	"vocode/pkg/audioconv"
	"vocode/pkg/stt"
)

// Whisper adapts the whisper.cpp transcriber to the Transcriber interface.
type Whisper struct {
	t   *stt.Transcriber
	opt stt.Options
}

func NewWhisper(t *stt.Transcriber, language string) *Whisper {
	return &Whisper{
		t:   t,
		opt: stt.Options{Language: language},
	}
}

func (w *Whisper) Transcribe(ctx context.Context, pcm []float32) (string, error) {
	res, err := w.t.TranscribePCM(ctx, pcm, w.opt)
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

// TranscribeFile decodes an audio file and runs it through tr.
func TranscribeFile(ctx context.Context, tr Transcriber, path string) (string, error) {
	pcm, err := audioconv.Decode(ctx, path, audioconv.Options{})
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", path, err)
	}
	if len(pcm) == 0 {
		return "", ErrNoSpeech
	}
	return tr.Transcribe(ctx, pcm)
}
