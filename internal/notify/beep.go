package notify

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
)

var (
	speakerOnce sync.Once
	speakerErr  error
	speakerInit = speaker.Init
)

func initSpeaker(rate beep.SampleRate) error {
	speakerOnce.Do(func() {
		speakerErr = speakerInit(rate, rate.N(time.Second/10))
	})
	return speakerErr
}

// Beep plays an mp3 cue and blocks until it has finished.
func Beep(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open cue: %w", err)
	}

	streamer, format, err := mp3.Decode(f)
	if err != nil {
		f.Close()
		return fmt.Errorf("decode cue: %w", err)
	}
	defer streamer.Close()

	if err := initSpeaker(format.SampleRate); err != nil {
		return fmt.Errorf("init speaker: %w", err)
	}

	done := make(chan struct{})
	speaker.Play(beep.Seq(streamer, beep.Callback(func() {
		close(done)
	})))
	<-done

	return nil
}
