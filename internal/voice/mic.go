package voice

import (
	"errors"
	"math"
	"time"

	"github.com/gordonklaus/portaudio"
)

const (
	SampleRate = 16000

	frameSize        = 320 // 20ms
	frameMillis      = 20
	silenceThreshRMS = 0.015
	silenceMillis    = 600
	defaultMaxDur    = 15 * time.Second
)

// Mic captures mono 16 kHz audio from the default input device.
type Mic struct{}

func NewMic() *Mic { return &Mic{} }

func (m *Mic) Init() error {
	return portaudio.Initialize()
}

func (m *Mic) Close() {
	portaudio.Terminate()
}

func openStream(buf []float32) (*portaudio.Stream, error) {
	stream, err := portaudio.OpenDefaultStream(1, 0, SampleRate, len(buf), buf)
	if err != nil {
		return nil, err
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, err
	}
	return stream, nil
}

// RecordUntil records until stop is closed or maxDur elapses. The stop
// channel is checked between frames.
func (m *Mic) RecordUntil(stop <-chan struct{}, maxDur time.Duration) ([]float32, error) {
	if maxDur <= 0 {
		maxDur = defaultMaxDur
	}

	buf := make([]float32, frameSize)
	stream, err := openStream(buf)
	if err != nil {
		return nil, err
	}
	defer stream.Close()
	defer stream.Stop()

	deadline := time.Now().Add(maxDur)
	out := make([]float32, 0, int(float64(SampleRate)*maxDur.Seconds()))

	for time.Now().Before(deadline) {
		select {
		case <-stop:
			return out, nil
		default:
		}

		if err := stream.Read(); err != nil {
			return nil, err
		}
		out = append(out, buf...)
	}

	if len(out) == 0 {
		return nil, errors.New("no audio recorded")
	}
	return out, nil
}

// RecordUtterance records until 600ms of silence follow speech, or
// maxDur elapses.
func (m *Mic) RecordUtterance(maxDur time.Duration) ([]float32, error) {
	if maxDur <= 0 {
		maxDur = defaultMaxDur
	}

	buf := make([]float32, frameSize)
	stream, err := openStream(buf)
	if err != nil {
		return nil, err
	}
	defer stream.Close()
	defer stream.Stop()

	var (
		out           = make([]float32, 0, SampleRate*3)
		speaking      bool
		silenceFrames int
	)

	maxFrames := int(maxDur / (frameMillis * time.Millisecond))
	for i := 0; i < maxFrames; i++ {
		if err := stream.Read(); err != nil {
			return nil, err
		}

		if frameRMS(buf) > silenceThreshRMS {
			speaking = true
			silenceFrames = 0
			out = append(out, buf...)
			continue
		}

		if !speaking {
			continue
		}
		silenceFrames++
		if silenceFrames*frameMillis >= silenceMillis {
			break
		}
		out = append(out, buf...)
	}

	return out, nil
}

func frameRMS(f []float32) float64 {
	if len(f) == 0 {
		return 0
	}
	var s float64
	for _, x := range f {
		s += float64(x * x)
	}
	return math.Sqrt(s / float64(len(f)))
}
