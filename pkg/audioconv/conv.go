package audioconv

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
	popus "github.com/pekim/opus"
)

const TargetRate = 16000

type Options struct {
	MaxSamples int
}

// pcm is interleaved float32 audio as produced by a decoder.
type pcm struct {
	samples  []float32
	channels int
	rate     int
}

type decodeFunc func(r io.ReadSeeker) (pcm, error)

var byExt = map[string]decodeFunc{
	".wav": decodeWAV,
	".mp3": decodeMP3,
	".ogg": decodeOgg,
	".oga": decodeOgg,
}

// Decode reads an audio file and returns mono 16 kHz samples in [-1, 1].
func Decode(_ context.Context, path string, opt Options) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, ok := byExt[strings.ToLower(filepath.Ext(path))]
	if !ok {
		if dec, err = sniff(f); err != nil {
			return nil, err
		}
	}

	p, err := dec(f)
	if err != nil {
		return nil, err
	}

	return normalize(p, opt), nil
}

func sniff(r io.ReadSeeker) (decodeFunc, error) {
	magic := make([]byte, 4)
	n, _ := io.ReadFull(r, magic)
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	magic = magic[:n]

	switch {
	case bytes.HasPrefix(magic, []byte("RIFF")):
		return decodeWAV, nil
	case bytes.HasPrefix(magic, []byte("OggS")):
		return decodeOgg, nil
	case bytes.HasPrefix(magic, []byte("ID3")), len(magic) >= 2 && magic[0] == 0xFF && magic[1]&0xE0 == 0xE0:
		return decodeMP3, nil
	default:
		return nil, errors.New("unsupported format (supported: wav/mp3/ogg-vorbis/ogg-opus)")
	}
}

func normalize(p pcm, opt Options) []float32 {
	x := downmix(p.samples, p.channels)
	x = resample(x, p.rate, TargetRate)
	if opt.MaxSamples > 0 && len(x) > opt.MaxSamples {
		x = x[:opt.MaxSamples]
	}
	return x
}

func decodeWAV(r io.ReadSeeker) (pcm, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return pcm{}, errors.New("invalid wav")
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return pcm{}, err
	}
	if buf == nil || buf.Data == nil {
		return pcm{}, errors.New("empty wav")
	}

	depth := int(dec.BitDepth)
	if depth == 0 {
		depth = 16
	}

	p := pcm{samples: intsToFloat(buf.Data, depth), channels: 1, rate: 44100}
	if buf.Format != nil {
		if buf.Format.NumChannels > 0 {
			p.channels = buf.Format.NumChannels
		}
		if buf.Format.SampleRate > 0 {
			p.rate = buf.Format.SampleRate
		}
	}
	return p, nil
}

func decodeMP3(r io.ReadSeeker) (pcm, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return pcm{}, err
	}

	raw, err := io.ReadAll(dec)
	if err != nil {
		return pcm{}, err
	}

	ints := make([]int16, len(raw)/2)
	if err := binary.Read(bytes.NewReader(raw[:len(ints)*2]), binary.LittleEndian, ints); err != nil {
		return pcm{}, err
	}

	rate := dec.SampleRate()
	if rate <= 0 {
		rate = 44100
	}
	// go-mp3 always yields 16-bit stereo
	return pcm{samples: int16sToFloat(ints), channels: 2, rate: rate}, nil
}

// decodeOgg tries Vorbis first and falls back to Opus.
func decodeOgg(r io.ReadSeeker) (pcm, error) {
	p, verr := decodeVorbis(r)
	if verr == nil {
		return p, nil
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return pcm{}, err
	}

	p, oerr := decodeOpus(r)
	if oerr != nil {
		return pcm{}, fmt.Errorf("cannot decode ogg as vorbis (%v) or opus (%w)", verr, oerr)
	}
	return p, nil
}

func decodeVorbis(r io.Reader) (pcm, error) {
	samples, format, err := oggvorbis.ReadAll(r)
	if err != nil {
		return pcm{}, err
	}
	if format == nil || format.Channels <= 0 || format.SampleRate <= 0 {
		return pcm{}, errors.New("invalid ogg/vorbis stream")
	}
	return pcm{samples: samples, channels: format.Channels, rate: format.SampleRate}, nil
}

func decodeOpus(r io.ReadSeeker) (pcm, error) {
	dec, err := popus.NewDecoder(r)
	if err != nil {
		return pcm{}, err
	}
	defer dec.Destroy()

	ch := dec.ChannelCount()
	if ch <= 0 {
		ch = 1
	}

	var (
		out []float32
		buf = make([]int16, 24000*ch) // 0.5s at 48 kHz
	)
	for {
		n, err := dec.Read(buf)
		if n > 0 {
			out = append(out, int16sToFloat(buf[:n*ch])...)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return pcm{}, err
		}
	}

	return pcm{samples: out, channels: ch, rate: 48000}, nil
}
