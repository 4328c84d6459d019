package tokens

import (
	"fmt"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	loader "github.com/pkoukk/tiktoken-go-loader"
)

const (
	EncodingCL100K = "cl100k_base"
	EncodingP50K   = "p50k_base"
)

const (
	perMessage    = 4 // <im_start>{role/name}\n{content}<im_end>\n
	nameDiscount  = 1 // role is omitted when a name is present
	replyPrimer   = 2 // <im_start>assistant
	defaultFamily = EncodingCL100K
)

// Message is the part of a chat message the estimator looks at.
type Message struct {
	Role    string
	Content string
	Name    string
}

// Encoder turns text into a token count for one encoding family.
type Encoder interface {
	Count(text string) int
}

type LookupFunc func(encoding string) (Encoder, error)

type UnsupportedModelError struct {
	Model    string
	Encoding string
	Err      error
}

func (e *UnsupportedModelError) Error() string {
	return fmt.Sprintf("token estimate not implemented for model %q (encoding %s): %v", e.Model, e.Encoding, e.Err)
}

func (e *UnsupportedModelError) Unwrap() error { return e.Err }

type family struct {
	substr   string
	encoding string
}

// Order matters: "gpt-3.5-turbo" must not fall through to the legacy "ada" rule.
var families = []family{
	{"gpt-4", EncodingCL100K},
	{"gpt-3.5", EncodingCL100K},
	{"gpt-5", EncodingCL100K},
	{"o1-", EncodingCL100K},
	{"o3-", EncodingCL100K},
	{"o4-", EncodingCL100K},
	{"davinci", EncodingP50K},
	{"curie", EncodingP50K},
	{"babbage", EncodingP50K},
	{"ada", EncodingP50K},
}

// EncodingFor picks the encoding family for a model name. Unknown names
// fall back to cl100k_base.
func EncodingFor(model string) string {
	for _, f := range families {
		if strings.Contains(model, f.substr) {
			return f.encoding
		}
	}
	return defaultFamily
}

type Estimator struct {
	lookup LookupFunc
}

type Option func(*Estimator)

func WithLookup(fn LookupFunc) Option {
	return func(e *Estimator) { e.lookup = fn }
}

func NewEstimator(opts ...Option) *Estimator {
	e := &Estimator{lookup: offlineLookup}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Estimate returns 4 per message plus encoded content length, minus one
// per named message, plus 2 for the primed reply.
func (e *Estimator) Estimate(messages []Message, model string) (int, error) {
	encoding := EncodingFor(model)

	enc, err := e.lookup(encoding)
	if err != nil {
		return 0, &UnsupportedModelError{Model: model, Encoding: encoding, Err: err}
	}

	n := 0
	for _, m := range messages {
		n += perMessage
		n += enc.Count(m.Content)
		if m.Name != "" {
			n -= nameDiscount
		}
	}
	n += replyPrimer

	return n, nil
}

type tiktokenEncoder struct {
	tk *tiktoken.Tiktoken
}

func (t tiktokenEncoder) Count(text string) int {
	return len(t.tk.Encode(text, nil, nil))
}

var (
	loaderOnce sync.Once
	cacheMu    sync.Mutex
	cache      = map[string]Encoder{}
)

// offlineLookup uses the BPE ranks embedded by tiktoken-go-loader, so no
// network access happens at estimate time.
func offlineLookup(encoding string) (Encoder, error) {
	loaderOnce.Do(func() {
		tiktoken.SetBpeLoader(loader.NewOfflineLoader())
	})

	cacheMu.Lock()
	defer cacheMu.Unlock()

	if enc, ok := cache[encoding]; ok {
		return enc, nil
	}

	tk, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("get encoding: %w", err)
	}

	enc := tiktokenEncoder{tk: tk}
	cache[encoding] = enc
	return enc, nil
}
