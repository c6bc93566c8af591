package batch

import (
	"fmt"
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

// Tokenizer counts the tokens a piece of text costs in a prompt.
type Tokenizer interface {
	Count(text string) int
}

// FallbackEncoding is used when the model has no known encoding.
const FallbackEncoding = "cl100k_base"

var loaderOnce sync.Once

// TiktokenCounter counts tokens with the BPE encoding of an OpenAI model.
type TiktokenCounter struct {
	enc      *tiktoken.Tiktoken
	encoding string
}

// NewTiktoken returns a counter for model, falling back to FallbackEncoding.
// BPE ranks are read from the embedded offline loader, never the network.
func NewTiktoken(model string) (*TiktokenCounter, error) {
	loaderOnce.Do(func() {
		tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
	})

	if enc, err := tiktoken.EncodingForModel(model); err == nil {
		return &TiktokenCounter{enc: enc, encoding: model}, nil
	}

	enc, err := tiktoken.GetEncoding(FallbackEncoding)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s encoding: %w", FallbackEncoding, err)
	}
	return &TiktokenCounter{enc: enc, encoding: FallbackEncoding}, nil
}

// Count implements Tokenizer.
func (t *TiktokenCounter) Count(text string) int {
	return len(t.enc.Encode(text, nil, nil))
}

// Encoding names the model or encoding the counter was built for.
func (t *TiktokenCounter) Encoding() string {
	return t.encoding
}

// ApproxCounter estimates tokens as one per RunesPerToken runes, rounded up.
type ApproxCounter struct {
	RunesPerToken int
}

// Count implements Tokenizer.
func (a ApproxCounter) Count(text string) int {
	per := a.RunesPerToken
	if per <= 0 {
		per = 4
	}
	n := utf8.RuneCountInString(text)
	return (n + per - 1) / per
}
