// Package tokens counts and trims text by tokenizer tokens.
package tokens

import (
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

const encodingName = "cl100k_base"

var (
	tk     *tiktoken.Tiktoken
	tkErr  error
	tkOnce sync.Once
)

func getTokenizer() (*tiktoken.Tiktoken, bool) {
	tkOnce.Do(func() {
		tk, tkErr = tiktoken.GetEncoding(encodingName)
	})
	return tk, tkErr == nil
}

// Available reports whether the BPE ranks could be loaded. When they can't,
// counts fall back to a rune-based estimate.
func Available() bool {
	_, ok := getTokenizer()
	return ok
}

func Count(text string) int {
	if text == "" {
		return 0
	}
	if enc, ok := getTokenizer(); ok {
		return len(enc.Encode(text, nil, nil))
	}
	return estimate(text)
}

// Truncate cuts text to at most maxTokens tokens.
func Truncate(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return ""
	}
	if enc, ok := getTokenizer(); ok {
		ids := enc.Encode(text, nil, nil)
		if len(ids) <= maxTokens {
			return text
		}
		return enc.Decode(ids[:maxTokens])
	}

	if estimate(text) <= maxTokens {
		return text
	}
	runes := []rune(text)
	return string(runes[:maxTokens*runesPerToken])
}

const runesPerToken = 3

func estimate(text string) int {
	n := utf8.RuneCountInString(text)
	return (n + runesPerToken - 1) / runesPerToken
}
