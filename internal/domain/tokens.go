package domain

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter counts tokens with the same boundary semantics as the
// embedding model, so chunk budgets are meaningful to it.
type TokenCounter interface {
	Count(text string) int
}

type tiktokenCounter struct {
	once sync.Once
	enc  *tiktoken.Tiktoken
	err  error
}

// NewTokenCounter returns a counter backed by the cl100k_base encoding
// (the tokenizer of the text-embedding-3 family). The encoding is loaded
// lazily; if loading fails the counter falls back to a whitespace split so
// chunking still works, just with rougher budgets.
func NewTokenCounter() TokenCounter {
	return &tiktokenCounter{}
}

func (c *tiktokenCounter) Count(text string) int {
	c.once.Do(func() {
		c.enc, c.err = tiktoken.GetEncoding("cl100k_base")
	})
	if c.err != nil || c.enc == nil {
		return approxTokenCount(text)
	}
	return len(c.enc.Encode(text, nil, nil))
}

func approxTokenCount(text string) int {
	count := 0
	inToken := false
	for _, r := range text {
		if r == ' ' || r == '\n' || r == '\t' || r == '\r' {
			inToken = false
			continue
		}
		if !inToken {
			count++
			inToken = true
		}
	}
	return count
}
