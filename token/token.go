// Package token provides deterministic tokenization for chunk budgeting.
//
// The embedding service owns the real model tokenizer; this package defines
// the counting contract the segmentation pipeline budgets against. The
// default tokenizer treats whitespace-delimited words as tokens, which keeps
// counts reproducible across runs and machines. A model-specific tokenizer
// can be substituted anywhere a Tokenizer is accepted.
package token

import "strings"

// Tokenizer converts between text and token sequences.
//
// Decode(Encode(text)) must be stable: re-encoding the decoded text yields
// the same token sequence. The packer relies on this when it seeds a chunk
// with the decoded tail of its predecessor.
type Tokenizer interface {
	// Count returns the number of tokens in text.
	Count(text string) int
	// Encode splits text into tokens.
	Encode(text string) []string
	// Decode joins tokens back into text.
	Decode(tokens []string) string
}

// Words tokenizes on whitespace boundaries. One word, one token.
type Words struct{}

func (Words) Count(text string) int { return len(strings.Fields(text)) }

func (Words) Encode(text string) []string { return strings.Fields(text) }

func (Words) Decode(tokens []string) string { return strings.Join(tokens, " ") }

// Default is the tokenizer used when none is configured.
var Default Tokenizer = Words{}

// Tail returns the trailing n tokens of text decoded back to a string.
// Returns "" when n <= 0 or text is empty.
func Tail(tok Tokenizer, text string, n int) string {
	if n <= 0 {
		return ""
	}
	tokens := tok.Encode(text)
	if len(tokens) > n {
		tokens = tokens[len(tokens)-n:]
	}
	return tok.Decode(tokens)
}
