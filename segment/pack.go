package segment

import (
	"strings"

	"github.com/muniqa/ingest/classify"
	"github.com/muniqa/ingest/token"
)

// Fragment is a token-bounded slice of a section, ready for metadata
// enrichment and embedding.
type Fragment struct {
	Text          string
	SectionTitle  string
	SectionNumber string
	TokenCount    int
}

// Pack converts one section into fragments that respect cfg.MaxTokens.
// A section already within budget is emitted unchanged. Otherwise
// paragraphs are accumulated greedily; each flush seeds the next buffer
// with the trailing cfg.OverlapTokens tokens of the flushed text, so every
// fragment carries the tail of its predecessor.
//
// A single paragraph larger than the budget is emitted oversized here;
// EnforceCeiling guarantees the absolute limit downstream.
func Pack(sec Section, cfg classify.ChunkingConfig, tok token.Tokenizer) []Fragment {
	content := strings.TrimSpace(sec.Content)
	if content == "" {
		return nil
	}

	mk := func(text string) Fragment {
		return Fragment{
			Text:          text,
			SectionTitle:  sec.Title,
			SectionNumber: sec.Number,
			TokenCount:    tok.Count(text),
		}
	}

	if tok.Count(content) <= cfg.MaxTokens {
		return []Fragment{mk(content)}
	}

	paras := blankSplitRe.Split(content, -1)
	texts := packPieces(paras, "\n\n", cfg.MaxTokens, cfg.OverlapTokens, tok)

	frags := make([]Fragment, 0, len(texts))
	for _, t := range texts {
		frags = append(frags, mk(t))
	}
	return frags
}

// packPieces greedily accumulates pieces into buffers of at most maxTokens,
// joining with sep and seeding each new buffer with the decoded trailing
// overlapTokens of the previous flush. Shared by the packer and the
// oversized splitter.
func packPieces(pieces []string, sep string, maxTokens, overlapTokens int, tok token.Tokenizer) []string {
	var out []string
	var buf string

	flush := func() {
		if strings.TrimSpace(buf) != "" {
			out = append(out, strings.TrimSpace(buf))
		}
	}

	for _, p := range pieces {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if buf == "" {
			buf = p
			continue
		}
		candidate := buf + sep + p
		if tok.Count(candidate) > maxTokens {
			flush()
			overlap := token.Tail(tok, buf, overlapTokens)
			if overlap != "" {
				buf = overlap + sep + p
			} else {
				buf = p
			}
		} else {
			buf = candidate
		}
	}
	flush()
	return out
}
