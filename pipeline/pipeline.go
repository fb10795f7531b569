// Package pipeline turns crawled documents into stored, enriched fragments:
// classification, section splitting, token-bounded packing, the absolute
// ceiling pass, and metadata enrichment, in that order.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/muniqa/ingest/classify"
	"github.com/muniqa/ingest/crawl"
	"github.com/muniqa/ingest/enrich"
	"github.com/muniqa/ingest/segment"
	"github.com/muniqa/ingest/token"
)

// Sink receives one processed document with its fragments. *store.Store
// satisfies this.
type Sink interface {
	SaveDocument(ctx context.Context, docID, docType string, doc crawl.Document, frags []*enrich.Fragment) error
}

// Summary is the per-run processing report.
type Summary struct {
	DocumentsProcessed int `json:"documents_processed"`
	FragmentsEmitted   int `json:"fragments_emitted"`
	PDFsProcessed      int `json:"pdfs_processed"`
	PDFsSkipped        int `json:"pdfs_skipped"`
	Failures           int `json:"failures"`
}

// Pipeline processes crawl output sequentially.
type Pipeline struct {
	tok    token.Tokenizer
	sink   Sink
	logger *slog.Logger
}

// New builds a Pipeline. A nil tokenizer gets token.Default.
func New(sink Sink, tok token.Tokenizer, logger *slog.Logger) *Pipeline {
	if tok == nil {
		tok = token.Default
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{tok: tok, sink: sink, logger: logger}
}

// Run processes every document, accumulating the summary. A document that
// fails to store is counted and skipped; the rest of the batch proceeds.
func (p *Pipeline) Run(ctx context.Context, docs []crawl.Document) (*Summary, error) {
	sum := &Summary{}
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		n, err := p.Process(ctx, doc)
		if err != nil {
			p.logger.Warn("document processing failed", "url", doc.SourceURL, "error", err)
			sum.Failures++
			continue
		}
		sum.DocumentsProcessed++
		sum.FragmentsEmitted += n
	}
	return sum, nil
}

// Process runs one document through the full chain and hands the result to
// the sink. Returns the number of fragments emitted.
func (p *Pipeline) Process(ctx context.Context, doc crawl.Document) (int, error) {
	docType := classify.Classify(doc.Title, doc.ContentText)
	cfg := classify.Chunking(docType)

	secs := segment.Sections(doc.ContentText, cfg.Strategy)
	var frags []segment.Fragment
	for _, sec := range secs {
		frags = append(frags, segment.Pack(sec, cfg, p.tok)...)
	}
	frags = segment.EnforceCeiling(frags, p.tok)
	if len(frags) == 0 {
		return 0, fmt.Errorf("document %s produced no fragments", doc.SourceURL)
	}

	docID := "doc_" + uuid.Must(uuid.NewV7()).String()
	enriched := enrich.Enrich(enrich.Source{
		DocumentID:    docID,
		DocumentTitle: doc.Title,
		SourceURL:     doc.SourceURL,
		Department:    doc.Department,
		DocumentType:  docType,
	}, frags)

	if err := p.sink.SaveDocument(ctx, docID, string(docType), doc, enriched); err != nil {
		return 0, fmt.Errorf("store document: %w", err)
	}
	p.logger.Debug("document processed",
		"url", doc.SourceURL, "type", docType, "fragments", len(enriched))
	return len(enriched), nil
}
