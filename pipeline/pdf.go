package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/muniqa/ingest/crawl"
	"github.com/muniqa/ingest/enrich"
	"github.com/muniqa/ingest/pdftext"
)

// fetcher is the slice of crawl.Fetcher the PDF pass needs.
type fetcher interface {
	Fetch(ctx context.Context, url string) (*crawl.FetchResult, error)
}

// waiter is the politeness delay, satisfied by *crawl.Gate.
type waiter interface {
	Wait(ctx context.Context) error
}

// HarvestPDFs downloads the diverted PDF URLs under the same politeness
// delay as the page crawl, extracts their text, and runs each through the
// document chain. Scans flagged NeedsOCR and undecodable PDFs are skipped
// and counted, never fatal.
func (p *Pipeline) HarvestPDFs(ctx context.Context, f fetcher, gate waiter, urls []string) (*Summary, error) {
	sum := &Summary{}
	for _, pdfURL := range urls {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		if err := gate.Wait(ctx); err != nil {
			return sum, err
		}

		res, err := f.Fetch(ctx, pdfURL)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return sum, err
			}
			p.logger.Warn("pdf fetch failed", "url", pdfURL, "error", err)
			sum.PDFsSkipped++
			continue
		}

		doc, ok := p.pdfDocument(pdfURL, res)
		if !ok {
			sum.PDFsSkipped++
			continue
		}
		n, err := p.Process(ctx, doc)
		if err != nil {
			p.logger.Warn("pdf processing failed", "url", pdfURL, "error", err)
			sum.Failures++
			continue
		}
		sum.PDFsProcessed++
		sum.DocumentsProcessed++
		sum.FragmentsEmitted += n
	}
	return sum, nil
}

func (p *Pipeline) pdfDocument(pdfURL string, res *crawl.FetchResult) (crawl.Document, bool) {
	extracted, err := pdftext.Extract(res.Body)
	if err != nil {
		p.logger.Warn("pdf text extraction failed", "url", pdfURL, "error", err)
		return crawl.Document{}, false
	}
	if extracted.Quality.NeedsOCR() {
		p.logger.Info("pdf needs OCR, skipping",
			"url", pdfURL,
			"chars_per_page", extracted.Quality.CharsPerPage,
			"printable_ratio", extracted.Quality.PrintableRatio)
		return crawl.Document{}, false
	}
	fetchedAt := res.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = time.Now().UTC()
	}
	return crawl.Document{
		ContentText:  extracted.Text,
		SourceURL:    pdfURL,
		Title:        extracted.Title,
		DocumentKind: "pdf",
		LastUpdated:  fetchedAt,
		ContentHash:  enrich.HashText(extracted.Text),
		SizeBytes:    len(res.Body),
	}, true
}
