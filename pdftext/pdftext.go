// Package pdftext extracts plain text from fetched PDF bytes using pdfcpu,
// page by page, and scores extraction quality so scanned documents that
// would need OCR can be flagged instead of ingested as garbage.
package pdftext

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// ErrNoText means the PDF yielded no extractable text on any page.
var ErrNoText = fmt.Errorf("no text content in PDF")

// Page is the text of one PDF page.
type Page struct {
	Number int
	Text   string
}

// Result is one extracted PDF document.
type Result struct {
	Title   string
	Text    string
	Pages   []Page
	Quality Quality
}

// maxTitleLen bounds the first-line title heuristic.
const maxTitleLen = 200

// Extract parses PDF bytes and returns per-page text joined into a full
// document, with quality metrics. Pages with no text are skipped; a PDF
// with no text at all returns ErrNoText.
func Extract(data []byte) (*Result, error) {
	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), model.NewDefaultConfiguration())
	if err != nil {
		return nil, fmt.Errorf("pdfcpu read: %w", err)
	}

	res := &Result{}
	var full strings.Builder
	totalChars := 0

	for nr := 1; nr <= ctx.PageCount; nr++ {
		text := pageText(ctx, nr)
		if text == "" {
			continue
		}
		totalChars += len([]rune(text))
		if res.Title == "" {
			res.Title = firstLine(text)
		}
		res.Pages = append(res.Pages, Page{Number: nr, Text: text})
		if full.Len() > 0 {
			full.WriteString("\n\n")
		}
		full.WriteString(text)
	}
	if len(res.Pages) == 0 {
		return nil, ErrNoText
	}

	res.Text = full.String()
	res.Quality = Quality{
		PageCount:       ctx.PageCount,
		CharsPerPage:    float64(totalChars) / float64(ctx.PageCount),
		PrintableRatio:  printableRatio(res.Text),
		WordlikeRatio:   wordlikeRatio(res.Text),
		HasImageStreams: hasImageStreams(ctx),
	}
	return res, nil
}

func firstLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if len(line) > maxTitleLen {
			line = line[:maxTitleLen]
		}
		return line
	}
	return ""
}

func pageText(ctx *model.Context, nr int) string {
	r, err := pdfcpu.ExtractPageContent(ctx, nr)
	if err != nil {
		return ""
	}
	data, err := io.ReadAll(r)
	if err != nil || len(data) == 0 {
		return ""
	}
	return streamText(data)
}

// hasImageStreams reports whether the PDF carries image XObjects, the main
// signal that a low-text document is a scan.
func hasImageStreams(ctx *model.Context) bool {
	if ctx.Optimize != nil {
		for nr := 1; nr <= ctx.PageCount; nr++ {
			if len(pdfcpu.ImageObjNrs(ctx, nr)) > 0 {
				return true
			}
		}
	}
	for _, entry := range ctx.Table {
		if entry == nil || entry.Free || entry.Compressed {
			continue
		}
		sd, ok := entry.Object.(types.StreamDict)
		if !ok {
			continue
		}
		if subtype, found := sd.Find("Subtype"); found {
			if name, isName := subtype.(types.Name); isName && name == "Image" {
				return true
			}
		}
	}
	return false
}
