package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/muniqa/ingest/crawl"
	"github.com/muniqa/ingest/enrich"
)

type memSink struct {
	docs  map[string]crawl.Document
	types map[string]string
	frags map[string][]*enrich.Fragment
	fail  bool
}

func newMemSink() *memSink {
	return &memSink{
		docs:  map[string]crawl.Document{},
		types: map[string]string{},
		frags: map[string][]*enrich.Fragment{},
	}
}

func (m *memSink) SaveDocument(_ context.Context, docID, docType string, doc crawl.Document, frags []*enrich.Fragment) error {
	if m.fail {
		return errors.New("sink unavailable")
	}
	m.docs[docID] = doc
	m.types[docID] = docType
	m.frags[docID] = frags
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func zoningDoc() crawl.Document {
	return crawl.Document{
		Title:      "Zoning By-Law",
		SourceURL:  "https://example.gov/zoning",
		Department: "Planning",
		ContentText: strings.Join([]string{
			"## 5.2 Dimensional Requirements",
			"Minimum lot area in the R-1 district shall be 40,000 square feet.",
			"",
			"## 5.3 Setbacks",
			"Front setback shall be 40 feet as provided in Section 5.2.",
		}, "\n"),
	}
}

func TestProcess_FullChain(t *testing.T) {
	sink := newMemSink()
	p := New(sink, nil, testLogger())

	n, err := p.Process(context.Background(), zoningDoc())
	if err != nil {
		t.Fatal(err)
	}
	if n == 0 {
		t.Fatal("no fragments emitted")
	}
	if len(sink.docs) != 1 {
		t.Fatalf("sink holds %d documents, want 1", len(sink.docs))
	}

	for docID, frags := range sink.frags {
		if !strings.HasPrefix(docID, "doc_") {
			t.Errorf("document id = %q", docID)
		}
		if sink.types[docID] != "zoning_regulation" {
			t.Errorf("document type = %q, want zoning_regulation", sink.types[docID])
		}
		if len(frags) != n {
			t.Errorf("sink fragments = %d, reported = %d", len(frags), n)
		}
		for i, f := range frags {
			if f.Meta.DocumentID != docID {
				t.Errorf("fragment %d has document id %q", i, f.Meta.DocumentID)
			}
			if f.Meta.Position != i || f.Meta.TotalFragments != len(frags) {
				t.Errorf("fragment %d position/total = %d/%d", i, f.Meta.Position, f.Meta.TotalFragments)
			}
			if f.Meta.Department != "Planning" {
				t.Errorf("fragment %d department = %q", i, f.Meta.Department)
			}
		}
		// The section structure must survive into metadata.
		if frags[0].Meta.SectionNumber != "5.2" {
			t.Errorf("first fragment section number = %q", frags[0].Meta.SectionNumber)
		}
	}
}

func TestProcess_EmptyDocumentFails(t *testing.T) {
	p := New(newMemSink(), nil, testLogger())
	if _, err := p.Process(context.Background(), crawl.Document{SourceURL: "https://example.gov/empty"}); err == nil {
		t.Fatal("want error for empty document")
	}
}

func TestRun_CountsFailures(t *testing.T) {
	sink := newMemSink()
	p := New(sink, nil, testLogger())

	docs := []crawl.Document{
		zoningDoc(),
		{SourceURL: "https://example.gov/empty"}, // no content, fails
	}
	sum, err := p.Run(context.Background(), docs)
	if err != nil {
		t.Fatal(err)
	}
	if sum.DocumentsProcessed != 1 || sum.Failures != 1 {
		t.Errorf("summary = %+v", sum)
	}
	if sum.FragmentsEmitted == 0 {
		t.Error("fragments not counted")
	}
}

func TestRun_SinkFailureIsCounted(t *testing.T) {
	sink := newMemSink()
	sink.fail = true
	p := New(sink, nil, testLogger())

	sum, err := p.Run(context.Background(), []crawl.Document{zoningDoc()})
	if err != nil {
		t.Fatal(err)
	}
	if sum.Failures != 1 || sum.DocumentsProcessed != 0 {
		t.Errorf("summary = %+v", sum)
	}
}

// stubFetcher serves canned PDF bytes for HarvestPDFs tests.
type stubFetcher struct {
	bodies map[string][]byte
}

func (s *stubFetcher) Fetch(_ context.Context, url string) (*crawl.FetchResult, error) {
	body, ok := s.bodies[url]
	if !ok {
		return nil, errors.New("not found")
	}
	return &crawl.FetchResult{Body: body, ContentType: "application/pdf"}, nil
}

type noWait struct{}

func (noWait) Wait(context.Context) error { return nil }

func TestHarvestPDFs(t *testing.T) {
	sink := newMemSink()
	p := New(sink, nil, testLogger())

	f := &stubFetcher{bodies: map[string][]byte{
		"https://example.gov/fees.pdf": feePDF(),
		"https://example.gov/scan.pdf": []byte("not a pdf at all"),
	}}
	urls := []string{
		"https://example.gov/fees.pdf",
		"https://example.gov/scan.pdf",
		"https://example.gov/gone.pdf",
	}

	sum, err := p.HarvestPDFs(context.Background(), f, noWait{}, urls)
	if err != nil {
		t.Fatal(err)
	}
	if sum.PDFsProcessed != 1 {
		t.Errorf("pdfs processed = %d, want 1", sum.PDFsProcessed)
	}
	if sum.PDFsSkipped != 2 {
		t.Errorf("pdfs skipped = %d, want 2 (undecodable + fetch failure)", sum.PDFsSkipped)
	}

	for docID, doc := range sink.docs {
		if doc.DocumentKind != "pdf" {
			t.Errorf("document kind = %q, want pdf", doc.DocumentKind)
		}
		if doc.ContentHash == "" || doc.SizeBytes == 0 {
			t.Errorf("pdf document missing hash/size: %+v", doc)
		}
		if len(sink.frags[docID]) == 0 {
			t.Errorf("pdf document has no fragments")
		}
	}
}

// feePDF builds a minimal valid PDF whose single page shows enough prose
// for extraction and packing to succeed.
func feePDF() []byte {
	text := "Schedule of fees for building permits adopted by the town. " +
		"New dwellings are charged per square foot and additions at a flat rate. " +
		"Fees are doubled for any work begun before a permit is issued."
	escaped := strings.NewReplacer(`\`, `\\`, "(", `\(`, ")", `\)`).Replace(text)
	stream := "BT\n/F1 12 Tf\n72 720 Td\n(" + escaped + ") Tj\nET"

	var b strings.Builder
	b.WriteString("%PDF-1.4\n")
	offsets := make([]int, 6)
	offsets[1] = b.Len()
	b.WriteString("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")
	offsets[2] = b.Len()
	b.WriteString("2 0 obj\n<< /Type /Pages /Kids [3 0 R] /Count 1 >>\nendobj\n")
	offsets[3] = b.Len()
	b.WriteString("3 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R /Resources << /Font << /F1 5 0 R >> >> >>\nendobj\n")
	offsets[4] = b.Len()
	b.WriteString("4 0 obj\n<< /Length ")
	b.WriteString(itoa(len(stream)))
	b.WriteString(" >>\nstream\n")
	b.WriteString(stream)
	b.WriteString("\nendstream\nendobj\n")
	offsets[5] = b.Len()
	b.WriteString("5 0 obj\n<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>\nendobj\n")

	xref := b.Len()
	b.WriteString("xref\n0 6\n0000000000 65535 f \n")
	for i := 1; i <= 5; i++ {
		s := itoa(offsets[i])
		for len(s) < 10 {
			s = "0" + s
		}
		b.WriteString(s + " 00000 n \n")
	}
	b.WriteString("trailer\n<< /Size 6 /Root 1 0 R >>\nstartxref\n" + itoa(xref) + "\n%%EOF\n")
	return []byte(b.String())
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	s := ""
	for n > 0 {
		s = string(rune('0'+n%10)) + s
		n /= 10
	}
	return s
}
