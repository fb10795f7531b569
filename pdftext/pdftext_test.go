package pdftext

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestExtract_TextPDF(t *testing.T) {
	raw := textPDF("Schedule of permit fees adopted by the Select Board")

	res, err := Extract(raw)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if !strings.Contains(res.Text, "permit fees") {
		t.Errorf("text not extracted: %q", res.Text)
	}
	if res.Title == "" {
		t.Error("title heuristic produced nothing")
	}
	if len(res.Pages) != 1 || res.Pages[0].Number != 1 {
		t.Errorf("pages = %+v", res.Pages)
	}
	q := res.Quality
	if q.PageCount != 1 || q.CharsPerPage <= 0 {
		t.Errorf("quality = %+v", q)
	}
	if q.NeedsOCR() {
		t.Errorf("clean text PDF flagged for OCR: %+v", q)
	}
}

func TestExtract_NotAPDF(t *testing.T) {
	if _, err := Extract([]byte("<html>surprise</html>")); err == nil {
		t.Fatal("want error for non-PDF bytes")
	}
}

func TestExtract_NoText(t *testing.T) {
	// A structurally valid PDF whose only content is a drawing operator.
	raw := contentPDF("q 100 0 0 100 72 692 cm Q")
	_, err := Extract(raw)
	if err == nil {
		t.Fatal("want error for text-free PDF")
	}
	if !errors.Is(err, ErrNoText) && !strings.Contains(err.Error(), "pdfcpu") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestStreamText_Operators(t *testing.T) {
	stream := strings.Join([]string{
		"BT",
		"/F1 12 Tf",
		"72 720 Td",
		"(Section 5.2) Tj",
		"T*",
		"[(Minimum) -250 (lot) -250 (area)] TJ",
		"ET",
	}, "\n")

	got := streamText([]byte(stream))
	if !strings.Contains(got, "Section 5.2") {
		t.Errorf("Tj literal missing: %q", got)
	}
	for _, word := range []string{"Minimum", "lot", "area"} {
		if !strings.Contains(got, word) {
			t.Errorf("TJ array word %q missing: %q", word, got)
		}
	}
}

func TestDecodeLiteral(t *testing.T) {
	cases := []struct{ in, want string }{
		{`plain text`, "plain text"},
		{`paren \( inside \)`, "paren ( inside )"},
		{`octal\040space`, "octal space"},
		{`back\\slash`, `back\slash`},
		{`tab\there`, "tab\there"},
	}
	for _, tc := range cases {
		if got := decodeLiteral([]byte(tc.in)); got != tc.want {
			t.Errorf("decodeLiteral(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestTidy(t *testing.T) {
	got := tidy("  spaced\t\tout \n text ￾ ")
	if got != "spaced out text" {
		t.Errorf("tidy = %q", got)
	}
}

func TestQuality_NeedsOCR(t *testing.T) {
	cases := []struct {
		name string
		q    Quality
		want bool
	}{
		{"clean text", Quality{CharsPerPage: 2000, PrintableRatio: 0.99, WordlikeRatio: 0.9}, false},
		{"scan with images", Quality{CharsPerPage: 10, PrintableRatio: 0.99, HasImageStreams: true}, true},
		{"glyph garbage", Quality{CharsPerPage: 2000, PrintableRatio: 0.5}, true},
		{"sparse but no images", Quality{CharsPerPage: 10, PrintableRatio: 0.99}, false},
	}
	for _, tc := range cases {
		if got := tc.q.NeedsOCR(); got != tc.want {
			t.Errorf("%s: NeedsOCR = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestPrintableRatio(t *testing.T) {
	if r := printableRatio("all printable words here"); r != 1.0 {
		t.Errorf("clean text ratio = %v, want 1.0", r)
	}
	if r := printableRatio("ok"); r >= 0.9 {
		t.Errorf("PUA-heavy ratio = %v, want < 0.9", r)
	}
}

func TestWordlikeRatio(t *testing.T) {
	if r := wordlikeRatio("normal words in a sentence"); r < 0.5 {
		t.Errorf("ratio = %v, want >= 0.5", r)
	}
	if r := wordlikeRatio("x y z q"); r != 0 {
		t.Errorf("single-rune tokens ratio = %v, want 0", r)
	}
}

// textPDF builds a minimal valid single-page PDF showing text via Tj.
func textPDF(text string) []byte {
	escaped := strings.NewReplacer(`\`, `\\`, "(", `\(`, ")", `\)`).Replace(text)
	return contentPDF("BT\n/F1 12 Tf\n72 720 Td\n(" + escaped + ") Tj\nET")
}

// contentPDF wraps one content stream in a complete PDF with correct xref
// offsets, which pdfcpu validates strictly.
func contentPDF(stream string) []byte {
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
	fmt.Fprintf(&b, "4 0 obj\n<< /Length %d >>\nstream\n%s\nendstream\nendobj\n", len(stream), stream)

	offsets[5] = b.Len()
	b.WriteString("5 0 obj\n<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>\nendobj\n")

	xref := b.Len()
	b.WriteString("xref\n0 6\n0000000000 65535 f \n")
	for i := 1; i <= 5; i++ {
		fmt.Fprintf(&b, "%010d 00000 n \n", offsets[i])
	}
	fmt.Fprintf(&b, "trailer\n<< /Size 6 /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", xref)
	return []byte(b.String())
}
