// Package enrich derives retrieval metadata for packed fragments:
// cross-reference citations, topical keywords, jurisdiction codes, chunk
// category, table presence, dates, position, and a content hash.
package enrich

import (
	"crypto/sha256"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/muniqa/ingest/classify"
	"github.com/muniqa/ingest/segment"
)

// Metadata accompanies every emitted fragment.
type Metadata struct {
	ID                string   `json:"id"`
	DocumentID        string   `json:"document_id"`
	DocumentTitle     string   `json:"document_title"`
	SourceURL         string   `json:"source_url"`
	Department        string   `json:"department,omitempty"`
	DocumentType      string   `json:"document_type"`
	SectionNumber     string   `json:"section_number,omitempty"`
	SectionTitle      string   `json:"section_title,omitempty"`
	EffectiveDate     string   `json:"effective_date,omitempty"`
	LastAmendedDate   string   `json:"last_amended_date,omitempty"`
	DocumentDate      string   `json:"document_date,omitempty"`
	Category          string   `json:"category"`
	HasTable          bool     `json:"has_table"`
	CrossRefs         []string `json:"cross_refs,omitempty"`
	Keywords          []string `json:"keywords,omitempty"`
	JurisdictionCodes []string `json:"jurisdiction_codes,omitempty"`
	Position          int      `json:"position"`
	TotalFragments    int      `json:"total_fragments"`
	TokenCount        int      `json:"token_count"`
	ContentHash       string   `json:"content_hash"`
}

// Fragment pairs final fragment text with its metadata. Immutable after
// emission; overlapping fragments intentionally repeat text.
type Fragment struct {
	Text string   `json:"text"`
	Meta Metadata `json:"metadata"`
}

// Source describes the parent document the fragments came from.
type Source struct {
	DocumentID    string
	DocumentTitle string
	SourceURL     string
	Department    string
	DocumentType  classify.DocType
}

// NewID returns a fragment identifier: "frg_" + UUIDv7 (time-sortable).
func NewID() string {
	return "frg_" + uuid.Must(uuid.NewV7()).String()
}

// Enrich attaches metadata to every packed fragment of one document.
func Enrich(src Source, frags []segment.Fragment) []*Fragment {
	total := len(frags)
	out := make([]*Fragment, 0, total)
	for i, f := range frags {
		hasTable := DetectTable(f.Text)
		category := classify.Category(src.DocumentType)
		if hasTable {
			category = "table"
		}
		eff, amended, docDate := ExtractDates(f.Text)

		out = append(out, &Fragment{
			Text: f.Text,
			Meta: Metadata{
				ID:                NewID(),
				DocumentID:        src.DocumentID,
				DocumentTitle:     src.DocumentTitle,
				SourceURL:         src.SourceURL,
				Department:        src.Department,
				DocumentType:      string(src.DocumentType),
				SectionNumber:     f.SectionNumber,
				SectionTitle:      f.SectionTitle,
				EffectiveDate:     eff,
				LastAmendedDate:   amended,
				DocumentDate:      docDate,
				Category:          category,
				HasTable:          hasTable,
				CrossRefs:         CrossRefs(f.Text),
				Keywords:          Keywords(f.Text),
				JurisdictionCodes: JurisdictionCodes(f.Text),
				Position:          i,
				TotalFragments:    total,
				TokenCount:        f.TokenCount,
				ContentHash:       HashText(f.Text),
			},
		})
	}
	return out
}

// HashText returns the SHA-256 hex digest of the exact fragment text,
// enabling change detection between runs.
func HashText(text string) string {
	h := sha256.Sum256([]byte(text))
	return fmt.Sprintf("%x", h)
}

var tableRowRe = regexp.MustCompile(`(?m)^\s*\|.*\|\s*$`)

// DetectTable reports whether text contains a markdown table row.
func DetectTable(text string) bool {
	return tableRowRe.MatchString(text)
}

var crossRefPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bsection\s+\d+(?:\.\d+)*[A-Za-z]?\b`),
	regexp.MustCompile(`(?i)\bchapter\s+\d+[A-Za-z]?\b`),
	regexp.MustCompile(`(?i)\barticle\s+(?:[IVXLC]+|\d+)\b`),
	regexp.MustCompile(`§\s*\d+(?:[.-]\d+)*`),
	regexp.MustCompile(`(?i)\bM\.?G\.?L\.?\s+c(?:hapter|\.)\s*\d+`),
}

// CrossRefs extracts citation markers (section/chapter/article references),
// deduplicated case-insensitively in first-seen order.
func CrossRefs(text string) []string {
	seen := make(map[string]bool)
	var refs []string
	for _, pat := range crossRefPatterns {
		for _, m := range pat.FindAllString(text, -1) {
			key := strings.ToLower(collapseSpaces(m))
			if !seen[key] {
				seen[key] = true
				refs = append(refs, collapseSpaces(m))
			}
		}
	}
	return refs
}

// keywordGroups maps a topical keyword to the patterns that signal it.
// The keyword list on a fragment is the set of group names that hit.
var keywordGroups = []struct {
	name    string
	pattern *regexp.Regexp
}{
	{"zoning", regexp.MustCompile(`(?i)\bzoning|district|setback|lot coverage|variance\b`)},
	{"permits", regexp.MustCompile(`(?i)\bpermit|license|application|approval\b`)},
	{"fees", regexp.MustCompile(`(?i)\bfee|charge|payment|\$\d`)},
	{"construction", regexp.MustCompile(`(?i)\bbuilding|construction|renovation|demolition|inspection\b`)},
	{"budget", regexp.MustCompile(`(?i)\bbudget|appropriation|expenditure|fiscal\b`)},
	{"utilities", regexp.MustCompile(`(?i)\bwater|sewer|septic|drainage|stormwater\b`)},
	{"health", regexp.MustCompile(`(?i)\bhealth|sanitation|food establishment|nuisance\b`)},
	{"meetings", regexp.MustCompile(`(?i)\bmeeting|hearing|agenda|minutes|quorum\b`)},
	{"enforcement", regexp.MustCompile(`(?i)\bviolation|penalty|enforcement|fine\b`)},
	{"conservation", regexp.MustCompile(`(?i)\bwetland|conservation|floodplain|open space\b`)},
}

// Keywords returns the topical groups whose patterns match the text.
func Keywords(text string) []string {
	var hits []string
	for _, g := range keywordGroups {
		if g.pattern.MatchString(text) {
			hits = append(hits, g.name)
		}
	}
	return hits
}

var jurisdictionPatterns = []*regexp.Regexp{
	// Zone district codes: R-1, B-2, IND-A, CB.
	regexp.MustCompile(`\b[A-Z]{1,3}-\d{1,2}[A-Z]?\b`),
	regexp.MustCompile(`\b(?:R|B|C|I|IND|CBD|GB|LB|OS)-[A-Z0-9]{1,3}\b`),
}

// JurisdictionCodes extracts zone/district codes, deduplicated in
// first-seen order.
func JurisdictionCodes(text string) []string {
	seen := make(map[string]bool)
	var codes []string
	for _, pat := range jurisdictionPatterns {
		for _, m := range pat.FindAllString(text, -1) {
			if !seen[m] {
				seen[m] = true
				codes = append(codes, m)
			}
		}
	}
	return codes
}

var (
	effectiveDateRe = regexp.MustCompile(`(?i)effective(?:\s+date)?[:\s]+(\w+ \d{1,2},? \d{4}|\d{1,2}/\d{1,2}/\d{2,4})`)
	amendedDateRe   = regexp.MustCompile(`(?i)(?:last )?amended[:\s]+(\w+ \d{1,2},? \d{4}|\d{1,2}/\d{1,2}/\d{2,4})`)
	plainDateRe     = regexp.MustCompile(`\b(\w+ \d{1,2}, \d{4})\b`)
)

// ExtractDates pulls effective, last-amended, and document dates from the
// text where stated. Missing dates come back empty.
func ExtractDates(text string) (effective, amended, document string) {
	if m := effectiveDateRe.FindStringSubmatch(text); m != nil {
		effective = m[1]
	}
	if m := amendedDateRe.FindStringSubmatch(text); m != nil {
		amended = m[1]
	}
	if m := plainDateRe.FindStringSubmatch(text); m != nil {
		document = m[1]
	}
	return effective, amended, document
}

var spaceRunRe = regexp.MustCompile(`\s+`)

func collapseSpaces(s string) string {
	return spaceRunRe.ReplaceAllString(s, " ")
}
