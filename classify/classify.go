// Package classify assigns scraped municipal documents a type and the
// chunking parameters that go with it.
//
// Classification is a pure function of (title, content prefix): the ordered
// rule table is tested top to bottom and the first matching type wins, so
// rule order is part of the observable behavior.
package classify

import "regexp"

// DocType identifies a category of municipal document.
type DocType string

const (
	TypeZoning      DocType = "zoning_regulation"
	TypeBylaw       DocType = "general_bylaw"
	TypePermit      DocType = "building_permit"
	TypeFeeSchedule DocType = "fee_schedule"
	TypeBudget      DocType = "budget"
	TypeHealth      DocType = "public_health"
	TypePublicWorks DocType = "public_works"
	TypeMinutes     DocType = "meeting_minutes"
	TypePlanning    DocType = "planning_board"
	TypeGeneric     DocType = "generic"
)

// BreakStrategy selects how a document is partitioned into sections
// before token-bounded packing.
type BreakStrategy string

const (
	// BreakHeadings splits at markdown heading lines.
	BreakHeadings BreakStrategy = "headings"
	// BreakTableAtomic keeps table regions whole, alternating with prose.
	BreakTableAtomic BreakStrategy = "table_atomic"
)

// ChunkingConfig carries the per-type segmentation parameters.
// OverlapTokens is held at 25% of MaxTokens for every type.
type ChunkingConfig struct {
	MaxTokens     int
	OverlapTokens int
	Strategy      BreakStrategy
}

var chunkingByType = map[DocType]ChunkingConfig{
	TypeZoning:      {MaxTokens: 1024, OverlapTokens: 256, Strategy: BreakHeadings},
	TypeBylaw:       {MaxTokens: 1024, OverlapTokens: 256, Strategy: BreakHeadings},
	TypePermit:      {MaxTokens: 768, OverlapTokens: 192, Strategy: BreakHeadings},
	TypeFeeSchedule: {MaxTokens: 512, OverlapTokens: 128, Strategy: BreakTableAtomic},
	TypeBudget:      {MaxTokens: 512, OverlapTokens: 128, Strategy: BreakTableAtomic},
	TypeHealth:      {MaxTokens: 768, OverlapTokens: 192, Strategy: BreakHeadings},
	TypePublicWorks: {MaxTokens: 768, OverlapTokens: 192, Strategy: BreakHeadings},
	TypeMinutes:     {MaxTokens: 896, OverlapTokens: 224, Strategy: BreakHeadings},
	TypePlanning:    {MaxTokens: 896, OverlapTokens: 224, Strategy: BreakHeadings},
	TypeGeneric:     {MaxTokens: 768, OverlapTokens: 192, Strategy: BreakHeadings},
}

// Chunking returns the chunking parameters for a document type.
// Unknown types get the generic configuration.
func Chunking(t DocType) ChunkingConfig {
	if cfg, ok := chunkingByType[t]; ok {
		return cfg
	}
	return chunkingByType[TypeGeneric]
}

// Types returns every configured document type.
func Types() []DocType {
	types := make([]DocType, 0, len(chunkingByType))
	for t := range chunkingByType {
		types = append(types, t)
	}
	return types
}

// contentPrefixLen bounds how much content the rules inspect.
const contentPrefixLen = 2000

type rule struct {
	docType  DocType
	patterns []*regexp.Regexp
}

func compile(exprs ...string) []*regexp.Regexp {
	res := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		res[i] = regexp.MustCompile(e)
	}
	return res
}

// rules is ordered: zoning before bylaw so "Zoning By-Law" classifies as
// zoning; fee schedule before budget so fee tables inside budget pages
// keep the table-atomic strategy tuned for fees.
var rules = []rule{
	{TypeZoning, compile(
		`(?i)\bzoning\b`,
		`(?i)dimensional requirements?`,
		`(?i)overlay district`,
		`(?i)\bsetback\b`,
		`(?i)use table`,
	)},
	{TypeFeeSchedule, compile(
		`(?i)fee schedule`,
		`(?i)schedule of fees`,
		`(?i)\bfees? and charges\b`,
		`(?i)permit fees?`,
		`(?i)license fees?`,
	)},
	{TypeBudget, compile(
		`(?i)\bbudget\b`,
		`(?i)appropriation`,
		`(?i)capital (improvement|plan)`,
		`(?i)fiscal year`,
	)},
	{TypeMinutes, compile(
		`(?i)meeting minutes`,
		`(?i)minutes of the`,
		`(?i)\bcall(ed)? to order\b`,
		`(?i)motion (to|was) (approve|accept|adjourn)`,
	)},
	{TypePlanning, compile(
		`(?i)planning board`,
		`(?i)site plan review`,
		`(?i)special permit`,
		`(?i)subdivision`,
	)},
	{TypePermit, compile(
		`(?i)building permit`,
		`(?i)certificate of occupancy`,
		`(?i)building code`,
		`(?i)inspection(s)? (schedule|request)`,
	)},
	{TypeHealth, compile(
		`(?i)board of health`,
		`(?i)health (regulation|code|department)`,
		`(?i)food establishment`,
		`(?i)septic|title 5`,
	)},
	{TypePublicWorks, compile(
		`(?i)public works`,
		`(?i)\bdpw\b`,
		`(?i)(trash|recycling|snow) (pickup|collection|removal)`,
		`(?i)water (and|&) sewer`,
	)},
	{TypeBylaw, compile(
		`(?i)by-?laws?\b`,
		`(?i)\bordinance\b`,
		`(?i)town code`,
		`(?i)general code`,
	)},
}

// Classify maps (title, content) to a document type. The title and the
// first 2000 characters of content are tested against the ordered rule
// table; the first type with any matching pattern wins. No match falls
// back to TypeGeneric.
func Classify(title, content string) DocType {
	if len(content) > contentPrefixLen {
		content = content[:contentPrefixLen]
	}
	haystack := title + "\n" + content

	for _, r := range rules {
		for _, pat := range r.patterns {
			if pat.MatchString(haystack) {
				return r.docType
			}
		}
	}
	return TypeGeneric
}

// Category is the retrieval-facing chunk category for a document type.
// Table-bearing fragments override this with "table" at metadata time.
func Category(t DocType) string {
	switch t {
	case TypeZoning, TypeBylaw, TypeHealth:
		return "regulation"
	case TypeFeeSchedule, TypeBudget:
		return "financial_data"
	case TypePermit:
		return "procedure_step"
	case TypeMinutes, TypePlanning:
		return "meeting_item"
	default:
		return "informational"
	}
}
