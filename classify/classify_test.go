package classify

import "testing"

func TestClassify_PerType(t *testing.T) {
	tests := []struct {
		name    string
		title   string
		content string
		want    DocType
	}{
		{"zoning by title", "Zoning By-Law", "dimensional requirements for residential districts", TypeZoning},
		{"zoning by content", "Chapter 40", "minimum setback from the front lot line", TypeZoning},
		{"fee schedule", "Building Department Fee Schedule", "permit fees effective July 1", TypeFeeSchedule},
		{"budget", "FY2026 Operating Budget", "appropriation by department", TypeBudget},
		{"minutes", "Select Board", "Meeting minutes. The meeting was called to order at 7:00 PM.", TypeMinutes},
		{"planning", "Planning Board Decision", "site plan review for 12 Main Street", TypePlanning},
		{"permit", "How to Apply", "a building permit is required before construction", TypePermit},
		{"health", "Board of Health Regulations", "food establishment permits", TypeHealth},
		{"public works", "Department of Public Works", "trash collection schedule", TypePublicWorks},
		{"bylaw", "General By-Laws of the Town", "adopted at town meeting", TypeBylaw},
		{"generic", "Welcome", "general information about our community", TypeGeneric},
		{"empty", "", "", TypeGeneric},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.title, tt.content); got != tt.want {
				t.Errorf("Classify(%q, %q): got %s, want %s", tt.title, tt.content, got, tt.want)
			}
		})
	}
}

// Rule order is behavior: a zoning bylaw must classify as zoning, not
// bylaw, because the zoning rule precedes the bylaw rule.
func TestClassify_OrderPrecedence(t *testing.T) {
	got := Classify("Zoning By-Law", "the town's zoning by-law and ordinances")
	if got != TypeZoning {
		t.Errorf("zoning must win over bylaw: got %s", got)
	}

	// Fee schedule inside a budget document: fee rule precedes budget rule.
	got = Classify("FY2026 Budget Fee Schedule", "fiscal year appropriations and fees")
	if got != TypeFeeSchedule {
		t.Errorf("fee schedule must win over budget: got %s", got)
	}
}

func TestClassify_Deterministic(t *testing.T) {
	title, content := "Zoning Map Amendments", "overlay district boundaries"
	first := Classify(title, content)
	for i := 0; i < 10; i++ {
		if got := Classify(title, content); got != first {
			t.Fatalf("classification not deterministic: %s then %s", first, got)
		}
	}
}

func TestClassify_ContentPrefixOnly(t *testing.T) {
	// A marker beyond the 2000-char prefix must not influence the result.
	padding := make([]byte, contentPrefixLen)
	for i := range padding {
		padding[i] = 'x'
	}
	content := string(padding) + " zoning dimensional requirements"
	if got := Classify("Untitled", content); got != TypeGeneric {
		t.Errorf("marker past prefix should be ignored: got %s", got)
	}
}

func TestChunking_OverlapRatio(t *testing.T) {
	for _, dt := range Types() {
		cfg := Chunking(dt)
		if cfg.MaxTokens <= 0 {
			t.Errorf("%s: MaxTokens=%d", dt, cfg.MaxTokens)
		}
		if cfg.OverlapTokens >= cfg.MaxTokens {
			t.Errorf("%s: overlap %d >= max %d", dt, cfg.OverlapTokens, cfg.MaxTokens)
		}
		ratio := float64(cfg.OverlapTokens) / float64(cfg.MaxTokens)
		if ratio < 0.20 || ratio > 0.30 {
			t.Errorf("%s: overlap ratio %.2f, want ~0.25", dt, ratio)
		}
	}
}

func TestChunking_TableAtomicTypes(t *testing.T) {
	for _, dt := range []DocType{TypeFeeSchedule, TypeBudget} {
		if got := Chunking(dt).Strategy; got != BreakTableAtomic {
			t.Errorf("%s: strategy %s, want table_atomic", dt, got)
		}
	}
}

func TestCategory(t *testing.T) {
	tests := []struct {
		t    DocType
		want string
	}{
		{TypeZoning, "regulation"},
		{TypeFeeSchedule, "financial_data"},
		{TypePermit, "procedure_step"},
		{TypeMinutes, "meeting_item"},
		{TypeGeneric, "informational"},
	}
	for _, tt := range tests {
		if got := Category(tt.t); got != tt.want {
			t.Errorf("Category(%s): got %s, want %s", tt.t, got, tt.want)
		}
	}
}
