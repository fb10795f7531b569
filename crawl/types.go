// Package crawl implements a polite, resumable breadth-first crawler for a
// single municipal site: frontier, robots gate, fetcher, sitemap seeding,
// link discovery, and periodic progress checkpointing.
package crawl

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// ErrNoSeeds means no seed URL survived validation; the run cannot start.
var ErrNoSeeds = errors.New("no valid seed URLs")

// Task is one unit of frontier work.
type Task struct {
	URL   string `json:"url"`
	Depth int    `json:"depth"`
}

// Document is an extracted page, immutable once produced.
type Document struct {
	ContentText  string    `json:"content_text"`
	SourceURL    string    `json:"source_url"`
	Title        string    `json:"title"`
	DocumentKind string    `json:"document_kind"` // "html" or "pdf"
	Department   string    `json:"department,omitempty"`
	LastUpdated  time.Time `json:"last_updated"`
	ContentHash  string    `json:"content_hash"`
	SizeBytes    int       `json:"size_bytes"`
}

// Progress is the serialized frontier state written at every checkpoint
// and reloaded verbatim on resume. Owned exclusively by the frontier.
type Progress struct {
	Visited        []string   `json:"visited"`
	Queue          []Task     `json:"queue"`
	PDFs           []string   `json:"pdfs"`
	Documents      []Document `json:"documents"`
	PagesFetched   int        `json:"pages_fetched"`
	StartedAt      time.Time  `json:"started_at"`
	CheckpointedAt time.Time  `json:"checkpointed_at"`
}

// CheckpointStore persists Progress snapshots between checkpoints.
// Save must overwrite atomically; Load returns (nil, nil) when no
// checkpoint exists.
type CheckpointStore interface {
	SaveProgress(ctx context.Context, p *Progress) error
	LoadProgress(ctx context.Context) (*Progress, error)
	ClearProgress(ctx context.Context) error
}

// Summary is the per-run report.
type Summary struct {
	PagesFetched       int `json:"pages_fetched"`
	PagesSkipped       int `json:"pages_skipped"`
	PDFsDiscovered     int `json:"pdfs_discovered"`
	ExtractionFailures int `json:"extraction_failures"`
}

// Result is the output of a completed run.
type Result struct {
	Documents []Document
	PDFURLs   []string
	Summary   Summary
}

// DepartmentRule maps a title pattern to a department, used when the URL
// path carries no department hint. Ordered.
type DepartmentRule struct {
	Pattern    string `yaml:"pattern"`
	Department string `yaml:"department"`
}

// Config configures a crawl run.
type Config struct {
	// Seeds are the starting URLs. Required.
	Seeds []string
	// AllowedDomains restricts the crawl. Defaults to the seed hosts.
	AllowedDomains []string
	// MaxDepth bounds link-following distance from a seed. Default: 5.
	MaxDepth int
	// MaxPages is the per-run page ceiling. Default: 500.
	MaxPages int
	// RequestDelay is awaited before every fetch. Default: 1s.
	RequestDelay time.Duration
	// FetchTimeout bounds one HTTP round trip. Default: 30s.
	FetchTimeout time.Duration
	// MaxRetries bounds network-level retry attempts. Default: 3.
	MaxRetries int
	// MaxBodyBytes caps a response body. Default: 10MB.
	MaxBodyBytes int64
	// UserAgent sent with every request.
	UserAgent string
	// MinTextLen: pages extracting below this are discarded as noise.
	MinTextLen int
	// CheckpointEvery: completed pages between checkpoints. Default: 10.
	CheckpointEvery int
	// Resume loads an existing checkpoint instead of starting fresh.
	Resume bool
	// SkipPatterns are additional URL regexes to skip, on top of the
	// built-in table (calendars, login, media assets, stylesheets).
	SkipPatterns []string
	// PathDepartments maps URL path prefixes to department names.
	PathDepartments map[string]string
	// TitleDepartments is the ordered title-based fallback table.
	TitleDepartments []DepartmentRule

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.MaxDepth <= 0 {
		c.MaxDepth = 5
	}
	if c.MaxPages <= 0 {
		c.MaxPages = 500
	}
	if c.RequestDelay <= 0 {
		c.RequestDelay = time.Second
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 30 * time.Second
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = 10 * 1024 * 1024
	}
	if c.UserAgent == "" {
		c.UserAgent = "muniqa-ingest/1.0"
	}
	if c.MinTextLen <= 0 {
		c.MinTextLen = 100
	}
	if c.CheckpointEvery <= 0 {
		c.CheckpointEvery = 10
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}
