package crawl

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/muniqa/ingest/extract"
)

// Crawler runs one sequential breadth-first crawl over a municipal site,
// emitting extracted documents and diverted PDF URLs.
type Crawler struct {
	cfg       Config
	gate      *Gate
	fetcher   *Fetcher
	frontier  *Frontier
	extractor *extract.Extractor
	ckpt      CheckpointStore

	seeds    map[string]bool
	prefixes []string // PathDepartments keys, longest first
	titles   []titleRule
	summary  Summary
	started  time.Time
}

type titleRule struct {
	match      func(string) bool
	department string
}

// New validates configuration and builds a Crawler. ckpt may be nil, which
// disables checkpointing and resume.
func New(cfg Config, ckpt CheckpointStore) (*Crawler, error) {
	cfg.defaults()

	seeds := make(map[string]bool)
	var seedHosts []string
	for _, raw := range cfg.Seeds {
		norm, err := Normalize(raw)
		if err != nil {
			cfg.Logger.Warn("dropping invalid seed", "seed", raw, "error", err)
			continue
		}
		if !seeds[norm] {
			seeds[norm] = true
			seedHosts = append(seedHosts, Host(norm))
		}
	}
	if len(seeds) == 0 {
		return nil, ErrNoSeeds
	}
	if len(cfg.AllowedDomains) == 0 {
		cfg.AllowedDomains = seedHosts
	}

	frontier, err := NewFrontier(cfg)
	if err != nil {
		return nil, err
	}

	c := &Crawler{
		cfg:      cfg,
		gate:     NewGate(nil, cfg.UserAgent, cfg.RequestDelay, cfg.Logger),
		fetcher:  NewFetcher(cfg),
		frontier: frontier,
		extractor: extract.New(extract.Options{
			MinTextLen: cfg.MinTextLen,
		}),
		ckpt:  ckpt,
		seeds: seeds,
	}

	for prefix := range cfg.PathDepartments {
		c.prefixes = append(c.prefixes, prefix)
	}
	sort.Slice(c.prefixes, func(i, j int) bool { return len(c.prefixes[i]) > len(c.prefixes[j]) })

	for _, rule := range cfg.TitleDepartments {
		pat := strings.ToLower(rule.Pattern)
		dept := rule.Department
		c.titles = append(c.titles, titleRule{
			match:      func(title string) bool { return strings.Contains(strings.ToLower(title), pat) },
			department: dept,
		})
	}
	return c, nil
}

// Run drives the crawl to completion or context cancellation. On a clean
// finish a final checkpoint is written holding the complete document and
// PDF lists with an empty queue, so a crash before downstream processing
// finishes can resume without refetching; the caller clears it via
// ClearCheckpoint once the results are persisted. A checkpoint write
// failure aborts the run, since continuing would make the completed work
// unrecoverable.
func (c *Crawler) Run(ctx context.Context) (*Result, error) {
	log := c.cfg.Logger
	c.started = time.Now().UTC()

	resumed := false
	if c.cfg.Resume && c.ckpt != nil {
		p, err := c.ckpt.LoadProgress(ctx)
		if err != nil {
			return nil, fmt.Errorf("load checkpoint: %w", err)
		}
		if p != nil {
			c.frontier.Restore(p)
			if !p.StartedAt.IsZero() {
				c.started = p.StartedAt
			}
			resumed = true
			log.Info("resumed from checkpoint",
				"queued", len(p.Queue),
				"visited", len(p.Visited),
				"documents", len(p.Documents))
		}
	}
	if !resumed {
		c.seedFrontier(ctx)
	}

	sinceCheckpoint := 0
	for c.frontier.Pending() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if c.frontier.PagesFetched() >= c.cfg.MaxPages {
			log.Info("page budget reached", "pages", c.frontier.PagesFetched())
			break
		}

		task, ok := c.frontier.Next()
		if !ok {
			break
		}
		if !c.seeds[task.URL] && !c.gate.Allowed(ctx, task.URL) {
			log.Debug("disallowed by robots.txt", "url", task.URL)
			c.summary.PagesSkipped++
			continue
		}
		if err := c.gate.Wait(ctx); err != nil {
			return nil, err
		}

		if err := c.visit(ctx, task); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			log.Warn("page dropped", "url", task.URL, "error", err)
			c.summary.PagesSkipped++
			continue
		}

		sinceCheckpoint++
		if c.ckpt != nil && sinceCheckpoint >= c.cfg.CheckpointEvery {
			if err := c.checkpoint(ctx); err != nil {
				return nil, err
			}
			sinceCheckpoint = 0
		}
	}

	if c.ckpt != nil {
		if err := c.checkpoint(ctx); err != nil {
			return nil, err
		}
	}

	c.summary.PagesFetched = c.frontier.PagesFetched()
	c.summary.PDFsDiscovered = len(c.frontier.PDFs())
	return &Result{
		Documents: c.frontier.Documents(),
		PDFURLs:   c.frontier.PDFs(),
		Summary:   c.summary,
	}, nil
}

// seedFrontier primes a fresh run: sitemap URLs first, then the literal
// seeds. Sitemap failure is non-fatal.
func (c *Crawler) seedFrontier(ctx context.Context) {
	var first string
	for u := range c.seeds {
		first = u
		break
	}
	pages := ResolveSitemaps(ctx, c.fetcher, c.gate, first, c.cfg.MaxPages, c.cfg.Logger)
	if len(pages) > 0 {
		c.cfg.Logger.Info("seeded from sitemap", "urls", len(pages))
	}
	for _, u := range pages {
		c.frontier.Push(u, 1)
	}
	for u := range c.seeds {
		c.frontier.Push(u, 0)
	}
}

// visit fetches one page, extracts its content, and feeds discovered links
// back into the frontier. Extraction failure still mines the page for
// links; link noise is cheaper than a lost subtree.
func (c *Crawler) visit(ctx context.Context, task Task) error {
	res, err := c.fetcher.Fetch(ctx, task.URL)
	if err != nil {
		return err
	}
	c.frontier.CountFetch()

	switch {
	case res.IsPDF():
		// Pages can redirect or masquerade; fold it into the PDF pass.
		c.frontier.AddPDF(task.URL)
		return nil
	case !res.IsHTML():
		return fmt.Errorf("unsupported content type %q", res.ContentType)
	}

	links, err := Discover(task.URL, res.Body)
	if err == nil {
		for _, pdf := range links.PDFs {
			c.frontier.AddPDF(pdf)
		}
		for _, page := range links.Pages {
			c.frontier.Push(page, task.Depth+1)
		}
	}

	extracted, err := c.extractor.Extract(res.Body, task.URL)
	if err != nil {
		if errors.Is(err, extract.ErrContentTooShort) {
			c.cfg.Logger.Debug("page below minimum text length", "url", task.URL)
		} else {
			c.cfg.Logger.Warn("extraction failed", "url", task.URL, "error", err)
		}
		c.summary.ExtractionFailures++
		return nil
	}

	c.frontier.AddDocument(Document{
		ContentText:  extracted.Text,
		SourceURL:    task.URL,
		Title:        extracted.Title,
		DocumentKind: "html",
		Department:   c.departmentFor(task.URL, extracted.Title),
		LastUpdated:  res.FetchedAt,
		ContentHash:  extracted.Hash,
		SizeBytes:    extracted.SizeBytes,
	})
	return nil
}

// ClearCheckpoint removes the stored progress snapshot. Call it only after
// the run's results have been durably persisted downstream.
func (c *Crawler) ClearCheckpoint(ctx context.Context) error {
	if c.ckpt == nil {
		return nil
	}
	if err := c.ckpt.ClearProgress(ctx); err != nil {
		return fmt.Errorf("clear checkpoint: %w", err)
	}
	return nil
}

func (c *Crawler) checkpoint(ctx context.Context) error {
	p := c.frontier.Snapshot()
	p.StartedAt = c.started
	p.CheckpointedAt = time.Now().UTC()
	if err := c.ckpt.SaveProgress(ctx, p); err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	c.cfg.Logger.Debug("checkpoint saved",
		"documents", len(p.Documents), "queued", len(p.Queue))
	return nil
}

// departmentFor attributes a page to a department: longest matching path
// prefix first, then the ordered title rules, else unattributed.
func (c *Crawler) departmentFor(pageURL, title string) string {
	if u, err := url.Parse(pageURL); err == nil {
		path := strings.ToLower(u.Path)
		for _, prefix := range c.prefixes {
			if strings.HasPrefix(path, strings.ToLower(prefix)) {
				return c.cfg.PathDepartments[prefix]
			}
		}
	}
	for _, rule := range c.titles {
		if rule.match(title) {
			return rule.department
		}
	}
	return ""
}
