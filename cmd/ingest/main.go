// Command ingest crawls a municipal government website and stores its pages
// and PDFs as token-bounded, metadata-enriched fragments ready for a
// retrieval pipeline.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/muniqa/ingest/config"
	"github.com/muniqa/ingest/crawl"
	"github.com/muniqa/ingest/pipeline"
	"github.com/muniqa/ingest/store"
)

func main() {
	var (
		cfgPath  = flag.String("config", "ingest.yaml", "path to the YAML run configuration")
		resume   = flag.Bool("resume", false, "resume from the stored checkpoint if one exists")
		logLevel = flag.String("log-level", "info", "log level: debug, info, warn, error")
	)
	flag.Parse()

	logger := newLogger(*logLevel)
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.LoadFile(*cfgPath)
	if err != nil {
		logger.Error("loading configuration failed", "error", err)
		os.Exit(1)
	}

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		logger.Error("opening store failed", "path", cfg.Store.Path, "error", err)
		os.Exit(1)
	}
	defer st.Close()

	crawlCfg := cfg.CrawlerConfig()
	crawlCfg.Resume = *resume
	crawlCfg.Logger = logger

	crawler, err := crawl.New(crawlCfg, st)
	if err != nil {
		logger.Error("building crawler failed", "error", err)
		os.Exit(1)
	}

	logger.Info("crawl starting",
		"seeds", cfg.Site.Seeds, "max_pages", crawlCfg.MaxPages, "resume", *resume)
	res, err := crawler.Run(ctx)
	if err != nil {
		logger.Error("crawl failed", "error", err)
		os.Exit(1)
	}
	logger.Info("crawl finished",
		"pages_fetched", res.Summary.PagesFetched,
		"pages_skipped", res.Summary.PagesSkipped,
		"pdfs_discovered", res.Summary.PDFsDiscovered,
		"extraction_failures", res.Summary.ExtractionFailures)

	pipe := pipeline.New(st, nil, logger)
	sum, err := pipe.Run(ctx, res.Documents)
	if err != nil {
		logger.Error("processing failed", "error", err)
		os.Exit(1)
	}

	if len(res.PDFURLs) > 0 {
		fetcher := crawl.NewFetcher(crawlCfg)
		gate := crawl.NewGate(nil, crawlCfg.UserAgent, crawlCfg.RequestDelay, logger)
		pdfSum, err := pipe.HarvestPDFs(ctx, fetcher, gate, res.PDFURLs)
		if err != nil {
			logger.Error("pdf harvest failed", "error", err)
			os.Exit(1)
		}
		sum.DocumentsProcessed += pdfSum.DocumentsProcessed
		sum.FragmentsEmitted += pdfSum.FragmentsEmitted
		sum.PDFsProcessed = pdfSum.PDFsProcessed
		sum.PDFsSkipped = pdfSum.PDFsSkipped
		sum.Failures += pdfSum.Failures
	}

	// Results are in the store; the progress snapshot is no longer needed.
	if err := crawler.ClearCheckpoint(ctx); err != nil {
		logger.Warn("clearing checkpoint failed", "error", err)
	}

	docs, frags, err := st.Counts(ctx)
	if err != nil {
		logger.Error("reading store counts failed", "error", err)
		os.Exit(1)
	}
	logger.Info("ingestion finished", "stored_documents", docs, "stored_fragments", frags)

	report := struct {
		Crawl   crawl.Summary    `json:"crawl"`
		Process pipeline.Summary `json:"process"`
	}{res.Summary, *sum}
	if err := json.NewEncoder(os.Stdout).Encode(report); err != nil {
		logger.Error("writing report failed", "error", err)
		os.Exit(1)
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
