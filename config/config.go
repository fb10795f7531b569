// Package config loads the run configuration from a YAML file and maps it
// onto the crawler settings.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/muniqa/ingest/crawl"
)

// Config is the top-level run configuration.
type Config struct {
	Site    SiteConfig    `yaml:"site"`
	Crawl   CrawlConfig   `yaml:"crawl"`
	Extract ExtractConfig `yaml:"extract"`
	Store   StoreConfig   `yaml:"store"`
}

// SiteConfig identifies the municipal site and its department layout.
type SiteConfig struct {
	Seeds           []string               `yaml:"seeds"`
	AllowedDomains  []string               `yaml:"allowed_domains"`
	PathDepartments map[string]string      `yaml:"path_departments"`
	TitleRules      []crawl.DepartmentRule `yaml:"title_departments"`
}

// CrawlConfig controls politeness and crawl bounds.
type CrawlConfig struct {
	MaxDepth        int           `yaml:"max_depth"`
	MaxPages        int           `yaml:"max_pages"`
	RequestDelay    time.Duration `yaml:"request_delay"`
	FetchTimeout    time.Duration `yaml:"fetch_timeout"`
	MaxRetries      int           `yaml:"max_retries"`
	UserAgent       string        `yaml:"user_agent"`
	CheckpointEvery int           `yaml:"checkpoint_every"`
	SkipPatterns    []string      `yaml:"skip_patterns"`
}

// ExtractConfig controls content extraction thresholds.
type ExtractConfig struct {
	MinTextLen int `yaml:"min_text_len"`
}

// StoreConfig locates the SQLite database.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// LoadFile reads a YAML configuration file and applies defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Crawl.MaxDepth <= 0 {
		c.Crawl.MaxDepth = 5
	}
	if c.Crawl.MaxPages <= 0 {
		c.Crawl.MaxPages = 500
	}
	if c.Crawl.RequestDelay <= 0 {
		c.Crawl.RequestDelay = time.Second
	}
	if c.Crawl.FetchTimeout <= 0 {
		c.Crawl.FetchTimeout = 30 * time.Second
	}
	if c.Crawl.MaxRetries <= 0 {
		c.Crawl.MaxRetries = 3
	}
	if c.Crawl.CheckpointEvery <= 0 {
		c.Crawl.CheckpointEvery = 10
	}
	if c.Extract.MinTextLen <= 0 {
		c.Extract.MinTextLen = 100
	}
	if c.Store.Path == "" {
		c.Store.Path = "ingest.db"
	}
}

func (c *Config) validate() error {
	if len(c.Site.Seeds) == 0 {
		return fmt.Errorf("config: site.seeds is required")
	}
	return nil
}

// CrawlerConfig maps the file configuration onto crawl.Config. Resume and
// the logger are per-invocation and set by the caller.
func (c *Config) CrawlerConfig() crawl.Config {
	return crawl.Config{
		Seeds:            c.Site.Seeds,
		AllowedDomains:   c.Site.AllowedDomains,
		MaxDepth:         c.Crawl.MaxDepth,
		MaxPages:         c.Crawl.MaxPages,
		RequestDelay:     c.Crawl.RequestDelay,
		FetchTimeout:     c.Crawl.FetchTimeout,
		MaxRetries:       c.Crawl.MaxRetries,
		UserAgent:        c.Crawl.UserAgent,
		MinTextLen:       c.Extract.MinTextLen,
		CheckpointEvery:  c.Crawl.CheckpointEvery,
		SkipPatterns:     c.Crawl.SkipPatterns,
		PathDepartments:  c.Site.PathDepartments,
		TitleDepartments: c.Site.TitleRules,
	}
}
