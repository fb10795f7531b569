package crawl

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

// Gate enforces site politeness: a per-host robots.txt verdict cache and a
// fixed inter-request delay. One Gate serves one crawl run.
type Gate struct {
	client *http.Client
	agent  string
	delay  time.Duration
	logger *slog.Logger

	mu    sync.Mutex
	hosts map[string]*robotstxt.RobotsData
}

// NewGate builds a Gate. A nil client gets a default with the given timeout.
func NewGate(client *http.Client, agent string, delay time.Duration, logger *slog.Logger) *Gate {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{
		client: client,
		agent:  agent,
		delay:  delay,
		logger: logger,
		hosts:  make(map[string]*robotstxt.RobotsData),
	}
}

// Allowed consults the host's robots.txt, fetching and caching it on first
// contact. An unreachable or unparseable robots.txt permits everything for
// that host.
func (g *Gate) Allowed(ctx context.Context, rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	data := g.robotsFor(ctx, u)
	if data == nil {
		return true
	}
	return data.TestAgent(u.Path, g.agent)
}

// Wait blocks for the configured inter-request delay or until the context
// is done.
func (g *Gate) Wait(ctx context.Context) error {
	if g.delay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(g.delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (g *Gate) robotsFor(ctx context.Context, u *url.URL) *robotstxt.RobotsData {
	host := u.Scheme + "://" + u.Host
	g.mu.Lock()
	if data, ok := g.hosts[host]; ok {
		g.mu.Unlock()
		return data
	}
	g.mu.Unlock()

	data := g.fetchRobots(ctx, host)

	g.mu.Lock()
	g.hosts[host] = data
	g.mu.Unlock()
	return data
}

func (g *Gate) fetchRobots(ctx context.Context, host string) *robotstxt.RobotsData {
	// First contact with a host is still a fetch; it honors the same delay.
	if err := g.Wait(ctx); err != nil {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, host+"/robots.txt", nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", g.agent)

	resp, err := g.client.Do(req)
	if err != nil {
		g.logger.Debug("robots.txt unreachable, allowing all", "host", host, "error", err)
		return nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 512*1024))
	if err != nil {
		return nil
	}
	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		g.logger.Debug("robots.txt unparseable, allowing all",
			"host", host, "error", fmt.Errorf("parse robots: %w", err))
		return nil
	}
	return data
}
