package crawl

import (
	"context"
	"encoding/xml"
	"fmt"
	"log/slog"
	"net/url"
)

// sitemapMaxDepth bounds sitemapindex recursion; real municipal sites
// rarely nest past two levels.
const sitemapMaxDepth = 3

type sitemapIndex struct {
	XMLName  xml.Name `xml:"sitemapindex"`
	Sitemaps []struct {
		Loc string `xml:"loc"`
	} `xml:"sitemap"`
}

type urlSet struct {
	XMLName xml.Name `xml:"urlset"`
	URLs    []struct {
		Loc string `xml:"loc"`
	} `xml:"url"`
}

// ResolveSitemaps fetches seed's /sitemap.xml and returns its page URLs,
// recursing through sitemap index files and capping the result at limit.
// Every fetch awaits the gate delay. Any failure degrades to an empty
// list; the crawl then proceeds from the literal seeds alone.
func ResolveSitemaps(ctx context.Context, f *Fetcher, gate *Gate, seed string, limit int, logger *slog.Logger) []string {
	u, err := url.Parse(seed)
	if err != nil {
		return nil
	}
	root := u.Scheme + "://" + u.Host + "/sitemap.xml"

	type entry struct {
		loc   string
		depth int
	}
	queue := []entry{{loc: root, depth: 0}}
	seen := map[string]bool{root: true}
	var pages []string

	for len(queue) > 0 && len(pages) < limit {
		e := queue[0]
		queue = queue[1:]

		if err := gate.Wait(ctx); err != nil {
			return pages
		}
		res, err := f.Fetch(ctx, e.loc)
		if err != nil {
			logger.Debug("sitemap fetch failed", "url", e.loc, "error", err)
			continue
		}

		var idx sitemapIndex
		if xml.Unmarshal(res.Body, &idx) == nil && len(idx.Sitemaps) > 0 {
			if e.depth+1 >= sitemapMaxDepth {
				continue
			}
			for _, sm := range idx.Sitemaps {
				if loc, err := Normalize(sm.Loc); err == nil && !seen[loc] {
					seen[loc] = true
					queue = append(queue, entry{loc: loc, depth: e.depth + 1})
				}
			}
			continue
		}

		var set urlSet
		if err := xml.Unmarshal(res.Body, &set); err != nil {
			logger.Debug("sitemap unparseable", "url", e.loc,
				"error", fmt.Errorf("decode sitemap: %w", err))
			continue
		}
		for _, su := range set.URLs {
			if len(pages) >= limit {
				break
			}
			if loc, err := Normalize(su.Loc); err == nil && !seen[loc] {
				seen[loc] = true
				pages = append(pages, loc)
			}
		}
	}
	return pages
}
