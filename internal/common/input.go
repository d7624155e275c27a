package common

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dtnitsch/llm-event-parser/models"
	"github.com/dtnitsch/llm-event-parser/pkg/caching"
	"github.com/dtnitsch/llm-event-parser/pkg/fetcher"
	"github.com/dtnitsch/llm-event-parser/pkg/urls"
	"github.com/urfave/cli/v2"
)

// PageFlags select the page a single-step command works on.
var PageFlags = []cli.Flag{
	&cli.StringFlag{Name: "url", Usage: "Fetch the page live from this URL"},
	&cli.StringFlag{Name: "file", Usage: "Read page HTML from a local file (use --url to label it)"},
	&cli.StringFlag{Name: "domain", Usage: "Read a stored crawl record for this domain"},
	&cli.IntFlag{Name: "index", Usage: "Crawl record index, with --domain"},
	&cli.DurationFlag{Name: "max-age", Usage: "Reuse a cached fetch younger than this (default from config)"},
	&cli.BoolFlag{Name: "force-fetch", Usage: "Ignore the fetch cache"},
}

// LoadCandidate resolves the page named by PageFlags. A stored record wins
// over --file, and --file wins over a live fetch.
func LoadCandidate(ctx context.Context, c *cli.Context, env *Env) (models.EventCandidate, error) {
	switch {
	case c.String("domain") != "":
		rec, err := env.Store().Load(c.String("domain"), c.Int("index"))
		if err != nil {
			return models.EventCandidate{}, err
		}
		return models.EventCandidate{URL: rec.URL, HTML: rec.HTML}, nil

	case c.String("file") != "":
		data, err := os.ReadFile(c.String("file"))
		if err != nil {
			return models.EventCandidate{}, fmt.Errorf("failed to read %s: %w", c.String("file"), err)
		}
		html, err := fetcher.BodyHTML(data)
		if err != nil {
			return models.EventCandidate{}, err
		}
		if html == "" {
			html = string(data)
		}
		return models.EventCandidate{URL: c.String("url"), HTML: html}, nil

	case c.String("url") != "":
		url, err := urls.ValidateURL(c.String("url"))
		if err != nil {
			return models.EventCandidate{}, err
		}
		html, err := fetchBody(ctx, c, env, url)
		if err != nil {
			return models.EventCandidate{}, err
		}
		return models.EventCandidate{URL: url, HTML: html}, nil
	}

	return models.EventCandidate{}, fmt.Errorf("one of --url, --file or --domain is required")
}

// fetchBody returns the page's body markup, from the cache when fresh
// enough. --force-fetch drops the cached copy first.
func fetchBody(ctx context.Context, c *cli.Context, env *Env, url string) (string, error) {
	maxAge := env.Config.Fetch.CacheTTL
	if c.IsSet("max-age") {
		maxAge = c.Duration("max-age")
	}

	cache, err := caching.NewPageCache(filepath.Join(env.Config.DataDir, ".cache"), maxAge)
	if err != nil {
		return "", err
	}
	if c.Bool("force-fetch") {
		if err := cache.Invalidate(url); err != nil {
			env.Logger.Warn("failed to drop cached page", "url", url, "error", err)
		}
	} else if data, ok := cache.Get(url); ok {
		env.Logger.Debug("using cached page", "url", url, "path", cache.Path(url))
		return string(data), nil
	}

	f := fetcher.NewFetcher(env.Config.Fetch.UserAgent, env.Config.Fetch.Timeout)
	html, err := f.FetchHTML(ctx, url)
	if err != nil {
		return "", err
	}
	env.Logger.Info("fetched page", "url", url, "bytes", len(html))

	if err := cache.Set(url, []byte(html)); err != nil {
		env.Logger.Warn("failed to cache page", "url", url, "error", err)
	}
	return html, nil
}
