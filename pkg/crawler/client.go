// Package crawler drives the external crawling service and persists the
// pages it returns.
package crawler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/dtnitsch/llm-event-parser/models"
	firecrawl "github.com/mendableai/firecrawl-go/v2"
)

// ErrCrawlFailed is returned when the service reports the crawl job failed.
var ErrCrawlFailed = errors.New("crawl failed")

// Job statuses reported by the service.
const (
	StatusScraping  = "scraping"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// Page is one page returned by the service.
type Page struct {
	HTML     string         `json:"html"`
	Markdown string         `json:"markdown,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// URL returns the page's source URL from its metadata.
func (p Page) URL() string {
	for _, key := range []string{"sourceURL", "url", "ogUrl"} {
		if s, ok := p.Metadata[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func pageFromDocument(doc *firecrawl.FirecrawlDocument) Page {
	p := Page{HTML: doc.HTML, Markdown: doc.Markdown}
	if p.HTML == "" {
		p.HTML = doc.RawHTML
	}
	if doc.Metadata != nil {
		if data, err := json.Marshal(doc.Metadata); err == nil {
			_ = json.Unmarshal(data, &p.Metadata)
		}
	}
	return p
}

// Client runs crawl jobs through the Firecrawl SDK.
type Client struct {
	app          *firecrawl.FirecrawlApp
	limit        int
	formats      []string
	pollInterval time.Duration
	logger       *slog.Logger
}

// NewClient creates a client from crawl configuration. Zero values fall
// back to the defaults: limit 200, html format, 5s polling.
func NewClient(cfg models.CrawlConfig, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	apiURL := cfg.APIURL
	if apiURL == "" {
		apiURL = models.DefaultCrawlAPIURL
	}
	app, err := firecrawl.NewFirecrawlApp(cfg.APIKey, apiURL, 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("failed to create crawl client: %w", err)
	}

	c := &Client{
		app:          app,
		limit:        cfg.Limit,
		formats:      cfg.Formats,
		pollInterval: cfg.PollInterval,
		logger:       logger,
	}
	if c.limit <= 0 {
		c.limit = models.DefaultCrawlLimit
	}
	if len(c.formats) == 0 {
		c.formats = []string{"html"}
	}
	if c.pollInterval <= 0 {
		c.pollInterval = models.DefaultPollInterval
	}
	return c, nil
}

// Crawl starts a job for seedURL and blocks until it completes or fails.
// On failure the pages gathered so far are returned with ErrCrawlFailed.
func (c *Client) Crawl(ctx context.Context, seedURL string) ([]Page, error) {
	id, err := c.StartCrawl(ctx, seedURL)
	if err != nil {
		return nil, err
	}
	c.logger.Info("crawl started", "id", id, "url", seedURL, "limit", c.limit)
	return c.Wait(ctx, id)
}

// StartCrawl submits a crawl job and returns its id.
func (c *Client) StartCrawl(ctx context.Context, seedURL string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	limit := c.limit
	resp, err := c.app.AsyncCrawlURL(seedURL, &firecrawl.CrawlParams{
		Limit:         &limit,
		ScrapeOptions: firecrawl.ScrapeParams{Formats: c.formats},
	}, nil)
	if err != nil {
		return "", fmt.Errorf("failed to start crawl: %w", err)
	}
	if resp == nil || resp.ID == "" {
		return "", fmt.Errorf("failed to start crawl: no job id returned")
	}
	return resp.ID, nil
}

// Status fetches the first status page of a job.
func (c *Client) Status(id string) (*firecrawl.CrawlStatusResponse, error) {
	status, err := c.app.CheckCrawlStatus(id)
	if err != nil {
		return nil, fmt.Errorf("failed to get crawl status: %w", err)
	}
	return status, nil
}

// Wait polls a job every poll interval until it leaves the scraping state,
// then follows next links to gather every page. A cancelled context also
// cancels the job on the service.
func (c *Client) Wait(ctx context.Context, id string) ([]Page, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		status, err := c.Status(id)
		if err != nil {
			return nil, err
		}

		switch status.Status {
		case StatusCompleted:
			pages, err := c.collect(ctx, status)
			if err != nil {
				return pages, err
			}
			c.logger.Info("crawl completed", "id", id, "pages", len(pages))
			return pages, nil
		case StatusFailed, StatusCancelled:
			pages, _ := c.collect(ctx, status)
			c.logger.Error("crawl did not complete", "id", id, "status", status.Status, "pages", len(pages))
			return pages, fmt.Errorf("%w: job %s %s", ErrCrawlFailed, id, status.Status)
		default:
			c.logger.Debug("crawl in progress", "id", id, "completed", status.Completed, "total", status.Total)
		}

		select {
		case <-ctx.Done():
			if _, err := c.app.CancelCrawlJob(id); err != nil {
				c.logger.Warn("failed to cancel crawl job", "id", id, "error", err)
			}
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Client) collect(ctx context.Context, first *firecrawl.CrawlStatusResponse) ([]Page, error) {
	var pages []Page
	add := func(docs []*firecrawl.FirecrawlDocument) {
		for _, doc := range docs {
			if doc != nil {
				pages = append(pages, pageFromDocument(doc))
			}
		}
	}
	add(first.Data)

	next := first.Next
	seen := map[string]bool{}
	for next != nil && *next != "" && !seen[*next] {
		seen[*next] = true
		page, err := c.statusPage(ctx, *next)
		if err != nil {
			return pages, fmt.Errorf("failed to fetch crawl results page: %w", err)
		}
		add(page.Data)
		next = page.Next
	}
	return pages, nil
}

// statusPage follows a next link with the SDK's HTTP client and key.
func (c *Client) statusPage(ctx context.Context, url string) (*firecrawl.CrawlStatusResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.app.APIKey)

	resp, err := c.app.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("bad status code: %d", resp.StatusCode)
	}
	var status firecrawl.CrawlStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &status, nil
}
