package crawler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dtnitsch/llm-event-parser/models"
	"github.com/dtnitsch/llm-event-parser/pkg/db"
	"github.com/dtnitsch/llm-event-parser/pkg/storage"
	"github.com/dtnitsch/llm-event-parser/pkg/urls"
)

// Crawler returns the pages reachable from a seed URL.
type Crawler interface {
	Crawl(ctx context.Context, seedURL string) ([]Page, error)
}

// Orchestrator runs a crawl and writes one record per page.
type Orchestrator struct {
	// Limit caps the records written per crawl.
	Limit int

	crawler Crawler
	store   *storage.CrawlStore
	catalog *db.DB
	logger  *slog.Logger
}

// Result describes a finished crawl.
type Result struct {
	Domain  string
	CrawlID int64
	Paths   []string
	Records []models.CrawlRecord
}

// NewOrchestrator wires a crawler to storage. catalog may be nil.
func NewOrchestrator(c Crawler, store *storage.CrawlStore, catalog *db.DB, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		Limit:   models.DefaultCrawlLimit,
		crawler: c,
		store:   store,
		catalog: catalog,
		logger:  logger,
	}
}

// Crawl crawls seedURL and stores every returned page under the seed's
// domain key as crawl_item_<i>.json. Records from an earlier crawl of the
// same domain are overwritten index by index. At most Limit pages are
// stored. When the service fails, the pages it returned are still written
// and the error is returned.
func (o *Orchestrator) Crawl(ctx context.Context, seedURL string) (*Result, error) {
	seed, err := urls.ValidateURL(seedURL)
	if err != nil {
		return nil, fmt.Errorf("invalid seed URL: %w", err)
	}
	domain, err := urls.DomainKey(seed)
	if err != nil {
		return nil, err
	}
	if _, err := o.store.EnsureDomain(domain); err != nil {
		return nil, err
	}

	result := &Result{Domain: domain}
	if o.catalog != nil {
		result.CrawlID, err = o.catalog.CreateCrawlRun(seed, domain)
		if err != nil {
			return nil, err
		}
	}

	pages, crawlErr := o.crawler.Crawl(ctx, seed)
	if o.Limit > 0 && len(pages) > o.Limit {
		o.logger.Warn("crawl returned more pages than the limit", "pages", len(pages), "limit", o.Limit)
		pages = pages[:o.Limit]
	}

	for i, page := range pages {
		rec := models.CrawlRecord{
			URL:      page.URL(),
			HTML:     page.HTML,
			Index:    i,
			Domain:   domain,
			Metadata: page.Metadata,
		}
		path, err := o.store.Save(rec)
		if err != nil {
			o.finish(result.CrawlID, db.CrawlFailed, len(result.Paths), err)
			return result, err
		}
		o.logger.Debug("saved crawl record", "path", path, "url", rec.URL)
		result.Paths = append(result.Paths, path)
		result.Records = append(result.Records, rec)
		o.register(result.CrawlID, rec, path)
	}

	if crawlErr != nil {
		o.finish(result.CrawlID, db.CrawlFailed, len(result.Paths), crawlErr)
		return result, crawlErr
	}

	o.finish(result.CrawlID, db.CrawlCompleted, len(result.Paths), nil)
	o.logger.Info("crawl stored", "domain", domain, "pages", len(result.Paths))
	return result, nil
}

// register records a written page in the catalog. Catalog failures are
// logged; the file on disk is the record of truth.
func (o *Orchestrator) register(crawlID int64, rec models.CrawlRecord, path string) {
	if o.catalog == nil {
		return
	}
	if rec.URL == "" {
		o.logger.Warn("crawl record has no source URL, not cataloged", "path", path)
		return
	}
	urlID, err := o.catalog.InsertURL(rec.URL)
	if err != nil {
		o.logger.Warn("failed to catalog crawl URL", "url", rec.URL, "error", err)
		return
	}
	if err := o.catalog.InsertCrawlItem(crawlID, urlID, rec.Index, path, urls.ContentHash([]byte(rec.HTML))); err != nil {
		o.logger.Warn("failed to catalog crawl item", "path", path, "error", err)
	}
}

func (o *Orchestrator) finish(crawlID int64, status string, pages int, cause error) {
	if o.catalog == nil {
		return
	}
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	if err := o.catalog.FinishCrawlRun(crawlID, status, pages, msg); err != nil {
		o.logger.Warn("failed to finish crawl run", "crawl_id", crawlID, "error", err)
	}
}
