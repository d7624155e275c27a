package crawler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dtnitsch/llm-event-parser/models"
	"github.com/dtnitsch/llm-event-parser/pkg/db"
	"github.com/dtnitsch/llm-event-parser/pkg/storage"
)

// startRequest is the crawl request body as the service receives it.
type startRequest struct {
	URL           string `json:"url"`
	Limit         int    `json:"limit"`
	ScrapeOptions struct {
		Formats []string `json:"formats"`
	} `json:"scrapeOptions"`
}

// fakeService mimics the crawl API: one scraping poll, then the final
// status split across two result pages.
type fakeService struct {
	mu      sync.Mutex
	polls   int
	started startRequest
	authz   string
	final   string
	pages   []Page
}

func (f *fakeService) handler(t *testing.T, baseURL func() string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")

		switch {
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/crawl"):
			f.authz = r.Header.Get("Authorization")
			if err := json.NewDecoder(r.Body).Decode(&f.started); err != nil {
				t.Errorf("decode start request: %v", err)
			}
			fmt.Fprint(w, `{"success": true, "id": "job-1", "url": "x"}`)

		case r.Method == http.MethodGet && path.Base(r.URL.Path) == "job-1":
			if r.URL.Query().Get("skip") == "1" {
				writeStatus(w, f.final, len(f.pages), f.pages[1:], "")
				return
			}
			f.polls++
			if f.polls == 1 {
				writeStatus(w, StatusScraping, len(f.pages), nil, "")
				return
			}
			writeStatus(w, f.final, len(f.pages), f.pages[:1], baseURL()+r.URL.Path+"?skip=1")

		default:
			http.NotFound(w, r)
		}
	})
}

// writeStatus encodes a crawl status body in the service's wire format.
func writeStatus(w http.ResponseWriter, status string, total int, pages []Page, next string) {
	body := map[string]any{
		"status":    status,
		"total":     total,
		"completed": len(pages),
		"data":      pages,
	}
	if next != "" {
		body["next"] = next
	}
	json.NewEncoder(w).Encode(body)
}

func page(url, html string) Page {
	return Page{HTML: html, Metadata: map[string]any{"sourceURL": url, "statusCode": 200}}
}

func newFakeServer(t *testing.T, final string, pages ...Page) (*fakeService, *httptest.Server) {
	t.Helper()
	svc := &fakeService{final: final, pages: pages}
	var server *httptest.Server
	server = httptest.NewServer(svc.handler(t, func() string { return server.URL }))
	t.Cleanup(server.Close)
	return svc, server
}

func testClient(t *testing.T, server *httptest.Server) *Client {
	t.Helper()
	c, err := NewClient(models.CrawlConfig{
		APIURL:       server.URL,
		APIKey:       "fc-test",
		PollInterval: 5 * time.Millisecond,
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestNewClient_Defaults(t *testing.T) {
	c, err := NewClient(models.CrawlConfig{APIKey: "fc-test"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if c.app.APIURL != models.DefaultCrawlAPIURL {
		t.Errorf("APIURL = %q", c.app.APIURL)
	}
	if c.limit != 200 {
		t.Errorf("limit = %d, want 200", c.limit)
	}
	if len(c.formats) != 1 || c.formats[0] != "html" {
		t.Errorf("formats = %v, want [html]", c.formats)
	}
	if c.pollInterval != 5*time.Second {
		t.Errorf("pollInterval = %v, want 5s", c.pollInterval)
	}
}

func TestNewClient_MissingKey(t *testing.T) {
	t.Setenv("FIRECRAWL_API_KEY", "")
	if _, err := NewClient(models.CrawlConfig{}, nil); err == nil {
		t.Error("NewClient() expected error without an API key")
	}
}

func TestClient_Crawl(t *testing.T) {
	svc, server := newFakeServer(t, StatusCompleted,
		page("https://example.com/a", "<p>a</p>"),
		page("https://example.com/b", "<p>b</p>"),
	)

	pages, err := testClient(t, server).Crawl(context.Background(), "https://example.com")
	if err != nil {
		t.Fatalf("Crawl() error = %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("len(pages) = %d, want 2", len(pages))
	}
	if pages[0].URL() != "https://example.com/a" || pages[1].HTML != "<p>b</p>" {
		t.Errorf("pages = %+v", pages)
	}
	if svc.polls != 2 {
		t.Errorf("polls = %d, want 2", svc.polls)
	}
	if svc.started.Limit != 200 || len(svc.started.ScrapeOptions.Formats) != 1 ||
		svc.started.ScrapeOptions.Formats[0] != "html" || svc.started.URL != "https://example.com" {
		t.Errorf("start request = %+v", svc.started)
	}
	if svc.authz != "Bearer fc-test" {
		t.Errorf("Authorization = %q", svc.authz)
	}
}

func TestClient_CrawlFailedReturnsPartialPages(t *testing.T) {
	_, server := newFakeServer(t, StatusFailed,
		page("https://example.com/a", "<p>a</p>"),
		page("https://example.com/b", "<p>b</p>"),
	)

	pages, err := testClient(t, server).Crawl(context.Background(), "https://example.com")
	if !errors.Is(err, ErrCrawlFailed) {
		t.Fatalf("Crawl() error = %v, want ErrCrawlFailed", err)
	}
	if len(pages) != 2 {
		t.Errorf("len(pages) = %d, want the 2 pages returned before failure", len(pages))
	}
}

func TestClient_StartRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		fmt.Fprint(w, `{"success": false, "error": "Insufficient credits"}`)
	}))
	defer server.Close()

	_, err := testClient(t, server).Crawl(context.Background(), "https://example.com")
	if err == nil {
		t.Fatal("Crawl() expected error")
	}
}

func TestClient_WaitHonoursContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		writeStatus(w, StatusScraping, 0, nil, "")
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := testClient(t, server).Wait(ctx, "job-1")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait() error = %v, want deadline exceeded", err)
	}
}

func TestPage_URL(t *testing.T) {
	tests := []struct {
		name string
		meta map[string]any
		want string
	}{
		{"sourceURL", map[string]any{"sourceURL": "https://a", "url": "https://b"}, "https://a"},
		{"url fallback", map[string]any{"url": "https://b"}, "https://b"},
		{"none", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := (Page{Metadata: tt.meta}).URL(); got != tt.want {
				t.Errorf("URL() = %q, want %q", got, tt.want)
			}
		})
	}
}

// stubCrawler returns fixed pages.
type stubCrawler struct {
	pages []Page
	err   error
	seeds []string
}

func (s *stubCrawler) Crawl(ctx context.Context, seedURL string) ([]Page, error) {
	s.seeds = append(s.seeds, seedURL)
	return s.pages, s.err
}

func openCatalog(t *testing.T) *db.DB {
	t.Helper()
	catalog, err := db.Open(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { catalog.Close() })
	return catalog
}

func TestOrchestratorCrawl(t *testing.T) {
	root := t.TempDir()
	store := storage.NewCrawlStore(root)
	catalog := openCatalog(t)
	stub := &stubCrawler{pages: []Page{
		page("https://example-events.com/e/1", "<p>one</p>"),
		page("https://example-events.com/e/2", "<p>two</p>"),
	}}

	result, err := NewOrchestrator(stub, store, catalog, nil).Crawl(context.Background(), "https://example-events.com/list")
	if err != nil {
		t.Fatalf("Crawl() error = %v", err)
	}
	if result.Domain != "example-events" {
		t.Errorf("Domain = %q, want example-events", result.Domain)
	}

	for i := range stub.pages {
		path := filepath.Join(root, "example-events", fmt.Sprintf("crawl_item_%d.json", i))
		if _, err := os.Stat(path); err != nil {
			t.Errorf("missing %s: %v", path, err)
		}
	}

	rec, err := store.Load("example-events", 1)
	if err != nil {
		t.Fatal(err)
	}
	if rec.HTML != "<p>two</p>" || rec.URL != "https://example-events.com/e/2" || rec.Index != 1 {
		t.Errorf("record = %+v", rec)
	}

	run, items, err := catalog.GetRun(result.CrawlID)
	if err != nil {
		t.Fatal(err)
	}
	if run.Status != db.CrawlCompleted || run.PageCount != 2 || len(items) != 2 {
		t.Errorf("run = %+v, items = %+v", run, items)
	}
}

// A second crawl of the same domain replaces records index by index
// rather than appending.
func TestOrchestratorCrawl_RerunOverwrites(t *testing.T) {
	root := t.TempDir()
	store := storage.NewCrawlStore(root)

	first := &stubCrawler{pages: []Page{
		page("https://example.com/old-0", "<p>old 0</p>"),
		page("https://example.com/old-1", "<p>old 1</p>"),
	}}
	if _, err := NewOrchestrator(first, store, nil, nil).Crawl(context.Background(), "https://example.com"); err != nil {
		t.Fatal(err)
	}

	second := &stubCrawler{pages: []Page{page("https://example.com/new-0", "<p>new 0</p>")}}
	if _, err := NewOrchestrator(second, store, nil, nil).Crawl(context.Background(), "https://example.com"); err != nil {
		t.Fatal(err)
	}

	records, err := store.List("example")
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("len(records) = %d, want 2", len(records))
	}
	if records[0].URL != "https://example.com/new-0" {
		t.Errorf("crawl_item_0 = %q, want overwritten by the second run", records[0].URL)
	}
	if records[1].URL != "https://example.com/old-1" {
		t.Errorf("crawl_item_1 = %q, want untouched from the first run", records[1].URL)
	}
}

func TestOrchestratorCrawl_FailureKeepsReturnedPages(t *testing.T) {
	store := storage.NewCrawlStore(t.TempDir())
	catalog := openCatalog(t)
	stub := &stubCrawler{
		pages: []Page{page("https://example.com/a", "<p>a</p>")},
		err:   fmt.Errorf("%w: job failed", ErrCrawlFailed),
	}

	result, err := NewOrchestrator(stub, store, catalog, nil).Crawl(context.Background(), "https://example.com")
	if !errors.Is(err, ErrCrawlFailed) {
		t.Fatalf("Crawl() error = %v, want ErrCrawlFailed", err)
	}
	if len(result.Paths) != 1 {
		t.Errorf("Paths = %v, want the one page returned", result.Paths)
	}

	runs, err := catalog.ListRuns(1)
	if err != nil {
		t.Fatal(err)
	}
	if runs[0].Status != db.CrawlFailed || runs[0].Error == "" {
		t.Errorf("run = %+v", runs[0])
	}
}

func TestOrchestratorCrawl_InvalidSeed(t *testing.T) {
	stub := &stubCrawler{}
	_, err := NewOrchestrator(stub, storage.NewCrawlStore(t.TempDir()), nil, nil).Crawl(context.Background(), "not a url")
	if err == nil {
		t.Fatal("Crawl() expected error")
	}
	if len(stub.seeds) != 0 {
		t.Error("service should not be called for an invalid seed")
	}
}

func TestOrchestratorCrawl_WithClient(t *testing.T) {
	_, server := newFakeServer(t, StatusCompleted,
		page("https://www.example.org/a", "<p>a</p>"),
		page("https://www.example.org/b", "<p>b</p>"),
	)
	store := storage.NewCrawlStore(t.TempDir())

	result, err := NewOrchestrator(testClient(t, server), store, nil, nil).Crawl(context.Background(), "https://www.example.org")
	if err != nil {
		t.Fatalf("Crawl() error = %v", err)
	}
	if result.Domain != "www" || len(result.Records) != 2 {
		t.Errorf("result = %+v", result)
	}
}

func TestOrchestratorCrawl_CapsAtLimit(t *testing.T) {
	store := storage.NewCrawlStore(t.TempDir())
	var pages []Page
	for i := 0; i < 5; i++ {
		pages = append(pages, page(fmt.Sprintf("https://example.com/e/%d", i), "<p>e</p>"))
	}

	orch := NewOrchestrator(&stubCrawler{pages: pages}, store, nil, nil)
	if orch.Limit != models.DefaultCrawlLimit {
		t.Errorf("default Limit = %d, want %d", orch.Limit, models.DefaultCrawlLimit)
	}
	orch.Limit = 3

	result, err := orch.Crawl(context.Background(), "https://example.com")
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Records) != 3 {
		t.Errorf("len(Records) = %d, want 3", len(result.Records))
	}
	records, err := store.List("example")
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 3 {
		t.Errorf("stored %d records, want 3", len(records))
	}
}
