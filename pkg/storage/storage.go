package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/dtnitsch/llm-event-parser/models"
)

var itemFile = regexp.MustCompile(`^crawl_item_(\d+)\.json$`)

// CrawlStore keeps crawl records as data/<domain>/crawl_item_<i>.json.
type CrawlStore struct {
	root string
}

func NewCrawlStore(root string) *CrawlStore {
	return &CrawlStore{root: root}
}

// Root returns the base data directory.
func (s *CrawlStore) Root() string {
	return s.root
}

// DomainDir returns the directory holding a domain's records.
func (s *CrawlStore) DomainDir(domain string) string {
	return filepath.Join(s.root, domain)
}

// ItemPath returns the file path for record index of domain.
func (s *CrawlStore) ItemPath(domain string, index int) string {
	return filepath.Join(s.DomainDir(domain), fmt.Sprintf("crawl_item_%d.json", index))
}

// EnsureDomain creates the domain directory if missing. Safe to call repeatedly.
func (s *CrawlStore) EnsureDomain(domain string) (string, error) {
	if domain == "" {
		return "", fmt.Errorf("failed to create domain directory: empty domain")
	}
	dir := s.DomainDir(domain)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create domain directory: %w", err)
	}
	return dir, nil
}

// Save writes rec, replacing any existing file at the same index.
func (s *CrawlStore) Save(rec models.CrawlRecord) (string, error) {
	if _, err := s.EnsureDomain(rec.Domain); err != nil {
		return "", err
	}

	data, err := json.MarshalIndent(rec, "", "    ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal crawl record: %w", err)
	}

	path := s.ItemPath(rec.Domain, rec.Index)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("error saving file: %w", err)
	}
	return path, nil
}

// Load reads record index of domain.
func (s *CrawlStore) Load(domain string, index int) (models.CrawlRecord, error) {
	return readRecord(s.ItemPath(domain, index))
}

// List returns every stored record of domain in index order.
// A missing domain directory yields no records.
func (s *CrawlStore) List(domain string) ([]models.CrawlRecord, error) {
	entries, err := os.ReadDir(s.DomainDir(domain))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list domain directory: %w", err)
	}

	type indexed struct {
		index int
		name  string
	}
	var files []indexed
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := itemFile.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		i, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		files = append(files, indexed{index: i, name: e.Name()})
	}
	sort.Slice(files, func(a, b int) bool { return files[a].index < files[b].index })

	records := make([]models.CrawlRecord, 0, len(files))
	for _, f := range files {
		rec, err := readRecord(filepath.Join(s.DomainDir(domain), f.name))
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func readRecord(path string) (models.CrawlRecord, error) {
	var rec models.CrawlRecord
	data, err := os.ReadFile(path)
	if err != nil {
		return rec, fmt.Errorf("error reading file: %w", err)
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return rec, fmt.Errorf("failed to decode crawl record %s: %w", path, err)
	}
	return rec, nil
}
