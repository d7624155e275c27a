package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dtnitsch/llm-event-parser/models"
)

func TestEnsureDomain_Idempotent(t *testing.T) {
	store := NewCrawlStore(t.TempDir())

	for i := 0; i < 2; i++ {
		dir, err := store.EnsureDomain("example")
		if err != nil {
			t.Fatalf("EnsureDomain() call %d error = %v", i, err)
		}
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("domain dir missing: %v", err)
		}
	}

	if _, err := store.EnsureDomain(""); err == nil {
		t.Error("EnsureDomain(\"\") expected error")
	}
}

func TestSave_WritesIndentedRecord(t *testing.T) {
	root := t.TempDir()
	store := NewCrawlStore(root)

	rec := models.CrawlRecord{URL: "https://example.com/a", HTML: "<p>a</p>", Index: 0, Domain: "example"}
	path, err := store.Save(rec)
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if want := filepath.Join(root, "example", "crawl_item_0.json"); path != want {
		t.Errorf("path = %q, want %q", path, want)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "\n    \"url\": \"https://example.com/a\"") {
		t.Errorf("record not indented with 4 spaces:\n%s", data)
	}

	got, err := store.Load("example", 0)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.URL != rec.URL || got.HTML != rec.HTML || got.Domain != rec.Domain {
		t.Errorf("Load() = %+v, want %+v", got, rec)
	}
}

func TestSave_OverwritesSameIndex(t *testing.T) {
	store := NewCrawlStore(t.TempDir())

	if _, err := store.Save(models.CrawlRecord{URL: "https://example.com/old", Index: 0, Domain: "example"}); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Save(models.CrawlRecord{URL: "https://example.com/new", Index: 0, Domain: "example"}); err != nil {
		t.Fatal(err)
	}

	got, err := store.Load("example", 0)
	if err != nil {
		t.Fatal(err)
	}
	if got.URL != "https://example.com/new" {
		t.Errorf("URL = %q, want the newer record", got.URL)
	}
}

func TestList_NumericOrder(t *testing.T) {
	store := NewCrawlStore(t.TempDir())

	for _, i := range []int{10, 2, 0, 1} {
		if _, err := store.Save(models.CrawlRecord{URL: "https://example.com", Index: i, Domain: "example"}); err != nil {
			t.Fatal(err)
		}
	}
	// Foreign files are ignored.
	if err := os.WriteFile(filepath.Join(store.DomainDir("example"), "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	records, err := store.List("example")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	var got []int
	for _, r := range records {
		got = append(got, r.Index)
	}
	want := []int{0, 1, 2, 10}
	if len(got) != len(want) {
		t.Fatalf("indexes = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("indexes = %v, want %v", got, want)
		}
	}
}

func TestList_MissingDomain(t *testing.T) {
	store := NewCrawlStore(t.TempDir())
	records, err := store.List("nothing")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(records) != 0 {
		t.Errorf("records = %v", records)
	}
}

func TestLoad_Corrupt(t *testing.T) {
	store := NewCrawlStore(t.TempDir())
	if _, err := store.EnsureDomain("example"); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(store.ItemPath("example", 3), []byte("{"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Load("example", 3); err == nil {
		t.Error("Load() expected decode error")
	}
}
