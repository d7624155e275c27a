package db

const schema = `
PRAGMA journal_mode = WAL;
PRAGMA synchronous = NORMAL;
PRAGMA foreign_keys = ON;
PRAGMA temp_store = MEMORY;

-- URLs seen by a crawl or a direct fetch
CREATE TABLE IF NOT EXISTS urls (
    url_id INTEGER PRIMARY KEY AUTOINCREMENT,
    original_url TEXT NOT NULL UNIQUE,
    canonical_url TEXT,
    scheme TEXT NOT NULL,
    domain TEXT NOT NULL,
    path TEXT,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_urls_domain ON urls(domain);

-- One row per crawl of a seed URL
CREATE TABLE IF NOT EXISTS crawl_runs (
    crawl_id INTEGER PRIMARY KEY AUTOINCREMENT,
    seed_url TEXT NOT NULL,
    domain TEXT NOT NULL,
    status TEXT NOT NULL,          -- running, completed, failed
    page_count INTEGER DEFAULT 0,
    error TEXT,
    started_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    finished_at TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_crawl_runs_domain ON crawl_runs(domain);

-- Pages written by a crawl run, in service order
CREATE TABLE IF NOT EXISTS crawl_items (
    item_id INTEGER PRIMARY KEY AUTOINCREMENT,
    crawl_id INTEGER NOT NULL,
    url_id INTEGER NOT NULL,
    item_index INTEGER NOT NULL,
    file_path TEXT NOT NULL,
    content_hash TEXT NOT NULL,
    FOREIGN KEY (crawl_id) REFERENCES crawl_runs(crawl_id) ON DELETE CASCADE,
    FOREIGN KEY (url_id) REFERENCES urls(url_id) ON DELETE CASCADE,
    UNIQUE(crawl_id, item_index)
);

CREATE INDEX IF NOT EXISTS idx_crawl_items_crawl ON crawl_items(crawl_id);

-- Extracted event fields, one row per extractor call
CREATE TABLE IF NOT EXISTS extractions (
    extraction_id INTEGER PRIMARY KEY AUTOINCREMENT,
    url_id INTEGER NOT NULL,
    run_id TEXT,
    model TEXT,
    optimized BOOLEAN DEFAULT 0,
    language TEXT,
    title TEXT NOT NULL,
    description TEXT NOT NULL,
    location TEXT NOT NULL,
    start_time TEXT,
    end_time TEXT,
    start_at TIMESTAMP,            -- start_time normalised, when parseable
    end_at TIMESTAMP,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (url_id) REFERENCES urls(url_id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_extractions_run ON extractions(run_id);
CREATE INDEX IF NOT EXISTS idx_extractions_url ON extractions(url_id);

-- Ground-truth scores for an extraction
CREATE TABLE IF NOT EXISTS evaluations (
    evaluation_id INTEGER PRIMARY KEY AUTOINCREMENT,
    extraction_id INTEGER NOT NULL,
    score REAL NOT NULL CHECK (score >= 0 AND score <= 1),
    reasoning TEXT NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (extraction_id) REFERENCES extractions(extraction_id) ON DELETE CASCADE
);

-- Local copy of exported trace spans
CREATE TABLE IF NOT EXISTS traces (
    span_id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    run_id TEXT,
    tags TEXT NOT NULL,            -- JSON array
    model TEXT,
    input TEXT,                    -- JSON
    output TEXT,                   -- JSON
    error TEXT,
    started_at TIMESTAMP NOT NULL,
    ended_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_traces_run ON traces(run_id);
`
