package help

const ColdstartYAML = `# llm-event-parser Quick Start

setup:
  env_file: |
    # local.env (existing environment variables win)
    FIRECRAWL_API_KEY=fc-...
    ANTHROPIC_API_KEY=sk-ant-...
    LANGFUSE_PUBLIC_KEY=pk-lf-...   # optional tracing
    LANGFUSE_SECRET_KEY=sk-lf-...
    LANGFUSE_HOST=https://cloud.langfuse.com

commands:
  crawl_site: |
    lep crawl https://example-events.com/calendar --limit 50

  is_it_one_event: |
    lep classify --url https://example-events.com/e/jazz-night

  extract_event: |
    lep extract --url https://example-events.com/e/jazz-night --model claude-sonnet-4-20250514

  score_extraction: |
    lep evaluate --domain example-events --index 3

  compare_extractions: |
    lep similarity a.yaml b.yaml
    lep similarity --extractions run1.yaml run2.yaml

  whole_domain: |
    lep pipeline --domain example-events --run-id calendar-2025-03

  catalog: |
    lep runs list
    lep runs show
    lep runs extractions calendar-2025-03
    lep runs traces calendar-2025-03

page_sources:
  --url: "Fetch live (cached for fetch.cache_ttl, --force-fetch to refetch)"
  --file: "Local HTML file"
  --domain/--index: "Stored crawl record data/<domain>/crawl_item_<index>.json"

outputs:
  classify: "is_singular, relevant_html"
  extract: "title, description, location, start_time, end_time (+ parsed start_at/end_at)"
  evaluate: "score 0..1, reasoning (invented details cost more than missing ones)"
  similarity: "similarity 0..1"
`
