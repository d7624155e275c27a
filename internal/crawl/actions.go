package crawl

import (
	"fmt"
	"strings"

	"github.com/dtnitsch/llm-event-parser/internal/common"
	"github.com/dtnitsch/llm-event-parser/pkg/crawler"
	"github.com/urfave/cli/v2"
)

// CrawlAction crawls a seed URL through the crawling service and stores
// every returned page under the seed's domain.
func CrawlAction(c *cli.Context) error {
	seed := c.String("url")
	if seed == "" {
		seed = c.Args().First()
	}
	if seed == "" {
		return fmt.Errorf("a seed URL is required: lep crawl <url>")
	}

	env, err := common.Setup(c)
	if err != nil {
		return err
	}
	defer env.Close()

	cfg := env.Config.Crawl
	if cfg.APIKey == "" {
		return fmt.Errorf("crawl service key missing: set FIRECRAWL_API_KEY in the environment or %s", c.String("env-file"))
	}
	if c.IsSet("limit") {
		cfg.Limit = c.Int("limit")
	}
	if c.IsSet("poll-interval") {
		cfg.PollInterval = c.Duration("poll-interval")
	}

	client, err := crawler.NewClient(cfg, env.Logger)
	if err != nil {
		return err
	}
	orch := crawler.NewOrchestrator(client, env.Store(), env.Catalog, env.Logger)
	orch.Limit = cfg.Limit

	result, crawlErr := orch.Crawl(c.Context, seed)
	if result != nil {
		printResult(result)
	}
	if crawlErr != nil {
		return fmt.Errorf("crawl did not complete: %w", crawlErr)
	}
	return nil
}

func printResult(r *crawler.Result) {
	fmt.Printf("%-6s %-50s %s\n", "Index", "URL", "File")
	fmt.Println(strings.Repeat("-", 120))
	for i, rec := range r.Records {
		fmt.Printf("%-6d %-50s %s\n", rec.Index, truncate(rec.URL, 50), r.Paths[i])
	}

	fmt.Printf("\nDomain: %s\n", r.Domain)
	fmt.Printf("Total: %d pages\n", len(r.Records))
	if r.CrawlID > 0 {
		fmt.Printf("\nTip: Use 'lep runs show %d' to see details, 'lep pipeline --domain %s' to extract events\n", r.CrawlID, r.Domain)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
