package db

import (
	"fmt"

	dbpkg "github.com/dtnitsch/llm-event-parser/pkg/db"
	"github.com/urfave/cli/v2"
)

// GetRunIDOrLatest returns the crawl run ID from args, or the latest run if not provided
func GetRunIDOrLatest(c *cli.Context, database *dbpkg.DB) (int64, error) {
	if c.NArg() == 0 {
		runs, err := database.ListRuns(1)
		if err != nil {
			return 0, fmt.Errorf("failed to get latest crawl run: %w", err)
		}
		if len(runs) == 0 {
			return 0, fmt.Errorf("no crawl runs found. Run 'lep crawl <url>' first")
		}
		return runs[0].CrawlID, nil
	}

	var crawlID int64
	if _, err := fmt.Sscanf(c.Args().First(), "%d", &crawlID); err != nil {
		return 0, fmt.Errorf("invalid crawl run ID: %s", c.Args().First())
	}
	return crawlID, nil
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
