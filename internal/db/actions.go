package db

import (
	"fmt"
	"strings"
	"time"

	"github.com/dtnitsch/llm-event-parser/internal/common"
	"github.com/urfave/cli/v2"
)

func RunsAction(c *cli.Context) error {
	env, err := common.Setup(c)
	if err != nil {
		return err
	}
	defer env.Close()

	runs, err := env.Catalog.ListRuns(c.Int("limit"))
	if err != nil {
		return fmt.Errorf("failed to list crawl runs: %w", err)
	}

	if len(runs) == 0 {
		fmt.Println("No crawl runs found")
		return nil
	}

	fmt.Printf("%-6s %-20s %-20s %-10s %-6s %-40s\n",
		"ID", "Started", "Domain", "Status", "Pages", "Seed URL")
	fmt.Println(strings.Repeat("-", 110))

	for _, r := range runs {
		fmt.Printf("%-6d %-20s %-20s %-10s %-6d %-40s\n",
			r.CrawlID,
			r.StartedAt.Format("2006-01-02 15:04:05"),
			r.Domain,
			r.Status,
			r.PageCount,
			r.SeedURL,
		)
	}

	fmt.Printf("\nTotal: %d crawl runs\n", len(runs))
	fmt.Printf("\nTip: Use 'lep runs show <id>' to see details\n")

	return nil
}

// RunAction shows one crawl run and its stored pages.
func RunAction(c *cli.Context) error {
	env, err := common.Setup(c)
	if err != nil {
		return err
	}
	defer env.Close()

	crawlID, err := GetRunIDOrLatest(c, env.Catalog)
	if err != nil {
		return err
	}

	run, items, err := env.Catalog.GetRun(crawlID)
	if err != nil {
		return fmt.Errorf("failed to get crawl run: %w", err)
	}

	fmt.Printf("Crawl Run %d\n", run.CrawlID)
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Seed URL:   %s\n", run.SeedURL)
	fmt.Printf("Domain:     %s\n", run.Domain)
	fmt.Printf("Status:     %s\n", run.Status)
	fmt.Printf("Started:    %s\n", run.StartedAt.Format("2006-01-02 15:04:05"))
	if run.FinishedAt.Valid {
		fmt.Printf("Finished:   %s (%s)\n",
			run.FinishedAt.Time.Format("2006-01-02 15:04:05"),
			run.FinishedAt.Time.Sub(run.StartedAt).Round(time.Second))
	}
	fmt.Printf("Pages:      %d\n", run.PageCount)
	if run.Error != "" {
		fmt.Printf("Error:      %s\n", run.Error)
	}
	fmt.Println()

	if len(items) == 0 {
		fmt.Println("No pages stored")
		return nil
	}

	fmt.Printf("%-6s %-50s %-14s %s\n", "Index", "URL", "Hash", "File")
	fmt.Println(strings.Repeat("-", 120))
	for _, it := range items {
		fmt.Printf("%-6d %-50s %-14s %s\n", it.Index, it.URL, shortHash(it.ContentHash), it.FilePath)
	}

	fmt.Printf("\nTip: Use 'lep pipeline --domain %s' to extract events from these pages\n", run.Domain)
	return nil
}

// ExtractionsAction lists the scored extractions of a pipeline run.
func ExtractionsAction(c *cli.Context) error {
	env, err := common.Setup(c)
	if err != nil {
		return err
	}
	defer env.Close()

	runID := c.Args().First()
	rows, err := env.Catalog.ListExtractions(runID)
	if err != nil {
		return err
	}

	if len(rows) == 0 {
		fmt.Printf("No extractions found for run %q\n", runID)
		return nil
	}

	fmt.Printf("%-6s %-6s %-40s %-30s %-20s\n", "ID", "Score", "URL", "Title", "Start")
	fmt.Println(strings.Repeat("-", 110))
	for _, r := range rows {
		score := "-"
		if r.Score.Valid {
			score = fmt.Sprintf("%.2f", r.Score.Float64)
		}
		start := "-"
		if r.StartTime.Valid {
			start = r.StartTime.String
		}
		fmt.Printf("%-6d %-6s %-40s %-30s %-20s\n", r.ExtractionID, score, r.URL, r.Title, start)
	}

	fmt.Printf("\nTotal: %d extractions\n", len(rows))
	return nil
}

// TracesAction lists spans stored by the local trace sink.
func TracesAction(c *cli.Context) error {
	env, err := common.Setup(c)
	if err != nil {
		return err
	}
	defer env.Close()

	runID := c.Args().First()
	traces, err := env.Catalog.ListTraces(runID)
	if err != nil {
		return err
	}

	if len(traces) == 0 {
		fmt.Printf("No traces found for run %q (enable tracing.store in config)\n", runID)
		return nil
	}

	fmt.Printf("%-38s %-10s %-30s %-30s %s\n", "Span", "Name", "Model", "Tags", "Error")
	fmt.Println(strings.Repeat("-", 130))
	for _, t := range traces {
		fmt.Printf("%-38s %-10s %-30s %-30s %s\n", t.SpanID, t.Name, t.Model, strings.Join(t.Tags, ","), t.Error)
	}

	fmt.Printf("\nTotal: %d spans\n", len(traces))
	return nil
}
