package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dtnitsch/llm-event-parser/internal/common"
	"github.com/dtnitsch/llm-event-parser/internal/crawl"
	"github.com/dtnitsch/llm-event-parser/internal/db"
	"github.com/dtnitsch/llm-event-parser/internal/extract"
	"github.com/dtnitsch/llm-event-parser/internal/fetch"
	"github.com/dtnitsch/llm-event-parser/internal/pipeline"
	"github.com/dtnitsch/llm-event-parser/models"
	"github.com/dtnitsch/llm-event-parser/pkg/help"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "lep",
		Usage: "Crawl event sites and extract structured events with an LLM",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Value: models.DefaultConfigFile, Usage: "Config file (YAML)"},
			&cli.StringFlag{Name: "env-file", Value: models.DefaultEnvFile, Usage: "Env file with API keys"},
			&cli.StringFlag{Name: "data-dir", Usage: "Data directory for crawl records and the catalog"},
			&cli.BoolFlag{Name: "quiet", Aliases: []string{"q"}, Usage: "Only log errors"},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "Log debug output"},
			&cli.StringFlag{Name: "log-file", Usage: "Write logs to a rotated file instead of stderr"},
			&cli.StringFlag{Name: "format", Value: "yaml", Usage: "Output format: yaml or json"},
		},
		Commands: []*cli.Command{
			{
				Name:      "crawl",
				Usage:     "Crawl a site and store every page as a crawl record",
				ArgsUsage: "<seed-url>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "url", Usage: "Seed URL"},
					&cli.IntFlag{Name: "limit", Value: models.DefaultCrawlLimit, Usage: "Maximum pages to crawl"},
					&cli.DurationFlag{Name: "poll-interval", Value: models.DefaultPollInterval, Usage: "Crawl status polling interval"},
				},
				Action: crawl.CrawlAction,
			},
			{
				Name:  "fetch",
				Usage: "Load a page and print its body markup or text",
				Flags: append([]cli.Flag{
					&cli.BoolFlag{Name: "trim", Usage: "Reduce the page to its main content"},
					&cli.BoolFlag{Name: "text", Usage: "Print visible text instead of markup"},
				}, common.PageFlags...),
				Action: fetch.FetchAction,
			},
			{
				Name:   "classify",
				Usage:  "Decide whether a page describes a single event",
				Flags:  concat(common.PageFlags, common.ModelFlags),
				Action: extract.ClassifyAction,
			},
			{
				Name:   "extract",
				Usage:  "Extract event details from a page",
				Flags:  concat(common.PageFlags, common.ModelFlags, runIDFlag()),
				Action: extract.ExtractAction,
			},
			{
				Name:  "evaluate",
				Usage: "Score an extraction against its page",
				Flags: concat(common.PageFlags, common.ModelFlags, runIDFlag(), []cli.Flag{
					&cli.StringFlag{Name: "extraction", Usage: "Extraction to score (YAML or JSON); extracts first when empty"},
				}),
				Action: extract.EvaluateAction,
			},
			{
				Name:      "similarity",
				Usage:     "Score how similar two field mappings are",
				ArgsUsage: "<file1> <file2>",
				Flags:     concat(common.ModelFlags, extractionsFlag()),
				Action:    extract.SimilarityAction,
			},
			{
				Name:  "pipeline",
				Usage: "Classify, extract and evaluate a page or a crawled domain",
				Flags: concat(common.PageFlags, common.ModelFlags, runIDFlag(), []cli.Flag{
					&cli.BoolFlag{Name: "pretrim", Usage: "Reduce pages to their main content before classification"},
				}),
				Action: pipeline.PipelineAction,
			},
			{
				Name:  "quickstart",
				Usage: "Print a quick start guide",
				Action: func(c *cli.Context) error {
					fmt.Print(help.ColdstartYAML)
					return nil
				},
			},
			{
				Name:  "runs",
				Usage: "Inspect the catalog",
				Subcommands: []*cli.Command{
					{
						Name:  "list",
						Usage: "List recent crawl runs",
						Flags: []cli.Flag{
							&cli.IntFlag{Name: "limit", Value: 20, Usage: "Maximum runs to list"},
						},
						Action: db.RunsAction,
					},
					{
						Name:      "show",
						Usage:     "Show a crawl run and its pages (latest when no id)",
						ArgsUsage: "[crawl-id]",
						Action:    db.RunAction,
					},
					{
						Name:      "extractions",
						Usage:     "List scored extractions of a pipeline run",
						ArgsUsage: "[run-id]",
						Action:    db.ExtractionsAction,
					},
					{
						Name:      "traces",
						Usage:     "List stored trace spans of a pipeline run",
						ArgsUsage: "[run-id]",
						Action:    db.TracesAction,
					},
				},
			},
		},
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := app.RunContext(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		cancel()
		os.Exit(1)
	}
}

func runIDFlag() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "run-id", Usage: "Tag traces and catalog rows with this id (default: random)"},
	}
}

func extractionsFlag() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{Name: "extractions", Usage: "Read both files as extractions and compare their event fields"},
	}
}

func concat(groups ...[]cli.Flag) []cli.Flag {
	var out []cli.Flag
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}
