package fetch

import (
	"fmt"

	"github.com/dtnitsch/llm-event-parser/internal/common"
	"github.com/dtnitsch/llm-event-parser/pkg/detector"
	"github.com/dtnitsch/llm-event-parser/pkg/parser"
	"github.com/urfave/cli/v2"
)

// FetchOutput is what 'lep fetch' prints.
type FetchOutput struct {
	URL      string            `json:"url" yaml:"url"`
	Language detector.Language `json:"language" yaml:"language"`
	Bytes    int               `json:"bytes" yaml:"bytes"`
	Trimmed  bool              `json:"trimmed,omitempty" yaml:"trimmed,omitempty"`
	Content  string            `json:"content" yaml:"content"`
}

// FetchAction loads one page and prints its body markup, or its visible
// text with --text.
func FetchAction(c *cli.Context) error {
	env, err := common.Setup(c)
	if err != nil {
		return err
	}
	defer env.Close()

	cand, err := common.LoadCandidate(c.Context, c, env)
	if err != nil {
		return err
	}

	html := cand.HTML
	trimmed := false
	if c.Bool("trim") || env.Config.Pretrim {
		out, err := parser.Trim(cand.URL, html)
		if err != nil {
			env.Logger.Warn("pre-trim failed, using full page", "url", cand.URL, "error", err)
		} else {
			html, trimmed = out, true
		}
	}

	text := parser.PlainText(html)
	output := FetchOutput{
		URL:      cand.URL,
		Language: detector.DetectLanguage(text),
		Bytes:    len(html),
		Trimmed:  trimmed,
		Content:  html,
	}
	if c.Bool("text") {
		output.Content = text
	}

	if err := common.PrintOutput(c, output); err != nil {
		return fmt.Errorf("failed to print page: %w", err)
	}
	return nil
}
