package extract

import (
	"fmt"
	"os"
	"time"

	"github.com/dtnitsch/llm-event-parser/internal/common"
	"github.com/dtnitsch/llm-event-parser/models"
	"github.com/dtnitsch/llm-event-parser/pkg/extractor"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

// ExtractOutput is what 'lep extract' prints.
type ExtractOutput struct {
	URL        string                  `json:"url" yaml:"url"`
	Extraction models.ExtractionResult `json:"extraction" yaml:"extraction"`
	StartAt    *time.Time              `json:"start_at,omitempty" yaml:"start_at,omitempty"`
	EndAt      *time.Time              `json:"end_at,omitempty" yaml:"end_at,omitempty"`
}

// EvaluateOutput is what 'lep evaluate' prints.
type EvaluateOutput struct {
	URL        string                  `json:"url" yaml:"url"`
	Extraction models.ExtractionResult `json:"extraction" yaml:"extraction"`
	Evaluation models.EvaluationResult `json:"evaluation" yaml:"evaluation"`
}

// ClassifyAction reports whether a page describes a single event.
func ClassifyAction(c *cli.Context) error {
	env, err := common.Setup(c)
	if err != nil {
		return err
	}
	defer env.Close()

	cand, err := common.LoadCandidate(c.Context, c, env)
	if err != nil {
		return err
	}
	comps, err := env.Components(c)
	if err != nil {
		return err
	}

	result, err := comps.Classifier.Classify(c.Context, cand.URL, cand.HTML)
	if err != nil {
		return fmt.Errorf("failed to classify %s: %w", cand.URL, err)
	}
	return common.PrintOutput(c, result)
}

// ExtractAction extracts event details from a page.
func ExtractAction(c *cli.Context) error {
	env, err := common.Setup(c)
	if err != nil {
		return err
	}
	defer env.Close()

	cand, err := common.LoadCandidate(c.Context, c, env)
	if err != nil {
		return err
	}
	comps, err := env.Components(c)
	if err != nil {
		return err
	}

	result, err := comps.Extractor.Extract(c.Context, cand.HTML, cand.URL, env.Model(c), common.RunID(c))
	if err != nil {
		return fmt.Errorf("failed to extract %s: %w", cand.URL, err)
	}

	output := ExtractOutput{URL: cand.URL, Extraction: result}
	now := time.Now()
	if t := result.StartAt(now); !t.IsZero() {
		output.StartAt = &t
	}
	if t := result.EndAt(now); !t.IsZero() {
		output.EndAt = &t
	}
	return common.PrintOutput(c, output)
}

// EvaluateAction scores an extraction against its page. Without
// --extraction the page is extracted first.
func EvaluateAction(c *cli.Context) error {
	env, err := common.Setup(c)
	if err != nil {
		return err
	}
	defer env.Close()

	cand, err := common.LoadCandidate(c.Context, c, env)
	if err != nil {
		return err
	}
	comps, err := env.Components(c)
	if err != nil {
		return err
	}
	runID := common.RunID(c)

	var result models.ExtractionResult
	if path := c.String("extraction"); path != "" {
		if err := readYAML(path, &result); err != nil {
			return err
		}
	} else {
		result, err = comps.Extractor.Extract(c.Context, cand.HTML, cand.URL, env.Model(c), runID)
		if err != nil {
			return fmt.Errorf("failed to extract %s: %w", cand.URL, err)
		}
	}

	in := extractor.InputFor(cand.URL, cand.HTML, result)
	in.Model = env.Model(c)
	eval, err := comps.Evaluator.Evaluate(c.Context, in, runID)
	if err != nil {
		return fmt.Errorf("failed to evaluate %s: %w", cand.URL, err)
	}

	return common.PrintOutput(c, EvaluateOutput{URL: cand.URL, Extraction: result, Evaluation: eval})
}

// SimilarityAction compares two field mappings read from YAML or JSON files.
func SimilarityAction(c *cli.Context) error {
	if c.NArg() != 2 {
		return fmt.Errorf("usage: lep similarity <file1> <file2>")
	}

	a, err := readMapping(c.Args().Get(0), c.Bool("extractions"))
	if err != nil {
		return err
	}
	b, err := readMapping(c.Args().Get(1), c.Bool("extractions"))
	if err != nil {
		return err
	}

	env, err := common.Setup(c)
	if err != nil {
		return err
	}
	defer env.Close()

	comps, err := env.Components(c)
	if err != nil {
		return err
	}

	result, err := comps.Similarity.Score(c.Context, a, b)
	if err != nil {
		return fmt.Errorf("failed to score similarity: %w", err)
	}
	return common.PrintOutput(c, result)
}

// readMapping reads a field mapping. With asExtraction the file holds an
// extraction and only its event fields are compared.
func readMapping(path string, asExtraction bool) (map[string]any, error) {
	if asExtraction {
		var e models.ExtractionResult
		if err := readYAML(path, &e); err != nil {
			return nil, err
		}
		return e.Fields(), nil
	}
	var m map[string]any
	if err := readYAML(path, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// readYAML decodes a YAML file into v. JSON files decode as well.
func readYAML(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}
