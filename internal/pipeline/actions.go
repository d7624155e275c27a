package pipeline

import (
	"fmt"

	"github.com/dtnitsch/llm-event-parser/internal/common"
	pipelinepkg "github.com/dtnitsch/llm-event-parser/pkg/pipeline"
	"github.com/urfave/cli/v2"
)

// PipelineOutput is what 'lep pipeline' prints.
type PipelineOutput struct {
	RunID    string                 `json:"run_id" yaml:"run_id"`
	Pages    int                    `json:"pages" yaml:"pages"`
	Events   int                    `json:"events" yaml:"events"`
	Failed   int                    `json:"failed" yaml:"failed"`
	Outcomes []*pipelinepkg.Outcome `json:"outcomes" yaml:"outcomes"`
}

// PipelineAction classifies, extracts and evaluates one page, or every
// stored crawl record of --domain when --index is not given.
func PipelineAction(c *cli.Context) error {
	env, err := common.Setup(c)
	if err != nil {
		return err
	}
	defer env.Close()

	comps, err := env.Components(c)
	if err != nil {
		return err
	}

	p := pipelinepkg.New(comps.Classifier, comps.Extractor, comps.Evaluator, env.Store(), env.Catalog, pipelinepkg.Options{
		Pretrim: c.Bool("pretrim") || env.Config.Pretrim,
		Model:   env.Model(c),
		Logger:  env.Logger,
	})

	runID := common.RunID(c)
	output := PipelineOutput{RunID: runID}
	var runErr error

	if domain := c.String("domain"); domain != "" && !c.IsSet("index") {
		output.Outcomes, runErr = p.RunDomain(c.Context, domain, runID)
	} else {
		cand, err := common.LoadCandidate(c.Context, c, env)
		if err != nil {
			return err
		}
		out, err := p.Run(c.Context, cand, runID)
		if err != nil {
			out.Error = err.Error()
			runErr = err
		}
		output.Outcomes = []*pipelinepkg.Outcome{out}
	}

	for _, out := range output.Outcomes {
		output.Pages++
		if out.Error != "" {
			output.Failed++
		} else if out.Evaluation != nil {
			output.Events++
		}
	}

	if err := common.PrintOutput(c, output); err != nil {
		return err
	}
	if runErr != nil {
		return fmt.Errorf("%d of %d pages failed: %w", output.Failed, output.Pages, runErr)
	}
	return nil
}
