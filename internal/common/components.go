package common

import (
	"github.com/dtnitsch/llm-event-parser/pkg/extractor"
	"github.com/urfave/cli/v2"
)

// ModelFlags choose the model and the optimised prompt configurations.
var ModelFlags = []cli.Flag{
	&cli.StringFlag{Name: "model", Usage: "Model for this run (default from config)"},
	&cli.StringFlag{Name: "extractor-config", Usage: "Optimised extractor configuration (YAML)"},
	&cli.StringFlag{Name: "evaluator-config", Usage: "Optimised evaluator configuration (YAML)"},
}

// Components are the model-backed steps of the pipeline.
type Components struct {
	Classifier *extractor.Classifier
	Extractor  *extractor.Extractor
	Evaluator  *extractor.Evaluator
	Similarity *extractor.Similarity
}

// Components builds every model-backed step on one backend.
func (e *Env) Components(c *cli.Context) (*Components, error) {
	inf, err := e.Inferer(c)
	if err != nil {
		return nil, err
	}

	base := extractor.Options{DefaultModel: e.Model(c), Logger: e.Logger}

	extOpts := base
	extOpts.ConfigPath = flagOr(c, "extractor-config", e.Config.Signatures.Extractor)
	ext, err := extractor.NewExtractor(inf, e.Tracer, extOpts)
	if err != nil {
		return nil, err
	}

	evalOpts := base
	evalOpts.ConfigPath = flagOr(c, "evaluator-config", e.Config.Signatures.Evaluator)
	eval, err := extractor.NewEvaluator(inf, e.Tracer, evalOpts)
	if err != nil {
		return nil, err
	}

	e.Logger.Debug("components ready", "model", base.DefaultModel, "extractor_optimised", ext.Optimised(), "evaluator_optimised", eval.Optimised())
	return &Components{
		Classifier: extractor.NewClassifier(inf, base),
		Extractor:  ext,
		Evaluator:  eval,
		Similarity: extractor.NewSimilarity(inf, base),
	}, nil
}

func flagOr(c *cli.Context, name, def string) string {
	if v := c.String(name); v != "" {
		return v
	}
	return def
}
