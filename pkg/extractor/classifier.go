package extractor

import (
	"context"
	"log/slog"

	"github.com/dtnitsch/llm-event-parser/models"
	"github.com/dtnitsch/llm-event-parser/pkg/llm"
	"github.com/dtnitsch/llm-event-parser/pkg/signature"
)

// Classifier decides whether a page describes a single event and, if so,
// returns the event-relevant part of its HTML as trimmed by the model.
type Classifier struct {
	inf    llm.Inferer
	model  string
	logger *slog.Logger
}

func NewClassifier(inf llm.Inferer, opts Options) *Classifier {
	return &Classifier{inf: inf, model: opts.model(), logger: opts.logger()}
}

// Classify makes one inference call. A malformed reply is returned as a
// *signature.SchemaViolation without retrying.
func (c *Classifier) Classify(ctx context.Context, url, html string) (models.ClassificationResult, error) {
	pred, err := llm.Predict(ctx, c.inf, SingularEventSignature, nil, signature.Values{"url": url, "html": html}, c.model)
	if err != nil {
		return models.ClassificationResult{}, err
	}

	result := models.ClassificationResult{IsSingular: pred.Outputs.Bool("is_singular")}
	if result.IsSingular {
		// Model-trimmed markup is best effort and not guaranteed well-formed.
		relevant := pred.Outputs.String("relevant_html")
		result.RelevantHTML = &relevant
	}

	c.logger.Debug("classified page", "url", url, "is_singular", result.IsSingular)
	return result, nil
}
