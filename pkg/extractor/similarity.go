package extractor

import (
	"context"
	"fmt"

	"github.com/dtnitsch/llm-event-parser/models"
	"github.com/dtnitsch/llm-event-parser/pkg/llm"
	"github.com/dtnitsch/llm-event-parser/pkg/signature"
)

// Similarity scores how semantically close two mappings are. It is
// stateless and has no optimised configuration.
type Similarity struct {
	inf   llm.Inferer
	model string
}

func NewSimilarity(inf llm.Inferer, opts Options) *Similarity {
	return &Similarity{inf: inf, model: opts.model()}
}

// Score makes one inference call comparing a and b.
func (s *Similarity) Score(ctx context.Context, a, b map[string]any) (models.SimilarityResult, error) {
	if a == nil || b == nil {
		return models.SimilarityResult{}, fmt.Errorf("similarity needs two mappings")
	}

	pred, err := llm.Predict(ctx, s.inf, SimilaritySignature, nil, signature.Values{"dict1": a, "dict2": b}, s.model)
	if err != nil {
		return models.SimilarityResult{}, err
	}
	return models.SimilarityResult{Similarity: models.ClampScore(pred.Outputs.Float("similarity"))}, nil
}
