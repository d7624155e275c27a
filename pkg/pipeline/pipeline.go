// Package pipeline runs a page through classification, extraction and
// evaluation, one page at a time.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dtnitsch/llm-event-parser/models"
	"github.com/dtnitsch/llm-event-parser/pkg/db"
	"github.com/dtnitsch/llm-event-parser/pkg/detector"
	"github.com/dtnitsch/llm-event-parser/pkg/extractor"
	"github.com/dtnitsch/llm-event-parser/pkg/parser"
	"github.com/dtnitsch/llm-event-parser/pkg/storage"
)

type Classifier interface {
	Classify(ctx context.Context, url, html string) (models.ClassificationResult, error)
}

type Extractor interface {
	Extract(ctx context.Context, html, url, model, runID string) (models.ExtractionResult, error)
	Optimised() bool
}

type Evaluator interface {
	Evaluate(ctx context.Context, in extractor.EvaluationInput, runID string) (models.EvaluationResult, error)
}

// Options tune a Pipeline.
type Options struct {
	// Pretrim reduces pages with readability before classification.
	Pretrim bool
	// Model serves extraction and evaluation; empty uses each component's default.
	Model  string
	Logger *slog.Logger
	// Now is the reference for relative event times.
	Now func() time.Time
}

// Pipeline wires the components together. Store and catalog are optional.
type Pipeline struct {
	classifier Classifier
	extractor  Extractor
	evaluator  Evaluator
	store      *storage.CrawlStore
	catalog    *db.DB
	opts       Options
	logger     *slog.Logger
}

// Outcome is the result for one page.
type Outcome struct {
	URL          string                   `json:"url" yaml:"url"`
	Singular     bool                     `json:"singular" yaml:"singular"`
	Language     detector.Language        `json:"language" yaml:"language"`
	Extraction   *models.ExtractionResult `json:"extraction,omitempty" yaml:"extraction,omitempty"`
	Evaluation   *models.EvaluationResult `json:"evaluation,omitempty" yaml:"evaluation,omitempty"`
	StartAt      *time.Time               `json:"start_at,omitempty" yaml:"start_at,omitempty"`
	EndAt        *time.Time               `json:"end_at,omitempty" yaml:"end_at,omitempty"`
	ExtractionID int64                    `json:"extraction_id,omitempty" yaml:"extraction_id,omitempty"`
	Error        string                   `json:"error,omitempty" yaml:"error,omitempty"`
}

func New(c Classifier, x Extractor, e Evaluator, store *storage.CrawlStore, catalog *db.DB, opts Options) *Pipeline {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Pipeline{
		classifier: c,
		extractor:  x,
		evaluator:  e,
		store:      store,
		catalog:    catalog,
		opts:       opts,
		logger:     opts.Logger,
	}
}

// Run classifies the candidate and, for a singular event page, extracts
// from the relevant HTML and scores the extraction against the page.
func (p *Pipeline) Run(ctx context.Context, cand models.EventCandidate, runID string) (*Outcome, error) {
	out := &Outcome{URL: cand.URL}
	html := cand.HTML

	if p.opts.Pretrim {
		trimmed, err := parser.Trim(cand.URL, html)
		if err != nil {
			p.logger.Warn("pre-trim failed, using full page", "url", cand.URL, "error", err)
		} else {
			html = trimmed
		}
	}

	out.Language = detector.DetectLanguage(parser.PlainText(html))
	p.logger.Debug("page language", "url", cand.URL, "language", out.Language.Code, "confidence", out.Language.Confidence)

	cls, err := p.classifier.Classify(ctx, cand.URL, html)
	if err != nil {
		return out, fmt.Errorf("failed to classify %s: %w", cand.URL, err)
	}
	out.Singular = cls.IsSingular
	if !cls.IsSingular {
		p.logger.Info("not a singular event page", "url", cand.URL)
		return out, nil
	}

	source := html
	if cls.RelevantHTML != nil && strings.TrimSpace(*cls.RelevantHTML) != "" {
		source = *cls.RelevantHTML
	}

	ext, err := p.extractor.Extract(ctx, source, cand.URL, p.opts.Model, runID)
	if err != nil {
		return out, fmt.Errorf("failed to extract %s: %w", cand.URL, err)
	}
	out.Extraction = &ext

	ref := p.opts.Now()
	if t := ext.StartAt(ref); !t.IsZero() {
		out.StartAt = &t
	}
	if t := ext.EndAt(ref); !t.IsZero() {
		out.EndAt = &t
	}

	in := extractor.InputFor(cand.URL, cand.HTML, ext)
	in.Model = p.opts.Model
	eval, err := p.evaluator.Evaluate(ctx, in, runID)
	if err != nil {
		return out, fmt.Errorf("failed to evaluate %s: %w", cand.URL, err)
	}
	out.Evaluation = &eval

	if err := p.persist(out, runID); err != nil {
		return out, err
	}

	p.logger.Info("processed event page", "url", cand.URL, "title", ext.Title, "score", eval.Score)
	return out, nil
}

func (p *Pipeline) persist(out *Outcome, runID string) error {
	if p.catalog == nil {
		return nil
	}
	if out.URL == "" {
		p.logger.Warn("page has no URL, not cataloged")
		return nil
	}

	rec := db.Extraction{
		URL:       out.URL,
		RunID:     runID,
		Model:     p.opts.Model,
		Optimized: p.extractor.Optimised(),
		Language:  out.Language.Code,
		Result:    *out.Extraction,
	}
	if out.StartAt != nil {
		rec.StartAt = *out.StartAt
	}
	if out.EndAt != nil {
		rec.EndAt = *out.EndAt
	}

	id, err := p.catalog.InsertExtraction(rec)
	if err != nil {
		return err
	}
	out.ExtractionID = id

	if _, err := p.catalog.InsertEvaluation(id, *out.Evaluation); err != nil {
		return err
	}
	return nil
}

// RunDomain processes every stored crawl record of domain in index order.
// A failing page is recorded on its Outcome and the rest still run; the
// failures are returned joined.
func (p *Pipeline) RunDomain(ctx context.Context, domain, runID string) ([]*Outcome, error) {
	if p.store == nil {
		return nil, fmt.Errorf("no crawl store configured")
	}
	records, err := p.store.List(domain)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("no crawl records for domain %q", domain)
	}

	var (
		outcomes []*Outcome
		errs     []error
	)
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		out, err := p.Run(ctx, models.EventCandidate{URL: rec.URL, HTML: rec.HTML}, runID)
		if err != nil {
			p.logger.Error("page failed", "domain", domain, "index", rec.Index, "url", rec.URL, "error", err)
			out.Error = err.Error()
			errs = append(errs, err)
		}
		outcomes = append(outcomes, out)
	}

	p.logger.Info("domain processed", "domain", domain, "pages", len(outcomes), "failed", len(errs))
	return outcomes, errors.Join(errs...)
}
