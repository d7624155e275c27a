// Package extractor holds the inference-backed components of the pipeline:
// the singularity classifier, the event extractor, the ground-truth
// evaluator and the semantic similarity scorer.
package extractor

import "github.com/dtnitsch/llm-event-parser/pkg/signature"

var (
	urlInput  = signature.Field{Name: "url", Description: "The url of the event page", Type: signature.String, Required: true}
	htmlInput = signature.Field{Name: "html", Description: "The html of the event page", Type: signature.String, Required: true}
)

// SingularEventSignature decides whether a page is one discrete event.
var SingularEventSignature = signature.Signature{
	Name:        "SingularEventPage",
	Instruction: "Decide whether this page describes one discrete event with a start time.",
	Inputs:      []signature.Field{urlInput, htmlInput},
	Outputs: []signature.Field{
		{
			Name:        "is_singular",
			Description: "Whether the page describes a single discrete event with a start time",
			Type:        signature.Bool,
			Required:    true,
		},
		{
			Name: "relevant_html",
			Description: "None if the page is not singular, otherwise the html of the event page, " +
				"stripped of any non-event related content",
			Type: signature.String,
		},
	},
}

// ExtractorSignature pulls the structured fields out of an event page.
var ExtractorSignature = signature.Signature{
	Name:        "Extractor",
	Instruction: "Extract structured event information from html event page",
	Inputs:      []signature.Field{urlInput, htmlInput},
	Outputs: []signature.Field{
		{Name: "title", Description: "The title of the event", Type: signature.String, Required: true},
		{Name: "description", Description: "A description of the event", Type: signature.String, Required: true},
		{Name: "location", Description: "The location of the event", Type: signature.String, Required: true},
		{Name: "start_time", Description: "The start time of the event", Type: signature.String},
		{Name: "end_time", Description: "The end time of the event", Type: signature.String},
	},
}

// GroundTruthSignature scores an extraction against its source page.
// Inferred details must score lower than missing ones.
var GroundTruthSignature = signature.Signature{
	Name:        "GroundTruthEvaluator",
	Instruction: "Evaluate the extracted event information against the ground truth",
	Inputs: []signature.Field{
		urlInput,
		htmlInput,
		{Name: "title", Description: "The extracted title of the event", Type: signature.String, Required: true},
		{Name: "description", Description: "The extracted description of the event", Type: signature.String, Required: true},
		{Name: "location", Description: "The extracted location of the event", Type: signature.String, Required: true},
		{Name: "start_time", Description: "The extracted start time of the event", Type: signature.String},
		{Name: "end_time", Description: "The extracted end time of the event.", Type: signature.String},
	},
	Outputs: []signature.Field{
		{
			Name: "score",
			Description: "How close the extracted event information is to the ground truth from the html, out of 1. " +
				"Inferred information should be scored lower than a lack of information",
			Type:     signature.Float,
			Required: true,
			Min:      signature.Bound(0),
			Max:      signature.Bound(1),
		},
		{Name: "reasoning", Description: "The reasoning for the score", Type: signature.String, Required: true, NonEmpty: true},
	},
}

// SimilaritySignature compares two mappings for semantic closeness.
var SimilaritySignature = signature.Signature{
	Name:        "SemanticSimilarity",
	Instruction: "Compute the semantic similarity between two dictionaries",
	Inputs: []signature.Field{
		{Name: "dict1", Description: "The first dictionary", Type: signature.Object, Required: true},
		{Name: "dict2", Description: "The second dictionary", Type: signature.Object, Required: true},
	},
	Outputs: []signature.Field{
		{
			Name:        "similarity",
			Description: "The semantic similarity between the two dictionaries, out of 1",
			Type:        signature.Float,
			Required:    true,
			Min:         signature.Bound(0),
			Max:         signature.Bound(1),
		},
	},
}
