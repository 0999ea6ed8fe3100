package automation

import "context"

// Prompt is the structured input to the external text generator.
type Prompt struct {
	// Kind tells the generator what it is describing: "pattern" or
	// "feature".
	Kind string `json:"kind"`

	// Context carries the structured evidence: pattern type, parameters,
	// confidence, or device vendor/model/feature.
	Context map[string]any `json:"context"`
}

// Text is the generator's natural-language output.
type Text struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// TextGenerator turns a structured prompt into a title and description. It
// is treated as unreliable: timeouts and rate limits degrade a suggestion to
// templated text instead of aborting the run.
type TextGenerator interface {
	Generate(ctx context.Context, prompt Prompt) (Text, error)
}

// TextGeneratorFunc is a function that implements TextGenerator.
type TextGeneratorFunc func(ctx context.Context, prompt Prompt) (Text, error)

// Generate implements TextGenerator.
func (f TextGeneratorFunc) Generate(ctx context.Context, prompt Prompt) (Text, error) {
	return f(ctx, prompt)
}
