// Package llmclassify implements [recognize.Classifier] on top of any
// [llm.Provider].
//
// The model is shown the closed label set with descriptions and must answer
// with a single JSON object naming one label and a confidence. The answer is
// checked against a JSON schema built from the label set; anything that does
// not validate is an error, which makes the hybrid recognizer fall back to
// its rule result.
package llmclassify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/MrWong99/decksmith/internal/recognize"
	"github.com/MrWong99/decksmith/pkg/provider/llm"
)

const (
	defaultTemperature = 0.0
	defaultMaxTokens   = 128
)

// ErrInvalidResponse is returned when the model output is not a valid
// classification.
var ErrInvalidResponse = errors.New("llmclassify: invalid model response")

const systemPromptTemplate = `You classify reservoir-engineering commands for a simulation deck editor.

Pick exactly one label from the list below for the user's command.

Labels:
%s
Respond with ONLY a JSON object in this exact format (no markdown, no prose):
{"label": "<one label from the list>", "confidence": <0.0-1.0>}

Use a low confidence when the command fits none of the labels well.`

type response struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Option is a functional option for configuring a [Classifier].
type Option func(*Classifier)

// WithTemperature sets the sampling temperature. Default: 0.
func WithTemperature(temp float64) Option {
	return func(c *Classifier) {
		c.temperature = temp
	}
}

// WithMaxTokens caps the response length. Default: 128.
func WithMaxTokens(n int) Option {
	return func(c *Classifier) {
		if n > 0 {
			c.maxTokens = n
		}
	}
}

// Classifier asks an LLM to pick an intent label. It is safe for concurrent
// use when the provider is.
type Classifier struct {
	llm         llm.Provider
	temperature float64
	maxTokens   int
}

// New returns a classifier backed by provider.
func New(provider llm.Provider, opts ...Option) *Classifier {
	c := &Classifier{
		llm:         provider,
		temperature: defaultTemperature,
		maxTokens:   defaultMaxTokens,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Classify implements [recognize.Classifier].
func (c *Classifier) Classify(ctx context.Context, text string, labels []recognize.Label) (recognize.Classification, error) {
	if len(labels) == 0 {
		return recognize.Classification{}, fmt.Errorf("llmclassify: no labels")
	}

	resp, err := c.llm.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: buildSystemPrompt(labels),
		Temperature:  c.temperature,
		MaxTokens:    c.maxTokens,
		Messages:     []llm.Message{{Role: "user", Content: text}},
		JSONOutput:   true,
	})
	if err != nil {
		return recognize.Classification{}, fmt.Errorf("llmclassify: complete: %w", err)
	}
	if resp == nil {
		return recognize.Classification{}, fmt.Errorf("%w: empty response", ErrInvalidResponse)
	}

	r, err := parseResponse(resp.Content, labels)
	if err != nil {
		return recognize.Classification{}, err
	}
	return recognize.Classification{Label: r.Label, Confidence: r.Confidence, Raw: resp.Content}, nil
}

func buildSystemPrompt(labels []recognize.Label) string {
	var sb strings.Builder
	for _, l := range labels {
		sb.WriteString("- ")
		sb.WriteString(l.ID)
		if l.Description != "" {
			sb.WriteString(": ")
			sb.WriteString(l.Description)
		}
		sb.WriteByte('\n')
	}
	return fmt.Sprintf(systemPromptTemplate, sb.String())
}

// responseSchema restricts the label to the offered ids and the confidence
// to [0, 1].
func responseSchema(labels []recognize.Label) map[string]any {
	ids := make([]string, len(labels))
	for i, l := range labels {
		ids[i] = l.ID
	}
	return map[string]any{
		"type":     "object",
		"required": []string{"label", "confidence"},
		"properties": map[string]any{
			"label":      map[string]any{"type": "string", "enum": ids},
			"confidence": map[string]any{"type": "number", "minimum": 0, "maximum": 1},
		},
	}
}

func parseResponse(content string, labels []recognize.Label) (response, error) {
	cleaned := stripMarkdown(content)

	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(responseSchema(labels)),
		gojsonschema.NewStringLoader(cleaned),
	)
	if err != nil {
		return response{}, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}
	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return response{}, fmt.Errorf("%w: %s", ErrInvalidResponse, strings.Join(errs, "; "))
	}

	var r response
	if err := json.Unmarshal([]byte(cleaned), &r); err != nil {
		return response{}, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}
	return r, nil
}

// stripMarkdown removes optional ```json fences around the payload.
func stripMarkdown(s string) string {
	s = strings.TrimSpace(s)
	for _, prefix := range []string{"```json", "```"} {
		if after, ok := strings.CutPrefix(s, prefix); ok {
			s = after
			break
		}
	}
	if before, ok := strings.CutSuffix(s, "```"); ok {
		s = before
	}
	return strings.TrimSpace(s)
}

var _ recognize.Classifier = (*Classifier)(nil)
