package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"kustoscope/internal/logging"
	"kustoscope/internal/types"
)

const generateSystemPrompt = `You are a telemetry query assistant. You translate
natural-language questions into queries against a tabular telemetry data source.

Respond with ONLY a JSON object of this exact shape:
{
  "query": "<the query text>",
  "confidence": <number between 0.0 and 1.0>,
  "reasoning": "<one or two sentences on how the question maps to the query>"
}

Rules:
- Use only tables and columns from the provided schema.
- Confidence reflects how well the question maps onto the schema: 0.9+ only
  for unambiguous questions, below 0.6 when you had to guess.
- No text outside the JSON object.`

const explainSystemPrompt = `You are a telemetry query assistant. Explain the
given query in plain %s for a %s audience. Describe what data it reads, how it
filters and aggregates, and what the result will look like.%s
Respond in markdown.`

// Generator turns natural-language questions into query candidates by
// prompting an LLMClient and parsing its response defensively.
type Generator struct {
	client LLMClient
}

// NewGenerator creates a Generator over any LLM client.
func NewGenerator(client LLMClient) *Generator {
	return &Generator{client: client}
}

// Generate produces the initial candidate for a question.
func (g *Generator) Generate(ctx context.Context, question, schema string) (*types.Candidate, error) {
	prompt := buildGeneratePrompt(question, schema)
	response, err := g.client.CompleteWithSystem(ctx, generateSystemPrompt, prompt)
	if err != nil {
		return nil, fmt.Errorf("query generation failed: %w", err)
	}
	return parseCandidate(response)
}

// Regenerate produces an alternative candidate, steering the model away from
// the rejected attempt.
func (g *Generator) Regenerate(ctx context.Context, question string, rc types.RegenerationContext, schema string) (*types.Candidate, error) {
	var sb strings.Builder
	sb.WriteString(buildGeneratePrompt(question, schema))
	sb.WriteString("\n\n## Rejected Attempt\n\n")
	fmt.Fprintf(&sb, "The user rejected this query (attempt %d):\n\n%s\n", rc.Attempt, rc.PreviousQuery)
	if rc.PreviousReasoning != "" {
		fmt.Fprintf(&sb, "\nIts reasoning was: %s\n", rc.PreviousReasoning)
	}
	sb.WriteString("\nProduce a materially different query for the same question.")

	response, err := g.client.CompleteWithSystem(ctx, generateSystemPrompt, sb.String())
	if err != nil {
		return nil, fmt.Errorf("query regeneration failed: %w", err)
	}
	return parseCandidate(response)
}

// Explain returns a free-text (markdown) explanation of a query.
func (g *Generator) Explain(ctx context.Context, query string, opts types.ExplainOptions) (string, error) {
	language := opts.Language
	if language == "" {
		language = "english"
	}
	level := opts.TechnicalLevel
	if level == "" {
		level = "intermediate"
	}
	examples := ""
	if opts.IncludeExamples {
		examples = " Include a short example of the kind of rows it returns."
	}

	system := fmt.Sprintf(explainSystemPrompt, language, level, examples)
	explanation, err := g.client.CompleteWithSystem(ctx, system, query)
	if err != nil {
		return "", fmt.Errorf("query explanation failed: %w", err)
	}
	return explanation, nil
}

func buildGeneratePrompt(question, schema string) string {
	var sb strings.Builder
	if schema != "" {
		sb.WriteString("## Schema\n\n")
		sb.WriteString(schema)
		sb.WriteString("\n\n")
	}
	sb.WriteString("## Question\n\n")
	sb.WriteString(question)
	return sb.String()
}

// candidatePayload is the wire shape of a generation response. Confidence is
// a pointer so an omitted field is distinguishable from an explicit zero.
type candidatePayload struct {
	Query      string   `json:"query"`
	Confidence *float64 `json:"confidence"`
	Reasoning  string   `json:"reasoning"`
}

// parseCandidate extracts a Candidate from a model response, tolerating prose
// wrapping and code fences. A response without a usable query is an error;
// an out-of-range confidence is clamped rather than rejected.
func parseCandidate(response string) (*types.Candidate, error) {
	raw := ExtractJSON(response)
	if raw == "" {
		return nil, fmt.Errorf("no JSON object in generation response")
	}

	var payload candidatePayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("malformed generation response: %w", err)
	}

	query := strings.TrimSpace(payload.Query)
	if query == "" {
		return nil, fmt.Errorf("generation response has no query")
	}

	confidence := 0.5 // unverified when the model omits the field
	if payload.Confidence != nil {
		confidence = clamp01(*payload.Confidence)
	}

	logging.Get(logging.CategoryAPI).Debug("parsed candidate: confidence=%.2f len=%d", confidence, len(query))

	return &types.Candidate{
		Query:      query,
		Confidence: confidence,
		Reasoning:  strings.TrimSpace(payload.Reasoning),
	}, nil
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
