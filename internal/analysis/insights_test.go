package analysis

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"kustoscope/internal/types"
)

// stubClient returns canned responses for the AI passes.
type stubClient struct {
	response string
	err      error
	prompts  []string
}

func (s *stubClient) Complete(ctx context.Context, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	return s.response, s.err
}

func (s *stubClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	s.prompts = append(s.prompts, userPrompt)
	return s.response, s.err
}

const patternsJSON = `{
  "trends": [{"description": "latency rising through the day", "direction": "up", "confidence": 0.8}],
  "anomalies": [{"description": "spike at 14:00", "severity": "high", "location": "duration_ms"}],
  "correlations": []
}`

func sampleResult() *types.ExecutionResult {
	return &types.ExecutionResult{Tables: []types.Table{{
		Name:    "results",
		Columns: []types.Column{{Name: "endpoint", Type: "text"}, {Name: "duration_ms", Type: "integer"}},
		Rows: [][]types.Value{
			{"/api/orders", int64(120)},
			{"/api/orders", nil},
		},
	}}}
}

func TestExtractPatterns(t *testing.T) {
	fenced := "Here is my analysis:\n```json\n" + patternsJSON + "\n```\nNote the afternoon spike."

	for _, tt := range []struct {
		name     string
		response string
	}{
		{"raw_json", patternsJSON},
		{"fenced_with_prose", fenced},
	} {
		t.Run(tt.name, func(t *testing.T) {
			e := NewExtractor(&stubClient{response: tt.response}, 0)
			var out types.AnalysisResult
			e.ExtractPatterns(context.Background(), sampleResult(), "requests | count", &out)

			if out.Patterns == nil {
				t.Fatal("expected patterns")
			}
			want := &types.PatternAnalysis{
				Trends:       []types.TrendPattern{{Description: "latency rising through the day", Direction: "up", Confidence: 0.8}},
				Anomalies:    []types.Anomaly{{Description: "spike at 14:00", Severity: "high", Location: "duration_ms"}},
				Correlations: []types.Correlation{},
			}
			if diff := cmp.Diff(want, out.Patterns); diff != "" {
				t.Errorf("patterns mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestExtractPatternsFencedEqualsRaw(t *testing.T) {
	raw := &stubClient{response: patternsJSON}
	fenced := &stubClient{response: "```json\n" + patternsJSON + "\n```\nHope that helps!"}

	var fromRaw, fromFenced types.AnalysisResult
	NewExtractor(raw, 0).ExtractPatterns(context.Background(), sampleResult(), "q", &fromRaw)
	NewExtractor(fenced, 0).ExtractPatterns(context.Background(), sampleResult(), "q", &fromFenced)

	if diff := cmp.Diff(fromRaw.Patterns, fromFenced.Patterns); diff != "" {
		t.Errorf("fenced and raw extraction diverge:\n%s", diff)
	}
}

func TestExtractPatternsProviderFailure(t *testing.T) {
	e := NewExtractor(&stubClient{err: errors.New("503 from provider")}, 0)
	var out types.AnalysisResult
	e.ExtractPatterns(context.Background(), sampleResult(), "q", &out)

	if out.Patterns != nil {
		t.Error("degraded call should not produce patterns")
	}
	if !strings.Contains(out.AIInsights, "unavailable") {
		t.Errorf("AIInsights = %q, want an unavailable notice", out.AIInsights)
	}
}

func TestExtractPatternsProseFallback(t *testing.T) {
	prose := "The data shows a steady rise in latency after lunch."
	e := NewExtractor(&stubClient{response: prose}, 0)
	var out types.AnalysisResult
	e.ExtractPatterns(context.Background(), sampleResult(), "q", &out)

	if out.Patterns != nil {
		t.Error("prose response should not produce structured patterns")
	}
	if out.AIInsights != prose {
		t.Errorf("AIInsights = %q, want the prose verbatim", out.AIInsights)
	}
}

func TestExtractPatternsMalformedJSON(t *testing.T) {
	// Balanced braces, valid JSON grammar, wrong types inside.
	e := NewExtractor(&stubClient{response: `{"trends": "not an array"}`}, 0)
	var out types.AnalysisResult
	e.ExtractPatterns(context.Background(), sampleResult(), "q", &out)

	if out.Patterns != nil {
		t.Error("malformed payload should degrade")
	}
	if !strings.Contains(out.AIInsights, "unavailable") {
		t.Errorf("AIInsights = %q", out.AIInsights)
	}
}

func TestExtractInsights(t *testing.T) {
	e := NewExtractor(&stubClient{response: `{
		"key_findings": ["orders endpoint dominates traffic"],
		"interpretation": "load is concentrated",
		"data_quality": "one null duration",
		"recommendations": ["add an index on endpoint"],
		"follow_up_queries": [
			{"query": "requests | take 10", "purpose": "spot check", "priority": "low"},
			{"query": "requests | summarize count() by endpoint", "purpose": "breakdown", "priority": "high"},
			{"query": "", "purpose": "dropped", "priority": "high"},
			{"query": "requests | where status >= 500", "purpose": "errors", "priority": "medium"}
		]
	}`}, 0)

	var out types.AnalysisResult
	e.ExtractInsights(context.Background(), sampleResult(), "q", &out)

	if out.Insights == nil {
		t.Fatal("expected insights")
	}
	if out.Insights.Interpretation != "load is concentrated" {
		t.Errorf("interpretation = %q", out.Insights.Interpretation)
	}
	if len(out.Recommendations) != 1 {
		t.Errorf("recommendations = %v", out.Recommendations)
	}

	// Blank queries dropped, remainder ordered high > medium > low.
	if len(out.FollowUps) != 3 {
		t.Fatalf("follow-ups = %+v, want 3", out.FollowUps)
	}
	gotPriorities := []types.Priority{out.FollowUps[0].Priority, out.FollowUps[1].Priority, out.FollowUps[2].Priority}
	want := []types.Priority{types.PriorityHigh, types.PriorityMedium, types.PriorityLow}
	for i := range want {
		if gotPriorities[i] != want[i] {
			t.Fatalf("priorities = %v, want %v", gotPriorities, want)
		}
	}
}

func TestExtractInsightsFollowUpsNeverNil(t *testing.T) {
	for _, stub := range []*stubClient{
		{err: errors.New("down")},
		{response: "no json at all"},
		{response: `{"key_findings": []}`},
	} {
		var out types.AnalysisResult
		NewExtractor(stub, 0).ExtractInsights(context.Background(), sampleResult(), "q", &out)
		if out.FollowUps == nil {
			t.Error("FollowUps must never be nil")
		}
	}
}

func TestAnalysisPromptContents(t *testing.T) {
	stub := &stubClient{response: patternsJSON}
	e := NewExtractor(stub, 1)
	var out types.AnalysisResult
	e.ExtractPatterns(context.Background(), sampleResult(), "requests | summarize avg(duration_ms)", &out)

	if len(stub.prompts) != 1 {
		t.Fatalf("prompts = %d", len(stub.prompts))
	}
	p := stub.prompts[0]
	for _, want := range []string{
		"requests | summarize avg(duration_ms)",
		"Total rows: 2",
		"endpoint:text",
		"/api/orders",
		"(1 more rows)",
	} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}
