package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"kustoscope/internal/logging"
	"kustoscope/internal/provider"
	"kustoscope/internal/types"
)

// UnavailableInsight is the placeholder surfaced when the AI pass cannot
// produce insights. Analysis never fails outright because the model is down.
const UnavailableInsight = "AI analysis is temporarily unavailable; deterministic results are unaffected."

const patternsSystemPrompt = `You are a telemetry analyst. You are given a
query, a summary of its tabular result, and a sample of rows. Identify trends,
anomalies, and correlations in the data.

Respond with ONLY a JSON object of this exact shape:
{
  "trends": [{"description": "...", "direction": "up|down|flat", "confidence": 0.0}],
  "anomalies": [{"description": "...", "severity": "high|medium|low", "location": "..."}],
  "correlations": [{"columns": ["a", "b"], "description": "...", "strength": 0.0}]
}

Empty arrays are fine. No text outside the JSON object.`

const insightsSystemPrompt = `You are a telemetry analyst. You are given a
query, a summary of its tabular result, and a sample of rows. Interpret what
the data means for the person who asked, and suggest follow-up queries.

Respond with ONLY a JSON object of this exact shape:
{
  "key_findings": ["..."],
  "interpretation": "...",
  "data_quality": "...",
  "recommendations": ["..."],
  "follow_up_queries": [{"query": "...", "purpose": "...", "priority": "high|medium|low"}]
}

Empty arrays are fine. No text outside the JSON object.`

// Extractor turns a generative model's free-text responses into typed
// pattern/insight records. Every method degrades gracefully: a provider
// failure or unparseable response yields a placeholder insight, never an
// error.
type Extractor struct {
	client        provider.LLMClient
	maxSampleRows int
	log           *logging.Logger
}

// NewExtractor creates an Extractor. maxSampleRows bounds the rows embedded
// in prompts; values < 1 fall back to 20.
func NewExtractor(client provider.LLMClient, maxSampleRows int) *Extractor {
	if maxSampleRows < 1 {
		maxSampleRows = 20
	}
	return &Extractor{
		client:        client,
		maxSampleRows: maxSampleRows,
		log:           logging.Get(logging.CategoryAnalysis),
	}
}

// degrade surfaces a degradation message without discarding prose an
// earlier pass already wrote to AIInsights. Duplicate messages collapse.
func degrade(out *types.AnalysisResult, msg string) {
	switch {
	case out.AIInsights == "" || out.AIInsights == msg:
		out.AIInsights = msg
	default:
		out.AIInsights = out.AIInsights + "\n\n" + msg
	}
}

// patternsPayload is the wire shape of a pattern-detection response.
type patternsPayload struct {
	Trends []struct {
		Description string  `json:"description"`
		Direction   string  `json:"direction"`
		Confidence  float64 `json:"confidence"`
	} `json:"trends"`
	Anomalies []struct {
		Description string `json:"description"`
		Severity    string `json:"severity"`
		Location    string `json:"location"`
	} `json:"anomalies"`
	Correlations []struct {
		Columns     []string `json:"columns"`
		Description string   `json:"description"`
		Strength    float64  `json:"strength"`
	} `json:"correlations"`
}

// insightsPayload is the wire shape of an insight response.
type insightsPayload struct {
	KeyFindings     []string `json:"key_findings"`
	Interpretation  string   `json:"interpretation"`
	DataQuality     string   `json:"data_quality"`
	Recommendations []string `json:"recommendations"`
	FollowUpQueries []struct {
		Query    string `json:"query"`
		Purpose  string `json:"purpose"`
		Priority string `json:"priority"`
	} `json:"follow_up_queries"`
}

// ExtractPatterns runs the pattern-detection pass, filling out.Patterns on
// success and out.AIInsights on degradation.
func (e *Extractor) ExtractPatterns(ctx context.Context, result *types.ExecutionResult, originalQuery string, out *types.AnalysisResult) {
	response, err := e.client.CompleteWithSystem(ctx, patternsSystemPrompt,
		buildAnalysisPrompt(result, originalQuery, "patterns", e.maxSampleRows))
	if err != nil {
		e.log.Warn("pattern extraction failed: %v", err)
		degrade(out, UnavailableInsight)
		return
	}

	raw := provider.ExtractJSON(response)
	if raw == "" {
		// No structured content; keep the prose as a human-readable insight.
		e.log.Debug("pattern response had no JSON, keeping prose")
		degrade(out, strings.TrimSpace(response))
		return
	}

	var payload patternsPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		e.log.Warn("pattern response malformed: %v", err)
		degrade(out, UnavailableInsight)
		return
	}

	patterns := &types.PatternAnalysis{
		Trends:       []types.TrendPattern{},
		Anomalies:    []types.Anomaly{},
		Correlations: []types.Correlation{},
	}
	for _, tr := range payload.Trends {
		patterns.Trends = append(patterns.Trends, types.TrendPattern{
			Description: tr.Description,
			Direction:   tr.Direction,
			Confidence:  tr.Confidence,
		})
	}
	for _, an := range payload.Anomalies {
		patterns.Anomalies = append(patterns.Anomalies, types.Anomaly{
			Description: an.Description,
			Severity:    an.Severity,
			Location:    an.Location,
		})
	}
	for _, co := range payload.Correlations {
		patterns.Correlations = append(patterns.Correlations, types.Correlation{
			Columns:     co.Columns,
			Description: co.Description,
			Strength:    co.Strength,
		})
	}
	out.Patterns = patterns
}

// ExtractInsights runs the insight pass, filling out.Insights, flat
// recommendations, and FollowUps (always non-nil) on success and
// out.AIInsights on degradation.
func (e *Extractor) ExtractInsights(ctx context.Context, result *types.ExecutionResult, originalQuery string, out *types.AnalysisResult) {
	out.FollowUps = []types.FollowUpQuery{}

	response, err := e.client.CompleteWithSystem(ctx, insightsSystemPrompt,
		buildAnalysisPrompt(result, originalQuery, "insights", e.maxSampleRows))
	if err != nil {
		e.log.Warn("insight extraction failed: %v", err)
		degrade(out, UnavailableInsight)
		return
	}

	raw := provider.ExtractJSON(response)
	if raw == "" {
		e.log.Debug("insight response had no JSON, keeping prose")
		degrade(out, strings.TrimSpace(response))
		return
	}

	var payload insightsPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		e.log.Warn("insight response malformed: %v", err)
		degrade(out, UnavailableInsight)
		return
	}

	insights := &types.InsightAnalysis{
		KeyFindings:    payload.KeyFindings,
		Interpretation: payload.Interpretation,
		DataQuality:    payload.DataQuality,
	}
	if insights.KeyFindings == nil {
		insights.KeyFindings = []string{}
	}
	out.Insights = insights
	out.Recommendations = payload.Recommendations

	for _, f := range payload.FollowUpQueries {
		if strings.TrimSpace(f.Query) == "" {
			continue
		}
		out.FollowUps = append(out.FollowUps, types.FollowUpQuery{
			Query:    f.Query,
			Purpose:  f.Purpose,
			Priority: types.Priority(f.Priority),
		})
	}
	sortFollowUps(out.FollowUps)
}

// sortFollowUps orders suggestions by descending priority, preserving model
// order within a priority band. No deduplication, by design.
func sortFollowUps(fs []types.FollowUpQuery) {
	sort.SliceStable(fs, func(i, j int) bool {
		return fs[i].Priority.Rank() > fs[j].Priority.Rank()
	})
}

// buildAnalysisPrompt renders the result summary, a bounded row sample, and
// the originating query for the model.
func buildAnalysisPrompt(result *types.ExecutionResult, originalQuery, analysisType string, maxRows int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "## Analysis Type\n\n%s\n\n", analysisType)
	fmt.Fprintf(&sb, "## Query\n\n%s\n\n", originalQuery)
	fmt.Fprintf(&sb, "## Result Summary\n\nTotal rows: %d\n\n", result.TotalRows())

	for _, tbl := range resultTables(result) {
		name := tbl.Name
		if name == "" {
			name = "results"
		}
		fmt.Fprintf(&sb, "### Table %s (%d rows)\n\n", name, len(tbl.Rows))

		cols := make([]string, len(tbl.Columns))
		for i, c := range tbl.Columns {
			cols[i] = fmt.Sprintf("%s:%s", c.Name, c.Type)
		}
		fmt.Fprintf(&sb, "Columns: %s\n\n", strings.Join(cols, ", "))

		limit := maxRows
		if limit > len(tbl.Rows) {
			limit = len(tbl.Rows)
		}
		if limit > 0 {
			sb.WriteString("Sample rows:\n")
			for _, row := range tbl.Rows[:limit] {
				cells := make([]string, len(row))
				for i, cell := range row {
					if types.IsNull(cell) {
						cells[i] = "null"
					} else {
						cells[i] = types.AsString(cell)
					}
				}
				fmt.Fprintf(&sb, "%s\n", strings.Join(cells, "\t"))
			}
			if limit < len(tbl.Rows) {
				fmt.Fprintf(&sb, "... (%d more rows)\n", len(tbl.Rows)-limit)
			}
			sb.WriteString("\n")
		}
	}
	return sb.String()
}
