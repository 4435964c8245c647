// Package types provides shared type definitions used across kustoscope packages.
// This package exists to break import cycles between refine, analysis, and provider.
// Types in this package should be foundational data structures with no complex dependencies.
package types

import (
	"fmt"
	"time"
)

// =============================================================================
// QUERY REFINEMENT TYPES
// =============================================================================

// Candidate is a generated query plus confidence/reasoning metadata.
// It is the unit of state in the refinement loop: each action that changes
// the query produces a new Candidate, the previous one is never mutated.
type Candidate struct {
	Query      string  `json:"query"`
	Confidence float64 `json:"confidence"` // 0.0 .. 1.0
	Reasoning  string  `json:"reasoning,omitempty"`
}

// RegenerationContext carries the rejected candidate back to the generator
// so the next attempt can avoid repeating it.
type RegenerationContext struct {
	PreviousQuery     string `json:"previous_query"`
	PreviousReasoning string `json:"previous_reasoning,omitempty"`
	Attempt           int    `json:"attempt"` // 1-based, monotonically increasing
}

// ActionKind classifies one entry in a session's audit trail.
type ActionKind string

const (
	ActionGenerated   ActionKind = "generated"
	ActionEdited      ActionKind = "edited"
	ActionRegenerated ActionKind = "regenerated"
	ActionExecuted    ActionKind = "executed"
	ActionExplained   ActionKind = "explained"
)

// ActionRecord is one entry in the append-only audit trail of a refinement
// session. Records are only ever appended, never rewritten.
type ActionRecord struct {
	Query      string     `json:"query"`
	Timestamp  time.Time  `json:"timestamp"`
	Confidence float64    `json:"confidence"`
	Action     ActionKind `json:"action"`
	Reason     string     `json:"reason,omitempty"`
}

// ExplainOptions controls the tone of a query explanation.
type ExplainOptions struct {
	Language        string `json:"language"`         // e.g. "english"
	TechnicalLevel  string `json:"technical_level"`  // beginner, intermediate, expert
	IncludeExamples bool   `json:"include_examples"`
}

// =============================================================================
// EXECUTION RESULT TYPES
// =============================================================================

// Value is a single result cell. A nil Value is the distinguished null;
// absent values are always represented by nil, never by omission.
type Value = any

// Column describes one column of a result table.
type Column struct {
	Name string `json:"name"`
	Type string `json:"type"` // source-reported type name, lowercased
}

// Table is one tabular result. Every row has exactly len(Columns) cells,
// positionally aligned with Columns.
type Table struct {
	Name    string    `json:"name"`
	Columns []Column  `json:"columns"`
	Rows    [][]Value `json:"rows"`
}

// ExecutionResult is the outcome of running a finalized query.
type ExecutionResult struct {
	Tables []Table `json:"tables"`
}

// AppendRow adds a row to the table, enforcing the row-width invariant.
func (t *Table) AppendRow(cells ...Value) error {
	if len(cells) != len(t.Columns) {
		return fmt.Errorf("table %q: row has %d cells, want %d", t.Name, len(cells), len(t.Columns))
	}
	t.Rows = append(t.Rows, cells)
	return nil
}

// TotalRows sums row counts across all tables. Zero for an empty result.
func (r *ExecutionResult) TotalRows() int {
	if r == nil {
		return 0
	}
	n := 0
	for i := range r.Tables {
		n += len(r.Tables[i].Rows)
	}
	return n
}

// =============================================================================
// ANALYSIS TYPES
// =============================================================================

// AnalysisMode selects which sub-analyses run over an execution result.
type AnalysisMode string

const (
	ModeStatistical AnalysisMode = "statistical"
	ModePatterns    AnalysisMode = "patterns"
	ModeInsights    AnalysisMode = "insights"
	ModeFull        AnalysisMode = "full"
)

// Distribution classifies the shape of a numeric column.
type Distribution string

const (
	DistributionNormal  Distribution = "normal"
	DistributionSkewed  Distribution = "skewed"
	DistributionUniform Distribution = "uniform"
	DistributionUnknown Distribution = "unknown"
)

// Trend classifies the temporal movement of a result set.
type Trend string

const (
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
	TrendStable     Trend = "stable"
	TrendSeasonal   Trend = "seasonal"
	TrendUnknown    Trend = "unknown"
)

// ResultSummary describes the overall size of an execution result.
type ResultSummary struct {
	TotalRows  int `json:"total_rows"`
	TableCount int `json:"table_count"`
}

// NumericalStats summarizes the first numeric column of a result.
type NumericalStats struct {
	Column       string       `json:"column"`
	Count        int          `json:"count"`
	Mean         float64      `json:"mean"`
	Median       float64      `json:"median"` // lower-middle order statistic for even counts
	StdDev       float64      `json:"std_dev"` // population standard deviation
	Min          float64      `json:"min"`
	Max          float64      `json:"max"`
	Outliers     []float64    `json:"outliers"`
	Distribution Distribution `json:"distribution"`
}

// TemporalStats summarizes the first datetime column of a result.
type TemporalStats struct {
	Column string      `json:"column"`
	Start  time.Time   `json:"start"`
	End    time.Time   `json:"end"`
	Trend  Trend       `json:"trend"`
	Gaps   []time.Time `json:"gaps"` // start of each interval larger than the gap threshold
}

// StatisticalAnalysis is the deterministic half of an analysis. Numerical and
// Temporal are nil when no detectable column of that kind exists; that is a
// normal outcome, not an error.
type StatisticalAnalysis struct {
	Summary   ResultSummary   `json:"summary"`
	Numerical *NumericalStats `json:"numerical,omitempty"`
	Temporal  *TemporalStats  `json:"temporal,omitempty"`
}

// TrendPattern is one AI-detected trend.
type TrendPattern struct {
	Description string  `json:"description"`
	Direction   string  `json:"direction,omitempty"`
	Confidence  float64 `json:"confidence,omitempty"`
}

// Anomaly is one AI-detected irregularity.
type Anomaly struct {
	Description string `json:"description"`
	Severity    string `json:"severity,omitempty"` // high, medium, low
	Location    string `json:"location,omitempty"` // column/row hint, free-form
}

// Correlation is one AI-detected relationship between columns.
type Correlation struct {
	Columns     []string `json:"columns,omitempty"`
	Description string   `json:"description"`
	Strength    float64  `json:"strength,omitempty"`
}

// PatternAnalysis is the typed form of an AI pattern-detection response.
type PatternAnalysis struct {
	Trends       []TrendPattern `json:"trends"`
	Anomalies    []Anomaly      `json:"anomalies"`
	Correlations []Correlation  `json:"correlations"`
}

// InsightAnalysis is the typed form of an AI insight response.
type InsightAnalysis struct {
	KeyFindings    []string `json:"key_findings"`
	Interpretation string   `json:"interpretation,omitempty"`
	DataQuality    string   `json:"data_quality,omitempty"`
}

// Priority orders follow-up queries for display.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank returns a sortable weight: high > medium > low. Unrecognized
// priorities sort last.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// FollowUpQuery is a model-suggested next query. Suggestions are ordered by
// descending priority for display and never deduplicated beyond model output.
type FollowUpQuery struct {
	Query    string   `json:"query"`
	Purpose  string   `json:"purpose"`
	Priority Priority `json:"priority"`
}

// AnalysisResult is a sparse union of analysis sub-records. The engine
// populates exactly the sub-records the requested mode calls for; in full
// mode at least one sub-record is always present.
type AnalysisResult struct {
	Mode        AnalysisMode         `json:"mode"`
	Statistical *StatisticalAnalysis `json:"statistical,omitempty"`
	Patterns    *PatternAnalysis     `json:"patterns,omitempty"`
	Insights    *InsightAnalysis     `json:"insights,omitempty"`

	// Flat fields populated by the AI passes.
	AIInsights      string          `json:"ai_insights,omitempty"`
	Recommendations []string        `json:"recommendations,omitempty"`
	FollowUps       []FollowUpQuery `json:"follow_up_queries,omitempty"`
}
