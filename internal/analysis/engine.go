package analysis

import (
	"context"
	"fmt"

	"kustoscope/internal/provider"
	"kustoscope/internal/types"
)

// Engine composes the statistics module and the insight extractor according
// to a requested analysis mode. Sub-analyses run sequentially; there is no
// parallel execution within one call.
type Engine struct {
	extractor  *Extractor
	thresholds Thresholds
}

// Option configures an Engine.
type Option func(*Engine)

// WithThresholds overrides the statistics policy parameters.
func WithThresholds(th Thresholds) Option {
	return func(e *Engine) { e.thresholds = th }
}

// WithMaxSampleRows bounds the rows embedded in AI prompts.
func WithMaxSampleRows(n int) Option {
	return func(e *Engine) {
		if e.extractor != nil {
			e.extractor.maxSampleRows = n
		}
	}
}

// NewEngine creates an analysis engine. The client may be nil when only
// statistical mode will ever be requested.
func NewEngine(client provider.LLMClient, opts ...Option) *Engine {
	e := &Engine{
		thresholds: DefaultThresholds(),
	}
	if client != nil {
		e.extractor = NewExtractor(client, 0)
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Analyze runs the sub-analyses the mode calls for and assembles a unified
// result. Single modes populate exactly the requested sub-record (plus that
// mode's flat fields); full mode populates everything it can, and always at
// least the statistical record.
func (e *Engine) Analyze(ctx context.Context, result *types.ExecutionResult, originalQuery string, mode types.AnalysisMode) (*types.AnalysisResult, error) {
	if result == nil {
		result = &types.ExecutionResult{}
	}

	out := &types.AnalysisResult{Mode: mode}

	switch mode {
	case types.ModeStatistical:
		out.Statistical = AnalyzeStatistics(result, e.thresholds)

	case types.ModePatterns:
		if err := e.requireExtractor(mode); err != nil {
			return nil, err
		}
		e.extractor.ExtractPatterns(ctx, result, originalQuery, out)

	case types.ModeInsights:
		if err := e.requireExtractor(mode); err != nil {
			return nil, err
		}
		e.extractor.ExtractInsights(ctx, result, originalQuery, out)

	case types.ModeFull:
		out.Statistical = AnalyzeStatistics(result, e.thresholds)
		if e.extractor != nil {
			e.extractor.ExtractPatterns(ctx, result, originalQuery, out)
			e.extractor.ExtractInsights(ctx, result, originalQuery, out)
		}

	default:
		return nil, fmt.Errorf("unknown analysis mode: %q", mode)
	}

	return out, nil
}

func (e *Engine) requireExtractor(mode types.AnalysisMode) error {
	if e.extractor == nil {
		return fmt.Errorf("analysis mode %q requires an LLM client", mode)
	}
	return nil
}
