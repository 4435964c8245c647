package refine

import (
	"context"
	"fmt"

	"kustoscope/internal/types"
)

// fakeGenerator scripts generator behavior per call.
type fakeGenerator struct {
	generated   *types.Candidate
	generateErr error

	regenerated   []*types.Candidate // consumed in order
	regenerateErr error
	regenCalls    int
	lastContext   types.RegenerationContext

	explanation string
	explainErr  error
}

func (f *fakeGenerator) Generate(ctx context.Context, question, schema string) (*types.Candidate, error) {
	if f.generateErr != nil {
		return nil, f.generateErr
	}
	return f.generated, nil
}

func (f *fakeGenerator) Regenerate(ctx context.Context, question string, rc types.RegenerationContext, schema string) (*types.Candidate, error) {
	f.regenCalls++
	f.lastContext = rc
	if f.regenerateErr != nil {
		return nil, f.regenerateErr
	}
	if len(f.regenerated) == 0 {
		return &types.Candidate{Query: fmt.Sprintf("regen-%d", rc.Attempt), Confidence: 0.8}, nil
	}
	cand := f.regenerated[0]
	f.regenerated = f.regenerated[1:]
	return cand, nil
}

func (f *fakeGenerator) Explain(ctx context.Context, query string, opts types.ExplainOptions) (string, error) {
	if f.explainErr != nil {
		return "", f.explainErr
	}
	return f.explanation, nil
}

// fakeExecutor returns a fixed result or error and records the query it ran.
type fakeExecutor struct {
	result   *types.ExecutionResult
	err      error
	executed []string
}

func (f *fakeExecutor) Execute(ctx context.Context, query string) (*types.ExecutionResult, error) {
	f.executed = append(f.executed, query)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func twoRowResult() *types.ExecutionResult {
	return &types.ExecutionResult{Tables: []types.Table{{
		Name:    "results",
		Columns: []types.Column{{Name: "endpoint", Type: "text"}, {Name: "count", Type: "integer"}},
		Rows: [][]types.Value{
			{"/api/orders", int64(17)},
			{"/api/users", int64(9)},
		},
	}}}
}
