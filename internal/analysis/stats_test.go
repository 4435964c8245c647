package analysis

import (
	"math"
	"testing"
	"time"

	"kustoscope/internal/types"
)

func numericTable(values ...types.Value) *types.ExecutionResult {
	tbl := types.Table{
		Name:    "results",
		Columns: []types.Column{{Name: "duration_ms", Type: "integer"}},
	}
	for _, v := range values {
		tbl.Rows = append(tbl.Rows, []types.Value{v})
	}
	return &types.ExecutionResult{Tables: []types.Table{tbl}}
}

func TestAnalyzeStatisticsEmptyResult(t *testing.T) {
	for _, res := range []*types.ExecutionResult{
		nil,
		{},
		{Tables: []types.Table{{Name: "empty", Columns: []types.Column{{Name: "x", Type: "integer"}}}}},
	} {
		got := AnalyzeStatistics(res, DefaultThresholds())
		if got.Summary.TotalRows != 0 {
			t.Errorf("TotalRows = %d, want 0", got.Summary.TotalRows)
		}
		if got.Numerical != nil || got.Temporal != nil {
			t.Error("empty result must yield nil sub-records")
		}
	}
}

func TestAnalyzeStatisticsReferenceValues(t *testing.T) {
	res := numericTable(int64(150), int64(200), int64(180), int64(2500), int64(175))
	got := AnalyzeStatistics(res, DefaultThresholds())

	if got.Summary.TotalRows != 5 {
		t.Fatalf("TotalRows = %d", got.Summary.TotalRows)
	}
	if got.Numerical == nil {
		t.Fatal("expected numerical stats")
	}
	if math.Abs(got.Numerical.Mean-641) > 0.5 {
		t.Errorf("mean = %v, want ≈ 641", got.Numerical.Mean)
	}
	if got.Numerical.Median != 180 {
		t.Errorf("median = %v, want 180", got.Numerical.Median)
	}
	if got.Numerical.Min != 150 || got.Numerical.Max != 2500 {
		t.Errorf("min/max = %v/%v", got.Numerical.Min, got.Numerical.Max)
	}
	// One large value dominates: the distribution is skewed.
	if got.Numerical.Distribution != types.DistributionSkewed {
		t.Errorf("distribution = %s, want skewed", got.Numerical.Distribution)
	}
}

func TestMedianEvenCountUsesLowerMiddle(t *testing.T) {
	res := numericTable(int64(10), int64(20), int64(30), int64(40))
	got := AnalyzeStatistics(res, DefaultThresholds())
	if got.Numerical.Median != 20 {
		t.Errorf("median = %v, want lower-middle 20", got.Numerical.Median)
	}
}

func TestOutlierDetection(t *testing.T) {
	// Tight cluster plus one far point; 2 sigma flags only the far point.
	res := numericTable(
		int64(100), int64(101), int64(99), int64(100), int64(102),
		int64(98), int64(100), int64(101), int64(99), int64(1000),
	)
	got := AnalyzeStatistics(res, DefaultThresholds())
	if len(got.Numerical.Outliers) != 1 || got.Numerical.Outliers[0] != 1000 {
		t.Errorf("outliers = %v, want [1000]", got.Numerical.Outliers)
	}
}

func TestUniformDistribution(t *testing.T) {
	res := numericTable(int64(100), int64(100), int64(101), int64(99), int64(100))
	got := AnalyzeStatistics(res, DefaultThresholds())
	if got.Numerical.Distribution != types.DistributionUniform {
		t.Errorf("distribution = %s, want uniform", got.Numerical.Distribution)
	}
}

func TestNumericColumnToleratesNullsAndText(t *testing.T) {
	res := numericTable(int64(10), nil, "oops", int64(20), int64(30))
	got := AnalyzeStatistics(res, DefaultThresholds())
	if got.Numerical == nil {
		t.Fatal("expected numerical stats despite dirty cells")
	}
	if got.Numerical.Count != 3 {
		t.Errorf("count = %d, want 3 parsed values", got.Numerical.Count)
	}
}

func TestAllNullColumnYieldsNil(t *testing.T) {
	res := numericTable(nil, nil, nil)
	got := AnalyzeStatistics(res, DefaultThresholds())
	if got.Numerical != nil {
		t.Error("all-null column should not produce numerical stats")
	}
	if got.Summary.TotalRows != 3 {
		t.Errorf("TotalRows = %d", got.Summary.TotalRows)
	}
}

func timeSeriesResult(start time.Time, step time.Duration, values []float64, skip map[int]bool) *types.ExecutionResult {
	tbl := types.Table{
		Name: "results",
		Columns: []types.Column{
			{Name: "timestamp", Type: "datetime"},
			{Name: "value", Type: "real"},
		},
	}
	ts := start
	for i, v := range values {
		if skip == nil || !skip[i] {
			tbl.Rows = append(tbl.Rows, []types.Value{ts.Format(time.RFC3339), v})
		}
		ts = ts.Add(step)
	}
	return &types.ExecutionResult{Tables: []types.Table{tbl}}
}

func TestTemporalRangeAndTrend(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("increasing", func(t *testing.T) {
		res := timeSeriesResult(start, time.Hour, []float64{10, 11, 12, 50, 55, 60}, nil)
		got := AnalyzeStatistics(res, DefaultThresholds())
		if got.Temporal == nil {
			t.Fatal("expected temporal stats")
		}
		if !got.Temporal.Start.Equal(start) {
			t.Errorf("start = %v", got.Temporal.Start)
		}
		if got.Temporal.Trend != types.TrendIncreasing {
			t.Errorf("trend = %s, want increasing", got.Temporal.Trend)
		}
	})

	t.Run("decreasing", func(t *testing.T) {
		res := timeSeriesResult(start, time.Hour, []float64{60, 55, 50, 12, 11, 10}, nil)
		got := AnalyzeStatistics(res, DefaultThresholds())
		if got.Temporal.Trend != types.TrendDecreasing {
			t.Errorf("trend = %s, want decreasing", got.Temporal.Trend)
		}
	})

	t.Run("stable", func(t *testing.T) {
		res := timeSeriesResult(start, time.Hour, []float64{100, 101, 99, 100, 102, 98}, nil)
		got := AnalyzeStatistics(res, DefaultThresholds())
		if got.Temporal.Trend != types.TrendStable {
			t.Errorf("trend = %s, want stable", got.Temporal.Trend)
		}
	})

	t.Run("seasonal", func(t *testing.T) {
		// Quarter means 1, 5, 1, 5: the deltas alternate sign.
		res := timeSeriesResult(start, time.Hour, []float64{1, 1, 5, 5, 1, 1, 5, 5}, nil)
		got := AnalyzeStatistics(res, DefaultThresholds())
		if got.Temporal.Trend != types.TrendSeasonal {
			t.Errorf("trend = %s, want seasonal", got.Temporal.Trend)
		}
	})

	t.Run("too_few_for_seasonal", func(t *testing.T) {
		// The same alternation with under 8 points falls through to the
		// half-vs-half comparison.
		res := timeSeriesResult(start, time.Hour, []float64{1, 5, 1, 5, 1, 5}, nil)
		got := AnalyzeStatistics(res, DefaultThresholds())
		if got.Temporal.Trend == types.TrendSeasonal {
			t.Error("seasonal claimed for fewer than 8 points")
		}
	})

	t.Run("too_few_points", func(t *testing.T) {
		res := timeSeriesResult(start, time.Hour, []float64{1, 2}, nil)
		got := AnalyzeStatistics(res, DefaultThresholds())
		if got.Temporal == nil {
			t.Fatal("expected temporal stats")
		}
		if got.Temporal.Trend != types.TrendUnknown {
			t.Errorf("trend = %s, want unknown", got.Temporal.Trend)
		}
	})
}

func TestGapDetection(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	// Hourly points with indexes 4..8 missing: one 6-hour gap.
	skip := map[int]bool{4: true, 5: true, 6: true, 7: true, 8: true}
	values := make([]float64, 12)
	for i := range values {
		values[i] = 100
	}
	res := timeSeriesResult(start, time.Hour, values, skip)

	got := AnalyzeStatistics(res, DefaultThresholds())
	if got.Temporal == nil {
		t.Fatal("expected temporal stats")
	}
	if len(got.Temporal.Gaps) != 1 {
		t.Fatalf("gaps = %v, want exactly one", got.Temporal.Gaps)
	}
	wantStart := start.Add(3 * time.Hour)
	if !got.Temporal.Gaps[0].Equal(wantStart) {
		t.Errorf("gap start = %v, want %v", got.Temporal.Gaps[0], wantStart)
	}
}

func TestTemporalColumnNotFooledByIntegers(t *testing.T) {
	// A lone integer column is numeric, not temporal.
	res := numericTable(int64(1700000000), int64(1700003600))
	got := AnalyzeStatistics(res, DefaultThresholds())
	if got.Temporal != nil {
		t.Error("integer column misclassified as temporal")
	}
	if got.Numerical == nil {
		t.Error("integer column should be numeric")
	}
}
