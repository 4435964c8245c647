// Package analysis implements the result-analysis engine: deterministic
// statistics over an execution result plus AI-assisted pattern and insight
// extraction with defensive parsing of the model's free-form output.
package analysis

import (
	"math"
	"sort"
	"time"

	"kustoscope/internal/logging"
	"kustoscope/internal/types"
)

// Thresholds are the heuristic policy parameters of the statistics module.
// None of them implements a formal statistical test; they exist to be tuned.
type Thresholds struct {
	// OutlierSigma flags values farther than this many population standard
	// deviations from the mean.
	OutlierSigma float64

	// SkewnessLimit classifies a distribution as skewed past this |skewness|.
	SkewnessLimit float64

	// UniformCV classifies a distribution as uniform when the coefficient of
	// variation (stddev / |mean|) falls below this.
	UniformCV float64

	// TrendDelta is the relative half-vs-half change needed to call a trend
	// increasing or decreasing.
	TrendDelta float64

	// GapFactor flags an interval as a gap when it exceeds this multiple of
	// the median interval.
	GapFactor float64
}

// DefaultThresholds returns the documented defaults: 2.0 sigma outliers,
// 3x-median gaps.
func DefaultThresholds() Thresholds {
	return Thresholds{
		OutlierSigma:  2.0,
		SkewnessLimit: 1.0,
		UniformCV:     0.1,
		TrendDelta:    0.10,
		GapFactor:     3.0,
	}
}

// numericShare is the fraction of non-null cells that must parse as numbers
// (or timestamps) for a column to qualify as numeric (or temporal).
const numericShare = 0.5

// AnalyzeStatistics computes the deterministic summary of a result. It never
// fails: empty results, all-null columns, and unparseable cells yield nil
// sub-records, not errors.
func AnalyzeStatistics(result *types.ExecutionResult, th Thresholds) *types.StatisticalAnalysis {
	log := logging.Get(logging.CategoryAnalysis)

	out := &types.StatisticalAnalysis{
		Summary: types.ResultSummary{
			TotalRows:  result.TotalRows(),
			TableCount: len(resultTables(result)),
		},
	}
	if out.Summary.TotalRows == 0 {
		return out
	}

	for _, tbl := range resultTables(result) {
		if out.Numerical == nil {
			if col, values := firstNumericColumn(tbl); col != "" {
				out.Numerical = numericalStats(col, values, th)
			}
		}
		if out.Temporal == nil {
			if col, stamps, paired := firstTemporalColumn(tbl); col != "" {
				out.Temporal = temporalStats(col, stamps, paired, th)
			}
		}
		if out.Numerical != nil && out.Temporal != nil {
			break
		}
	}

	log.Debug("statistics: rows=%d numeric=%v temporal=%v",
		out.Summary.TotalRows, out.Numerical != nil, out.Temporal != nil)
	return out
}

func resultTables(result *types.ExecutionResult) []types.Table {
	if result == nil {
		return nil
	}
	return result.Tables
}

// firstNumericColumn returns the name and parsed values of the first column
// in which at least half the non-null cells are numeric.
func firstNumericColumn(tbl types.Table) (string, []float64) {
	for ci, col := range tbl.Columns {
		var values []float64
		nonNull := 0
		for _, row := range tbl.Rows {
			if ci >= len(row) || types.IsNull(row[ci]) {
				continue
			}
			nonNull++
			if f, ok := types.AsFloat(row[ci]); ok {
				values = append(values, f)
			}
		}
		if nonNull == 0 || len(values) == 0 {
			continue
		}
		if float64(len(values)) >= numericShare*float64(nonNull) {
			return col.Name, values
		}
	}
	return "", nil
}

// timePoint pairs a timestamp with the numeric value on the same row, when
// the table has a numeric column to pair with.
type timePoint struct {
	when  float64 // unix seconds, for interval math
	value float64
	hasV  bool
}

// firstTemporalColumn returns the first column whose non-null cells are
// predominantly timestamps, along with per-row points pairing each stamp
// with the row's numeric value (if a numeric column exists).
func firstTemporalColumn(tbl types.Table) (string, []timePoint, bool) {
	numericIdx := -1
	if name, _ := firstNumericColumn(tbl); name != "" {
		for i, c := range tbl.Columns {
			if c.Name == name {
				numericIdx = i
				break
			}
		}
	}

	for ci, col := range tbl.Columns {
		if ci == numericIdx {
			continue
		}
		declared := isTemporalType(col.Type)
		var points []timePoint
		nonNull := 0
		for _, row := range tbl.Rows {
			if ci >= len(row) || types.IsNull(row[ci]) {
				continue
			}
			nonNull++
			ts, ok := types.AsTime(row[ci])
			if !ok {
				continue
			}
			p := timePoint{when: float64(ts.Unix())}
			if numericIdx >= 0 && numericIdx < len(row) {
				if v, ok := types.AsFloat(row[numericIdx]); ok {
					p.value = v
					p.hasV = true
				}
			}
			points = append(points, p)
		}
		if nonNull == 0 || len(points) == 0 {
			continue
		}
		// Integer columns parse as unix stamps whether or not they are
		// timestamps; only accept cell-sniffed columns that look the part,
		// or columns the source declared temporal.
		if declared || (columnLooksTemporal(tbl, ci) && float64(len(points)) >= numericShare*float64(nonNull)) {
			return col.Name, points, numericIdx >= 0
		}
	}
	return "", nil, false
}

func isTemporalType(t string) bool {
	switch t {
	case "datetime", "timestamp", "date", "time", "timestamptz":
		return true
	}
	return false
}

// columnLooksTemporal accepts sniffed columns only when cells are textual
// timestamps or time.Time values, not bare integers.
func columnLooksTemporal(tbl types.Table, ci int) bool {
	for _, row := range tbl.Rows {
		if ci >= len(row) || types.IsNull(row[ci]) {
			continue
		}
		switch row[ci].(type) {
		case string, []byte:
			_, ok := types.AsTime(row[ci])
			return ok
		default:
			_, isTime := row[ci].(interface{ Unix() int64 })
			return isTime
		}
	}
	return false
}

func numericalStats(column string, values []float64, th Thresholds) *types.NumericalStats {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	n := len(sorted)
	mean := 0.0
	for _, v := range sorted {
		mean += v
	}
	mean /= float64(n)

	// Population variance, and third moment for the skewness heuristic.
	var m2, m3 float64
	for _, v := range sorted {
		d := v - mean
		m2 += d * d
		m3 += d * d * d
	}
	m2 /= float64(n)
	m3 /= float64(n)
	stdDev := math.Sqrt(m2)

	stats := &types.NumericalStats{
		Column: column,
		Count:  n,
		Mean:   mean,
		// Lower-middle order statistic for even counts, by policy.
		Median:       sorted[(n-1)/2],
		StdDev:       stdDev,
		Min:          sorted[0],
		Max:          sorted[n-1],
		Outliers:     []float64{},
		Distribution: types.DistributionUnknown,
	}

	if stdDev > 0 {
		limit := th.OutlierSigma * stdDev
		for _, v := range sorted {
			if math.Abs(v-mean) > limit {
				stats.Outliers = append(stats.Outliers, v)
			}
		}
	}

	stats.Distribution = classifyDistribution(mean, stdDev, m3, n, th)
	return stats
}

func classifyDistribution(mean, stdDev, m3 float64, n int, th Thresholds) types.Distribution {
	if n < 3 {
		return types.DistributionUnknown
	}
	if stdDev == 0 {
		return types.DistributionUniform
	}
	skewness := m3 / (stdDev * stdDev * stdDev)
	if math.Abs(skewness) > th.SkewnessLimit {
		return types.DistributionSkewed
	}
	if mean != 0 && stdDev/math.Abs(mean) < th.UniformCV {
		return types.DistributionUniform
	}
	return types.DistributionNormal
}

func temporalStats(column string, points []timePoint, paired bool, th Thresholds) *types.TemporalStats {
	sort.Slice(points, func(i, j int) bool { return points[i].when < points[j].when })

	stats := &types.TemporalStats{
		Column: column,
		Start:  unixTime(points[0].when),
		End:    unixTime(points[len(points)-1].when),
		Trend:  types.TrendUnknown,
		Gaps:   detectGaps(points, th),
	}
	if paired {
		stats.Trend = classifyTrend(points, th)
	}
	return stats
}

func unixTime(sec float64) time.Time {
	return time.Unix(int64(sec), 0).UTC()
}

// detectGaps flags every interval larger than GapFactor times the median
// interval, reporting the timestamp where each gap starts.
func detectGaps(points []timePoint, th Thresholds) []time.Time {
	gaps := []time.Time{}
	if len(points) < 3 {
		return gaps
	}

	intervals := make([]float64, 0, len(points)-1)
	for i := 1; i < len(points); i++ {
		intervals = append(intervals, points[i].when-points[i-1].when)
	}
	sorted := append([]float64(nil), intervals...)
	sort.Float64s(sorted)
	median := sorted[(len(sorted)-1)/2]
	if median <= 0 {
		return gaps
	}

	limit := th.GapFactor * median
	for i, iv := range intervals {
		if iv > limit {
			gaps = append(gaps, unixTime(points[i].when))
		}
	}
	return gaps
}

func classifyTrend(points []timePoint, th Thresholds) types.Trend {
	var series []float64
	for _, p := range points {
		if p.hasV {
			series = append(series, p.value)
		}
	}
	if len(series) < 4 {
		return types.TrendUnknown
	}

	// Seasonal check first: quarter means with alternating deltas.
	if quarterSignsAlternate(series) {
		return types.TrendSeasonal
	}

	half := len(series) / 2
	first := meanOf(series[:half])
	second := meanOf(series[half:])
	if first == 0 {
		return types.TrendUnknown
	}
	delta := (second - first) / math.Abs(first)
	switch {
	case delta > th.TrendDelta:
		return types.TrendIncreasing
	case delta < -th.TrendDelta:
		return types.TrendDecreasing
	default:
		return types.TrendStable
	}
}

func quarterSignsAlternate(series []float64) bool {
	if len(series) < 8 {
		return false
	}
	q := len(series) / 4
	means := []float64{
		meanOf(series[:q]),
		meanOf(series[q : 2*q]),
		meanOf(series[2*q : 3*q]),
		meanOf(series[3*q:]),
	}
	d1 := means[1] - means[0]
	d2 := means[2] - means[1]
	d3 := means[3] - means[2]
	return d1*d2 < 0 && d2*d3 < 0
}

func meanOf(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
