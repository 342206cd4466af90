// Package evaluate computes per-subject change over time for longitudinal
// datasets and flags rows whose change magnitude meets a threshold.
//
// The evaluator is a pure function over one table: rows are projected onto
// subject/time/value roles, grouped by subject, stable-sorted by time, and
// reduced by one of three change methods. It holds no state across calls and
// never mutates its input.
package evaluate

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/okian/driftmark/internal/domain/model"
	"github.com/okian/driftmark/internal/domain/types"
	"github.com/okian/driftmark/pkg/metrics"
)

// Row is one input record: a mapping from field name to value. Fields beyond
// the three configured roles are ignored.
type Row = map[string]any

// Request carries the inputs of one evaluation call.
type Request struct {
	// Rows is the long-format input table. An empty table evaluates to an
	// empty output, not an error.
	Rows []Row

	// SubjectField, TimeField and ValueField name the row fields holding the
	// three roles. Every row must carry all three.
	SubjectField string
	TimeField    string
	ValueField   string

	// Threshold is compared against |change|. A negative threshold therefore
	// flags every emitted row; it is accepted as-is, not rejected.
	Threshold float64

	// Method selects the change computation.
	Method Method
}

// Evaluator computes change rows from longitudinal records.
type Evaluator interface {
	// Evaluate runs one evaluation. Output order is deterministic: subject
	// groups ascend by subject key, rows within a group ascend by time.
	// Rows sharing a subject and time keep their original relative order and
	// are treated as adjacent by the consecutive-pair methods.
	Evaluate(ctx context.Context, req Request) ([]types.Change, error)
}

// GroupEvaluator implements Evaluator with an explicit group-then-reduce
// pass. Groups are independent; with parallelism above one, large inputs are
// spread over a fixed worker pool with a single ordered merge at the end, so
// output is identical to the sequential path.
type GroupEvaluator struct {
	parallelism       int
	parallelMinGroups int
}

// New creates a GroupEvaluator with configuration options.
func New(opts ...Option) *GroupEvaluator {
	e := &GroupEvaluator{
		parallelism:       1,
		parallelMinGroups: defaultParallelMinGroups,
	}

	// Apply all options
	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Evaluate runs one evaluation per the Evaluator contract.
func (e *GroupEvaluator) Evaluate(ctx context.Context, req Request) ([]types.Change, error) {
	// Fail fast before any row work.
	if !req.Method.valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, string(req.Method))
	}

	// No subjects means no invariant to violate.
	if len(req.Rows) == 0 {
		return []types.Change{}, nil
	}

	obs, err := project(req)
	if err != nil {
		return nil, err
	}

	groups := groupBySubject(obs)
	metrics.ObserveGroupCount(len(groups))

	var perGroup [][]types.Change
	if e.parallelism > 1 && len(groups) >= e.parallelMinGroups {
		perGroup, err = e.computeParallel(ctx, groups, req.Threshold, req.Method)
		if err != nil {
			return nil, err
		}
	} else {
		perGroup = make([][]types.Change, len(groups))
		for i, g := range groups {
			perGroup[i] = computeGroup(g, req.Threshold, req.Method)
		}
	}

	out := make([]types.Change, 0, len(obs))
	for _, rows := range perGroup {
		out = append(out, rows...)
	}
	return out, nil
}

// project maps every row onto (subject, time, value) and coerces time and
// value to numeric. The first missing or non-numeric field aborts the call;
// nothing is emitted past an error.
func project(req Request) ([]model.Observation, error) {
	obs := make([]model.Observation, len(req.Rows))
	for i, row := range req.Rows {
		subjectRaw, err := fieldValue(row, req.SubjectField, i)
		if err != nil {
			return nil, err
		}
		timeRaw, err := fieldValue(row, req.TimeField, i)
		if err != nil {
			return nil, err
		}
		valueRaw, err := fieldValue(row, req.ValueField, i)
		if err != nil {
			return nil, err
		}

		subject, err := subjectKey(subjectRaw)
		if err != nil {
			return nil, fmt.Errorf("row %d field %q: %w", i, req.SubjectField, err)
		}
		t, err := toFloat(timeRaw)
		if err != nil {
			return nil, fmt.Errorf("row %d field %q: %w", i, req.TimeField, err)
		}
		v, err := toFloat(valueRaw)
		if err != nil {
			return nil, fmt.Errorf("row %d field %q: %w", i, req.ValueField, err)
		}

		obs[i] = model.Observation{Subject: subject, Time: t, Value: v, Seq: i}
	}
	return obs, nil
}

// fieldValue reads a named field from a row. A nil value counts as missing.
func fieldValue(row Row, field string, rowIdx int) (any, error) {
	v, ok := row[field]
	if !ok || v == nil {
		return nil, fmt.Errorf("%w: row %d field %q", ErrMissingField, rowIdx, field)
	}
	return v, nil
}

// groupBySubject partitions observations by subject and orders the result:
// groups ascend by subject key, observations within a group ascend by time.
// The time sort is stable, so ties keep their original row order.
func groupBySubject(obs []model.Observation) []model.Group {
	bySubject := make(map[string][]model.Observation)
	for _, o := range obs {
		bySubject[o.Subject] = append(bySubject[o.Subject], o)
	}

	keys := make([]string, 0, len(bySubject))
	for k := range bySubject {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return subjectLess(keys[i], keys[j]) })

	groups := make([]model.Group, len(keys))
	for i, k := range keys {
		g := bySubject[k]
		sort.SliceStable(g, func(a, b int) bool { return g[a].Time < g[b].Time })
		groups[i] = model.Group{Subject: k, Observations: g}
	}
	return groups
}

// computeGroup reduces one subject group to its change rows.
func computeGroup(g model.Group, threshold float64, method Method) []types.Change {
	v := g.Observations
	switch method {
	case FirstLast:
		first := v[0].Value
		last := v[len(v)-1].Value
		change := last - first // zero when the subject has one observation
		return []types.Change{{
			Subject:    g.Subject,
			FirstValue: floatPtr(first),
			LastValue:  floatPtr(last),
			Change:     change,
			Flagged:    flagged(change, threshold),
		}}

	case MeanChange:
		// Single-observation subjects have no stepwise change and emit
		// nothing under this method.
		if len(v) < 2 {
			return nil
		}
		// Sum in ascending time order so float rounding is reproducible.
		sum := 0.0
		for i := 1; i < len(v); i++ {
			sum += v[i].Value - v[i-1].Value
		}
		change := sum / float64(len(v)-1)
		return []types.Change{{
			Subject: g.Subject,
			Change:  change,
			Flagged: flagged(change, threshold),
		}}

	case AllTimepoints:
		// The first timepoint has no predecessor: no boundary row is
		// emitted, rather than a placeholder with an undefined change.
		if len(v) < 2 {
			return nil
		}
		rows := make([]types.Change, 0, len(v)-1)
		for i := 1; i < len(v); i++ {
			change := v[i].Value - v[i-1].Value
			rows = append(rows, types.Change{
				Subject:  g.Subject,
				FromTime: floatPtr(v[i-1].Time),
				ToTime:   floatPtr(v[i].Time),
				Change:   change,
				Flagged:  flagged(change, threshold),
			})
		}
		return rows
	}
	return nil
}

// flagged reports whether a change magnitude meets the threshold.
func flagged(change, threshold float64) bool {
	return math.Abs(change) >= threshold
}

func floatPtr(f float64) *float64 {
	return &f
}
