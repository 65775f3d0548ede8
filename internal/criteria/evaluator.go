// Package criteria narrows cluster lists by a free text search and by CEL
// expressions over the cluster record.
package criteria

import (
	"context"
	"fmt"
	"strings"

	"github.com/openshift-hyperfleet/hub-clusters/internal/cluster"
	"github.com/openshift-hyperfleet/hub-clusters/pkg/logger"
)

// Criteria is the filter applied to a list
type Criteria struct {
	// Text is matched case insensitively against display name, name and id
	Text string
	// Expression is a CEL expression over the "cluster" variable
	Expression string
}

// IsEmpty reports whether c filters nothing
func (c Criteria) IsEmpty() bool {
	return strings.TrimSpace(c.Text) == "" && strings.TrimSpace(c.Expression) == ""
}

// Evaluator applies Criteria to cluster lists
type Evaluator struct {
	cel *CELEvaluator
	log logger.Logger
}

// NewEvaluator creates an evaluator with a compiled program cache of cacheSize
func NewEvaluator(log logger.Logger, cacheSize int) (*Evaluator, error) {
	if log == nil {
		return nil, fmt.Errorf("log is required for Evaluator")
	}
	celEval, err := NewCELEvaluator(log, cacheSize)
	if err != nil {
		return nil, err
	}
	return &Evaluator{cel: celEval, log: log}, nil
}

// Validate checks that the expression of c compiles
func (e *Evaluator) Validate(c Criteria) error {
	return e.cel.Validate(c.Expression)
}

// MatchText reports whether text occurs in the display name, name or id of c
func MatchText(c cluster.Cluster, text string) bool {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return true
	}
	for _, v := range []string{c.DisplayName, c.Name, c.ID} {
		if strings.Contains(strings.ToLower(v), text) {
			return true
		}
	}
	return false
}

// Filter returns the clusters of items matching crit, in order. An invalid
// expression fails the whole call; a record the expression cannot be
// evaluated on is excluded.
func (e *Evaluator) Filter(ctx context.Context, items []cluster.Cluster, crit Criteria) ([]cluster.Cluster, error) {
	if crit.IsEmpty() {
		return items, nil
	}
	if err := e.Validate(crit); err != nil {
		return nil, err
	}

	out := make([]cluster.Cluster, 0, len(items))
	skipped := 0
	for _, c := range items {
		if !MatchText(c, crit.Text) {
			continue
		}
		result := e.cel.EvaluateSafe(ctx, crit.Expression, c)
		if result.HasError() {
			skipped++
			continue
		}
		if result.Matched {
			out = append(out, c)
		}
	}
	if skipped > 0 {
		e.log.Debugf(ctx, "Filter expression %q could not be evaluated on %d cluster(s)", crit.Expression, skipped)
	}
	return out, nil
}
