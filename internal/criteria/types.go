package criteria

import (
	"errors"
	"strings"

	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
)

// ClusterVariable is the name under which a cluster is exposed to expressions
const ClusterVariable = "cluster"

// ErrInvalidExpression is returned when an expression does not parse or type check
var ErrInvalidExpression = errors.New("invalid filter expression")

// FailureReason classifies why an expression could not be applied to a cluster
type FailureReason string

const (
	ReasonCompile       FailureReason = "compile error"
	ReasonMissingField  FailureReason = "field not found"
	ReasonNullValue     FailureReason = "null value access"
	ReasonTypeMismatch  FailureReason = "type mismatch"
	ReasonEvaluationErr FailureReason = "evaluation failed"
)

// Outcome is the result of applying an expression to one cluster. A failed
// evaluation is an Outcome with Err set, so one odd record never fails a
// whole list.
type Outcome struct {
	// Value is the raw expression result, nil on failure
	Value interface{}
	// Matched is true for a true bool or any non empty value; never true on failure
	Matched bool
	Err     error
	Reason  FailureReason
}

// HasError reports whether the expression could not be applied
func (o Outcome) HasError() bool {
	return o.Err != nil
}

func failed(reason FailureReason, err error) Outcome {
	return Outcome{Err: err, Reason: reason}
}

// classify maps a CEL runtime error onto a FailureReason
func classify(err error) FailureReason {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "no such key"), strings.Contains(msg, "no such attribute"):
		return ReasonMissingField
	case strings.Contains(msg, "null"):
		return ReasonNullValue
	case strings.Contains(msg, "no matching overload"), strings.Contains(msg, "type"):
		return ReasonTypeMismatch
	default:
		return ReasonEvaluationErr
	}
}

// truthy reports whether a non bool expression result selects the cluster
func truthy(val ref.Val) bool {
	switch v := val.(type) {
	case nil, types.Null:
		return false
	case types.Bool:
		return bool(v)
	case types.String:
		return v != ""
	}
	if sizer, ok := val.(interface{ Size() ref.Val }); ok {
		if n, ok := sizer.Size().(types.Int); ok {
			return n > 0
		}
	}
	return true
}
