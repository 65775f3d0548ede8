package tagging

import (
	"github.com/openshift-hyperfleet/hub-clusters/internal/cluster"
	"github.com/openshift-hyperfleet/hub-clusters/pkg/constants"
	apperrors "github.com/openshift-hyperfleet/hub-clusters/pkg/errors"
)

// Outcome is the result of tagging one cluster
type Outcome int

const (
	// AlreadyTagged is a success that needed no edit call
	AlreadyTagged Outcome = iota
	// Applied is a success after an edit call
	Applied
	// Failed means the edit call was rejected
	Failed
)

func (o Outcome) String() string {
	switch o {
	case AlreadyTagged:
		return "already_tagged"
	case Applied:
		return "applied"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalText renders the outcome by name
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Result is the outcome for one cluster
type Result struct {
	Cluster cluster.Cluster
	Outcome Outcome
	Err     error
}

// Succeeded reports whether the cluster ended in the requested state
func (r Result) Succeeded() bool {
	return r.Outcome != Failed
}

// Failure is a failed cluster as shown in the tagging error list
type Failure struct {
	// Cluster is the display name, falling back to the id
	Cluster string `json:"cluster"`
	Error   string `json:"error"`
}

// BatchResult aggregates the outcomes of a batch
type BatchResult struct {
	Results      []Result
	SuccessCount int
	Failures     []Failure
}

// errorMessage is the user facing text of a failed edit
func errorMessage(err error) string {
	if err == nil {
		return constants.UnknownErrorText
	}
	if apiErr, ok := apperrors.IsAPIError(err); ok {
		if msg := apiErr.Message(); msg != "" {
			return msg
		}
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return constants.UnknownErrorText
}

func newFailure(c cluster.Cluster, err error) Failure {
	return Failure{Cluster: c.Label(), Error: errorMessage(err)}
}
