package criteria

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/cel-go/cel"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/openshift-hyperfleet/hub-clusters/internal/cluster"
	"github.com/openshift-hyperfleet/hub-clusters/pkg/logger"
)

// DefaultProgramCacheSize bounds the number of compiled expressions kept
const DefaultProgramCacheSize = 128

// CELEvaluator compiles filter expressions over the "cluster" variable and
// evaluates them against cluster records. Compiled programs are cached by
// expression text. It is safe for concurrent use.
type CELEvaluator struct {
	env      *cel.Env
	programs *lru.Cache[string, cel.Program]
	log      logger.Logger
}

// NewCELEvaluator creates an evaluator caching up to cacheSize programs
func NewCELEvaluator(log logger.Logger, cacheSize int) (*CELEvaluator, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultProgramCacheSize
	}

	env, err := cel.NewEnv(
		// Enable optional types for optional chaining syntax (e.g., cluster.properties.?acm_hub)
		cel.OptionalTypes(),
		cel.Variable(ClusterVariable, cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	programs, err := lru.New[string, cel.Program](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create program cache: %w", err)
	}

	return &CELEvaluator{env: env, programs: programs, log: log}, nil
}

// Compile parses and type checks expression, returning a cached program when
// the same expression was compiled before.
func (e *CELEvaluator) Compile(expression string) (cel.Program, error) {
	expression = strings.TrimSpace(expression)
	if prg, ok := e.programs.Get(expression); ok {
		return prg, nil
	}

	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidExpression, issues.Err())
	}
	if out := ast.OutputType(); !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
		return nil, fmt.Errorf("%w: expression must return bool, got %s", ErrInvalidExpression, out)
	}

	prg, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidExpression, err)
	}
	e.programs.Add(expression, prg)
	return prg, nil
}

// Validate reports whether expression compiles. An empty expression is valid.
func (e *CELEvaluator) Validate(expression string) error {
	if strings.TrimSpace(expression) == "" {
		return nil
	}
	_, err := e.Compile(expression)
	return err
}

// EvaluateSafe applies expression to c. It never returns an error; compile
// and evaluation failures are reported in the outcome. An empty expression
// matches every cluster.
func (e *CELEvaluator) EvaluateSafe(ctx context.Context, expression string, c cluster.Cluster) Outcome {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return Outcome{Value: true, Matched: true}
	}

	prg, err := e.Compile(expression)
	if err != nil {
		return failed(ReasonCompile, err)
	}

	out, _, err := prg.Eval(map[string]interface{}{ClusterVariable: cluster.ToMap(c)})
	if err != nil {
		reason := classify(err)
		e.log.Debugf(logger.WithClusterID(ctx, c.ID), "Filter expression %q failed: %s (%v)", expression, reason, err)
		return failed(reason, fmt.Errorf("failed to evaluate %q: %w", expression, err))
	}
	return Outcome{Value: out.Value(), Matched: truthy(out)}
}
