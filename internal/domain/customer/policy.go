package customer

import (
	"fmt"

	"github.com/google/cel-go/cel"

	"bloomledger/internal/core/types"
)

// DefaultEarnExpression awards 2% of the order total, rounded down.
const DefaultEarnExpression = "total * 2 / 100"

// PointsPolicy computes loyalty points earned by an order from a CEL
// expression over total (whole currency units), branch and pointsUsed.
type PointsPolicy struct {
	expression string
	program    cel.Program
}

// NewPointsPolicy compiles expression. An empty expression selects the
// default rule.
func NewPointsPolicy(expression string) (*PointsPolicy, error) {
	if expression == "" {
		expression = DefaultEarnExpression
	}
	env, err := cel.NewEnv(
		cel.Variable("total", cel.IntType),
		cel.Variable("branch", cel.StringType),
		cel.Variable("pointsUsed", cel.IntType),
	)
	if err != nil {
		return nil, fmt.Errorf("create cel env: %w", err)
	}
	ast, iss := env.Compile(expression)
	if iss.Err() != nil {
		return nil, fmt.Errorf("compile earn expression %q: %w", expression, iss.Err())
	}
	if !ast.OutputType().IsExactType(cel.IntType) {
		return nil, fmt.Errorf("earn expression %q must evaluate to int, got %s", expression, ast.OutputType())
	}
	program, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("build earn program: %w", err)
	}
	return &PointsPolicy{expression: expression, program: program}, nil
}

// MustPointsPolicy is NewPointsPolicy that panics on error.
// Use only for constants and tests.
func MustPointsPolicy(expression string) *PointsPolicy {
	p, err := NewPointsPolicy(expression)
	if err != nil {
		panic(err)
	}
	return p
}

// Expression returns the source expression.
func (p *PointsPolicy) Expression() string { return p.expression }

// Earned evaluates the rule. Fractional totals are floored to whole units
// before evaluation and negative results clamp to zero.
func (p *PointsPolicy) Earned(total types.Money, branch string, pointsUsed int64) (int64, error) {
	out, _, err := p.program.Eval(map[string]any{
		"total":      types.WholeUnits(total),
		"branch":     branch,
		"pointsUsed": pointsUsed,
	})
	if err != nil {
		return 0, fmt.Errorf("evaluate earn expression: %w", err)
	}
	earned, ok := out.Value().(int64)
	if !ok {
		return 0, fmt.Errorf("earn expression returned %T", out.Value())
	}
	return max(earned, 0), nil
}
