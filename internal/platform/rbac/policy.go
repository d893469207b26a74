package rbac

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"

	"auth-service/internal/security"
)

const policyQuery = "data.authz.allow"

// DefaultPolicy allows every request that passed the role check.
const DefaultPolicy = `package authz

default allow := true
`

// Request is the input handed to the Rego policy.
type Request struct {
	Method string
	Route  string
}

// PolicyGate evaluates an additional Rego policy after Authorize. The policy must define
// data.authz.allow; anything other than true denies.
type PolicyGate struct {
	query rego.PreparedEvalQuery
}

// NewPolicyGate compiles module (Rego source). An empty module selects DefaultPolicy.
func NewPolicyGate(ctx context.Context, module string) (*PolicyGate, error) {
	if module == "" {
		module = DefaultPolicy
	}
	compiler, err := ast.CompileModules(map[string]string{"authz.rego": module})
	if err != nil {
		return nil, fmt.Errorf("compile policy: %w", err)
	}
	pq, err := rego.New(
		rego.Query(policyQuery),
		rego.Compiler(compiler),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("prepare policy: %w", err)
	}
	return &PolicyGate{query: pq}, nil
}

// LoadPolicyGate reads the Rego module at path. An empty path selects DefaultPolicy.
func LoadPolicyGate(ctx context.Context, path string) (*PolicyGate, error) {
	if path == "" {
		return NewPolicyGate(ctx, "")
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy: %w", err)
	}
	return NewPolicyGate(ctx, string(src))
}

// Allow evaluates the policy for claims and req. Evaluation failures deny with the cause attached.
func (g *PolicyGate) Allow(ctx context.Context, claims *security.AccessClaims, req Request) error {
	if g == nil {
		return nil
	}
	if claims == nil {
		return ErrForbidden
	}
	input := map[string]any{
		"user": map[string]any{
			"id":   claims.PrincipalID(),
			"role": string(claims.Role),
		},
		"request": map[string]any{
			"method": req.Method,
			"route":  req.Route,
		},
	}
	rs, err := g.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return fmt.Errorf("%w: eval policy: %v", ErrForbidden, err)
	}
	if allowed, ok := firstBool(rs); ok && allowed {
		return nil
	}
	return ErrForbidden
}

func firstBool(rs rego.ResultSet) (bool, bool) {
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return false, false
	}
	b, ok := rs[0].Expressions[0].Value.(bool)
	return b, ok
}

// HealthCheck evaluates the policy against an anonymous request to confirm it still produces a decision.
func (g *PolicyGate) HealthCheck(ctx context.Context) error {
	if g == nil {
		return nil
	}
	rs, err := g.query.Eval(ctx, rego.EvalInput(map[string]any{}))
	if err != nil {
		return fmt.Errorf("eval policy: %w", err)
	}
	if _, ok := firstBool(rs); !ok {
		return errors.New("policy query returned no decision")
	}
	return nil
}
