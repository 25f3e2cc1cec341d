package query

import (
	"fmt"

	"github.com/google/cel-go/cel"
)

// findEnv is the shared CEL environment for `find`'s optional expr
// filter: four string variables mirroring NodeSummary's own fields, so
// an expression like `classification == "project" && kind == "method"`
// narrows a find beyond what the regex pattern alone can express.
var findEnv = func() *cel.Env {
	env, err := cel.NewEnv(
		cel.Variable("fqn", cel.StringType),
		cel.Variable("name", cel.StringType),
		cel.Variable("kind", cel.StringType),
		cel.Variable("classification", cel.StringType),
	)
	if err != nil {
		panic(fmt.Sprintf("query: build cel env: %v", err))
	}
	return env
}()

func compileFindExpr(expr string) (cel.Program, error) {
	ast, iss := findEnv.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("query: compile find expr: %w", iss.Err())
	}
	prg, err := findEnv.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("query: build find expr program: %w", err)
	}
	return prg, nil
}

func evalFindExpr(prg cel.Program, s NodeSummary) (bool, error) {
	out, _, err := prg.Eval(map[string]any{
		"fqn":            s.FQN,
		"name":           s.ShortName,
		"kind":           s.Kind,
		"classification": s.Classification,
	})
	if err != nil {
		return false, err
	}
	b, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("query: find expr must evaluate to bool, got %T", out.Value())
	}
	return b, nil
}
