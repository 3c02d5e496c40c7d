package translate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	jsonata "github.com/blues/jsonata-go"

	"github.com/fitstack/checkout-bridge/internal/domain"
)

// Evaluator maps an invoice onto a checkout request object.
type Evaluator interface {
	Evaluate(ctx context.Context, input map[string]any) (map[string]any, error)
}

// JSONata evaluates a compiled JSONata expression.
type JSONata struct {
	source string
	expr   *jsonata.Expr
}

// CompileJSONata compiles src. An invalid expression is reported at startup
// instead of on the first invoice.
func CompileJSONata(src string) (*JSONata, error) {
	expr, err := jsonata.Compile(src)
	if err != nil {
		return nil, fmt.Errorf("%w: compile expression: %v", domain.ErrTranslation, err)
	}
	return &JSONata{source: src, expr: expr}, nil
}

// Source returns the expression text.
func (j *JSONata) Source() string {
	return j.source
}

// Evaluate implements Evaluator. The result must be an object.
func (j *JSONata) Evaluate(ctx context.Context, input map[string]any) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// The evaluator works on plain JSON values.
	normalized, err := roundTrip(input)
	if err != nil {
		return nil, fmt.Errorf("%w: encode input: %v", domain.ErrTranslation, err)
	}

	out, err := j.expr.Eval(normalized)
	if err != nil {
		if errors.Is(err, jsonata.ErrUndefined) {
			return nil, fmt.Errorf("%w: expression result is undefined", domain.ErrTranslation)
		}
		return nil, fmt.Errorf("%w: evaluate expression: %v", domain.ErrTranslation, err)
	}

	result, err := roundTrip(out)
	if err != nil {
		return nil, fmt.Errorf("%w: encode result: %v", domain.ErrTranslation, err)
	}
	obj, ok := result.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: expression result is %T, not an object", domain.ErrTranslation, result)
	}
	return obj, nil
}

func roundTrip(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}
