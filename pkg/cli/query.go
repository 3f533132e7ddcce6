package cli

import (
	"encoding/json"
	"fmt"

	"github.com/itchyny/gojq"
)

// Query runs the jq expression expr over input and returns every result.
// input is first converted to plain JSON values, so struct tags decide the
// field names a query sees.
func Query(expr string, input any) ([]any, error) {
	q, err := gojq.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("cli: parse query %q: %w", expr, err)
	}
	v, err := toJSONValue(input)
	if err != nil {
		return nil, err
	}

	var out []any
	iter := q.Run(v)
	for {
		r, ok := iter.Next()
		if !ok {
			break
		}
		if err, ok := r.(error); ok {
			return nil, fmt.Errorf("cli: query %q: %w", expr, err)
		}
		out = append(out, r)
	}
	return out, nil
}

func toJSONValue(input any) (any, error) {
	data, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("cli: query input: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("cli: query input: %w", err)
	}
	return v, nil
}
