package mcp

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/ghar/internal/household"
)

// decode unmarshals MCP request arguments into a typed struct.
// Avoids unsafe type assertions and handles JSON decoding safely.
func decode[T any](req mcp.CallToolRequest) (T, error) {
	var result T
	args := req.GetArguments()
	b, err := json.Marshal(args)
	if err != nil {
		return result, fmt.Errorf("marshal args: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(&result); err != nil {
		return result, fmt.Errorf("unmarshal args: %w", err)
	}
	return result, nil
}

// rawFields turns loosely typed tool arguments into form values. Numbers and
// booleans become their text form; nulls are dropped.
func rawFields(fields map[string]any) household.RawInput {
	raw := make(household.RawInput, len(fields))
	for k, v := range fields {
		switch x := v.(type) {
		case nil:
		case string:
			raw[k] = x
		default:
			raw[k] = fmt.Sprint(x)
		}
	}
	return raw
}

func rawFilters(filters map[string]any) map[string]string {
	if len(filters) == 0 {
		return nil
	}
	return rawFields(filters)
}
