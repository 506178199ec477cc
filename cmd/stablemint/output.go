package main

import (
	"encoding/json"
	"fmt"

	"github.com/itchyny/gojq"
)

// renderJSON prints v to stdout as indented JSON, optionally running it
// through a jq filter first. With a filter, each result is printed on its
// own line in compact form, jq-style.
func renderJSON(v any, filter string) error {
	if filter == "" {
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal output: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	query, err := gojq.Parse(filter)
	if err != nil {
		return fmt.Errorf("failed to parse jq filter %q: %w", filter, err)
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return fmt.Errorf("failed to compile jq filter %q: %w", filter, err)
	}

	// gojq operates on generic JSON values, so round-trip through JSON.
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to unmarshal output: %w", err)
	}

	iter := code.Run(doc)
	for {
		result, ok := iter.Next()
		if !ok {
			break
		}
		if err, ok := result.(error); ok {
			return fmt.Errorf("jq filter error: %w", err)
		}
		out, err := json.Marshal(result)
		if err != nil {
			return fmt.Errorf("failed to marshal filtered output: %w", err)
		}
		fmt.Println(string(out))
	}
	return nil
}
