package layout

import (
	"fmt"
	"os"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// MarshalResult serializes a layout to pretty-printed JSON.
func MarshalResult(r Result) ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// UnmarshalResult parses a layout. Every edge must reference nodes that exist
// in the layout.
func UnmarshalResult(data []byte) (Result, error) {
	var r Result
	if err := json.Unmarshal(data, &r); err != nil {
		return Result{}, fmt.Errorf("unmarshal layout: %w", err)
	}

	ids := make(map[string]bool, len(r.Nodes))
	for _, n := range r.Nodes {
		if n.ID == "" {
			return Result{}, fmt.Errorf("layout node without id")
		}
		ids[n.ID] = true
	}
	for _, e := range r.Edges {
		if !ids[e.Source] || !ids[e.Target] {
			return Result{}, fmt.Errorf("edge %s references unknown node", e.ID)
		}
	}
	return r, nil
}

// WriteFile writes a layout to a JSON file.
func WriteFile(r Result, path string) error {
	data, err := MarshalResult(r)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ReadFile reads a layout from a JSON file.
func ReadFile(path string) (Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("read %s: %w", path, err)
	}
	return UnmarshalResult(data)
}
