package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/mirzaik-wcc/contractorlens/internal/takeoff"
)

// readTakeoff decodes a plain takeoff, or a versioned enhanced takeoff when the
// document carries a version field. Enhanced input is validated and merged.
func readTakeoff(r io.Reader) (*takeoff.Takeoff, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var probe struct {
		Version string `json:"version"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("decode takeoff: %w", err)
	}

	if probe.Version == "" {
		var t takeoff.Takeoff
		if err := decodeStrict(data, &t); err != nil {
			return nil, err
		}
		return &t, nil
	}

	var enhanced takeoff.EnhancedTakeoff
	if err := decodeStrict(data, &enhanced); err != nil {
		return nil, err
	}
	return enhanced.Merge()
}

func decodeStrict(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode takeoff: %w", err)
	}
	return nil
}
