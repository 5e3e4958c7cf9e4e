package model

import (
	"encoding/json"
	"fmt"
	"os"
)

// LoadJSON reads a stump ensemble from a JSON file.
func LoadJSON(path string) (*StumpEnsemble, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}

	var ensemble StumpEnsemble

	unmarshalErr := json.Unmarshal(data, &ensemble)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal model: %w", unmarshalErr)
	}

	return &ensemble, nil
}

// SaveJSON writes the ensemble to a JSON file.
func (e *StumpEnsemble) SaveJSON(path string) error {
	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal model: %w", err)
	}

	writeErr := os.WriteFile(path, data, 0o600)
	if writeErr != nil {
		return fmt.Errorf("write model: %w", writeErr)
	}

	return nil
}
