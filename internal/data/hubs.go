package data

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Hub is a gas trading hub with a published forward curve.
type Hub struct {
	ID       string `json:"id"`       // e.g., "TTF", "NBP"
	Name     string `json:"name"`     // e.g., "Title Transfer Facility"
	Currency string `json:"currency"` // e.g., "EUR"
}

// HubList represents a collection of hubs
type HubList struct {
	UpdatedAt string `json:"updated_at"` // ISO 8601 timestamp
	Hubs      []Hub  `json:"hubs"`
}

// LoadHubs loads hubs from a JSON file
func LoadHubs(filePath string) (*HubList, error) {
	raw, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read hubs file: %w", err)
	}

	var list HubList
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("failed to parse hubs file: %w", err)
	}

	return &list, nil
}

// SaveHubs saves hubs to a JSON file
func SaveHubs(list *HubList, filePath string) error {
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	raw, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal hubs: %w", err)
	}

	if err := os.WriteFile(filePath, raw, 0644); err != nil {
		return fmt.Errorf("failed to write hubs file: %w", err)
	}

	return nil
}

// DefaultHubsPath returns the default path for the hubs file
func DefaultHubsPath() string {
	if path := os.Getenv("HUBS_FILE"); path != "" {
		return path
	}
	return "./examples/hubs.json"
}
