package data

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gas-valuation/internal/model"
)

func LoadForwardCurveJSON(path string) (*model.ForwardCurve, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return DecodeForwardCurve(f)
}

// DecodeForwardCurve reads one curve document and checks its points.
func DecodeForwardCurve(r io.Reader) (*model.ForwardCurve, error) {
	var c model.ForwardCurve
	if err := json.NewDecoder(r).Decode(&c); err != nil {
		return nil, fmt.Errorf("failed to parse forward curve: %w", err)
	}
	if err := ValidateCurve(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

// ValidateCurve requires at least one point, positive durations and points
// in delivery order without overlap.
func ValidateCurve(c *model.ForwardCurve) error {
	if c == nil || len(c.Points) == 0 {
		return fmt.Errorf("forward curve has no points")
	}
	for i, p := range c.Points {
		if !p.End.After(p.Start) {
			return fmt.Errorf("curve %s point %d: end %s is not after start %s", c.Hub, i, p.End, p.Start)
		}
		if p.DF < 0 {
			return fmt.Errorf("curve %s point %d: df must be >= 0", c.Hub, i)
		}
		if i > 0 && p.Start.Before(c.Points[i-1].End) {
			return fmt.Errorf("curve %s point %d overlaps point %d", c.Hub, i, i-1)
		}
	}
	return nil
}

// SaveForwardCurveJSON writes a curve to a JSON file, creating its directory.
func SaveForwardCurveJSON(c *model.ForwardCurve, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	raw, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal curve: %w", err)
	}
	if err := os.WriteFile(path, raw, 0644); err != nil {
		return fmt.Errorf("failed to write curve file: %w", err)
	}
	return nil
}
