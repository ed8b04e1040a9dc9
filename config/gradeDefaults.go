package config

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed grade_defaults.yaml
var gradeDefaultsYAML []byte

// GradeWeights maps a weight scheme name to its key/weight pairs.
type GradeWeights map[string]map[string]float64

// ParseGradeWeights decodes a YAML weight document.
func ParseGradeWeights(raw []byte) (GradeWeights, error) {
	var weights GradeWeights
	if err := yaml.Unmarshal(raw, &weights); err != nil {
		return nil, fmt.Errorf("parse grade weights: %w", err)
	}
	return weights, nil
}

// DefaultGradeWeights returns the weights shipped with the binary.
func DefaultGradeWeights() GradeWeights {
	weights, err := ParseGradeWeights(gradeDefaultsYAML)
	if err != nil {
		panic(err)
	}
	return weights
}
