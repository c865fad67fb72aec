package agent

import (
	"fmt"
	"math"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	foodAnalyzerName         = "Food Analyzer"
	foodAnalyzerInstructions = "You are a helpful assistant that analyzes food items and provides nutritional information. " +
		"Please answer the user's questions only about food items accurately and concisely."
)

// Agent is the fixed identity a run is performed as: a name plus the system
// instructions that scope what the model answers.
type Agent struct {
	Name         string   `yaml:"name"`
	Instructions string   `yaml:"instructions"`
	Temperature  *float32 `yaml:"temperature"` // nil leaves the provider default
	MaxTokens    int      `yaml:"max_tokens"`
}

// FoodAnalyzer returns the built-in agent that only answers food and
// nutrition questions.
func FoodAnalyzer() Agent {
	return Agent{Name: foodAnalyzerName, Instructions: foodAnalyzerInstructions}
}

// LoadAgent reads an agent definition from a YAML file. Fields left empty fall
// back to the built-in Food Analyzer values.
func LoadAgent(path string) (Agent, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Agent{}, fmt.Errorf("read agent definition: %w", err)
	}
	var a Agent
	if err := yaml.Unmarshal(b, &a); err != nil {
		return Agent{}, fmt.Errorf("parse agent definition %s: %w", path, err)
	}
	def := FoodAnalyzer()
	if strings.TrimSpace(a.Name) == "" {
		a.Name = def.Name
	}
	if strings.TrimSpace(a.Instructions) == "" {
		a.Instructions = def.Instructions
	}
	if t := a.Temperature; t != nil && (*t < 0 || *t > 2) {
		return Agent{}, fmt.Errorf("agent definition %s: temperature %v out of range [0, 2]", path, *t)
	}
	if a.MaxTokens < 0 {
		return Agent{}, fmt.Errorf("agent definition %s: max_tokens must not be negative", path)
	}
	return a, nil
}

// requestTemperature is the value sent upstream. The request field is omitted
// when zero, so an explicit 0 is sent as the smallest non-zero float32.
func (a Agent) requestTemperature() float32 {
	switch {
	case a.Temperature == nil:
		return 0
	case *a.Temperature == 0:
		return math.SmallestNonzeroFloat32
	}
	return *a.Temperature
}
