package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/R3E-Network/todo_service/internal/app/rules"
)

// LoadPolicy reads a YAML rules file. Keys missing from the file keep their
// default values; unknown keys are rejected.
func LoadPolicy(path string) (rules.Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return rules.Policy{}, fmt.Errorf("failed to read rules file: %w", err)
	}
	return ParsePolicy(data)
}

// ParsePolicy decodes a rules document on top of the default policy.
func ParsePolicy(data []byte) (rules.Policy, error) {
	policy := rules.DefaultPolicy()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&policy); err != nil && !errors.Is(err, io.EOF) {
		return rules.Policy{}, fmt.Errorf("failed to parse rules file: %w", err)
	}
	if policy.CooldownDays < 0 {
		return rules.Policy{}, fmt.Errorf("delete_cooldown_days must not be negative, got %d", policy.CooldownDays)
	}
	return policy.Normalize(), nil
}
