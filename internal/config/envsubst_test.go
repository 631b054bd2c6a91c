package config

import (
	"testing"
)

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("TEST_VAR", "hello")
	t.Setenv("ANOTHER_VAR", "world")

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "no variables",
			input:    "plain text",
			expected: "plain text",
		},
		{
			name:     "simple variable",
			input:    "say ${TEST_VAR}",
			expected: "say hello",
		},
		{
			name:     "multiple variables",
			input:    "${TEST_VAR} ${ANOTHER_VAR}",
			expected: "hello world",
		},
		{
			name:     "unset variable becomes empty",
			input:    "value: ${UNSET_VAR}",
			expected: "value: ",
		},
		{
			name:     "default value used when unset",
			input:    "value: ${UNSET_VAR:-fallback}",
			expected: "value: fallback",
		},
		{
			name:     "default value ignored when set",
			input:    "value: ${TEST_VAR:-unused}",
			expected: "value: hello",
		},
		{
			name:     "empty default value",
			input:    "value: ${UNSET_VAR:-}",
			expected: "value: ",
		},
		{
			name:     "variable in YAML context",
			input:    "spec: ${TEST_VAR}\nrun_dir: ${UNSET_PATH:-/default/path}",
			expected: "spec: hello\nrun_dir: /default/path",
		},
		{
			name:     "variable with numbers",
			input:    "${VAR_123:-num}",
			expected: "num",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ExpandEnvVars(tt.input)
			if result != tt.expected {
				t.Errorf("ExpandEnvVars(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestExpandEnvVarsBytes(t *testing.T) {
	t.Setenv("TEST_VAR", "hello")

	result := ExpandEnvVarsBytes([]byte("say ${TEST_VAR}"))
	if string(result) != "say hello" {
		t.Errorf("ExpandEnvVarsBytes = %q, want %q", result, "say hello")
	}
}
