package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		envFile     string
		interactive bool
	}{
		{name: "no arguments", args: nil, interactive: true},
		{name: "env only", args: []string{"--env", "ci.env"}, envFile: "ci.env", interactive: true},
		{name: "env equals only", args: []string{"--env=ci.env"}, envFile: "ci.env", interactive: true},
		{name: "subcommand", args: []string{"run"}},
		{name: "subcommand with env", args: []string{"--env", "ci.env", "run", "hello-world"}, envFile: "ci.env"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			envFile, interactive, err := parseArgs(tt.args)
			require.NoError(t, err)
			assert.Equal(t, tt.envFile, envFile)
			assert.Equal(t, tt.interactive, interactive)
		})
	}
}

func TestParseArgs_MissingEnvValue(t *testing.T) {
	_, _, err := parseArgs([]string{"--env"})
	require.Error(t, err)
}
