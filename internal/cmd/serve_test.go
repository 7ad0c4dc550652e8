package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestServeCmd_RegisteredUnderRoot(t *testing.T) {
	found := false
	for _, c := range rootCmd.Commands() {
		if c.Use == "serve" {
			found = true
		}
	}
	assert.True(t, found, "expected serve subcommand to be registered")
}
