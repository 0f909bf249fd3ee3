package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigCommandRegistersShowSubcommand(t *testing.T) {
	c := (&ConfigCommand{}).GetCobraCommand()

	names := make([]string, 0)
	for _, sub := range c.Commands() {
		names = append(names, sub.Name())
	}
	assert.Contains(t, names, "show")
}

func TestConfigShowPrintsYAML(t *testing.T) {
	prevCfg := cfg
	defer func() { cfg = prevCfg }()
	cfg = nil

	c := (&ConfigShowCommand{}).GetCobraCommand()
	var out bytes.Buffer
	c.SetOut(&out)

	err := c.RunE(c, nil)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "targetUnit:")
}
