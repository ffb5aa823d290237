package main

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchCommand_HelpMentionsIgnoreReload(t *testing.T) {
	cmd := &cobra.Command{Use: "themesync"}
	cmd.AddCommand(newWatchCmd())

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"watch", "--help"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "restart it after editing .themesyncignore")
	assert.Contains(t, out.String(), "--ignore strings")
}
