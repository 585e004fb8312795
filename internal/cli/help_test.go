package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isLeaf(cmd *cobra.Command) bool {
	return (cmd.RunE != nil || cmd.Run != nil) && cmd.Name() != "help"
}

// TestCommandDocumentation checks the help metadata of every command in
// one walk.
func TestCommandDocumentation(t *testing.T) {
	walkCommands(rootCmd, func(cmd *cobra.Command) {
		t.Run(cmd.CommandPath(), func(t *testing.T) {
			assert.NotEmpty(t, cmd.Use)
			assert.NotEmpty(t, cmd.Short)
			assert.LessOrEqual(t, len(cmd.Short), 80)
			assert.NotEmpty(t, cmd.Long)
			assert.NotContains(t, cmd.Long, "\nExamples:")

			if isLeaf(cmd) {
				assert.Contains(t, cmd.Example, cmd.CommandPath())
			}
			cmd.Flags().VisitAll(func(f *pflag.Flag) {
				assert.NotEmpty(t, f.Usage, "--%s has no description", f.Name)
			})
		})
	})
}

func TestCommandTree(t *testing.T) {
	visited := make(map[string]*cobra.Command)
	walkCommands(rootCmd, func(cmd *cobra.Command) {
		visited[cmd.CommandPath()] = cmd
	})

	for _, path := range []string{
		"custodian serve",
		"custodian version",
		"custodian config set",
		"custodian wallet create",
		"custodian wallet export-seed",
		"custodian handle init",
		"custodian handle release",
		"custodian key generate",
		"custodian key delete",
		"custodian multisig import",
		"custodian multisig list",
		"custodian tx sign",
		"custodian tx sign-multisig",
	} {
		assert.Contains(t, visited, path)
	}

	for _, cmd := range rootCmd.Commands() {
		if cmd.IsAvailableCommand() {
			assert.NotEmpty(t, cmd.GroupID, "top-level %q has no group", cmd.Name())
		}
	}
}

// TestHandleScopedCommands checks that every command acting through a
// wallet handle accepts --handle, and that commands that mint or do not
// need one do not.
func TestHandleScopedCommands(t *testing.T) {
	scoped := []*cobra.Command{
		walletInfoCmd, walletExportSeedCmd,
		handleRenewCmd, handleReleaseCmd,
		keyGenerateCmd, txSignMultisigCmd, multisigImportCmd,
	}
	for _, cmd := range scoped {
		assert.NotNil(t, cmd.Flags().Lookup("handle"), cmd.CommandPath())
	}
	for _, cmd := range []*cobra.Command{walletCreateCmd, handleInitCmd, serveCmd} {
		assert.Nil(t, cmd.Flags().Lookup("handle"), cmd.CommandPath())
	}
}

func TestRootHelpShowsGroups(t *testing.T) {
	t.Cleanup(resetFlags)

	out, err := runBare(t, "--help")
	require.NoError(t, err)

	assert.Contains(t, out, "Daemon:")
	assert.Contains(t, out, "Custody:")
	assert.NotContains(t, out, "Additional Commands:")
	for _, flag := range []string{"--home", "--output", "--verbose", "--endpoint", "--token"} {
		assert.Contains(t, out, flag)
	}
}

func TestParentHelpListsSubcommands(t *testing.T) {
	t.Cleanup(resetFlags)

	for _, parent := range []*cobra.Command{walletCmd, handleCmd, keyCmd, multisigCmd, txCmd, configCmd} {
		t.Run(parent.Name(), func(t *testing.T) {
			buf := new(bytes.Buffer)
			parent.SetOut(buf)
			require.NoError(t, parent.Help())

			for _, sub := range parent.Commands() {
				if sub.IsAvailableCommand() {
					assert.Contains(t, buf.String(), sub.Name())
				}
			}
		})
	}
}

func TestEnrichParentLong(t *testing.T) {
	noop := func(*cobra.Command, []string) {}
	parent := &cobra.Command{Use: "parent", Short: "Parent", Long: "Base description."}
	parent.AddCommand(
		&cobra.Command{Use: "visible", Short: "Shown here", Run: noop},
		&cobra.Command{Use: "secret", Short: "Not shown", Hidden: true, Run: noop},
	)

	enrichParentLong(parent)

	assert.True(t, strings.HasPrefix(parent.Long, "Base description.\n\nSubcommands:\n"))
	assert.Contains(t, parent.Long, "visible")
	assert.Contains(t, parent.Long, "Shown here")
	assert.NotContains(t, parent.Long, "secret")

	leaf := &cobra.Command{Use: "leaf", Long: "Leaf description."}
	enrichParentLong(leaf)
	assert.Equal(t, "Leaf description.", leaf.Long)
}

func TestEnrichHelpRunsOnce(t *testing.T) {
	enrichHelp()
	enrichHelp()

	assert.Equal(t, 1, strings.Count(keyCmd.Long, "Subcommands:"))
	assert.Contains(t, keyCmd.Long, "generate")
	assert.NotContains(t, rootCmd.Long, "Subcommands:")
}

func TestRequiredFlagsEnforced(t *testing.T) {
	t.Cleanup(resetFlags)

	for _, cmd := range []*cobra.Command{multisigImportCmd, txSignMultisigCmd} {
		t.Run(cmd.CommandPath(), func(t *testing.T) {
			resetFlags()
			err := cmd.ValidateRequiredFlags()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "required flag")
		})
	}

	require.NoError(t, multisigImportCmd.Flags().Set("threshold", "2"))
	require.NoError(t, multisigImportCmd.ValidateRequiredFlags())
}
