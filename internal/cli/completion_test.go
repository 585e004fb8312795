package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompletion(t *testing.T) {
	saveGlobals(t)
	t.Setenv("CUSTODIAN_HOME", t.TempDir())

	tests := []struct {
		shell string
		want  string
	}{
		{"bash", "custodian"},
		{"zsh", "#compdef custodian"},
		{"fish", "complete -c custodian"},
		{"powershell", "custodian"},
	}

	for _, tc := range tests {
		t.Run(tc.shell, func(t *testing.T) {
			out, err := runBare(t, "completion", tc.shell)
			require.NoError(t, err)
			assert.Contains(t, out, tc.want)
		})
	}
}

func TestCompletion_InvalidShell(t *testing.T) {
	saveGlobals(t)
	t.Setenv("CUSTODIAN_HOME", t.TempDir())

	_, err := runBare(t, "completion", "tcsh")
	require.Error(t, err)

	_, err = runBare(t, "completion")
	require.Error(t, err)
}
