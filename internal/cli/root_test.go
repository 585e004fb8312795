package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/custodian/internal/config"
	"github.com/mrz1836/custodian/internal/output"
	custerr "github.com/mrz1836/custodian/pkg/errors"
)

// isolateEnv clears the variables initGlobals reads.
func isolateEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		config.EnvHome, config.EnvAddress, config.EnvAPIToken, config.EnvOutputFormat,
		config.EnvVerbose, config.EnvLogLevel, config.EnvHandleTTL, config.EnvDefaultDriver,
	} {
		t.Setenv(name, "")
	}
}

func newTestCommand(w *bytes.Buffer) *cobra.Command {
	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	cmd.SetOut(w)
	return cmd
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"plain error", errors.New("boom"), custerr.ExitGeneral},
		{"validation", custerr.ErrInvalidInput, custerr.ExitInput},
		{"authentication", custerr.ErrWrongPassword, custerr.ExitAuth},
		{"not found", custerr.ErrWalletNotFound, custerr.ExitNotFound},
		{"conflict", custerr.ErrWalletExists, custerr.ExitConflict},
		{"wrapped", custerr.Wrap(custerr.ErrKeyNotFound, "looking up"), custerr.ExitNotFound},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ExitCode(tc.err))
		})
	}
}

func TestInitGlobals_DefaultConfig(t *testing.T) {
	saveGlobals(t)
	isolateEnv(t)

	tmpDir := t.TempDir()
	homeDir = tmpDir

	err := initGlobals(newTestCommand(new(bytes.Buffer)))
	require.NoError(t, err)

	require.NotNil(t, cfg, "cfg should be set")
	require.NotNil(t, logger, "logger should be set")
	require.NotNil(t, formatter, "formatter should be set")

	assert.Equal(t, tmpDir, cfg.Home)
	assert.Equal(t, config.Defaults().Server.Address, cfg.Server.Address)
	assert.Equal(t, output.FormatJSON, formatter.Format(), "non-terminal output defaults to JSON")
}

func TestInitGlobals_ConfigFile(t *testing.T) {
	saveGlobals(t)
	isolateEnv(t)

	tmpDir := t.TempDir()
	c := config.Defaults()
	c.Home = tmpDir
	c.Server.Address = "127.0.0.1:9999"
	c.Output.DefaultFormat = "text"
	require.NoError(t, config.Save(c, config.Path(tmpDir)))

	homeDir = tmpDir
	require.NoError(t, initGlobals(newTestCommand(new(bytes.Buffer))))

	assert.Equal(t, "127.0.0.1:9999", cfg.Server.Address)
	assert.Equal(t, output.FormatText, formatter.Format())
}

func TestInitGlobals_Precedence(t *testing.T) {
	saveGlobals(t)
	isolateEnv(t)

	tmpDir := t.TempDir()
	c := config.Defaults()
	c.Server.Address = "127.0.0.1:1111"
	c.Output.DefaultFormat = "text"
	require.NoError(t, config.Save(c, config.Path(tmpDir)))

	// The environment beats the file.
	t.Setenv(config.EnvAddress, "127.0.0.1:2222")
	t.Setenv(config.EnvOutputFormat, "json")

	homeDir = tmpDir
	require.NoError(t, initGlobals(newTestCommand(new(bytes.Buffer))))
	assert.Equal(t, "127.0.0.1:2222", cfg.Server.Address)
	assert.Equal(t, output.FormatJSON, formatter.Format())

	// Flags beat the environment.
	outputFormat = "text"
	require.NoError(t, initGlobals(newTestCommand(new(bytes.Buffer))))
	assert.Equal(t, output.FormatText, formatter.Format())
}

func TestInitGlobals_HomeFromEnvironment(t *testing.T) {
	saveGlobals(t)
	isolateEnv(t)

	tmpDir := t.TempDir()
	t.Setenv(config.EnvHome, tmpDir)
	homeDir = ""

	require.NoError(t, initGlobals(newTestCommand(new(bytes.Buffer))))
	assert.Equal(t, tmpDir, cfg.Home)
	assert.Equal(t, filepath.Join(tmpDir, "custodian.token"), cfg.TokenPath())
}

func TestInitGlobals_VerboseFlag(t *testing.T) {
	saveGlobals(t)
	isolateEnv(t)

	homeDir = t.TempDir()
	verbose = true

	require.NoError(t, initGlobals(newTestCommand(new(bytes.Buffer))))
	assert.True(t, cfg.Output.Verbose)
	assert.Equal(t, "error", cfg.GetLoggingLevel())
	assert.Equal(t, config.LogLevelDebug, logger.Level())
}

func TestInitGlobals_VerboseFromEnvironment(t *testing.T) {
	saveGlobals(t)
	isolateEnv(t)

	homeDir = t.TempDir()
	t.Setenv(config.EnvVerbose, "true")
	t.Setenv(config.EnvLogLevel, "info")

	require.NoError(t, initGlobals(newTestCommand(new(bytes.Buffer))))
	assert.True(t, cfg.IsVerbose())
	assert.Equal(t, "info", cfg.GetLoggingLevel())
	assert.Equal(t, config.LogLevelDebug, logger.Level())
}

func TestInitGlobals_OutputFormatFromConfig(t *testing.T) {
	saveGlobals(t)
	isolateEnv(t)

	tmpDir := t.TempDir()
	c := config.Defaults()
	c.Output.DefaultFormat = "text"
	require.NoError(t, config.Save(c, config.Path(tmpDir)))

	homeDir = tmpDir
	require.NoError(t, initGlobals(newTestCommand(new(bytes.Buffer))))
	assert.Equal(t, "text", cfg.GetOutputFormat())
	assert.Equal(t, output.FormatText, formatter.Format())
}

func TestInitGlobals_BadConfigFile(t *testing.T) {
	saveGlobals(t)
	isolateEnv(t)

	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(config.Path(tmpDir), []byte("server: [unclosed"), 0o600))

	homeDir = tmpDir
	err := initGlobals(newTestCommand(new(bytes.Buffer)))
	require.Error(t, err)
}

func TestGetters(t *testing.T) {
	saveGlobals(t)
	isolateEnv(t)

	homeDir = t.TempDir()
	require.NoError(t, initGlobals(newTestCommand(new(bytes.Buffer))))

	assert.Same(t, cfg, Config())
	assert.Same(t, logger, Logger())
	assert.Same(t, formatter, Formatter())

	cleanup()
}

func TestCommandContext(t *testing.T) {
	c := config.Defaults()
	l := config.NullLogger()
	f := output.NewFormatter(output.FormatJSON, new(bytes.Buffer))

	ctx := NewCommandContext(c, l, f)
	assert.Same(t, c, ctx.Config)
	assert.Same(t, l, ctx.Logger)
	assert.Same(t, f, ctx.Formatter)
	assert.Nil(t, ctx.Client)
}

func TestExecute_UnknownCommand(t *testing.T) {
	saveGlobals(t)
	isolateEnv(t)

	_, err := runBare(t, "--home", t.TempDir(), "frobnicate")
	require.Error(t, err)
}
