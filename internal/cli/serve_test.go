package cli

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/custodian/internal/client"
	"github.com/mrz1836/custodian/internal/config"
	"github.com/mrz1836/custodian/internal/token"
)

func TestServe_WritesNetAndTokenFiles(t *testing.T) {
	saveGlobals(t)
	isolateEnv(t)

	home := t.TempDir()
	c := config.Defaults()
	c.Home = home
	c.Server.Address = "127.0.0.1:0"
	c.Storage.Drivers = []string{"memory"}
	c.Storage.DefaultDriver = "memory"
	c.Security.ScryptWorkFactor = 10
	c.Security.MemoryLock = false
	c.Logging.Level = "off"
	require.NoError(t, config.Save(c, config.Path(home)))

	resetFlags()
	rootCmd.SetArgs([]string{"--home", home, "serve"})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- rootCmd.ExecuteContext(ctx) }()

	netPath := c.NetPath()
	var addr string
	require.Eventually(t, func() bool {
		data, err := os.ReadFile(netPath) //nolint:gosec // test path
		if err != nil {
			return false
		}
		addr = strings.TrimSpace(string(data))
		return addr != ""
	}, 5*time.Second, 20*time.Millisecond)

	tok, err := token.Load(c.TokenPath())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(tok, token.APIPrefix))

	cl, err := client.New(client.Config{Endpoint: addr, Token: tok, Timeout: 5 * time.Second})
	require.NoError(t, err)
	_, err = cl.Health(context.Background())
	require.NoError(t, err)

	wallets, err := cl.ListWallets(context.Background())
	require.NoError(t, err)
	assert.Empty(t, wallets)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not stop")
	}

	_, err = os.Stat(netPath)
	assert.True(t, os.IsNotExist(err), "net file is removed on shutdown")
}

func TestVersion(t *testing.T) {
	env := setupTestEnv(t)

	var res versionResult
	env.mustRun(t, &res, "version")
	require.NotNil(t, res.Daemon)
	assert.True(t, res.Compatible)
	assert.Empty(t, res.DaemonError)
	assert.Empty(t, res.Skew, "client and daemon share a build")
}

func TestVersion_DaemonUnreachable(t *testing.T) {
	saveGlobals(t)
	isolateEnv(t)

	out, err := runBare(t, "--home", t.TempDir(), "--endpoint", "127.0.0.1:1", "--token", testAPIToken, "-o", "text", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "client: ")
	assert.Contains(t, out, "daemon: unreachable")
}
