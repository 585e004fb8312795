package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mrz1836/custodian/internal/version"
)

// versionCmd prints build information for the CLI and, when reachable, the
// daemon.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show client and daemon versions",
	Long: `Show the build of this binary and of the running daemon, and warn when
they differ or the daemon does not speak this client's API version.`,
	Example: `  custodian version -o json`,
	Args:    cobra.NoArgs,
	RunE:    runVersion,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	versionCmd.GroupID = groupDaemon
	rootCmd.AddCommand(versionCmd)
}

// versionResult is the output of the version command.
type versionResult struct {
	Client      version.Info  `json:"client"`
	Daemon      *version.Info `json:"daemon,omitempty"`
	DaemonError string        `json:"daemon_error,omitempty"`
	Skew        string        `json:"skew,omitempty"`
	Compatible  bool          `json:"compatible"`
}

func (r versionResult) Text() string {
	s := "client: " + r.Client.String()
	if r.Daemon == nil {
		return s + "\ndaemon: unreachable (" + r.DaemonError + ")"
	}
	s += "\ndaemon: " + r.Daemon.String()
	if !r.Compatible {
		s += fmt.Sprintf("\nwarning: daemon does not support API %s", version.APIVersion)
	}
	if r.Skew != "" {
		s += "\nwarning: " + r.Skew
	}
	return s
}

func skewMessage(s version.Skew) string {
	switch s {
	case version.SkewClientOlder:
		return "client is older than the daemon"
	case version.SkewClientNewer:
		return "client is newer than the daemon"
	case version.SkewNone:
		return ""
	}
	return ""
}

func runVersion(cmd *cobra.Command, _ []string) error {
	result := versionResult{Client: version.Get()}

	cl, err := newDaemonClient(cfg)
	if err == nil {
		ctx, cancel := contextWithTimeout(cmd, requestTimeout)
		defer cancel()

		v, verErr := cl.Versions(ctx)
		err = verErr
		if verErr == nil {
			result.Daemon = &v.Build
			result.Compatible = v.Build.Supports(version.APIVersion)
			result.Skew = skewMessage(version.CompareBuilds(result.Client, v.Build))
		}
	}
	if err != nil {
		result.DaemonError = err.Error()
	}
	return formatter.Print(result)
}
