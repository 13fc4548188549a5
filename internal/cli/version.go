package cli

import (
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags.
var Version = "dev"

type versionInfo struct {
	Version string `json:"version"`
	Go      string `json:"go"`
	Drivers string `json:"drivers"`
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version and supported warehouse drivers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVersion(cmd.OutOrStdout())
		},
	}
}

func runVersion(out io.Writer) error {
	info := versionInfo{Version: Version, Go: runtime.Version(), Drivers: "sqlite3, snowflake"}
	if isJSON() {
		return printJSON(info)
	}
	_, err := fmt.Fprintf(out, "prospector %s (%s; warehouse drivers: %s)\n", info.Version, info.Go, info.Drivers)
	return err
}
