package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func newLogoutCmd() *cobra.Command {
	var forgetServer bool

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored API key",
		Long:  "Removes the API key used by comment and ask. With --forget-server the server URL and the remote default are cleared too.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogout(cmd.OutOrStdout(), forgetServer)
		},
	}

	cmd.Flags().BoolVar(&forgetServer, "forget-server", false, "also clear the saved server URL and remote default")

	return cmd
}

func runLogout(out io.Writer, forgetServer bool) error {
	cfg, err := loadCLIConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	server := cfg.ServerURL
	if server == "" {
		server = getServerURL()
	}

	if cfg.APIKey == "" && !forgetServer {
		fmt.Fprintf(out, "Not logged in to %s.\n", server)
		return nil
	}

	cfg.APIKey = ""
	if forgetServer {
		cfg.ServerURL = ""
		cfg.Remote = false
	}
	if err := saveCLIConfig(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Fprintf(out, "✓ Logged out of %s. API key removed.\n", server)
	if forgetServer {
		fmt.Fprintln(out, "  Server URL forgotten; read commands use the warehouse.")
	}
	return nil
}
