package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func newLoginCmd() *cobra.Command {
	var server, key string
	var remote bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store the server URL and an API key",
		Long:  "Saves the server URL and an API key (from 'prospector keys create' on the server host) for the comment and ask commands.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if key == "" {
				fmt.Print("Paste your API key: ")
				line, err := bufio.NewReader(os.Stdin).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("reading input: %w", err)
				}
				key = line
			}
			return runLogin(cmd.OutOrStdout(), server, key, remote)
		},
	}

	cmd.Flags().StringVar(&server, "server", "", "server URL (default: from config or http://localhost:8080)")
	cmd.Flags().StringVar(&key, "key", "", "API key (default: read from stdin)")
	cmd.Flags().BoolVar(&remote, "remote", false, "also query this server for options, search, export and map by default")

	return cmd
}

func runLogin(out io.Writer, serverFlag, key string, remote bool) error {
	key = strings.TrimSpace(key)
	if err := validateAPIKey(key); err != nil {
		return err
	}

	// Load existing config to preserve other fields
	cfg, err := loadCLIConfig()
	if err != nil {
		cfg = CLIConfig{}
	}

	cfg.APIKey = key
	if serverFlag != "" {
		cfg.ServerURL = strings.TrimRight(serverFlag, "/")
	}
	if remote {
		cfg.Remote = true
	}

	if err := saveCLIConfig(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	server := cfg.ServerURL
	if server == "" {
		server = getServerURL()
	}
	fmt.Fprintf(out, "✓ API key saved for %s.\n", server)
	if cfg.Remote {
		fmt.Fprintln(out, "  Read commands will query this server.")
	}
	return nil
}

// validateAPIKey checks that the key is non-empty and has the expected prefix.
func validateAPIKey(key string) error {
	if key == "" {
		return fmt.Errorf("no API key provided")
	}
	if !strings.HasPrefix(key, "pk_") {
		return fmt.Errorf("invalid API key format (should start with pk_)")
	}
	return nil
}
