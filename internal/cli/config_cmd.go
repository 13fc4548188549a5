package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/evcraddock/prospector/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage credentials and the server connection",
	}

	cmd.AddCommand(
		newLoginCmd(),
		newLogoutCmd(),
		newStatusCmd(),
		newSetPasswordCmd(),
		newDeletePasswordCmd(),
	)

	return cmd
}

func newSetPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-password",
		Short: "Store the warehouse password in the OS keyring",
		Long:  "Reads the warehouse password from stdin and stores it in the OS keyring for the configured user and account.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSetPassword(bufio.NewReader(os.Stdin))
		},
	}
}

func runSetPassword(in *bufio.Reader) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	fmt.Printf("Password for %s: ", config.KeyringAccount(cfg.Snowflake))
	password, err := in.ReadString('\n')
	if err != nil && password == "" {
		return fmt.Errorf("reading input: %w", err)
	}

	if err := config.SetWarehousePassword(cfg.Snowflake, strings.TrimSpace(password)); err != nil {
		return err
	}

	fmt.Println("✓ Password stored in keyring.")
	return nil
}

func newDeletePasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete-password",
		Short: "Remove the warehouse password from the OS keyring",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			if err := config.DeleteWarehousePassword(cfg.Snowflake); err != nil {
				return err
			}
			fmt.Println("✓ Password removed from keyring.")
			return nil
		},
	}
}
