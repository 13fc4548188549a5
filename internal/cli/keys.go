package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/evcraddock/prospector/internal/auth"
)

func newKeysCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage API keys for the server",
		Long:  "Create, list and delete the API keys that authorize comment updates and analyst calls. Keys live in the local database used by serve.",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   `create "name"`,
			Short: "Create an API key",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runKeysCreate(strings.Join(args, " "))
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List API keys",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runKeysList()
			},
		},
		&cobra.Command{
			Use:   "delete <id>",
			Short: "Delete an API key",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runKeysDelete(args[0])
			},
		},
	)

	return cmd
}

func openKeyStore() (*auth.APIKeyStore, func(), error) {
	database, err := openDB()
	if err != nil {
		return nil, nil, err
	}
	return auth.NewAPIKeyStore(database), func() { closeDB(database) }, nil
}

func runKeysCreate(name string) error {
	store, release, err := openKeyStore()
	if err != nil {
		return err
	}
	defer release()

	raw, key, err := store.Create(strings.TrimSpace(name))
	if err != nil {
		return err
	}

	if isJSON() {
		return printJSON(map[string]interface{}{"key": raw, "api_key": key})
	}
	fmt.Printf("✓ API key %q created (#%d).\n\n  %s\n\nStore it now; it will not be shown again.\n", key.Name, key.ID, raw)
	return nil
}

func runKeysList() error {
	store, release, err := openKeyStore()
	if err != nil {
		return err
	}
	defer release()

	keys, err := store.List()
	if err != nil {
		return err
	}

	if isJSON() {
		return printJSON(nonNil(keys))
	}
	return writeKeyTable(os.Stdout, keys)
}

func runKeysDelete(arg string) error {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid key ID: %s", arg)
	}

	store, release, err := openKeyStore()
	if err != nil {
		return err
	}
	defer release()

	if err := store.Delete(id); err != nil {
		return err
	}
	fmt.Printf("✓ API key #%d deleted.\n", id)
	return nil
}
