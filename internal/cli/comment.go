package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newCommentCmd() *cobra.Command {
	var city string

	cmd := &cobra.Command{
		Use:   `comment <name> "text"`,
		Short: "Set the comment on a company",
		Long:  "Set the COMMENTAIRES field of a company through the server. When several companies share the name, pass --city. An empty text clears the comment.",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runComment(cmd.Context(), args[0], strings.Join(args[1:], " "), city)
		},
	}

	cmd.Flags().StringVar(&city, "city", "", "city (VILLE) of the company when its name is not unique")

	return cmd
}

func runComment(ctx context.Context, name, text, city string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("company name is required")
	}

	c := newAPIClient()

	updated, err := c.UpdateComment(ctx, name, strings.TrimSpace(city), strings.TrimSpace(text))
	if err != nil {
		return err
	}

	if isJSON() {
		return printJSON(updated)
	}

	if updated.Comment == nil {
		fmt.Printf("✓ Comment cleared on %s (%s).\n", updated.Name, dash(updated.City))
		return nil
	}
	fmt.Printf("✓ Comment saved on %s (%s).\n  %s\n", updated.Name, dash(updated.City), updated.CommentText())
	return nil
}
