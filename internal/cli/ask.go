package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
)

func newAskCmd() *cobra.Command {
	var plain bool

	cmd := &cobra.Command{
		Use:   `ask "question"`,
		Short: "Ask the analyst a question about the company data",
		Long:  "Send a natural-language question to the analyst through the server and print its answer, suggestions and generated SQL.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(cmd.Context(), strings.Join(args, " "), plain)
		},
	}

	cmd.Flags().BoolVar(&plain, "plain", false, "print the answer without markdown rendering")

	return cmd
}

func runAsk(ctx context.Context, question string, plain bool) error {
	question = strings.TrimSpace(question)
	if question == "" {
		return fmt.Errorf("question is required")
	}

	c := newAPIClient()

	reply, err := c.Ask(ctx, nil, question)
	if err != nil {
		return err
	}

	if isJSON() {
		return printJSON(reply)
	}

	fmt.Print(renderMarkdown(reply.Text, plain))
	if len(reply.Suggestions) > 0 {
		fmt.Println("Suggestions:")
		for _, s := range reply.Suggestions {
			fmt.Printf("  - %s\n", s)
		}
	}
	if reply.SQL != "" {
		fmt.Printf("\nSQL:\n%s\n", reply.SQL)
	}
	return nil
}

// renderMarkdown renders analyst text for the terminal, falling back to the
// raw text when rendering is disabled or fails.
func renderMarkdown(text string, plain bool) string {
	if plain || text == "" {
		return text + "\n"
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return text + "\n"
	}
	out, err := r.Render(text)
	if err != nil {
		return text + "\n"
	}
	return out
}
