package commands

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"snap2sell/chatbot"

	"github.com/spf13/cobra"
)

func printReply(w io.Writer, m chatbot.Message) {
	fmt.Fprintf(w, "🤖 %s\n", m.Text)
	if len(m.Sources) > 0 {
		dimColor.Fprintf(w, "   sources: %s\n", strings.Join(m.Sources, ", "))
	}
}

func newAskCommand(rt *runtime) *cobra.Command {
	var stats bool
	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask the agriculture assistant (interactive without a question)",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			ctx := cmd.Context()
			if !rt.app.Session.IsAuthenticated(ctx) {
				return failure(out, "Not logged in")
			}
			if stats {
				kb, err := rt.app.Chatbot.KBStats(ctx)
				if err != nil {
					return apiFailure(out, err, "Failed to load knowledge base stats")
				}
				return printJSON(out, kb)
			}

			conv := chatbot.NewConversation(rt.app.Chatbot, rt.log)
			if len(args) > 0 {
				if reply, ok := conv.Send(ctx, strings.Join(args, " ")); ok {
					printReply(out, reply)
				}
				return nil
			}

			printReply(out, conv.Messages()[0])
			scanner := bufio.NewScanner(cmd.InOrStdin())
			for {
				fmt.Fprint(out, "> ")
				if !scanner.Scan() {
					fmt.Fprintln(out)
					return scanner.Err()
				}
				line := strings.TrimSpace(scanner.Text())
				if line == "exit" || line == "quit" {
					return nil
				}
				if reply, ok := conv.Send(ctx, line); ok {
					printReply(out, reply)
				}
			}
		},
	}
	cmd.Flags().BoolVar(&stats, "stats", false, "show knowledge base statistics instead")
	return cmd
}

func newSuggestionsCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "suggestions",
		Short: "Show suggested assistant questions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			list, err := rt.app.Chatbot.Suggestions(cmd.Context())
			if err != nil {
				return apiFailure(out, err, "Failed to load suggestions")
			}
			for i, s := range list {
				fmt.Fprintf(out, "%2d. %s\n", i+1, s)
			}
			return nil
		},
	}
}
