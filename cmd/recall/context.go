package main

import (
	"fmt"
	"strings"

	"github.com/sandevgo/recall/internal/core"
	"github.com/sandevgo/recall/pkg/log"
	"github.com/spf13/cobra"
)

var (
	contextUser       string
	contextChannel    string
	contextNoSemantic bool
)

var contextCmd = &cobra.Command{
	Use:          "context [message]",
	Short:        "Print the context Recall would use for a message",
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var flushLog func()
		ctx, flushLog = setupLogger(ctx)
		defer flushLog()

		eng := initEngine(ctx)
		defer eng.db.Close()

		message := strings.Join(args, " ")
		ctx = log.WithConversation(ctx, contextUser, contextChannel)

		items, err := eng.retriever.GetContextWithOptions(ctx, contextUser, message, contextChannel, core.RetrievalOptions{
			DisableSemantic: contextNoSemantic,
		})
		if err != nil {
			return fmt.Errorf("failed to retrieve context: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(items) == 0 {
			fmt.Fprintln(out, "no context for this message")
			return nil
		}

		for _, item := range items {
			fmt.Fprintf(out, "%-8s priority=%.2f similarity=%.2f %s\n",
				item.Kind, item.Priority, item.Similarity(), item.Timestamp.Format("2006-01-02 15:04"))
		}
		fmt.Fprintln(out)
		fmt.Fprintln(out, eng.retriever.FormatContext(message, items))
		return nil
	},
}

func init() {
	contextCmd.Flags().StringVarP(&contextUser, "user", "u", "", "user id to retrieve history for")
	contextCmd.Flags().StringVarP(&contextChannel, "channel", "c", "", "restrict history to one channel")
	contextCmd.Flags().BoolVar(&contextNoSemantic, "no-semantic", false, "skip long-term semantic retrieval")
	_ = contextCmd.MarkFlagRequired("user")

	rootCmd.AddCommand(contextCmd)
}
