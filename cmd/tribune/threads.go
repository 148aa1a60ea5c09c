package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/nasermirzaei89/tribune"
	"github.com/nasermirzaei89/tribune/discuss"
	"github.com/spf13/cobra"
)

func newThreadsCmd() *cobra.Command {
	var parentID string

	threadsCmd := &cobra.Command{
		Use:   "threads <post-id>",
		Short: "Print the comment threads of a post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := tribune.LoadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			app, err := tribune.NewApp(ctx, cfg)
			if err != nil {
				return fmt.Errorf("failed to create app: %w", err)
			}

			defer func() {
				err := app.Close()
				if err != nil {
					slog.ErrorContext(ctx, "failed to close app", "error", err)
				}
			}()

			threads, err := app.Discuss.ListThreads(ctx, discuss.ListCommentsParams{
				PostID:   args[0],
				ParentID: parentID,
			})
			if err != nil {
				return fmt.Errorf("failed to list threads: %w", err)
			}

			return printThreads(cmd.OutOrStdout(), threads, 0)
		},
	}

	threadsCmd.Flags().StringVar(&parentID, "parent", "", "Print the replies of this comment only")

	return threadsCmd
}

func printThreads(w io.Writer, threads []*discuss.Thread, depth int) error {
	indent := strings.Repeat("  ", depth)

	for _, thread := range threads {
		comment := thread.Comment

		_, err := fmt.Fprintf(
			w,
			"%s%s [+%d/-%d %s] %s: %s\n",
			indent,
			comment.ID,
			comment.VotesUpCount,
			comment.VotesDownCount,
			comment.Rating,
			comment.AuthorID,
			strings.ReplaceAll(comment.Content, "\n", " "),
		)
		if err != nil {
			return fmt.Errorf("failed to write comment: %w", err)
		}

		err = printThreads(w, thread.Replies, depth+1)
		if err != nil {
			return err
		}
	}

	return nil
}
