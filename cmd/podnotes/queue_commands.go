package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"podnotes/internal/config"
	"podnotes/internal/ledger"
	"podnotes/internal/textutil"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage tracked episodes",
	}
	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueShowCommand(ctx))
	queueCmd.AddCommand(newQueueRetryCommand(ctx))
	queueCmd.AddCommand(newQueueRemoveCommand(ctx))
	queueCmd.AddCommand(newQueueHealthCommand(ctx))
	return queueCmd
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var statusFlag string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tracked episodes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *ledger.Store) error {
				var statuses []ledger.Status
				if trimmed := strings.TrimSpace(statusFlag); trimmed != "" {
					status, ok := ledger.ParseStatus(trimmed)
					if !ok {
						return fmt.Errorf("unknown status %q", trimmed)
					}
					statuses = append(statuses, status)
				}
				episodes, err := store.List(cmd.Context(), statuses...)
				if err != nil {
					return err
				}
				if len(episodes) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No episodes tracked")
					return nil
				}

				rows := make([][]string, 0, len(episodes))
				for _, episode := range episodes {
					rows = append(rows, []string{
						strconv.FormatInt(episode.ID, 10),
						string(episode.Status),
						textutil.Truncate(displayTitle(episode), 48),
						formatDuration(episode.DurationSeconds),
						episode.CreatedAt.Local().Format("2006-01-02 15:04"),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Status", "Title", "Duration", "Discovered"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&statusFlag, "status", "", "Only list episodes with this status")
	return cmd
}

func newQueueShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one episode in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseEpisodeID(args[0])
			if err != nil {
				return err
			}
			return ctx.withStore(func(cfg *config.Config, store *ledger.Store) error {
				episode, err := store.GetByID(cmd.Context(), id)
				if err != nil {
					return err
				}
				if episode == nil {
					return fmt.Errorf("episode %d not found", id)
				}
				printEpisode(cmd, episode)
				return nil
			})
		},
	}
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "retry [id...]",
		Short: "Move failed episodes back to discovered",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !all && len(args) == 0 {
				return fmt.Errorf("provide episode ids or --all")
			}
			ids := make([]int64, 0, len(args))
			for _, arg := range args {
				id, err := parseEpisodeID(arg)
				if err != nil {
					return err
				}
				ids = append(ids, id)
			}
			return ctx.withStore(func(cfg *config.Config, store *ledger.Store) error {
				affected, err := store.RetryFailed(cmd.Context(), ids...)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d episode(s) queued for retry\n", affected)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Retry every failed episode")
	return cmd
}

func newQueueRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove an episode record, surrendering its claim",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseEpisodeID(args[0])
			if err != nil {
				return err
			}
			return ctx.withStore(func(cfg *config.Config, store *ledger.Store) error {
				removed, err := store.Remove(cmd.Context(), id)
				if err != nil {
					return err
				}
				if !removed {
					fmt.Fprintf(cmd.OutOrStdout(), "Episode %d not found\n", id)
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Episode %d removed; its link can be claimed again\n", id)
				return nil
			})
		},
	}
}

func newQueueHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Summarize ledger state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *ledger.Store) error {
				health, err := store.Health(cmd.Context())
				if err != nil {
					return err
				}
				lastCheck, err := store.LastCheckTime(cmd.Context())
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Total episodes:   %d\n", health.Total)
				fmt.Fprintf(out, "Waiting:          %d\n", health.Discovered)
				fmt.Fprintf(out, "Processing:       %d\n", health.Processing)
				fmt.Fprintf(out, "Done:             %d\n", health.Done)
				fmt.Fprintf(out, "Failed:           %d\n", health.Failed)
				if lastCheck.IsZero() {
					fmt.Fprintln(out, "Last source poll: never")
				} else {
					fmt.Fprintf(out, "Last source poll: %s\n", lastCheck.Local().Format(time.RFC1123))
				}
				return nil
			})
		},
	}
}

func printEpisode(cmd *cobra.Command, episode *ledger.Episode) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "ID:          %d\n", episode.ID)
	fmt.Fprintf(out, "Status:      %s\n", episode.Status)
	fmt.Fprintf(out, "Title:       %s\n", displayTitle(episode))
	if episode.PodcastName != "" {
		fmt.Fprintf(out, "Podcast:     %s\n", episode.PodcastName)
	}
	fmt.Fprintf(out, "URL:         %s\n", episode.URL)
	if episode.AudioURL != "" {
		fmt.Fprintf(out, "Audio:       %s\n", episode.AudioURL)
	}
	if episode.DurationSeconds > 0 {
		fmt.Fprintf(out, "Duration:    %s\n", formatDuration(episode.DurationSeconds))
	}
	if episode.TaskID != "" {
		fmt.Fprintf(out, "Task:        %s\n", episode.TaskID)
	}
	if episode.NotePath != "" {
		fmt.Fprintf(out, "Note:        %s\n", episode.NotePath)
	}
	if episode.MirrorPath != "" {
		fmt.Fprintf(out, "Mirror:      %s\n", episode.MirrorPath)
	}
	if episode.Degraded {
		fmt.Fprintln(out, "Degraded:    yes")
	}
	if episode.ErrorMessage != "" {
		fmt.Fprintf(out, "Error:       %s\n", episode.ErrorMessage)
	}
	if episode.FailedAt != nil {
		fmt.Fprintf(out, "Failed at:   %s\n", episode.FailedAt.Local().Format(time.RFC1123))
	}
	if episode.ProcessedAt != nil {
		fmt.Fprintf(out, "Processed:   %s\n", episode.ProcessedAt.Local().Format(time.RFC1123))
	}
	fmt.Fprintf(out, "Discovered:  %s\n", episode.CreatedAt.Local().Format(time.RFC1123))
}

func displayTitle(episode *ledger.Episode) string {
	if title := strings.TrimSpace(episode.Title); title != "" {
		return title
	}
	return episode.URL
}

func formatDuration(seconds int) string {
	if seconds <= 0 {
		return "-"
	}
	if seconds >= 3600 {
		return fmt.Sprintf("%d:%02d:%02d", seconds/3600, seconds%3600/60, seconds%60)
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

func parseEpisodeID(arg string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid episode id %q", arg)
	}
	return id, nil
}
