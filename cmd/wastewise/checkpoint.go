package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/wastewise/internal/cli"
	"github.com/Veraticus/wastewise/internal/common"
	"github.com/Veraticus/wastewise/internal/config"
	"github.com/Veraticus/wastewise/internal/storage"
)

func checkpointCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkpoint",
		Short: "Manage database checkpoints",
		Long: `Create, list, restore, and delete database checkpoints.

Checkpoints snapshot credits, classification history, feedback and manifests
so they can be rolled back. They need storage.backend = sqlite.`,
		Example: `  wastewise checkpoint create --tag before-audit
  wastewise checkpoint list
  wastewise checkpoint restore before-audit
  wastewise checkpoint delete before-audit`,
	}

	cmd.AddCommand(createCheckpointCmd())
	cmd.AddCommand(listCheckpointsCmd())
	cmd.AddCommand(restoreCheckpointCmd())
	cmd.AddCommand(deleteCheckpointCmd())
	return cmd
}

// withCheckpoints opens the sqlite database and hands fn a checkpoint manager.
func withCheckpoints(ctx context.Context, fn func(*storage.CheckpointManager) error) error {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}
	if cfg.Storage.Backend != config.BackendSQLite {
		return common.NewUserError("checkpoints require storage.backend = sqlite", nil)
	}

	_, store, err := openStorage(ctx, cfg, slog.Default())
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	manager, err := store.NewCheckpointManager()
	if err != nil {
		return fmt.Errorf("failed to create checkpoint manager: %w", err)
	}
	return fn(manager)
}

func createCheckpointCmd() *cobra.Command {
	var tag, description string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new checkpoint",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withCheckpoints(cmd.Context(), func(m *storage.CheckpointManager) error {
				info, err := m.Create(cmd.Context(), tag, description)
				if err != nil {
					return fmt.Errorf("failed to create checkpoint: %w", err)
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s Created checkpoint %s (%s)\n",
					cli.SuccessStyle.Render(cli.SuccessIcon),
					cli.InfoStyle.Render(info.ID),
					cli.FormatFileSize(info.FileSize))
				return err
			})
		},
	}

	cmd.Flags().StringVarP(&tag, "tag", "t", "", "Checkpoint tag/name (auto-generated if not provided)")
	cmd.Flags().StringVarP(&description, "description", "d", "", "Description of the checkpoint")
	return cmd
}

func listCheckpointsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all checkpoints",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withCheckpoints(cmd.Context(), func(m *storage.CheckpointManager) error {
				checkpoints, err := m.List(cmd.Context())
				if err != nil {
					return fmt.Errorf("failed to list checkpoints: %w", err)
				}
				return renderCheckpoints(cmd.OutOrStdout(), checkpoints)
			})
		},
	}
}

func renderCheckpoints(w io.Writer, checkpoints []storage.CheckpointInfo) error {
	if len(checkpoints) == 0 {
		_, err := fmt.Fprintln(w, cli.SubtitleStyle.Render("No checkpoints found."))
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join([]string{
		cli.TableHeaderStyle.Render("NAME"),
		cli.TableHeaderStyle.Render("CREATED"),
		cli.TableHeaderStyle.Render("SIZE"),
		cli.TableHeaderStyle.Render("BATCHES"),
		cli.TableHeaderStyle.Render("FEEDBACK"),
		cli.TableHeaderStyle.Render("ACCOUNTS"),
		cli.TableHeaderStyle.Render("TYPE"),
	}, "\t"))
	for _, cp := range checkpoints {
		typeLabel := "manual"
		if cp.IsAuto {
			typeLabel = "auto"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
			cli.InfoStyle.Render(cp.ID),
			cp.CreatedAt.Local().Format(time.DateTime),
			cli.FormatFileSize(cp.FileSize),
			cp.RowCounts["classification_history"],
			cp.RowCounts["feedback"],
			cp.RowCounts["credits"],
			cli.SubtitleStyle.Render(typeLabel))
	}
	return tw.Flush()
}

func restoreCheckpointCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "restore <checkpoint-id>",
		Short: "Restore database from a checkpoint",
		Long: `Replace the current database with a checkpoint. An automatic checkpoint of
the current state is taken first.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			return withCheckpoints(cmd.Context(), func(m *storage.CheckpointManager) error {
				if !force && !confirm(cmd, fmt.Sprintf("This will replace your current database with checkpoint %s.", id)) {
					_, err := fmt.Fprintln(cmd.OutOrStdout(), cli.SubtitleStyle.Render("Restore cancelled."))
					return err
				}

				if err := m.AutoCheckpoint(cmd.Context(), "restore"); err != nil {
					return err
				}
				if err := m.Restore(cmd.Context(), id); err != nil {
					return fmt.Errorf("failed to restore checkpoint: %w", err)
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s Restored from checkpoint %s\n",
					cli.SuccessStyle.Render(cli.SuccessIcon), cli.InfoStyle.Render(id))
				return err
			})
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip confirmation prompt")
	return cmd
}

func deleteCheckpointCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete <checkpoint-id>",
		Short: "Delete a checkpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			return withCheckpoints(cmd.Context(), func(m *storage.CheckpointManager) error {
				if !force && !confirm(cmd, fmt.Sprintf("This will permanently delete checkpoint %s.", id)) {
					_, err := fmt.Fprintln(cmd.OutOrStdout(), cli.SubtitleStyle.Render("Deletion cancelled."))
					return err
				}
				if err := m.Delete(cmd.Context(), id); err != nil {
					return fmt.Errorf("failed to delete checkpoint: %w", err)
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s Deleted checkpoint %s\n",
					cli.SuccessStyle.Render(cli.SuccessIcon), cli.InfoStyle.Render(id))
				return err
			})
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip confirmation prompt")
	return cmd
}

func confirm(cmd *cobra.Command, warning string) bool {
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\nContinue? (y/N) ", cli.WarningStyle.Render(cli.WarningIcon), warning)
	line, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(line)), "y")
}
