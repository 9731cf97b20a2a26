package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/wastewise/internal/cli"
	"github.com/Veraticus/wastewise/internal/engine"
	"github.com/Veraticus/wastewise/internal/model"
)

func processCmd() *cobra.Command {
	var (
		binID      string
		file       string
		asJSON     bool
		noProgress bool
	)

	cmd := &cobra.Command{
		Use:   "process --bin <bin-id> [items...]",
		Short: "Classify a batch of waste items into bag recipes",
		Long: `Classify a free-text list of waste items for a bin.

Items come from the positional arguments (one item per argument), from --file
(.txt or .json), or from standard input when the only argument is "-".
The bin's fill level grows by the batch weight and a manifest is stored.`,
		Example: `  # Classify items typed on the command line
  wastewise process --bin bin-A "2x water bottle 500ml" "banana peel"

  # Classify a receipt file
  wastewise process --bin bin-C --file receipt.txt

  # Pipe a list in
  cat list.txt | wastewise process --bin bin-B -`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			handler := cli.NewInterruptHandler(cmd.ErrOrStderr())
			ctx := handler.HandleInterrupts(cmd.Context())
			defer handler.Stop()

			var opts []engine.BatchOption
			if !noProgress && !asJSON {
				opts = append(opts, engine.WithProgress(cli.NewProgressReporter(cmd.ErrOrStderr(), "Classifying items...")))
			}

			var result *model.BatchResult
			if file != "" {
				result, err = a.engine.ProcessFile(ctx, binID, file, opts...)
			} else {
				var text string
				if text, err = batchText(cmd.InOrStdin(), args); err != nil {
					return err
				}
				result, err = a.engine.ProcessBatch(ctx, binID, text, opts...)
			}
			if err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), result)
			}
			return cli.RenderBatch(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().StringVarP(&binID, "bin", "b", "", "Bin the batch is deposited into (required)")
	cmd.Flags().StringVarP(&file, "file", "f", "", "Read items from a .txt or .json file")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the batch result as JSON")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "Hide the progress bar")
	_ = cmd.MarkFlagRequired("bin")

	return cmd
}

// batchText joins positional items into one newline-separated batch, or reads
// stdin when the only argument is "-".
func batchText(stdin io.Reader, args []string) (string, error) {
	if len(args) == 1 && args[0] == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}
	return strings.Join(args, "\n"), nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
