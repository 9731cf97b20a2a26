package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/wastewise/internal/cli"
	"github.com/Veraticus/wastewise/internal/common"
	"github.com/Veraticus/wastewise/internal/model"
)

func feedbackCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feedback",
		Short: "Record collector feedback on a bin or a manifest",
		Long: `Record a collector's verdict. Status is Valid or Contaminated.

Valid feedback on a bin means it was collected, so its fill level drops to zero.
Feedback on a manifest is only logged for analytics.`,
		Example: `  wastewise feedback bin bin-A valid
  wastewise feedback manifest 3f1c... contaminated`,
	}

	cmd.AddCommand(feedbackTargetCmd(model.FeedbackKindBin))
	cmd.AddCommand(feedbackTargetCmd(model.FeedbackKindManifest))
	return cmd
}

func feedbackTargetCmd(kind model.FeedbackKind) *cobra.Command {
	var at string

	cmd := &cobra.Command{
		Use:   fmt.Sprintf("%s <%s-id> <valid|contaminated>", kind, kind),
		Short: fmt.Sprintf("Record feedback on a %s", kind),
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := parseStatus(args[1])
			if err != nil {
				return err
			}
			var ts time.Time
			if at != "" {
				if ts, err = time.Parse(time.RFC3339, at); err != nil {
					return common.NewUserError("--at must be an RFC3339 timestamp", err)
				}
			}

			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if kind == model.FeedbackKindBin {
				err = a.engine.RecordBinFeedback(cmd.Context(), args[0], status, ts)
			} else {
				err = a.engine.RecordManifestFeedback(cmd.Context(), args[0], status, ts)
			}
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Recorded %s feedback for %s %s", status, kind, args[0])))
			return err
		},
	}

	cmd.Flags().StringVar(&at, "at", "", "Timestamp of the verdict (RFC3339, default now)")
	return cmd
}

func parseStatus(s string) (model.FeedbackStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "valid":
		return model.FeedbackValid, nil
	case "contaminated":
		return model.FeedbackContaminated, nil
	default:
		return "", common.NewUserError(fmt.Sprintf("unknown collector status %q: use valid or contaminated", s), nil)
	}
}
