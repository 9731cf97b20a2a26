package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/wastewise/internal/cli"
	"github.com/Veraticus/wastewise/internal/common"
	"github.com/Veraticus/wastewise/internal/model"
)

func depositCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "deposit <user-id> <weight-kg> <waste-type...>",
		Short: "Credit a user for a recycling deposit",
		Long: `Credit a user for a deposit. Only "Recyclable Plastics" earns credits,
at one credit per kilogram.`,
		Example: `  wastewise deposit alice 2.5 Recyclable Plastics`,
		Args:    cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			weight, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return common.NewUserError(fmt.Sprintf("weight %q is not a number", args[1]), err)
			}

			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			receipt, err := a.engine.Deposit(cmd.Context(), model.Deposit{
				UserID:    args[0],
				WasteType: strings.Join(args[2:], " "),
				WeightKg:  weight,
			})
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), receipt)
			}
			return cli.RenderReceipt(cmd.OutOrStdout(), receipt)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the receipt as JSON")
	return cmd
}

func balanceCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "balance <user-id>",
		Short: "Show a user's credit balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			balance, err := a.engine.Balance(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), model.CreditAccount{UserID: args[0], Balance: balance})
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s %.2f credits\n", cli.InfoStyle.Render(args[0]), balance)
			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the balance as JSON")
	return cmd
}
