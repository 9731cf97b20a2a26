package main

import (
	"fmt"
	"log/slog"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/wastewise/internal/cli"
	"github.com/Veraticus/wastewise/internal/config"
	"github.com/Veraticus/wastewise/internal/knowledge"
)

func knowledgeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "knowledge",
		Short: "Inspect the packaging knowledge graph",
		Long: `Inspect the keyword graph consulted before the classification oracle.
The built-in graph is used unless knowledge.path points at a YAML or JSON file.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List every keyword and its classification",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openKnowledge()
			if err != nil {
				return err
			}
			g := store.Graph()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, strings.Join([]string{
				cli.TableHeaderStyle.Render("KEYWORD"),
				cli.TableHeaderStyle.Render("CATEGORY"),
				cli.TableHeaderStyle.Render("STREAM"),
				cli.TableHeaderStyle.Render("RECYCLABILITY"),
				cli.TableHeaderStyle.Render("WEIGHT (KG)"),
			}, "\t"))
			for _, kw := range g.Keywords() {
				rec, _ := g.Lookup(kw)
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2f\n", kw, rec.Category, rec.Stream, rec.Recyclability, rec.WeightKg)
			}
			return w.Flush()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "lookup <item...>",
		Short: "Show how the knowledge graph classifies an item",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openKnowledge()
			if err != nil {
				return err
			}
			item := strings.Join(args, " ")
			rec, ok := store.Lookup(item)
			if !ok {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), cli.FormatWarning(fmt.Sprintf("%q is not in the knowledge graph; the oracle would classify it", item)))
				return err
			}
			return writeJSON(cmd.OutOrStdout(), rec)
		},
	})

	return cmd
}

func openKnowledge() (*knowledge.Store, error) {
	return knowledge.Open(config.ExpandPath(viper.GetString("knowledge.path")), slog.Default())
}
