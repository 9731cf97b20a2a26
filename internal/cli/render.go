package cli

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/Veraticus/wastewise/internal/model"
)

// RenderBatch writes the bag recipes and manifest summary of a processed batch.
func RenderBatch(w io.Writer, result *model.BatchResult) error {
	var b strings.Builder
	m := result.Manifest

	for _, recipe := range result.BagRecipes {
		fmt.Fprintf(&b, "%s %s  %s\n",
			BagIcon,
			BoldStyle.Render(string(recipe.Stream)),
			SubtleStyle.Render(fmt.Sprintf("%d bag(s), %d item(s)", recipe.BagCount, len(recipe.Instructions))))
		for _, ins := range recipe.Instructions {
			fmt.Fprintf(&b, "   • %s %s\n", ins.Item, SubtleStyle.Render("→ "+ins.Note))
		}
	}

	fmt.Fprintf(&b, "\nManifest: %s\n", InfoStyle.Render(m.ID))
	fmt.Fprintf(&b, "Bin:      %s\n", result.BinID)
	fmt.Fprintf(&b, "Items:    %d\n", m.TotalItems)
	fmt.Fprintf(&b, "Bags:     %d\n", m.TotalBags)
	fmt.Fprintf(&b, "Weight:   %.2f kg", m.TotalWeightKg)

	_, err := fmt.Fprintln(w, RenderBox(RecycleIcon+" Bag Recipes", b.String()))
	return err
}

// RenderBins writes a table of bins. Bins at or above threshold are highlighted.
func RenderBins(w io.Writer, bins []model.Bin, threshold float64) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join([]string{
		TableHeaderStyle.Render("BIN"),
		TableHeaderStyle.Render("LOCATION"),
		TableHeaderStyle.Render("FILL (KG)"),
		TableHeaderStyle.Render("CAPACITY (KG)"),
		TableHeaderStyle.Render("FILL %"),
	}, "\t"))

	for _, bin := range bins {
		pct := bin.FillPercent()
		pctText := fmt.Sprintf("%.1f%%", pct)
		switch {
		case pct > 100:
			pctText = ErrorStyle.Render(pctText)
		case pct >= threshold:
			pctText = WarningStyle.Render(pctText)
		}
		fmt.Fprintf(tw, "%s\t%s\t%.2f\t%.2f\t%s\n",
			InfoStyle.Render(bin.ID), bin.Location, bin.FillLevelKg, bin.CapacityKg, pctText)
	}
	return tw.Flush()
}

// RenderRoute writes a pickup route as numbered stops.
func RenderRoute(w io.Writer, solution model.RouteSolution) error {
	if solution.Failed() {
		_, err := fmt.Fprintln(w, FormatError("Route optimization failed: no feasible tour"))
		return err
	}

	var b strings.Builder
	for i, stop := range solution.Path {
		label := fmt.Sprintf("stop %d", i)
		if len(solution.Path) > 1 && (i == 0 || i == len(solution.Path)-1) {
			label = "depot"
		}
		fmt.Fprintf(&b, "%2d. %s %s\n", i+1, stop, SubtleStyle.Render(label))
	}
	fmt.Fprintf(&b, "\nTotal distance: %s", BoldStyle.Render(fmt.Sprintf("%.4f", solution.Distance)))

	_, err := fmt.Fprintln(w, RenderBox(TruckIcon+" Pickup Route", b.String()))
	return err
}

// RenderAnalytics writes the feedback summary and per-bin status.
func RenderAnalytics(w io.Writer, a *model.Analytics, threshold float64) error {
	s := a.Summary
	summary := fmt.Sprintf("Submissions:   %d\nValid:         %s\nContaminated:  %s\nContamination: %.1f%%",
		s.Total,
		SuccessStyle.Render(fmt.Sprint(s.Valid)),
		ErrorStyle.Render(fmt.Sprint(s.Contaminated)),
		s.ContaminationRate)
	if _, err := fmt.Fprintln(w, RenderBox(ChartIcon+" Collector Feedback", summary)); err != nil {
		return err
	}

	ids := make([]string, 0, len(a.BinStatus))
	for id := range a.BinStatus {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	bins := make([]model.Bin, 0, len(ids))
	for _, id := range ids {
		bins = append(bins, a.BinStatus[id])
	}
	return RenderBins(w, bins, threshold)
}

// RenderHistory writes classification history entries, oldest first.
func RenderHistory(w io.Writer, entries []model.HistoryEntry) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join([]string{
		TableHeaderStyle.Render("TIME"),
		TableHeaderStyle.Render("BIN"),
		TableHeaderStyle.Render("ITEM"),
		TableHeaderStyle.Render("STREAM"),
		TableHeaderStyle.Render("WEIGHT (KG)"),
	}, "\t"))
	for _, e := range entries {
		ts := e.Timestamp.Local().Format(time.DateTime)
		for _, rec := range e.Items {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.2f\n", ts, e.BinID, rec.Item, rec.Stream, rec.WeightKg)
		}
	}
	return tw.Flush()
}

// RenderReceipt writes a deposit receipt.
func RenderReceipt(w io.Writer, r model.DepositReceipt) error {
	_, err := fmt.Fprintf(w, "%s Credited %s with %.2f credits (balance %.2f)\n",
		SuccessStyle.Render(SuccessIcon), InfoStyle.Render(r.UserID), r.CreditsEarned, r.NewBalance)
	return err
}

// FormatFileSize renders a byte count in binary units.
func FormatFileSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}
