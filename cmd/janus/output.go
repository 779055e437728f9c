package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/Alexander-Kershaw/JANUS/internal/bronze"
	"github.com/Alexander-Kershaw/JANUS/internal/churn"
	"github.com/Alexander-Kershaw/JANUS/internal/events"
	"github.com/Alexander-Kershaw/JANUS/internal/model"
	"github.com/Alexander-Kershaw/JANUS/internal/silver"
	"github.com/Alexander-Kershaw/JANUS/internal/ui"
)

// Late-arrival rates at or above these percentages are highlighted.
const (
	lateWarnPct = 5.0
	lateFailPct = 20.0
)

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling JSON: %v\n", err)
		return
	}
	fmt.Println(string(data))
}

func printBronzeResult(runID, entity string, res *bronze.Result) {
	fmt.Printf("Bronze %s %s\n", entity, ui.RenderMuted(runID))
	fmt.Printf("  Files:           %d\n", res.Files)
	fmt.Printf("  Records read:    %d\n", res.RecordsRead)
	fmt.Printf("  Insert attempts: %d\n", res.InsertAttempts)
	fmt.Printf("  Inserted:        %s\n", ui.RenderOK(fmt.Sprint(res.Inserted)))
	if skipped := res.InsertAttempts - res.Inserted; skipped > 0 {
		fmt.Printf("  Already loaded:  %s\n", ui.RenderMuted(fmt.Sprint(skipped)))
	}
	fmt.Printf("  Ingestion ts:    %s\n", res.IngestionTS.Format(time.RFC3339Nano))
}

func printSilverReport(runID string, rep *silver.Report) {
	fmt.Printf("Silver %s %s\n", rep.Entity, ui.RenderMuted(runID))
	fmt.Printf("  Bronze rows:     %d\n", rep.BronzeRows)
	fmt.Printf("  Silver rows:     %s\n", ui.RenderOK(fmt.Sprint(rep.SilverRows)))
	quarantined := fmt.Sprint(rep.QuarantineRows)
	if rep.QuarantineRows > 0 {
		quarantined = ui.RenderWarn(quarantined)
	}
	fmt.Printf("  Quarantined:     %s\n", quarantined)
	if rep.Entity == silver.EntityEvents {
		fmt.Printf("  Duplicates:      %d\n", rep.DuplicatesDropped)
		fmt.Printf("  Late rows:       %d\n", rep.LateRows)
	}
	if len(rep.Reasons) == 0 {
		return
	}

	reasons := make([]model.ReasonCode, 0, len(rep.Reasons))
	for r := range rep.Reasons {
		reasons = append(reasons, r)
	}
	sort.Slice(reasons, func(i, j int) bool { return reasons[i] < reasons[j] })

	fmt.Println()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  REASON\tROWS")
	for _, r := range reasons {
		fmt.Fprintf(w, "  %s\t%d\n", r, rep.Reasons[r])
	}
	w.Flush()
}

func printChurnResult(res *churn.Result, tail int) {
	s := res.Summary
	fmt.Printf("Churn temporal CV %s\n", ui.RenderMuted(res.Final.RunID))
	fmt.Printf("  Cutoff day:   %s (horizon %dd)\n", s.CutoffDayInclusive, s.LabelHorizonDays)
	fmt.Printf("  Eligible:     %d of %d days\n", s.DaysEligibleAfterCensor, s.DaysTotal)
	fmt.Printf("  Folds:        %d used, %d skipped\n", s.FoldsUsed, s.FoldsSkippedNoTestPositives)
	fmt.Printf("  PR-AUC:       %s\n", meanStd(s.PRAUCMean, s.PRAUCStd))
	fmt.Printf("  ROC-AUC:      %s\n", meanStd(s.ROCAUCMean, s.ROCAUCStd))
	fmt.Printf("  Final fit:    %d rows, %d positives (%.2f%%)\n",
		res.Final.RowsFit, res.Final.PositivesFit, res.Final.ChurnRateFit*100)

	folds := res.Folds
	if tail <= 0 || len(folds) == 0 {
		return
	}
	if len(folds) > tail {
		folds = folds[len(folds)-tail:]
	}
	fmt.Println()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TEST DAY\tTRAIN DAYS\tROWS\tPOSITIVES\tPR-AUC\tROC-AUC")
	for _, f := range folds {
		pr, roc := optMetric(f.PRAUC), optMetric(f.ROCAUC)
		if f.Skipped {
			pr, roc = ui.RenderMuted("skipped"), ui.RenderMuted("skipped")
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%s\t%s\n",
			f.TestDay.Format(time.DateOnly),
			len(f.TrainDays),
			f.RowsTest,
			f.PositivesTest,
			pr,
			roc,
		)
	}
	w.Flush()
}

func printHealth(h *model.PipelineHealth) {
	fmt.Println("Warehouse Status")
	latest := ui.RenderMuted("never")
	if h.LatestIngestionTS != nil {
		latest = h.LatestIngestionTS.Format(time.RFC3339)
	}
	fmt.Printf("  Latest ingestion: %s\n", latest)
	fmt.Printf("  Late rate:        %s (%d of %d events)\n",
		ui.LateRate(h.LateRatePct, lateWarnPct, lateFailPct), h.LateEvents, h.TotalEvents)

	fmt.Println()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TABLE\tROWS")
	for _, t := range h.Tables {
		fmt.Fprintf(w, "%s\t%d\n", t.Table, t.Rows)
	}
	w.Flush()
}

func printEvent(at time.Time, msg events.Message) {
	if jsonOutput {
		fmt.Println(string(msg.Data))
		return
	}
	var env struct {
		RunID string `json:"run_id"`
	}
	_ = json.Unmarshal(msg.Data, &env)
	fmt.Printf("%s %s %s %s\n",
		ui.RenderMuted(at.Format("15:04:05")),
		ui.RenderAccent(msg.Topic),
		env.RunID,
		string(msg.Data),
	)
}

func meanStd(mean, std *float64) string {
	if mean == nil {
		return ui.RenderMuted("n/a")
	}
	if std == nil {
		return fmt.Sprintf("%.4f", *mean)
	}
	return fmt.Sprintf("%.4f ± %.4f", *mean, *std)
}

func optMetric(v *float64) string {
	if v == nil {
		return ui.RenderMuted("n/a")
	}
	return fmt.Sprintf("%.4f", *v)
}
