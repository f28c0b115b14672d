package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/oncall/app"
	"github.com/kilianp07/oncall/core/relax"
	"github.com/kilianp07/oncall/infra/logger"
	"github.com/kilianp07/oncall/infra/rulefile"
	"github.com/kilianp07/oncall/infra/runlog"
	"github.com/kilianp07/oncall/infra/sheet"
	"github.com/kilianp07/oncall/pkg/export"
)

var solveOpts struct {
	grid    string
	rules   string
	out     string
	report  string
	summary string
	resume  string
}

var solveCmd = &cobra.Command{
	Use:   "solve",
	Short: "Fill the open cells of a monthly grid",
	RunE:  runSolve,
}

func init() {
	f := solveCmd.Flags()
	f.StringVar(&solveOpts.grid, "grid", "", "grid file (.csv or .xlsx)")
	f.StringVar(&solveOpts.rules, "rules", "", "rule file (.yaml or .json)")
	f.StringVar(&solveOpts.out, "out", "", "output grid, defaults to <grid>_solved.<ext>")
	f.StringVar(&solveOpts.report, "report", "", "write the JSON run report to this file")
	f.StringVar(&solveOpts.summary, "summary", "", "write the per-resident CSV summary to this file")
	f.StringVar(&solveOpts.resume, "resume", "", "resume the relaxation search of a recorded run id")
	_ = solveCmd.MarkFlagRequired("grid")
	_ = solveCmd.MarkFlagRequired("rules")
	rootCmd.AddCommand(solveCmd)
}

func runSolve(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	doc, err := sheet.Load(solveOpts.grid, cfg.Sheet)
	if err != nil {
		return err
	}
	specs, err := rulefile.Load(solveOpts.rules)
	if err != nil {
		return fmt.Errorf("%s: %w", solveOpts.rules, err)
	}
	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("main").Errorf("service close: %v", err)
		}
	}()
	svc.StartMetricsServer(ctx)

	req := app.Request{Input: doc.Input, Rules: specs, Source: solveOpts.grid}
	if solveOpts.resume != "" {
		if req.Resume, err = checkpointOf(ctx, svc, solveOpts.resume); err != nil {
			return err
		}
	}
	res, err := svc.Solve(ctx, req)
	if err != nil {
		return err
	}

	out := solveOpts.out
	if out == "" {
		out = sheet.DefaultOutput(solveOpts.grid)
	}
	if err := doc.Write(out, res.Schedule); err != nil {
		return err
	}
	if solveOpts.report != "" {
		if err := writeFile(solveOpts.report, func(f *os.File) error { return export.WriteJSON(f, res.Report) }); err != nil {
			return err
		}
	}
	if solveOpts.summary != "" {
		if err := writeFile(solveOpts.summary, func(f *os.File) error { return export.WriteSummaryCSV(f, res.Report) }); err != nil {
			return err
		}
	}

	w := cmd.OutOrStdout()
	rep := res.Report
	fmt.Fprintf(w, "run %s: %s, %d shifts assigned, written to %s\n", rep.RunID, rep.Status, rep.Assigned, out)
	for _, r := range rep.Relaxed {
		fmt.Fprintf(w, "  relaxed %s (%d constraints broken)\n", r.Unit, len(r.Violated))
	}
	for _, u := range rep.Unfilled {
		fmt.Fprintf(w, "  unfilled %s day %d (%s)\n", u.Resident, u.Day, u.Code)
	}
	return nil
}

func checkpointOf(ctx context.Context, svc *app.Service, runID string) (*relax.Checkpoint, error) {
	recs, err := svc.History(ctx, runlog.Query{})
	if err != nil {
		return nil, err
	}
	for i := len(recs) - 1; i >= 0; i-- {
		if recs[i].RunID == runID {
			if recs[i].Checkpoint == nil {
				return nil, fmt.Errorf("run %s has no checkpoint", runID)
			}
			return recs[i].Checkpoint, nil
		}
	}
	return nil, fmt.Errorf("run %s not found in history", runID)
}

func writeFile(path string, write func(*os.File) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return write(f)
}
