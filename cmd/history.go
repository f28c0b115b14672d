package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/oncall/infra/runlog"
)

var historyOpts struct {
	since  time.Duration
	status string
	rule   string
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded solve runs",
	RunE:  runHistory,
}

func init() {
	f := historyCmd.Flags()
	f.DurationVar(&historyOpts.since, "since", 0, "only runs newer than this, e.g. 24h")
	f.StringVar(&historyOpts.status, "status", "", "only runs with this status")
	f.StringVar(&historyOpts.rule, "rule", "", "only runs that relaxed this rule id")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	store, err := runlog.Open(cfg.RunLog)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()
	q := runlog.Query{Status: historyOpts.status, Rule: historyOpts.rule}
	if historyOpts.since > 0 {
		q.Start = time.Now().Add(-historyOpts.since)
	}
	recs, err := store.Query(cmd.Context(), q)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tTIME\tSTATUS\tSOURCE\tASSIGNED\tRELAXED")
	for _, r := range recs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n",
			r.RunID, r.Timestamp.Local().Format(time.DateTime), r.Status, r.Source, r.Assigned, strings.Join(r.Relaxed, ","))
	}
	return tw.Flush()
}
