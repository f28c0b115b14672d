package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/oncall/app"
	"github.com/kilianp07/oncall/infra/rulefile"
	"github.com/kilianp07/oncall/infra/sheet"
)

var validateOpts struct {
	grid  string
	rules string
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a grid and a rule file without solving",
	RunE:  runValidate,
}

func init() {
	f := validateCmd.Flags()
	f.StringVar(&validateOpts.grid, "grid", "", "grid file (.csv or .xlsx)")
	f.StringVar(&validateOpts.rules, "rules", "", "rule file (.yaml or .json)")
	_ = validateCmd.MarkFlagRequired("grid")
	_ = validateCmd.MarkFlagRequired("rules")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	doc, err := sheet.Load(validateOpts.grid, cfg.Sheet)
	if err != nil {
		return err
	}
	specs, err := rulefile.Load(validateOpts.rules)
	if err != nil {
		return fmt.Errorf("%s: %w", validateOpts.rules, err)
	}
	v, err := app.NewWithDeps(cfg, app.Deps{}).Validate(cmd.Context(), doc.Input, specs)
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "grid: %d residents, %d days, %d decision variables\n",
		len(v.Grid.Residents()), len(v.Grid.Days()), len(v.Grid.Vars()))
	fmt.Fprintf(w, "rules: %d compiled, %d constraints, %d relaxation units, %d always enforced\n",
		len(v.Compiled), v.Constraints(), len(v.Problem.Units), len(v.Problem.Pinned))
	for _, rc := range v.Compiled {
		fmt.Fprintf(w, "  %-24s %-22s priority %d, %d constraints\n", rc.Spec.ID, rc.Spec.Kind, rc.Spec.EffectivePriority(), len(rc.Constraints))
	}
	d := v.Diagnosis
	if d.Feasible() {
		fmt.Fprintf(w, "feasible with every rule enabled\n")
		return nil
	}
	fmt.Fprintf(w, "infeasible with every rule enabled; minimal conflicting set (%d solves):\n", d.Solves)
	for _, name := range d.Core {
		fmt.Fprintf(w, "  %s\n", name)
	}
	for _, name := range d.Pinned {
		fmt.Fprintf(w, "  fixed: %s\n", name)
	}
	return nil
}
