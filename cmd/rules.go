package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kilianp07/oncall/core/rules"
	"github.com/kilianp07/oncall/core/solver"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List the supported rule kinds and solver backends",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := cmd.OutOrStdout()
		fmt.Fprintln(w, "rule kinds:")
		for _, k := range rules.Kinds() {
			fmt.Fprintf(w, "  %s\n", k)
		}
		fmt.Fprintf(w, "solver backends: %s\n", strings.Join(solver.Backends(), ", "))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rulesCmd)
}
