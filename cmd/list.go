package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/signalnine/autograde/internal/loader"
	"github.com/signalnine/autograde/internal/problemfile"
	"github.com/signalnine/autograde/internal/score"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list PROBLEM.yaml",
		Short: "List a problem's groups, trials and bonuses",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			def, err := problemfile.Load(cmd.Context(), args[0], cfg, loader.Default)
			if err != nil {
				return err
			}
			return listProblem(def, cmd.OutOrStdout())
		},
	}
}

func listProblem(def *problemfile.Definition, w io.Writer) error {
	p := def.Problem
	golden := def.GoldenPath()
	if golden == "" {
		golden = "symbol " + p.Symbol()
	}
	fmt.Fprintf(w, "Problem: %s (golden: %s, points: %g)\n\n", p.Name(), golden, def.Points())

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "GROUP\tKIND\tNAME\tWEIGHT\tVALUE\tEXTRA\tHIDDEN")
	fmt.Fprintln(tw, strings.Repeat("-", 80))
	for _, g := range p.Groups() {
		fmt.Fprintf(tw, "%s\tgroup\t\t%s\n", g.Name, specColumns(g.Score))
		for _, t := range g.Trials {
			kind := "trial"
			if t.IsPipeline() {
				kind = "pipeline"
			}
			fmt.Fprintf(tw, "\t%s\t%s\t%s\t%t\n", kind, t.Name, specColumns(t.Score), t.Hidden)
		}
		for _, b := range g.Bonuses {
			fmt.Fprintf(tw, "\tbonus\t%s\t%s\t%t\n", b.Name, specColumns(b.Score), b.Hidden)
		}
	}
	return tw.Flush()
}

func specColumns(s score.Spec) string {
	return fmt.Sprintf("%d\t%g\t%g", s.Weight, s.Value, s.Bonus)
}
