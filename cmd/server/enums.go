package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newEnumsCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "enums",
		Short: "Inspect enum types",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := bootstrap(ctx, c.cfg, c.log)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TYPE\tTABLE\tMEMBERS\tON LOOKUP FAILURE")
			for _, n := range a.reg.Names() {
				t, err := a.reg.Type(n)
				if err != nil {
					return err
				}
				all, err := t.All(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", t.Name(), t.Table(), len(all), t.LookupFailurePolicy())
			}
			return w.Flush()
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "names <type>",
		Short: "Print member names of an enum type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := bootstrap(ctx, c.cfg, c.log)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			t, err := a.reg.Type(args[0])
			if err != nil {
				return err
			}
			names, err := t.Names(ctx)
			if err != nil {
				return err
			}
			for _, n := range names {
				fmt.Fprintln(cmd.OutOrStdout(), n)
			}
			return nil
		},
	})
	return cmd
}
