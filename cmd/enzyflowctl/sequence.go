package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func newOracleCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "oracle SEQUENCE",
		Short: "Derive ground-truth kinetics from a protein sequence",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer c.Close()

			res := c.OracleGroundTruth(args[0])
			return opts.print(cmd.OutOrStdout(), res, func(w io.Writer) {
				p := res.Params
				fmt.Fprintf(w, "kcat %.4g\nkm %.4g\nki %.4g\nt_opt %.4g\nph_opt %.4g\n", p.Kcat, p.Km, p.Ki, p.TOpt, p.PHOpt)
				for _, bad := range res.Invalid {
					fmt.Fprintf(w, "skipped %q at %d\n", bad.Residue, bad.Position)
				}
			})
		},
	}
}

func newMutateCommand(opts *rootOptions) *cobra.Command {
	var seed int64
	cmd := &cobra.Command{
		Use:   "mutate SEQUENCE",
		Short: "Propose one random point mutation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer c.Close()

			res, err := c.ProposeMutation(args[0], seed)
			if err != nil {
				return err
			}
			return opts.print(cmd.OutOrStdout(), res, func(w io.Writer) {
				fmt.Fprintf(w, "%s\n%s\n", res.Mutation, res.Sequence)
			})
		},
	}
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed; 0 uses design.seed")
	return cmd
}

func newApplyMutationCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "apply-mutation SEQUENCE MUTATION",
		Short: "Apply a mutation such as A12G to a sequence",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer c.Close()

			mutant, err := c.ApplyMutation(args[0], args[1])
			if err != nil {
				return err
			}
			out := map[string]string{"sequence": mutant, "mutation": args[1]}
			return opts.print(cmd.OutOrStdout(), out, func(w io.Writer) {
				fmt.Fprintln(w, mutant)
			})
		},
	}
}
