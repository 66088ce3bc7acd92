package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"enzyflow/internal/model"
	"enzyflow/internal/stats"
	"enzyflow/pkg/enzyflow"
)

func newDesignCommand(opts *rootOptions) *cobra.Command {
	var (
		req       enzyflow.DesignRequest
		envF      envFlags
		records   string
		modelPath string
	)
	cmd := &cobra.Command{
		Use:   "design",
		Short: "Run the active-learning design loop",
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, _, err := envF.env()
			if err != nil {
				return err
			}
			req.Environment = env

			c, err := opts.client(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer c.Close()
			if _, err := importRecords(cmd.Context(), c, records); err != nil {
				return err
			}
			if modelPath != "" {
				if err := c.LoadSurrogate(modelPath); err != nil {
					return err
				}
			}

			sum, err := c.RunActiveLearning(cmd.Context(), req)
			if err != nil {
				return err
			}
			return opts.print(cmd.OutOrStdout(), sum, func(w io.Writer) {
				h := sum.History
				fmt.Fprintf(w, "run %s\n", h.RunID)
				printRounds(w, h.Rounds)
				fmt.Fprintf(w, "best yield %.4f\n", h.BestYield)
				for _, rec := range sum.Promoted {
					fmt.Fprintf(w, "promoted %s (parent %s)\n", rec.ID, rec.ParentID)
				}
				if sum.ArtifactsDir != "" {
					fmt.Fprintf(w, "artifacts in %s\n", sum.ArtifactsDir)
				}
			})
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&req.StartSequence, "start", "", "start sequence")
	fl.StringVar(&req.StartID, "start-id", "", "stored enzyme id to start from")
	fl.IntVar(&req.Rounds, "rounds", 0, "design rounds; 0 uses design.rounds")
	fl.IntVar(&req.Candidates, "candidates", 0, "candidates per round; 0 uses design.candidates")
	fl.Int64Var(&req.Seed, "seed", 0, "random seed; 0 uses design.seed")
	fl.StringVar(&records, "records", "", "enzyme CSV or FASTA to import first")
	fl.StringVar(&modelPath, "model", "", "surrogate artifact; empty uses surrogate.model_path")
	envF.bind(cmd)
	return cmd
}

func printRounds(w io.Writer, rounds []model.DesignRound) {
	fmt.Fprintln(w, "round\tmutation\tkind\tyield\tbest")
	for _, r := range rounds {
		fmt.Fprintf(w, "%d\t%s\t%s\t%.4f\t%.4f\n", r.Round, r.Mutation, r.Kind, r.Yield, r.BestYield)
	}
}

func newOptimizeCommand(opts *rootOptions) *cobra.Command {
	var (
		req       enzyflow.OptimizeRequest
		envF      envFlags
		records   string
		modelPath string
	)
	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Propose the single mutation the surrogate rates best",
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, _, err := envF.env()
			if err != nil {
				return err
			}
			req.Environment = env

			c, err := opts.client(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer c.Close()
			if _, err := importRecords(cmd.Context(), c, records); err != nil {
				return err
			}
			if modelPath != "" {
				if err := c.LoadSurrogate(modelPath); err != nil {
					return err
				}
			}

			p, err := c.ProposeOptimization(cmd.Context(), req)
			if err != nil {
				return err
			}
			return opts.print(cmd.OutOrStdout(), p, func(w io.Writer) {
				fmt.Fprintf(w, "%s: %s\n", p.Mechanism, p.Mutation)
				fmt.Fprintf(w, "predicted %.4f (baseline %.4f, delta %+.4f)\n", p.PredictedYield, p.BaselineYield, p.Delta)
				fmt.Fprintln(w, p.Sequence)
			})
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&req.Sequence, "sequence", "", "base sequence")
	fl.StringVar(&req.EnzymeID, "enzyme-id", "", "stored enzyme id to optimize")
	fl.IntVar(&req.Attempts, "attempts", 0, "mutants to score; 0 uses design.attempts")
	fl.Int64Var(&req.Seed, "seed", 0, "random seed; 0 uses design.seed")
	fl.StringVar(&records, "records", "", "enzyme CSV or FASTA to import first")
	fl.StringVar(&modelPath, "model", "", "surrogate artifact; empty uses surrogate.model_path")
	envF.bind(cmd)
	return cmd
}

func newHistoryCommand(opts *rootOptions) *cobra.Command {
	var exportDir string
	cmd := &cobra.Command{
		Use:   "history [RUN_ID]",
		Short: "List design runs or show one run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer c.Close()

			if len(args) == 0 {
				return listRuns(cmd, opts, c)
			}
			runID := args[0]

			if exportDir != "" && opts.artifactsDir == "" {
				return fmt.Errorf("--export needs --artifacts")
			}
			export := func() error {
				if exportDir == "" {
					return nil
				}
				dst, err := stats.ExportRunArtifacts(opts.artifactsDir, runID, exportDir)
				if err != nil {
					return err
				}
				opts.logger.Info("run exported", zap.String("run_id", runID), zap.String("dir", dst))
				return nil
			}

			h, lineage, err := c.DesignHistory(cmd.Context(), runID)
			if errors.Is(err, enzyflow.ErrRunNotFound) && opts.artifactsDir != "" {
				var found bool
				h, found, err = stats.ReadDesignHistory(opts.artifactsDir, runID)
				if err == nil && !found {
					return showBenchmark(cmd, opts, runID, export)
				}
				if err == nil {
					lineage, _, err = stats.ReadLineage(opts.artifactsDir, runID)
				}
			}
			if err != nil {
				return err
			}
			if err := export(); err != nil {
				return err
			}

			out := map[string]any{"history": h, "lineage": lineage}
			return opts.print(cmd.OutOrStdout(), out, func(w io.Writer) {
				fmt.Fprintf(w, "run %s started %s\n", h.RunID, h.CreatedAt.Format("2006-01-02 15:04:05"))
				printRounds(w, h.Rounds)
				fmt.Fprintf(w, "best yield %.4f\n", h.BestYield)
				for _, l := range lineage {
					fmt.Fprintf(w, "%s <- %s gen %d %s\n", l.EnzymeID, l.ParentID, l.Generation, l.Mutation)
				}
			})
		},
	}
	cmd.Flags().StringVar(&exportDir, "export", "", "copy the run's artifact directory here")
	return cmd
}

// showBenchmark prints a stored benchmark run from the artifacts dir.
func showBenchmark(cmd *cobra.Command, opts *rootOptions, runID string, export func() error) error {
	cmp, found, err := stats.ReadBenchmark(opts.artifactsDir, runID)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: %s", enzyflow.ErrRunNotFound, runID)
	}
	if err := export(); err != nil {
		return err
	}
	return opts.print(cmd.OutOrStdout(), map[string]any{"benchmark": cmp}, func(w io.Writer) {
		fmt.Fprintf(w, "benchmark %s mode %s target %.4g mM\n", runID, cmp.Mode, cmp.Target)
		fmt.Fprintf(w, "wild type: %s\n", seconds(cmp.WildType))
		fmt.Fprintf(w, "mutant:    %s\n", seconds(cmp.Mutant))
	})
}

func listRuns(cmd *cobra.Command, opts *rootOptions, c *enzyflow.Client) error {
	ids, err := c.DesignRuns(cmd.Context())
	if err != nil {
		return err
	}
	var index []stats.RunIndexEntry
	if opts.artifactsDir != "" {
		if index, err = stats.ListRunIndex(opts.artifactsDir); err != nil {
			return err
		}
	}
	out := map[string]any{"stored": ids, "index": index}
	return opts.print(cmd.OutOrStdout(), out, func(w io.Writer) {
		for _, id := range ids {
			fmt.Fprintln(w, id)
		}
		for _, e := range index {
			if e.Kind == stats.RunKindBenchmark {
				fmt.Fprintf(w, "%s\t%s\tbenchmark\n", e.RunID, e.CreatedAtUTC)
				continue
			}
			fmt.Fprintf(w, "%s\t%s\t%d rounds\tbest %.4f\n", e.RunID, e.CreatedAtUTC, e.Rounds, e.BestYield)
		}
	})
}
