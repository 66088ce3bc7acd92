package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"enzyflow/internal/dataset"
	"enzyflow/pkg/enzyflow"
)

func newDatasetCommand(opts *rootOptions) *cobra.Command {
	var (
		records  string
		out      string
		quality  string
		enzymes  string
		grid     dataset.Grid
		failures bool
	)
	cmd := &cobra.Command{
		Use:   "dataset",
		Short: "Simulate enzymes over a condition grid and write training samples",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.client(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer c.Close()

			imported, err := importRecords(cmd.Context(), c, records)
			if err != nil {
				return err
			}
			if enzymes != "" {
				if err := writeFile(enzymes, func(w io.Writer) error {
					return dataset.WriteEnzymeRecords(w, imported)
				}); err != nil {
					return err
				}
			}
			if quality != "" {
				stored, err := c.ListEnzymes(cmd.Context())
				if err != nil {
					return err
				}
				report := dataset.Quality(stored)
				if err := writeFile(quality, report.WriteMarkdown); err != nil {
					return err
				}
				if !report.Passed {
					opts.logger.Warn("dataset failed quality gates")
				}
			}

			res, err := c.GenerateDataset(cmd.Context(), enzyflow.DatasetRequest{Grid: grid})
			if err != nil {
				return err
			}
			if out != "" {
				if err := writeFile(out, func(w io.Writer) error {
					return dataset.WriteSamples(w, res.Samples)
				}); err != nil {
					return err
				}
			}
			summary := map[string]any{
				"samples":  len(res.Samples),
				"failures": len(res.Failures),
				"elapsed":  res.Elapsed.String(),
			}
			if failures {
				summary["failed_tasks"] = res.Failures
			}
			return opts.print(cmd.OutOrStdout(), summary, func(w io.Writer) {
				fmt.Fprintf(w, "%d samples, %d failures in %s\n", len(res.Samples), len(res.Failures), res.Elapsed)
				if failures {
					for _, f := range res.Failures {
						fmt.Fprintln(w, f)
					}
				}
			})
		},
	}
	cmd.Flags().StringVar(&records, "records", "", "enzyme CSV or FASTA to import first")
	cmd.Flags().StringVar(&out, "out", "", "sample CSV output path")
	cmd.Flags().StringVar(&quality, "quality", "", "write a markdown quality report to this path")
	cmd.Flags().StringVar(&enzymes, "enzymes-out", "", "write the populated enzyme CSV to this path")
	cmd.Flags().Float64SliceVar(&grid.Temperatures, "temps", nil, "grid temperatures; empty uses dataset.temperatures")
	cmd.Flags().Float64SliceVar(&grid.PHs, "phs", nil, "grid pH values; empty uses dataset.phs")
	cmd.Flags().StringSliceVar(&grid.Substrates, "substrates", nil, "grid substrates; empty uses dataset.substrates")
	cmd.Flags().BoolVar(&failures, "show-failures", false, "list failed tasks")
	return cmd
}

func newTrainCommand(opts *rootOptions) *cobra.Command {
	var records, samples, modelOut string
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Fit the yield surrogate on simulated samples",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if samples == "" {
				return fmt.Errorf("--samples is required")
			}
			f, err := os.Open(samples)
			if err != nil {
				return err
			}
			rows, err := dataset.ReadSamples(f)
			_ = f.Close()
			if err != nil {
				return err
			}

			c, err := opts.client(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer c.Close()
			if _, err := importRecords(cmd.Context(), c, records); err != nil {
				return err
			}

			report, err := c.TrainSurrogate(cmd.Context(), enzyflow.TrainRequest{Samples: rows, SavePath: modelOut})
			if err != nil {
				return err
			}
			return opts.print(cmd.OutOrStdout(), report, func(w io.Writer) {
				fmt.Fprintf(w, "examples %d (train %d, test %d)\n", report.Examples, report.TrainSize, report.TestSize)
				fmt.Fprintf(w, "mse %.5f r2 %.3f\n", report.MSE, report.R2)
				fmt.Fprintf(w, "length scale %.3g noise %.3g\n", report.LengthScale, report.Noise)
			})
		},
	}
	cmd.Flags().StringVar(&records, "records", "", "enzyme CSV or FASTA whose sequences label the samples")
	cmd.Flags().StringVar(&samples, "samples", "", "sample CSV written by the dataset command")
	cmd.Flags().StringVar(&modelOut, "model-out", "", "model artifact path; empty uses surrogate.model_path")
	return cmd
}

func newScreenCommand(opts *rootOptions) *cobra.Command {
	var (
		records string
		size    int
		seed    int64
	)
	cmd := &cobra.Command{
		Use:   "screen",
		Short: "Pair endoglucanases with beta-glucosidases on a screening plate",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := opts.client(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer c.Close()
			if _, err := importRecords(cmd.Context(), c, records); err != nil {
				return err
			}

			plate, err := c.ScreenPlate(cmd.Context(), size, seed)
			if err != nil {
				return err
			}
			return opts.print(cmd.OutOrStdout(), plate, func(w io.Writer) {
				fmt.Fprintln(w, "well\teg\tbg\tscore\tratio\treason")
				for i, p := range plate {
					fmt.Fprintf(w, "%d\t%s\t%s\t%.3f\t%.2f\t%s\n", i+1, p.EG, p.BG, p.Score, p.Ratio, p.Reason)
				}
			})
		},
	}
	cmd.Flags().StringVar(&records, "records", "", "enzyme CSV or FASTA to import first")
	cmd.Flags().IntVar(&size, "size", 96, "number of wells")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed; 0 uses design.seed")
	return cmd
}
