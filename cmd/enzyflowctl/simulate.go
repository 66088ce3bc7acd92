package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"enzyflow/internal/kinetics"
	"enzyflow/internal/model"
	"enzyflow/pkg/enzyflow"
)

// parseParams reads "kcat,km,ki,t_opt,ph_opt".
func parseParams(raw string) (model.KineticParams, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 5 {
		return model.KineticParams{}, fmt.Errorf("params %q: want kcat,km,ki,t_opt,ph_opt", raw)
	}
	var v [5]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return model.KineticParams{}, fmt.Errorf("params %q: %w", raw, err)
		}
		v[i] = f
	}
	return model.KineticParams{Kcat: v[0], Km: v[1], Ki: v[2], TOpt: v[3], PHOpt: v[4]}, nil
}

// envFlags binds the reaction-condition flags shared by several commands.
type envFlags struct {
	temp, ph      float64
	substrate     string
	particleSize  float64
	crystallinity float64
	severity      float64
	lignin        float64
	biomassType   string
	phenol        float64
	furfural      float64
	biomass       string
	pretreatment  string
	loading       float64
}

func (f *envFlags) bind(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.Float64Var(&f.temp, "temp", 50, "temperature (°C)")
	fl.Float64Var(&f.ph, "ph", 5, "pH")
	fl.StringVar(&f.substrate, "substrate", "Cellulose", "substrate name")
	fl.Float64Var(&f.particleSize, "particle-size", 0, "particle size in mm (0 disables the accessibility factor)")
	fl.Float64Var(&f.crystallinity, "crystallinity", 0.7, "crystallinity index [0,1]")
	fl.Float64Var(&f.severity, "severity", 0, "pretreatment severity [0,1]")
	fl.Float64Var(&f.lignin, "lignin", 0, "lignin mass fraction")
	fl.StringVar(&f.biomassType, "biomass-type", string(model.BiomassGrass), "softwood|hardwood|grass")
	fl.Float64Var(&f.phenol, "phenol", 0, "phenolic inhibitor concentration (mM)")
	fl.Float64Var(&f.furfural, "furfural", 0, "furfural concentration (mM)")
	fl.StringVar(&f.biomass, "biomass", "", "biomass preset; overrides the composition flags")
	fl.StringVar(&f.pretreatment, "pretreatment", "simple_crushing", "pretreatment preset used with --biomass")
	fl.Float64Var(&f.loading, "loading", 100, "solid loading in g/L used with --biomass")
}

// env returns the environment and, for biomass presets, the cellulose
// concentration to start from.
func (f *envFlags) env() (model.Environment, float64, error) {
	if f.biomass != "" {
		return kinetics.BiomassEnvironment(f.biomass, f.pretreatment, f.temp, f.ph, f.loading)
	}
	env := model.Environment{
		Temperature:   f.temp,
		PH:            f.ph,
		Substrate:     f.substrate,
		Crystallinity: f.crystallinity,
		Severity:      f.severity,
		Lignin:        f.lignin,
		BiomassType:   model.BiomassType(f.biomassType),
		Phenol:        f.phenol,
		Furfural:      f.furfural,
	}
	if f.particleSize > 0 {
		env = env.WithParticleSize(f.particleSize)
	}
	return env, 0, nil
}

func printTrace(w io.Writer, trace model.SimulationTrace) {
	fmt.Fprintf(w, "time_s\t%s\n", strings.Join(trace.Species, "\t"))
	for _, s := range trace.Samples {
		cells := make([]string, len(s.Concentrations))
		for i, c := range s.Concentrations {
			cells[i] = strconv.FormatFloat(c, 'g', 6, 64)
		}
		fmt.Fprintf(w, "%g\t%s\n", s.Time, strings.Join(cells, "\t"))
	}
}

func newSimulateCommand(opts *rootOptions) *cobra.Command {
	var (
		params    string
		envF      envFlags
		substrate float64
		enzyme    float64
		duration  float64
		steps     int
	)
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Simulate a single-enzyme S -> P reaction",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := parseParams(params)
			if err != nil {
				return err
			}
			env, s0, err := envF.env()
			if err != nil {
				return err
			}
			if substrate > 0 {
				s0 = substrate
			}
			c, err := opts.client(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer c.Close()

			trace, err := c.SimulateSingle(cmd.Context(), kinetics.SingleRequest{
				Params: p, Env: env, SubstrateInit: s0, EnzymeConc: enzyme, Duration: duration, Steps: steps,
			})
			if err != nil {
				return err
			}
			return opts.print(cmd.OutOrStdout(), trace, func(w io.Writer) { printTrace(w, trace) })
		},
	}
	cmd.Flags().StringVar(&params, "params", "10,1,10,50,5", "kinetics as kcat,km,ki,t_opt,ph_opt")
	cmd.Flags().Float64Var(&substrate, "s0", 0, "initial substrate (mM); 0 uses the config")
	cmd.Flags().Float64Var(&enzyme, "enzyme", 0, "enzyme concentration (mM); 0 uses the config")
	cmd.Flags().Float64Var(&duration, "duration", 0, "duration in seconds; 0 uses the config")
	cmd.Flags().IntVar(&steps, "steps", 0, "sample intervals; 0 uses the config")
	envF.bind(cmd)
	return cmd
}

func newCascadeCommand(opts *rootOptions) *cobra.Command {
	var (
		first, second string
		envF          envFlags
		substrate     float64
		firstConc     float64
		secondConc    float64
	)
	cmd := &cobra.Command{
		Use:   "cascade",
		Short: "Simulate the two-enzyme S -> C2 -> G cascade",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := parseParams(first)
			if err != nil {
				return err
			}
			b, err := parseParams(second)
			if err != nil {
				return err
			}
			env, s0, err := envF.env()
			if err != nil {
				return err
			}
			if substrate > 0 {
				s0 = substrate
			}
			c, err := opts.client(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer c.Close()

			trace, err := c.SimulateCascade(cmd.Context(), kinetics.CascadeRequest{
				First: a, Second: b, Env: env, SubstrateInit: s0, FirstConc: firstConc, SecondConc: secondConc,
			})
			if err != nil {
				return err
			}
			return opts.print(cmd.OutOrStdout(), trace, func(w io.Writer) {
				printTrace(w, trace)
				if preset, ok := kinetics.LookupBiomass(envF.biomass); ok && s0 > 0 {
					g, _ := trace.Final(kinetics.SpeciesGlucose)
					fmt.Fprintf(w, "glucose yield %.3f (%s literature range)\n", g/s0, preset.LiteratureVerdict(g/s0))
				}
			})
		},
	}
	cmd.Flags().StringVar(&first, "first", "2.5,2,8,65,6", "endoglucanase kinetics as kcat,km,ki,t_opt,ph_opt")
	cmd.Flags().StringVar(&second, "second", "66.7,1.11,2.22,50,5", "beta-glucosidase kinetics as kcat,km,ki,t_opt,ph_opt")
	cmd.Flags().Float64Var(&substrate, "s0", 0, "initial substrate (mM); 0 uses the config")
	cmd.Flags().Float64Var(&firstConc, "first-conc", 0, "first enzyme concentration (mM)")
	cmd.Flags().Float64Var(&secondConc, "second-conc", 0, "second enzyme concentration (mM)")
	envF.bind(cmd)
	return cmd
}

func newBenchmarkCommand(opts *rootOptions) *cobra.Command {
	var (
		wt, mut  string
		envF     envFlags
		fraction float64
		mode     string
	)
	cmd := &cobra.Command{
		Use:   "benchmark",
		Short: "Compare wild-type and mutant time to reach a product target",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := parseParams(wt)
			if err != nil {
				return err
			}
			b, err := parseParams(mut)
			if err != nil {
				return err
			}
			env, _, err := envF.env()
			if err != nil {
				return err
			}
			c, err := opts.client(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer c.Close()

			res, err := c.Benchmark(cmd.Context(), enzyflow.BenchmarkRequest{
				WildType: a, Mutant: b, Env: env, Fraction: fraction, Mode: kinetics.TargetMode(mode),
			})
			if err != nil {
				return err
			}
			return opts.print(cmd.OutOrStdout(), res.Comparison, func(w io.Writer) {
				cmp := res.Comparison
				fmt.Fprintf(w, "mode %s target %.4g mM\n", cmp.Mode, cmp.Target)
				fmt.Fprintf(w, "wild type: %s\n", seconds(cmp.WildType))
				fmt.Fprintf(w, "mutant:    %s\n", seconds(cmp.Mutant))
				if cmp.Reduction != nil {
					fmt.Fprintf(w, "time reduction %.1f%%\n", *cmp.Reduction)
				}
				if res.RunID != "" {
					fmt.Fprintf(w, "run %s stored in %s\n", res.RunID, res.ArtifactsDir)
				}
			})
		},
	}
	cmd.Flags().StringVar(&wt, "wt", "10,1,10,50,5", "wild-type kinetics as kcat,km,ki,t_opt,ph_opt")
	cmd.Flags().StringVar(&mut, "mut", "15,1,10,50,5", "mutant kinetics as kcat,km,ki,t_opt,ph_opt")
	cmd.Flags().Float64Var(&fraction, "fraction", 0.5, "fraction of the reference level to reach")
	cmd.Flags().StringVar(&mode, "mode", string(kinetics.TargetTheoretical), "theoretical|wildtype-final")
	envF.bind(cmd)
	return cmd
}

func seconds(v *float64) string {
	if v == nil {
		return "not reached"
	}
	return fmt.Sprintf("%.0f s", *v)
}
