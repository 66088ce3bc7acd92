package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"enzyflow/internal/config"
	"enzyflow/internal/dataset"
	"enzyflow/internal/logging"
	"enzyflow/internal/model"
	"enzyflow/pkg/enzyflow"
)

var validFormats = []string{"text", "json"}

type rootOptions struct {
	configPath   string
	logLevel     string
	format       string
	store        string
	dbPath       string
	artifactsDir string

	cfg    config.Config
	logger *zap.Logger
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "enzyflowctl",
		Short:         "Enzyme kinetics simulation and active-learning design",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.setup()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if opts.logger != nil {
				_ = opts.logger.Sync()
			}
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "config file (default enzyflow.yaml in . or ./config)")
	flags.StringVar(&opts.logLevel, "log-level", "", "override logging.level")
	flags.StringVar(&opts.format, "format", "text", "output format (text|json)")
	flags.StringVar(&opts.store, "store", "", "override store.kind (memory|sqlite)")
	flags.StringVar(&opts.dbPath, "db-path", "", "override store.path")
	flags.StringVar(&opts.artifactsDir, "artifacts", "", "directory for design run artifacts")

	cmd.AddCommand(
		newSimulateCommand(opts),
		newCascadeCommand(opts),
		newBenchmarkCommand(opts),
		newOracleCommand(opts),
		newMutateCommand(opts),
		newApplyMutationCommand(opts),
		newDatasetCommand(opts),
		newTrainCommand(opts),
		newScreenCommand(opts),
		newDesignCommand(opts),
		newOptimizeCommand(opts),
		newHistoryCommand(opts),
		newServeCommand(opts),
	)
	return cmd
}

func (o *rootOptions) setup() error {
	valid := false
	for _, f := range validFormats {
		valid = valid || f == o.format
	}
	if !valid {
		return fmt.Errorf("invalid format %q: must be one of %v", o.format, validFormats)
	}

	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	if o.store != "" {
		cfg.Store.Kind = o.store
	}
	if o.dbPath != "" {
		cfg.Store.Path = o.dbPath
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	o.cfg = cfg
	o.logger = logger
	return nil
}

func (o *rootOptions) client(ctx context.Context, reg *prometheus.Registry) (*enzyflow.Client, error) {
	return enzyflow.New(ctx, enzyflow.Options{
		Config:       o.cfg,
		Logger:       o.logger,
		Registry:     reg,
		ArtifactsDir: o.artifactsDir,
	})
}

// print writes v as indented JSON in json mode and calls text otherwise.
func (o *rootOptions) print(w io.Writer, v any, text func(io.Writer)) error {
	if o.format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(w)
	return nil
}

// loadRecords reads an enzyme CSV, or FASTA for .fa/.fasta/.faa files.
func loadRecords(path string) ([]model.EnzymeRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".fa", ".fasta", ".faa":
		return dataset.ReadFASTA(f)
	default:
		return dataset.ReadEnzymeRecords(f)
	}
}

// importRecords loads path into the client store when path is set.
func importRecords(ctx context.Context, c *enzyflow.Client, path string) ([]model.EnzymeRecord, error) {
	if path == "" {
		return nil, nil
	}
	records, err := loadRecords(path)
	if err != nil {
		return nil, err
	}
	return c.ImportEnzymes(ctx, records)
}

func writeFile(path string, write func(io.Writer) error) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
