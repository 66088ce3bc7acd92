package main

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"enzyflow/internal/api"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	var addr, records string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			reg := prometheus.NewRegistry()
			c, err := opts.client(ctx, reg)
			if err != nil {
				return err
			}
			defer c.Close()
			if _, err := importRecords(ctx, c, records); err != nil {
				return err
			}
			if addr == "" {
				addr = opts.cfg.Server.Addr
			}

			srv := api.New(c)
			errCh := make(chan error, 1)
			go func() { errCh <- srv.Listen(addr) }()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
				opts.logger.Info("shutting down", zap.Error(ctx.Err()))
				if err := srv.Shutdown(); err != nil {
					return err
				}
				if err := <-errCh; err != nil && !errors.Is(err, ctx.Err()) {
					return err
				}
				return nil
			}
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address; empty uses server.addr")
	cmd.Flags().StringVar(&records, "records", "", "enzyme CSV or FASTA to import at startup")
	return cmd
}
