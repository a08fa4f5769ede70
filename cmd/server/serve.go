package main

import (
	"github.com/spf13/cobra"

	"refenum/internal/api"
	"refenum/internal/logger"
)

func newServeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := bootstrap(ctx, c.cfg, c.log)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			storage := api.NewStorage(a.reg, a.catalog, a.records, c.log.With(logger.CatAPI))
			storage.Enums = a.enums
			return api.RunServer(ctx, c.cfg.Addr(), storage)
		},
	}
}
