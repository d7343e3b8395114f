package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/thinkbridge/factsheet/config"
	srv "github.com/thinkbridge/factsheet/internal/server"
	"github.com/thinkbridge/factsheet/internal/store"
	"github.com/thinkbridge/factsheet/internal/telemetry"
)

func serveCMD() *cobra.Command {
	var cfgPath string

	var serve = &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP status API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(cfgPath)
			if err != nil {
				return err
			}

			s := &srv.Server{}
			if cfg.Telemetry.Enabled {
				s.Metrics = telemetry.New()
			}
			if dsn, err := cfg.Storage.Postgres.DSN(); err == nil {
				st, err := store.NewWithDSN(context.Background(), dsn)
				if err != nil {
					return err
				}
				defer st.Close()
				s.Store = st
			}
			return s.Run(cfg.Server.Address)
		},
	}
	serve.Flags().StringVarP(&cfgPath, "config", "c", "", "config file (default ./config)")
	return serve
}
