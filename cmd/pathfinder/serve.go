package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	srv "github.com/mohammad-safakhou/pathfinder/internal/server"
	"github.com/mohammad-safakhou/pathfinder/repository"
)

func serveCMD(cfgPath *string) *cobra.Command {
	var serveAddr string
	var serve = &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := bootstrap(ctx, *cfgPath)
			if err != nil {
				return err
			}
			defer a.Close()

			addr := serveAddr
			if addr == "" {
				addr = a.cfg.Server.Address
			}
			opts := srv.Options{
				Runner:    a.engine,
				Catalog:   a.engine.Catalog(),
				JWTSecret: a.cfg.Server.JWTSecret,
				Logger:    a.logger,
			}
			if a.registry != nil {
				opts.Gatherer = a.registry
			}
			if a.cfg.Server.JWTSecret == "" {
				a.logger.Warn("server.jwt_secret is empty, crawler routes are unauthenticated")
			}

			if a.cfg.Server.Schedule != "" {
				locker, closeLocker, err := repository.NewLocker(ctx, a.cfg.Storage.Redis, a.logger)
				if err != nil {
					return err
				}
				defer closeLocker()
				sched, err := srv.NewScheduler(a.cfg.Server.Schedule, a.engine, locker, a.logger)
				if err != nil {
					return err
				}
				sched.Start(ctx)
				a.logger.Info("scheduler started", zap.String("schedule", a.cfg.Server.Schedule))
			}

			return srv.Serve(ctx, srv.New(opts), addr, a.logger)
		},
	}
	serve.Flags().StringVar(&serveAddr, "addr", "", "listen address (default server.address)")
	return serve
}
