package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mohammad-safakhou/pathfinder/config"
	srv "github.com/mohammad-safakhou/pathfinder/internal/server"
)

func tokenCMD(cfgPath *string) *cobra.Command {
	var subject string
	var ttl time.Duration
	var scopes []string

	var token = &cobra.Command{
		Use:   "token",
		Short: "Issue a JWT for the crawler API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(*cfgPath)
			if err != nil {
				return err
			}
			if cfg.Server.JWTSecret == "" {
				return errors.New("server.jwt_secret not configured")
			}
			signed, err := srv.SignJWT(subject, []byte(cfg.Server.JWTSecret), ttl, scopes...)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), signed)
			return nil
		},
	}
	token.Flags().StringVar(&subject, "subject", "operator", "token subject")
	token.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	token.Flags().StringSliceVar(&scopes, "scope", []string{srv.ScopeCrawler}, "granted scopes")
	return token
}
