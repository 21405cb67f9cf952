package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	var cfgPath string
	var root = &cobra.Command{
		Use:          "pathfinder",
		Short:        "Discover tech events on the web and keep a deduplicated catalog",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is ./config/config.json or ./config.json)")

	root.AddCommand(
		discoverCMD(&cfgPath),
		extractCMD(&cfgPath),
		runCMD(&cfgPath),
		serveCMD(&cfgPath),
		migrateCMD(&cfgPath),
		tokenCMD(&cfgPath),
	)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := root.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
