package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mohammad-safakhou/pathfinder/engine"
	"github.com/mohammad-safakhou/pathfinder/models"
)

func discoverCMD(cfgPath *string) *cobra.Command {
	var urls []string
	var discover = &cobra.Command{
		Use:   "discover",
		Short: "Search for event pages, fetch them and store the ones that pass the keyword gate",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(cmd.Context(), *cfgPath)
			if err != nil {
				return err
			}
			defer a.Close()

			var sum engine.DiscoverySummary
			if len(urls) > 0 {
				sum = a.engine.CrawlURLs(cmd.Context(), urls)
			} else {
				sum = a.engine.RunDiscovery(cmd.Context())
			}
			if err := printJSON(sum); err != nil {
				return err
			}
			return statusErr(sum.Status, sum.Error)
		},
	}
	discover.Flags().StringSliceVar(&urls, "url", nil, "crawl these URLs instead of searching (repeatable)")
	return discover
}

func extractCMD(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "extract",
		Short: "Extract events from stored pages into the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(cmd.Context(), *cfgPath)
			if err != nil {
				return err
			}
			defer a.Close()

			sum := a.engine.RunExtraction(cmd.Context())
			if err := printJSON(sum); err != nil {
				return err
			}
			return statusErr(sum.Status, sum.Error)
		},
	}
}

func runCMD(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run discovery and then extraction",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(cmd.Context(), *cfgPath)
			if err != nil {
				return err
			}
			defer a.Close()

			sum := a.engine.Run(cmd.Context())
			if err := printJSON(sum); err != nil {
				return err
			}
			return statusErr(sum.Status, "see discovery and extraction errors above")
		},
	}
}

func statusErr(status, msg string) error {
	if status == models.StatusSuccess {
		return nil
	}
	return fmt.Errorf("run finished with status %s: %s", status, msg)
}
