package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// newScrapeCmd fetches and extracts the listing without touching the store.
func newScrapeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scrape",
		Short: "Scrapes the configured listing and prints the records as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			defer appInstance.Close()

			source := appInstance.Source()
			actors, err := source.Scrape(cmd.Context())
			if err != nil {
				return fmt.Errorf("scrape %s: %w", source.Name(), err)
			}
			appInstance.Logger().Info("scrape finished",
				zap.String("source", source.Name()),
				zap.Int("records", len(actors)),
			)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(actors); err != nil {
				return fmt.Errorf("encode records: %w", err)
			}
			return nil
		},
	}
}
