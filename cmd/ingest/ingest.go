// Package ingest implements the subcommand that normalizes one downloaded
// dataset into a canonical annotation file.
package ingest

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/soundset/soundset-go/internal/adapter"
	"github.com/soundset/soundset-go/internal/conf"
	"github.com/soundset/soundset-go/internal/soundset"
	"github.com/soundset/soundset-go/internal/zenodo"
)

// Command creates the ingest command.
func Command(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:       "ingest [dataset]",
		Short:     "Normalize a downloaded dataset to the canonical format",
		Long:      `Walk a downloaded dataset, probe its audio files, parse its source annotation format and write the canonical annotation file under the output directory.`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: adapter.Names(),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			src, err := adapter.Open(name, filepath.Join(settings.DataPath, name))
			if err != nil {
				return err
			}

			var fetcher soundset.MetadataFetcher
			if settings.Enrichment.Enabled {
				fetcher = zenodo.NewClient(zenodo.Config{
					BaseURL: settings.Enrichment.BaseURL,
					Timeout: settings.Enrichment.Timeout,
				})
			}

			builder, _, err := adapter.Ingest(cmd.Context(), src, fetcher)
			if err != nil {
				return err
			}

			outPath := filepath.Join(settings.OutputPath, name, soundset.CanonicalFileName)
			return builder.SaveFile(outPath)
		},
	}
}
