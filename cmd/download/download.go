// Package download implements the subcommand that fetches a registered
// dataset archive from its repository record.
package download

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/soundset/soundset-go/internal/adapter"
	"github.com/soundset/soundset-go/internal/conf"
	"github.com/soundset/soundset-go/internal/fetch"
	"github.com/soundset/soundset-go/internal/zenodo"
)

// Command creates the download command.
func Command(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:       "download [dataset]",
		Short:     "Download and extract a dataset archive",
		Long:      `Download the repository archive of a registered dataset and extract it, nested archives included, under the data directory.`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: adapter.Names(),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			url, err := adapter.RecordURL(name)
			if err != nil {
				return err
			}
			recordID, err := zenodo.ParseRecordID(url)
			if err != nil {
				return err
			}

			client := zenodo.NewClient(zenodo.Config{
				BaseURL: settings.Enrichment.BaseURL,
				Timeout: settings.Enrichment.Timeout,
			})
			archiveURL := client.ArchiveURL(recordID)

			fetcher := fetch.NewFetcher(settings.Fetch.Timeout)
			dest := filepath.Join(settings.DataPath, name)
			return fetcher.DownloadAndExtract(cmd.Context(), archiveURL, dest)
		},
	}
}
