// Package export implements the subcommand that loads a combined canonical
// file into a SQLite database.
package export

import (
	"github.com/spf13/cobra"

	"github.com/soundset/soundset-go/internal/conf"
	"github.com/soundset/soundset-go/internal/datastore"
	"github.com/soundset/soundset-go/internal/soundset"
)

// Command creates the export command.
func Command(settings *conf.Settings) *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "export [combined.json]",
		Short: "Export a combined corpus to SQLite",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			combined, err := soundset.ReadCombinedFile(args[0])
			if err != nil {
				return err
			}

			store, err := datastore.Open(dbPath)
			if err != nil {
				return err
			}
			defer store.Close() //nolint:errcheck // save already flushed

			return store.SaveCombined(combined)
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", settings.Export.SQLite.Path, "SQLite database path")
	return cmd
}
