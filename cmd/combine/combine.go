// Package combine implements the subcommand that merges canonical annotation
// files into one combined corpus.
package combine

import (
	"github.com/spf13/cobra"

	"github.com/soundset/soundset-go/internal/conf"
	"github.com/soundset/soundset-go/internal/merge"
	"github.com/soundset/soundset-go/internal/taxonomy"
)

// Command creates the combine command.
func Command(settings *conf.Settings) *cobra.Command {
	var outputFile string

	cmd := &cobra.Command{
		Use:   "combine [annotations.json...]",
		Short: "Merge canonical files into one combined corpus",
		Long: `Merge canonical annotation files in the given order, renumbering every id
space and unifying category labels through the configured name authority.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resolver merge.NameResolver
			if settings.Taxonomy.Enabled {
				r, err := taxonomy.NewResolver(taxonomy.Config{
					BaseURL:           settings.Taxonomy.BaseURL,
					Locale:            settings.Taxonomy.Locale,
					CacheFilePath:     settings.Taxonomy.CacheFile,
					MaxRetries:        settings.Taxonomy.MaxRetries,
					BackoffDelay:      settings.Taxonomy.BackoffDelay,
					RateLimitCooldown: settings.Taxonomy.RateLimitCooldown,
					RequestInterval:   settings.Taxonomy.RequestInterval,
					Timeout:           settings.Taxonomy.Timeout,
				})
				if err != nil {
					return err
				}
				defer r.Close() //nolint:errcheck // flushed on every append
				resolver = r
			}

			combined, err := merge.Combine(cmd.Context(), args, resolver)
			if err != nil {
				return err
			}
			return combined.WriteFile(outputFile)
		},
	}

	cmd.Flags().StringVarP(&outputFile, "out", "o", "combined.json", "Path of the combined canonical file")
	return cmd
}
