package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/soundset/soundset-go/cmd/combine"
	"github.com/soundset/soundset-go/cmd/download"
	"github.com/soundset/soundset-go/cmd/export"
	"github.com/soundset/soundset-go/cmd/ingest"
	"github.com/soundset/soundset-go/internal/conf"
)

// RootCommand creates and returns the root command
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "soundset",
		Short: "Normalize and merge bioacoustic annotation datasets",
		Long: `soundset downloads bioacoustic annotation datasets, normalizes their
source-specific formats into one canonical schema and merges the normalized
datasets into a combined corpus.`,
		SilenceUsage: true,
	}

	setupFlags(rootCmd, settings)

	subcommands := []*cobra.Command{
		download.Command(settings),
		ingest.Command(settings),
		combine.Command(settings),
		export.Command(settings),
	}
	rootCmd.AddCommand(subcommands...)

	return rootCmd
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) {
	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", settings.Debug, "Enable debug output")
	rootCmd.PersistentFlags().StringVar(&settings.DataPath, "data", settings.DataPath, "Directory holding downloaded source datasets")
	rootCmd.PersistentFlags().StringVar(&settings.OutputPath, "output", settings.OutputPath, "Directory receiving canonical files")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		cobra.CheckErr(err)
	}
}
