package main

import (
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Version is stamped by the build.
var Version = "dev"

var (
	flagVerbose bool
)

var rootCmd = &cobra.Command{
	Use:     "docsift",
	Short:   "docsift extracts structured data from documents and exports it",
	Version: Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelWarn
		if flagVerbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "verbose logging")
	rootCmd.PersistentFlags().String("api-key", "", "API key for the document understanding service")
	rootCmd.PersistentFlags().String("base-url", "https://api.openai.com/v1", "base URL for the document understanding service")
	rootCmd.PersistentFlags().String("model", "gpt-4o-mini", "model to extract with")

	viper.SetEnvPrefix("DOCSIFT")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	_ = viper.BindPFlag("api-key", rootCmd.PersistentFlags().Lookup("api-key"))
	_ = viper.BindPFlag("base-url", rootCmd.PersistentFlags().Lookup("base-url"))
	_ = viper.BindPFlag("model", rootCmd.PersistentFlags().Lookup("model"))

	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(exportCmd)
}
