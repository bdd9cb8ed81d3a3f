// Command docbind assembles bundles from local files: an index followed by
// every listing with running page numbers.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dgallion1/docbind/internal/app"
	"github.com/dgallion1/docbind/internal/config"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	cfgFile string
	verbose bool

	v   *viper.Viper
	log *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "docbind",
	Short: "Assemble documents into an indexed, page-numbered bundle",
	Long: `docbind combines PDFs, images and text documents into a single PDF or
Word bundle. The bundle opens with an index of every listing and its page
range; content pages are numbered continuously from 1.

Settings come from DOCBIND_* environment variables and an optional config
file (--config).`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		log = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

		var err error
		v, err = config.New(cfgFile)
		if err != nil {
			return err
		}
		if cfgFile != "" {
			log.Debug("using config file", "path", v.ConfigFileUsed())
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml, json or toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

// components builds the pipeline from the loaded configuration.
func components() *app.Components {
	return app.New(config.LoadFrom(v), log)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
