package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/lixenwraith/mob-launch/config"
	"github.com/lixenwraith/mob-launch/lang"
	"github.com/lixenwraith/mob-launch/logging"
)

var (
	// Version is overridden by ldflags at build time
	Version = "1.0.0"
	Author  = "lixenwraith"
)

var (
	configPath string
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:           "moblaunch",
	Short:         "Pick up mobs, charge and throw them",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "moblaunch.toml", "Configuration file (missing file uses defaults)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	rootCmd.AddCommand(versionCmd, configCmd, simulateCmd, sandboxCmd)
}

func meta() lang.Meta {
	return lang.Meta{Version: Version, Author: Author}
}

// loadStore reads the configuration and logs every normalization warning
func loadStore(logger zerolog.Logger) (*config.Store, []string, error) {
	cfg, warnings, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	for _, w := range warnings {
		logger.Warn().Msg(w)
	}
	return config.NewStore(configPath, cfg, logger), warnings, nil
}

// cliLogger logs to stderr unless out is given
func cliLogger(profile logging.Profile, out io.Writer) zerolog.Logger {
	if out == nil {
		out = os.Stderr
	}
	return logging.Configure(profile, out, "moblaunch")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
