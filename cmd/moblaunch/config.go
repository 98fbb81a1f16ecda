package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/lixenwraith/mob-launch/audio"
	"github.com/lixenwraith/mob-launch/config"
)

var strictCheck bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the configuration",
}

var configCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the configuration and print the resolved values",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, warnings, err := config.Load(configPath)
		if err != nil {
			return err
		}
		unknown := audio.UnknownSounds(cfg.Sounds)
		for _, name := range unknown {
			warnings = append(warnings, fmt.Sprintf("sounds.%s: %q is not a known sound, cue is silent", name, soundName(cfg, name)))
		}

		out := cmd.OutOrStdout()
		if jsonOutput {
			if err := writeCheckJSON(out, cfg, warnings); err != nil {
				return err
			}
		} else {
			text, err := cfg.Encode()
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "# resolved from %s\n%s", configPath, text)
			if len(warnings) == 0 {
				fmt.Fprintln(out, "# no warnings")
			}
			for _, w := range warnings {
				fmt.Fprintf(out, "# warning: %s\n", w)
			}
		}

		if strictCheck && len(warnings) > 0 {
			return fmt.Errorf("%d configuration warning(s)", len(warnings))
		}
		return nil
	},
}

var configDefaultCmd = &cobra.Command{
	Use:   "default",
	Short: "Print the default configuration as TOML",
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := config.Default().Encode()
		if err != nil {
			return err
		}
		_, err = io.WriteString(cmd.OutOrStdout(), text)
		return err
	},
}

func init() {
	configCheckCmd.Flags().BoolVar(&strictCheck, "strict", false, "Fail when any warning is reported")
	configCmd.AddCommand(configCheckCmd, configDefaultCmd)
}

func soundName(cfg *config.Config, cue string) string {
	return cfg.Sounds.Named()[cue].Sound
}

func writeCheckJSON(w io.Writer, cfg *config.Config, warnings []string) error {
	if warnings == nil {
		warnings = []string{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		Path     string         `json:"path"`
		Config   *config.Config `json:"config"`
		Warnings []string       `json:"warnings"`
	}{configPath, cfg, warnings})
}
