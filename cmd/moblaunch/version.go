package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lixenwraith/mob-launch/lang"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		if jsonOutput {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]string{"version": Version, "author": Author})
		}

		c := lang.New(meta(), "")
		for _, key := range []string{
			"command-version-title",
			"command-version-version",
			"command-version-author",
			"command-version-description",
		} {
			fmt.Fprintln(cmd.OutOrStdout(), lang.Strip(c.Raw(key)))
		}
		return nil
	},
}
