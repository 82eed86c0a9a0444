package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/openagi"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of openagi",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "openagi version %s\n", strings.TrimSpace(openagi.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
