package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Set with -ldflags "-X main.Version=... -X main.GitTag=... -X main.BuildTime=...".
var (
	Version   = "0.0.0-dev"
	GitTag    = "unknown"
	BuildTime = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version info and exit",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "v%s (Git:%s) BuildTime:%s\n", Version, GitTag, BuildTime)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
