package main

import (
	"fmt"
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// Build metadata, overridden at build time via -ldflags "-X main.Version=...".
var (
	Version   = "0.1.0-dev"
	GitCommit = ""
	BuildDate = ""
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show build information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		bold := color.New(color.Bold)
		fmt.Fprintf(out, "%s %s\n", bold.Sprint("datacheck"), color.GreenString(Version))
		if GitCommit != "" {
			fmt.Fprintf(out, "commit  %s\n", GitCommit)
		}
		if BuildDate != "" {
			fmt.Fprintf(out, "built   %s\n", BuildDate)
		}
		fmt.Fprintf(out, "go      %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
	},
}
