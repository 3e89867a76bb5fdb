// Command datacheck validates delimited dataset directories against declared
// schemas, either once from the command line or as an HTTP service.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/JonMunkholm/datacheck/internal/logging"
)

// errChecksFailed marks a run that completed with violations. It maps to
// exit status 1; any other error exits with 2.
var errChecksFailed = errors.New("checks failed")

var (
	logLevel  string
	logFormat string
	colorMode string
)

var rootCmd = &cobra.Command{
	Use:           "datacheck",
	Short:         "Validate delimited datasets against column schemas",
	Long:          `datacheck checks every file of a dataset directory column by column: types, ranges, sequences, patterns and cross-file references.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Overload lets .env values win over the inherited environment.
		if err := godotenv.Overload(); err == nil {
			slog.Debug("loaded .env file")
		}

		level := logLevel
		if !cmd.Flags().Changed("log-level") {
			if v := os.Getenv("LOG_LEVEL"); v != "" {
				level = v
			}
		}
		format := logFormat
		if !cmd.Flags().Changed("log-format") {
			if v := os.Getenv("LOG_FORMAT"); v != "" {
				format = v
			}
		}
		logging.Setup(level, format, nil)

		switch strings.ToLower(colorMode) {
		case "on":
			color.NoColor = false
		case "off":
			color.NoColor = true
		case "auto":
			color.NoColor = !term.IsTerminal(int(os.Stdout.Fd()))
		default:
			return fmt.Errorf("--color must be auto, on or off (got %q)", colorMode)
		}
		return nil
	},
}

func init() {
	rootCmd.Version = Version

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text|json)")
	rootCmd.PersistentFlags().StringVar(&colorMode, "color", "auto", "colorize output (auto|on|off)")

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(schemasCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, errChecksFailed) {
			os.Exit(1)
		}
		fmt.Fprintln(os.Stderr, color.RedString("error:"), err)
		os.Exit(2)
	}
}
