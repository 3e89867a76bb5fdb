package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/fatih/color"
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/datacheck/internal/schema"
)

var showFormat string

func init() {
	schemasShowCmd.Flags().StringVarP(&showFormat, "format", "f", "yaml", "output format (yaml|toml|json)")

	schemasCmd.AddCommand(schemasListCmd)
	schemasCmd.AddCommand(schemasValidateCmd)
	schemasCmd.AddCommand(schemasShowCmd)
}

var schemasCmd = &cobra.Command{
	Use:   "schemas",
	Short: "Inspect dataset schemas",
}

var schemasListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered datasets",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		name := color.New(color.FgCyan, color.Bold)
		for _, ds := range schema.All() {
			columns := 0
			for _, f := range ds.Files {
				columns += len(f.Columns)
			}
			fmt.Fprintf(out, "%s  %d files, %d columns\n", name.Sprint(ds.Name), len(ds.Files), columns)
			if ds.Description != "" {
				fmt.Fprintf(out, "  %s\n", ds.Description)
			}
		}
		return nil
	},
}

var schemasValidateCmd = &cobra.Command{
	Use:   "validate <file>...",
	Short: "Validate schema documents",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		failed := 0
		for _, path := range args {
			ds, err := schema.Load(path)
			if err != nil {
				failed++
				fmt.Fprintf(out, "%s %s\n%s\n", color.RedString("FAIL"), path, indent(err.Error()))
				continue
			}
			fmt.Fprintf(out, "%s %s (%s)\n", color.GreenString("OK"), path, ds.Name)
			for _, w := range ds.Warnings() {
				fmt.Fprintf(out, "  %s %s\n", color.YellowString("warning:"), w)
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d schema files invalid", failed, len(args))
		}
		return nil
	},
}

var schemasShowCmd = &cobra.Command{
	Use:   "show <dataset>",
	Short: "Print a dataset schema",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, err := schema.Resolve(args[0])
		if err != nil {
			return err
		}
		return writeSchema(cmd.OutOrStdout(), ds, showFormat)
	},
}

func writeSchema(w io.Writer, ds schema.Dataset, format string) error {
	switch strings.ToLower(format) {
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(ds); err != nil {
			return err
		}
		return enc.Close()
	case "toml":
		return toml.NewEncoder(w).Encode(ds)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(ds)
	default:
		return fmt.Errorf("--format must be yaml, toml or json (got %q)", format)
	}
}

func indent(s string) string {
	return "  " + strings.ReplaceAll(s, "\n", "\n  ")
}
