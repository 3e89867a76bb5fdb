package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/datacheck/internal/report"
	"github.com/JonMunkholm/datacheck/internal/runner"
	"github.com/JonMunkholm/datacheck/internal/schema"
)

var (
	checkDataset       string
	checkDir           string
	checkPolicy        string
	checkMaxViolations int
	checkFormat        string
	checkRedis         bool
	checkRecord        bool
	checkShow          int
)

func init() {
	checkCmd.Flags().StringVarP(&checkDataset, "dataset", "d", "snb-social", "registered dataset name or schema file (.yaml, .toml, .json)")
	checkCmd.Flags().StringVar(&checkDir, "dir", ".", "dataset directory")
	checkCmd.Flags().StringVarP(&checkPolicy, "policy", "p", "", "failure policy (terminate|collect); defaults to CHECK_POLICY")
	checkCmd.Flags().IntVar(&checkMaxViolations, "max-violations", -1, "violations kept by collect; defaults to CHECK_MAX_VIOLATIONS, 0 keeps all")
	checkCmd.Flags().StringVarP(&checkFormat, "format", "f", "text", "output format (text|json)")
	checkCmd.Flags().BoolVar(&checkRedis, "redis", false, "keep reference sets in Redis (needs REDIS_URL)")
	checkCmd.Flags().BoolVar(&checkRecord, "record", false, "store the report in the configured database and Redis cache")
	checkCmd.Flags().IntVar(&checkShow, "show", 50, "violations printed in text output (0 prints all)")
}

var checkCmd = &cobra.Command{
	Use:   "check [dir]",
	Short: "Validate a dataset directory",
	Long: `Validate every file of a dataset directory.

Exit status is 0 when every check passes, 1 when violations were found and 2
when the run could not complete.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		checkDir = args[0]
	}
	format := strings.ToLower(checkFormat)
	if format != "text" && format != "json" {
		return fmt.Errorf("--format must be text or json (got %q)", checkFormat)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if checkRedis {
		cfg.Check.RefBackend = "redis"
	}
	if !checkRedis && !checkRecord {
		cfg.Redis.URL = ""
	}
	if !checkRecord {
		cfg.Database.URL = ""
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ds, err := schema.Resolve(checkDataset)
	if err != nil {
		return err
	}

	policy := checkPolicy
	if policy == "" {
		policy = cfg.Check.Policy
	}
	maxViolations := cfg.Check.MaxViolations
	if checkMaxViolations >= 0 {
		maxViolations = checkMaxViolations
	}

	var recs []runner.Recorder
	if checkRecord {
		recs, _ = a.recorders()
	}

	rep, runErr := a.runner(recs).Run(ctx, ds, checkDir, runner.Options{
		Policy:        runner.Policy(strings.ToLower(policy)),
		MaxViolations: maxViolations,
	})
	if rep == nil {
		return runErr
	}

	out := cmd.OutOrStdout()
	if format == "json" {
		err = report.JSON(out, rep)
	} else {
		err = report.Text(out, rep, report.TextOptions{Color: !color.NoColor, Limit: checkShow})
	}
	if err != nil {
		return err
	}

	switch {
	case runErr != nil:
		return runErr
	case !rep.Passed():
		return errChecksFailed
	}
	return nil
}
