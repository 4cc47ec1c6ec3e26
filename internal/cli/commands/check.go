package commands

import (
	"errors"
	"log/slog"
	"time"

	"github.com/leapstack-labs/silverline/internal/cli/config"
	"github.com/leapstack-labs/silverline/internal/cli/output"
	"github.com/leapstack-labs/silverline/internal/engine"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// CheckOutput is the JSON output of the check command.
type CheckOutput struct {
	ConfigFile string        `json:"config_file,omitempty"`
	Checks     []CheckResult `json:"checks"`
	OK         bool          `json:"ok"`
}

// CheckResult is the outcome of one check.
type CheckResult struct {
	Name   string `json:"name"`
	Status string `json:"status"` // "pass", "fail"
	Detail string `json:"detail,omitempty"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the project configuration",
		Long: `Check the settings, the source definitions and the rule references of the project
without reading any data.

The checks are:
  - settings: value ranges, formats and the warehouse type
  - keys: no misspelled or unsupported keys in silverline.yaml
  - definitions: sources, fields, patterns, bounds and policies
  - pipeline: rule names, foreign key targets and dependency cycles
  - input: the input directory exists`,
		Example: `  # Validate the project in the current directory
  silverline check

  # Validate another project
  silverline check --project-dir ./ecommerce`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCheck(cmd)
		},
	}
}

func runCheck(cmd *cobra.Command) error {
	cmdCtx := NewCommandContextWithoutEngine(cmd)
	out := checkProject(cmdCtx.Cfg, cmdCtx.Logger)

	r := cmdCtx.Renderer
	if r.Mode() == output.ModeJSON {
		if err := r.JSON(out); err != nil {
			return err
		}
	} else {
		title := cases.Title(language.English)
		for _, c := range out.Checks {
			r.StatusLine(title.String(c.Name), c.Status, "")
			if c.Detail != "" {
				r.Println(c.Detail)
			}
		}
	}

	if !out.OK {
		return errCheckFailed
	}
	if r.Mode() != output.ModeJSON {
		r.Success("Project is valid")
	}
	return nil
}

var errCheckFailed = errors.New("project check failed")

// checkProject runs every check. Later checks are skipped once one fails.
func checkProject(cfg *config.Config, logger *slog.Logger) *CheckOutput {
	out := &CheckOutput{ConfigFile: config.GetConfigFileUsed(), OK: true}
	add := func(name string, err error) bool {
		res := CheckResult{Name: name, Status: "pass"}
		if err != nil {
			res.Status = "fail"
			res.Detail = err.Error()
			out.OK = false
		}
		out.Checks = append(out.Checks, res)
		return err == nil
	}

	if !add("settings", cfg.Validate()) {
		return out
	}
	if !add("keys", config.CheckConfigFileKeys()) {
		return out
	}
	project, err := buildProject(cfg)
	if !add("definitions", err) {
		return out
	}
	ref, _ := cfg.ParseReferenceTime(time.Now)
	eng, err := engine.New(engineConfig(cfg, project, ref, logger))
	if err == nil {
		_, err = eng.Registry().Order()
		_ = eng.Close()
	}
	if !add("pipeline", err) {
		return out
	}
	add("input", cfg.ValidateDirectories())
	return out
}
