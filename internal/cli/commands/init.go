package commands

import (
	"fmt"
	"os"
	"path/filepath"

	intconfig "github.com/leapstack-labs/silverline/internal/config"
	"github.com/spf13/cobra"
)

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new Silverline project",
		Long: `Initialize a new Silverline project with the default configuration.

This creates:
  - silverline.yaml with settings, cleaners, policies and the e-commerce
    source definitions (vendors, products, customers, transactions,
    invoices with their line items, reviews, support tickets, call transcripts)
  - data/ directory for the raw source files`,
		Example: `  # Initialize in current directory
  silverline init

  # Initialize in a new directory
  silverline init my-project

  # Force overwrite existing config
  silverline init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			return runInit(cmd, dir, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration")

	return cmd
}

func runInit(cmd *cobra.Command, dir string, force bool) error {
	r := NewCommandContextWithoutEngine(cmd).Renderer

	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	configPath := filepath.Join(dir, intconfig.ConfigFileName)
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("%s already exists. Use --force to overwrite", intconfig.ConfigFileName)
	}

	if err := os.WriteFile(configPath, intconfig.DefaultProjectYAML(), 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", intconfig.ConfigFileName, err)
	}
	r.StatusLine(intconfig.ConfigFileName, "success", "")

	dataDir := filepath.Join(dir, intconfig.DefaultInputDir)
	if err := os.MkdirAll(dataDir, 0750); err != nil {
		return fmt.Errorf("failed to create %s: %w", dataDir, err)
	}
	r.StatusLine(intconfig.DefaultInputDir+"/", "success", "")

	r.Println("")
	r.Success("Silverline project initialized!")
	r.Println("")
	r.Println("Next steps:")
	r.Println("  1. Copy the raw source files into data/")
	r.Println("  2. Run 'silverline check' to validate the configuration")
	r.Println("  3. Run 'silverline run' to produce Silver and quarantine outputs")
	r.Println("  4. Run 'silverline report' to review data quality")

	return nil
}
