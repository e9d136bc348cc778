package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/livetemplate/demobox/internal/config"
)

func newInitCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Write a default demobox.yaml",
		Example: `  demobox init
  demobox init ./docs --demo-dir ../demos`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			return runInit(cmd, v, dir)
		},
	}
	cmd.Flags().Bool("force", false, "Overwrite an existing config file")
	_ = v.BindPFlag("force", cmd.Flags().Lookup("force"))
	return cmd
}

func runInit(cmd *cobra.Command, v *viper.Viper, dir string) error {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("directory does not exist: %s", dir)
	}

	target := filepath.Join(dir, config.FileNames[0])
	if !v.GetBool("force") {
		for _, name := range config.FileNames {
			if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
				return fmt.Errorf("config file already exists: %s (use --force to overwrite)", filepath.Join(dir, name))
			}
		}
	}

	cfg := config.DefaultPluginConfig()
	// Kept as written; Load anchors a relative demoDir at the config file.
	cfg.DemoDir = v.GetString("demo-dir")
	if err := cfg.Save(target); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", target)
	return nil
}
