// SPDX-License-Identifier: MIT
package benchkeeper

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/skaphos/benchkeeper/internal/config"
	"github.com/skaphos/benchkeeper/internal/model"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter benchkeeper configuration",
	Long:  "Creates a " + config.LocalConfigFilename + " with default publish settings in the current directory, or at --config.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")

		cfgPath := flagConfig
		if cfgPath == "" {
			cwd, err := os.Getwd()
			if err != nil {
				return err
			}
			cfgPath = filepath.Join(cwd, config.LocalConfigFilename)
		}
		if _, err := os.Stat(cfgPath); err == nil && !force {
			return fmt.Errorf("config already exists at %q (use --force to overwrite)", cfgPath)
		}

		cfg := config.DefaultFile()
		if name, _ := cmd.Flags().GetString("name"); strings.TrimSpace(name) != "" {
			cfg.Publish.Name = strings.TrimSpace(name)
		}
		if raw, _ := cmd.Flags().GetString("tool"); raw != "" {
			tool, err := model.ParseTool(raw)
			if err != nil {
				return err
			}
			cfg.Publish.Tool = string(tool)
		}
		if err := config.Save(&cfg, cfgPath); err != nil {
			return err
		}
		infof(cmd, "wrote config to %s", cfgPath)
		return nil
	},
}

func init() {
	initCmd.Flags().Bool("force", false, "overwrite an existing config file")
	initCmd.Flags().String("name", config.DefaultName, "benchmark suite name")
	initCmd.Flags().String("tool", "", "benchmark tool that produces the output: "+strings.Join(supportedToolNames(), ", "))
	rootCmd.AddCommand(initCmd)
}
