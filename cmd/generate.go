/*
Copyright © 2025 Benny Powers <web@bennypowers.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/
package cmd

import (
	"fmt"

	"bennypowers.dev/cem/internal/platform"
	"bennypowers.dev/cem/orchestrator"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate every target from its .genie.yaml source",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		fsys := platform.NewOSFileSystem()

		summary, err := orchestrator.GenerateAll(fsys, orchestrator.Options{
			Cwd:               cfg.ProjectDir,
			ReadOnly:          cfg.ReadOnly,
			DryRun:            cfg.DryRun,
			FormatterConfig:   &cfg.Formatter,
			WorkspaceProvider: cfg.WorkspaceProvider,
			Bus:               newPtermBus(),
		})
		if err != nil {
			return fmt.Errorf("generate: %w", err)
		}

		pterm.Success.Printf(
			"%d created, %d updated, %d unchanged, %d skipped\n",
			summary.Created, summary.Updated, summary.Unchanged, summary.Skipped,
		)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(generateCmd)
	generateCmd.Flags().Bool("read-only", false, "chmod unchanged/newly written targets to 0444")
	generateCmd.Flags().Bool("dry-run", false, "report what would change without writing")
	viper.BindPFlag("readOnly", generateCmd.Flags().Lookup("read-only"))
	viper.BindPFlag("dryRun", generateCmd.Flags().Lookup("dry-run"))
}
