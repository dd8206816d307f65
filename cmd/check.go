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
	"errors"
	"fmt"

	"bennypowers.dev/cem/genie"
	"bennypowers.dev/cem/internal/platform"
	"bennypowers.dev/cem/orchestrator"
	"bennypowers.dev/cem/validate"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify every target matches its .genie.yaml source, without writing",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		fsys := platform.NewOSFileSystem()

		summary, err := orchestrator.CheckAll(fsys, orchestrator.Options{
			Cwd:               cfg.ProjectDir,
			FormatterConfig:   &cfg.Formatter,
			WorkspaceProvider: cfg.WorkspaceProvider,
			Bus:               newPtermBus(),
		}, cfg.RequirePackageJsonValidate)

		var valErr *genie.ValidationError
		if errors.As(err, &valErr) {
			pterm.Error.Println(validate.FormatReport(valErr.Issues))
			return fmt.Errorf("check: %w", err)
		}
		if err != nil {
			return fmt.Errorf("check: %w", err)
		}

		pterm.Success.Printf("%d file(s) up to date\n", summary.Unchanged)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().Bool("require-package-json-validate", false, "fail package.json targets that have no validate: hook")
	viper.BindPFlag("requirePackageJsonValidate", checkCmd.Flags().Lookup("require-package-json-validate"))
}
