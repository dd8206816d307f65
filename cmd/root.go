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

// Package cmd wires the genie CLI: cobra/viper command plumbing adapted
// from the teacher's cmd/root.go, generalized from a single "generate a
// manifest" command to generate/check/watch over workspace-scoped
// .genie.yaml sources.
package cmd

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"bennypowers.dev/cem/internal/config"
	"bennypowers.dev/cem/internal/logging"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "genie",
	Short: "Generate and validate workspace-scoped files from .genie.yaml sources",
	Long: `genie discovers *.genie.yaml sources across a workspace and renders
each to its sibling target file, keeping generated package.json,
tsconfig.json and similar files in sync with the generators that own them.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main(). It only needs to happen
// once to rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func resolveProjectDir(configPath, projectDirFlag string) (string, bool) {
	if projectDirFlag != "" {
		abs, err := expandPath(projectDirFlag)
		if err != nil {
			pterm.Fatal.Printf("Invalid --project-dir: %v", err)
		}
		return abs, true
	}
	configAbs, err := filepath.Abs(configPath)
	if err != nil {
		pterm.Fatal.Printf("Invalid --config: %v", err)
	}
	configDir := filepath.Dir(configAbs)
	base := filepath.Base(configDir)
	if base == ".config" || base == "config" {
		return filepath.Dir(configDir), true
	}
	cwd, err := os.Getwd()
	if err != nil {
		pterm.Fatal.Printf("Unable to get current working directory: %v", err)
	}
	if !strings.HasPrefix(configAbs, cwd) {
		pterm.Warning.Printf("Warning: --config is outside of current dir, guessing project root as %s\n", cwd)
	}
	return cwd, false
}

// expandPath expands ~, handles relative and absolute paths.
func expandPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		if path == "~" {
			path = home
		} else if strings.HasPrefix(path, "~/") {
			path = filepath.Join(home, path[2:])
		}
	}
	return filepath.Abs(path)
}

func initConfig() {
	var err error
	cfgFile := viper.GetString("configFile")
	projectDir, shouldChange := resolveProjectDir(cfgFile, viper.GetString("projectDir"))
	viper.Set("projectDir", projectDir)
	viper.AddConfigPath(filepath.Join(projectDir, ".config"))
	viper.SetConfigType("yaml")
	viper.SetConfigName("genie")
	if shouldChange {
		if err := os.Chdir(projectDir); err != nil {
			cobra.CheckErr(errors.Join(err, errors.New("failed to change into project directory")))
		}
	}

	logging.SetDebugEnabled(viper.GetBool("verbose"))
	if viper.GetBool("verbose") {
		pterm.EnableDebugMessages()
	}
	logging.Debug("Using project directory: %s", projectDir)

	if cfgFile != "" {
		cfgFile, err = expandPath(cfgFile)
		cobra.CheckErr(err)
	} else {
		cfgFile, err = expandPath(filepath.Join(projectDir, ".config", "genie.yaml"))
		cobra.CheckErr(err)
	}
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err == nil {
			logging.Debug("Using config file: %s", cfgFile)
		}
	}
	viper.Set("configFile", cfgFile)

	viper.AutomaticEnv()
}

// loadConfig assembles the GenieConfig for the current invocation from
// viper (flags + genie.yaml) plus the GENIE_* environment overrides.
func loadConfig() *config.GenieConfig {
	cfg := &config.GenieConfig{
		ProjectDir:                 viper.GetString("projectDir"),
		ConfigFile:                 viper.GetString("configFile"),
		WorkspaceProvider:          viper.GetString("workspaceProvider"),
		RequirePackageJsonValidate: viper.GetBool("requirePackageJsonValidate"),
		ReadOnly:                   viper.GetBool("readOnly"),
		DryRun:                     viper.GetBool("dryRun"),
		ExcludeDirs:                viper.GetStringSlice("excludeDirs"),
		Verbose:                    viper.GetBool("verbose"),
	}
	cfg.Formatter.Binary = viper.GetString("formatter.binary")
	cfg.Formatter.ConfigPath = viper.GetString("formatter.configPath")
	cfg.ApplyEnvOverrides()
	return cfg
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().String("config", "", "config file (default is $CWD/.config/genie.yaml)")
	rootCmd.PersistentFlags().String("project-dir", "", "path to project directory (default: parent directory of .config/genie.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose logging output")
	rootCmd.PersistentFlags().String("workspace-provider", "", "workspace package-discovery provider: pnpm, bun, or manual (default: auto-detect)")
	rootCmd.PersistentFlags().String("formatter-binary", "", "external formatter binary used when in-process formatting is unavailable (default: oxfmt)")

	viper.BindPFlag("configFile", rootCmd.PersistentFlags().Lookup("config"))
	viper.BindPFlag("projectDir", rootCmd.PersistentFlags().Lookup("project-dir"))
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("workspaceProvider", rootCmd.PersistentFlags().Lookup("workspace-provider"))
	viper.BindPFlag("formatter.binary", rootCmd.PersistentFlags().Lookup("formatter-binary"))
}
