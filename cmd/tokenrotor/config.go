package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	"tokenrotor/pkg/config"
	"tokenrotor/pkg/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage tokenrotor configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables
  - Configuration file
  - Default values (lowest priority)`,
}

// configInitCmd creates an example configuration file
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example configuration file",
	Long: `Create an example configuration file with all available options.

The file is created in the current directory as 'tokenrotor.yaml' unless a
different path is given with the --config flag.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		runConfigInit()
		return nil
	},
}

// configShowCmd shows the effective configuration
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		runConfigShow()
		return nil
	},
}

// configValidateCmd validates a configuration file
var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		runConfigValidate()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
}

func runConfigInit() {
	path := configFile
	if path == "" {
		path = "tokenrotor.yaml"
	}

	if _, err := os.Stat(path); err == nil {
		ui.PrintError("Config file already exists", path)
		os.Exit(1)
	}

	if err := config.DefaultConfig().Save(path); err != nil {
		ui.PrintError("Failed to write config file", err.Error())
		os.Exit(1)
	}

	ui.PrintSuccess(fmt.Sprintf("Created example configuration at %s", path))
}

func runConfigShow() {
	cfg, err := config.Load(configFile, globalFlags())
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}

	// Mask the redis password before printing
	if cfg.Redis.Password != "" {
		cfg.Redis.Password = "********"
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		ui.PrintError("Failed to render configuration", err.Error())
		os.Exit(1)
	}

	fmt.Print(string(data))
}

func runConfigValidate() {
	if _, err := config.Load(configFile, globalFlags()); err != nil {
		ui.PrintError("Configuration is invalid", err.Error())
		os.Exit(1)
	}

	ui.PrintSuccess("Configuration is valid.")
}
