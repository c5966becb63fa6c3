package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/shaderdex/shaderdex/configs"
	"github.com/shaderdex/shaderdex/internal/config"
	"github.com/shaderdex/shaderdex/internal/output"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration files",
		Long: `Manage shaderdex configuration.

Configuration precedence (lowest to highest):
  1. Built-in defaults
  2. User config (~/.config/shaderdex/config.yaml)
  3. Project config (.shaderdex.yaml)
  4. Environment variables (SHADERDEX_*)`,
		Example: `  # Write a starter .shaderdex.yaml into the current directory
  shaderdex config init

  # Show the effective configuration after merging all sources
  shaderdex config show

  # Print where config files are looked up
  shaderdex config path`,
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigPathCmd())

	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var (
		force bool
		user  bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter configuration file",
		Long: `Write a commented starter configuration file.

By default this creates ` + config.ProjectConfigName + ` in the current
directory, the project config meant to be version-controlled with the
corpus. With --user it creates the machine-level config instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigInit(cmd, force, user)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	cmd.Flags().BoolVar(&user, "user", false, "Write the machine-level config instead of the project one")

	return cmd
}

func runConfigInit(cmd *cobra.Command, force, user bool) error {
	out := output.New(cmd.OutOrStdout())

	path := config.ProjectConfigName
	template := configs.ProjectConfigTemplate
	if user {
		p, err := config.GetUserConfigPath()
		if err != nil {
			return err
		}
		path = p
		template = configs.UserConfigTemplate
	}

	if _, err := os.Stat(path); err == nil && !force {
		out.Warningf("%s already exists", path)
		out.Status("", "pass --force to overwrite it")
		return nil
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, []byte(template), 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	out.Successf("Wrote %s", path)
	out.Status("", "edit it, then run 'shaderdex config show' to verify")
	return nil
}

func newConfigShowCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Long: `Show the configuration after merging defaults, the user config,
the project config, and SHADERDEX_* environment variables.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig()
			if err != nil {
				return err
			}
			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(cfg)
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print configuration file locations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			userPath, err := config.GetUserConfigPath()
			if err != nil {
				return err
			}
			root := config.FindProjectRoot(".")
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "user:    %s\n", userPath)
			fmt.Fprintf(w, "project: %s\n", filepath.Join(root, config.ProjectConfigName))
			return nil
		},
	}
}
