/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"github.com/Seann-Moser/servoseq/pkg/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or create the configuration file",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return toml.NewEncoder(cmd.OutOrStdout()).Encode(cfg)
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration to --config",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(configPath); err == nil {
			return fmt.Errorf("%s already exists", configPath)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		def := config.Default()
		if err := def.Save(configPath); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", configPath)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd, configInitCmd)
	rootCmd.AddCommand(configCmd)
}
