package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dwarfield/sleekrender/internal/config"
)

func newConfigCommand(cctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the settings file",
	}
	cmd.AddCommand(newConfigInitCommand(cctx))
	return cmd
}

func newConfigInitCommand(cctx *commandContext) *cobra.Command {
	var forceFlag bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a settings file populated with the defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := cctx.configFlag
			if path == "" {
				path = config.DefaultFileName
			}
			if err := initConfigFile(path, forceFlag); err != nil {
				return err
			}
			fmt.Printf("Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&forceFlag, "force", false, "Overwrite an existing settings file")

	return cmd
}

// initConfigFile writes the default settings to path. It refuses to clobber
// an existing file unless force is set.
func initConfigFile(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists, use --force to overwrite", path)
		}
	}
	return config.Default().Write(path)
}
