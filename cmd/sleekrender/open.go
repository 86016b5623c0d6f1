package main

import (
	"github.com/spf13/cobra"

	"github.com/dwarfield/sleekrender/internal/system"
)

func newOpenCommand(cctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "open",
		Short: "Open the output directory in the OS file browser",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := cctx.load(cmd)
			if err != nil {
				return err
			}
			return system.OpenFolder(cfg.OutputRoot)
		},
	}
}
