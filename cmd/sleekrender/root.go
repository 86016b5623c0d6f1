package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/dwarfield/sleekrender/internal/config"
	"github.com/dwarfield/sleekrender/internal/logging"
	"github.com/dwarfield/sleekrender/internal/system"
)

// commandContext carries the persistent flag values into subcommands and
// resolves the effective configuration for each run.
type commandContext struct {
	configFlag    string
	outputFlag    string
	toleranceFlag float64
	blenderFlag   string
	verboseFlag   bool
}

func (c *commandContext) bind(flags *pflag.FlagSet) {
	flags.StringVarP(&c.configFlag, "config", "c", "", "Configuration file path")
	flags.StringVarP(&c.outputFlag, "output-dir", "o", "", "Output root directory")
	flags.Float64Var(&c.toleranceFlag, "tolerance", config.DefaultTolerance, "Float tolerance for duplicate detection")
	flags.StringVar(&c.blenderFlag, "blender", "", "Path to the blender binary")
	flags.BoolVarP(&c.verboseFlag, "verbose", "v", false, "Enable debug logging")
}

// load resolves configuration: explicit --config, else sleekrender.yaml in
// the working directory, else defaults. Flags set on the command line win
// over file values.
func (c *commandContext) load(cmd *cobra.Command) (*config.Config, zerolog.Logger, error) {
	var cfg *config.Config
	var err error

	switch {
	case c.configFlag != "":
		cfg, err = config.Load(c.configFlag)
	default:
		cfg, err = config.Load(config.DefaultFileName)
		if err != nil && os.IsNotExist(err) {
			cfg, err = config.Default(), nil
		}
	}
	if err != nil {
		return nil, zerolog.Nop(), err
	}

	flags := cmd.Flags()
	if flags.Changed("output-dir") {
		cfg.OutputRoot = c.outputFlag
	}
	if flags.Changed("tolerance") {
		cfg.Tolerance = c.toleranceFlag
	}
	if flags.Changed("blender") {
		cfg.BlenderPath = c.blenderFlag
	}
	if c.verboseFlag {
		cfg.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, zerolog.Nop(), err
	}

	return cfg, logging.New(cfg.LogLevel), nil
}

// resolveBlend picks the scene file: the positional argument if given,
// otherwise the most recent .blend in the working directory.
func resolveBlend(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	latest, err := system.FindLatestBlend(".")
	if err != nil {
		return "", fmt.Errorf("no scene file given and %w", err)
	}
	fmt.Printf("Using scene file %s\n", latest)
	return latest, nil
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "sleekrender",
		Short:         "Accelerated Blender animation rendering for mostly-static scenes",
		Long: "sleekrender renders Blender animations by scanning F-curves for frames\n" +
			"where nothing animates, copying a previously rendered image for those\n" +
			"frames instead of invoking the renderer again.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	ctx.bind(rootCmd.PersistentFlags())

	rootCmd.AddCommand(newRenderCommand(ctx))
	rootCmd.AddCommand(newAnalyzeCommand(ctx))
	rootCmd.AddCommand(newStitchCommand(ctx))
	rootCmd.AddCommand(newOpenCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))

	return rootCmd
}
