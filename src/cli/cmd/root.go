package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/sofmeright/rebuildkit/src/config"
	"github.com/sofmeright/rebuildkit/src/logging"
)

var (
	cfgFile string
	verbose bool
	logJSON bool
	cfg     *config.Config
	logger  = zerolog.Nop()
)

var rootCmd = &cobra.Command{
	Use:   "rebuildkit",
	Short: "Rebuild pipeline toolchain and image tooling",
	Long: `rebuildkit supports pipelines that rebuild JVM dependencies from source.

It resolves the Java and Ant toolchain for Ant projects, and packages build
outputs as OCI images tagged per artifact coordinate.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger = logging.New(verbose, logJSON)
		// Skip config loading for commands that don't need it.
		if cmd.Name() == "version" {
			return nil
		}
		return loadConfig()
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: .rebuildkit.yml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "write logs as JSON")
}

func loadConfig() error {
	if cfg != nil {
		return nil
	}
	loaded, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	warnings, err := config.Validate(loaded)
	if err != nil {
		return err
	}
	for _, w := range warnings {
		logger.Debug().Msg(w)
	}
	cfg = loaded
	return nil
}

// Execute runs the root command, cancelling its context on SIGINT or SIGTERM.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	return nil
}
