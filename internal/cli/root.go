// Package cli provides the command-line interface for querytables.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/leapstack-labs/querytables/internal/cli/commands"
	"github.com/leapstack-labs/querytables/internal/cli/config"
	"github.com/leapstack-labs/querytables/internal/logging"
	"github.com/spf13/cobra"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	var (
		cfgFile     string
		envFlag     string
		closeLogger = func() {}
	)

	rootCmd := &cobra.Command{
		Use:   "querytables",
		Short: "querytables - find the tables a SQL query reads",
		Long: `querytables plans SQL queries against PostgreSQL and reports the physical
tables they read, together with the cache attributes derived from them:
the cache channel, surrogate keys and last modification time.

It can also split multi-statement queries, index recorded queries by the
tables they depend on, and serve all of this over HTTP.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			cfg, err := config.LoadConfigWithTarget(cfgFile, envFlag, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}

			level := cfg.Log.SlogLevel()
			if cfg.Verbose {
				level = slog.LevelDebug
			}
			logger, closeFn := logging.New(logging.Options{
				Writer: cmd.ErrOrStderr(),
				JSON:   cfg.Log.Format == "json",
				Level:  level,
				SeqURL: cfg.Log.SeqURL,
			})
			closeLogger = closeFn
			cmd.SetContext(config.WithLogger(cmd.Context(), logger))

			if file := config.GetConfigFileUsed(); file != "" {
				logger.Debug("using config file", slog.String("path", file))
			}
			if envFlag != "" {
				logger.Debug("using environment", slog.String("name", envFlag))
			}
			return nil
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			closeLogger()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate("{{.Name}} {{.Version}}\n")

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: querytables.yaml, searched upwards)")
	flags.StringVarP(&envFlag, "target", "t", "", "Environment whose target overrides apply (e.g. staging, prod)")
	flags.String("host", "", "Target database host")
	flags.Int("port", 0, "Target database port")
	flags.String("database", "", "Target database name")
	flags.String("user", "", "Target database user")
	flags.String("state", "", "Path to the invalidation index")
	flags.BoolP("verbose", "v", false, "Verbose output")
	flags.StringP("output", "o", "", "Output format (auto|text|json|yaml)")

	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return config.OutputFormats, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(commands.NewVersionCommand(Version))
	rootCmd.AddCommand(commands.NewSplitCommand())
	rootCmd.AddCommand(commands.NewTablesCommand())
	rootCmd.AddCommand(commands.NewKeyCommand())
	rootCmd.AddCommand(commands.NewDependentsCommand())
	rootCmd.AddCommand(commands.NewServeCommand())

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}
