package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/potassco/gringo-dist/internal/config"
	"github.com/potassco/gringo-dist/internal/utils/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Version information, set at build time.
var (
	Version   = "dev"
	CommitSHA = "unknown"
)

// Global flags
var (
	configFile string
	logLevel   string
	verbose    bool
	recipeFile string
	rootDir    string
	compile    bool
)

var loggerCleanup func()

func main() {
	cmd := createRootCommand()
	err := cmd.Execute()
	if loggerCleanup != nil {
		loggerCleanup()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// createRootCommand creates and configures the root command with all subcommands
func createRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "gringo-dist",
		Short: "Package the gringo Python module for distribution",
		Long: `gringo-dist builds, installs and archives the gringo module described by a
package recipe. The compiled module is taken from the nested clingo source
tree; pass --compile to run the native build first.`,
		Version:       fmt.Sprintf("%s (%s)", Version, CommitSHA),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		"Path to the tool configuration file (default: "+config.DefaultConfigFile+" if present)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Enable debug output")
	rootCmd.PersistentFlags().StringVar(&recipeFile, "recipe", config.DefaultRecipeFile,
		"Package recipe, relative to the package root")
	rootCmd.PersistentFlags().StringVar(&rootDir, "root", ".",
		"Package root holding the long description and the source tree")
	rootCmd.PersistentFlags().BoolVar(&compile, "compile", false,
		"Run the native build before verifying the install manifest")

	rootCmd.AddCommand(createBuildCommand())
	rootCmd.AddCommand(createInstallCommand())
	rootCmd.AddCommand(createSdistCommand())
	rootCmd.AddCommand(createBdistCommand())
	rootCmd.AddCommand(createValidateCommand())
	rootCmd.AddCommand(createShowCommand())
	rootCmd.AddCommand(createUploadCommand())
	rootCmd.AddCommand(createCleanCommand())

	rootCmd.SetGlobalNormalizationFunc(normalizeFlagName)
	attachLoggingHooks(rootCmd)
	return rootCmd
}

// normalizeFlagName accepts underscores in flag names, so --log_level is
// the same flag as --log-level.
func normalizeFlagName(f *pflag.FlagSet, name string) pflag.NormalizedName {
	return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
}

// attachLoggingHooks installs the configuration and logging setup on every
// subcommand.
func attachLoggingHooks(rootCmd *cobra.Command) {
	for _, sub := range rootCmd.Commands() {
		sub.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
			return initGlobals(cmd)
		}
	}
}

// initGlobals loads the tool configuration and initializes the logger.
func initGlobals(cmd *cobra.Command) error {
	cfg, err := config.LoadGlobalConfig(configFile)
	if err != nil {
		return err
	}
	config.SetGlobal(cfg)

	level := resolveRequestedLogLevel(cmd)
	if level == "" {
		level = config.NewConfigHelpers(cfg).LogLevel()
	}
	cfg.Logging.Level = level

	if loggerCleanup != nil {
		loggerCleanup()
	}
	loggerCleanup, err = logger.Init(level)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	logger.Logger().Debugf("gringo-dist %s, config %q, log level %s", Version, configFile, logger.Level())
	return nil
}

// resolveRequestedLogLevel returns the log level asked for on the command
// line: --log-level wins, --verbose means debug, otherwise empty.
func resolveRequestedLogLevel(cmd *cobra.Command) string {
	if logLevel != "" {
		return logLevel
	}
	if cmd == nil {
		return ""
	}
	if f := cmd.Flags().Lookup("verbose"); f != nil && f.Changed && f.Value.String() == "true" {
		return "debug"
	}
	return ""
}
