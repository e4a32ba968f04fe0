// Package cmd implements the confmap CLI commands.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/agentstation/confmap/pkg/constants"
	"github.com/agentstation/confmap/pkg/logging"
)

var (
	configFile string
	dataDir    string
	entityName string
	verbose    bool
	quiet      bool

	// Version information set by main.
	Version = "dev"
	// Commit is the git commit hash.
	Commit = "unknown"
	// Date is the build date.
	Date = "unknown"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "confmap",
	Short: "Conference and journal deadline reconciliation CLI",
	Long: `Confmap reconciles conference and journal submission deadlines
reported by multiple sources into a single validated snapshot.

It groups records that describe the same venue, detects field-level
disagreement between sources, resolves it deterministically, and keeps
an auditable validation report alongside the merged entities. Snapshots
are stored on disk with timestamped backups.`,
}

// Execute adds all child commands to the root command and runs it.
func Execute(version, commit, date string) {
	Version = version
	Commit = commit
	Date = date
	rootCmd.Version = fmt.Sprintf("%s (commit %s, built %s)", version, commit, date)

	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Commands never run unbounded; a hung store or giant input fails
	// instead of wedging the terminal.
	ctx, timeout := context.WithTimeout(ctx, constants.CommandTimeout)
	defer timeout()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		"config file (default is $HOME/.confmap.yaml)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "",
		"store directory (default is $HOME/.confmap)")
	rootCmd.PersistentFlags().StringVarP(&entityName, "entity", "e", "conference",
		"entity kind: conference or journal")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false,
		"only log warnings and errors")

	for _, flag := range []string{"data-dir", "entity", "verbose", "quiet"} {
		if err := viper.BindPFlag(flag, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			panic(fmt.Sprintf("failed to bind %s flag: %v", flag, err))
		}
	}
}

// initConfig reads in the config file and environment variables.
func initConfig() {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".confmap")
	}

	// .env files load before viper's env binding so both see them.
	loadEnvFiles()

	viper.SetEnvPrefix("confmap")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}

	configureLogging()
}

// configureLogging sets up logging from flags and the environment.
func configureLogging() {
	level := "info"
	if verbose || viper.GetBool("verbose") {
		level = "debug"
	}
	if quiet || viper.GetBool("quiet") {
		level = "warn"
	}
	if envLevel := os.Getenv("LOG_LEVEL"); envLevel != "" {
		level = envLevel
	}
	logging.Configure(level, os.Getenv("LOG_FORMAT"))
}

// loadEnvFiles loads environment variables from .env files, later files
// overriding earlier ones.
func loadEnvFiles() {
	for _, envFile := range []string{".env", ".env.local"} {
		if _, err := os.Stat(envFile); err != nil {
			continue
		}
		if err := godotenv.Overload(envFile); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to load %s: %v\n", envFile, err)
		}
	}
}

// storeDir resolves the store directory from flag, config, or default.
func storeDir() (string, error) {
	if dir := viper.GetString("data-dir"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return home + "/.confmap", nil
}
