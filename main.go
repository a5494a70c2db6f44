package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ossyrian/ardtool/internal/config"
	"github.com/ossyrian/ardtool/internal/extractor"
	"github.com/ossyrian/ardtool/internal/logging"
)

var cfgFile string

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "ardtool",
	Short: "Extract files from Xenoblade Chronicles X .arh/.ard archives",
	Long: `ardtool reads an .arh header file and its companion .ard data file,
recovers file names from wordlists and extracts entries, unwrapping
xbc1 compressed containers on the way.`,
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to config file")

	// i/o
	rootCmd.PersistentFlags().StringP("input", "i", "", "path to .arh file (required)")
	rootCmd.PersistentFlags().StringP("output", "o", "", "output directory (output file for hash-list)")
	rootCmd.PersistentFlags().String("wordlists", extractor.DefaultWordlistDir, "directory of wordlist files used to recover paths")
	rootCmd.PersistentFlags().Bool("no-unwrap", false, "keep xbc1 containers not flagged compressed by the header")

	// other opts
	rootCmd.PersistentFlags().String("log-level", "info", "log level (trace, debug, info, warn, error, fatal)")
	rootCmd.PersistentFlags().String("log-output-dir", "", "directory to write log files (if set, logs are written to both stdout and file)")

	viper.BindPFlag("input", rootCmd.PersistentFlags().Lookup("input"))
	viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output"))
	viper.BindPFlag("wordlists", rootCmd.PersistentFlags().Lookup("wordlists"))
	viper.BindPFlag("no_unwrap", rootCmd.PersistentFlags().Lookup("no-unwrap"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log_output_dir", rootCmd.PersistentFlags().Lookup("log-output-dir"))
}

// initConfig reads in config file and environment variables if set
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "ardtool"))
		}
		viper.AddConfigPath("/etc/ardtool")
		viper.SetConfigName("config")
		viper.SetConfigType("toml")
	}

	viper.SetEnvPrefix("ARDTOOL")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// setup loads the config and installs the logger. The returned function
// flushes and closes the log file, if any.
func setup() (*config.Config, func() error, error) {
	cfg := &config.Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}

	if cfg.InputFile == "" {
		return nil, nil, fmt.Errorf("required flag \"input\" not set")
	}

	closeLog, err := logging.Setup(cfg.LogLevel, cfg.LogOutputDir)
	if err != nil {
		return nil, nil, fmt.Errorf("could not set up logging: %w", err)
	}

	return cfg, closeLog, nil
}

// openArchive opens the archive named by cfg on the OS filesystem
func openArchive(cfg *config.Config) (*extractor.Extractor, error) {
	slog.Info("opening archive", "input", cfg.InputFile)

	e, err := extractor.Open(afero.NewOsFs(), cfg.InputFile,
		extractor.WithAutoUnwrap(!cfg.NoUnwrap),
		extractor.WithWordlistDir(cfg.WordlistDir),
		extractor.WithDryRun(cfg.DryRun),
		extractor.WithLogger(slog.Default()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open arh/ard files: %w", err)
	}
	return e, nil
}

// outputDir returns the configured output directory, defaulting to
// "extracted" next to the input file
func outputDir(cfg *config.Config) string {
	if cfg.OutputPath != "" {
		return cfg.OutputPath
	}
	return filepath.Join(filepath.Dir(cfg.InputFile), "extracted")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
