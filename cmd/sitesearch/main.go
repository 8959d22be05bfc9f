package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/rebuildup/my-web-2025-sub006/pkg/infrastructure/config"
	"github.com/rebuildup/my-web-2025-sub006/pkg/infrastructure/logging"
)

// cliOptions holds the persistent flags shared by every command
type cliOptions struct {
	configPath string
	envFile    string
	jsonOutput bool
	logLevel   string

	cfg    *config.Config
	logger *logging.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &cliOptions{}

	root := &cobra.Command{
		Use:   "sitesearch",
		Short: "Full-text search for the portfolio and blog site",
		Long: `sitesearch builds a search index from the site's content records and
answers queries against it, either from the command line or over HTTP.

Example usage:
  sitesearch serve                     # Run the HTTP API
  sitesearch search "react hooks"      # Query the index
  sitesearch reindex --type blog       # Rebuild one content type
  sitesearch cache stats               # Inspect the result cache`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.init()
		},
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default $SITESEARCH_CONFIG or the user config dir)")
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file with SITESEARCH_* overrides")
	root.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "print JSON even on a terminal")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override the configured log level")

	root.AddCommand(
		newServeCmd(opts),
		newSearchCmd(opts),
		newSuggestCmd(opts),
		newRelatedCmd(opts),
		newReindexCmd(opts),
		newCacheCmd(opts),
	)
	return root
}

// init loads .env, the config file and environment overrides, then sets up logging
func (o *cliOptions) init() error {
	if o.envFile != "" {
		if err := godotenv.Load(o.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", o.envFile, err)
		}
	}

	path := o.configPath
	if path == "" {
		if defaultPath, err := config.GetDefaultConfigPath(); err == nil {
			path = defaultPath
		}
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return err
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	o.cfg = cfg

	lc, err := loggerConfig(cfg.Logging)
	if err != nil {
		return err
	}
	logging.InitGlobalLogger(lc)
	o.logger = logging.GetGlobalLogger()
	return nil
}

func loggerConfig(cfg config.LoggingConfig) (*logging.Config, error) {
	lc := &logging.Config{
		Level:            mustLevel(cfg.Level),
		Format:           logging.ParseLogFormat(cfg.Format),
		Output:           os.Stderr,
		EnableSanitizing: true,
	}
	if strings.EqualFold(cfg.Output, "file") {
		w, err := logging.CreateCombinedOutput(cfg.File)
		if err != nil {
			return nil, err
		}
		lc.Output = w
	}
	return lc, nil
}

// mustLevel parses a level already checked by config validation
func mustLevel(level string) logging.LogLevel {
	l, err := logging.ParseLogLevel(level)
	if err != nil {
		return logging.InfoLevel
	}
	return l
}
