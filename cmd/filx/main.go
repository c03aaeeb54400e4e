// Command filx serves the document feed API and offers maintenance and
// inspection commands over the same stores.
package main

import (
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/prokemal2012/Filx/internal/config"
	"github.com/prokemal2012/Filx/internal/logging"
)

// rootOptions are the flags shared by every command
type rootOptions struct {
	configPath string
	dataDir    string
	logLevel   string

	cfg *config.Config
}

func main() {
	root := newRootCmd()
	root.SetOut(os.Stdout)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "filx",
		Short:         "Document sharing feed, trending and social graph service",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			if opts.dataDir != "" {
				cfg.Storage.DataDir = opts.dataDir
			}
			if opts.logLevel != "" {
				cfg.Logging.Level = opts.logLevel
			}
			cfg.Logging.Output = cmd.ErrOrStderr()
			logging.Init(cfg.Logging)
			opts.cfg = cfg
			return nil
		},
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to config file (default: $FILX_CONFIG or ./config.yaml)")
	root.PersistentFlags().StringVar(&opts.dataDir, "data-dir", "", "directory for database and index files")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(
		newServeCmd(opts),
		newReindexCmd(opts),
		newStatsCmd(opts),
		newTrendingCmd(opts),
		newFeedCmd(opts),
		newTokenCmd(opts),
	)
	return root
}

// printJSON writes v to the command's output, indented
func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	cmd.Println(string(data))
	return nil
}
