// Package cli implements the archivist commands.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/archivist/internal/config"
	logpkg "github.com/kailas-cloud/archivist/internal/logger"
	"github.com/kailas-cloud/archivist/internal/version"
)

type rootOptions struct {
	configPath string
	env        string
	logLevel   string

	build  Builder
	cfg    config.Config
	logger *zap.Logger
}

// NewRootCmd creates the archivist command tree. build assembles the runtime
// for commands that need the store and the providers.
func NewRootCmd(build Builder) *cobra.Command {
	o := &rootOptions{build: build}

	root := &cobra.Command{
		Use:           "archivist",
		Short:         "Semantic search over a personal text archive",
		Long:          "Incrementally indexes a text archive into a vector store and answers semantic queries.",
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version.Version, version.Commit, version.Date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return o.init()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if o.logger != nil {
				_ = o.logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVarP(&o.configPath, "config", "c", "", "Config file (default: config/$ENV.yaml)")
	root.PersistentFlags().StringVar(&o.env, "env", "", "Environment: local, dev, prod (default: $ENV or local)")
	root.PersistentFlags().StringVar(&o.logLevel, "log-level", "", "Log level override: debug, info, warn, error")

	root.AddCommand(
		newIndexCmd(o),
		newSearchCmd(o),
		newStatsCmd(o),
		newServeCmd(o),
		newHTTPCmd(o),
	)
	return root
}

func (o *rootOptions) init() error {
	if o.env == "" {
		o.env = config.GetEnv()
	}

	var err error
	if o.configPath != "" {
		o.cfg, err = config.LoadFile(o.configPath)
	} else {
		o.cfg, err = config.Load(o.env)
	}
	if err != nil {
		return err
	}

	level := o.cfg.Logging.Level
	if o.logLevel != "" {
		level = o.logLevel
	}
	o.logger, err = logpkg.NewLogger(o.env, level)
	if err != nil {
		return err
	}
	return nil
}

// app builds the runtime. The caller closes it.
func (o *rootOptions) app(ctx context.Context) (*App, error) {
	app, err := o.build(ctx, o.cfg, o.logger)
	if err != nil {
		return nil, fmt.Errorf("initialize: %w", err)
	}
	return app, nil
}
