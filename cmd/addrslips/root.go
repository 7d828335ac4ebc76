package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/nerrad567/addrslips-core/internal/infrastructure/config"
	"github.com/nerrad567/addrslips-core/internal/infrastructure/logging"
	"github.com/nerrad567/addrslips-core/internal/infrastructure/metrics"
	"github.com/nerrad567/addrslips-core/internal/project"
	"github.com/nerrad567/addrslips-core/internal/store"
)

const defaultConfigPath = "addrslips.yaml"

// rootOptions holds global flags and the state PersistentPreRunE builds
// from them.
type rootOptions struct {
	ConfigPath string
	Format     string

	cfg      *config.Config
	log      *logging.Logger
	registry *prometheus.Registry
	metrics  *metrics.StoreMetrics
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "addrslips",
		Short:         "Manage canvassing-campaign project archives",
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.setup(cmd)
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", defaultConfigPath,
		"configuration file (defaults apply when it does not exist)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (text|json)")

	cmd.AddCommand(newInfoCommand(opts))
	cmd.AddCommand(newInitCommand(opts))
	cmd.AddCommand(newAddAreaCommand(opts))
	cmd.AddCommand(newSetStateCommand(opts))
	cmd.AddCommand(newTeamsCommand(opts))

	return cmd
}

func (o *rootOptions) setup(cmd *cobra.Command) error {
	switch o.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid format %q: must be text or json", o.Format)
	}

	cfg, err := config.LoadOptional(o.ConfigPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	o.cfg = cfg

	if strings.EqualFold(cfg.Logging.Output, "stdout") {
		o.log = logging.NewWithWriter(cfg.Logging, version, cmd.OutOrStdout())
	} else {
		o.log = logging.NewWithWriter(cfg.Logging, version, cmd.ErrOrStderr())
	}

	if cfg.Metrics.Enabled {
		o.registry = prometheus.NewRegistry()
		o.metrics, err = metrics.NewStoreMetrics(o.registry)
		if err != nil {
			return fmt.Errorf("registering metrics: %w", err)
		}
	}
	return nil
}

// storeOptions maps the store section of the configuration onto
// store.Options.
func (o *rootOptions) storeOptions() store.Options {
	return store.Options{
		PoolSize:         o.cfg.Store.PoolSize,
		BusyTimeout:      o.cfg.Store.BusyTimeout,
		CompressionLevel: o.cfg.Store.CompressionLevel,
		TempDir:          o.cfg.Store.TempDir,
		ImageCacheTTL:    o.cfg.GetImageCacheTTL(),
		Logger:           o.log.With("component", "store"),
		Metrics:          o.metrics,
	}
}

// projectPath picks the archive from the command line, falling back to
// project.path in the configuration.
func (o *rootOptions) projectPath(args []string) (string, error) {
	if len(args) > 0 && args[0] != "" {
		return args[0], nil
	}
	if o.cfg.Project.Path != "" {
		return o.cfg.Project.Path, nil
	}
	return "", errors.New("no project given: pass a path or set project.path")
}

// withProject opens the project and runs fn. When fn succeeds and save is
// set the archive is written; the working copy is then released without a
// second snapshot.
func (o *rootOptions) withProject(ctx context.Context, path string, save bool,
	fn func(*project.Project) error) error {
	started := time.Now()
	p, err := project.Open(ctx, path, o.storeOptions())
	if err != nil {
		return fmt.Errorf("opening project: %w", err)
	}
	defer o.writeMetrics()
	defer p.Discard()

	if err := fn(p); err != nil {
		return err
	}
	if save {
		if err := p.Save(ctx); err != nil {
			return fmt.Errorf("saving project: %w", err)
		}
	}
	o.log.Debug("command finished", "project", p.Path(), "duration", time.Since(started))
	return nil
}

func (o *rootOptions) writeMetrics() {
	if o.registry == nil {
		return
	}
	if err := prometheus.WriteToTextfile(o.cfg.Metrics.Path, o.registry); err != nil {
		o.log.Warn("writing metrics textfile", "path", o.cfg.Metrics.Path, "error", err)
	}
}
