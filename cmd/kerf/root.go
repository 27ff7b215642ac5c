package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chazu/kerf/pkg/config"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// cli is the state shared by all subcommands.
type cli struct {
	configPath string
	trace      bool

	cfg      config.Config
	logger   *slog.Logger
	shutdown func(context.Context) error
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "kerf",
		Short:         "Split closed solids and track their volume lineage",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return c.teardown()
		},
	}
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "path to kerf.yaml (defaults when absent)")
	root.PersistentFlags().BoolVar(&c.trace, "trace", false, "print OpenTelemetry spans to stderr")

	root.AddCommand(
		newServeCmd(c),
		newEvalCmd(c),
		newSplitCmd(c),
		newVolumeCmd(c),
		newInitCmd(c),
	)
	return root
}

func (c *cli) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	c.cfg = cfg
	c.logger = config.NewLogger(cfg.Log, cmd.ErrOrStderr())

	if c.trace {
		exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint(), stdouttrace.WithWriter(cmd.ErrOrStderr()))
		if err != nil {
			return fmt.Errorf("trace exporter: %w", err)
		}
		tp := sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exp),
			sdktrace.WithSampler(sdktrace.AlwaysSample()),
		)
		otel.SetTracerProvider(tp)
		c.shutdown = tp.Shutdown
	}
	return nil
}

func (c *cli) teardown() error {
	if c.shutdown == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return c.shutdown(ctx)
}
